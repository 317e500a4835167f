package postgres

import (
	"reflect"
	"sync"
)

// ExtractDBColumns lists the column names declared by a struct's "db" tags,
// walking embedded structs (entity.BaseDocument and friends) depth-first.
// Called once per repository at construction, so the reflection cost is paid
// at startup.
func ExtractDBColumns[T any]() []string {
	var zero T
	return columnsOf(reflect.TypeOf(zero))
}

func columnsOf(t reflect.Type) []string {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}

	var cols []string
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous {
			cols = append(cols, columnsOf(f.Type)...)
			continue
		}
		if tag := f.Tag.Get("db"); tag != "" && tag != "-" {
			cols = append(cols, tag)
		}
	}
	return cols
}

// dbField maps a struct field index to its column name.
type dbField struct {
	index  int
	column string
}

// dbSchema is the cached shape of a mapped struct: tagged fields plus the
// indices of embedded structs that need a recursive pass.
type dbSchema struct {
	fields   []dbField
	embedded []int
}

var schemaCache sync.Map // reflect.Type -> *dbSchema

func schemaOf(t reflect.Type) *dbSchema {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if cached, ok := schemaCache.Load(t); ok {
		return cached.(*dbSchema)
	}

	schema := &dbSchema{}
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			if f.Anonymous {
				schema.embedded = append(schema.embedded, i)
				continue
			}
			if tag := f.Tag.Get("db"); tag != "" && tag != "-" {
				schema.fields = append(schema.fields, dbField{index: i, column: tag})
			}
		}
	}

	schemaCache.Store(t, schema)
	return schema
}

// StructToMap flattens a struct into column name -> value pairs using its
// "db" tags, skipping untagged and "-" fields. The per-type schema is cached,
// so repeated calls for the same type avoid re-walking the tags.
func StructToMap(v any) map[string]any {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil
	}

	schema := schemaOf(rv.Type())
	res := make(map[string]any, len(schema.fields))
	for _, f := range schema.fields {
		res[f.column] = rv.Field(f.index).Interface()
	}
	for _, i := range schema.embedded {
		for k, val := range StructToMap(rv.Field(i).Interface()) {
			res[k] = val
		}
	}
	return res
}
