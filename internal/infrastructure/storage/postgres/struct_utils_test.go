package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"inventra/internal/core/entity"
	"inventra/internal/core/id"
)

type mappedDoc struct {
	entity.BaseDocument
	Number string `db:"number" json:"number"`
	Note   string `db:"-" json:"note"`
	local  string
}

func TestExtractDBColumnsWalksEmbedded(t *testing.T) {
	cols := ExtractDBColumns[mappedDoc]()

	for _, expected := range []string{
		"id", "tenant_id", "deletion_mark", "version",
		"created_at", "updated_at", "created_by", "updated_by",
		"number",
	} {
		assert.Contains(t, cols, expected)
	}
	assert.NotContains(t, cols, "note")
	assert.NotContains(t, cols, "local")
}

func TestStructToMapUsesDBTags(t *testing.T) {
	now := time.Now().UTC()
	doc := mappedDoc{
		BaseDocument: entity.BaseDocument{
			BaseEntity: entity.BaseEntity{
				ID:           id.New(),
				TenantID:     "acme",
				DeletionMark: true,
				Version:      5,
			},
			CreatedAt: now,
			CreatedBy: "user-1",
		},
		Number: "DOC-001",
		Note:   "ignored",
		local:  "ignored",
	}

	m := StructToMap(doc)

	assert.Equal(t, doc.ID, m["id"])
	assert.Equal(t, "acme", m["tenant_id"])
	assert.Equal(t, true, m["deletion_mark"])
	assert.Equal(t, 5, m["version"])
	assert.Equal(t, now, m["created_at"])
	assert.Equal(t, "user-1", m["created_by"])
	assert.Equal(t, "DOC-001", m["number"])
	assert.NotContains(t, m, "note")
}

func TestStructToMapNonStruct(t *testing.T) {
	assert.Nil(t, StructToMap(42))
	assert.Nil(t, StructToMap("x"))
}
