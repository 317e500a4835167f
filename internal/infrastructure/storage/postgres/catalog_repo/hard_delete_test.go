package catalog_repo

import (
	"testing"

	"github.com/Masterminds/squirrel"

	"inventra/internal/core/id"
)

func TestBaseCatalogRepo_Delete_SQL(t *testing.T) {
	repo := NewBaseCatalogRepo[any]("test_table", []string{"id", "name"}, func() any { return nil })
	ctx := testCtx()
	entityID := id.New()

	q := repo.Builder().
		Delete(repo.tableName).
		Where(squirrel.Eq{"id": entityID}).
		Where(squirrel.Eq{"tenant_id": repo.tenantID(ctx)})

	sql, args, err := q.ToSql()
	if err != nil {
		t.Fatalf("ToSql failed: %v", err)
	}

	wantSQL := "DELETE FROM test_table WHERE id = $1 AND tenant_id = $2"
	if sql != wantSQL {
		t.Errorf("SQL mismatch\nwant: %s\ngot:  %s", wantSQL, sql)
	}
	// squirrel resolves driver.Valuer args, so the bound value is the
	// UUID's string form rather than the uuid.UUID itself.
	if len(args) != 2 || args[0] != entityID.String() || args[1] != "tenant-1" {
		t.Errorf("Args mismatch\nwant: [%v tenant-1]\ngot:  %v", entityID, args)
	}
}
