package db

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/schema"
	"github.com/tordrt/dmschema/typemap"
)

func openMemory(t *testing.T) (*sqlx.DB, DatabaseMethods) {
	t.Helper()
	db, err := OpenSQLitePure(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	m, err := NewDefaultRegistry().MethodsFor(db)
	require.NoError(t, err)
	require.Equal(t, provider.SQLite, m.ProviderType())
	return db, m
}

func t1Table() *schema.Table {
	return &schema.Table{
		TableName: "t1",
		Columns: []*schema.Column{
			{ColumnName: "id", HostType: typemap.PrimitiveOf(typemap.GUID), IsPrimaryKey: true},
			{ColumnName: "name", HostType: typemap.PrimitiveOf(typemap.String), Length: typemap.IntPtr(100)},
		},
	}
}

func countRows(t *testing.T, db *sqlx.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.Get(&n, `SELECT count(*) FROM "`+table+`"`))
	return n
}

func TestSQLiteTableLifecycle(t *testing.T) {
	ctx := context.Background()
	db, m := openMemory(t)

	created, err := m.CreateTableIfNotExists(ctx, db, t1Table())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = m.CreateTableIfNotExists(ctx, db, t1Table())
	require.NoError(t, err)
	assert.False(t, created, "second create is a no-op")

	exists, err := m.DoesTableExist(ctx, db, "", "T1")
	require.NoError(t, err)
	assert.True(t, exists, "lookups ignore case")

	tbl, err := m.GetTable(ctx, db, "", "T1")
	require.NoError(t, err)
	require.NotNil(t, tbl)
	assert.Equal(t, "t1", tbl.TableName)
	require.Len(t, tbl.Columns, 2)

	id := tbl.Column("id")
	require.NotNil(t, id)
	assert.True(t, id.HostType.Is(typemap.GUID))
	assert.True(t, id.IsPrimaryKey)
	assert.False(t, id.IsNullable)
	assert.False(t, id.IsAutoIncrement)

	name := tbl.Column("name")
	require.NotNil(t, name)
	assert.True(t, name.HostType.Is(typemap.String))
	assert.Equal(t, "varchar(100)", name.ProviderTypes[provider.SQLite])
	require.NotNil(t, name.Length)
	assert.Equal(t, 100, *name.Length)
	assert.False(t, name.IsNullable)

	require.NotNil(t, tbl.PrimaryKey)
	assert.Equal(t, "pk_t1", tbl.PrimaryKey.ConstraintName)

	names, err := m.GetTableNames(ctx, db, "", "t*")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, names)

	_, err = db.Exec(`INSERT INTO t1 (id, name) VALUES ('00000000-0000-0000-0000-000000000001', 'a')`)
	require.NoError(t, err)

	renamed, err := m.RenameTableIfExists(ctx, db, "", "t1", "t2")
	require.NoError(t, err)
	assert.True(t, renamed)
	assert.Equal(t, 1, countRows(t, db, "t2"))

	truncated, err := m.TruncateTableIfExists(ctx, db, "", "t2")
	require.NoError(t, err)
	assert.True(t, truncated)
	assert.Equal(t, 0, countRows(t, db, "t2"))

	dropped, err := m.DropTableIfExists(ctx, db, "", "t2")
	require.NoError(t, err)
	assert.True(t, dropped)

	dropped, err = m.DropTableIfExists(ctx, db, "", "t2")
	require.NoError(t, err)
	assert.False(t, dropped)
}

func TestSQLiteMissingObjects(t *testing.T) {
	ctx := context.Background()
	db, m := openMemory(t)

	tbl, err := m.GetTable(ctx, db, "", "nope")
	require.NoError(t, err)
	assert.Nil(t, tbl)

	col, err := m.GetColumn(ctx, db, "", "nope", "id")
	require.NoError(t, err)
	assert.Nil(t, col)

	view, err := m.GetView(ctx, db, "", "nope")
	require.NoError(t, err)
	assert.Nil(t, view)

	_, err = m.GetTable(ctx, db, "", " ")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestSQLiteSchemasAreNoOps(t *testing.T) {
	ctx := context.Background()
	db, m := openMemory(t)

	assert.False(t, m.SupportsSchemas())

	created, err := m.CreateSchemaIfNotExists(ctx, db, "sales")
	require.NoError(t, err)
	assert.False(t, created)

	exists, err := m.DoesSchemaExist(ctx, db, "sales")
	require.NoError(t, err)
	assert.False(t, exists)

	names, err := m.GetSchemaNames(ctx, db, "")
	require.NoError(t, err)
	assert.Empty(t, names)

	dropped, err := m.DropSchemaIfExists(ctx, db, "sales")
	require.NoError(t, err)
	assert.False(t, dropped)
}

func TestSQLiteVersionAndCapabilities(t *testing.T) {
	ctx := context.Background()
	db, m := openMemory(t)

	v, err := m.GetDatabaseVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Major)

	checks, err := m.SupportsCheckConstraints(ctx, db)
	require.NoError(t, err)
	assert.True(t, checks)
}

func TestSQLiteColumnOperations(t *testing.T) {
	ctx := context.Background()
	db, m := openMemory(t)

	_, err := m.CreateTableIfNotExists(ctx, db, t1Table())
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO t1 (id, name) VALUES ('00000000-0000-0000-0000-000000000001', 'a')`)
	require.NoError(t, err)

	note := &schema.Column{TableName: "t1", ColumnName: "note", HostType: typemap.PrimitiveOf(typemap.String), IsNullable: true}
	added, err := m.CreateColumnIfNotExists(ctx, db, note)
	require.NoError(t, err)
	assert.True(t, added)

	added, err = m.CreateColumnIfNotExists(ctx, db, note)
	require.NoError(t, err)
	assert.False(t, added)

	// Unique columns force a rebuild; the existing row takes the default.
	qty := &schema.Column{TableName: "t1", ColumnName: "qty", HostType: typemap.PrimitiveOf(typemap.Int32), DefaultExpression: "1", IsUnique: true}
	added, err = m.CreateColumnIfNotExists(ctx, db, qty)
	require.NoError(t, err)
	assert.True(t, added)
	assert.Equal(t, 1, countRows(t, db, "t1"))

	uc, err := m.GetUniqueConstraintOnColumn(ctx, db, "", "t1", "qty")
	require.NoError(t, err)
	require.NotNil(t, uc)
	assert.Equal(t, "uc_t1_qty", uc.ConstraintName)

	df, err := m.GetDefaultConstraintOnColumn(ctx, db, "", "t1", "qty")
	require.NoError(t, err)
	require.NotNil(t, df)
	assert.Equal(t, "1", df.Expression)

	renamed, err := m.RenameColumnIfExists(ctx, db, "", "t1", "note", "remark")
	require.NoError(t, err)
	assert.True(t, renamed)

	renamed, err = m.RenameColumnIfExists(ctx, db, "", "t1", "note", "remark")
	require.NoError(t, err)
	assert.False(t, renamed)

	dropped, err := m.DropColumnIfExists(ctx, db, "", "t1", "qty")
	require.NoError(t, err)
	assert.True(t, dropped)

	names, err := m.GetColumnNames(ctx, db, "", "t1", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "remark"}, names)
	assert.Equal(t, 1, countRows(t, db, "t1"))

	uc, err = m.GetUniqueConstraintOnColumn(ctx, db, "", "t1", "qty")
	require.NoError(t, err)
	assert.Nil(t, uc)
}

func TestSQLiteConstraintRebuilds(t *testing.T) {
	ctx := context.Background()
	db, m := openMemory(t)

	parent := &schema.Table{
		TableName: "customers",
		Columns: []*schema.Column{
			{ColumnName: "id", HostType: typemap.PrimitiveOf(typemap.Int32), IsPrimaryKey: true, IsAutoIncrement: true},
			{ColumnName: "email", HostType: typemap.PrimitiveOf(typemap.String), Length: typemap.IntPtr(200)},
		},
	}
	child := &schema.Table{
		TableName: "orders",
		Columns: []*schema.Column{
			{ColumnName: "id", HostType: typemap.PrimitiveOf(typemap.Int32), IsPrimaryKey: true, IsAutoIncrement: true},
			{ColumnName: "customer_id", HostType: typemap.PrimitiveOf(typemap.Int32)},
			{ColumnName: "total", HostType: typemap.PrimitiveOf(typemap.Decimal)},
		},
	}
	for _, tbl := range []*schema.Table{parent, child} {
		_, err := m.CreateTableIfNotExists(ctx, db, tbl)
		require.NoError(t, err)
	}

	customers, err := m.GetTable(ctx, db, "", "customers")
	require.NoError(t, err)
	assert.True(t, customers.Column("id").IsAutoIncrement)

	_, err = db.Exec(`INSERT INTO customers (email) VALUES ('a@example.com')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO orders (customer_id, total) VALUES (1, 10)`)
	require.NoError(t, err)

	ok, err := m.CreateUniqueConstraintIfNotExists(ctx, db, &schema.UniqueConstraint{
		TableName: "customers", Columns: schema.Columns("email"),
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.CreateCheckConstraintIfNotExists(ctx, db, &schema.CheckConstraint{
		TableName: "orders", ColumnName: "total", Expression: "total >= 0",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ck, err := m.GetCheckConstraintOnColumn(ctx, db, "", "orders", "total")
	require.NoError(t, err)
	require.NotNil(t, ck)
	assert.Equal(t, "ck_orders_total", ck.ConstraintName)
	assert.Equal(t, "total >= 0", ck.Expression)

	ok, err = m.CreateForeignKeyConstraintIfNotExists(ctx, db, &schema.ForeignKeyConstraint{
		TableName:           "orders",
		SourceColumns:       schema.Columns("customer_id"),
		ReferencedTableName: "customers",
		ReferencedColumns:   schema.Columns("id"),
		OnDelete:            schema.Cascade,
	})
	require.NoError(t, err)
	assert.True(t, ok)

	fk, err := m.GetForeignKeyConstraintOnColumn(ctx, db, "", "orders", "customer_id")
	require.NoError(t, err)
	require.NotNil(t, fk)
	assert.Equal(t, "fk_orders_customer_id_customers_id", fk.ConstraintName)
	assert.Equal(t, schema.Cascade, fk.OnDelete)
	assert.Equal(t, "customers", fk.ReferencedTableName)

	assert.Equal(t, 1, countRows(t, db, "orders"))
	assert.Equal(t, 1, countRows(t, db, "customers"))

	ok, err = m.DropForeignKeyConstraintIfExists(ctx, db, "", "orders", fk.ConstraintName)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.DropCheckConstraintOnColumnIfExists(ctx, db, "", "orders", "total")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.DropUniqueConstraintOnColumnIfExists(ctx, db, "", "customers", "email")
	require.NoError(t, err)
	assert.True(t, ok)

	orders, err := m.GetTable(ctx, db, "", "orders")
	require.NoError(t, err)
	assert.Empty(t, orders.ForeignKeyConstraints)
	assert.Empty(t, orders.CheckConstraints)
	assert.Equal(t, 1, countRows(t, db, "orders"))
}

func TestSQLiteIndexes(t *testing.T) {
	ctx := context.Background()
	db, m := openMemory(t)

	_, err := m.CreateTableIfNotExists(ctx, db, t1Table())
	require.NoError(t, err)

	ok, err := m.CreateIndexIfNotExists(ctx, db, &schema.Index{
		TableName: "t1", Columns: []schema.OrderedColumn{schema.Desc("name")},
	})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.CreateIndexIfNotExists(ctx, db, &schema.Index{
		TableName: "t1", Columns: []schema.OrderedColumn{schema.Desc("name")},
	})
	require.NoError(t, err)
	assert.False(t, ok)

	ix, err := m.GetIndex(ctx, db, "", "t1", "IX_T1_NAME")
	require.NoError(t, err)
	require.NotNil(t, ix)
	assert.Equal(t, "ix_t1_name", ix.IndexName)
	require.Len(t, ix.Columns, 1)
	assert.Equal(t, schema.Descending, ix.Columns[0].Order)

	ixs, err := m.GetIndexesOnColumn(ctx, db, "", "t1", "name")
	require.NoError(t, err)
	assert.Len(t, ixs, 1)

	ok, err = m.DropIndexesOnColumnIfExists(ctx, db, "", "t1", "name")
	require.NoError(t, err)
	assert.True(t, ok)

	names, err := m.GetIndexNames(ctx, db, "", "t1", "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSQLiteViews(t *testing.T) {
	ctx := context.Background()
	db, m := openMemory(t)

	_, err := m.CreateTableIfNotExists(ctx, db, t1Table())
	require.NoError(t, err)

	ok, err := m.CreateViewIfNotExists(ctx, db, &schema.View{ViewName: "v_names", Definition: "SELECT name FROM t1;"})
	require.NoError(t, err)
	assert.True(t, ok)

	v, err := m.GetView(ctx, db, "", "V_NAMES")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "SELECT name FROM t1", v.Definition)

	ok, err = m.UpdateViewIfExists(ctx, db, "", "v_names", "SELECT id, name FROM t1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.RenameViewIfExists(ctx, db, "", "v_names", "v_all")
	require.NoError(t, err)
	assert.True(t, ok)

	names, err := m.GetViewNames(ctx, db, "", "v_*")
	require.NoError(t, err)
	assert.Equal(t, []string{"v_all"}, names)

	v, err = m.GetView(ctx, db, "", "v_all")
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.Equal(t, "SELECT id, name FROM t1", v.Definition)

	ok, err = m.DropViewIfExists(ctx, db, "", "v_all")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSQLiteAlterTable(t *testing.T) {
	ctx := context.Background()
	db, m := openMemory(t)

	_, err := m.CreateTableIfNotExists(ctx, db, t1Table())
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO t1 (id, name) VALUES ('00000000-0000-0000-0000-000000000001', 'a')`)
	require.NoError(t, err)

	err = m.AlterTable(ctx, db, &TableAlteration{
		TableName:     "t1",
		NewTableName:  "people",
		RenameColumns: map[string]string{"name": "full_name"},
		AddColumns: []*schema.Column{
			{ColumnName: "age", HostType: typemap.PrimitiveOf(typemap.Int16), IsNullable: true},
		},
		AddIndexes:          []*schema.Index{{Columns: schema.Columns("full_name")}},
		AddCheckConstraints: []*schema.CheckConstraint{{ColumnName: "age", Expression: "age >= 0"}},
	})
	require.NoError(t, err)

	tbl, err := m.GetTable(ctx, db, "", "people")
	require.NoError(t, err)
	require.NotNil(t, tbl)
	assert.Equal(t, []string{"id", "full_name", "age"}, tbl.ColumnNames())
	require.Len(t, tbl.Indexes, 1)
	assert.Equal(t, "ix_people_full_name", tbl.Indexes[0].IndexName)
	require.Len(t, tbl.CheckConstraints, 1)
	assert.Equal(t, "ck_people_age", tbl.CheckConstraints[0].ConstraintName)
	assert.Equal(t, 1, countRows(t, db, "people"))

	err = m.AlterTable(ctx, db, &TableAlteration{TableName: "t1"})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

// cascadePair creates parent and child tables joined by ON DELETE CASCADE with
// foreign keys enforced and one row in each.
func cascadePair(t *testing.T, db *sqlx.DB, m DatabaseMethods) {
	t.Helper()
	ctx := context.Background()
	_, err := db.Exec(`PRAGMA foreign_keys = ON`)
	require.NoError(t, err)

	for _, tbl := range []*schema.Table{
		{
			TableName: "parent",
			Columns: []*schema.Column{
				{ColumnName: "id", HostType: typemap.PrimitiveOf(typemap.Int32), IsPrimaryKey: true},
			},
		},
		{
			TableName: "child",
			Columns: []*schema.Column{
				{ColumnName: "id", HostType: typemap.PrimitiveOf(typemap.Int32), IsPrimaryKey: true},
				{ColumnName: "parent_id", HostType: typemap.PrimitiveOf(typemap.Int32), IsForeignKey: true,
					ReferencedTableName: "parent", ReferencedColumnName: "id", OnDelete: schema.Cascade},
			},
		},
	} {
		_, err := m.CreateTableIfNotExists(ctx, db, tbl)
		require.NoError(t, err)
	}
	_, err = db.Exec(`INSERT INTO parent (id) VALUES (1)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO child (id, parent_id) VALUES (1, 1)`)
	require.NoError(t, err)
}

func TestSQLiteRebuildKeepsReferencingRows(t *testing.T) {
	ctx := context.Background()
	db, m := openMemory(t)
	cascadePair(t, db, m)

	ok, err := m.CreateCheckConstraintIfNotExists(ctx, db, &schema.CheckConstraint{
		TableName: "parent", ColumnName: "id", Expression: "id > 0",
	})
	require.NoError(t, err)
	assert.True(t, ok)

	assert.Equal(t, 1, countRows(t, db, "parent"))
	assert.Equal(t, 1, countRows(t, db, "child"))

	var enabled int
	require.NoError(t, db.Get(&enabled, `PRAGMA foreign_keys`))
	assert.Equal(t, 1, enabled, "foreign keys are enforced again after the rebuild")

	var tmp int
	require.NoError(t, db.Get(&tmp, `SELECT count(*) FROM sqlite_master WHERE name LIKE '_dm_tmp_%'`))
	assert.Zero(t, tmp)
}

func TestSQLiteRebuildInsideTransactionWithForeignKeys(t *testing.T) {
	ctx := context.Background()
	db, m := openMemory(t)
	cascadePair(t, db, m)

	tx, err := db.BeginTxx(ctx, nil)
	require.NoError(t, err)

	ok, err := m.CreateCheckConstraintIfNotExists(ctx, tx, &schema.CheckConstraint{
		TableName: "parent", ColumnName: "id", Expression: "id > 0",
	})
	assert.ErrorIs(t, err, ErrForeignKeysEnforced)
	assert.False(t, ok)

	var children int
	require.NoError(t, tx.Get(&children, `SELECT count(*) FROM child`))
	assert.Equal(t, 1, children, "referencing rows survive inside the transaction")
	require.NoError(t, tx.Commit())

	assert.Equal(t, 1, countRows(t, db, "child"))
	ck, err := m.GetCheckConstraintOnColumn(ctx, db, "", "parent", "id")
	require.NoError(t, err)
	assert.Nil(t, ck)
}

func TestSQLiteFailedRebuildLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	db, m := openMemory(t)

	_, err := m.CreateTableIfNotExists(ctx, db, t1Table())
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO t1 (id, name) VALUES ('00000000-0000-0000-0000-000000000001', 'short')`)
	require.NoError(t, err)

	check := &schema.CheckConstraint{TableName: "t1", ColumnName: "name", Expression: "length(name) > 10"}
	_, first := m.CreateCheckConstraintIfNotExists(ctx, db, check)
	require.Error(t, first)
	assert.Contains(t, first.Error(), "CHECK constraint failed")

	_, retry := m.CreateCheckConstraintIfNotExists(ctx, db, check)
	require.Error(t, retry)
	assert.Contains(t, retry.Error(), "CHECK constraint failed")
	assert.NotContains(t, retry.Error(), "already exists")

	names, err := m.GetTableNames(ctx, db, "", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, names)
	assert.Equal(t, 1, countRows(t, db, "t1"))

	var legacy int
	require.NoError(t, db.Get(&legacy, `PRAGMA legacy_alter_table`))
	assert.Zero(t, legacy)
}
