package db

import (
	"context"
	"regexp"
	"strings"

	"github.com/tordrt/dmschema/internal/naming"
	"github.com/tordrt/dmschema/provider"
	"github.com/tordrt/dmschema/schema"
	"github.com/tordrt/dmschema/typemap"
)

// readTables introspects every table of schemaName matching the LIKE pattern.
func (m *Methods) readTables(ctx context.Context, ex Executor, schemaName, pattern string) ([]*schema.Table, error) {
	snap, err := m.d.ReadTables(ctx, ex, schemaName, pattern)
	if err != nil {
		return nil, m.wrap("read tables", schemaName, err)
	}
	return m.assemble(schemaName, snap), nil
}

// assemble rebuilds the model from catalog rows.
func (m *Methods) assemble(schemaName string, snap *Snapshot) []*schema.Table {
	byName := make(map[string]*schema.Table, len(snap.TableNames))
	tables := make([]*schema.Table, 0, len(snap.TableNames))
	for _, name := range snap.TableNames {
		t := &schema.Table{SchemaName: schemaName, TableName: name}
		byName[name] = t
		tables = append(tables, t)
	}

	// Extract columns
	for _, r := range snap.Columns {
		if t, ok := byName[r.TableName]; ok {
			t.Columns = append(t.Columns, m.columnFromRow(schemaName, r))
		}
	}

	// Extract constraints
	for _, group := range groupConstraints(snap.Constraints) {
		t, ok := byName[group[0].TableName]
		if !ok {
			continue
		}
		m.addConstraint(t, group)
	}

	// Extract indexes
	for _, group := range groupIndexes(snap.Indexes) {
		t, ok := byName[group[0].TableName]
		if !ok {
			continue
		}
		ix := &schema.Index{
			SchemaName: schemaName,
			TableName:  t.TableName,
			IndexName:  group[0].IndexName,
			IsUnique:   group[0].IsUnique,
		}
		for _, r := range group {
			ix.Columns = append(ix.Columns, orderedColumn(naming.Normalize(r.ColumnName), r.IsDescending))
		}
		t.Indexes = append(t.Indexes, ix)
	}

	for _, t := range tables {
		synthesizeDefaults(t)
		finalizeTable(t)
	}
	return tables
}

func (m *Methods) columnFromRow(schemaName string, r ColumnRow) *schema.Column {
	c := &schema.Column{
		SchemaName:      schemaName,
		TableName:       r.TableName,
		ColumnName:      r.ColumnName,
		IsNullable:      r.IsNullable,
		IsAutoIncrement: m.d.IsAutoIncrement(r),
		ProviderTypes:   map[provider.Type]string{m.d.Provider(): r.DataType},
	}
	if d, ok := m.d.TypeMap().TryGetHostType(r.DataType); ok {
		c.HostType = d.Type
		c.Length = d.Length
		c.Precision = d.Precision
		c.Scale = d.Scale
		c.IsUnicode = d.IsUnicode
		c.IsFixedLength = d.IsFixedLength
	} else {
		c.HostType = typemap.PrimitiveOf(typemap.ObjectValue)
	}
	if r.DefaultValue.Valid && !c.IsAutoIncrement {
		c.DefaultExpression = strings.TrimSpace(r.DefaultValue.String)
	}
	return c
}

func (m *Methods) addConstraint(t *schema.Table, group []ConstraintRow) {
	first := group[0]
	var cols []schema.OrderedColumn
	for _, r := range group {
		if r.ColumnName.Valid && r.ColumnName.String != "" {
			cols = append(cols, orderedColumn(r.ColumnName.String, r.IsDescending))
		}
	}

	switch strings.ToUpper(first.ConstraintType) {
	case constraintPrimaryKey:
		t.PrimaryKey = &schema.PrimaryKeyConstraint{
			SchemaName: t.SchemaName, TableName: t.TableName, ConstraintName: first.ConstraintName, Columns: cols,
		}
	case constraintUnique:
		t.UniqueConstraints = append(t.UniqueConstraints, &schema.UniqueConstraint{
			SchemaName: t.SchemaName, TableName: t.TableName, ConstraintName: first.ConstraintName, Columns: cols,
		})
	case constraintCheck:
		ck := &schema.CheckConstraint{
			SchemaName:     t.SchemaName,
			TableName:      t.TableName,
			ConstraintName: first.ConstraintName,
			Expression:     cleanCheckExpression(first.Definition.String),
		}
		if len(cols) == 1 {
			ck.ColumnName = cols[0].ColumnName
		} else if len(cols) == 0 {
			ck.ColumnName = checkColumnFromName(t, first.ConstraintName)
		}
		t.CheckConstraints = append(t.CheckConstraints, ck)
	case constraintDefault:
		if len(cols) == 0 {
			return
		}
		t.DefaultConstraints = append(t.DefaultConstraints, &schema.DefaultConstraint{
			SchemaName:     t.SchemaName,
			TableName:      t.TableName,
			ColumnName:     cols[0].ColumnName,
			ConstraintName: first.ConstraintName,
			Expression:     stripParens(first.Definition.String),
		})
	case constraintForeignKey:
		fk := &schema.ForeignKeyConstraint{
			SchemaName:          t.SchemaName,
			TableName:           t.TableName,
			ConstraintName:      first.ConstraintName,
			ReferencedTableName: first.ReferencedTableName.String,
		}
		for _, r := range group {
			fk.SourceColumns = append(fk.SourceColumns, schema.Asc(r.ColumnName.String))
			fk.ReferencedColumns = append(fk.ReferencedColumns, schema.Asc(r.ReferencedColumnName.String))
		}
		fk.OnDelete, _ = schema.ParseForeignKeyAction(first.DeleteRule.String)
		fk.OnUpdate, _ = schema.ParseForeignKeyAction(first.UpdateRule.String)
		t.ForeignKeyConstraints = append(t.ForeignKeyConstraints, fk)
	}
}

func orderedColumn(name string, desc bool) schema.OrderedColumn {
	if desc {
		return schema.Desc(name)
	}
	return schema.Asc(name)
}

// groupConstraints groups rows by table and constraint, keeping catalog order.
func groupConstraints(rows []ConstraintRow) [][]ConstraintRow {
	index := make(map[[2]string]int)
	var groups [][]ConstraintRow
	for _, r := range rows {
		key := [2]string{r.TableName, r.ConstraintName}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}
	return groups
}

func groupIndexes(rows []IndexRow) [][]IndexRow {
	index := make(map[[2]string]int)
	var groups [][]IndexRow
	for _, r := range rows {
		key := [2]string{r.TableName, r.IndexName}
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], r)
	}
	return groups
}

var checkPrefix = regexp.MustCompile(`(?i)^\s*check\s*`)

// cleanCheckExpression strips the CHECK keyword, NOT VALID and wrapping parentheses.
func cleanCheckExpression(def string) string {
	def = checkPrefix.ReplaceAllString(strings.TrimSpace(def), "")
	def = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(def), "NOT VALID"))
	return stripParens(def)
}

// checkColumnFromName recovers the column of a check whose catalog entry has
// none, from generated names or servers that name column checks after the column.
func checkColumnFromName(t *schema.Table, constraintName string) string {
	for _, c := range t.Columns {
		if strings.EqualFold(constraintName, naming.CheckName(t.TableName, c.ColumnName)) || strings.EqualFold(constraintName, c.ColumnName) {
			return c.ColumnName
		}
	}
	return ""
}

// synthesizeDefaults turns column defaults into named default constraints
// for providers that store defaults as column properties.
func synthesizeDefaults(t *schema.Table) {
	has := make(map[string]bool, len(t.DefaultConstraints))
	for _, d := range t.DefaultConstraints {
		has[strings.ToLower(d.ColumnName)] = true
	}
	for _, c := range t.Columns {
		if c.DefaultExpression == "" || has[strings.ToLower(c.ColumnName)] {
			continue
		}
		t.DefaultConstraints = append(t.DefaultConstraints, &schema.DefaultConstraint{
			SchemaName:     t.SchemaName,
			TableName:      t.TableName,
			ColumnName:     c.ColumnName,
			ConstraintName: naming.DefaultName(t.TableName, c.ColumnName),
			Expression:     c.DefaultExpression,
		})
	}
}

// finalizeTable derives column level flags from the table's constraints and indexes.
func finalizeTable(t *schema.Table) {
	if t.PrimaryKey != nil {
		for _, pc := range t.PrimaryKey.Columns {
			if c := t.Column(pc.ColumnName); c != nil {
				c.IsPrimaryKey = true
				c.IsNullable = false
			}
		}
	}
	for _, uc := range t.UniqueConstraints {
		if len(uc.Columns) == 1 {
			if c := t.Column(uc.Columns[0].ColumnName); c != nil {
				c.IsUnique = true
			}
		}
	}
	for _, ck := range t.CheckConstraints {
		if c := t.Column(ck.ColumnName); c != nil && ck.ColumnName != "" {
			c.CheckExpression = ck.Expression
		}
	}
	for _, df := range t.DefaultConstraints {
		if c := t.Column(df.ColumnName); c != nil {
			c.DefaultExpression = df.Expression
		}
	}
	for _, fk := range t.ForeignKeyConstraints {
		if len(fk.SourceColumns) != 1 {
			continue
		}
		if c := t.Column(fk.SourceColumns[0].ColumnName); c != nil {
			c.IsForeignKey = true
			c.ReferencedTableName = fk.ReferencedTableName
			c.ReferencedColumnName = fk.ReferencedColumns[0].ColumnName
			c.OnDelete = fk.OnDelete
			c.OnUpdate = fk.OnUpdate
		}
	}
	for _, ix := range t.Indexes {
		for i, ic := range ix.Columns {
			c := t.Column(ic.ColumnName)
			if c == nil {
				continue
			}
			c.IsIndexed = true
			if ix.IsUnique && i == 0 && len(ix.Columns) == 1 {
				c.IsUnique = true
			}
		}
	}
}
