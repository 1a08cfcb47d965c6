package db

import (
	"database/sql"
	"strings"

	"github.com/tordrt/dmschema/internal/naming"
)

type tokenKind int

const (
	tokWord tokenKind = iota
	tokQuoted
	tokString
	tokNumber
	tokPunct
)

// sqliteToken is one lexical token of a CREATE TABLE statement. start and end
// are byte offsets into the statement so expressions can be sliced verbatim.
type sqliteToken struct {
	kind       tokenKind
	value      string
	start, end int
}

func (t sqliteToken) is(word string) bool {
	return t.kind == tokWord && strings.EqualFold(t.value, word)
}

func (t sqliteToken) punct(p string) bool {
	return t.kind == tokPunct && t.value == p
}

func isWordByte(c byte) bool {
	return c == '_' || c == '$' || c >= 0x80 ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// tokenizeSQLite splits a statement into tokens, dropping whitespace and comments.
func tokenizeSQLite(s string) []sqliteToken {
	var toks []sqliteToken
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f':
			i++
		case c == '-' && i+1 < len(s) && s[i+1] == '-':
			for i < len(s) && s[i] != '\n' {
				i++
			}
		case c == '/' && i+1 < len(s) && s[i+1] == '*':
			end := strings.Index(s[i+2:], "*/")
			if end < 0 {
				i = len(s)
			} else {
				i += end + 4
			}
		case c == '\'' || c == '"' || c == '`' || c == '[':
			closing := c
			if c == '[' {
				closing = ']'
			}
			j, value := scanQuoted(s, i+1, closing)
			kind := tokQuoted
			if c == '\'' {
				kind = tokString
			}
			toks = append(toks, sqliteToken{kind: kind, value: value, start: i, end: j})
			i = j
		case c >= '0' && c <= '9', c == '.' && i+1 < len(s) && s[i+1] >= '0' && s[i+1] <= '9':
			j := i + 1
			for j < len(s) && (isWordByte(s[j]) || s[j] == '.') {
				j++
			}
			toks = append(toks, sqliteToken{kind: tokNumber, value: s[i:j], start: i, end: j})
			i = j
		case isWordByte(c):
			j := i + 1
			for j < len(s) && isWordByte(s[j]) {
				j++
			}
			toks = append(toks, sqliteToken{kind: tokWord, value: s[i:j], start: i, end: j})
			i = j
		default:
			toks = append(toks, sqliteToken{kind: tokPunct, value: string(c), start: i, end: i + 1})
			i++
		}
	}
	return toks
}

// scanQuoted reads up to closing, treating a doubled closing character as an
// escaped one. It returns the offset after the closing character.
func scanQuoted(s string, i int, closing byte) (int, string) {
	var b strings.Builder
	for i < len(s) {
		if s[i] == closing {
			if closing != ']' && i+1 < len(s) && s[i+1] == closing {
				b.WriteByte(closing)
				i += 2
				continue
			}
			return i + 1, b.String()
		}
		b.WriteByte(s[i])
		i++
	}
	return i, b.String()
}

// tokenCursor walks the tokens of one column or table constraint definition.
type tokenCursor struct {
	toks []sqliteToken
	pos  int
}

func (c *tokenCursor) done() bool {
	return c.pos >= len(c.toks)
}

func (c *tokenCursor) peek() sqliteToken {
	if c.done() {
		return sqliteToken{kind: tokPunct}
	}
	return c.toks[c.pos]
}

func (c *tokenCursor) next() sqliteToken {
	t := c.peek()
	if !c.done() {
		c.pos++
	}
	return t
}

// keyword consumes the words when they come next.
func (c *tokenCursor) keyword(words ...string) bool {
	if c.pos+len(words) > len(c.toks) {
		return false
	}
	for i, w := range words {
		if !c.toks[c.pos+i].is(w) {
			return false
		}
	}
	c.pos += len(words)
	return true
}

// group consumes a parenthesized group and returns the tokens inside it.
func (c *tokenCursor) group() ([]sqliteToken, bool) {
	if !c.peek().punct("(") {
		return nil, false
	}
	start := c.pos + 1
	depth := 0
	for !c.done() {
		t := c.next()
		switch {
		case t.punct("("):
			depth++
		case t.punct(")"):
			depth--
			if depth == 0 {
				return c.toks[start : c.pos-1], true
			}
		}
	}
	return c.toks[start:], true
}

// sqliteTableInfo is what the stored CREATE TABLE text adds to the PRAGMAs.
type sqliteTableInfo struct {
	constraints   []ConstraintRow
	autoIncrement map[string]bool
}

type sqliteParser struct {
	sql   string
	table string
	info  sqliteTableInfo
}

var tableConstraintStarts = map[string]bool{"CONSTRAINT": true, "PRIMARY": true, "UNIQUE": true, "CHECK": true, "FOREIGN": true}

var columnConstraintStarts = map[string]bool{
	"CONSTRAINT": true, "PRIMARY": true, "NOT": true, "NULL": true, "UNIQUE": true, "CHECK": true,
	"DEFAULT": true, "COLLATE": true, "REFERENCES": true, "GENERATED": true, "AS": true,
}

// parseSQLiteCreateTable recovers the constraints of a table from its stored
// CREATE TABLE statement. Unnamed constraints get the generated names the
// engine would have given them.
func parseSQLiteCreateTable(table, stmt string) sqliteTableInfo {
	p := &sqliteParser{sql: stmt, table: table, info: sqliteTableInfo{autoIncrement: make(map[string]bool)}}
	toks := tokenizeSQLite(stmt)
	open := -1
	for i, t := range toks {
		if t.punct("(") {
			open = i
			break
		}
	}
	if open < 0 {
		return p.info
	}
	for _, def := range splitDefinitions(toks[open+1:]) {
		if len(def) == 0 {
			continue
		}
		c := &tokenCursor{toks: def}
		if def[0].kind == tokWord && tableConstraintStarts[strings.ToUpper(def[0].value)] {
			p.tableConstraint(c)
		} else {
			p.column(c)
		}
	}
	return p.info
}

// splitDefinitions splits the table body at top level commas, stopping at the
// parenthesis that closes it.
func splitDefinitions(toks []sqliteToken) [][]sqliteToken {
	var defs [][]sqliteToken
	depth, start := 0, 0
	for i, t := range toks {
		switch {
		case t.punct("("):
			depth++
		case t.punct(")"):
			if depth == 0 {
				return append(defs, toks[start:i])
			}
			depth--
		case t.punct(",") && depth == 0:
			defs = append(defs, toks[start:i])
			start = i + 1
		}
	}
	return append(defs, toks[start:])
}

func (p *sqliteParser) text(toks []sqliteToken) string {
	if len(toks) == 0 {
		return ""
	}
	return strings.TrimSpace(p.sql[toks[0].start:toks[len(toks)-1].end])
}

func (p *sqliteParser) add(r ConstraintRow) {
	r.TableName = p.table
	p.info.constraints = append(p.info.constraints, r)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func orName(given, generated string) string {
	if given != "" {
		return given
	}
	return generated
}

func (p *sqliteParser) column(c *tokenCursor) {
	col := c.next().value
	for !c.done() {
		t := c.peek()
		if t.kind == tokWord && columnConstraintStarts[strings.ToUpper(t.value)] {
			break
		}
		if _, ok := c.group(); ok {
			continue
		}
		c.next()
	}

	name := ""
	for !c.done() {
		switch {
		case c.keyword("CONSTRAINT"):
			name = c.next().value
			continue
		case c.keyword("PRIMARY", "KEY"):
			desc := direction(c)
			conflictClause(c)
			if c.keyword("AUTOINCREMENT") {
				p.info.autoIncrement[strings.ToLower(col)] = true
			}
			p.add(ConstraintRow{
				ConstraintName: orName(name, naming.PrimaryKeyName(p.table)),
				ConstraintType: constraintPrimaryKey,
				ColumnName:     nullString(col),
				Position:       1,
				IsDescending:   desc,
			})
		case c.keyword("NOT", "NULL"), c.keyword("NULL"):
			conflictClause(c)
		case c.keyword("UNIQUE"):
			conflictClause(c)
			p.add(ConstraintRow{
				ConstraintName: orName(name, naming.UniqueName(p.table, col)),
				ConstraintType: constraintUnique,
				ColumnName:     nullString(col),
				Position:       1,
			})
		case c.keyword("CHECK"):
			inner, _ := c.group()
			p.add(ConstraintRow{
				ConstraintName: orName(name, naming.CheckName(p.table, col)),
				ConstraintType: constraintCheck,
				ColumnName:     nullString(col),
				Definition:     nullString(p.text(inner)),
			})
		case c.keyword("DEFAULT"):
			p.add(ConstraintRow{
				ConstraintName: orName(name, naming.DefaultName(p.table, col)),
				ConstraintType: constraintDefault,
				ColumnName:     nullString(col),
				Definition:     nullString(p.defaultExpression(c)),
			})
		case c.keyword("COLLATE"):
			c.next()
		case c.keyword("REFERENCES"):
			p.references(c, name, []string{col})
		case c.keyword("GENERATED", "ALWAYS", "AS"), c.keyword("AS"):
			c.group()
			_ = c.keyword("STORED") || c.keyword("VIRTUAL")
		default:
			c.next()
		}
		name = ""
	}
}

// defaultExpression reads a literal, a signed number or a parenthesized expression.
func (p *sqliteParser) defaultExpression(c *tokenCursor) string {
	start := c.pos
	if _, ok := c.group(); ok {
		return p.text(c.toks[start:c.pos])
	}
	if t := c.peek(); t.punct("-") || t.punct("+") {
		c.next()
	}
	c.next()
	return p.text(c.toks[start:c.pos])
}

func (p *sqliteParser) tableConstraint(c *tokenCursor) {
	name := ""
	if c.keyword("CONSTRAINT") {
		name = c.next().value
	}
	switch {
	case c.keyword("PRIMARY", "KEY"):
		inner, _ := c.group()
		for i, col := range indexedColumns(inner) {
			p.add(ConstraintRow{
				ConstraintName: orName(name, naming.PrimaryKeyName(p.table)),
				ConstraintType: constraintPrimaryKey,
				ColumnName:     nullString(col.name),
				Position:       i + 1,
				IsDescending:   col.desc,
			})
		}
	case c.keyword("UNIQUE"):
		inner, _ := c.group()
		cols := indexedColumns(inner)
		names := make([]string, len(cols))
		for i, col := range cols {
			names[i] = col.name
		}
		for i, col := range cols {
			p.add(ConstraintRow{
				ConstraintName: orName(name, naming.UniqueName(p.table, names...)),
				ConstraintType: constraintUnique,
				ColumnName:     nullString(col.name),
				Position:       i + 1,
				IsDescending:   col.desc,
			})
		}
	case c.keyword("CHECK"):
		inner, _ := c.group()
		p.add(ConstraintRow{
			ConstraintName: orName(name, naming.CheckName(p.table, "")),
			ConstraintType: constraintCheck,
			Definition:     nullString(p.text(inner)),
		})
	case c.keyword("FOREIGN", "KEY"):
		inner, _ := c.group()
		var cols []string
		for _, col := range indexedColumns(inner) {
			cols = append(cols, col.name)
		}
		if c.keyword("REFERENCES") {
			p.references(c, name, cols)
		}
	}
}

// references reads "table (cols) actions" after REFERENCES.
func (p *sqliteParser) references(c *tokenCursor, name string, cols []string) {
	refTable := c.next().value
	var refCols []string
	if inner, ok := c.group(); ok {
		for _, col := range indexedColumns(inner) {
			refCols = append(refCols, col.name)
		}
	}
	onDelete, onUpdate := "NO ACTION", "NO ACTION"
actions:
	for !c.done() {
		switch {
		case c.keyword("ON", "DELETE"):
			onDelete = referentialAction(c)
		case c.keyword("ON", "UPDATE"):
			onUpdate = referentialAction(c)
		case c.keyword("MATCH"):
			c.next()
		case c.keyword("NOT", "DEFERRABLE"), c.keyword("DEFERRABLE"):
			_ = c.keyword("INITIALLY", "DEFERRED") || c.keyword("INITIALLY", "IMMEDIATE")
		default:
			// The next column constraint starts here.
			break actions
		}
	}
	constraintName := orName(name, naming.ForeignKeyName(p.table, cols, refTable, refCols))
	for i, col := range cols {
		refCol := ""
		if i < len(refCols) {
			refCol = refCols[i]
		}
		p.add(ConstraintRow{
			ConstraintName:       constraintName,
			ConstraintType:       constraintForeignKey,
			ColumnName:           nullString(col),
			Position:             i + 1,
			ReferencedTableName:  nullString(refTable),
			ReferencedColumnName: nullString(refCol),
			DeleteRule:           nullString(onDelete),
			UpdateRule:           nullString(onUpdate),
		})
	}
}

func referentialAction(c *tokenCursor) string {
	switch {
	case c.keyword("SET", "NULL"):
		return "SET NULL"
	case c.keyword("SET", "DEFAULT"):
		return "SET DEFAULT"
	case c.keyword("CASCADE"):
		return "CASCADE"
	case c.keyword("RESTRICT"):
		return "RESTRICT"
	case c.keyword("NO", "ACTION"):
		return "NO ACTION"
	}
	c.next()
	return "NO ACTION"
}

func direction(c *tokenCursor) bool {
	if c.keyword("DESC") {
		return true
	}
	c.keyword("ASC")
	return false
}

// conflictClause skips "ON CONFLICT resolution".
func conflictClause(c *tokenCursor) {
	if c.keyword("ON", "CONFLICT") {
		c.next()
	}
}

type indexedColumn struct {
	name string
	desc bool
}

// indexedColumns reads "col [COLLATE x] [ASC|DESC], ..." lists.
func indexedColumns(toks []sqliteToken) []indexedColumn {
	var cols []indexedColumn
	for _, part := range splitDefinitions(toks) {
		if len(part) == 0 {
			continue
		}
		c := &tokenCursor{toks: part}
		col := indexedColumn{name: c.next().value}
		for !c.done() {
			if c.keyword("DESC") {
				col.desc = true
				continue
			}
			c.next()
		}
		cols = append(cols, col)
	}
	return cols
}
