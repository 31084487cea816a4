package sqldsl

import (
	"fmt"
	"strings"
)

// Sqlf formats SQL with automatic dedenting and blank line removal.
// The SQL shape is visible in the format string.
func Sqlf(format string, args ...any) string {
	s := fmt.Sprintf(format, args...)
	lines := strings.Split(s, "\n")

	// Find minimum indentation (ignoring empty lines)
	minIndent := 1000
	for _, line := range lines {
		trimmed := strings.TrimLeft(line, " \t")
		if trimmed == "" {
			continue
		}
		indent := len(line) - len(trimmed)
		if indent < minIndent {
			minIndent = indent
		}
	}

	// Remove common indent and empty lines
	var result []string
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		if len(line) >= minIndent {
			result = append(result, line[minIndent:])
		} else {
			result = append(result, strings.TrimLeft(line, " \t"))
		}
	}

	return strings.Join(result, "\n")
}

// Optf returns formatted string if condition is true, empty string otherwise.
// Useful for optional SQL clauses.
func Optf(cond bool, format string, args ...any) string {
	if !cond {
		return ""
	}
	return fmt.Sprintf(format, args...)
}

// JoinClause represents a SQL JOIN clause.
type JoinClause struct {
	Type      string // "INNER", "LEFT", "CROSS", etc.
	TableExpr TableExpr
	On        Expr
}

// SQL renders the JOIN clause.
func (j JoinClause) SQL() string {
	tableSQL := j.TableExpr.TableSQL()

	// Determine join keyword - don't add "JOIN" if Type already contains it
	// (e.g., "CROSS JOIN LATERAL" should not become "CROSS JOIN LATERAL JOIN")
	joinKeyword := j.Type + " JOIN"
	if strings.Contains(j.Type, "JOIN") {
		joinKeyword = j.Type
	}

	// CROSS JOIN doesn't have an ON clause
	if j.Type == "CROSS" || strings.HasPrefix(j.Type, "CROSS") || j.On == nil {
		return joinKeyword + " " + tableSQL
	}
	return joinKeyword + " " + tableSQL + " ON " + j.On.SQL()
}

// SelectStmt represents a SELECT query.
type SelectStmt struct {
	Distinct    bool
	ColumnExprs []Expr
	FromExpr    TableExpr
	Joins       []JoinClause
	Where       Expr
	Limit       int
}

// SQL renders the SELECT statement.
func (s SelectStmt) SQL() string {
	return Sqlf(`
		SELECT %s%s
		%s
		%s
		%s
		%s`,
		Optf(s.Distinct, "DISTINCT "),
		s.columnsSQL(),
		s.fromSQL(),
		s.joinsSQL(),
		s.whereSQL(),
		s.limitSQL(),
	)
}

func (s SelectStmt) columnsSQL() string {
	if len(s.ColumnExprs) == 0 {
		return "1"
	}
	parts := make([]string, len(s.ColumnExprs))
	for i, e := range s.ColumnExprs {
		parts[i] = e.SQL()
	}
	return strings.Join(parts, ", ")
}

func (s SelectStmt) fromSQL() string {
	if s.FromExpr == nil {
		return ""
	}
	return "FROM " + s.FromExpr.TableSQL()
}

func (s SelectStmt) joinsSQL() string {
	if len(s.Joins) == 0 {
		return ""
	}
	var parts []string
	for _, j := range s.Joins {
		parts = append(parts, j.SQL())
	}
	return strings.Join(parts, "\n")
}

func (s SelectStmt) whereSQL() string {
	if s.Where == nil {
		return ""
	}
	return "WHERE " + s.Where.SQL()
}

func (s SelectStmt) limitSQL() string {
	if s.Limit <= 0 {
		return ""
	}
	return fmt.Sprintf("LIMIT %d", s.Limit)
}

// =============================================================================
// Query Blocks (for UNION queries)
// =============================================================================

// SQLer is an interface for types that can render SQL.
// Both SelectStmt and Raw implement this interface.
type SQLer interface {
	SQL() string
}

// QueryBlock represents a query with optional comments.
// Used to build UNION queries with descriptive comments for each branch.
type QueryBlock struct {
	Comments []string // Full comment lines, e.g. "-- branch: Student"
	Query    SQLer    // The query as typed DSL (SelectStmt, Raw, etc.)
}

// RenderUnionBlocks renders query blocks joined with UNION ALL.
// Each block is indented and comments are rendered as SQL comments.
func RenderUnionBlocks(blocks []QueryBlock) string {
	if len(blocks) == 0 {
		return ""
	}
	parts := make([]string, len(blocks))
	for i, block := range blocks {
		parts[i] = renderSingleBlock(block)
	}
	return strings.Join(parts, "\n    UNION ALL\n")
}

// renderSingleBlock renders a single query block with comments and indentation.
func renderSingleBlock(block QueryBlock) string {
	var lines []string
	for _, comment := range block.Comments {
		lines = append(lines, "    "+comment)
	}
	lines = append(lines, IndentLines(block.Query.SQL(), "    "))
	return strings.Join(lines, "\n")
}

// IndentLines adds the given indent prefix to each line of input.
func IndentLines(input, indent string) string {
	if input == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSpace(input), "\n")
	for i, line := range lines {
		lines[i] = indent + line
	}
	return strings.Join(lines, "\n")
}

// =============================================================================
// DDL Statements (Schema Generator)
// =============================================================================

// ColumnDef represents a single column in a CREATE TABLE statement.
type ColumnDef struct {
	Name       string
	Type       string
	NotNull    bool
	PrimaryKey bool
}

// SQL renders the column definition.
func (c ColumnDef) SQL() string {
	s := c.Name + " " + c.Type
	if c.PrimaryKey {
		s += " PRIMARY KEY"
	} else if c.NotNull {
		s += " NOT NULL"
	}
	return s
}

// ForeignKeyDef represents a FOREIGN KEY table constraint.
type ForeignKeyDef struct {
	Columns    []string
	RefTable   string
	RefColumns []string
}

// SQL renders the foreign key constraint.
func (f ForeignKeyDef) SQL() string {
	return "FOREIGN KEY (" + strings.Join(f.Columns, ", ") + ") REFERENCES " +
		f.RefTable + " (" + strings.Join(f.RefColumns, ", ") + ")"
}

// CreateTableStmt represents a CREATE TABLE statement for a single Set.
// Column order is preserved as given; no implicit reordering is performed.
type CreateTableStmt struct {
	Name        string
	IfNotExists bool
	Columns     []ColumnDef
	PrimaryKey  []string // composite primary key, used when no single column is marked PrimaryKey
	ForeignKeys []ForeignKeyDef
}

// SQL renders the CREATE TABLE statement.
func (c CreateTableStmt) SQL() string {
	var items []string
	for _, col := range c.Columns {
		items = append(items, col.SQL())
	}
	if len(c.PrimaryKey) > 0 {
		items = append(items, "PRIMARY KEY ("+strings.Join(c.PrimaryKey, ", ")+")")
	}
	for _, fk := range c.ForeignKeys {
		items = append(items, fk.SQL())
	}

	ifNotExists := ""
	if c.IfNotExists {
		ifNotExists = "IF NOT EXISTS "
	}
	return fmt.Sprintf("CREATE TABLE %s%s (\n    %s\n)", ifNotExists, c.Name,
		strings.Join(items, ",\n    "))
}

// =============================================================================
// DML Statements (Migration Planner)
// =============================================================================

// InsertStmt represents an INSERT INTO ... SELECT statement used to populate
// a target Set's table from a source query produced by the query translator.
type InsertStmt struct {
	Table   string
	Columns []string
	Source  SQLer // typically a Raw-rendered UNION ALL of SelectStmt blocks
}

// SQL renders the INSERT statement.
func (i InsertStmt) SQL() string {
	return fmt.Sprintf("INSERT INTO %s (%s)\n%s", i.Table, strings.Join(i.Columns, ", "),
		i.Source.SQL())
}

// AnalyzeStmt represents an ANALYZE statement used to refresh planner statistics
// after a migration has populated a table.
type AnalyzeStmt struct {
	Table string
}

// SQL renders the ANALYZE statement.
func (a AnalyzeStmt) SQL() string {
	return "ANALYZE " + a.Table
}
