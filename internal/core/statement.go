package core

import "strings"

// SelectStatement assembles a SELECT from structured segments: projection,
// FROM, joins, WHERE conjunction, GROUP BY, ORDER BY, and pagination. The
// row-count statement is derived from the same segments, which keeps the
// two statements consistent and avoids splicing text at the first FROM
// token (fragile once a query starts with a CTE).
type SelectStatement struct {
	columns []string
	from    string
	joins   []string
	where   []string
	groupBy string
	orderBy string
	paging  string
}

// NewSelect creates a statement selecting from the given source.
func NewSelect(from string) *SelectStatement {
	return &SelectStatement{from: from}
}

// Column appends projected columns.
func (s *SelectStatement) Column(cols ...string) *SelectStatement {
	s.columns = append(s.columns, cols...)
	return s
}

// Join appends a join clause (full text including the JOIN keyword).
func (s *SelectStatement) Join(join string) *SelectStatement {
	if join != "" {
		s.joins = append(s.joins, join)
	}
	return s
}

// Where appends a boolean fragment to the conjunction.
func (s *SelectStatement) Where(frag string) *SelectStatement {
	if frag != "" {
		s.where = append(s.where, frag)
	}
	return s
}

// GroupBy sets the GROUP BY expression.
func (s *SelectStatement) GroupBy(expr string) *SelectStatement {
	s.groupBy = expr
	return s
}

// OrderBy sets the ORDER BY expression.
func (s *SelectStatement) OrderBy(expr string) *SelectStatement {
	s.orderBy = expr
	return s
}

// Paginate sets the dialect-rendered pagination clause.
func (s *SelectStatement) Paginate(clause string) *SelectStatement {
	s.paging = clause
	return s
}

// body renders FROM + joins + WHERE + GROUP BY, shared by SQL and CountSQL.
func (s *SelectStatement) body(b *strings.Builder) {
	b.WriteString(" FROM ")
	b.WriteString(s.from)
	for _, j := range s.joins {
		b.WriteString(" ")
		b.WriteString(j)
	}
	if len(s.where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(s.where, " AND "))
	}
	if s.groupBy != "" {
		b.WriteString(" GROUP BY ")
		b.WriteString(s.groupBy)
	}
}

// SQL renders the full listing statement.
func (s *SelectStatement) SQL() string {
	var b strings.Builder
	b.WriteString("SELECT ")
	if len(s.columns) == 0 {
		b.WriteString("*")
	} else {
		b.WriteString(strings.Join(s.columns, ", "))
	}
	s.body(&b)
	if s.orderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(s.orderBy)
	}
	b.WriteString(s.paging)
	return b.String()
}

// CountSQL renders the parallel row-count statement: the same FROM/JOIN/
// WHERE segments without ORDER BY or pagination. With a GROUP BY present
// the grouped rows are counted through a derived table, so the total
// reflects group rows rather than raw rows.
func (s *SelectStatement) CountSQL() string {
	var b strings.Builder
	if s.groupBy != "" {
		b.WriteString("SELECT COUNT(1) AS TotalCount FROM (SELECT ")
		b.WriteString(s.groupBy)
		s.body(&b)
		b.WriteString(") AS Grouped")
		return b.String()
	}
	b.WriteString("SELECT COUNT(1) AS TotalCount")
	s.body(&b)
	return b.String()
}
