package postgres

import (
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/h1labs/labs/internal/infra/storage"
)

// Builder assembles a SELECT from a base statement and optional clauses.
// Clauses are written with ? placeholders and values are always bound, never spliced.
type Builder struct {
	base    string
	where   []string
	args    []any
	orderBy string
	limit   int
	offset  int
}

// Select starts a builder from a base statement such as "SELECT ... FROM labs".
func Select(base string) *Builder {
	return &Builder{base: base}
}

// Where adds a condition joined with AND.
func (b *Builder) Where(cond string, args ...any) *Builder {
	b.where = append(b.where, cond)
	b.args = append(b.args, args...)
	return b
}

// WhereIf adds the condition only when ok is true.
func (b *Builder) WhereIf(ok bool, cond string, args ...any) *Builder {
	if ok {
		return b.Where(cond, args...)
	}
	return b
}

// OrderBy sets the ORDER BY expression. expr must be a constant, never user input.
func (b *Builder) OrderBy(expr string) *Builder {
	b.orderBy = expr
	return b
}

// Page sets LIMIT and OFFSET.
func (b *Builder) Page(p storage.Page) *Builder {
	n := p.Normalize()
	b.limit = n.Size
	b.offset = p.Offset()
	return b
}

// Build returns the statement in postgres ($n) bind syntax and its arguments.
func (b *Builder) Build() (string, []any) {
	var sb strings.Builder
	sb.WriteString(b.base)
	b.writeWhere(&sb)

	args := append([]any{}, b.args...)
	if b.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(b.orderBy)
	}
	if b.limit > 0 {
		sb.WriteString(" LIMIT ?")
		args = append(args, b.limit)
		if b.offset > 0 {
			sb.WriteString(" OFFSET ?")
			args = append(args, b.offset)
		}
	}
	return sqlx.Rebind(sqlx.DOLLAR, sb.String()), args
}

// Count returns a COUNT(*) statement over the same conditions, ignoring order and paging.
func (b *Builder) Count(from string) (string, []any) {
	var sb strings.Builder
	sb.WriteString("SELECT COUNT(*) FROM ")
	sb.WriteString(from)
	b.writeWhere(&sb)
	return sqlx.Rebind(sqlx.DOLLAR, sb.String()), append([]any{}, b.args...)
}

func (b *Builder) writeWhere(sb *strings.Builder) {
	for i, cond := range b.where {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString("(")
		sb.WriteString(cond)
		sb.WriteString(")")
	}
}

// likePattern escapes LIKE metacharacters and wraps s for a contains match.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// placeholderCount is used by tests to check binding stays in step with arguments.
func placeholderCount(query string) int {
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] != '$' {
			continue
		}
		j := i + 1
		for j < len(query) && query[j] >= '0' && query[j] <= '9' {
			j++
		}
		if j > i+1 {
			if v, err := strconv.Atoi(query[i+1 : j]); err == nil && v > n {
				n = v
			}
		}
	}
	return n
}
