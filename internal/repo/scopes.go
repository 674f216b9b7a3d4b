package repo

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// Scope is a reusable query modifier applied through db.Scopes.
type Scope = func(*gorm.DB) *gorm.DB

// paginate limits a query to one page.
func paginate(offset, limit int) Scope {
	return func(q *gorm.DB) *gorm.DB {
		if offset > 0 {
			q = q.Offset(offset)
		}
		if limit > 0 {
			q = q.Limit(limit)
		}
		return q
	}
}

// eq adds "col = v" when v is non-empty.
func eq(col, v string) Scope {
	return func(q *gorm.DB) *gorm.DB {
		if v == "" {
			return q
		}
		return q.Where(col+" = ?", v)
	}
}

// between bounds col by optional inclusive limits.
func between(col string, from, to *time.Time) Scope {
	return func(q *gorm.DB) *gorm.DB {
		if from != nil {
			q = q.Where(col+" >= ?", *from)
		}
		if to != nil {
			q = q.Where(col+" <= ?", *to)
		}
		return q
	}
}

// arrayContains matches rows whose array column holds v. Postgres uses the
// native containment operator; SQLite matches the quoted element inside the
// stored array literal.
func arrayContains(col, v string) Scope {
	return func(q *gorm.DB) *gorm.DB {
		if v == "" {
			return q
		}
		if IsPostgres(q) {
			return q.Where(col+" @> ARRAY[?]::text[]", v)
		}
		return q.Where(col+` LIKE ? ESCAPE '\'`, `%"`+escapeLike(v)+`"%`)
	}
}

// containsFold is a case-insensitive substring pattern for LIKE.
func containsFold(s string) string {
	return "%" + escapeLike(strings.ToLower(s)) + "%"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string { return likeEscaper.Replace(s) }
