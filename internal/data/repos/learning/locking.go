package learning

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/neurobridge-adaptive/internal/platform/dbctx"
)

// forUpdate adds SELECT ... FOR UPDATE when the read runs inside the caller's
// transaction. SQLite has no row locks and serializes writers already.
func forUpdate(dbc dbctx.Context, q *gorm.DB) *gorm.DB {
	if dbc.Tx == nil || q.Dialector == nil || q.Dialector.Name() == "sqlite" {
		return q
	}
	return q.Clauses(clause.Locking{Strength: "UPDATE"})
}
