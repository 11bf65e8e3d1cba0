// Package uploads keeps an audit trail of which account uploaded which
// book. Records are append-only; duplicate uploads of the same book by the
// same account produce separate records.
package uploads

import (
	"time"

	"github.com/uptrace/bun"
)

type Upload struct {
	bun.BaseModel `bun:"table:uploads,alias:u"`

	ID         string    `bun:",pk,nullzero" json:"id"`
	AccountID  string    `bun:",nullzero" json:"account_id"`
	BookID     string    `bun:",nullzero" json:"book_id"`
	UploadDate time.Time `json:"upload_date"`
}
