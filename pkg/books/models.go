package books

import (
	"database/sql/driver"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/uptrace/bun"
)

const (
	SourceUpload = "upload"

	// Placeholder alias/card title for books whose metadata carries no title.
	NoTitle = "no-title"
)

// StringList stores a []string column as JSON text.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	b, err := json.Marshal(l)
	return string(b), errors.WithStack(err)
}

func (l *StringList) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		return errors.WithStack(json.Unmarshal([]byte(v), l))
	case []byte:
		return errors.WithStack(json.Unmarshal(v, l))
	default:
		return errors.Errorf("unsupported tags column type %T", src)
	}
}

// Book is the persisted metadata record for one ingested book. The book
// content itself lives in the asset store; JSONBucket/JSONAssetID always
// point at a retrievable JSON representation, while the original-file
// reference is optional because its upload may fail without failing
// ingestion.
type Book struct {
	bun.BaseModel `bun:"table:books,alias:b"`

	ID              string     `bun:",pk,nullzero" json:"id"`
	Alias           string     `bun:",nullzero" json:"alias"`
	Title           *string    `json:"title"`
	Author          *string    `json:"author"`
	License         string     `bun:",nullzero" json:"license"`
	CoverURL        *string    `json:"cover_url"`
	SmallCoverURL   *string    `json:"small_cover_url"`
	JSONBucket      string     `bun:",nullzero" json:"json_bucket"`
	JSONAssetID     string     `bun:",nullzero" json:"json_asset_id"`
	OriginalBucket  *string    `json:"original_bucket"`
	OriginalAssetID *string    `json:"original_asset_id"`
	FileHash        string     `bun:",nullzero" json:"-"`
	ContentHash     string     `bun:",nullzero" json:"-"`
	Tags            StringList `bun:",nullzero" json:"tags"`
	TextLength      int        `json:"text_length"`
	Private         bool       `json:"private"`
	Source          string     `bun:",nullzero" json:"source"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Card is the lightweight projection of a book used in list and search
// views.
type Card struct {
	ID            string   `json:"id"`
	Alias         string   `json:"alias"`
	Title         string   `json:"title"`
	Author        *string  `json:"author,omitempty"`
	CoverURL      *string  `json:"coverUrl,omitempty"`
	SmallCoverURL *string  `json:"smallCoverUrl,omitempty"`
	Tags          []string `json:"tags"`
	Length        int      `json:"length"`
}

func (b *Book) Card() *Card {
	title := NoTitle
	if b.Title != nil && *b.Title != "" {
		title = *b.Title
	}
	tags := []string(b.Tags)
	if tags == nil {
		tags = []string{}
	}
	return &Card{
		ID:            b.ID,
		Alias:         b.Alias,
		Title:         title,
		Author:        b.Author,
		CoverURL:      b.CoverURL,
		SmallCoverURL: b.SmallCoverURL,
		Tags:          tags,
		Length:        b.TextLength,
	}
}
