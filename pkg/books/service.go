package books

import (
	"context"
	"database/sql"
	"time"

	"github.com/bookabooks/booka/pkg/errcodes"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{
		db: db,
	}
}

// CreateBook inserts the book if no existing row already claims its alias,
// file hash, or content hash. The unique indexes make the insert atomic;
// a zero rows-affected result means a concurrent or earlier ingestion won.
func (s *Service) CreateBook(ctx context.Context, book *Book) error {
	if book.ID == "" {
		id, err := uuid.NewRandom()
		if err != nil {
			return errors.WithStack(err)
		}
		book.ID = id.String()
	}
	now := time.Now()
	book.CreatedAt = now
	book.UpdatedAt = now
	if book.Tags == nil {
		book.Tags = StringList{}
	}

	res, err := s.db.
		NewInsert().
		Model(book).
		On("CONFLICT DO NOTHING").
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return errors.WithStack(err)
	}
	if affected == 0 {
		return errcodes.Conflict("Book")
	}

	return nil
}

type RetrieveBookOptions struct {
	ID          *string
	Alias       *string
	FileHash    *string
	ContentHash *string
}

func (s *Service) RetrieveBook(ctx context.Context, opts RetrieveBookOptions) (*Book, error) {
	book := &Book{}

	q := s.db.
		NewSelect().
		Model(book)

	if opts.ID != nil {
		q = q.Where("b.id = ?", *opts.ID)
	}
	if opts.Alias != nil {
		q = q.Where("b.alias = ?", *opts.Alias)
	}
	if opts.FileHash != nil {
		q = q.Where("b.file_hash = ?", *opts.FileHash)
	}
	if opts.ContentHash != nil {
		q = q.Where("b.content_hash = ?", *opts.ContentHash)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Book")
		}
		return nil, errors.WithStack(err)
	}

	return book, nil
}

type UpdateBookOptions struct {
	Columns []string
}

func (s *Service) UpdateBook(ctx context.Context, book *Book, opts UpdateBookOptions) error {
	book.UpdatedAt = time.Now()

	columns := append(opts.Columns, "updated_at")

	_, err := s.db.
		NewUpdate().
		Model(book).
		Column(columns...).
		WherePK().
		Exec(ctx)
	return errors.WithStack(err)
}

type ListBooksOptions struct {
	Limit  int
	Offset int
	Query  *string
}

func (s *Service) listBooksQuery(opts ListBooksOptions) func(q *bun.SelectQuery) *bun.SelectQuery {
	return func(q *bun.SelectQuery) *bun.SelectQuery {
		if opts.Query != nil && *opts.Query != "" {
			pattern := "%" + *opts.Query + "%"
			q = q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.
					Where("b.title LIKE ?", pattern).
					WhereOr("b.author LIKE ?", pattern)
			})
		}
		return q
	}
}

func (s *Service) ListBooks(ctx context.Context, opts ListBooksOptions) ([]*Book, error) {
	books := []*Book{}

	q := s.db.
		NewSelect().
		Model(&books).
		Apply(s.listBooksQuery(opts)).
		Order("b.title ASC")

	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}

	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return books, nil
}

func (s *Service) CountBooks(ctx context.Context, opts ListBooksOptions) (int, error) {
	count, err := s.db.
		NewSelect().
		Model((*Book)(nil)).
		Apply(s.listBooksQuery(opts)).
		Count(ctx)
	return count, errors.WithStack(err)
}

// PopularBooks returns books ordered by how often they have been uploaded,
// most uploaded first.
func (s *Service) PopularBooks(ctx context.Context, limit int) ([]*Book, error) {
	books := []*Book{}

	err := s.db.
		NewSelect().
		Model(&books).
		ColumnExpr("b.*").
		Join("LEFT JOIN uploads AS u ON u.book_id = b.id").
		GroupExpr("b.id").
		OrderExpr("COUNT(u.id) DESC, b.created_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return books, nil
}
