package uploads

import (
	"context"
	"time"

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

func (s *Service) AddUpload(ctx context.Context, accountID, bookID string) (*Upload, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	upload := &Upload{
		ID:         id.String(),
		AccountID:  accountID,
		BookID:     bookID,
		UploadDate: time.Now(),
	}

	_, err = s.db.
		NewInsert().
		Model(upload).
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return upload, nil
}

func (s *Service) ListAccountUploads(ctx context.Context, accountID string) ([]*Upload, error) {
	list := []*Upload{}

	err := s.db.
		NewSelect().
		Model(&list).
		Where("u.account_id = ?", accountID).
		Order("u.upload_date DESC").
		Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return list, nil
}

func (s *Service) CountByBook(ctx context.Context, bookID string) (int, error) {
	count, err := s.db.
		NewSelect().
		Model((*Upload)(nil)).
		Where("u.book_id = ?", bookID).
		Count(ctx)
	return count, errors.WithStack(err)
}
