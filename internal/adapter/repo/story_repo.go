package repo

import (
	"context"
	"errors"
	"time"

	"github.com/caseras1/ai-childbook/internal/domain"
	"github.com/caseras1/ai-childbook/internal/infra"
	"github.com/caseras1/ai-childbook/internal/sqlinline"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// StoryRepositorySQL implements domain.StoryRepository.
type StoryRepositorySQL struct {
	db infra.SQLExecutor
}

// NewStoryRepository creates a new StoryRepositorySQL.
func NewStoryRepository(db infra.SQLExecutor) *StoryRepositorySQL {
	return &StoryRepositorySQL{db: db}
}

// Save inserts a story row and fills in its ID. A zero CreatedAt is set to now.
func (r *StoryRepositorySQL) Save(ctx context.Context, story *domain.StoryRecord) error {
	if story == nil {
		return errors.New("story record is required")
	}
	if story.CreatedAt.IsZero() {
		story.CreatedAt = time.Now().UTC()
	}
	row := r.db.QueryRow(ctx, sqlinline.QInsertStory,
		story.AccountID,
		story.Title,
		story.Subject,
		story.Path,
		story.ImagesDir,
		story.PageCount,
		story.CreatedAt,
	)
	return row.Scan(&story.ID)
}

// List returns the newest stories first. A nil accountID lists every story.
func (r *StoryRepositorySQL) List(ctx context.Context, accountID *int64, limit int) ([]domain.StoryRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	var (
		rows infra.Rows
		err  error
	)
	if accountID != nil {
		rows, err = r.db.Query(ctx, sqlinline.QListStoriesByAccount, *accountID, limit)
	} else {
		rows, err = r.db.Query(ctx, sqlinline.QListStories, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stories := make([]domain.StoryRecord, 0)
	for rows.Next() {
		s, err := scanStory(rows)
		if err != nil {
			return nil, err
		}
		stories = append(stories, *s)
	}
	return stories, rows.Err()
}

// GetByID fetches a story by identifier.
func (r *StoryRepositorySQL) GetByID(ctx context.Context, id int64) (*domain.StoryRecord, error) {
	s, err := scanStory(r.db.QueryRow(ctx, sqlinline.QSelectStoryByID, id))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return s, nil
}

func scanStory(row infra.Row) (*domain.StoryRecord, error) {
	var s domain.StoryRecord
	if err := row.Scan(&s.ID, &s.AccountID, &s.Title, &s.Subject, &s.Path, &s.ImagesDir, &s.PageCount, &s.CreatedAt); err != nil {
		return nil, err
	}
	return &s, nil
}
