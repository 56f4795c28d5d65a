package domain

import "context"

// AccountRepository defines access methods for accounts.
type AccountRepository interface {
	Create(ctx context.Context, email, passwordHash string) (*Account, error)
	GetByEmail(ctx context.Context, email string) (*Account, error)
	GetByID(ctx context.Context, id int64) (*Account, error)
}

// SessionRepository stores issued bearer tokens.
type SessionRepository interface {
	Create(ctx context.Context, token string, accountID int64) (*Session, error)
	GetByToken(ctx context.Context, token string) (*Session, error)
}

// StoryRepository handles persistence for generated document metadata.
type StoryRepository interface {
	Save(ctx context.Context, story *StoryRecord) error
	List(ctx context.Context, accountID *int64, limit int) ([]StoryRecord, error)
	GetByID(ctx context.Context, id int64) (*StoryRecord, error)
}
