package repo

import (
	"context"
	"strings"
	"time"

	"github.com/caseras1/ai-childbook/internal/domain"
	"github.com/caseras1/ai-childbook/internal/infra"
	"github.com/caseras1/ai-childbook/internal/sqlinline"
)

// AccountRepositorySQL implements domain.AccountRepository on the SQL runner.
type AccountRepositorySQL struct {
	db  infra.SQLExecutor
	now func() time.Time
}

// NewAccountRepository creates a new AccountRepositorySQL.
func NewAccountRepository(db infra.SQLExecutor) *AccountRepositorySQL {
	return &AccountRepositorySQL{db: db, now: time.Now}
}

// Create inserts an account. Emails are stored lower-cased; a second account
// with the same email yields domain.ErrDuplicate.
func (r *AccountRepositorySQL) Create(ctx context.Context, email, passwordHash string) (*domain.Account, error) {
	row := r.db.QueryRow(ctx, sqlinline.QInsertAccount, normalizeEmail(email), passwordHash, r.now().UTC())
	acc, err := scanAccount(row)
	if err != nil {
		if infra.IsUniqueViolation(err) {
			return nil, domain.ErrDuplicate
		}
		return nil, err
	}
	return acc, nil
}

// GetByEmail fetches an account by email.
func (r *AccountRepositorySQL) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return scanAccount(r.db.QueryRow(ctx, sqlinline.QSelectAccountByEmail, normalizeEmail(email)))
}

// GetByID fetches an account by identifier.
func (r *AccountRepositorySQL) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	return scanAccount(r.db.QueryRow(ctx, sqlinline.QSelectAccountByID, id))
}

func scanAccount(row infra.Row) (*domain.Account, error) {
	var a domain.Account
	if err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SessionRepositorySQL implements domain.SessionRepository.
type SessionRepositorySQL struct {
	db  infra.SQLExecutor
	now func() time.Time
}

// NewSessionRepository creates a new SessionRepositorySQL.
func NewSessionRepository(db infra.SQLExecutor) *SessionRepositorySQL {
	return &SessionRepositorySQL{db: db, now: time.Now}
}

// Create stores a freshly issued token for accountID.
func (r *SessionRepositorySQL) Create(ctx context.Context, token string, accountID int64) (*domain.Session, error) {
	created := r.now().UTC()
	if _, err := r.db.Exec(ctx, sqlinline.QInsertSession, token, accountID, created); err != nil {
		if infra.IsUniqueViolation(err) {
			return nil, domain.ErrDuplicate
		}
		return nil, err
	}
	return &domain.Session{Token: token, AccountID: accountID, CreatedAt: created}, nil
}

// GetByToken resolves a bearer token.
func (r *SessionRepositorySQL) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	var s domain.Session
	row := r.db.QueryRow(ctx, sqlinline.QSelectSessionByToken, token)
	if err := row.Scan(&s.Token, &s.AccountID, &s.CreatedAt); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}
