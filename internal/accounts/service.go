package accounts

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/caseras1/ai-childbook/internal/domain"
)

const (
	tokenBytes        = 24
	minPasswordLength = 8
)

// ErrInvalidCredentials is returned by Authenticate for an unknown email or a
// wrong password alike.
var ErrInvalidCredentials = errors.New("invalid email or password")

// Service owns accounts, bearer sessions and the story history.
type Service struct {
	accounts domain.AccountRepository
	sessions domain.SessionRepository
	stories  domain.StoryRepository
	cost     int
}

// NewService wires the repositories. cost <= 0 uses bcrypt.DefaultCost.
func NewService(accounts domain.AccountRepository, sessions domain.SessionRepository, stories domain.StoryRepository, cost int) *Service {
	if cost <= 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{accounts: accounts, sessions: sessions, stories: stories, cost: cost}
}

// CreateAccount registers a new email with a bcrypt password digest.
func (s *Service) CreateAccount(ctx context.Context, email, password string) (*domain.Account, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return nil, &domain.InvalidRequestError{Field: "email", Reason: "is not a valid address"}
	}
	if len(password) < minPasswordLength {
		return nil, &domain.InvalidRequestError{Field: "password", Reason: fmt.Sprintf("must be at least %d characters", minPasswordLength)}
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return s.accounts.Create(ctx, email, string(hash))
}

// Authenticate checks a password against the stored digest.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*domain.Account, error) {
	acc, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return acc, nil
}

// CreateSession issues a new opaque bearer token for the account.
func (s *Service) CreateSession(ctx context.Context, accountID int64) (*domain.Session, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return s.sessions.Create(ctx, hex.EncodeToString(buf), accountID)
}

// AccountByToken resolves a bearer token. Unknown tokens yield domain.ErrUnauthorized.
func (s *Service) AccountByToken(ctx context.Context, token string) (*domain.Account, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, domain.ErrUnauthorized
	}
	sess, err := s.sessions.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	acc, err := s.accounts.GetByID(ctx, sess.AccountID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, err
	}
	return acc, nil
}

// SaveStory records one generated document.
func (s *Service) SaveStory(ctx context.Context, rec *domain.StoryRecord) error {
	return s.stories.Save(ctx, rec)
}

// ListStories returns the newest stories, scoped to accountID when set.
func (s *Service) ListStories(ctx context.Context, accountID *int64, limit int) ([]domain.StoryRecord, error) {
	return s.stories.List(ctx, accountID, limit)
}

// StoryByID fetches one story row.
func (s *Service) StoryByID(ctx context.Context, id int64) (*domain.StoryRecord, error) {
	return s.stories.GetByID(ctx, id)
}
