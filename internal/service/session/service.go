package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"farmstand/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

type buyerReader interface {
	GetByID(ctx context.Context, id string) (*domain.Buyer, error)
}

// Service resolves bearer tokens into the read-only session passed to checkout operations.
type Service struct {
	tokens *tokenManager
	buyers buyerReader
	ttl    time.Duration
}

func New(tokens tokenStore, buyers buyerReader, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 30 * 24 * time.Hour
	}
	return &Service{tokens: newTokenManager(tokens), buyers: buyers, ttl: ttl}
}

func (s *Service) Issue(ctx context.Context, buyerID string) (string, time.Time, error) {
	return s.tokens.Issue(ctx, buyerID, s.ttl)
}

func (s *Service) LookupByToken(ctx context.Context, token string) (domain.Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domain.Session{}, ErrInvalidToken
	}
	buyerID, ok := s.tokens.Validate(ctx, token)
	if !ok {
		return domain.Session{}, ErrInvalidToken
	}
	b, err := s.buyers.GetByID(ctx, buyerID)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Session{}, ErrInvalidToken
	}
	if err != nil {
		return domain.Session{}, err
	}
	return domain.Session{BuyerID: b.ID, Email: b.Email, DisplayName: b.DisplayName}, nil
}
