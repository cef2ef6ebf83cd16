package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"time"

	"farmstand/internal/domain"
	tokenrepo "farmstand/internal/repository/token"
)

type tokenStore interface {
	Create(ctx context.Context, token tokenrepo.Token) error
	Get(ctx context.Context, token string) (*tokenrepo.Token, error)
	Delete(ctx context.Context, token string) error
}

type tokenManager struct {
	repo tokenStore
	now  func() time.Time
}

func newTokenManager(repo tokenStore) *tokenManager {
	return &tokenManager{repo: repo, now: time.Now}
}

func (m *tokenManager) Issue(ctx context.Context, buyerID string, ttl time.Duration) (string, time.Time, error) {
	expiresAt := m.now().Add(ttl)
	for i := 0; i < 5; i++ {
		token, err := randomToken()
		if err != nil {
			return "", time.Time{}, err
		}
		err = m.repo.Create(ctx, tokenrepo.Token{
			Token:     token,
			BuyerID:   buyerID,
			Kind:      tokenrepo.KindSession,
			ExpiresAt: expiresAt,
		})
		if err == nil {
			return token, expiresAt, nil
		}
		if errors.Is(err, domain.ErrAlreadyExists) {
			continue
		}
		return "", time.Time{}, err
	}
	return "", time.Time{}, errors.New("token collision")
}

// Validate returns the buyer a live session token belongs to. Expired tokens are removed.
func (m *tokenManager) Validate(ctx context.Context, token string) (string, bool) {
	meta, err := m.repo.Get(ctx, token)
	if err != nil {
		return "", false
	}
	if meta.Kind != tokenrepo.KindSession {
		return "", false
	}
	if m.now().After(meta.ExpiresAt) {
		_ = m.repo.Delete(ctx, token)
		return "", false
	}
	return meta.BuyerID, true
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
