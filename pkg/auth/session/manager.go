package session

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/serviplace/serviplace-backend/pkg/config"
	redisclient "github.com/serviplace/serviplace-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrRefreshTokenReused signals a replay of an already-rotated refresh
	// token; callers must treat the whole token family as compromised.
	ErrRefreshTokenReused = errors.New("refresh token reused")
)

type sessionStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type sessionKeyer interface {
	AccessSessionKey(accessID string) string
	FamilySessionKey(familyID string) string
	UsedSessionKey(accessID string) string
}

// Manager handles refresh token creation, storage, rotation, and family
// revocation on replay.
type Manager struct {
	store sessionStore
	keyer sessionKeyer
	ttl   time.Duration
}

// AccessSessionChecker exposes the read-only surface needed by middleware.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// NewManager constructs a session manager backed by Redis.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	ttl := cfg.RefreshTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("refresh token ttl must be positive")
	}
	accessTTL := time.Duration(cfg.ExpirationMinutes) * time.Minute
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl (%s) must exceed access token ttl (%s)", ttl, accessTTL)
	}

	return &Manager{
		store: client,
		keyer: client,
		ttl:   ttl,
	}, nil
}

// Generate creates a refresh token for a brand-new session family and stores
// both the session and its family pointer in Redis.
func (m *Manager) Generate(ctx context.Context, accessID string) (string, error) {
	if strings.TrimSpace(accessID) == "" {
		return "", fmt.Errorf("access id is required")
	}
	familyID := uuid.NewString()
	token, err := generateRefreshToken()
	if err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(accessID), familyID+"|"+token, m.ttl); err != nil {
		return "", err
	}
	if err := m.store.Set(ctx, m.keyer.FamilySessionKey(familyID), accessID, m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate validates the provided refresh token, retires the prior session, and
// issues a new access/refresh pair within the same family. Presenting a token
// for an access ID that was already rotated revokes the entire family.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return "", "", ErrInvalidRefreshToken
	}

	key := m.keyer.AccessSessionKey(oldAccessID)
	stored, err := m.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return "", "", m.handleMissingSession(ctx, oldAccessID)
		}
		return "", "", err
	}

	familyID, token := splitSessionValue(stored)
	if subtle.ConstantTimeCompare([]byte(token), []byte(provided)) != 1 {
		return "", "", ErrInvalidRefreshToken
	}

	newAccessID := NewAccessID()
	newToken, err := generateRefreshToken()
	if err != nil {
		return "", "", err
	}
	if err := m.store.Set(ctx, m.keyer.AccessSessionKey(newAccessID), familyID+"|"+newToken, m.ttl); err != nil {
		return "", "", err
	}
	if familyID != "" {
		if err := m.store.Set(ctx, m.keyer.FamilySessionKey(familyID), newAccessID, m.ttl); err != nil {
			return "", "", err
		}
		// Tombstone the consumed access ID so a later replay can be traced
		// back to this family.
		if err := m.store.Set(ctx, m.keyer.UsedSessionKey(oldAccessID), familyID, m.ttl); err != nil {
			return "", "", err
		}
	}
	if err := m.store.Del(ctx, key); err != nil {
		return "", "", err
	}

	return newAccessID, newToken, nil
}

// handleMissingSession distinguishes an unknown access ID from a replayed one.
// A tombstone means the token was already rotated: revoke the family.
func (m *Manager) handleMissingSession(ctx context.Context, accessID string) error {
	familyID, err := m.store.Get(ctx, m.keyer.UsedSessionKey(accessID))
	if err != nil {
		if errors.Is(err, redislib.Nil) {
			return ErrInvalidRefreshToken
		}
		return err
	}
	if revokeErr := m.RevokeFamily(ctx, familyID); revokeErr != nil {
		return revokeErr
	}
	return ErrRefreshTokenReused
}

// Revoke deletes the refresh mapping tied to the access identifier.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return fmt.Errorf("access id is required")
	}
	key := m.keyer.AccessSessionKey(accessID)
	stored, err := m.store.Get(ctx, key)
	if err == nil {
		if familyID, _ := splitSessionValue(stored); familyID != "" {
			_ = m.store.Del(ctx, m.keyer.FamilySessionKey(familyID))
		}
	} else if !errors.Is(err, redislib.Nil) {
		return err
	}
	return m.store.Del(ctx, key)
}

// RevokeFamily deletes the family pointer and whichever session it points at.
func (m *Manager) RevokeFamily(ctx context.Context, familyID string) error {
	if strings.TrimSpace(familyID) == "" {
		return fmt.Errorf("family id is required")
	}
	familyKey := m.keyer.FamilySessionKey(familyID)
	currentAccessID, err := m.store.Get(ctx, familyKey)
	if err != nil && !errors.Is(err, redislib.Nil) {
		return err
	}
	keys := []string{familyKey}
	if currentAccessID != "" {
		keys = append(keys, m.keyer.AccessSessionKey(currentAccessID))
	}
	return m.store.Del(ctx, keys...)
}

// HasSession reports whether the provided access ID still has an active refresh session.
func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, fmt.Errorf("access id is required")
	}
	key := m.keyer.AccessSessionKey(accessID)
	if _, err := m.store.Get(ctx, key); err != nil {
		if errors.Is(err, redislib.Nil) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// NewAccessID produces a stable identifier used as the JWT jti/Redis key.
func NewAccessID() string {
	return uuid.NewString()
}

func splitSessionValue(value string) (familyID, token string) {
	parts := strings.SplitN(value, "|", 2)
	if len(parts) != 2 {
		return "", value
	}
	return parts[0], parts[1]
}

func generateRefreshToken() (string, error) {
	bytes := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}
