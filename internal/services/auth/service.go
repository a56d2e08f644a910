package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/stockgame/internal/dependencies/clock"
	"github.com/mcoot/stockgame/internal/model"
	"github.com/mcoot/stockgame/internal/storage"
)

// MinSecretLength is the shortest accepted signing key, in bytes
const MinSecretLength = 32

// Session is an issued token together with the claims it carries
type Session struct {
	Token     string
	PlayerID  model.PlayerID
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Config holds configuration for the auth service
type Config struct {
	// Secret is the HMAC signing key. It is fixed for the life of the
	// process; changing it invalidates every outstanding token.
	Secret []byte
	TTL    time.Duration

	// HashCost must match the cost credentials are stored with so that
	// failed lookups take as long as failed comparisons
	HashCost int
}

// DefaultConfig returns default auth configuration without a secret
func DefaultConfig() Config {
	return Config{
		TTL:      time.Hour,
		HashCost: bcrypt.DefaultCost,
	}
}

// Service issues and validates stateless session tokens and handles login.
// Validation touches no shared mutable state and needs no locking.
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger

	key      []byte
	ttl      time.Duration
	hashCost int

	dummyOnce sync.Once
	dummyHash []byte
}

// New creates a new auth Service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger, cfg Config) (*Service, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes, got %d", MinSecretLength, len(cfg.Secret))
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultConfig().TTL
	}
	if cfg.HashCost == 0 {
		cfg.HashCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		storage:  storage,
		clock:    clock,
		logger:   logger,
		key:      append([]byte(nil), cfg.Secret...),
		ttl:      cfg.TTL,
		hashCost: cfg.HashCost,
	}, nil
}

// TTL returns how long issued tokens stay valid
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Issue creates a signed token binding playerID for one TTL from now
func (s *Service) Issue(playerID model.PlayerID) (*Session, error) {
	now := s.clock.Now()
	expires := now.Add(s.ttl)

	token, err := encodeToken(s.key, claims{
		Subject:   string(playerID),
		IssuedAt:  now.UnixNano(),
		ExpiresAt: expires.UnixNano(),
	})
	if err != nil {
		return nil, err
	}
	return &Session{
		Token:     token,
		PlayerID:  playerID,
		IssuedAt:  now,
		ExpiresAt: expires,
	}, nil
}

// Validate checks a token's signature and expiry and returns the player it binds
func (s *Service) Validate(token string) (model.PlayerID, error) {
	session, err := s.ValidateSession(token)
	if err != nil {
		return "", err
	}
	return session.PlayerID, nil
}

// ValidateSession is Validate returning the full session
func (s *Service) ValidateSession(token string) (*Session, error) {
	c, err := decodeToken(s.key, token)
	if err != nil {
		return nil, err
	}
	if s.clock.Now().UnixNano() >= c.ExpiresAt {
		return nil, model.ErrTokenExpired
	}
	return &Session{
		Token:     token,
		PlayerID:  model.PlayerID(c.Subject),
		IssuedAt:  c.issuedAt(),
		ExpiresAt: c.expiresAt(),
	}, nil
}

// Login checks the credential and issues a session. An unknown player and
// a wrong credential both fail with model.ErrAuthenticationFailed.
func (s *Service) Login(ctx context.Context, playerID model.PlayerID, credential string) (*Session, error) {
	player, err := s.storage.GetPlayer(ctx, playerID)
	if errors.Is(err, model.ErrPlayerNotFound) {
		// Spend the same bcrypt work as a real comparison
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(credential))
		s.logger.Debug("login failed", slog.String("player_id", string(playerID)))
		return nil, model.ErrAuthenticationFailed
	}
	if err != nil {
		return nil, err
	}

	err = bcrypt.CompareHashAndPassword([]byte(player.CredentialHash), []byte(credential))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Debug("login failed", slog.String("player_id", string(playerID)))
			return nil, model.ErrAuthenticationFailed
		}
		return nil, err
	}

	session, err := s.Issue(player.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("player logged in",
		slog.String("player_id", string(player.ID)),
		slog.Time("expires_at", session.ExpiresAt),
	)
	return session, nil
}

func (s *Service) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-credential"), s.hashCost)
	})
	return s.dummyHash
}
