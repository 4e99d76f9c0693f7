package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/tavere/legendgame-go/internal/dependencies/clock"
	"github.com/tavere/legendgame-go/internal/model"
	"github.com/tavere/legendgame-go/internal/storage"
)

// Errors
var (
	// ErrInvalidCredentials covers both unknown username and wrong password
	// so responses never reveal whether an account exists
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUsernameLength     = errors.New("username must be 3-20 characters")
	ErrPasswordLength     = errors.New("password must be at least 6 characters")
)

// Username and password length bounds
const (
	minUsernameLen = 3
	maxUsernameLen = 20
	minPasswordLen = 6
)

// DefaultTokenTTL is how long issued tokens stay valid
const DefaultTokenTTL = 7 * 24 * time.Hour

// Config holds configuration for the auth service
type Config struct {
	// SigningKey is the HMAC secret for session tokens
	SigningKey []byte
	// TokenTTL overrides DefaultTokenTTL when non-zero
	TokenTTL time.Duration
}

// Service is the credential store: it registers accounts, verifies
// passwords and issues/validates signed session tokens. Tokens are
// stateless; expiry is the only invalidation mechanism.
type Service struct {
	store      storage.Store
	clock      clock.Clock
	signingKey []byte
	tokenTTL   time.Duration
	logger     *slog.Logger
}

// New creates a new auth Service
func New(store storage.Store, clk clock.Clock, cfg Config, logger *slog.Logger) *Service {
	ttl := cfg.TokenTTL
	if ttl == 0 {
		ttl = DefaultTokenTTL
	}
	return &Service{
		store:      store,
		clock:      clk,
		signingKey: cfg.SigningKey,
		tokenTTL:   ttl,
		logger:     logger.With(slog.String("component", "auth")),
	}
}

// Register creates a new account with a hashed password and the canonical
// initial game state
func (s *Service) Register(ctx context.Context, username, password string) (*model.PlayerRecord, error) {
	if n := utf8.RuneCountInString(username); n < minUsernameLen || n > maxUsernameLen {
		return nil, ErrUsernameLength
	}
	if utf8.RuneCountInString(password) < minPasswordLen {
		return nil, ErrPasswordLength
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	id := model.PlayerID(uuid.NewString())

	creds := &model.Credentials{
		PlayerID:     id,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}
	record := &model.PlayerRecord{
		PlayerID:  id,
		Username:  username,
		GameState: model.InitialGameState(),
		CreatedAt: now,
	}

	if err := s.store.CreatePlayer(ctx, creds, record); err != nil {
		return nil, err
	}

	s.logger.Info("player registered", slog.String("username", username))
	return record, nil
}

// Login verifies credentials and returns the player record.
// Unknown usernames and wrong passwords fail identically.
func (s *Service) Login(ctx context.Context, username, password string) (*model.PlayerRecord, error) {
	creds, err := s.store.GetCredentials(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrPlayerNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.store.GetPlayer(ctx, creds.PlayerID)
}

// IssueToken creates a signed, time-limited token bound to one player id
func (s *Service) IssueToken(id model.PlayerID) (string, error) {
	now := s.clock.Now()
	claims := jwt.RegisteredClaims{
		Subject:   string(id),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ValidateToken checks signature and expiry and returns the bound player id
func (s *Service) ValidateToken(token string) (model.PlayerID, error) {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(t *jwt.Token) (any, error) { return s.signingKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil || !parsed.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return model.PlayerID(claims.Subject), nil
}
