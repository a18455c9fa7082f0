// Package identity constructs participants and issues the session
// tokens the HTTP layer uses to authenticate them. The matching core
// never imports this package; it only ever sees the uuid.UUID this
// package hands out.
package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/brokerlabs/xchange/core/ledger"
	"github.com/brokerlabs/xchange/internal/storage"
)

// Service registers participants, authenticates them, and signs/parses
// their session tokens.
type Service struct {
	store     *storage.Store
	registry  *ledger.Registry
	minTrade  decimal.Decimal
	jwtSecret []byte
}

// New constructs an identity service backed by store for durable
// account records and registry for the in-memory ledger the matching
// engine reads from.
func New(store *storage.Store, registry *ledger.Registry, minTrade decimal.Decimal, jwtSecret string) *Service {
	return &Service{
		store:     store,
		registry:  registry,
		minTrade:  minTrade,
		jwtSecret: []byte(jwtSecret),
	}
}

// Register creates a new account with a hashed password and an
// initial cash position, wiring a fresh ledger.Participant into the
// shared registry so the matching engine can settle trades against it
// as soon as this call returns.
func (s *Service) Register(ctx context.Context, username, password string, initialCash decimal.Decimal) (*ledger.Participant, error) {
	if username == "" {
		return nil, fmt.Errorf("identity: username cannot be empty")
	}
	if password == "" {
		return nil, fmt.Errorf("identity: password cannot be empty")
	}
	if len(username) > 50 {
		return nil, fmt.Errorf("identity: username too long (max 50 characters)")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	participant, err := ledger.New(initialCash, s.minTrade)
	if err != nil {
		return nil, fmt.Errorf("identity: %w", err)
	}

	if err := s.store.CreateAccount(ctx, participant.ID(), username, string(hashed), initialCash); err != nil {
		return nil, fmt.Errorf("identity: failed to create account: %w", err)
	}

	s.registry.Add(participant)
	return participant, nil
}

// Login verifies credentials and returns a signed session token
// carrying the participant's uuid in its participant_id claim.
func (s *Service) Login(ctx context.Context, username, password string) (string, error) {
	account, err := s.store.GetAccountByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("identity: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("identity: invalid credentials")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"participant_id": account.ParticipantID.String(),
		"username":       account.Username,
		"exp":            time.Now().Add(24 * time.Hour).Unix(),
	})
	return token.SignedString(s.jwtSecret)
}

// ParticipantFromToken parses a session token and returns the
// participant identity it carries.
func (s *Service) ParticipantFromToken(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("identity: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, fmt.Errorf("identity: invalid token")
	}
	raw, ok := claims["participant_id"].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("identity: token missing participant_id")
	}
	return uuid.Parse(raw)
}

// Participant looks the participant up in the shared registry.
func (s *Service) Participant(id uuid.UUID) (*ledger.Participant, bool) {
	return s.registry.Get(id)
}
