package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"chair-reservation-backend/internal/clock"
	"chair-reservation-backend/internal/model"
	"chair-reservation-backend/internal/store"
)

var (
	ErrInvalidLogin = errors.New("invalid email or password")
	ErrWeakPassword = errors.New("password must be at least 4 characters")
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidToken = errors.New("invalid token")
)

const (
	guestName   = "ゲスト"
	guestPrefix = "guest-"
)

// Identity is the signed-in actor.
type Identity struct {
	UserID      string `json:"id"`
	DisplayName string `json:"name"`
	Email       string `json:"email,omitempty"`
	IsGuest     bool   `json:"is_guest"`
}

// Claims carries an Identity inside a JWT.
type Claims struct {
	Sub   string `json:"sub"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Guest bool   `json:"guest"`
	jwt.RegisteredClaims
}

// ProfileStore is the slice of the store the service needs.
type ProfileStore interface {
	CreateProfile(ctx context.Context, p *model.Profile) error
	ProfileByEmail(ctx context.Context, email string) (*model.Profile, error)
	ProfileByID(ctx context.Context, id string) (*model.Profile, error)
}

// Service signs users up and in, issues tokens, and verifies credentials.
type Service struct {
	profiles ProfileStore
	secret   []byte
	ttl      time.Duration
	cost     int
	clock    clock.Clock
}

func NewService(profiles ProfileStore, secret string, ttl time.Duration, bcryptCost int, c clock.Clock) *Service {
	return &Service{profiles: profiles, secret: []byte(secret), ttl: ttl, cost: bcryptCost, clock: c}
}

// SignUp registers an account and returns its identity and a token.
func (s *Service) SignUp(ctx context.Context, email, password, name string) (Identity, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if len(password) < 4 {
		return Identity{}, "", ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return Identity{}, "", fmt.Errorf("hash password: %w", err)
	}

	p := &model.Profile{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	}
	if err := s.profiles.CreateProfile(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return Identity{}, "", ErrEmailTaken
		}
		return Identity{}, "", err
	}
	return s.issue(identityOf(p))
}

// Login checks the password and returns the identity and a token.
func (s *Service) Login(ctx context.Context, email, password string) (Identity, string, error) {
	p, err := s.profiles.ProfileByEmail(ctx, strings.TrimSpace(strings.ToLower(email)))
	if errors.Is(err, store.ErrNotFound) {
		return Identity{}, "", ErrInvalidLogin
	}
	if err != nil {
		return Identity{}, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(password)) != nil {
		return Identity{}, "", ErrInvalidLogin
	}
	return s.issue(identityOf(p))
}

// GuestLogin creates a throwaway guest identity. Guests have no stored account.
func (s *Service) GuestLogin() (Identity, string, error) {
	return s.issue(Identity{
		UserID:      guestPrefix + uuid.NewString(),
		DisplayName: guestName,
		IsGuest:     true,
	})
}

// VerifyCredential reports whether secret is the password of userID's account.
// Guests and unknown users never verify.
func (s *Service) VerifyCredential(ctx context.Context, userID, secret string) (bool, error) {
	if userID == "" || strings.HasPrefix(userID, guestPrefix) {
		return false, nil
	}
	p, err := s.profiles.ProfileByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return bcrypt.CompareHashAndPassword([]byte(p.PasswordHash), []byte(secret)) == nil, nil
}

// ParseToken validates a token and returns the identity it carries.
func (s *Service) ParseToken(token string) (Identity, error) {
	t, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.clock.Now))
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid || c.Sub == "" {
		return Identity{}, ErrInvalidToken
	}
	return Identity{UserID: c.Sub, DisplayName: c.Name, Email: c.Email, IsGuest: c.Guest}, nil
}

func (s *Service) issue(id Identity) (Identity, string, error) {
	now := s.clock.Now()
	claims := Claims{
		Sub:   id.UserID,
		Name:  id.DisplayName,
		Email: id.Email,
		Guest: id.IsGuest,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return Identity{}, "", fmt.Errorf("sign token: %w", err)
	}
	return id, token, nil
}

func identityOf(p *model.Profile) Identity {
	return Identity{UserID: p.ID, DisplayName: p.Name, Email: p.Email}
}
