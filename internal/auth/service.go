package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kobo-pay/kobo_pay/internal/config"
	"github.com/kobo-pay/kobo_pay/internal/identity"
)

// ErrInvalidToken indicates the presented token failed verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims are the JWT claims carried by access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Service issues and verifies JWTs for authenticated callers.
type Service struct {
	cfg config.Config
}

// NewService builds an auth service from app configuration.
func NewService(cfg config.Config) *Service {
	return &Service{cfg: cfg}
}

// TokenPair bundles the tokens returned on login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// Login issues an access/refresh token pair for the user.
func (s *Service) Login(user identity.User) (TokenPair, error) {
	access, err := s.sign(user, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.sign(user, s.cfg.RefreshSecret, s.cfg.RefreshTokenTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64(s.cfg.AccessTokenTTL.Seconds()),
	}, nil
}

// Refresh verifies the refresh token and issues a new access token.
func (s *Service) Refresh(refreshToken string) (string, int64, error) {
	userID, email, err := s.verify(refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return "", 0, err
	}
	access, err := s.sign(identity.User{ID: userID, Email: email}, s.cfg.JWTSecret, s.cfg.AccessTokenTTL)
	if err != nil {
		return "", 0, err
	}
	return access, int64(s.cfg.AccessTokenTTL.Seconds()), nil
}

// VerifyAccess checks an access token and returns the caller's user id.
func (s *Service) VerifyAccess(token string) (uuid.UUID, error) {
	userID, _, err := s.verify(token, s.cfg.JWTSecret)
	return userID, err
}

func (s *Service) sign(user identity.User, secret string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    s.cfg.AppName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: user.Email,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func (s *Service) verify(token, secret string) (uuid.UUID, string, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	})
	if err != nil || !parsed.Valid {
		return uuid.Nil, "", ErrInvalidToken
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, "", ErrInvalidToken
	}
	return userID, claims.Email, nil
}
