package service

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/recomatch-go/internal/domain"
)

var sessionTracer = otel.Tracer("service/session")

const (
	sessionTokenType = "session"
	sessionIssuer    = "recomatch"
)

// SessionClaims are the claims of a session token.
type SessionClaims struct {
	SID  string `json:"sid"`
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// SessionService issues and validates HS256 session tokens. Session state
// itself lives in the reconciliation service's cache, keyed by SID.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewSessionService creates the session token service.
func NewSessionService(secret string, ttl time.Duration, logger *zap.Logger) *SessionService {
	return &SessionService{
		secret: []byte(secret),
		ttl:    ttl,
		logger: logger,
		now:    time.Now,
	}
}

// Create opens a new session.
func (s *SessionService) Create(ctx context.Context) (*domain.Session, error) {
	_, span := sessionTracer.Start(ctx, "SessionService.Create")
	defer span.End()

	sid := uuid.NewString()
	now := s.now()
	expires := now.Add(s.ttl)

	claims := SessionClaims{
		SID:  sid,
		Type: sessionTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
			Issuer:    sessionIssuer,
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign session token: %w", err)
	}
	span.SetAttributes(attribute.String("session.id", sid))

	s.logger.Info("session created", zap.String("session_id", sid), zap.Time("expires_at", expires))
	return &domain.Session{Token: token, SessionID: sid, ExpiresAt: expires}, nil
}

// Validate checks a token and returns its session id.
func (s *SessionService) Validate(tokenString string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	},
		jwt.WithIssuer(sessionIssuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return "", &domain.ErrUnauthorized{Message: "invalid or expired session token"}
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return "", &domain.ErrUnauthorized{Message: "invalid session token"}
	}
	if claims.Type != sessionTokenType || claims.SID == "" {
		return "", &domain.ErrUnauthorized{Message: "wrong token type"}
	}
	return claims.SID, nil
}
