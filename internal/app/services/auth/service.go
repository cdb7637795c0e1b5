package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	domainbooking "eventbook/internal/domain/booking"
)

var (
	ErrTokenRequired = errors.New("auth: token is required")
	ErrInvalidToken  = errors.New("auth: invalid token")
	ErrSecretMissing = errors.New("auth: signing secret is not configured")
	ErrUnauthorized  = errors.New("auth: authentication required")
)

const defaultTokenTTL = 12 * time.Hour

// Claims identify the caller and the role it acts in.
type Claims struct {
	Sub  string `json:"sub"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Service issues and verifies HS256 bearer tokens. Identities are managed
// elsewhere; the service only vouches for (subject, role) pairs.
type Service struct {
	Secret []byte
	TTL    time.Duration
	Issuer string
	Now    func() time.Time
	Logger *slog.Logger
}

func (s *Service) Issue(actor domainbooking.Actor) (string, error) {
	if len(s.Secret) == 0 {
		return "", ErrSecretMissing
	}
	if strings.TrimSpace(actor.ID) == "" || !actor.Role.Valid() {
		return "", fmt.Errorf("%w: subject and role are required", ErrInvalidToken)
	}
	now := s.now()
	claims := Claims{
		Sub:  actor.ID,
		Role: string(actor.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl())),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
}

// ResolveToken verifies token and returns the actor it names.
func (s *Service) ResolveToken(ctx context.Context, token string) (domainbooking.Actor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return domainbooking.Actor{}, ErrTokenRequired
	}
	if len(s.Secret) == 0 {
		return domainbooking.Actor{}, ErrSecretMissing
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return s.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(s.now))
	if err != nil {
		if s.Logger != nil {
			s.Logger.DebugContext(ctx, "token rejected", "error", err)
		}
		return domainbooking.Actor{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return domainbooking.Actor{}, ErrInvalidToken
	}
	actor := domainbooking.Actor{ID: claims.Sub, Role: domainbooking.Role(strings.ToLower(claims.Role))}
	if actor.ID == "" || !actor.Role.Valid() {
		return domainbooking.Actor{}, fmt.Errorf("%w: unknown subject or role", ErrInvalidToken)
	}
	return actor, nil
}

func (s *Service) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return defaultTokenTTL
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

type actorKey struct{}

// WithActor stores the authenticated actor on ctx.
func WithActor(ctx context.Context, actor domainbooking.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFrom returns the actor stored by WithActor.
func ActorFrom(ctx context.Context) (domainbooking.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domainbooking.Actor)
	return actor, ok && actor.ID != ""
}
