package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("jwt-manager")

const (
	// RoleArchitect grants access to the pipeline endpoints.
	RoleArchitect = "architect"
	// Issuer and Audience are stamped on, and required of, every token.
	Issuer   = "architect-orchestrator"
	Audience = "architect-api"

	// DefaultMaxRefreshAge bounds how long a session can be extended by refreshing.
	DefaultMaxRefreshAge = 7 * 24 * time.Hour

	minSecretLength = 16
	clockLeeway     = 30 * time.Second
)

var (
	ErrMissingSecret  = errors.New("jwt signing secret is required")
	ErrWeakSecret     = fmt.Errorf("jwt signing secret must be at least %d bytes", minSecretLength)
	ErrRefreshExpired = errors.New("token is too old to refresh")
)

// Identity is the principal a token is issued to.
type Identity struct {
	Subject  string
	Username string
	Roles    []string
}

// Claims is the token payload. The subject carries the user id.
type Claims struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles,omitempty"`
	// OriginalIssuedAt is carried across refreshes.
	OriginalIssuedAt *jwt.NumericDate `json:"orig_iat,omitempty"`
	jwt.RegisteredClaims
}

// HasRole reports whether the claims carry role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// Identity returns the principal the claims describe.
func (c *Claims) Identity() Identity {
	return Identity{Subject: c.Subject, Username: c.Username, Roles: c.Roles}
}

// JWTManager issues and verifies HS256 API tokens.
type JWTManager struct {
	key           []byte
	parser        *jwt.Parser
	maxRefreshAge time.Duration
	tracer        trace.Tracer
	logger        *slog.Logger
}

// Option customizes a JWTManager.
type Option func(*JWTManager)

// WithMaxRefreshAge overrides DefaultMaxRefreshAge.
func WithMaxRefreshAge(d time.Duration) Option {
	return func(jm *JWTManager) { jm.maxRefreshAge = d }
}

// NewJWTManager creates a manager signing with secret.
func NewJWTManager(secret string, logger *slog.Logger, opts ...Option) (*JWTManager, error) {
	switch {
	case secret == "":
		return nil, ErrMissingSecret
	case len(secret) < minSecretLength:
		return nil, ErrWeakSecret
	}
	if logger == nil {
		logger = slog.Default()
	}

	jm := &JWTManager{
		key: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithIssuer(Issuer),
			jwt.WithAudience(Audience),
			jwt.WithExpirationRequired(),
			jwt.WithLeeway(clockLeeway),
		),
		maxRefreshAge: DefaultMaxRefreshAge,
		tracer:        tracer,
		logger:        logger.With("component", "auth"),
	}
	for _, opt := range opts {
		opt(jm)
	}
	return jm, nil
}

// Issue mints a token for id valid for ttl.
func (jm *JWTManager) Issue(ctx context.Context, id Identity, ttl time.Duration) (string, error) {
	return jm.issue(ctx, id, ttl, nil)
}

func (jm *JWTManager) issue(ctx context.Context, id Identity, ttl time.Duration, origIat *jwt.NumericDate) (string, error) {
	_, span := jm.tracer.Start(ctx, "jwt.issue")
	defer span.End()

	if id.Subject == "" {
		return "", errors.New("token subject is required")
	}

	now := time.Now()
	if origIat == nil {
		origIat = jwt.NewNumericDate(now)
	}
	claims := &Claims{
		Username:         id.Username,
		Roles:            id.Roles,
		OriginalIssuedAt: origIat,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			Subject:   id.Subject,
			Audience:  jwt.ClaimStrings{Audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jm.key)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	span.SetAttributes(
		attribute.String("user.id", id.Subject),
		attribute.String("jwt.id", claims.ID),
		attribute.String("jwt.expires_at", claims.ExpiresAt.String()),
	)
	return signed, nil
}

// Verify parses a token and checks signature, issuer, audience and expiry.
func (jm *JWTManager) Verify(ctx context.Context, token string) (*Claims, error) {
	_, span := jm.tracer.Start(ctx, "jwt.verify")
	defer span.End()

	claims := &Claims{}
	if _, err := jm.parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return jm.key, nil
	}); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if claims.Subject == "" {
		return nil, errors.New("token has no subject")
	}

	span.SetAttributes(
		attribute.String("user.id", claims.Subject),
		attribute.String("jwt.id", claims.ID),
	)
	return claims, nil
}

// Refresh reissues a valid token with a fresh expiry, refusing sessions older
// than the max refresh age.
func (jm *JWTManager) Refresh(ctx context.Context, token string, ttl time.Duration) (string, error) {
	ctx, span := jm.tracer.Start(ctx, "jwt.refresh")
	defer span.End()

	claims, err := jm.Verify(ctx, token)
	if err != nil {
		return "", fmt.Errorf("cannot refresh invalid token: %w", err)
	}

	origIat := claims.OriginalIssuedAt
	if origIat == nil {
		origIat = claims.IssuedAt
	}
	if origIat == nil || time.Since(origIat.Time) > jm.maxRefreshAge {
		span.RecordError(ErrRefreshExpired)
		return "", ErrRefreshExpired
	}

	return jm.issue(ctx, claims.Identity(), ttl, origIat)
}
