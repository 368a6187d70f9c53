package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	apperrors "github.com/spec-kit/support-tracker/pkg/util"
)

const claimsKey = "auth_claims"

// Middleware guards the ingest and reporting endpoints. An empty
// ingest key hash disables both checks for development setups.
type Middleware struct {
	tokens        *TokenManager
	ingestKeyHash string
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, ingestKeyHash string) *Middleware {
	return &Middleware{tokens: tokens, ingestKeyHash: ingestKeyHash}
}

// Enabled reports whether authentication is configured.
func (m *Middleware) Enabled() bool {
	return strings.TrimSpace(m.ingestKeyHash) != ""
}

// RequireIngestKey validates the producer's X-Api-Key header.
func (m *Middleware) RequireIngestKey(c *fiber.Ctx) error {
	if !m.Enabled() {
		return c.Next()
	}

	key := c.Get("X-Api-Key")
	if key == "" {
		return apperrors.NewUnauthorized("missing api key")
	}
	if err := VerifyIngestKey(m.ingestKeyHash, key); err != nil {
		return apperrors.NewUnauthorized("invalid api key")
	}
	return c.Next()
}

// RequireReportingToken validates a bearer JWT with reporting scope.
func (m *Middleware) RequireReportingToken(c *fiber.Ctx) error {
	if !m.Enabled() {
		return c.Next()
	}

	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}
	if claims.Scope != ScopeReporting {
		return apperrors.NewForbidden("reporting scope required")
	}

	c.Locals(claimsKey, claims)
	return c.Next()
}

// ClaimsFromContext retrieves validated claims, if any.
func ClaimsFromContext(c *fiber.Ctx) (*Claims, bool) {
	val := c.Locals(claimsKey)
	if val == nil {
		return nil, false
	}
	claims, ok := val.(*Claims)
	return claims, ok
}
