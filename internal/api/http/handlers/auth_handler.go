package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-tracker/internal/api/dto"
	"github.com/spec-kit/support-tracker/internal/auth"
	apperrors "github.com/spec-kit/support-tracker/pkg/util"
)

// AuthHandler exchanges the ingest API key for reporting tokens.
type AuthHandler struct {
	tokens        *auth.TokenManager
	ingestKeyHash string
}

// NewAuthHandler constructs handler.
func NewAuthHandler(tokens *auth.TokenManager, ingestKeyHash string) *AuthHandler {
	return &AuthHandler{tokens: tokens, ingestKeyHash: ingestKeyHash}
}

// IssueToken POST /auth/token.
func (h *AuthHandler) IssueToken(c *fiber.Ctx) error {
	if strings.TrimSpace(h.ingestKeyHash) == "" {
		return apperrors.NewConflict("authentication is not configured", nil)
	}

	var req dto.TokenRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.APIKey == "" {
		return apperrors.NewValidationError("api_key required", nil)
	}
	if err := auth.VerifyIngestKey(h.ingestKeyHash, req.APIKey); err != nil {
		return apperrors.NewUnauthorized("invalid api key")
	}

	token, expiresAt, err := h.tokens.GenerateToken(auth.ScopeReporting)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
	}})
}
