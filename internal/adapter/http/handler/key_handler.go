package handler

import (
	"time"

	"custodial-wallet-backend/internal/adapter/http/dto"
	"custodial-wallet-backend/internal/adapter/http/middleware"
	"custodial-wallet-backend/internal/core/domain"
	"custodial-wallet-backend/internal/core/ports"
	"custodial-wallet-backend/pkg/apperror"
	"custodial-wallet-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// KeyHandler handles API-key lifecycle endpoints. All routes require a
// token-origin principal; keys cannot manage keys.
type KeyHandler struct {
	keySvc ports.ApiKeyService
}

// NewKeyHandler creates a new KeyHandler.
func NewKeyHandler(keySvc ports.ApiKeyService) *KeyHandler {
	return &KeyHandler{keySvc: keySvc}
}

// Create handles POST /api/v1/keys.
func (h *KeyHandler) Create(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	var req dto.CreateKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	issued, err := h.keySvc.Issue(c.Request.Context(), principal.UserID, req.Name, req.Scopes, req.Validity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toIssuedKeyResponse(issued))
}

// List handles GET /api/v1/keys.
func (h *KeyHandler) List(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	keys, err := h.keySvc.List(c.Request.Context(), principal.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.ApiKeyResponse, 0, len(keys))
	for i := range keys {
		out = append(out, toApiKeyResponse(&keys[i]))
	}
	response.OK(c, out)
}

// Get handles GET /api/v1/keys/:id.
func (h *KeyHandler) Get(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid key id"))
		return
	}

	key, err := h.keySvc.Get(c.Request.Context(), principal.UserID, keyID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toApiKeyResponse(key))
}

// Revoke handles DELETE /api/v1/keys/:id. Revocation is permanent and
// idempotent.
func (h *KeyHandler) Revoke(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid key id"))
		return
	}

	if err := h.keySvc.Revoke(c.Request.Context(), principal.UserID, keyID); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"revoked": true})
}

// Rollover handles POST /api/v1/keys/:id/rollover. Revokes the old key and
// mints a replacement with the same name and scopes.
func (h *KeyHandler) Rollover(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	keyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid key id"))
		return
	}

	var req dto.RolloverKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	issued, err := h.keySvc.Rollover(c.Request.Context(), principal.UserID, keyID, req.Validity)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, toIssuedKeyResponse(issued))
}

func toIssuedKeyResponse(issued *ports.IssuedKey) dto.IssuedKeyResponse {
	return dto.IssuedKeyResponse{
		ID:        issued.Key.ID.String(),
		Name:      issued.Key.Name,
		Key:       issued.RawSecret,
		MaskedKey: issued.Key.MaskedKey,
		Scopes:    issued.Key.Scopes,
		ExpiresAt: issued.Key.ExpiresAt.UTC().Format(time.RFC3339),
		CreatedAt: issued.Key.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func toApiKeyResponse(key *domain.ApiKey) dto.ApiKeyResponse {
	return dto.ApiKeyResponse{
		ID:        key.ID.String(),
		Name:      key.Name,
		MaskedKey: key.MaskedKey,
		Scopes:    key.Scopes,
		ExpiresAt: key.ExpiresAt.UTC().Format(time.RFC3339),
		Revoked:   key.Revoked,
		CreatedAt: key.CreatedAt.UTC().Format(time.RFC3339),
	}
}
