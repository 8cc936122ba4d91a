package handler

import (
	"net/http"
	"time"

	"custodial-wallet-backend/internal/adapter/http/dto"
	"custodial-wallet-backend/internal/core/ports"
	"custodial-wallet-backend/pkg/apperror"
	"custodial-wallet-backend/pkg/response"

	"github.com/gin-gonic/gin"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authSvc ports.AuthService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authSvc ports.AuthService) *AuthHandler {
	return &AuthHandler{authSvc: authSvc}
}

// Token handles POST /api/v1/auth/token. It exchanges a verified external
// identity for a session token, provisioning the user and their wallet on
// first sight.
func (h *AuthHandler) Token(c *gin.Context) {
	var req dto.TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	user, err := h.authSvc.EnsureFromIdentity(c.Request.Context(), ports.VerifiedIdentity{
		Email:      req.Email,
		ExternalID: req.ExternalID,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		Picture:    req.Picture,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	token, expiry, err := h.authSvc.IssueToken(c.Request.Context(), user)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.TokenResponse{
		Token:  token,
		Expiry: expiry.Unix(),
		User: dto.UserResponse{
			ID:        user.ID.String(),
			Email:     user.Email,
			FirstName: user.FirstName,
			LastName:  user.LastName,
			Picture:   user.Picture,
		},
	})
}

// HealthCheck handles GET /health. Deep health check verifying all dependencies.
func HealthCheck(checkers ...ports.HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		type depStatus struct {
			Status string `json:"status"`
			Error  string `json:"error,omitempty"`
		}

		deps := make(map[string]depStatus)
		allHealthy := true

		for _, checker := range checkers {
			if err := checker.Ping(c.Request.Context()); err != nil {
				deps[checker.Name()] = depStatus{Status: "unhealthy", Error: err.Error()}
				allHealthy = false
			} else {
				deps[checker.Name()] = depStatus{Status: "healthy"}
			}
		}

		status := "healthy"
		httpCode := http.StatusOK
		if !allHealthy {
			status = "degraded"
			httpCode = http.StatusServiceUnavailable
		}

		c.JSON(httpCode, gin.H{
			"status":       status,
			"time":         time.Now().UTC().Format(time.RFC3339),
			"dependencies": deps,
		})
	}
}
