package handler

import (
	"strconv"
	"time"

	"custodial-wallet-backend/internal/adapter/http/dto"
	"custodial-wallet-backend/internal/adapter/http/middleware"
	"custodial-wallet-backend/internal/core/ports"
	"custodial-wallet-backend/pkg/apperror"
	"custodial-wallet-backend/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// WalletHandler handles wallet and ledger endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// Deposit handles POST /api/v1/wallet/deposit. Opens a hosted payment
// session; the balance moves only when the gateway webhook settles.
func (h *WalletHandler) Deposit(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	var req dto.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	session, err := h.walletSvc.Deposit(c.Request.Context(), principal.UserID, req.Amount)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.DepositResponse{
		AuthorizationURL: session.AuthorizationURL,
		AccessCode:       session.AccessCode,
		Reference:        session.Reference,
	})
}

// DepositStatus handles GET /api/v1/wallet/deposit/:reference.
func (h *WalletHandler) DepositStatus(c *gin.Context) {
	reference := c.Param("reference")
	if reference == "" {
		response.Error(c, apperror.Validation("reference is required"))
		return
	}

	result, err := h.walletSvc.DepositStatus(c.Request.Context(), reference)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.DepositStatusResponse{
		Reference: result.Reference,
		Status:    string(result.Status),
		Amount:    result.Amount,
	})
}

// Transfer handles POST /api/v1/wallet/transfer.
func (h *WalletHandler) Transfer(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	var req dto.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	recipientWalletID, err := uuid.Parse(req.RecipientWalletID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid recipient wallet id"))
		return
	}

	if err := h.walletSvc.Transfer(c.Request.Context(), principal.UserID, recipientWalletID, req.Amount); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"status": "completed"})
}

// Balance handles GET /api/v1/wallet/balance.
func (h *WalletHandler) Balance(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	wallet, err := h.walletSvc.Balance(c.Request.Context(), principal.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.BalanceResponse{
		WalletID:     wallet.ID.String(),
		WalletNumber: wallet.WalletNumber,
		Balance:      wallet.Balance,
	})
}

// History handles GET /api/v1/wallet/transactions?limit=N.
func (h *WalletHandler) History(c *gin.Context) {
	principal, ok := middleware.PrincipalFrom(c)
	if !ok {
		response.Error(c, apperror.ErrUnauthenticated())
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, apperror.Validation("limit must be a non-negative integer"))
			return
		}
		limit = parsed
	}

	transactions, err := h.walletSvc.History(c.Request.Context(), principal.UserID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.TransactionResponse, 0, len(transactions))
	for i := range transactions {
		txn := &transactions[i]
		out = append(out, dto.TransactionResponse{
			ID:          txn.ID.String(),
			Amount:      txn.Amount,
			Type:        string(txn.Type),
			Status:      string(txn.Status),
			Reference:   txn.Reference,
			Description: txn.Description,
			CreatedAt:   txn.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	response.OK(c, out)
}

// LookupRecipient handles GET /api/v1/wallet/lookup?email=.
func (h *WalletHandler) LookupRecipient(c *gin.Context) {
	email := c.Query("email")
	if email == "" {
		response.Error(c, apperror.Validation("email is required"))
		return
	}

	recipient, err := h.walletSvc.LookupRecipient(c.Request.Context(), email)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.RecipientResponse{
		WalletID:     recipient.WalletID.String(),
		WalletNumber: recipient.WalletNumber,
		DisplayName:  recipient.DisplayName,
		Email:        recipient.Email,
	})
}
