package service

import (
	"context"
	"fmt"
	"time"

	"custodial-wallet-backend/internal/core/domain"
	"custodial-wallet-backend/internal/core/ports"
	"custodial-wallet-backend/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// WalletServiceImpl implements ports.WalletService.
type WalletServiceImpl struct {
	walletRepo ports.WalletRepository
	txRepo     ports.TransactionRepository
	userRepo   ports.UserRepository
	gateway    ports.PaymentGateway
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewWalletService creates a new WalletServiceImpl.
func NewWalletService(
	walletRepo ports.WalletRepository,
	txRepo ports.TransactionRepository,
	userRepo ports.UserRepository,
	gateway ports.PaymentGateway,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *WalletServiceImpl {
	return &WalletServiceImpl{
		walletRepo: walletRepo,
		txRepo:     txRepo,
		userRepo:   userRepo,
		gateway:    gateway,
		transactor: transactor,
		log:        log,
	}
}

// Deposit opens a hosted payment session with the gateway and records a
// PENDING ledger entry keyed by the gateway's reference. The balance is
// untouched until settlement confirms the charge.
func (s *WalletServiceImpl) Deposit(ctx context.Context, userID uuid.UUID, amount int64) (*ports.GatewaySession, error) {
	if amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get user: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrNotFound("user")
	}

	session, err := s.gateway.InitializeTransaction(ctx, user.Email, amount, map[string]any{
		"user_id":   userID.String(),
		"wallet_id": wallet.ID.String(),
	})
	if err != nil {
		return nil, apperror.ErrGatewayUnavailable(err)
	}

	txn := &domain.Transaction{
		ID:          uuid.New(),
		WalletID:    wallet.ID,
		Amount:      amount,
		Type:        domain.TransactionTypeDeposit,
		Status:      domain.TransactionStatusPending,
		Reference:   session.Reference,
		Description: "Wallet deposit",
		CreatedAt:   time.Now().UTC(),
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.txRepo.Create(ctx, dbTx, txn); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create pending deposit: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("wallet_id", wallet.ID.String()).
		Str("reference", session.Reference).
		Int64("amount", amount).
		Msg("deposit initialized")

	return session, nil
}

// DepositStatus exposes the current state of a deposit by its gateway
// reference. Only deposit entries are addressable this way.
func (s *WalletServiceImpl) DepositStatus(ctx context.Context, reference string) (*ports.DepositStatusResult, error) {
	txn, err := s.txRepo.GetByReference(ctx, reference)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get transaction: %w", err))
	}
	if txn == nil || txn.Type != domain.TransactionTypeDeposit {
		return nil, apperror.ErrNotFound("deposit")
	}

	return &ports.DepositStatusResult{
		Reference: txn.Reference,
		Status:    txn.Status,
		Amount:    txn.Amount,
	}, nil
}

// Transfer atomically moves funds between wallets. The recipient is
// verified inside the same transaction before the sender is debited, so a
// bad recipient never costs the sender anything. The debit is conditional:
// it only applies while the sender's balance covers the amount.
func (s *WalletServiceImpl) Transfer(ctx context.Context, senderUserID uuid.UUID, recipientWalletID uuid.UUID, amount int64) error {
	if amount <= 0 {
		return apperror.ErrInvalidAmount()
	}

	sender, err := s.walletRepo.GetByUserID(ctx, senderUserID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get sender wallet: %w", err))
	}
	if sender == nil {
		return apperror.ErrWalletNotFound()
	}
	if sender.ID == recipientWalletID {
		return apperror.Validation("cannot transfer to your own wallet")
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	recipient, err := s.walletRepo.GetByIDTx(ctx, dbTx, recipientWalletID)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("get recipient wallet: %w", err))
	}
	if recipient == nil {
		return apperror.ErrRecipientNotFound()
	}

	debited, err := s.walletRepo.Debit(ctx, dbTx, sender.ID, amount)
	if err != nil {
		return apperror.InternalError(fmt.Errorf("debit sender: %w", err))
	}
	if !debited {
		return apperror.ErrInsufficientBalance()
	}

	if err := s.walletRepo.Credit(ctx, dbTx, recipient.ID, amount); err != nil {
		return apperror.InternalError(fmt.Errorf("credit recipient: %w", err))
	}

	now := time.Now().UTC()
	legID := uuid.New().String()

	outLeg := &domain.Transaction{
		ID:          uuid.New(),
		WalletID:    sender.ID,
		Amount:      amount,
		Type:        domain.TransactionTypeTransferOut,
		Status:      domain.TransactionStatusSuccess,
		Reference:   "TRF-" + legID,
		Description: fmt.Sprintf("Transfer to %s", recipient.WalletNumber),
		CreatedAt:   now,
	}
	inLeg := &domain.Transaction{
		ID:          uuid.New(),
		WalletID:    recipient.ID,
		Amount:      amount,
		Type:        domain.TransactionTypeTransferIn,
		Status:      domain.TransactionStatusSuccess,
		Reference:   "TRF-IN-" + legID,
		Description: fmt.Sprintf("Transfer from %s", sender.WalletNumber),
		CreatedAt:   now,
	}

	if err := s.txRepo.Create(ctx, dbTx, outLeg); err != nil {
		return apperror.InternalError(fmt.Errorf("create outgoing leg: %w", err))
	}
	if err := s.txRepo.Create(ctx, dbTx, inLeg); err != nil {
		return apperror.InternalError(fmt.Errorf("create incoming leg: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.log.Info().
		Str("sender_wallet", sender.ID.String()).
		Str("recipient_wallet", recipient.ID.String()).
		Int64("amount", amount).
		Msg("transfer completed")

	return nil
}

// Balance returns the caller's wallet.
func (s *WalletServiceImpl) Balance(ctx context.Context, userID uuid.UUID) (*domain.Wallet, error) {
	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	return wallet, nil
}

// History returns the caller's most recent ledger entries, newest first.
func (s *WalletServiceImpl) History(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Transaction, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	wallet, err := s.walletRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	txns, err := s.txRepo.ListByWallet(ctx, wallet.ID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list transactions: %w", err))
	}
	return txns, nil
}

// LookupRecipient resolves a transfer target by email, exposing only what
// a sender needs to address the transfer.
func (s *WalletServiceImpl) LookupRecipient(ctx context.Context, email string) (*ports.RecipientInfo, error) {
	if email == "" {
		return nil, apperror.Validation("email is required")
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get user by email: %w", err))
	}
	if user == nil {
		return nil, apperror.ErrRecipientNotFound()
	}

	wallet, err := s.walletRepo.GetByUserID(ctx, user.ID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get recipient wallet: %w", err))
	}
	if wallet == nil {
		return nil, apperror.ErrRecipientNotFound()
	}

	return &ports.RecipientInfo{
		WalletID:     wallet.ID,
		WalletNumber: wallet.WalletNumber,
		DisplayName:  user.DisplayName(),
		Email:        user.Email,
	}, nil
}
