package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/saaskit/backend/internal/audit"
	"github.com/saaskit/backend/internal/config"
	"github.com/saaskit/backend/internal/models"
	"github.com/saaskit/backend/internal/observability"
	log "github.com/sirupsen/logrus"
)

// CreditService maintains per-user credit balances and their transaction log.
// Every balance change and its log row are written in the same database transaction.
type CreditService struct {
	db      *sql.DB
	config  *config.LedgerConfig
	audit   *audit.Logger
	metrics *observability.Metrics
	now     func() time.Time
	newID   func() string
}

func NewCreditService(db *sql.DB, cfg *config.LedgerConfig, auditLogger *audit.Logger, metrics *observability.Metrics) *CreditService {
	if cfg == nil {
		cfg = config.LoadLedgerConfig()
	}
	if auditLogger == nil {
		auditLogger = audit.NewLogger(nil)
	}
	return &CreditService{
		db:      db,
		config:  cfg,
		audit:   auditLogger,
		metrics: metrics,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

// GetBalance returns the caller's balance, opening the account with the welcome bonus on
// first access.
func (s *CreditService) GetBalance(ctx context.Context, userID string) (*models.Balance, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	balance, err := s.fetchBalance(ctx, s.db, userID)
	if err == nil {
		s.metrics.RecordLedger("get_balance", "ok")
		return balance, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		s.metrics.RecordLedger("get_balance", "error")
		s.audit.LogError("get_balance", userID, err)
		return nil, storageErr("fetch balance", err)
	}

	balance, err = s.openAccount(ctx, userID)
	if err != nil {
		s.metrics.RecordLedger("get_balance", "error")
		s.audit.LogError("open_account", userID, err)
		return nil, err
	}
	s.metrics.RecordLedger("get_balance", "ok")
	return balance, nil
}

// openAccount inserts the account row and its initial transaction. The unique user_id
// makes the insert a no-op for every caller but the first; those callers re-read.
func (s *CreditService) openAccount(ctx context.Context, userID string) (*models.Balance, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin transaction", err)
	}
	defer tx.Rollback()

	now := s.now()
	var balance models.Balance
	err = tx.QueryRowContext(ctx, `
		INSERT INTO user_credits (user_id, credits, total_used, created_at, updated_at)
		VALUES ($1, $2, 0, $3, $3)
		ON CONFLICT (user_id) DO NOTHING
		RETURNING credits, total_used`,
		userID, s.config.WelcomeBonus, now).Scan(&balance.Credits, &balance.TotalUsed)

	if errors.Is(err, sql.ErrNoRows) {
		// another request opened the account between our read and insert
		if err := tx.Rollback(); err != nil {
			return nil, storageErr("rollback", err)
		}
		existing, err := s.fetchBalance(ctx, s.db, userID)
		if err != nil {
			return nil, storageErr("fetch balance", err)
		}
		return existing, nil
	}
	if err != nil {
		return nil, storageErr("create account", err)
	}

	txID := s.newID()
	if err := s.appendTransaction(ctx, tx, txID, userID, s.config.WelcomeBonus, models.TransactionInitial, s.config.WelcomeDescription, now); err != nil {
		return nil, storageErr("record welcome bonus", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("commit", err)
	}

	log.Printf("[CREDITS] Opened account for user %s with %d credits", userID, balance.Credits)
	s.audit.LogAccountOpened(txID, userID, s.config.WelcomeBonus)
	s.metrics.RecordAccountOpened()
	return &balance, nil
}

// DebitCredits subtracts amount from the caller's balance. The balance check and the
// decrement are one conditional UPDATE, so concurrent debits can never overdraw.
// Accounts are not opened here; an unseen user gets ErrAccountNotFound.
func (s *CreditService) DebitCredits(ctx context.Context, userID string, amount int64, description string) (*models.DebitResult, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	if amount <= 0 {
		s.metrics.RecordLedger("debit", "invalid_amount")
		return nil, models.ErrInvalidAmount
	}
	if description == "" {
		description = s.config.DefaultUsageDescription
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		s.metrics.RecordLedger("debit", "error")
		return nil, storageErr("begin transaction", err)
	}
	defer tx.Rollback()

	now := s.now()
	var remaining int64
	err = tx.QueryRowContext(ctx, `
		UPDATE user_credits
		SET credits = credits - $2, total_used = total_used + $2, updated_at = $3
		WHERE user_id = $1 AND credits >= $2
		RETURNING credits`,
		userID, amount, now).Scan(&remaining)

	if errors.Is(err, sql.ErrNoRows) {
		exists, err := s.accountExists(ctx, tx, userID)
		if err != nil {
			s.metrics.RecordLedger("debit", "error")
			return nil, storageErr("check account", err)
		}
		reason := models.ErrInsufficientCredits
		if !exists {
			reason = models.ErrAccountNotFound
		}
		log.Printf("[CREDITS] Debit of %d rejected for user %s: %v", amount, userID, reason)
		s.audit.LogRejected(userID, amount, reason)
		s.metrics.RecordLedger("debit", "rejected")
		return nil, reason
	}
	if err != nil {
		s.metrics.RecordLedger("debit", "error")
		s.audit.LogError("debit", userID, err)
		return nil, storageErr("debit", err)
	}

	txID := s.newID()
	if err := s.appendTransaction(ctx, tx, txID, userID, -amount, models.TransactionUsage, description, now); err != nil {
		s.metrics.RecordLedger("debit", "error")
		s.audit.LogError("debit", userID, err)
		return nil, storageErr("record usage", err)
	}

	if err := tx.Commit(); err != nil {
		s.metrics.RecordLedger("debit", "error")
		s.audit.LogError("debit", userID, err)
		return nil, storageErr("commit", err)
	}

	s.audit.LogDebit(txID, userID, amount, remaining)
	s.metrics.RecordLedger("debit", "ok")
	s.metrics.RecordDebit(amount)
	return &models.DebitResult{Success: true, RemainingCredits: remaining}, nil
}

func (s *CreditService) accountExists(ctx context.Context, q queryer, userID string) (bool, error) {
	var exists bool
	err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM user_credits WHERE user_id = $1)`, userID).Scan(&exists)
	return exists, err
}

// ListTransactions returns the caller's most recent transactions, newest first.
func (s *CreditService) ListTransactions(ctx context.Context, userID string, limit int) ([]models.CreditTransaction, error) {
	if userID == "" {
		return nil, models.ErrUnauthenticated
	}
	if limit <= 0 {
		limit = s.config.HistoryDefaultLimit
	}
	if limit > s.config.HistoryMaxLimit {
		limit = s.config.HistoryMaxLimit
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount, type, description, created_at
		FROM credit_transactions
		WHERE user_id = $1
		ORDER BY seq DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		s.metrics.RecordLedger("list_transactions", "error")
		return nil, storageErr("list transactions", err)
	}
	defer rows.Close()

	transactions := []models.CreditTransaction{}
	for rows.Next() {
		var t models.CreditTransaction
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &t.Description, &t.CreatedAt); err != nil {
			s.metrics.RecordLedger("list_transactions", "error")
			return nil, storageErr("scan transaction", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		s.metrics.RecordLedger("list_transactions", "error")
		return nil, storageErr("list transactions", err)
	}

	s.metrics.RecordLedger("list_transactions", "ok")
	return transactions, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *CreditService) fetchBalance(ctx context.Context, q queryer, userID string) (*models.Balance, error) {
	var balance models.Balance
	err := q.QueryRowContext(ctx, `SELECT credits, total_used FROM user_credits WHERE user_id = $1`, userID).
		Scan(&balance.Credits, &balance.TotalUsed)
	if err != nil {
		return nil, err
	}
	return &balance, nil
}

func (s *CreditService) appendTransaction(ctx context.Context, tx *sql.Tx, id, userID string, amount int64, txType models.TransactionType, description string, createdAt time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO credit_transactions (id, user_id, amount, type, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		id, userID, amount, string(txType), description, createdAt)
	return err
}

func (s *CreditService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.config.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.config.StoreTimeout)
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", models.ErrStorage, op, err)
}
