package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"plant-shop-platform/internal/models"
)

// PaymentRepository handles payment data operations. Payments are one-to-one
// with orders and lifetime-bound to them.
type PaymentRepository struct {
	db *sql.DB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sql.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, order_id, session_id, amount, status, method, created_at, updated_at`

func scanPayment(scan func(dest ...interface{}) error) (*models.Payment, error) {
	payment := &models.Payment{}
	err := scan(
		&payment.ID,
		&payment.OrderID,
		&payment.SessionID,
		&payment.Amount,
		&payment.Status,
		&payment.Method,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return payment, nil
}

// Create records a pending payment for an order. Callers must create the
// external gateway session first so a committed payment row always has a
// corresponding session.
func (r *PaymentRepository) Create(orderID int, sessionID string, amount int, method models.PaymentMethod) (*models.Payment, error) {
	payment := &models.Payment{
		OrderID: orderID,
		Amount:  amount,
		Status:  models.PaymentPending,
		Method:  method,
	}
	if err := payment.Validate(); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO payments (order_id, session_id, amount, status, method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, paymentColumns)

	now := time.Now()
	created, err := scanPayment(r.db.QueryRow(
		query,
		orderID,
		sessionID,
		amount,
		models.PaymentPending,
		method,
		now,
		now,
	).Scan)

	if err != nil {
		return nil, fmt.Errorf("failed to create payment: %w", err)
	}

	return created, nil
}

// GetByOrder retrieves the payment for an order
func (r *PaymentRepository) GetByOrder(orderID int) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE order_id = $1`, paymentColumns)

	payment, err := scanPayment(r.db.QueryRow(query, orderID).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return payment, nil
}

// GetBySessionID retrieves a payment by its external session identifier
func (r *PaymentRepository) GetBySessionID(sessionID string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE session_id = $1`, paymentColumns)

	payment, err := scanPayment(r.db.QueryRow(query, sessionID).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment by session: %w", err)
	}

	return payment, nil
}

// UpdateStatus transitions the payment status, rejecting any transition not
// in the status table. Guarded on the prior status.
func (r *PaymentRepository) UpdateStatus(id int, status models.PaymentStatus) error {
	payment, err := r.getByID(id)
	if err != nil {
		return err
	}

	if !payment.Status.CanTransitionTo(status) {
		return fmt.Errorf("invalid payment status transition from %s to %s", payment.Status, status)
	}

	result, err := r.db.Exec(`
		UPDATE payments
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status = $4`, id, status, time.Now(), payment.Status)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("payment %d changed status concurrently", id)
	}

	return nil
}

func (r *PaymentRepository) getByID(id int) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE id = $1`, paymentColumns)

	payment, err := scanPayment(r.db.QueryRow(query, id).Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}

	return payment, nil
}

// MarkFailedByOrder sets the order's payment to failed if a payment record
// exists. Tolerates checkout being abandoned before a payment was ever
// created, and a payment already in a terminal state.
func (r *PaymentRepository) MarkFailedByOrder(orderID int) error {
	payment, err := r.GetByOrder(orderID)
	if err != nil {
		if err == models.ErrPaymentNotFound {
			return nil
		}
		return err
	}

	if !payment.Status.CanTransitionTo(models.PaymentFailed) {
		return nil
	}

	return r.UpdateStatus(payment.ID, models.PaymentFailed)
}

// Replace swaps a failed payment for a fresh pending one bound to a new
// gateway session. A retry is a new payment attempt, not a status flip, and
// the order keeps exactly one payment record.
func (r *PaymentRepository) Replace(orderID int, sessionID string, amount int, method models.PaymentMethod) (*models.Payment, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var status models.PaymentStatus
	err = tx.QueryRow(`SELECT status FROM payments WHERE order_id = $1`, orderID).Scan(&status)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check existing payment: %w", err)
	}

	if err == nil {
		if status != models.PaymentFailed {
			return nil, fmt.Errorf("cannot replace payment in status %s", status)
		}
		if _, err = tx.Exec(`DELETE FROM payments WHERE order_id = $1`, orderID); err != nil {
			return nil, fmt.Errorf("failed to remove failed payment: %w", err)
		}
	}

	query := fmt.Sprintf(`
		INSERT INTO payments (order_id, session_id, amount, status, method, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING %s`, paymentColumns)

	now := time.Now()
	payment, err := scanPayment(tx.QueryRow(
		query, orderID, sessionID, amount, models.PaymentPending, method, now, now,
	).Scan)
	if err != nil {
		return nil, fmt.Errorf("failed to create replacement payment: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit payment replacement: %w", err)
	}

	return payment, nil
}
