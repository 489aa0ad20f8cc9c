package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Store persists order payment state in Postgres.
type Store struct {
	Pool *pgxpool.Pool
}

// MarkPaid transitions an order to PAID under a row lock. Replaying the same
// payment id against an already paid order is a no-op; a different payment id
// is rejected with ErrPaymentMismatch. Every applied transition also appends
// an order_payment_events row inside the same transaction.
func (s *Store) MarkPaid(ctx context.Context, p MarkPaidParams) (MarkPaidResult, error) {
	if s == nil || s.Pool == nil {
		return MarkPaidResult{}, errors.New("order: store not configured")
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return MarkPaidResult{}, fmt.Errorf("order: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var (
		current          string
		currentPaymentID *string
	)
	err = tx.QueryRow(ctx,
		`SELECT status, payment_id FROM orders WHERE id = $1 FOR UPDATE`,
		p.OrderID,
	).Scan(&current, &currentPaymentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return MarkPaidResult{}, ErrNotFound
		}
		return MarkPaidResult{}, fmt.Errorf("order: lock row: %w", err)
	}

	existing := ""
	if currentPaymentID != nil {
		existing = *currentPaymentID
	}
	plan, err := planTransition(Status(current), existing, p.PaymentID)
	if err != nil {
		return MarkPaidResult{}, err
	}
	if plan == transitionNoop {
		return MarkPaidResult{Applied: false}, tx.Commit(ctx)
	}

	_, err = tx.Exec(ctx,
		`UPDATE orders
		    SET status = $2, payment_id = $3, payment_gateway = $4, paid_at = now(), updated_at = now()
		  WHERE id = $1`,
		p.OrderID, string(StatusPaid), p.PaymentID, p.Gateway,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// payment_id is unique across orders; a replayed payment id
			// pointed at a second order lands here.
			return MarkPaidResult{}, ErrPaymentMismatch
		}
		return MarkPaidResult{}, fmt.Errorf("order: update row: %w", err)
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO order_payment_events (order_id, payment_id, gateway, event)
		 VALUES ($1, $2, $3, 'paid')`,
		p.OrderID, p.PaymentID, p.Gateway,
	)
	if err != nil {
		return MarkPaidResult{}, fmt.Errorf("order: append payment event: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return MarkPaidResult{}, fmt.Errorf("order: commit: %w", err)
	}
	return MarkPaidResult{Applied: true}, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
