/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface
 * for the user directory lookups and the verification workflow. A status
 * transition and its paired notification commit together in a single
 * transaction with rollback on any failure.
 *
 * @dependencies
 * - context, errors: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/singflex/moderation-service/internal/domain"
)

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// mapTxError converts serialization failures and deadlocks into ErrWriteConflict
// so callers can retry the whole operation.
func mapTxError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return ErrWriteConflict
		}
	}
	return err
}

// UserExists reports whether a user row exists in the platform directory.
func (r *PostgresRepository) UserExists(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", userID).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// ListUserIDsByRole returns the IDs of every user holding the given directory role.
func (r *PostgresRepository) ListUserIDsByRole(ctx context.Context, role string) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, "SELECT id FROM users WHERE role = $1", role)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserIDs(rows)
}

// ListUserIDsByVerificationStatus returns the IDs of every user whose
// verification record currently has the given status.
func (r *PostgresRepository) ListUserIDsByVerificationStatus(ctx context.Context, status domain.VerificationStatus) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, "SELECT user_id FROM user_verifications WHERE status = $1", string(status))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserIDs(rows)
}

// ListAllUserIDs returns the IDs of every user in the directory.
func (r *PostgresRepository) ListAllUserIDs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, "SELECT id FROM users")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanUserIDs(rows)
}

func scanUserIDs(rows pgx.Rows) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

const verificationColumns = `
	id, user_id, status, completion_percentage, submitted_at, reviewed_at, verified_at,
	reviewer_id, remark, rejection_reason, flag_reason, government_id_url, signature_url,
	created_at, updated_at
`

func scanVerification(row pgx.Row) (*domain.UserVerification, error) {
	var v domain.UserVerification
	err := row.Scan(
		&v.ID,
		&v.UserID,
		&v.Status,
		&v.CompletionPercentage,
		&v.SubmittedAt,
		&v.ReviewedAt,
		&v.VerifiedAt,
		&v.ReviewerID,
		&v.Remark,
		&v.RejectionReason,
		&v.FlagReason,
		&v.GovernmentIDURL,
		&v.SignatureURL,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// FindVerificationByUserID retrieves a user's verification record.
func (r *PostgresRepository) FindVerificationByUserID(ctx context.Context, userID uuid.UUID) (*domain.UserVerification, error) {
	query := fmt.Sprintf("SELECT %s FROM user_verifications WHERE user_id = $1", verificationColumns)
	v, err := scanVerification(r.db.QueryRow(ctx, query, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrVerificationNotFound
		}
		return nil, err
	}
	return v, nil
}

// ensureVerificationRowTx creates the verification row with its defaults if the
// user does not have one yet. The row starts in the implicit "updating" state.
func ensureVerificationRowTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	query := `
		INSERT INTO user_verifications (id, user_id, status, completion_percentage)
		VALUES ($1, $2, 'updating', 0)
		ON CONFLICT (user_id) DO NOTHING
	`
	_, err := tx.Exec(ctx, query, uuid.New(), userID)
	return err
}

func userExistsTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) error {
	var exists bool
	if err := tx.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", userID).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return ErrUserNotFound
	}
	return nil
}

// MarkVerificationSubmitted moves a user's verification record into the
// submitted state. The record is created lazily when the profile exists without
// one; a missing profile is ErrUserNotFound.
func (r *PostgresRepository) MarkVerificationSubmitted(ctx context.Context, userID uuid.UUID) (*domain.UserVerification, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := userExistsTx(ctx, tx, userID); err != nil {
		return nil, err
	}
	if err := ensureVerificationRowTx(ctx, tx, userID); err != nil {
		return nil, mapTxError(err)
	}

	query := fmt.Sprintf(`
		UPDATE user_verifications
		SET status = 'submitted', submitted_at = NOW(), updated_at = NOW()
		WHERE user_id = $1
		RETURNING %s
	`, verificationColumns)
	v, err := scanVerification(tx.QueryRow(ctx, query, userID))
	if err != nil {
		return nil, mapTxError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapTxError(err)
	}
	return v, nil
}

// ApplyVerificationTransition applies an administrator status transition and
// writes the paired ledger notification in one transaction. A re-applied
// transition is a no-op on the record but still inserts the new notification.
func (r *PostgresRepository) ApplyVerificationTransition(ctx context.Context, userID uuid.UUID, params VerificationTransitionParams, notification domain.Notification) (*domain.UserVerification, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := userExistsTx(ctx, tx, userID); err != nil {
		return nil, err
	}
	if err := ensureVerificationRowTx(ctx, tx, userID); err != nil {
		return nil, mapTxError(err)
	}

	query := "UPDATE user_verifications SET status = $1, updated_at = NOW()"
	args := []interface{}{string(params.Status)}
	argPos := 2

	if params.ReviewedAt != nil {
		query += fmt.Sprintf(", reviewed_at = $%d", argPos)
		args = append(args, *params.ReviewedAt)
		argPos++
	}
	if params.ReviewerID != nil {
		query += fmt.Sprintf(", reviewer_id = $%d", argPos)
		args = append(args, *params.ReviewerID)
		argPos++
	}
	if params.Remark != nil {
		query += fmt.Sprintf(", remark = $%d", argPos)
		args = append(args, *params.Remark)
		argPos++
	}
	if params.RejectionReason != nil {
		query += fmt.Sprintf(", rejection_reason = $%d", argPos)
		args = append(args, *params.RejectionReason)
		argPos++
	}
	if params.FlagReason != nil {
		query += fmt.Sprintf(", flag_reason = $%d", argPos)
		args = append(args, *params.FlagReason)
		argPos++
	}
	if params.ClearReasons {
		query += ", rejection_reason = NULL, flag_reason = NULL"
	}
	if params.SetVerifiedAt {
		query += ", verified_at = NOW()"
	}

	query += fmt.Sprintf(" WHERE user_id = $%d RETURNING %s", argPos, verificationColumns)
	args = append(args, userID)

	v, err := scanVerification(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapTxError(err)
	}

	if err := insertNotificationTx(ctx, tx, notification); err != nil {
		return nil, mapTxError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapTxError(err)
	}
	return v, nil
}

// UpdateVerificationDocuments updates the user-editable document fields. The
// verification row is created lazily on the first profile write.
func (r *PostgresRepository) UpdateVerificationDocuments(ctx context.Context, userID uuid.UUID, update domain.VerificationDocumentsUpdate) (*domain.UserVerification, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if err := userExistsTx(ctx, tx, userID); err != nil {
		return nil, err
	}
	if err := ensureVerificationRowTx(ctx, tx, userID); err != nil {
		return nil, mapTxError(err)
	}

	query := "UPDATE user_verifications SET updated_at = NOW()"
	args := []interface{}{}
	argPos := 1

	if update.GovernmentIDURL != nil {
		query += fmt.Sprintf(", government_id_url = $%d", argPos)
		args = append(args, *update.GovernmentIDURL)
		argPos++
	}
	if update.SignatureURL != nil {
		query += fmt.Sprintf(", signature_url = $%d", argPos)
		args = append(args, *update.SignatureURL)
		argPos++
	}
	if update.CompletionPercentage != nil {
		query += fmt.Sprintf(", completion_percentage = $%d", argPos)
		args = append(args, *update.CompletionPercentage)
		argPos++
	}

	query += fmt.Sprintf(" WHERE user_id = $%d RETURNING %s", argPos, verificationColumns)
	args = append(args, userID)

	v, err := scanVerification(tx.QueryRow(ctx, query, args...))
	if err != nil {
		return nil, mapTxError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapTxError(err)
	}
	return v, nil
}

// GetVerificationStats aggregates record counts per status.
func (r *PostgresRepository) GetVerificationStats(ctx context.Context) (*domain.VerificationStats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status = 'updating') AS updating,
			COUNT(*) FILTER (WHERE status = 'submitted') AS submitted,
			COUNT(*) FILTER (WHERE status = 'verified') AS verified,
			COUNT(*) FILTER (WHERE status = 'rejected') AS rejected,
			COUNT(*) FILTER (WHERE status = 'flagged') AS flagged,
			COUNT(*) FILTER (WHERE status = 'suspended') AS suspended
		FROM user_verifications
	`
	var stats domain.VerificationStats
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.Total,
		&stats.Updating,
		&stats.Submitted,
		&stats.Verified,
		&stats.Rejected,
		&stats.Flagged,
		&stats.Suspended,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}
