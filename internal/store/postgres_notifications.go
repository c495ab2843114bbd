/**
 * @description
 * PostgreSQL implementation of the notification ledger. Notifications are
 * insert-only; the read path transitions status (unread -> read -> archived)
 * and keeps the derived read flag in sync within the same UPDATE. The
 * (user_id, read) composite index serves the dominant "unread for user" query.
 *
 * @dependencies
 * - context, encoding/json: Standard Go libraries.
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 * - internal/domain: Contains the domain models used for data transfer.
 */

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/singflex/moderation-service/internal/domain"
)

const notificationColumns = `
	id, user_id, type, title, message, status, read, metadata, created_at, updated_at
`

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	var n domain.Notification
	var payload []byte
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&n.Type,
		&n.Title,
		&n.Message,
		&n.Status,
		&n.Read,
		&payload,
		&n.CreatedAt,
		&n.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &n.Metadata); err != nil {
			return nil, err
		}
	}
	return &n, nil
}

// insertNotificationTx writes one ledger row inside an existing transaction.
// A non-empty dedupe key makes the insert idempotent.
func insertNotificationTx(ctx context.Context, tx pgx.Tx, n domain.Notification) error {
	metadata := n.Metadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return err
	}

	if n.DedupeKey != nil && strings.TrimSpace(*n.DedupeKey) != "" {
		query := `
			INSERT INTO notifications (id, user_id, type, title, message, status, read, metadata, dedupe_key)
			VALUES ($1, $2, $3, $4, $5, 'unread', FALSE, $6, $7)
			ON CONFLICT (dedupe_key) WHERE dedupe_key IS NOT NULL DO NOTHING
		`
		_, err = tx.Exec(ctx, query, n.ID, n.UserID, n.Type, n.Title, n.Message, metadataJSON, n.DedupeKey)
		return err
	}

	query := `
		INSERT INTO notifications (id, user_id, type, title, message, status, read, metadata, dedupe_key)
		VALUES ($1, $2, $3, $4, $5, 'unread', FALSE, $6, NULL)
	`
	_, err = tx.Exec(ctx, query, n.ID, n.UserID, n.Type, n.Title, n.Message, metadataJSON)
	return err
}

// CreateNotification inserts a single ledger row outside of a larger unit of work.
func (r *PostgresRepository) CreateNotification(ctx context.Context, n domain.Notification) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := insertNotificationTx(ctx, tx, n); err != nil {
		return mapTxError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return mapTxError(err)
	}
	return nil
}

// FindNotificationByID retrieves one notification.
func (r *PostgresRepository) FindNotificationByID(ctx context.Context, id uuid.UUID) (*domain.Notification, error) {
	query := fmt.Sprintf("SELECT %s FROM notifications WHERE id = $1", notificationColumns)
	n, err := scanNotification(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return n, nil
}

// SetNotificationStatus transitions a notification's status and keeps the read
// flag in sync: read and archived both imply read = TRUE.
func (r *PostgresRepository) SetNotificationStatus(ctx context.Context, id uuid.UUID, status domain.NotificationStatus) (*domain.Notification, error) {
	query := fmt.Sprintf(`
		UPDATE notifications
		SET status = $2, read = ($2 IN ('read', 'archived')), updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, notificationColumns)
	n, err := scanNotification(r.db.QueryRow(ctx, query, id, string(status)))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return n, nil
}

// ListNotifications returns one page of a user's notifications, newest first,
// with the total and unread counters.
func (r *PostgresRepository) ListNotifications(ctx context.Context, userID uuid.UUID, opts domain.NotificationListOptions) (*domain.NotificationPage, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	page := opts.Page
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	countQuery := "SELECT COUNT(*) FROM notifications WHERE user_id = $1"
	countArgs := []interface{}{userID}
	if opts.Status != nil {
		countQuery += " AND status = $2"
		countArgs = append(countArgs, string(*opts.Status))
	}
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, err
	}

	var unreadCount int64
	unreadQuery := "SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND read = FALSE"
	if err := r.db.QueryRow(ctx, unreadQuery, userID).Scan(&unreadCount); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM notifications WHERE user_id = $1", notificationColumns)
	args := []interface{}{userID}
	argPos := 2
	if opts.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, string(*opts.Status))
		argPos++
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]domain.Notification, 0, limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		notifications = append(notifications, *n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &domain.NotificationPage{
		Notifications: notifications,
		Page:          page,
		Limit:         limit,
		Total:         total,
		UnreadCount:   unreadCount,
	}, nil
}
