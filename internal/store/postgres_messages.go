/**
 * @description
 * PostgreSQL implementation of the broadcast fan-out persistence. The whole
 * fan-out (one admin_messages row, N message_recipients rows, N notifications
 * rows) commits as one transaction. Recipient rows are unique on
 * (message_id, user_id) and inserted with ON CONFLICT DO NOTHING, and the paired
 * notifications carry a dedupe key on the same pair, so replaying the write
 * phase of a fan-out can never produce duplicate deliveries.
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

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/singflex/moderation-service/internal/domain"
)

// CreateMessageWithRecipients persists one authored broadcast together with all
// of its per-recipient delivery records and ledger notifications.
func (r *PostgresRepository) CreateMessageWithRecipients(ctx context.Context, msg *domain.AdminMessage, recipients []domain.MessageRecipient, notifications []domain.Notification) error {
	filterJSON, err := json.Marshal(msg.RecipientFilter)
	if err != nil {
		return err
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	messageQuery := `
		INSERT INTO admin_messages (id, sender_id, recipient_type, recipient_filter, subject, body, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := tx.Exec(ctx, messageQuery,
		msg.ID,
		msg.SenderID,
		string(msg.RecipientType),
		filterJSON,
		msg.Subject,
		msg.Body,
		msg.SentAt,
	); err != nil {
		return mapTxError(err)
	}

	recipientQuery := `
		INSERT INTO message_recipients (id, message_id, user_id, read)
		VALUES ($1, $2, $3, FALSE)
		ON CONFLICT (message_id, user_id) DO NOTHING
	`
	for _, recipient := range recipients {
		if _, err := tx.Exec(ctx, recipientQuery, recipient.ID, recipient.MessageID, recipient.UserID); err != nil {
			return mapTxError(err)
		}
	}

	for _, n := range notifications {
		if err := insertNotificationTx(ctx, tx, n); err != nil {
			return mapTxError(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return mapTxError(err)
	}
	return nil
}

// MarkMessageRead marks the (message, user) delivery record read and flips the
// matching ledger notification in the same transaction. Marking an already-read
// delivery again succeeds and leaves read_at at the first call's timestamp.
func (r *PostgresRepository) MarkMessageRead(ctx context.Context, messageID uuid.UUID, userID uuid.UUID) (*domain.MessageRecipient, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE message_recipients
		SET read = TRUE, read_at = COALESCE(read_at, NOW())
		WHERE message_id = $1 AND user_id = $2
		RETURNING id, message_id, user_id, read, read_at, created_at
	`
	var recipient domain.MessageRecipient
	err = tx.QueryRow(ctx, query, messageID, userID).Scan(
		&recipient.ID,
		&recipient.MessageID,
		&recipient.UserID,
		&recipient.Read,
		&recipient.ReadAt,
		&recipient.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrMessageRecipientNotFound
		}
		return nil, mapTxError(err)
	}

	notificationQuery := `
		UPDATE notifications
		SET status = 'read', read = TRUE, updated_at = NOW()
		WHERE user_id = $1
		  AND type = $2
		  AND metadata->>'message_id' = $3
		  AND status = 'unread'
	`
	if _, err := tx.Exec(ctx, notificationQuery, userID, domain.NotificationTypeAdminMessage, messageID.String()); err != nil {
		return nil, mapTxError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, mapTxError(err)
	}
	return &recipient, nil
}

// ListInboxMessages returns a user's delivery records joined with their authored
// messages, newest first.
func (r *PostgresRepository) ListInboxMessages(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]domain.InboxMessage, error) {
	query := `
		SELECT r.id, r.message_id, m.sender_id, m.subject, m.body, r.read, r.read_at, m.sent_at
		FROM message_recipients r
		JOIN admin_messages m ON m.id = r.message_id
		WHERE r.user_id = $1
	`
	if unreadOnly {
		query += " AND r.read = FALSE"
	}
	query += " ORDER BY m.sent_at DESC"

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.InboxMessage, 0)
	for rows.Next() {
		var item domain.InboxMessage
		if err := rows.Scan(
			&item.RecipientID,
			&item.MessageID,
			&item.SenderID,
			&item.Subject,
			&item.Body,
			&item.Read,
			&item.ReadAt,
			&item.SentAt,
		); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// ListMessages returns the paginated admin message log with delivery and read
// counts per message, newest first.
func (r *PostgresRepository) ListMessages(ctx context.Context, opts domain.MessageListOptions) ([]domain.MessageSummary, int64, error) {
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

	countQuery := "SELECT COUNT(*) FROM admin_messages"
	countArgs := []interface{}{}
	if opts.SenderID != nil {
		countQuery += " WHERE sender_id = $1"
		countArgs = append(countArgs, *opts.SenderID)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT
			m.id, m.sender_id, m.recipient_type, m.recipient_filter, m.subject, m.body,
			m.sent_at, m.created_at,
			COUNT(r.id) AS recipient_count,
			COUNT(r.id) FILTER (WHERE r.read) AS read_count
		FROM admin_messages m
		LEFT JOIN message_recipients r ON r.message_id = m.id
	`
	args := []interface{}{}
	argPos := 1
	if opts.SenderID != nil {
		query += fmt.Sprintf(" WHERE m.sender_id = $%d", argPos)
		args = append(args, *opts.SenderID)
		argPos++
	}
	query += fmt.Sprintf(" GROUP BY m.id ORDER BY m.sent_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	summaries := make([]domain.MessageSummary, 0, limit)
	for rows.Next() {
		var s domain.MessageSummary
		var filterJSON []byte
		if err := rows.Scan(
			&s.ID,
			&s.SenderID,
			&s.RecipientType,
			&filterJSON,
			&s.Subject,
			&s.Body,
			&s.SentAt,
			&s.CreatedAt,
			&s.RecipientCount,
			&s.ReadCount,
		); err != nil {
			return nil, 0, err
		}
		if len(filterJSON) > 0 {
			if err := json.Unmarshal(filterJSON, &s.RecipientFilter); err != nil {
				return nil, 0, err
			}
		}
		summaries = append(summaries, s)
	}
	return summaries, total, rows.Err()
}
