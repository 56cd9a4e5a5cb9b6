package repository

import (
	"context"
	"database/sql"

	"github.com/civicworks/facility-reservation/internal/model"
)

// NotificationRepo stores user-facing notifications.  Its Notify
// method satisfies booking.Notifier so the sweeper can write
// notifications directly; the API server instead publishes queue
// events and lets the consumer call Insert.
type NotificationRepo struct{ DB *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

// Insert stores one notification row.
func (r *NotificationRepo) Insert(ctx context.Context, n model.Notification) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO notifications (user_id, type, title, message, link) VALUES (?,?,?,?,?)",
		n.UserID, n.Type, n.Title, n.Message, n.Link)
	return err
}

// Notify implements booking.Notifier.
func (r *NotificationRepo) Notify(ctx context.Context, userID uint64, typ, title, message, link string) error {
	n := model.Notification{UserID: userID, Type: typ, Title: title, Message: message}
	if link != "" {
		n.Link = &link
	}
	return r.Insert(ctx, n)
}

// ListByUser returns a user's notifications, newest first.
func (r *NotificationRepo) ListByUser(ctx context.Context, userID uint64, limit int) ([]model.Notification, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, user_id, type, title, message, link, read_at, created_at
FROM notifications WHERE user_id=? ORDER BY id DESC LIMIT ?`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &n.Link, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// MarkRead marks one notification read, scoped to the owner.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE notifications SET read_at=UTC_TIMESTAMP() WHERE id=? AND user_id=? AND read_at IS NULL",
		id, userID)
	return err
}
