package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jayc13/my-dashboard-sub000/internal/apperrors"
	"github.com/jayc13/my-dashboard-sub000/internal/domain"
	"github.com/jayc13/my-dashboard-sub000/internal/store"
)

// NotificationRepository is C6: CRUD plus mark-read on notifications.
type NotificationRepository struct {
	store *store.Store
}

func NewNotificationRepository(s *store.Store) *NotificationRepository {
	return &NotificationRepository{store: s}
}

type notificationRow struct {
	ID        int64          `db:"id"`
	Title     string         `db:"title"`
	Message   string         `db:"message"`
	Link      sql.NullString `db:"link"`
	Type      string         `db:"type"`
	IsRead    bool           `db:"is_read"`
	CreatedAt time.Time      `db:"created_at"`
}

func (r notificationRow) toDomain() domain.Notification {
	n := domain.Notification{
		ID:        r.ID,
		Title:     r.Title,
		Message:   r.Message,
		Type:      domain.NotificationType(r.Type),
		IsRead:    r.IsRead,
		CreatedAt: r.CreatedAt,
	}
	if r.Link.Valid {
		n.Link = &r.Link.String
	}
	return n
}

// Create inserts one notification row.
func (r *NotificationRepository) Create(ctx context.Context, input domain.NotificationInput) (domain.Notification, error) {
	now := time.Now().UTC()
	var id int64
	err := r.store.DB().QueryRowContext(ctx, `
		INSERT INTO notifications (title, message, link, type, is_read, created_at)
		VALUES ($1, $2, $3, $4, false, $5)
		RETURNING id
	`, input.Title, input.Message, input.Link, input.Type, now).Scan(&id)
	if err != nil {
		return domain.Notification{}, apperrors.DBErr("create notification", err)
	}
	return domain.Notification{
		ID: id, Title: input.Title, Message: input.Message, Link: input.Link,
		Type: input.Type, IsRead: false, CreatedAt: now,
	}, nil
}

// List returns notifications newest-first.
func (r *NotificationRepository) List(ctx context.Context, limit int) ([]domain.Notification, error) {
	var rows []notificationRow
	err := r.store.DB().SelectContext(ctx, &rows, `
		SELECT id, title, message, link, type, is_read, created_at
		FROM notifications ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, apperrors.DBErr("list notifications", err)
	}
	out := make([]domain.Notification, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// MarkRead flips is_read to true for id.
func (r *NotificationRepository) MarkRead(ctx context.Context, id int64) error {
	res, err := r.store.Exec(ctx, `UPDATE notifications SET is_read = true WHERE id = $1`, id)
	if err != nil {
		return apperrors.DBErr("mark notification read", err)
	}
	if res.AffectedRows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
