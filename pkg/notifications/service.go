package notifications

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/uptrace/bun"
)

type CreateNotificationOptions struct {
	UserID  int
	Type    string
	Title   string
	Message string
	Link    *string
}

type ListNotificationsOptions struct {
	Limit      *int
	Offset     *int
	UserID     int
	UnreadOnly bool
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

func (svc *Service) CreateNotification(ctx context.Context, opts CreateNotificationOptions) (*models.Notification, error) {
	return createNotification(ctx, svc.db, opts)
}

// CreateNotificationTx creates the notification inside an existing
// transaction, so it commits together with whatever caused it.
func CreateNotificationTx(ctx context.Context, tx bun.IDB, opts CreateNotificationOptions) (*models.Notification, error) {
	return createNotification(ctx, tx, opts)
}

func createNotification(ctx context.Context, db bun.IDB, opts CreateNotificationOptions) (*models.Notification, error) {
	if opts.Title == "" {
		return nil, errcodes.ValidationError("Notification title cannot be empty.")
	}
	n := &models.Notification{
		CreatedAt: time.Now(),
		UserID:    opts.UserID,
		Type:      opts.Type,
		Title:     opts.Title,
		Message:   opts.Message,
		Link:      opts.Link,
	}
	if _, err := db.NewInsert().Model(n).Returning("*").Exec(ctx); err != nil {
		return nil, errors.WithStack(err)
	}
	return n, nil
}

// NotifyAdmins sends the same notification to every admin and returns how
// many were created.
func (svc *Service) NotifyAdmins(ctx context.Context, opts CreateNotificationOptions) (int, error) {
	var adminIDs []int
	err := svc.db.NewSelect().
		Model((*models.User)(nil)).
		Column("id").
		Where("is_admin = ?", true).
		Scan(ctx, &adminIDs)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	for _, id := range adminIDs {
		opts.UserID = id
		if _, err := svc.CreateNotification(ctx, opts); err != nil {
			return 0, err
		}
	}
	return len(adminIDs), nil
}

// RetrieveNotification loads a notification owned by userID. Someone else's
// notification is reported as missing.
func (svc *Service) RetrieveNotification(ctx context.Context, id, userID int) (*models.Notification, error) {
	n := &models.Notification{}
	err := svc.db.NewSelect().
		Model(n).
		Where("n.id = ?", id).
		Where("n.user_id = ?", userID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Notification")
		}
		return nil, errors.WithStack(err)
	}
	return n, nil
}

// ListNotificationsWithTotal returns the newest notifications first.
func (svc *Service) ListNotificationsWithTotal(ctx context.Context, opts ListNotificationsOptions) ([]*models.Notification, int, error) {
	notifications := []*models.Notification{}

	q := svc.db.NewSelect().
		Model(&notifications).
		Where("n.user_id = ?", opts.UserID).
		Order("n.created_at DESC", "n.id DESC")
	if opts.UnreadOnly {
		q = q.Where("n.read_at IS NULL")
	}
	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}

	total, err := q.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}
	return notifications, total, nil
}

func (svc *Service) UnreadCount(ctx context.Context, userID int) (int, error) {
	count, err := svc.db.NewSelect().
		Model((*models.Notification)(nil)).
		Where("user_id = ?", userID).
		Where("read_at IS NULL").
		Count(ctx)
	return count, errors.WithStack(err)
}

// MarkRead marks one notification read. Marking an already read notification
// keeps its original read_at.
func (svc *Service) MarkRead(ctx context.Context, id, userID int) (*models.Notification, error) {
	n, err := svc.RetrieveNotification(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if n.ReadAt != nil {
		return n, nil
	}

	now := time.Now()
	n.ReadAt = &now
	_, err = svc.db.NewUpdate().
		Model(n).
		Column("read_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return n, nil
}

// MarkAllRead marks every unread notification of the user and returns how
// many changed.
func (svc *Service) MarkAllRead(ctx context.Context, userID int) (int, error) {
	res, err := svc.db.NewUpdate().
		Model((*models.Notification)(nil)).
		Set("read_at = ?", time.Now()).
		Where("user_id = ?", userID).
		Where("read_at IS NULL").
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}
	n, err := res.RowsAffected()
	return int(n), errors.WithStack(err)
}

func (svc *Service) DeleteNotification(ctx context.Context, id, userID int) error {
	res, err := svc.db.NewDelete().
		Model((*models.Notification)(nil)).
		Where("id = ?", id).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("Notification")
	}
	return nil
}
