package users

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/shelfwatch/shelfwatch/pkg/auth"
	"github.com/shelfwatch/shelfwatch/pkg/database"
	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/models"
	"github.com/uptrace/bun"
)

// Service handles user operations.
type Service struct {
	db *bun.DB
}

// NewService creates a new users service.
func NewService(db *bun.DB) *Service {
	return &Service{db: db}
}

type CreateUserOptions struct {
	Username string
	Password string
	IsAdmin  bool
}

type RetrieveUserOptions struct {
	ID       *int
	Username *string
}

type ListUsersOptions struct {
	Limit  *int
	Offset *int
}

type UpdateUserOptions struct {
	Columns []string
}

// CreateUser hashes the password and stores the user. The first user ever
// created is always an admin.
func (s *Service) CreateUser(ctx context.Context, opts CreateUserOptions) (*models.User, error) {
	username := strings.TrimSpace(opts.Username)
	if username == "" {
		return nil, errcodes.ValidationError("Username cannot be empty.")
	}

	hashedPassword, err := auth.HashPassword(opts.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user := &models.User{
		CreatedAt:    now,
		UpdatedAt:    now,
		Username:     username,
		PasswordHash: hashedPassword,
		IsAdmin:      opts.IsAdmin,
	}

	err = s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		count, err := tx.NewSelect().Model((*models.User)(nil)).Count(ctx)
		if err != nil {
			return errors.WithStack(err)
		}
		if count == 0 {
			user.IsAdmin = true
		}

		_, err = tx.NewInsert().Model(user).Returning("*").Exec(ctx)
		if database.IsUniqueViolation(err) {
			return errcodes.Conflict("Username is already taken.")
		}
		return errors.WithStack(err)
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return user, nil
}

func (s *Service) RetrieveUser(ctx context.Context, opts RetrieveUserOptions) (*models.User, error) {
	user := &models.User{}
	q := s.db.NewSelect().Model(user)
	if opts.ID != nil {
		q = q.Where("u.id = ?", *opts.ID)
	}
	if opts.Username != nil {
		q = q.Where("u.username = ? COLLATE NOCASE", *opts.Username)
	}

	err := q.Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("User")
		}
		return nil, errors.WithStack(err)
	}
	return user, nil
}

// ListUsersWithTotal returns a page of users ordered by username, and the
// total count.
func (s *Service) ListUsersWithTotal(ctx context.Context, opts ListUsersOptions) ([]*models.User, int, error) {
	users := []*models.User{}

	q := s.db.NewSelect().
		Model(&users).
		OrderExpr("u.username COLLATE NOCASE ASC")
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
	return users, total, nil
}

// ListAdminIDs returns the IDs of every admin, for system notifications.
func (s *Service) ListAdminIDs(ctx context.Context) ([]int, error) {
	var ids []int
	err := s.db.NewSelect().
		Model((*models.User)(nil)).
		Column("id").
		Where("is_admin = ?", true).
		Order("id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return ids, nil
}

func (s *Service) UpdateUser(ctx context.Context, user *models.User, opts UpdateUserOptions) error {
	if len(opts.Columns) == 0 {
		return nil
	}

	for _, col := range opts.Columns {
		if col == "is_admin" && !user.IsAdmin {
			if err := s.requireAnotherAdmin(ctx, user.ID); err != nil {
				return err
			}
		}
	}

	user.UpdatedAt = time.Now()
	columns := append(append([]string{}, opts.Columns...), "updated_at")

	res, err := s.db.NewUpdate().
		Model(user).
		Column(columns...).
		WherePK().
		Exec(ctx)
	if database.IsUniqueViolation(err) {
		return errcodes.Conflict("Username is already taken.")
	}
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("User")
	}
	return nil
}

// ResetPassword replaces the user's password.
func (s *Service) ResetPassword(ctx context.Context, userID int, newPassword string) error {
	hashedPassword, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	res, err := s.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("password_hash = ?", hashedPassword).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("User")
	}
	return nil
}

// VerifyPassword checks if the password is correct for a user.
func (s *Service) VerifyPassword(ctx context.Context, userID int, password string) (bool, error) {
	user, err := s.RetrieveUser(ctx, RetrieveUserOptions{ID: &userID})
	if err != nil {
		return false, err
	}
	return auth.CheckPassword(password, user.PasswordHash), nil
}

// DeleteUser removes the user with their notifications and watchlists. The
// last admin cannot be deleted.
func (s *Service) DeleteUser(ctx context.Context, id int) error {
	user, err := s.RetrieveUser(ctx, RetrieveUserOptions{ID: &id})
	if err != nil {
		return err
	}
	if user.IsAdmin {
		if err := s.requireAnotherAdmin(ctx, id); err != nil {
			return err
		}
	}

	_, err = s.db.NewDelete().
		Model((*models.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return errors.WithStack(err)
}

func (s *Service) requireAnotherAdmin(ctx context.Context, exceptID int) error {
	others, err := s.db.NewSelect().
		Model((*models.User)(nil)).
		Where("is_admin = ?", true).
		Where("id != ?", exceptID).
		Count(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if others == 0 {
		return errcodes.ValidationError("At least one admin must remain.")
	}
	return nil
}
