package users

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"

	"github.com/shelfwatch/shelfwatch/pkg/errcodes"
	"github.com/shelfwatch/shelfwatch/pkg/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	require.NoError(t, err)

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func httpCode(err error) int {
	var ec *errcodes.Error
	if errors.As(err, &ec) {
		return ec.HTTPCode
	}
	return 0
}

func TestCreateUser_FirstUserIsAdmin(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	first, err := svc.CreateUser(ctx, CreateUserOptions{Username: "  owner ", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "owner", first.Username)
	assert.True(t, first.IsAdmin)
	assert.NotEqual(t, "password123", first.PasswordHash)

	second, err := svc.CreateUser(ctx, CreateUserOptions{Username: "reader", Password: "password123"})
	require.NoError(t, err)
	assert.False(t, second.IsAdmin)

	_, err = svc.CreateUser(ctx, CreateUserOptions{Username: "READER", Password: "password123"})
	assert.Equal(t, http.StatusConflict, httpCode(err))

	_, err = svc.CreateUser(ctx, CreateUserOptions{Username: "   ", Password: "password123"})
	assert.Equal(t, http.StatusUnprocessableEntity, httpCode(err))
}

func TestRetrieveUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	created, err := svc.CreateUser(ctx, CreateUserOptions{Username: "Alice", Password: "password123"})
	require.NoError(t, err)

	name := "alice"
	got, err := svc.RetrieveUser(ctx, RetrieveUserOptions{Username: &name})
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	missing := 999
	_, err = svc.RetrieveUser(ctx, RetrieveUserOptions{ID: &missing})
	assert.True(t, errcodes.IsNotFound(err))
}

func TestListUsersWithTotal(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	for _, name := range []string{"charlie", "Alice", "bob"} {
		_, err := svc.CreateUser(ctx, CreateUserOptions{Username: name, Password: "password123"})
		require.NoError(t, err)
	}

	limit, offset := 2, 0
	users, total, err := svc.ListUsersWithTotal(ctx, ListUsersOptions{Limit: &limit, Offset: &offset})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, users, 2)
	assert.Equal(t, "Alice", users[0].Username)
	assert.Equal(t, "bob", users[1].Username)

	ids, err := svc.ListAdminIDs(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 1)
}

func TestUpdateUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	admin, err := svc.CreateUser(ctx, CreateUserOptions{Username: "admin", Password: "password123"})
	require.NoError(t, err)
	reader, err := svc.CreateUser(ctx, CreateUserOptions{Username: "reader", Password: "password123"})
	require.NoError(t, err)

	reader.Username = "admin"
	err = svc.UpdateUser(ctx, reader, UpdateUserOptions{Columns: []string{"username"}})
	assert.Equal(t, http.StatusConflict, httpCode(err))

	// The only admin cannot demote themselves.
	admin.IsAdmin = false
	err = svc.UpdateUser(ctx, admin, UpdateUserOptions{Columns: []string{"is_admin"}})
	assert.Equal(t, http.StatusUnprocessableEntity, httpCode(err))

	reader.Username = "librarian"
	reader.IsAdmin = true
	require.NoError(t, svc.UpdateUser(ctx, reader, UpdateUserOptions{Columns: []string{"username", "is_admin"}}))

	got, err := svc.RetrieveUser(ctx, RetrieveUserOptions{ID: &reader.ID})
	require.NoError(t, err)
	assert.Equal(t, "librarian", got.Username)
	assert.True(t, got.IsAdmin)

	ids, err := svc.ListAdminIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{admin.ID, reader.ID}, ids)
}

func TestResetPassword(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	user, err := svc.CreateUser(ctx, CreateUserOptions{Username: "reader", Password: "password123"})
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, user.ID, "new-password-456"))

	ok, err := svc.VerifyPassword(ctx, user.ID, "password123")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.VerifyPassword(ctx, user.ID, "new-password-456")
	require.NoError(t, err)
	assert.True(t, ok)

	err = svc.ResetPassword(ctx, 999, "new-password-456")
	assert.True(t, errcodes.IsNotFound(err))
}

func TestDeleteUser(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc := NewService(setupTestDB(t))

	admin, err := svc.CreateUser(ctx, CreateUserOptions{Username: "admin", Password: "password123"})
	require.NoError(t, err)
	reader, err := svc.CreateUser(ctx, CreateUserOptions{Username: "reader", Password: "password123"})
	require.NoError(t, err)

	err = svc.DeleteUser(ctx, admin.ID)
	assert.Equal(t, http.StatusUnprocessableEntity, httpCode(err))

	require.NoError(t, svc.DeleteUser(ctx, reader.ID))
	_, err = svc.RetrieveUser(ctx, RetrieveUserOptions{ID: &reader.ID})
	assert.True(t, errcodes.IsNotFound(err))

	err = svc.DeleteUser(ctx, reader.ID)
	assert.True(t, errcodes.IsNotFound(err))
}
