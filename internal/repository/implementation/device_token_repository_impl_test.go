package implementation

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"school-admin-be/internal/model"
	"school-admin-be/internal/repository/contract"
)

func newMockedTokenRepo(t *testing.T) (contract.DeviceTokenRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{})
	require.NoError(t, err)

	return NewDeviceTokenRepository(gdb), mock
}

// Registering the same (user, token) pair again must update the existing row
// in place instead of inserting a second one.
func TestUpsertGeneratesOnConflictUpdate(t *testing.T) {
	repo, mock := newMockedTokenRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO "device_tokens" .+ ON CONFLICT \("user_id","token"\) DO UPDATE SET "is_active"=\$\d+,"last_used_at"=\$\d+,"platform"=\$\d+,"updated_at"=\$\d+ RETURNING "id"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.NewString()))
	mock.ExpectCommit()

	before := time.Now()
	token := &model.DeviceToken{
		UserId:   uuid.New(),
		Token:    "fcm-token-abc",
		Platform: model.PlatformAndroid,
	}
	require.NoError(t, repo.Upsert(context.Background(), token))
	require.NoError(t, mock.ExpectationsWereMet())

	// Re-registration marks the device live again and advances last_used_at.
	assert.True(t, token.IsActive)
	assert.False(t, token.LastUsedAt.Before(before))
}

func TestGetActiveTokensForUsersFiltersInactive(t *testing.T) {
	repo, mock := newMockedTokenRepo(t)
	userA, userB := uuid.New(), uuid.New()

	mock.ExpectQuery(`SELECT \* FROM "device_tokens" WHERE user_id IN \(\$1,\$2\) AND is_active = \$3`).
		WithArgs(userA, userB, true).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "token", "is_active"}).
			AddRow(userA, "tok-1", true).
			AddRow(userB, "tok-2", true))

	tokens, err := repo.GetActiveTokensForUsers(context.Background(), []uuid.UUID{userA, userB})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
	require.Len(t, tokens, 2)
	assert.Equal(t, "tok-1", tokens[0].Token)
	assert.Equal(t, "tok-2", tokens[1].Token)
}

func TestGetActiveTokensForUsersEmptyInputSkipsQuery(t *testing.T) {
	repo, mock := newMockedTokenRepo(t)

	tokens, err := repo.GetActiveTokensForUsers(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, tokens)
	assert.NoError(t, mock.ExpectationsWereMet())
}
