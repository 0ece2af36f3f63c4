package repositories

import (
	"context"
	"testing"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestCreateWithAadhaarRecordIsAtomic(t *testing.T) {
	db := testutil.NewDB(t)
	f := testutil.Seed(t, db, 1)
	repo := NewUserRepository(db)
	ctx := context.Background()

	user := &models.User{Email: "new@example.com", PhoneNumber: "+911111111111", Password: "x", Role: models.RoleUser, IsActive: true}
	// the Aadhaar number collides, so the user insert must be rolled back too
	record := &models.AadhaarRecord{AadhaarNumber: f.Record.AadhaarNumber, FullName: "Dup"}

	err := repo.CreateWithAadhaarRecord(ctx, user, record)
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	exists, err := repo.ExistsByEmail(ctx, "new@example.com")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestListUsersFilters(t *testing.T) {
	db := testutil.NewDB(t)
	testutil.Seed(t, db, 1)
	repo := NewUserRepository(db)
	ctx := context.Background()

	officer := &models.User{Email: "officer@example.com", PhoneNumber: "+912222222222", Password: "x", Role: models.RoleOfficer, IsActive: true}
	require.NoError(t, repo.Create(ctx, officer))
	require.NoError(t, repo.SetActive(ctx, officer.ID, false))

	users, total, err := repo.List(ctx, UserFilter{Role: models.RoleOfficer}, newParams())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, users, 1)
	assert.False(t, users[0].IsActive)

	active := true
	_, total, err = repo.List(ctx, UserFilter{Active: &active}, newParams())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = repo.List(ctx, UserFilter{Search: "officer@"}, newParams())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestDeletingUserRemovesAadhaarRecord(t *testing.T) {
	db := testutil.NewFileDB(t, 1)
	f := testutil.Seed(t, db, 1)
	repo := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Delete(&models.User{}, f.User.ID).Error)

	var users int64
	require.NoError(t, db.Table("users").Where("id = ?", f.User.ID).Count(&users).Error)
	assert.Zero(t, users)

	exists, err := repo.ExistsByEmail(ctx, f.User.Email)
	require.NoError(t, err)
	assert.False(t, exists)

	var records int64
	require.NoError(t, db.Model(&models.AadhaarRecord{}).Where("user_id = ?", f.User.ID).Count(&records).Error)
	assert.Zero(t, records)
}
