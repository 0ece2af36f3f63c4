package services

import (
	"context"
	"testing"
	"time"

	"aadhaar-seva/internal/adapters/persistence/models"
	"aadhaar-seva/internal/adapters/persistence/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) updateHistoryService() *UpdateHistoryService {
	return NewUpdateHistoryService(repositories.NewUpdateHistoryRepository(e.db), e.records, e.users, e.appointments)
}

func TestGenerateURN(t *testing.T) {
	urn, err := GenerateURN(time.Date(2030, 1, 15, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Regexp(t, `^URN20300115[0-9]{6}$`, urn)
}

func TestSubmitAndApproveEmailChange(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.updateHistoryService()
	ctx := context.Background()

	require.NoError(t, e.records.MarkVerified(ctx, e.fixture.Record.AadhaarNumber, "email_verified", time.Now()))

	req, err := svc.Submit(ctx, e.citizen(), &UpdateRequestInput{FieldName: "email", NewValue: " new@example.com "})
	require.NoError(t, err)
	assert.Equal(t, models.UpdatePending, req.Status)
	assert.Equal(t, e.fixture.Record.Email, req.OldValue)
	assert.Equal(t, "new@example.com", req.NewValue)

	approved, err := svc.Approve(ctx, 999, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.UpdateApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, uint(999), *approved.ReviewedBy)

	record, err := e.records.GetByID(ctx, e.fixture.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", record.Email)
	assert.False(t, record.EmailVerified)

	_, err = svc.Approve(ctx, 999, req.ID)
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
}

func TestApprovedContactChangeMovesToUser(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.updateHistoryService()
	ctx := context.Background()

	req, err := svc.Submit(ctx, e.citizen(), &UpdateRequestInput{FieldName: "email", NewValue: "Moved@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "moved@example.com", req.NewValue)

	_, err = svc.Approve(ctx, 999, req.ID)
	require.NoError(t, err)

	user, err := e.users.GetByID(ctx, e.fixture.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "moved@example.com", user.Email)

	_, err = e.authService().Signup(ctx, &SignupInput{
		AadhaarNumber: "555566667777",
		FullName:      "Second Citizen",
		Email:         "moved@example.com",
		PhoneNumber:   "+919811111111",
		Password:      "secret123",
	})
	assert.ErrorIs(t, err, ErrEmailRegistered)

	byEmail, err := e.users.GetByEmail(ctx, "moved@example.com")
	require.NoError(t, err)
	assert.Equal(t, e.fixture.User.ID, byEmail.ID)
}

func TestContactChangeToTakenValue(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.updateHistoryService()
	ctx := context.Background()

	other := &models.User{
		Email:       "taken@example.com",
		PhoneNumber: "+919800000001",
		Password:    "x",
		Role:        models.RoleUser,
		IsActive:    true,
	}
	require.NoError(t, e.db.Create(other).Error)

	_, err := svc.Submit(ctx, e.citizen(), &UpdateRequestInput{FieldName: "email", NewValue: "taken@example.com"})
	assert.ErrorIs(t, err, ErrEmailRegistered)

	_, err = svc.Submit(ctx, e.citizen(), &UpdateRequestInput{FieldName: "phone_number", NewValue: "+919800000001"})
	assert.ErrorIs(t, err, ErrPhoneRegistered)

	// claimed by someone else between submit and approval
	req, err := svc.Submit(ctx, e.citizen(), &UpdateRequestInput{FieldName: "phone_number", NewValue: "+919800000002"})
	require.NoError(t, err)
	require.NoError(t, e.db.Model(other).Update("phone_number", "+919800000002").Error)

	_, err = svc.Approve(ctx, 999, req.ID)
	assert.ErrorIs(t, err, ErrPhoneRegistered)

	pending, err := svc.GetByURN(ctx, e.citizen(), req.URN)
	require.NoError(t, err)
	assert.Equal(t, models.UpdatePending, pending.Status)

	record, err := e.records.GetByID(ctx, e.fixture.Record.ID)
	require.NoError(t, err)
	assert.Equal(t, e.fixture.Record.PhoneNumber, record.PhoneNumber)
}

func TestSubmitValidation(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.updateHistoryService()
	ctx := context.Background()

	_, err := svc.Submit(ctx, e.citizen(), &UpdateRequestInput{FieldName: "aadhaar_number", NewValue: "111122223333"})
	assert.ErrorIs(t, err, ErrFieldNotUpdatable)

	_, err = svc.Submit(ctx, e.citizen(), &UpdateRequestInput{FieldName: "full_name", NewValue: e.fixture.Record.FullName})
	assert.ErrorIs(t, err, ErrNoChange)

	_, err = svc.Submit(ctx, e.citizen(), &UpdateRequestInput{FieldName: "email", NewValue: "not-an-email"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email must be a valid email address", verr.Message)

	_, err = svc.Submit(ctx, officer(), &UpdateRequestInput{FieldName: "address", NewValue: "1 MG Road"})
	assert.ErrorIs(t, err, ErrNoAadhaarRecord)
}

func TestRejectUpdateRequest(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.updateHistoryService()
	ctx := context.Background()

	req, err := svc.Submit(ctx, e.citizen(), &UpdateRequestInput{FieldName: "address", NewValue: "1 MG Road, Bengaluru"})
	require.NoError(t, err)

	_, err = svc.Reject(ctx, 999, req.ID, &RejectInput{})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	rejected, err := svc.Reject(ctx, 999, req.ID, &RejectInput{Remarks: "proof of address missing"})
	require.NoError(t, err)
	assert.Equal(t, models.UpdateRejected, rejected.Status)
	assert.Equal(t, "proof of address missing", rejected.Remarks)

	_, err = svc.Approve(ctx, 999, req.ID)
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	record, err := e.records.GetByID(ctx, e.fixture.Record.ID)
	require.NoError(t, err)
	assert.Empty(t, record.Address)

	got, err := svc.GetByURN(ctx, e.citizen(), req.URN)
	require.NoError(t, err)
	assert.Equal(t, req.ID, got.ID)

	_, err = svc.GetByURN(ctx, Actor{UserID: 3, RecordID: 9999, Role: models.RoleUser}, req.URN)
	assert.ErrorIs(t, err, ErrUpdateRequestNotFound)
}

func TestSubmitRetriesURNCollision(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.updateHistoryService()
	ctx := context.Background()

	svc.newURN = func(time.Time) (string, error) { return "URN20300115000001", nil }
	_, err := svc.Submit(ctx, e.citizen(), &UpdateRequestInput{FieldName: "gender", NewValue: "female"})
	require.NoError(t, err)

	_, err = svc.Submit(ctx, e.citizen(), &UpdateRequestInput{FieldName: "full_name", NewValue: "Asha R"})
	assert.ErrorIs(t, err, ErrURNUnavailable)

	pending, total, err := svc.ListByStatus(ctx, models.UpdatePending, newParams())
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, pending, 1)
	require.NotNil(t, pending[0].AadhaarRecord)
}
