package services

import (
	"context"
	"testing"

	"aadhaar-seva/internal/adapters/persistence/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exampleSignup() *SignupInput {
	return &SignupInput{
		AadhaarNumber: "999988887777",
		FullName:      "Test Citizen",
		Email:         "a@b.com",
		PhoneNumber:   "+911234567890",
		Password:      "secret1",
	}
}

func TestSignupCreatesUserAndRecord(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.authService()

	resp, err := svc.Signup(context.Background(), exampleSignup())
	require.NoError(t, err)

	assert.NotZero(t, resp.User.ID)
	require.NotNil(t, resp.AadhaarRecord)
	assert.NotZero(t, resp.AadhaarRecord.ID)
	assert.Equal(t, resp.User.ID, resp.AadhaarRecord.UserID)
	assert.False(t, resp.AadhaarRecord.EmailVerified)
	assert.Equal(t, "999988887777", resp.User.AadhaarNumber)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)

	user, err := e.users.GetByID(context.Background(), resp.User.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "secret1", user.Password)
	assert.Equal(t, models.RoleUser, user.Role)
}

func TestSignupRejectsExistingIdentityBeforeWriting(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(in *SignupInput)
		wantErr error
	}{
		{"aadhaar", func(in *SignupInput) { in.AadhaarNumber = "123412341234" }, ErrAadhaarRegistered},
		{"email", func(in *SignupInput) { in.Email = "Citizen@Example.com" }, ErrEmailRegistered},
		{"phone", func(in *SignupInput) { in.PhoneNumber = "+919876543210" }, ErrPhoneRegistered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t, 1)
			in := exampleSignup()
			tt.mutate(in)

			_, err := e.authService().Signup(context.Background(), in)
			assert.ErrorIs(t, err, tt.wantErr)

			var users, records int64
			e.db.Model(&models.User{}).Count(&users)
			e.db.Model(&models.AadhaarRecord{}).Count(&records)
			assert.Equal(t, int64(1), users)
			assert.Equal(t, int64(1), records)
		})
	}
}

func TestSignupValidation(t *testing.T) {
	e := newEnv(t, 1)
	in := exampleSignup()
	in.Password = "abc"

	_, err := e.authService().Signup(context.Background(), in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password must be at least 6 characters", verr.Message)
}

func TestLogin(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.authService()
	ctx := context.Background()

	signed, err := svc.Signup(ctx, exampleSignup())
	require.NoError(t, err)

	resp, err := svc.Login(ctx, &LoginInput{AadhaarNumber: "999988887777", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, signed.User.ID, resp.User.ID)
	assert.NotNil(t, resp.User.LastLogin)

	_, err = svc.Login(ctx, &LoginInput{AadhaarNumber: "999988887777", Password: "wrong-pass"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &LoginInput{AadhaarNumber: "111122223333", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, &LoginInput{Password: "secret1"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	require.NoError(t, e.users.SetActive(ctx, signed.User.ID, false))
	_, err = svc.Login(ctx, &LoginInput{AadhaarNumber: "999988887777", Password: "secret1"})
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestLoginWithOTP(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.authService()
	ctx := context.Background()

	_, err := svc.Signup(ctx, exampleSignup())
	require.NoError(t, err)

	issued, err := svc.otpService.Issue(ctx, &IssueOTPInput{AadhaarNumber: "999988887777", Type: models.OTPTypeLogin})
	require.NoError(t, err)

	_, err = svc.LoginWithOTP(ctx, &OTPLoginInput{AadhaarNumber: "999988887777", Code: wrongCode(issued.Code)})
	assert.ErrorIs(t, err, ErrOTPInvalid)

	resp, err := svc.LoginWithOTP(ctx, &OTPLoginInput{AadhaarNumber: "999988887777", Code: issued.Code})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestResetPasswordRevokesSessions(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.authService()
	ctx := context.Background()

	signed, err := svc.Signup(ctx, exampleSignup())
	require.NoError(t, err)

	issued, err := svc.otpService.Issue(ctx, &IssueOTPInput{AadhaarNumber: "999988887777", Type: models.OTPTypePasswordReset})
	require.NoError(t, err)

	require.NoError(t, svc.ResetPassword(ctx, &ResetPasswordInput{
		AadhaarNumber: "999988887777",
		Code:          issued.Code,
		NewPassword:   "newsecret",
	}))

	_, err = svc.Login(ctx, &LoginInput{AadhaarNumber: "999988887777", Password: "secret1"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, &LoginInput{AadhaarNumber: "999988887777", Password: "newsecret"})
	assert.NoError(t, err)

	_, err = svc.RefreshToken(ctx, signed.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestRefreshTokenRotation(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.authService()
	ctx := context.Background()

	signed, err := svc.Signup(ctx, exampleSignup())
	require.NoError(t, err)

	rotated, err := svc.RefreshToken(ctx, signed.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, signed.RefreshToken, rotated.RefreshToken)

	_, err = svc.RefreshToken(ctx, signed.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = svc.RefreshToken(ctx, "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)

	require.NoError(t, svc.Logout(ctx, rotated.RefreshToken))
	_, err = svc.RefreshToken(ctx, rotated.RefreshToken)
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestChangePassword(t *testing.T) {
	e := newEnv(t, 1)
	svc := e.authService()
	ctx := context.Background()

	signed, err := svc.Signup(ctx, exampleSignup())
	require.NoError(t, err)

	err = svc.ChangePassword(ctx, signed.User.ID, &ChangePasswordInput{CurrentPassword: "nope", NewPassword: "another1"})
	assert.ErrorIs(t, err, ErrWrongPassword)

	require.NoError(t, svc.ChangePassword(ctx, signed.User.ID, &ChangePasswordInput{CurrentPassword: "secret1", NewPassword: "another1"}))
	_, err = svc.Login(ctx, &LoginInput{Email: "a@b.com", Password: "another1"})
	assert.NoError(t, err)
}
