package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type signupLike struct {
	AadhaarNumber string `validate:"required,aadhaar"`
	Email         string `validate:"required,email"`
	PhoneNumber   string `validate:"required,phone"`
	Password      string `validate:"required,min=6"`
}

func TestStruct(t *testing.T) {
	valid := signupLike{
		AadhaarNumber: "999988887777",
		Email:         "a@b.com",
		PhoneNumber:   "+911234567890",
		Password:      "secret1",
	}
	assert.NoError(t, Struct(valid))

	tests := []struct {
		name    string
		mutate  func(s *signupLike)
		wantMsg string
	}{
		{"short aadhaar", func(s *signupLike) { s.AadhaarNumber = "1234" }, "Aadhaar number must be 12 digits"},
		{"letters in aadhaar", func(s *signupLike) { s.AadhaarNumber = "99998888777a" }, "Aadhaar number must be 12 digits"},
		{"bad email", func(s *signupLike) { s.Email = "nope" }, "email must be a valid email address"},
		{"missing phone", func(s *signupLike) { s.PhoneNumber = "" }, "phone_number is required"},
		{"short password", func(s *signupLike) { s.Password = "abc" }, "password must be at least 6 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := valid
			tt.mutate(&s)
			err := Struct(s)
			if assert.Error(t, err) {
				assert.Equal(t, tt.wantMsg, err.Error())
			}
		})
	}
}

func TestIsAadhaarNumber(t *testing.T) {
	assert.True(t, IsAadhaarNumber("123412341234"))
	assert.False(t, IsAadhaarNumber("12341234123"))
	assert.False(t, IsAadhaarNumber("1234123412345"))
}

func TestVar(t *testing.T) {
	assert.NoError(t, Var("email", "a@b.com", "required,email"))

	err := Var("email", "nope", "required,email")
	if assert.Error(t, err) {
		assert.Equal(t, "email must be a valid email address", err.Error())
	}

	err = Var("date_of_birth", "15-01-1990", "isodate")
	if assert.Error(t, err) {
		assert.Equal(t, "date_of_birth must be in YYYY-MM-DD format", err.Error())
	}
}
