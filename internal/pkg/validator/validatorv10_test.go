package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testPayload struct {
	Email string `validate:"required,email"`
	Code  string `validate:"required,otp"`
}

func TestV10ValidatorValid(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	err = v.Validate(testPayload{Email: "user@example.com", Code: "042317"})
	assert.NoError(t, err)
}

func TestV10ValidatorInvalid(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	tests := []struct {
		name    string
		payload testPayload
		field   string
	}{
		{
			name:    "missing email",
			payload: testPayload{Code: "123456"},
			field:   "email",
		},
		{
			name:    "malformed email",
			payload: testPayload{Email: "not-an-email", Code: "123456"},
			field:   "email",
		},
		{
			name:    "short code",
			payload: testPayload{Email: "user@example.com", Code: "1234"},
			field:   "code",
		},
		{
			name:    "alphabetic code",
			payload: testPayload{Email: "user@example.com", Code: "12a456"},
			field:   "code",
		},
		{
			name:    "seven digits",
			payload: testPayload{Email: "user@example.com", Code: "1234567"},
			field:   "code",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.payload)
			require.Error(t, err)

			var verr V10ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Values(), tt.field)
		})
	}
}
