package response

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "empty", raw: "", want: ""},
		{name: "null", raw: "null", want: ""},
		{name: "string", raw: `"Invalid credentials"`, want: "Invalid credentials"},
		{name: "field keyed object", raw: `{"phone_number": ["already registered"], "password": ["too short"]}`, want: "already registered"},
		{name: "field keyed string", raw: `{"secret": "wrong"}`, want: "wrong"},
		{name: "array", raw: `["first", "second"]`, want: "first"},
		{name: "empty object", raw: `{}`, want: ""},
		{name: "number", raw: `42`, want: "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ErrorMessage(json.RawMessage(tt.raw)))
		})
	}
}

func TestDecode(t *testing.T) {
	type payload struct {
		Success bool   `json:"success"`
		Quote   string `json:"quote"`
	}

	t.Run("success decodes body", func(t *testing.T) {
		var out payload
		err := Decode(http.StatusOK, []byte(`{"success": true, "quote": "hi"}`), &out)
		require.NoError(t, err)
		assert.Equal(t, "hi", out.Quote)
	})

	t.Run("success false returns api error", func(t *testing.T) {
		err := Decode(http.StatusOK, []byte(`{"success": false, "error": "Chek topilmadi"}`), nil)
		var apiErr *APIError
		require.True(t, errors.As(err, &apiErr))
		assert.Equal(t, http.StatusOK, apiErr.Status)
		assert.Equal(t, "Chek topilmadi", apiErr.Message)
	})

	t.Run("http error with field errors", func(t *testing.T) {
		err := Decode(http.StatusBadRequest, []byte(`{"success": false, "error": {"phone_number": ["taken"]}}`), nil)
		assert.EqualError(t, err, "taken")
		assert.True(t, IsStatus(err, http.StatusBadRequest))
	})

	t.Run("drf detail", func(t *testing.T) {
		err := Decode(http.StatusUnauthorized, []byte(`{"detail": "Token expired"}`), nil)
		assert.EqualError(t, err, "Token expired")
		assert.True(t, IsStatus(err, http.StatusUnauthorized))
	})

	t.Run("html error page", func(t *testing.T) {
		err := Decode(http.StatusBadGateway, []byte(`<html>bad gateway</html>`), nil)
		assert.EqualError(t, err, "Bad Gateway")
	})

	t.Run("empty body on error", func(t *testing.T) {
		err := Decode(http.StatusInternalServerError, nil, nil)
		assert.EqualError(t, err, "Internal Server Error")
	})

	t.Run("invalid json on success", func(t *testing.T) {
		err := Decode(http.StatusOK, []byte(`not json`), nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decode response")
	})
}

func TestValidate(t *testing.T) {
	type form struct {
		Phone     string `validate:"required,uzphone"`
		Password  string `validate:"required,min=6"`
		Password2 string `validate:"required,eqfield=Password"`
	}

	v := NewValidator()

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, Validate(v, form{Phone: "90 123 45 67", Password: "secret1", Password2: "secret1"}))
	})

	t.Run("invalid", func(t *testing.T) {
		err := Validate(v, form{Phone: "123", Password: "abc", Password2: "abd"})
		var formErr *FormError
		require.True(t, errors.As(err, &formErr))
		assert.Len(t, formErr.Messages, 3)
		assert.Contains(t, err.Error(), "field Phone must be a phone number")
		assert.Contains(t, err.Error(), "field Password must be at least 6 characters long")
		assert.Contains(t, err.Error(), "field Password2 must match Password")
	})

	t.Run("required", func(t *testing.T) {
		err := Validate(v, form{})
		assert.Contains(t, err.Error(), "field Phone is a required field")
	})
}

func TestNewValidator(t *testing.T) {
	assert.NotPanics(t, func() { NewValidator() })

	alwaysValid := func(validator.FieldLevel) bool { return true }
	assert.Panics(t, func() { mustRegister(validator.New(), "", alwaysValid) })
}
