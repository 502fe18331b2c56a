package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasherVerify(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	correct, err := h.Hash("secret1")
	require.NoError(t, err)
	other, err := h.Hash("secret2")
	require.NoError(t, err)

	tests := []struct {
		name      string
		hash      string
		plain     string
		wantErr   error
		malformed bool
	}{
		{name: "matching password", hash: correct, plain: "secret1"},
		{name: "wrong password", hash: correct, plain: "secret2", wantErr: ErrMismatch},
		{name: "other hash", hash: other, plain: "secret1", wantErr: ErrMismatch},
		{name: "empty password", hash: correct, plain: "", wantErr: ErrMismatch},
		{name: "not a hash", hash: "plain-text", plain: "secret1", malformed: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := h.Verify(tt.hash, tt.plain)
			switch {
			case tt.malformed:
				require.Error(t, err)
				assert.NotErrorIs(t, err, ErrMismatch)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				assert.NoError(t, err)
			}
		})
	}
}

func TestHasherSaltsHashes(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	first, err := h.Hash("secret1")
	require.NoError(t, err)
	second, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NoError(t, h.Verify(second, "secret1"))
}

func TestNewHasherCost(t *testing.T) {
	tests := []struct {
		name string
		cost int
		want int
	}{
		{name: "min", cost: bcrypt.MinCost, want: bcrypt.MinCost},
		{name: "too low", cost: 1, want: bcrypt.DefaultCost},
		{name: "too high", cost: bcrypt.MaxCost + 1, want: bcrypt.DefaultCost},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewHasher(tt.cost).cost)
		})
	}
}
