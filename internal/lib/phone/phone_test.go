package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "nine digits", in: "901234567", want: "998901234567"},
		{name: "with plus and spaces", in: "+998 90 123-45-67", want: "998901234567"},
		{name: "already normalized", in: "998901234567", want: "998901234567"},
		{name: "with brackets", in: "(90) 123 45 67", want: "998901234567"},
		{name: "short number still prefixed", in: "12345", want: "99812345"},
		{name: "empty", in: "", want: "998"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("998901234567"))
	assert.False(t, Valid("998801234567"))
	assert.False(t, Valid("99890123456"))
	assert.False(t, Valid("9989012345678"))
	assert.False(t, Valid("+998901234567"))
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, "+998901234567", Display("90 123 45 67"))
}
