package normalizers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentityKey(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		chain    []string
		expected string
	}{
		{name: "default chain lowercases and trims", value: "  X@Y.com ", expected: "x@y.com"},
		{name: "explicit email chain", value: "Foo@Example.COM", chain: []string{"nemail"}, expected: "foo@example.com"},
		{name: "unknown normalizer is ignored", value: "Abc", chain: []string{"nope", "lowercase"}, expected: "abc"},
		{name: "phone chain", value: "+1 (555) 010-9999", chain: []string{"nphone"}, expected: "15550109999"},
		{name: "blank stays blank", value: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IdentityKey(tt.value, tt.chain))
		})
	}
}

func TestRegister(t *testing.T) {
	Register("strip_plus", func(s string) string {
		if i := len(s); i > 0 && s[0] == '+' {
			return s[1:]
		}
		return s
	})

	fn, ok := Get("strip_plus")
	assert.True(t, ok)
	assert.Equal(t, "15", fn("+15"))
	assert.Equal(t, "abc", ApplyChain(" ABC ", "trim", "lowercase"))
}
