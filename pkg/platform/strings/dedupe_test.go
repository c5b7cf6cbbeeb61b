package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "only blanks", input: []string{" ", ","}, expected: nil},
		{name: "single element", input: []string{"foo"}, expected: []string{"foo"}},
		{name: "comma separated", input: []string{"foo, bar"}, expected: []string{"foo", "bar"}},
		{name: "repeated and comma separated", input: []string{"foo,bar", "baz"}, expected: []string{"foo", "bar", "baz"}},
		{name: "duplicates across values", input: []string{"foo", " foo ", "bar,foo"}, expected: []string{"foo", "bar"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input, nil))
		})
	}
}

func TestSplitListUpper(t *testing.T) {
	got := SplitListUpper([]string{"contract_signed", "CONTRACT_SIGNED, contract_verified"})
	assert.Equal(t, []string{"CONTRACT_SIGNED", "CONTRACT_VERIFIED"}, got)
}
