package components

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToStringSlice(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, toStringSlice([]interface{}{"a", "b"}))
	assert.Equal(t, []string{"a"}, toStringSlice([]interface{}{"a", 3, nil}))
	assert.Nil(t, toStringSlice("not a list"))
	assert.Nil(t, toStringSlice(nil))
}

func TestNonEmptyLines(t *testing.T) {
	assert.Equal(t, []string{"a.example.com", "b.example.com"}, nonEmptyLines("a.example.com\n\n  b.example.com  \n"))
	assert.Nil(t, nonEmptyLines(""))
	assert.Nil(t, nonEmptyLines("\n\n  \n"))
}

func TestAtoiOr(t *testing.T) {
	assert.Equal(t, 5, atoiOr("", 5))
	assert.Equal(t, 5, atoiOr("not-a-number", 5))
	assert.Equal(t, 5, atoiOr("-1", 5))
	assert.Equal(t, 5, atoiOr("0", 5))
	assert.Equal(t, 42, atoiOr("42", 5))
}

func TestItoa(t *testing.T) {
	assert.Equal(t, "42", itoa(42))
	assert.Equal(t, "0", itoa(0))
}
