package cli

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 80))
	assert.Equal(t, "", truncate("", 80))

	long := strings.Repeat("é", 100)
	got := truncate(long, 80)
	assert.Equal(t, strings.Repeat("é", 80)+"...", got)
	assert.True(t, utf8.ValidString(got))
}
