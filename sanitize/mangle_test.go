package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNoLineBreaks(t *testing.T) {
	assert.Equal(t, "forgedline", NoLineBreaks("forged\r\nline"))
}

func TestUserInputStringStripsAndCaps(t *testing.T) {
	assert := assert.New(t)
	f := UserInputString("redirect_uri", "https://a/cb\n"+strings.Repeat("x", 400))
	assert.Equal("redirect_uri", f.Key)
	assert.Len(f.String, maxLoggedInput)
	assert.NotContains(f.String, "\n")
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "ab", Truncate("abü", 3))
	assert.Equal(t, "abü", Truncate("abü", 4))
}
