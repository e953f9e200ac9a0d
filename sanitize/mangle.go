package sanitize

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// maxLoggedInput caps attacker controlled values in log lines
const maxLoggedInput = 256

// UserInputString is used to strip value of any \r \n to
// avoiding log injection / CWE-117
func UserInputString(key string, value string) zapcore.Field {
	return zap.String(key, Truncate(NoLineBreaks(value), maxLoggedInput))
}

// UserInputStrings applies UserInputString to every entry
func UserInputStrings(key string, values []string) zapcore.Field {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = Truncate(NoLineBreaks(v), maxLoggedInput)
	}
	return zap.Strings(key, out)
}

// NoLineBreaks removes linebreaks and carrage returns from string
func NoLineBreaks(value string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(value)
}

// Truncate shortens value to at most max bytes without splitting a rune
func Truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	cut := max
	for cut > 0 && !isRuneStart(value[cut]) {
		cut--
	}
	return value[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
