package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const base62Chars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateKey returns prefix followed by n random base62 characters.
func GenerateKey(prefix string, n int) (string, error) {
	var sb strings.Builder
	sb.Grow(len(prefix) + n)
	sb.WriteString(prefix)

	max := big.NewInt(int64(len(base62Chars)))
	for range n {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(base62Chars[num.Int64()])
	}

	return sb.String(), nil
}

// Obfuscate hides all but the last four characters of long secrets.
func Obfuscate(v string) string {
	switch {
	case v == "":
		return ""
	case len(v) > 8:
		return "********" + v[len(v)-4:]
	default:
		return "********"
	}
}

// IsObfuscated reports whether v came out of Obfuscate.
func IsObfuscated(v string) bool {
	return strings.Contains(v, "********")
}
