package utils

import (
	"crypto/rand"
	"errors"
)

// ShortCodeAlphabet is URL-safe and has 64 symbols so a byte masks to it without bias.
const ShortCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"

// GenShortCode returns n random symbols from ShortCodeAlphabet.
func GenShortCode(n int) (string, error) {
	if n <= 0 {
		return "", errors.New("short code length must be positive")
	}
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i := range buf {
		buf[i] = ShortCodeAlphabet[buf[i]&63]
	}
	return string(buf), nil
}

// IsShortCode reports whether s could have been produced by GenShortCode.
func IsShortCode(s string, maxLen int) bool {
	if s == "" || len(s) > maxLen {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
