package tokens

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"
)

const (
	// AdminKeyPrefix marks generated admin secrets in logs and headers.
	AdminKeyPrefix = "csi_admin_"

	signingKeyBytes = 32
	adminKeyChars   = 40
	adminAlphabet   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// NewSigningKey returns a random HS256 key, base64url encoded.
func NewSigningKey() (string, error) {
	b := make([]byte, signingKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// NewAdminKey returns a header-safe admin secret: AdminKeyPrefix followed by
// alphanumerics.
func NewAdminKey() (string, error) {
	var sb strings.Builder
	sb.Grow(len(AdminKeyPrefix) + adminKeyChars)
	sb.WriteString(AdminKeyPrefix)

	buf := make([]byte, adminKeyChars)
	for sb.Len() < len(AdminKeyPrefix)+adminKeyChars {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		for _, b := range buf {
			// 248 is the largest multiple of 62 below 256; rejecting the rest
			// keeps the characters uniform.
			if b >= 248 {
				continue
			}
			sb.WriteByte(adminAlphabet[int(b)%len(adminAlphabet)])
			if sb.Len() == len(AdminKeyPrefix)+adminKeyChars {
				break
			}
		}
	}
	return sb.String(), nil
}
