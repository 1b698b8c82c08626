package auth

import (
	"crypto/rand"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/flashboard/internal/common"
	"golang.org/x/crypto/pbkdf2"
)

const (
	hashScheme     = "pbkdf2-sha512"
	hashSaltSize   = 16
	hashKeySize    = 64
	saltSeparator  = "@@"
	minPasswordLen = 6

	// PrivateSaltSize is the number of random bytes in a per-user salt.
	PrivateSaltSize = 64
)

// PrepareForHash mixes the password with the public and private salts.
func PrepareForHash(password, publicSalt, privateSalt string) string {
	return password + saltSeparator + publicSalt + saltSeparator + privateSalt
}

// GenerateRandomSalt returns size random bytes, URL-safe base64 encoded.
func GenerateRandomSalt(size int) (string, error) {
	return common.MakeRandURLString(size)
}

// IsStrong requires at least six characters with an upper-case letter,
// a lower-case letter and a digit.
func IsStrong(password string) bool {
	if utf8.RuneCountInString(password) < minPasswordLen {
		return false
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		}
	}
	return upper && lower && digit
}

// PasswordHasher produces PBKDF2-SHA512 hashes in the modular crypt format
// "$pbkdf2-sha512$<rounds>$<salt>$<checksum>" with adapted base64 fields.
type PasswordHasher struct {
	publicSalt string
	rounds     int
}

func NewPasswordHasher(publicSalt string, rounds int) *PasswordHasher {
	return &PasswordHasher{publicSalt: publicSalt, rounds: rounds}
}

// Hash salts the password with the public and the given private salt and
// returns the stored representation.
func (h *PasswordHasher) Hash(password, privateSalt string) (string, error) {
	salt := make([]byte, hashSaltSize)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}

	key := h.derive(password, privateSalt, salt, h.rounds)
	defer common.WipeByteArray(key)

	return fmt.Sprintf("$%s$%d$%s$%s", hashScheme, h.rounds, ab64Encode(salt), ab64Encode(key)), nil
}

// Verify reports whether password matches stored. Malformed hashes never match.
func (h *PasswordHasher) Verify(password, privateSalt, stored string) bool {
	parts := strings.Split(stored, "$")
	if len(parts) != 5 || parts[0] != "" || parts[1] != hashScheme {
		return false
	}
	rounds, err := strconv.Atoi(parts[2])
	if err != nil || rounds <= 0 {
		return false
	}
	salt, err := ab64Decode(parts[3])
	if err != nil {
		return false
	}
	want, err := ab64Decode(parts[4])
	if err != nil || len(want) == 0 {
		return false
	}

	got := h.derive(password, privateSalt, salt, rounds)
	defer common.WipeByteArray(got)

	return subtle.ConstantTimeCompare(got, want) == 1
}

func (h *PasswordHasher) derive(password, privateSalt string, salt []byte, rounds int) []byte {
	raw := []byte(PrepareForHash(password, h.publicSalt, privateSalt))
	defer common.WipeByteArray(raw)
	return pbkdf2.Key(raw, salt, rounds, hashKeySize, sha512.New)
}

// ab64 is unpadded standard base64 with '.' in place of '+'.
func ab64Encode(b []byte) string {
	return strings.ReplaceAll(base64.RawStdEncoding.EncodeToString(b), "+", ".")
}

func ab64Decode(s string) ([]byte, error) {
	return base64.RawStdEncoding.DecodeString(strings.ReplaceAll(s, ".", "+"))
}
