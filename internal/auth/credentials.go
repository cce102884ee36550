// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"unicode"
)

// StaffEmailDomain is the domain of generated staff logins.
const StaffEmailDomain = "newsmate.internal"

const passwordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Credentials is a freshly generated login. The password is shown once at
// creation and only its hash is kept.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// GenerateCredentials derives a login from a display name: the lowercase
// alphanumerics of the name plus a random suffix below 1000, and a password
// of the form NM-XXXXXXXX.
func GenerateCredentials(name string) (Credentials, error) {
	local := emailLocalPart(name)
	if local == "" {
		local = "staff"
	}

	suffix, err := rand.Int(rand.Reader, big.NewInt(999))
	if err != nil {
		return Credentials{}, fmt.Errorf("generating email suffix: %w", err)
	}

	password, err := randomString(passwordAlphabet, 8)
	if err != nil {
		return Credentials{}, fmt.Errorf("generating password: %w", err)
	}

	return Credentials{
		Email:    fmt.Sprintf("%s%d@%s", local, suffix.Int64(), StaffEmailDomain),
		Password: "NM-" + password,
	}, nil
}

func emailLocalPart(name string) string {
	var sb strings.Builder
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

func randomString(alphabet string, n int) (string, error) {
	limit := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b), nil
}
