package garage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/petruce/garage/oauth2"
)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateSecureToken returns 32 random bytes, hex encoded.
func GenerateSecureToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// UnusablePasswordHash hashes a random secret that is discarded
// immediately, so no password can ever match it.
func UnusablePasswordHash() (string, error) {
	secret, err := GenerateSecureToken()
	if err != nil {
		return "", err
	}
	// hex of 32 bytes is 64 chars, under the bcrypt limit
	return HashPassword(secret)
}

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// burnPasswordCheck performs a comparison of the same cost as a real one
// so unknown emails take as long as wrong passwords.
func burnPasswordCheck(password string) {
	dummyHashOnce.Do(func() {
		dummyHash, _ = UnusablePasswordHash()
	})
	CheckPassword(dummyHash, password)
}

func newUserFromRegistration(in RegistrationInput, passwordHash string) *User {
	return &User{
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: passwordHash,
	}
}

func newUserFromProfile(p *oauth2.Profile, passwordHash string) *User {
	u := &User{
		Name:         p.DisplayName(),
		Email:        NormalizeEmail(p.Email),
		PasswordHash: passwordHash,
		Avatar:       p.AvatarURL,
	}
	if u.Name == "" {
		u.Name = u.Email
	}
	u.SetProviderID(p.Provider, p.ID)
	return u
}
