package users

import (
	"crypto/rand"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

// PasswordHasher is the hashing contract; only the hash/compare behavior is
// consumed here, the algorithm lives behind the interface.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Compare(hashed, plain string) bool
}

// BcryptHasher is the default PasswordHasher.
type BcryptHasher struct {
	// Cost is the bcrypt work factor; zero means bcrypt.DefaultCost.
	Cost int
}

func (h BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (h BcryptHasher) Compare(hashed, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}

const passwordCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// tempPassword generates the initial password for admin-created accounts.
// The trailing symbol keeps it within the password policy the validation
// middleware enforces.
func tempPassword() (string, error) {
	buf := make([]byte, 7)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(passwordCharset))))
		if err != nil {
			return "", err
		}
		buf[i] = passwordCharset[n.Int64()]
	}
	return string(buf) + "@", nil
}
