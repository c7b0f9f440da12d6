package auth

import "time"

type TokenCodec interface {
	Issue(c Claims, ttl time.Duration) (string, error)
	Verify(token string) (Claims, error)
}

type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
}
