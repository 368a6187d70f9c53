package auth

import "golang.org/x/crypto/bcrypt"

// VerifyIngestKey compares a presented API key against the configured
// bcrypt hash.
func VerifyIngestKey(hash, key string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key))
}

// HashIngestKey hashes a plaintext key for storage in configuration.
func HashIngestKey(key string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
