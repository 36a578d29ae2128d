package verification

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
)

// codeRange covers [100000, 999999]: every code is exactly six digits with a
// non-zero leading digit.
var (
	codeSpan = big.NewInt(900000)
	codeMin  = int64(100000)
)

// GenerateCode returns a 6-digit numeric code string drawn from crypto/rand.
// Codes are scoped per identity, so cross-identity collisions are harmless.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

// CodesEqual performs a constant-time comparison of two codes.
func CodesEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
