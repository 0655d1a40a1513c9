package photo

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"path"
	"strings"
	"time"

	"github.com/yusakitchen/reviewboard/internal/validation"
)

const (
	tokenLength   = 6
	tokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Namer generates blob keys of the form {unix-millis}-{token}.{ext}.
// Uniqueness relies on the timestamp plus random token; there is no collision check.
type Namer struct {
	now   func() time.Time
	token func() (string, error)
}

// NewNamer creates a Namer using the wall clock and crypto/rand
func NewNamer() *Namer {
	return &Namer{now: time.Now, token: randomToken}
}

// Name returns a fresh key for a file uploaded as original with the given content type
func (n *Namer) Name(original, contentType string) (string, error) {
	token, err := n.token()
	if err != nil {
		return "", fmt.Errorf("failed to generate filename token: %w", err)
	}
	return fmt.Sprintf("%d-%s.%s", n.now().UnixMilli(), token, extension(original, contentType)), nil
}

// extension keeps the original file's extension when it is a plain
// alphanumeric suffix, otherwise falls back to the content type's.
func extension(original, contentType string) string {
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(original), "."))
	if ext != "" && isAlphanumeric(ext) {
		return ext
	}
	if fallback, ok := validation.AllowedPhotoTypes[contentType]; ok {
		return fallback
	}
	return "bin"
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

func randomToken() (string, error) {
	base := big.NewInt(int64(len(tokenAlphabet)))
	var b strings.Builder
	for i := 0; i < tokenLength; i++ {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		b.WriteByte(tokenAlphabet[n.Int64()])
	}
	return b.String(), nil
}
