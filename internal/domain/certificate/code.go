package certificate

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	letters = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
)

const CodeLength = 10

// GenerateCode returns a verification code shaped AAA00000AA.
// Uniqueness is enforced by the certificates table, not here.
func GenerateCode() string {
	var b strings.Builder
	b.Grow(CodeLength)
	pick(&b, letters, 3)
	pick(&b, digits, 5)
	pick(&b, letters, 2)
	return b.String()
}

func pick(b *strings.Builder, alphabet string, n int) {
	max := big.NewInt(int64(len(alphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand does not fail on supported platforms
			panic(err)
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
}
