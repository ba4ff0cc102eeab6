package host

import (
	"crypto/rand"
	"math/big"
	mrand "math/rand"
	"strings"

	"github.com/rs/zerolog/log"
)

// CodeLength is the number of characters in a match code
const CodeLength = 6

// codeAlphabet leaves out 0/O and 1/I so codes can be read off a screen
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewCode returns a random match code
func NewCode() string {
	var b strings.Builder
	b.Grow(CodeLength)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			log.Warn().Err(err).Msg("crypto rand unavailable, falling back to math/rand")
			b.WriteByte(codeAlphabet[mrand.Intn(len(codeAlphabet))])
			continue
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String()
}

// NormalizeCode upper-cases a user supplied code and reports whether it is well formed
func NormalizeCode(code string) (string, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != CodeLength {
		return code, false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(codeAlphabet, code[i]) < 0 {
			return code, false
		}
	}
	return code, true
}
