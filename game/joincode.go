package game

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const (
	JoinCodeLength = 6
	joinCodeChars  = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
)

// GenerateJoinCode returns a random code without the ambiguous characters 0, O, 1 and I.
func GenerateJoinCode() string {
	b := make([]byte, JoinCodeLength)
	max := big.NewInt(int64(len(joinCodeChars)))
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		b[i] = joinCodeChars[idx.Int64()]
	}
	return string(b)
}

func NormalizeJoinCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func ValidJoinCode(code string) bool {
	if len(code) != JoinCodeLength {
		return false
	}
	for i := 0; i < len(code); i++ {
		if !strings.ContainsRune(joinCodeChars, rune(code[i])) {
			return false
		}
	}
	return true
}
