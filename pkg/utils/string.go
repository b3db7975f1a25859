package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// readableAlphabet drops characters that are easy to confuse when a code is
// read aloud or typed from a screen (0/O, 1/I/l).
const readableAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RandomCode returns a random code of length characters from the readable
// alphabet. It panics only if the system random source is broken.
func RandomCode(length int) string {
	var sb strings.Builder
	sb.Grow(length)
	max := big.NewInt(int64(len(readableAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		sb.WriteByte(readableAlphabet[n.Int64()])
	}
	return sb.String()
}

// NormalizeCode upper-cases a user-typed code and strips spaces and dashes.
func NormalizeCode(code string) string {
	return strings.Map(func(r rune) rune {
		if r == ' ' || r == '-' {
			return -1
		}
		return r
	}, strings.ToUpper(strings.TrimSpace(code)))
}
