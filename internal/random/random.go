// Package random generates the access tokens handed out to respondent groups.
package random

import (
	"crypto/rand"
	"github.com/myrjola/portrait/internal/errors"
	"math/big"
)

// tokenAlphabet leaves out look-alikes so a token survives being read aloud or retyped.
var tokenAlphabet = []rune("abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789") //nolint:gochecknoglobals // fixed

// Token returns n characters drawn uniformly from the token alphabet with crypto/rand.
func Token(n uint) (string, error) {
	token := make([]rune, n)
	upper := big.NewInt(int64(len(tokenAlphabet)))
	for i := range token {
		index, err := rand.Int(rand.Reader, upper)
		if err != nil {
			return "", errors.Wrap(err, "draw token character")
		}
		token[i] = tokenAlphabet[index.Int64()]
	}
	return string(token), nil
}
