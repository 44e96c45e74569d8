package token

import (
	"crypto/rand"
	"math/big"

	"github.com/mguentner/mailtoken/config"
)

const (
	numericAlphabet      = "0123456789"
	alphaNumericAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	hexAlphabet          = "0123456789abcdef"
)

func generateRandomToken(length uint8, alphabet []rune) (string, error) {
	alphabetLength := big.NewInt(int64(len(alphabet)))
	token := make([]rune, 0, length)
	for i := 0; i < int(length); i++ {
		index, err := rand.Int(rand.Reader, alphabetLength)
		if err != nil {
			return "", err
		}
		token = append(token, alphabet[index.Int64()])
	}
	return string(token), nil
}

// Generator produces opaque random token strings.
type Generator interface {
	Generate() (string, error)
}

type alphabetGenerator struct {
	alphabet []rune
	length   uint8
}

func (g *alphabetGenerator) Generate() (string, error) {
	return generateRandomToken(g.length, g.alphabet)
}

func NewNumericGenerator(length uint8) Generator {
	return &alphabetGenerator{alphabet: []rune(numericAlphabet), length: length}
}

func NewAlphaNumericGenerator(length uint8) Generator {
	return &alphabetGenerator{alphabet: []rune(alphaNumericAlphabet), length: length}
}

func NewHexGenerator(length uint8) Generator {
	return &alphabetGenerator{alphabet: []rune(hexAlphabet), length: length}
}

func GeneratorFromConfig(config config.Config) Generator {
	length := uint8(config.TokenLength)
	switch config.TokenFormat {
	case "numeric":
		return NewNumericGenerator(length)
	case "alpha":
		return NewAlphaNumericGenerator(length)
	default:
		return NewHexGenerator(length)
	}
}
