package passwordx

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	lowercaseChars = "abcdefghijklmnopqrstuvwxyz"
	uppercaseChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digitChars     = "0123456789"
	symbolChars    = "!@#$%^&*()-_=+[]{};:,.<>?"
)

// Generate produces a random password of the requested length that satisfies
// every character class the policy requires: one character is seeded from each
// required class, the remainder drawn from the union, and the result shuffled
// so class positions are not predictable.
func Generate(length int, policy Policy) (string, error) {
	if length <= 0 {
		length = policy.MinLength
	}
	if length < policy.MinLength || (policy.MaxLength > 0 && length > policy.MaxLength) {
		return "", fmt.Errorf("passwordx: length %d outside policy bounds [%d,%d]",
			length, policy.MinLength, policy.MaxLength)
	}

	var classes []string
	if policy.RequireLowercase {
		classes = append(classes, lowercaseChars)
	}
	if policy.RequireUppercase {
		classes = append(classes, uppercaseChars)
	}
	if policy.RequireDigit {
		classes = append(classes, digitChars)
	}
	if policy.RequireSymbol {
		classes = append(classes, symbolChars)
	}
	if len(classes) == 0 {
		classes = append(classes, lowercaseChars)
	}
	if length < len(classes) {
		return "", fmt.Errorf("passwordx: length %d cannot cover %d required classes",
			length, len(classes))
	}

	var union string
	for _, c := range classes {
		union += c
	}

	out := make([]byte, 0, length)
	for _, c := range classes {
		ch, err := randomChar(c)
		if err != nil {
			return "", err
		}
		out = append(out, ch)
	}
	for len(out) < length {
		ch, err := randomChar(union)
		if err != nil {
			return "", err
		}
		out = append(out, ch)
	}

	if err := shuffle(out); err != nil {
		return "", err
	}
	return string(out), nil
}

func randomChar(charset string) (byte, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
	if err != nil {
		return 0, fmt.Errorf("passwordx: random source failed: %w", err)
	}
	return charset[n.Int64()], nil
}

// shuffle is a Fisher-Yates shuffle over crypto/rand.
func shuffle(b []byte) error {
	for i := len(b) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			return fmt.Errorf("passwordx: random source failed: %w", err)
		}
		j := n.Int64()
		b[i], b[j] = b[j], b[i]
	}
	return nil
}
