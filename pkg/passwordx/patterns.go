package passwordx

import (
	"math"
	"strings"
	"unicode"
)

const symbolSetSize = 33 // printable ASCII symbols

// knownSequences are scanned forward and reversed for runs of three or more
// characters lifted straight off a keyboard row, the alphabet, or the digits.
var knownSequences = []string{
	"abcdefghijklmnopqrstuvwxyz",
	"qwertyuiop",
	"asdfghjkl",
	"zxcvbnm",
	"0123456789",
}

// hasRepeatRun reports whether the password contains a run of three or more
// identical characters ("aaa", "111").
func hasRepeatRun(password string) bool {
	runes := []rune(password)
	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run >= 3 {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

// hasSequence reports whether any substring of length >= 3 appears in a known
// keyboard/alphabet/digit sequence, forward or reversed.
func hasSequence(password string) bool {
	lower := strings.ToLower(password)
	for _, seq := range knownSequences {
		rev := reverse(seq)
		for i := 0; i+3 <= len(lower); i++ {
			sub := lower[i : i+3]
			if strings.Contains(seq, sub) || strings.Contains(rev, sub) {
				return true
			}
		}
	}
	return false
}

func reverse(s string) string {
	runes := []rune(s)
	for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
		runes[i], runes[j] = runes[j], runes[i]
	}
	return string(runes)
}

// entropyBits estimates Shannon-style entropy as
// length x log2(size of the character classes actually used).
func entropyBits(password string) float64 {
	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	var charset int
	if lower {
		charset += 26
	}
	if upper {
		charset += 26
	}
	if digit {
		charset += 10
	}
	if symbol {
		charset += symbolSetSize
	}
	if charset == 0 {
		return 0
	}

	return float64(len([]rune(password))) * math.Log2(float64(charset))
}

// entropyScore maps entropy bits onto the shared 0-4 scale.
func entropyScore(bits float64) int {
	switch {
	case bits >= 60:
		return 4
	case bits >= 48:
		return 3
	case bits >= 36:
		return 2
	case bits >= 28:
		return 1
	default:
		return 0
	}
}

// customPatternScore is the deterministic signal: common-password membership,
// repeated runs, known sequences and the entropy estimate. Returns the score
// and any warnings produced.
func customPatternScore(password string) (int, []string) {
	if IsCommonPassword(password) {
		return 0, []string{"this password is on a list of commonly used passwords"}
	}

	score := entropyScore(entropyBits(password))
	var warnings []string

	if hasRepeatRun(password) {
		score--
		warnings = append(warnings, "avoid repeating the same character three or more times")
	}
	if hasSequence(password) {
		score--
		warnings = append(warnings, "avoid straight runs like \"abc\" or \"123\"")
	}

	if score < 0 {
		score = 0
	}
	return score, warnings
}
