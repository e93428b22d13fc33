package passwordx

import (
	"math"

	"github.com/nbutton23/zxcvbn-go"
)

// Estimate is the result of a heuristic crack-resistance estimator.
type Estimate struct {
	// Score is 0 (trivially guessable) to 4 (very strong).
	Score int
	// Guesses is the estimated number of guesses needed.
	Guesses float64
	// CrackTimeText is a human-readable crack time for the modelled adversary.
	CrackTimeText string
	// Feedback lists estimator-specific improvement hints.
	Feedback []string
}

// Estimator models human-guessing patterns (dictionary words, keyboard walks,
// dates) including penalties for user-identifying context strings.
type Estimator interface {
	Estimate(password string, userInputs []string) Estimate
}

// ZxcvbnEstimator adapts the zxcvbn port to the Estimator interface.
type ZxcvbnEstimator struct{}

func (ZxcvbnEstimator) Estimate(password string, userInputs []string) Estimate {
	match := zxcvbn.PasswordStrength(password, userInputs)
	return Estimate{
		Score: match.Score,
		// The port reports entropy bits; half the keyspace is the expected
		// number of guesses.
		Guesses:       0.5 * math.Pow(2, match.Entropy),
		CrackTimeText: match.CrackTimeDisplay,
	}
}
