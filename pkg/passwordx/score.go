package passwordx

import (
	"fmt"
	"unicode"
)

// Report is the outcome of scoring one candidate password.
type Report struct {
	// Score is the combined strength score, the minimum of the three signals.
	Score int `json:"score"`

	// Individual signals, kept for diagnostics and dashboards.
	BasicScore     int `json:"basic_score"`
	EstimatorScore int `json:"estimator_score"`
	PatternScore   int `json:"pattern_score"`

	// Valid is true iff the basic requirements pass, the combined score meets
	// the policy minimum, and the password is not a known common password.
	Valid bool `json:"valid"`

	// Suggestions are ordered improvement hints, most important first.
	Suggestions []string `json:"suggestions,omitempty"`
	Warnings    []string `json:"warnings,omitempty"`

	// CrackTimeText is the estimator's human-readable crack time.
	CrackTimeText string `json:"crack_time_text,omitempty"`
}

// Scorer combines the three independent strength signals under a policy.
// The combined score is the minimum of the signals: the policy is only as
// strong as its weakest check.
type Scorer struct {
	policy    Policy
	estimator Estimator
}

// NewScorer builds a Scorer. A nil estimator falls back to the zxcvbn port.
func NewScorer(policy Policy, estimator Estimator) *Scorer {
	if estimator == nil {
		estimator = ZxcvbnEstimator{}
	}
	return &Scorer{policy: policy, estimator: estimator}
}

// Policy returns the policy the scorer enforces.
func (s *Scorer) Policy() Policy { return s.policy }

// Score evaluates a candidate password. userInputs carry contextual strings
// (name and email fragments) that the estimator penalises. Pure function of
// its inputs and the policy; no side effects.
func (s *Scorer) Score(password string, userInputs []string) Report {
	var report Report

	basic, basicPass, suggestions := s.basicRequirements(password)
	report.BasicScore = basic

	est := s.estimator.Estimate(password, userInputs)
	report.EstimatorScore = clampScore(est.Score)
	report.CrackTimeText = est.CrackTimeText
	report.Warnings = append(report.Warnings, est.Feedback...)

	pattern, warnings := customPatternScore(password)
	report.PatternScore = pattern
	report.Warnings = append(report.Warnings, warnings...)

	report.Score = min(report.BasicScore, report.EstimatorScore, report.PatternScore)

	common := IsCommonPassword(password)
	report.Valid = basicPass && report.Score >= s.policy.MinScore && !common

	if !report.Valid && report.Score < s.policy.MinScore && basicPass && !common {
		suggestions = append(suggestions,
			"use a longer passphrase of unrelated words to increase strength")
	}
	report.Suggestions = suggestions

	return report
}

// basicRequirements evaluates the five fixed checks: length within bounds,
// uppercase, lowercase, digit, symbol. Length is mandatory; when it fails the
// basic score floors to zero regardless of the other checks.
func (s *Scorer) basicRequirements(password string) (score int, pass bool, suggestions []string) {
	runes := []rune(password)
	length := len(runes)

	lengthOK := length >= s.policy.MinLength && length <= s.policy.MaxLength

	var upper, lower, digit, symbol bool
	for _, r := range runes {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		default:
			symbol = true
		}
	}

	satisfied := 0
	for _, ok := range []bool{lengthOK, upper, lower, digit, symbol} {
		if ok {
			satisfied++
		}
	}

	if lengthOK {
		score = satisfied - 1 // 0-4 across the four class checks
	}

	pass = lengthOK
	if length < s.policy.MinLength {
		suggestions = append(suggestions,
			fmt.Sprintf("use at least %d characters", s.policy.MinLength))
	}
	if length > s.policy.MaxLength {
		suggestions = append(suggestions,
			fmt.Sprintf("use at most %d characters", s.policy.MaxLength))
	}
	if s.policy.RequireUppercase && !upper {
		pass = false
		suggestions = append(suggestions, "add an uppercase letter")
	}
	if s.policy.RequireLowercase && !lower {
		pass = false
		suggestions = append(suggestions, "add a lowercase letter")
	}
	if s.policy.RequireDigit && !digit {
		pass = false
		suggestions = append(suggestions, "add a digit")
	}
	if s.policy.RequireSymbol && !symbol {
		pass = false
		suggestions = append(suggestions, "add a symbol")
	}

	return score, pass, suggestions
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 4 {
		return 4
	}
	return score
}
