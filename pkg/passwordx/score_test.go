package passwordx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// stubEstimator returns a fixed score so scoring-logic tests do not depend on
// the zxcvbn port's exact output.
type stubEstimator struct {
	score int
}

func (s stubEstimator) Estimate(password string, userInputs []string) Estimate {
	return Estimate{Score: s.score, CrackTimeText: "centuries"}
}

func TestScore_ShortPasswordAlwaysInvalid(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(DefaultPolicy(), stubEstimator{score: 4})

	report := scorer.Score("Ab1!", nil)
	require.False(t, report.Valid)
	require.Equal(t, 0, report.BasicScore, "failed length check floors the basic score")
	require.Equal(t, 0, report.Score)
	require.Contains(t, report.Suggestions[0], "at least 8 characters")
}

func TestScore_CommonPasswordAlwaysInvalid(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(DefaultPolicy(), stubEstimator{score: 4})

	for _, pw := range []string{"password", "PASSWORD", "Password1", "Password1!", "trustno1"} {
		report := scorer.Score(pw, nil)
		require.False(t, report.Valid, "%q is a known common password", pw)
	}
}

func TestScore_CombinedIsMinimumOfSignals(t *testing.T) {
	t.Parallel()

	// Basic and pattern signals are strong for this candidate; a weak
	// estimator signal must drag the combined score down.
	scorer := NewScorer(DefaultPolicy(), stubEstimator{score: 1})

	report := scorer.Score("Kf7#mQp2$xWn", nil)
	require.Equal(t, 4, report.BasicScore)
	require.Equal(t, 1, report.EstimatorScore)
	require.Equal(t, 1, report.Score)
	require.False(t, report.Valid, "combined 1 is below the default MinScore of 2")
}

func TestScore_DefaultPolicyAcceptsCompliantPassword(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(DefaultPolicy(), stubEstimator{score: 3})

	report := scorer.Score("Marble7!Fox", nil)
	require.Equal(t, 4, report.BasicScore, "length plus all four classes")
	require.Equal(t, 4, report.PatternScore)
	require.Equal(t, 3, report.Score)
	require.True(t, report.Valid)
	require.Empty(t, report.Suggestions)
	require.Equal(t, "centuries", report.CrackTimeText)
}

func TestScore_RealEstimatorEndToEnd(t *testing.T) {
	t.Parallel()

	// Nil estimator wires the zxcvbn port, same as the service does.
	scorer := NewScorer(DefaultPolicy(), nil)

	// Satisfies every basic class check but is a published breach-corpus
	// entry, so it is rejected on membership, whatever the signals say.
	weak := scorer.Score("Password1!", nil)
	require.True(t, IsCommonPassword("Password1!"))
	require.False(t, weak.Valid)

	strong := scorer.Score("vX9$kLm2#pQ7&wRt", nil)
	require.GreaterOrEqual(t, strong.Score, 2)
	require.True(t, strong.Valid)
}

func TestScore_MissingClassesFailBasicChecks(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(DefaultPolicy(), stubEstimator{score: 4})

	report := scorer.Score("nouppercase1!", nil)
	require.False(t, report.Valid)
	require.Contains(t, report.Suggestions, "add an uppercase letter")

	report = scorer.Score("NoDigitsHere!", nil)
	require.False(t, report.Valid)
	require.Contains(t, report.Suggestions, "add a digit")
}

func TestScore_PatternPenalties(t *testing.T) {
	t.Parallel()

	scorer := NewScorer(DefaultPolicy(), stubEstimator{score: 4})

	repeat := scorer.Score("Gooo0dPw!x9$", nil)
	require.Less(t, repeat.PatternScore, 4, "triple repeat should cost a point")
	require.NotEmpty(t, repeat.Warnings)

	sequence := scorer.Score("Xyz!abcQ2w#p", nil)
	require.Less(t, sequence.PatternScore, 4, "alphabet run should cost a point")
}

func TestBasicRequirements_TooLong(t *testing.T) {
	t.Parallel()

	policy := DefaultPolicy()
	policy.MaxLength = 12
	scorer := NewScorer(policy, stubEstimator{score: 4})

	report := scorer.Score("Abcdefgh1!Abcdefgh1!", nil)
	require.False(t, report.Valid)
	require.Contains(t, report.Suggestions[0], "at most 12 characters")
}

func TestPatternHelpers(t *testing.T) {
	t.Parallel()

	require.True(t, hasRepeatRun("aaa"))
	require.True(t, hasRepeatRun("xx111yy"))
	require.False(t, hasRepeatRun("aabbaabb"))

	require.True(t, hasSequence("xabcx"))
	require.True(t, hasSequence("x321x"), "reversed digit run")
	require.True(t, hasSequence("QWErty"), "keyboard row, case-insensitive")
	require.False(t, hasSequence("qaz"), "columns are not rows")

	require.InDelta(t, 8*4.7, entropyBits("abcdefgh"), 0.5)
	require.Greater(t, entropyBits("Ab1!Ab1!"), entropyBits("abcdabcd"))
	require.Zero(t, entropyBits(""))
}

func TestZxcvbnEstimatorSanity(t *testing.T) {
	t.Parallel()

	est := ZxcvbnEstimator{}

	weak := est.Estimate("password", nil)
	require.LessOrEqual(t, weak.Score, 1)
	require.NotEmpty(t, weak.CrackTimeText)

	strong := est.Estimate("vX9$kLm2#pQ7&wRt5^zN", nil)
	require.GreaterOrEqual(t, strong.Score, 2)
	require.Greater(t, strong.Guesses, weak.Guesses)
}

func TestZxcvbnEstimatorPenalisesUserInputs(t *testing.T) {
	t.Parallel()

	est := ZxcvbnEstimator{}

	without := est.Estimate("HoratioNelson", nil)
	with := est.Estimate("HoratioNelson", []string{"horatio", "nelson"})
	require.LessOrEqual(t, with.Score, without.Score)
}
