// Package passwordx scores candidate passwords against the platform password
// policy and generates compliant replacements. It is deliberately free of
// network and storage concerns so registration and password-change flows can
// call it directly.
package passwordx

// Policy is the process-wide password policy. A single instance is loaded at
// startup; per-tenant policies are not supported.
type Policy struct {
	MinLength int
	MaxLength int

	RequireUppercase bool
	RequireLowercase bool
	RequireDigit     bool
	RequireSymbol    bool

	// MinScore is the minimum combined strength score (0-4) a password must
	// reach to be accepted.
	MinScore int

	// PreventReuseCount is how many prior password hashes are checked when a
	// password is changed.
	PreventReuseCount int

	// MaxAgeDays forces rotation after this many days. Zero disables.
	MaxAgeDays int
}

// DefaultPolicy mirrors the platform defaults used by registration and
// password-change flows.
func DefaultPolicy() Policy {
	return Policy{
		MinLength:         8,
		MaxLength:         128,
		RequireUppercase:  true,
		RequireLowercase:  true,
		RequireDigit:      true,
		RequireSymbol:     true,
		MinScore:          2,
		PreventReuseCount: 5,
		MaxAgeDays:        90,
	}
}
