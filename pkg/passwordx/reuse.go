package passwordx

// VerifyFunc reports whether plaintext matches an encoded hash. It returns
// nil on a match. cryptox.VerifyPassword satisfies this shape.
type VerifyFunc func(password, encodedHash string) error

// NotReused reports whether the candidate plaintext differs from every hash
// in history. history should hold the most recent PreventReuseCount hashes,
// newest first.
//
// The candidate is verified against each stored hash with the hashing
// scheme's own verify function rather than by hash equality: the stored
// hashes are salted per invocation, so equality of independently computed
// hashes would never hold and the check would silently pass everything.
func NotReused(password string, history []string, verify VerifyFunc) bool {
	for _, h := range history {
		if verify(password, h) == nil {
			return false
		}
	}
	return true
}
