package passwordx

import "strings"

// commonPasswords is the known-weak set checked for exact membership. It is a
// compact top slice of published breach corpora; the heuristic estimator's
// dictionaries cover the long tail.
var commonPasswords = map[string]struct{}{}

func init() {
	for _, p := range commonPasswordList {
		commonPasswords[p] = struct{}{}
	}
}

// IsCommonPassword reports whether the candidate exactly matches a known weak
// password. Matching is case-insensitive; "Password" is as burned as "password".
func IsCommonPassword(password string) bool {
	_, ok := commonPasswords[strings.ToLower(password)]
	return ok
}

var commonPasswordList = []string{
	"password", "123456", "12345678", "123456789", "1234567890",
	"qwerty", "qwertyuiop", "qwerty123", "abc123", "111111",
	"123123", "1234567", "12345", "1234", "000000",
	"iloveyou", "dragon", "monkey", "letmein", "login",
	"princess", "sunshine", "master", "welcome", "shadow",
	"ashley", "football", "jesus", "michael", "ninja",
	"mustang", "password1", "password1!", "password123", "admin", "admin123",
	"root", "toor", "pass", "test", "guest",
	"superman", "batman", "trustno1", "hello", "freedom",
	"whatever", "qazwsx", "654321", "666666", "696969",
	"121212", "222222", "777777", "888888", "987654321",
	"aaaaaa", "abcdef", "abcd1234", "a1b2c3", "1q2w3e4r",
	"1qaz2wsx", "zaq12wsx", "q1w2e3r4", "zxcvbnm", "asdfgh",
	"asdfghjkl", "qwe123", "123qwe", "letmein1", "access",
	"flower", "passw0rd", "p@ssw0rd", "p@ssword", "secret",
	"charlie", "donald", "hottie", "loveme", "zaq1zaq1",
	"football1", "baseball", "soccer", "hockey", "killer",
	"george", "sexy", "andrew", "jordan", "harley",
	"ranger", "buster", "thomas", "tigger", "robert",
	"soccer1", "batman1", "test123", "pass123", "changeme",
}
