// Package password implements the password policy applied at sign-up and
// on password change.
package password

import (
	"strings"
	"unicode/utf8"
)

// MinLength is the minimum number of characters a password must contain.
const MinLength = 8

// SpecialChars is the set of characters that satisfy the special-character rule.
const SpecialChars = `!@#$%^&*()_+-=[]{};':"\|,.<>/?`

// Rule identifies one policy rule.
type Rule string

const (
	RuleLength  Rule = "length"
	RuleUpper   Rule = "uppercase"
	RuleLower   Rule = "lowercase"
	RuleDigit   Rule = "digit"
	RuleSpecial Rule = "special"
)

// Result is the outcome of Validate. Rule and Reason are empty when Valid.
type Result struct {
	Valid  bool   `json:"valid"`
	Rule   Rule   `json:"rule,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Checks holds every predicate evaluated independently, for live feedback
// while a password is being typed.
type Checks struct {
	Length  bool `json:"length"`
	Upper   bool `json:"uppercase"`
	Lower   bool `json:"lowercase"`
	Digit   bool `json:"digit"`
	Special bool `json:"special"`
}

type rule struct {
	name   Rule
	reason string
	ok     func(string) bool
}

// rules are checked in order; the first failure is reported.
var rules = []rule{
	{RuleLength, "Password must be at least 8 characters long.", hasMinLength},
	{RuleUpper, "Password must contain at least one uppercase letter.", hasUpper},
	{RuleLower, "Password must contain at least one lowercase letter.", hasLower},
	{RuleDigit, "Password must contain at least one number.", hasDigit},
	{RuleSpecial, "Password must contain at least one special character (!@#$%^&*()_+-=[]{}|;:,.<>/?).", hasSpecial},
}

// Validate applies the policy to pw.
func Validate(pw string) Result {
	for _, r := range rules {
		if !r.ok(pw) {
			return Result{Valid: false, Rule: r.name, Reason: r.reason}
		}
	}
	return Result{Valid: true}
}

// Check evaluates all five predicates without short-circuiting.
func Check(pw string) Checks {
	return Checks{
		Length:  hasMinLength(pw),
		Upper:   hasUpper(pw),
		Lower:   hasLower(pw),
		Digit:   hasDigit(pw),
		Special: hasSpecial(pw),
	}
}

// Passed reports whether every predicate holds.
func (c Checks) Passed() bool {
	return c.Length && c.Upper && c.Lower && c.Digit && c.Special
}

func hasMinLength(pw string) bool { return utf8.RuneCountInString(pw) >= MinLength }

// Letter and digit classes are ASCII only.
func hasUpper(pw string) bool { return containsRange(pw, 'A', 'Z') }
func hasLower(pw string) bool { return containsRange(pw, 'a', 'z') }
func hasDigit(pw string) bool { return containsRange(pw, '0', '9') }

func hasSpecial(pw string) bool { return strings.ContainsAny(pw, SpecialChars) }

func containsRange(s string, lo, hi rune) bool {
	for _, r := range s {
		if r >= lo && r <= hi {
			return true
		}
	}
	return false
}
