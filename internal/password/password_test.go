package password

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidate_FirstFailingRuleWins(t *testing.T) {
	tests := []struct {
		name string
		pw   string
		rule Rule
	}{
		{"empty", "", RuleLength},
		{"short but otherwise valid", "Ab1!", RuleLength},
		{"seven runes", "Abcde1!", RuleLength},
		{"no uppercase", "abcdefg1!", RuleUpper},
		{"no uppercase or digit", "abcdefgh!", RuleUpper},
		{"no lowercase", "ABCDEFG1!", RuleLower},
		{"no digit", "Abcdefgh!", RuleDigit},
		{"no digit or special", "Abcdefghi", RuleDigit},
		{"no special", "Abcdefg12", RuleSpecial},
		{"non-ascii letters only", "ÄÖÜäöüß1!", RuleUpper},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.pw)
			assert.False(t, res.Valid)
			assert.Equal(t, tt.rule, res.Rule)
			assert.NotEmpty(t, res.Reason)
		})
	}
}

func TestValidate_Valid(t *testing.T) {
	for _, pw := range []string{
		"Abcdefg1!",
		"Passw0rd#",
		`Zz9"zzzzz`,
		`Zz9\zzzzz`,
		"Zz9'zzzzz",
		"Zz9;zzzzz",
		"aB3{}[]()",
		"日本語Ab1!xyz",
	} {
		t.Run(pw, func(t *testing.T) {
			res := Validate(pw)
			assert.True(t, res.Valid)
			assert.Empty(t, res.Reason)
			assert.Empty(t, res.Rule)
		})
	}
}

func TestValidate_Reasons(t *testing.T) {
	assert.Equal(t, "Password must be at least 8 characters long.", Validate("a").Reason)
	assert.Equal(t, "Password must contain at least one uppercase letter.", Validate("aaaaaaaa").Reason)
	assert.Equal(t, "Password must contain at least one lowercase letter.", Validate("AAAAAAAA").Reason)
	assert.Equal(t, "Password must contain at least one number.", Validate("AAAAaaaa").Reason)
	assert.Contains(t, Validate("AAAAaaa1").Reason, "special character")
}

func TestValidate_LengthCountsRunes(t *testing.T) {
	// Seven runes, more than eight bytes.
	assert.Equal(t, RuleLength, Validate("Aé1!éée").Rule)
}

func TestCheck_Independent(t *testing.T) {
	c := Check("abc")
	assert.False(t, c.Length)
	assert.False(t, c.Upper)
	assert.True(t, c.Lower)
	assert.False(t, c.Digit)
	assert.False(t, c.Special)
	assert.False(t, c.Passed())

	c = Check("A1!")
	assert.False(t, c.Length)
	assert.True(t, c.Upper)
	assert.False(t, c.Lower)
	assert.True(t, c.Digit)
	assert.True(t, c.Special)

	assert.True(t, Check("Abcdefg1!").Passed())
}

func TestCheck_AgreesWithValidate(t *testing.T) {
	for _, pw := range []string{"", "abc", "Abcdefg1!", "ABCDEFGH", "abcdefgh1", "Abcdefgh1", "~~~~~~~~"} {
		assert.Equal(t, Validate(pw).Valid, Check(pw).Passed(), pw)
	}
}
