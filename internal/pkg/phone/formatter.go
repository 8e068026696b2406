package phone

import (
	"strings"

	"whatsapp-gateway/internal/domain"
)

// Formatter turns user supplied phone input into a destination identifier.
type Formatter struct {
	CountryCode string // e.g. "62"
	TrunkPrefix string // domestic leading prefix, e.g. "0"
	Suffix      string // network suffix, e.g. "@c.us"
}

func NewFormatter(countryCode, trunkPrefix, suffix string) Formatter {
	return Formatter{CountryCode: countryCode, TrunkPrefix: trunkPrefix, Suffix: suffix}
}

// Format never fails: garbage in gives a well-formed but meaningless
// identifier out. Applying it twice is the same as applying it once.
func (f Formatter) Format(raw string) domain.Destination {
	digits := digitsOnly(raw)
	if f.TrunkPrefix != "" && strings.HasPrefix(digits, f.TrunkPrefix) {
		digits = f.CountryCode + strings.TrimPrefix(digits, f.TrunkPrefix)
	}
	return domain.Destination(digits + f.Suffix)
}

// User returns the digits part of a destination (everything before '@').
func User(d domain.Destination) string {
	user, _, _ := strings.Cut(string(d), "@")
	return user
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
