package dispatch

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nyaruka/phonenumbers"

	"github.com/leasewise/leasewise-backend/pkg/validation"
)

const (
	// MaxSMSLength is the single-segment body limit.
	MaxSMSLength = 160
	smsEllipsis  = "..."
)

// FormatPhoneNumber normalises raw to E.164. Numbers written with a "+" or
// an "00" prefix keep their own country; anything else is read as a national
// number of the region that owns defaultCC. Unparseable input comes back
// trimmed so the caller's E.164 check rejects it.
func FormatPhoneNumber(raw, defaultCC string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	input := trimmed
	if strings.HasPrefix(input, "00") {
		input = "+" + input[2:]
	}
	num, err := phonenumbers.Parse(input, regionFor(defaultCC))
	if err != nil {
		return trimmed
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// regionFor maps a dial code such as "+27" to its main region ("ZA").
func regionFor(dialCode string) string {
	cc, err := strconv.Atoi(strings.TrimLeft(strings.TrimSpace(dialCode), "+"))
	if err != nil {
		return phonenumbers.UNKNOWN_REGION
	}
	return phonenumbers.GetRegionCodeForCountryCode(cc)
}

// TruncateSMS caps body at MaxSMSLength characters, ending truncated bodies in "...".
func TruncateSMS(body string) string {
	if utf8.RuneCountInString(body) <= MaxSMSLength {
		return body
	}
	runes := []rune(body)
	return string(runes[:MaxSMSLength-len(smsEllipsis)]) + smsEllipsis
}

// IsValidPhone applies the E.164 check to an already formatted number.
func IsValidPhone(phone string) bool {
	return validation.Var(phone, "required,e164") == nil
}

func IsValidEmail(address string) bool {
	return validation.Var(address, "required,email") == nil
}
