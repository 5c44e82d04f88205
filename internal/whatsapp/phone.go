package whatsapp

import (
	"regexp"
	"strings"
)

// UserServer is the WhatsApp individual-user JID server.
const UserServer = "s.whatsapp.net"

// CountryCode is prefixed to national numbers. The product serves
// Brazilian agencies; brokers enter local numbers without +55.
const CountryCode = "55"

var nonDigits = regexp.MustCompile(`\D`)

// NormalizePhone reduces an operator-entered phone number to the digit
// string WhatsApp expects: country code + area code + subscriber number.
//
//  1. strip everything that is not a digit
//  2. ≤11 digits means no country code was entered: prefix 55
//  3. ensure the 55 prefix regardless (input like "+55 ..." already
//     carries it, "0xx..." trunk-dialed input does not)
//  4. drop a spurious zero between country and area code ("550xx...");
//     Brazilian area codes never start with 0, so the zero is always a
//     typo carried over from trunk dialing
func NormalizePhone(raw string) string {
	digits := nonDigits.ReplaceAllString(raw, "")
	if len(digits) <= 11 {
		digits = CountryCode + digits
	}
	if !strings.HasPrefix(digits, CountryCode) {
		digits = CountryCode + digits
	}
	if (len(digits) == 13 || len(digits) == 14) && strings.HasPrefix(digits, CountryCode+"0") {
		digits = CountryCode + digits[3:]
	}
	return digits
}

// WireAddress builds the candidate JID for a normalized digit string.
// Used as-is when the registry lookup cannot be completed.
func WireAddress(digits string) string {
	return digits + "@" + UserServer
}
