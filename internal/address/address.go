// Package address validates email addresses against the interoperable
// subset of RFC 5321/5322 mailbox syntax. Validation is purely syntactic,
// there are no DNS or MX lookups.
package address

import (
	"fmt"
	"strings"
)

const (
	maxLocalPartLen = 64
	maxDomainLen    = 255
)

// atext specials permitted in an unquoted local part, in addition to
// letters and digits.
const localSpecials = "!#$%&'*+-/=?^_`{|}~."

// InvalidEmailError reports an address that failed validation.
type InvalidEmailError struct {
	Address string
	Reason  string
}

func (e *InvalidEmailError) Error() string {
	return fmt.Sprintf("invalid email address %q: %s", e.Address, e.Reason)
}

// Validate checks addr and returns it in normalized (bare, lower-cased
// domain) form suitable for envelope commands.
func Validate(addr string) (string, error) {
	if addr == "" {
		return "", &InvalidEmailError{Address: addr, Reason: "empty address"}
	}

	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return "", &InvalidEmailError{Address: addr, Reason: "missing @"}
	}

	local := addr[:at]
	domain := addr[at+1:]

	if err := validateLocalPart(local); err != "" {
		return "", &InvalidEmailError{Address: addr, Reason: err}
	}
	if err := validateDomain(domain); err != "" {
		return "", &InvalidEmailError{Address: addr, Reason: err}
	}

	return local + "@" + strings.ToLower(domain), nil
}

// IsValid reports whether addr passes Validate.
func IsValid(addr string) bool {
	_, err := Validate(addr)
	return err == nil
}

func validateLocalPart(local string) string {
	if local == "" {
		return "empty local part"
	}
	if len(local) > maxLocalPartLen {
		return "local part exceeds 64 characters"
	}
	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") {
		return "local part starts or ends with a dot"
	}
	if strings.Contains(local, "..") {
		return "local part contains consecutive dots"
	}
	for _, c := range local {
		if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' {
			continue
		}
		if strings.ContainsRune(localSpecials, c) {
			continue
		}
		return fmt.Sprintf("illegal character %q in local part", c)
	}
	return ""
}

func validateDomain(domain string) string {
	if domain == "" {
		return "empty domain"
	}
	if len(domain) > maxDomainLen {
		return "domain exceeds 255 characters"
	}

	// Bracketed address literal, e.g. [192.0.2.1].
	if strings.HasPrefix(domain, "[") {
		if !strings.HasSuffix(domain, "]") || len(domain) < 3 {
			return "malformed address literal"
		}
		inner := domain[1 : len(domain)-1]
		for _, c := range inner {
			if c >= '0' && c <= '9' || c == '.' || c == ':' ||
				c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F' {
				continue
			}
			return fmt.Sprintf("illegal character %q in address literal", c)
		}
		return ""
	}

	labels := strings.Split(domain, ".")
	for _, label := range labels {
		if label == "" {
			return "empty domain label"
		}
		if len(label) > 63 {
			return "domain label exceeds 63 characters"
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return "domain label starts or ends with a hyphen"
		}
		for _, c := range label {
			if c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c == '-' {
				continue
			}
			return fmt.Sprintf("illegal character %q in domain", c)
		}
	}
	return ""
}
