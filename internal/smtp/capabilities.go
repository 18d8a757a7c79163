package smtp

import (
	"strconv"
	"strings"
)

// Mechanism is an SMTP AUTH mechanism tag. PLAIN and LOGIN have executable
// negotiation paths; CRAM-MD5 is recognized in capability lists but never
// driven.
type Mechanism string

const (
	MechanismPlain   Mechanism = "PLAIN"
	MechanismLogin   Mechanism = "LOGIN"
	MechanismCramMD5 Mechanism = "CRAM-MD5"
)

// ParseMechanisms converts configuration tags ("plain", "LOGIN") into
// Mechanism values, preserving order.
func ParseMechanisms(tags []string) []Mechanism {
	var mechs []Mechanism
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		mechs = append(mechs, Mechanism(strings.ToUpper(tag)))
	}
	return mechs
}

// Extension keywords the client cares about.
const (
	CapSTARTTLS = "STARTTLS"
	CapAUTH     = "AUTH"
	CapSIZE     = "SIZE"
	CapDSN      = "DSN"
)

// Capabilities is the extension set parsed from the latest EHLO response,
// keyword to parameter string. It is rebuilt after STARTTLS because the
// advertised set may change on the secured channel.
type Capabilities map[string]string

// ParseEHLO parses the lines of a 250 EHLO response. The first line is the
// server greeting and carries no keyword.
func ParseEHLO(lines []string) Capabilities {
	caps := make(Capabilities)
	for i, line := range lines {
		if i == 0 {
			continue
		}
		keyword, params, _ := strings.Cut(line, " ")
		if keyword == "" {
			continue
		}
		caps[strings.ToUpper(keyword)] = params
	}
	return caps
}

// Has reports whether the server advertised the given extension keyword.
func (c Capabilities) Has(keyword string) bool {
	_, ok := c[keyword]
	return ok
}

// AuthMechanisms returns the mechanisms listed in the AUTH parameter.
func (c Capabilities) AuthMechanisms() []Mechanism {
	var mechs []Mechanism
	for _, f := range strings.Fields(c[CapAUTH]) {
		mechs = append(mechs, Mechanism(strings.ToUpper(f)))
	}
	return mechs
}

// MaxSize returns the SIZE extension limit, or 0 if not advertised.
func (c Capabilities) MaxSize() int64 {
	param := c[CapSIZE]
	if param == "" {
		return 0
	}
	n, err := strconv.ParseInt(param, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
