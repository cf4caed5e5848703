package intrusion

import (
	"context"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-relay/pkg/pipeline"
)

// Incident classes.
const (
	ClassBruteForce = "brute force"
	ClassSuspicious = "suspicious activity"
	ClassNone       = "none"
)

// DefaultThreshold is the number of failed logins from which an alert is a brute force attempt.
const DefaultThreshold = 5

const unknownIP = "unknown"

var failureMarkers = []string{
	"failed login",
	"login failed",
	"failed password",
	"authentication failure",
	"invalid user",
}

// Analyst is an offline analysis model. It counts failed logins in the alert and
// reports the first address found.
type Analyst struct {
	Threshold int
}

func (a Analyst) Infer(ctx context.Context, prompt map[string]any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	alert, ok := prompt[KeyAlert].(string)
	if !ok {
		return nil, errors.Wrapf(pipeline.ErrUnexpectedType, "%s is %T, want string", KeyAlert, prompt[KeyAlert])
	}

	threshold := a.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	class := ClassNone

	switch failures := CountFailures(alert); {
	case failures >= threshold:
		class = ClassBruteForce
	case failures > 0:
		class = ClassSuspicious
	}

	ip := unknownIP
	if addr, ok := FirstAddr(alert); ok {
		ip = addr.String()
	}

	return Report{Class: class, IP: ip}.String(), nil
}

// CountFailures counts the failed login markers of alert. A marker directly followed
// by a repetition such as "x5" counts as many failures.
func CountFailures(alert string) int {
	lower := strings.ToLower(alert)
	count := 0

	for _, marker := range failureMarkers {
		rest := lower

		for {
			idx := strings.Index(rest, marker)
			if idx < 0 {
				break
			}

			rest = rest[idx+len(marker):]
			count += repetition(rest)
		}
	}

	return count
}

func repetition(s string) int {
	s = strings.TrimLeft(s, " ")
	if !strings.HasPrefix(s, "x") {
		return 1
	}

	end := 1
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}

	n, err := strconv.Atoi(s[1:end])
	if err != nil || n <= 0 {
		return 1
	}

	return n
}

// FirstAddr returns the first IPv4 or IPv6 address of text. Ports are ignored.
func FirstAddr(text string) (netip.Addr, bool) {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		switch r {
		case ' ', '\t', '\n', '\r', ',', ';', '=', '(', ')', '"', '\'', '<', '>':
			return true
		}

		return false
	})

	for _, token := range tokens {
		token = strings.Trim(token, ".[]")

		if addr, err := netip.ParseAddr(token); err == nil {
			return addr, true
		}

		if addrPort, err := netip.ParseAddrPort(token); err == nil {
			return addrPort.Addr(), true
		}
	}

	return netip.Addr{}, false
}

// Report is the structured form of an incident report.
type Report struct {
	Class string
	IP    string
}

func (r Report) String() string {
	return fmt.Sprintf("incident: %s, ip=%s", r.Class, r.IP)
}

// ParseReport reads an incident report written by Analyst. Reports written by other
// models are accepted as long as they carry an address.
func ParseReport(text string) Report {
	report := Report{Class: ClassSuspicious, IP: unknownIP}

	lower := strings.ToLower(text)
	if idx := strings.Index(lower, "incident:"); idx >= 0 {
		class, _, _ := strings.Cut(lower[idx+len("incident:"):], ",")
		if class = strings.TrimSpace(class); class != "" {
			report.Class = class
		}
	}

	if addr, ok := FirstAddr(text); ok {
		report.IP = addr.String()
	}

	return report
}

var _ pipeline.Model = Analyst{}
