package domain

import (
	"errors"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidFormat is returned when normalization produces an empty or
// oversized domain. 253 characters is the DNS limit for a full name.
var ErrInvalidFormat = errors.New("invalid domain format")

const maxDomainLength = 253

var (
	schemeRe = regexp.MustCompile(`^[a-z]+://`)
	wwwRe    = regexp.MustCompile(`^www\d*\.`)
)

// Normalize canonicalizes a URL or host string into a comparable domain key.
// Two domains are bound to the same license iff their normalized forms are
// byte-equal. The steps are ordered; each operates on the previous result:
// trim+lowercase, strip scheme, strip a leading www/www2 label, reduce to the
// host component, strip port, strip a trailing DNS root dot, unwrap IPv6
// brackets.
func Normalize(raw string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = schemeRe.ReplaceAllString(s, "")
	s = wwwRe.ReplaceAllString(s, "")

	s = hostOf(s)
	s = stripPort(s)
	s = strings.TrimSuffix(s, ".")

	// IPv6 literals arrive bracket-wrapped ([::1]); compare the bare address.
	if strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]") {
		s = s[1 : len(s)-1]
	}

	if s == "" || len(s) > maxDomainLength {
		return "", ErrInvalidFormat
	}
	return s, nil
}

// hostOf reduces the string to its host component, dropping any path or
// query. Parsing is attempted against an http:// prefix; if the parser
// rejects the input, everything before the first slash is used instead.
func hostOf(s string) string {
	if u, err := url.Parse("http://" + s); err == nil && u.Host != "" {
		return u.Host
	}
	if i := strings.Index(s, "/"); i >= 0 {
		return s[:i]
	}
	return s
}

// stripPort removes a trailing :port. Bracketed IPv6 hosts keep their
// brackets here; bare IPv6 addresses (multiple colons, no brackets) are left
// untouched so the address itself is not mangled.
func stripPort(s string) string {
	if strings.HasPrefix(s, "[") {
		if i := strings.Index(s, "]"); i >= 0 {
			return s[:i+1]
		}
		return s
	}
	if strings.Count(s, ":") == 1 {
		return s[:strings.Index(s, ":")]
	}
	return s
}

// Equal reports whether two raw domain strings normalize to the same
// canonical form. Inputs that fail normalization are never equal.
func Equal(a, b string) bool {
	ca, err := Normalize(a)
	if err != nil {
		return false
	}
	cb, err := Normalize(b)
	if err != nil {
		return false
	}
	return ca == cb
}
