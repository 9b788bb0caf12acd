package apiclient

import (
	"regexp"
	"strings"
)

// Challenge is a parsed WWW-Authenticate header value. Scheme keeps the
// server's casing; callers compare it case-insensitively.
type Challenge struct {
	Scheme  string
	Details map[string]string
}

// challengeTokenRe matches RFC 7235 challenge tokens: a bare token, or a
// token=value pair whose value is a token or a quoted-string that may
// contain escaped characters.
var challengeTokenRe = regexp.MustCompile(
	"([!#$%&'*+\\-.^_`|~0-9A-Za-z]+)(=(?:\"(?:[^\"\\\\]|\\\\[\\s\\S])*\"|[!#$%&'*+\\-.^_`|~0-9A-Za-z=]*))?")

// lwsRe matches RFC 2616 linear whitespace folding inside quoted values:
// CRLF followed by spaces or tabs collapses to a single space.
var lwsRe = regexp.MustCompile("\r\n[ \t]+")

var escapedCharRe = regexp.MustCompile(`\\([\s\S])`)

// ParseChallenge parses a WWW-Authenticate header into a Challenge. The
// value is either the raw header string or, for transports that split
// multi-valued headers, a slice of strings whose first element opens with
// the scheme. An unparsable or empty value yields nil rather than an
// error; the caller treats it as the absence of a challenge.
func ParseChallenge(value any) *Challenge {
	switch v := value.(type) {
	case string:
		return parseChallengeString(v)
	case []string:
		return parseChallengeList(v)
	default:
		return nil
	}
}

func parseChallengeString(raw string) *Challenge {
	matches := challengeTokenRe.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return nil
	}

	challenge := &Challenge{Scheme: matches[0][1]}
	if matches[0][2] != "" {
		// The first token already carries "=value"; the header has no
		// scheme and cannot be acted upon.
		return nil
	}

	for _, m := range matches[1:] {
		if m[2] == "" {
			continue
		}
		challenge.addDetail(m[1], strings.TrimPrefix(m[2], "="))
	}
	return challenge
}

func parseChallengeList(parts []string) *Challenge {
	if len(parts) == 0 {
		return nil
	}

	first := strings.TrimSpace(parts[0])
	if first == "" {
		return nil
	}
	scheme, rest, _ := strings.Cut(first, " ")
	challenge := &Challenge{Scheme: scheme}

	pairs := make([]string, 0, len(parts))
	if rest != "" {
		pairs = append(pairs, rest)
	}
	pairs = append(pairs, parts[1:]...)

	for _, pair := range pairs {
		for _, m := range challengeTokenRe.FindAllStringSubmatch(pair, -1) {
			if m[2] == "" {
				continue
			}
			challenge.addDetail(m[1], strings.TrimPrefix(m[2], "="))
		}
	}
	return challenge
}

func (c *Challenge) addDetail(key, value string) {
	if c.Details == nil {
		c.Details = make(map[string]string)
	}
	c.Details[key] = unquote(value)
}

// unquote strips surrounding quotes from a quoted-string value, folding
// linear whitespace and resolving escapes. Bare tokens pass through.
func unquote(v string) string {
	if len(v) < 2 || v[0] != '"' || v[len(v)-1] != '"' {
		return v
	}
	inner := v[1 : len(v)-1]
	inner = lwsRe.ReplaceAllString(inner, " ")
	return escapedCharRe.ReplaceAllString(inner, "$1")
}
