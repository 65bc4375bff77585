package urlfeature

import (
	"net"
	"net/netip"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/publicsuffix"

	"github.com/nao1215/defensys/internal/model"
)

var (
	// nonWord matches runs of characters that are not letters, digits or
	// underscores.
	nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

	// dottedQuad matches an IPv4 address anywhere in a string.
	dottedQuad = regexp.MustCompile(`((25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)\.){3}(25[0-5]|2[0-4][0-9]|[01]?[0-9][0-9]?)`)
)

// parts holds the URL components the extractor measures.
type parts struct {
	// authority is the network location including userinfo and port.
	authority string
	path      string
	host      string
}

// split parses raw into its authority, path and host. A URL that net/url
// rejects is cut by hand into scheme, authority and path, and a
// *model.MalformedRecordError is returned alongside those components.
func split(raw string) (parts, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return cut(raw), &model.MalformedRecordError{Field: "url", Value: raw}
	}

	p := parts{authority: u.Host, path: u.Path}
	if u.User != nil {
		p.authority = u.User.String() + "@" + u.Host
	}
	if u.RawPath != "" {
		p.path = u.RawPath
	}
	if u.Opaque != "" {
		p.path = u.Opaque
	}

	if u.Host != "" {
		p.host = u.Hostname()
	} else {
		p.host = bareHost(raw)
	}
	return p, nil
}

// cut splits raw without validating escapes or host characters. The
// authority follows "//" after an optional scheme and ends at the first
// '/', '?' or '#'. The path ends at the query or fragment.
func cut(raw string) parts {
	rest := raw
	if i := strings.IndexByte(rest, ':'); i > 0 && isScheme(rest[:i]) {
		rest = rest[i+1:]
	}

	var p parts
	if after, ok := strings.CutPrefix(rest, "//"); ok {
		end := len(after)
		if i := strings.IndexAny(after, "/?#"); i >= 0 {
			end = i
		}
		p.authority, rest = after[:end], after[end:]
	}
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	p.path = rest

	if p.authority != "" {
		p.host = bareHost(p.authority)
	} else {
		p.host = bareHost(raw)
	}
	return p
}

// isScheme reports whether s is a valid URL scheme: a letter followed by
// letters, digits, '+', '-' or '.'.
func isScheme(s string) bool {
	for i, r := range s {
		switch {
		case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z':
		case i > 0 && ('0' <= r && r <= '9' || r == '+' || r == '-' || r == '.'):
		default:
			return false
		}
	}
	return s != ""
}

// bareHost extracts a host from a URL written without a scheme, such as
// "www.example.com/login".
func bareHost(raw string) string {
	s := raw
	if _, rest, ok := strings.Cut(s, "://"); ok {
		s = rest
	}
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	if i := strings.LastIndex(s, "@"); i >= 0 {
		s = s[i+1:]
	}
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	return strings.ToLower(strings.Trim(s, "[]"))
}

// tokenCount returns the number of pieces s splits into on non-word runs.
// An empty string is one empty token, and a leading or trailing separator
// adds an empty token.
func tokenCount(s string) int {
	return len(nonWord.Split(s, -1))
}

// subdomain returns the labels in front of the registrable domain of host.
// Only ICANN suffixes count, so "a.b.github.io" has subdomain "a.b". IP
// literals and hosts that are themselves a public suffix have none.
func subdomain(host string) string {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	if host == "" {
		return ""
	}
	if _, err := netip.ParseAddr(host); err == nil {
		return ""
	}
	prefix, ok := strings.CutSuffix(host, "."+icannSuffix(host))
	if !ok {
		return ""
	}
	i := strings.LastIndexByte(prefix, '.')
	if i < 0 {
		return ""
	}
	return prefix[:i]
}

// icannSuffix returns the public suffix of host, skipping privately
// registered suffixes such as "github.io" or "blogspot.com".
func icannSuffix(host string) string {
	suffix, icann := publicsuffix.PublicSuffix(host)
	for !icann {
		_, parent, ok := strings.Cut(suffix, ".")
		if !ok {
			break
		}
		suffix, icann = publicsuffix.PublicSuffix(parent)
	}
	return suffix
}

// hasDoubleSlash reports whether "//" occurs between the first and second
// "://" of raw. It is false when raw has no scheme separator.
func hasDoubleSlash(raw string) bool {
	segments := strings.Split(raw, "://")
	if len(segments) < 2 {
		return false
	}
	return strings.Contains(segments[1], "//")
}
