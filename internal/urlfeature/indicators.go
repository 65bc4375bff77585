package urlfeature

import (
	"regexp"
	"slices"
	"strings"
)

// suspiciousTerms are words commonly found in phishing URLs.
var suspiciousTerms = []string{
	"login", "signin", "account", "verify", "secure", "update", "password",
	"bank", "paypal", "amazon", "netflix", "wallet", "confirm", "validation",
	"apple", "microsoft", "google", "facebook", "instagram", "security",
	"authorize", "ebay", "payment", "recover", "blockchain", "alert", "suspend",
	"unusual", "activity", "access", "authenticate", "verification", "welcome",
}

// scoreKeywords drive HeuristicScore.
var scoreKeywords = []string{
	"login", "signin", "account", "verify", "secure", "update", "password",
	"bank", "paypal", "amazon", "confirm", "wallet", "crypto",
}

// suspiciousTLDs are top-level domains over-represented in phishing feeds.
var suspiciousTLDs = []string{"xyz", "tk", "ml", "ga", "cf", "gq"}

// looseIP matches four dot-separated groups of one to three digits.
var looseIP = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)

// Indicators is a small, human-readable summary of a URL used when no
// trained model is available.
type Indicators struct {
	URLLength          int  `json:"url_length"`
	DomainLength       int  `json:"domain_length"`
	PathLength         int  `json:"path_length"`
	DomainPartCount    int  `json:"domain_part_count"`
	PathPartCount      int  `json:"path_part_count"`
	HasSuspiciousTLD   bool `json:"has_suspicious_tld"`
	HasIPAddress       bool `json:"has_ip_address"`
	HasSuspiciousTerms bool `json:"has_suspicious_terms"`
}

// Inspect computes the indicators of raw.
func Inspect(raw string) Indicators {
	domain, pathParts := looseSplit(raw)
	pathLength := 0
	for _, p := range pathParts {
		pathLength += len(p)
	}
	return Indicators{
		URLLength:          len(raw),
		DomainLength:       len(domain),
		PathLength:         pathLength,
		DomainPartCount:    len(strings.Split(domain, ".")),
		PathPartCount:      len(pathParts),
		HasSuspiciousTLD:   SuspiciousTLD(raw),
		HasIPAddress:       looseIP.MatchString(raw),
		HasSuspiciousTerms: SuspiciousTerms(raw),
	}
}

// SuspiciousTerms reports whether raw contains a phishing keyword,
// case-insensitively.
func SuspiciousTerms(raw string) bool {
	lower := strings.ToLower(raw)
	return slices.ContainsFunc(suspiciousTerms, func(term string) bool {
		return strings.Contains(lower, term)
	})
}

// SuspiciousTLD reports whether the last label of raw's domain is one of
// the free or abused TLDs.
func SuspiciousTLD(raw string) bool {
	domain, _ := looseSplit(raw)
	labels := strings.Split(domain, ".")
	return slices.Contains(suspiciousTLDs, strings.ToLower(labels[len(labels)-1]))
}

// HeuristicScore returns a phishing likelihood in [0.05, 0.95] from simple
// lexical cues: a base of 0.3, +0.2 for more than three domain labels and
// +0.1 per keyword, capped at 0.9 before clamping.
func HeuristicScore(raw string) float64 {
	score := 0.3
	domain, _ := looseSplit(raw)
	if len(strings.Split(domain, ".")) > 3 {
		score += 0.2
	}
	lower := strings.ToLower(raw)
	for _, kw := range scoreKeywords {
		if strings.Contains(lower, kw) {
			score += 0.1
			if score > 0.9 {
				score = 0.9
				break
			}
		}
	}
	return min(0.95, max(0.05, score))
}

// looseSplit takes the text after the last "://" and splits it into the
// domain and the path segments that follow it.
func looseSplit(raw string) (string, []string) {
	rest := raw
	if i := strings.LastIndex(raw, "://"); i >= 0 {
		rest = raw[i+3:]
	}
	segments := strings.Split(rest, "/")
	return segments[0], segments[1:]
}
