package urlfeature

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nao1215/defensys/internal/stats"
)

// Vector is one URL feature vector in FeatureNames order.
type Vector [NumFeatures]float64

// Named returns the vector as a column-name map.
func (v Vector) Named() map[string]float64 {
	out := make(map[string]float64, NumFeatures)
	for i, name := range FeatureNames {
		out[name] = v[i]
	}
	return out
}

// Extractor maps URLs to feature vectors. It is stateless apart from its
// logger and safe for concurrent use.
type Extractor struct {
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for malformed URL diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// NewExtractor creates an Extractor.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// Preprocess resolves in into URLs and returns their feature matrix along
// with the URLs in row order.
func (e *Extractor) Preprocess(in Input) ([][]float64, []string, error) {
	urls, err := Decode(in)
	if err != nil {
		return nil, nil, err
	}
	return e.ExtractBatch(urls), urls, nil
}

// ExtractBatch returns one row per URL.
func (e *Extractor) ExtractBatch(urls []string) [][]float64 {
	rows := make([][]float64, len(urls))
	for i, u := range urls {
		v := e.Extract(u)
		rows[i] = v[:]
	}
	return rows
}

// Extract computes the feature vector of a single URL.
func (e *Extractor) Extract(raw string) Vector {
	var v Vector

	p, err := split(raw)
	if err != nil {
		e.logger.Debug("using fallback for unparsable URL components", "error", err)
	}

	domainLength := float64(utf8.RuneCountInString(p.authority))
	pathLength := float64(utf8.RuneCountInString(p.path))

	v[ColURLLength] = float64(utf8.RuneCountInString(raw))
	v[ColDomainLength] = domainLength
	v[ColPathLength] = pathLength
	v[ColDomainTokenCount] = float64(tokenCount(p.authority))
	v[ColPathTokenCount] = float64(tokenCount(p.path))
	v[ColHasIPAddress] = stats.BoolToFloat(dottedQuad.MatchString(raw))
	v[ColHasAtSymbol] = stats.BoolToFloat(strings.Contains(raw, "@"))
	v[ColHasDoubleSlash] = stats.BoolToFloat(hasDoubleSlash(raw))
	v[ColHasDashInDomain] = stats.BoolToFloat(strings.Contains(p.authority, "-"))
	v[ColHasMultipleSubdomains] = stats.BoolToFloat(strings.Contains(subdomain(p.host), "."))
	v[ColIsHTTPS] = stats.BoolToFloat(strings.HasPrefix(raw, "https"))
	v[ColDomainToPathRatio] = domainLength / (pathLength + 1)

	var digits, letters, special float64
	for _, r := range raw {
		switch {
		case unicode.IsDigit(r):
			digits++
		case unicode.IsLetter(r):
			letters++
		case unicode.IsNumber(r):
			// numeric but not a decimal digit, such as '½'
		default:
			special++
		}
	}
	v[ColDigitCount] = digits
	v[ColDigitToLetterRatio] = digits / (letters + 1)
	v[ColSpecialCharCount] = special
	return v
}
