package log

import (
	"context"
	"io"
	"log/slog"
	"regexp"
	"strings"
)

// MaskValue replaces sensitive values in log output.
const MaskValue = "***REDACTED***"

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	// PhishTank application key under the names it travels as.
	"app_key":           true,
	"appkey":            true,
	"phishtank_api_key": true,
	"api_key":           true,
	"apikey":            true,
	"api-key":           true,
	"x-api-key":         true,

	// HTTP auth material for lookups and proxies.
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"password":            true,
	"passwd":              true,
	"proxy_password":      true,
}

// sensitiveKeywords mask any key containing them, such as
// "reputation_api_key" or "proxy_auth". The bare word "key" is left out:
// it matches too much ("url_key", "cache_key").
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential",
	"api_key", "app_key",
}

// sensitiveValues mask string values regardless of their key.
var sensitiveValues = []*regexp.Regexp{
	// JWT
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),
	// Authorization header values
	regexp.MustCompile(`(?i)^(bearer|basic)\s+\S+`),
	// Bare API keys; PhishTank keys are 64 hex characters.
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),
}

var (
	// credentialQuery matches credential query parameters; group 1 keeps the
	// parameter name.
	credentialQuery = regexp.MustCompile(`(?i)([?&](?:app_key|api_key|apikey|access_token|token|password)=)[^&#\s]*`)

	// userinfoPassword matches the password of "scheme://user:password@",
	// as used by SOCKS5 proxy URLs and some phishing URLs.
	userinfoPassword = regexp.MustCompile(`(://[^/?#@:\s]*:)[^/?#@\s]*@`)
)

// SecureHandler is an slog.Handler that masks credentials before records
// reach the wrapped handler.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler wraps handler, or slog.Default().Handler() when nil.
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and passes it on.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	masked := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		masked.AddAttrs(sanitize(a))
		return true
	})
	return h.handler.Handle(ctx, masked)
}

// WithAttrs masks attrs before attaching them.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	masked := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		masked[i] = sanitize(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(masked)}
}

// WithGroup delegates to the wrapped handler.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func sanitize(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		group := a.Value.Group()
		masked := make([]slog.Attr, len(group))
		for i, member := range group {
			masked[i] = sanitize(member)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(masked...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	// Errors from lookups embed the request URL, so they are checked too.
	var s string
	switch a.Value.Kind() {
	case slog.KindString:
		s = a.Value.String()
	case slog.KindAny:
		err, ok := a.Value.Any().(error)
		if !ok {
			return a
		}
		s = err.Error()
	default:
		return a
	}
	if isSensitiveValue(s) {
		return slog.String(a.Key, MaskValue)
	}
	if masked := redactURL(s); masked != s {
		return slog.String(a.Key, masked)
	}
	return a
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] {
		return true
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

func isSensitiveValue(value string) bool {
	for _, pattern := range sensitiveValues {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// redactURL masks credential query values and userinfo passwords inside s,
// leaving the rest of the URL readable.
func redactURL(s string) string {
	if strings.ContainsAny(s, "?&") {
		s = credentialQuery.ReplaceAllString(s, "${1}"+MaskValue)
	}
	if strings.Contains(s, "@") {
		s = userinfoPassword.ReplaceAllString(s, "${1}"+MaskValue+"@")
	}
	return s
}

func level(verbose bool) slog.Level {
	if verbose {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

// NewSecureLogger returns a text logger writing to w. verbose enables
// Debug; otherwise only warnings and errors are written.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level(verbose)})))
}

// NewSecureJSONLogger is NewSecureLogger with one JSON object per record.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level(verbose)})))
}
