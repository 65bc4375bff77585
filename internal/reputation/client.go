package reputation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/nao1215/defensys/internal/model"
)

// PhishTank endpoint and request defaults.
const (
	DefaultEndpoint = "https://checkurl.phishtank.com/checkurl/"
	DefaultTimeout  = 10 * time.Second
	UserAgent       = "DefensysAI Phishing Detector"

	// APIKeyEnv is the environment variable read when no key is configured.
	APIKeyEnv = "PHISHTANK_API_KEY"

	serviceName     = "phishtank"
	maxResponseSize = 1 << 20
)

// Client queries the PhishTank check URL API. It is safe for concurrent use.
type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	cache      Cache
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithAPIKey sets the application key sent as app_key.
func WithAPIKey(key string) ClientOption {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithEndpoint overrides the API URL.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient replaces the HTTP client, for example one built on
// NewSOCKS5Transport.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithCache sets the result cache. Without one every lookup hits the API.
func WithCache(cache Cache) ClientOption {
	return func(c *Client) {
		c.cache = cache
	}
}

// WithLogger sets the logger used for degraded lookups.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient returns a client with a 10 second timeout. The API key falls
// back to $PHISHTANK_API_KEY.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		apiKey:     os.Getenv(APIKeyEnv),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// NewProxiedHTTPClient returns an HTTP client with the default timeout that
// reaches the API through a SOCKS5 proxy.
func NewProxiedHTTPClient(proxyAddress string, timeout time.Duration) (*http.Client, error) {
	transport, err := NewSOCKS5Transport(proxyAddress)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Transport: transport, Timeout: timeout}, nil
}

// checkResponse is the subset of the API response the client reads. Older
// and newer API revisions name the phishing and verification fields
// differently; both are accepted.
type checkResponse struct {
	Results struct {
		InDatabase       bool   `json:"in_database"`
		Phish            *bool  `json:"phish"`
		Valid            *bool  `json:"valid"`
		Verified         bool   `json:"verified"`
		VerificationTime string `json:"verification_time"`
		VerifiedAt       string `json:"verified_at"`
	} `json:"results"`
}

// CheckURL returns the reputation of rawURL. With useCache a fresh cached
// entry is returned without contacting the API, and a successful answer is
// stored. Failures never surface as errors: the result is then not in the
// database and carries the error text.
func (c *Client) CheckURL(ctx context.Context, rawURL string, useCache bool) model.ReputationRecord {
	if useCache && c.cache != nil {
		rec, ok, err := c.cache.Get(ctx, rawURL)
		if err != nil {
			c.logger.Debug("reputation cache read failed", "url", rawURL, "error", err)
		}
		if ok {
			return rec
		}
	}

	rec, err := c.query(ctx, rawURL)
	if err != nil {
		c.logger.Warn("reputation lookup failed", "url", rawURL, "error", err)
		return model.ReputationRecord{URL: rawURL, Error: err.Error()}
	}

	if useCache && c.cache != nil {
		if err := c.cache.Put(ctx, rec); err != nil {
			c.logger.Debug("reputation cache write failed", "url", rawURL, "error", err)
		}
	}
	return rec
}

// query performs one API call. Every failure is an *model.ExternalServiceError.
func (c *Client) query(ctx context.Context, rawURL string) (model.ReputationRecord, error) {
	form := url.Values{}
	form.Set("url", rawURL)
	form.Set("format", "json")
	if c.apiKey != "" {
		form.Set("app_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return model.ReputationRecord{}, &model.ExternalServiceError{Service: serviceName, Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.ReputationRecord{}, &model.ExternalServiceError{Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseSize))
		return model.ReputationRecord{}, &model.ExternalServiceError{Service: serviceName, StatusCode: resp.StatusCode}
	}

	var body checkResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseSize)).Decode(&body); err != nil {
		return model.ReputationRecord{}, &model.ExternalServiceError{
			Service:    serviceName,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("failed to decode response: %w", err),
		}
	}

	r := body.Results
	rec := model.ReputationRecord{
		URL:              rawURL,
		InDatabase:       r.InDatabase,
		Verified:         r.Verified,
		VerificationTime: r.VerificationTime,
	}
	switch {
	case r.Phish != nil:
		rec.Phishing = *r.Phish
	case r.Valid != nil:
		rec.Phishing = *r.Valid
	}
	if rec.VerificationTime == "" {
		rec.VerificationTime = r.VerifiedAt
	}
	return rec, nil
}

// ClearCache empties the cache and returns the number of entries removed.
func (c *Client) ClearCache(ctx context.Context) (int, error) {
	if c.cache == nil {
		return 0, ErrCacheDisabled
	}
	return c.cache.Clear(ctx)
}

