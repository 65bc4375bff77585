package reputation

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// phishTankServer answers every request with status and body and counts hits.
func phishTankServer(t *testing.T, status int, body string, inspect func(*http.Request)) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if err := r.ParseForm(); err != nil {
			t.Errorf("ParseForm() error = %v", err)
		}
		if inspect != nil {
			inspect(r)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &hits
}

func TestClientCheckURL(t *testing.T) {
	t.Parallel()

	t.Run("decodes a listed phishing url", func(t *testing.T) {
		t.Parallel()

		body := `{"results":{"url":"http://bad.example","in_database":true,"phish":true,"verified":true,"verification_time":"2024-01-02T03:04:05+00:00"}}`
		srv, _ := phishTankServer(t, http.StatusOK, body, func(r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("method = %s, want POST", r.Method)
			}
			if got := r.PostForm.Get("url"); got != "http://bad.example" {
				t.Errorf("url = %q", got)
			}
			if got := r.PostForm.Get("format"); got != "json" {
				t.Errorf("format = %q, want json", got)
			}
			if got := r.PostForm.Get("app_key"); got != "secret" {
				t.Errorf("app_key = %q, want secret", got)
			}
			if got := r.Header.Get("User-Agent"); got != UserAgent {
				t.Errorf("User-Agent = %q", got)
			}
			if got := r.Header.Get("Accept"); got != "application/json" {
				t.Errorf("Accept = %q", got)
			}
		})

		c := NewClient(WithEndpoint(srv.URL), WithAPIKey("secret"), WithLogger(quietLogger()))
		rec := c.CheckURL(context.Background(), "http://bad.example", false)

		if !rec.InDatabase || !rec.Phishing || !rec.Verified {
			t.Errorf("record = %+v, want listed verified phishing", rec)
		}
		if rec.VerificationTime != "2024-01-02T03:04:05+00:00" {
			t.Errorf("VerificationTime = %q", rec.VerificationTime)
		}
		if rec.Failed() {
			t.Errorf("Error = %q, want empty", rec.Error)
		}
	})

	t.Run("accepts legacy field names", func(t *testing.T) {
		t.Parallel()

		body := `{"results":{"in_database":true,"valid":true,"verified":false,"verified_at":"2023-05-06"}}`
		srv, _ := phishTankServer(t, http.StatusOK, body, func(r *http.Request) {
			if _, ok := r.PostForm["app_key"]; ok {
				t.Error("app_key sent without a configured key")
			}
		})

		c := NewClient(WithEndpoint(srv.URL), WithAPIKey(""), WithLogger(quietLogger()))
		rec := c.CheckURL(context.Background(), "http://old.example", false)

		if !rec.Phishing {
			t.Error("Phishing = false, want true from valid")
		}
		if rec.VerificationTime != "2023-05-06" {
			t.Errorf("VerificationTime = %q, want fallback from verified_at", rec.VerificationTime)
		}
	})

	t.Run("non-200 degrades and is not cached", func(t *testing.T) {
		t.Parallel()

		srv, hits := phishTankServer(t, http.StatusServiceUnavailable, "down", nil)
		cache, err := NewFileCache(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileCache() error = %v", err)
		}
		c := NewClient(WithEndpoint(srv.URL), WithCache(cache), WithLogger(quietLogger()))

		for range 2 {
			rec := c.CheckURL(context.Background(), "http://x.example", true)
			if rec.InDatabase || rec.Phishing || rec.Verified {
				t.Errorf("record = %+v, want unknown", rec)
			}
			if !strings.Contains(rec.Error, "503") {
				t.Errorf("Error = %q, want status code", rec.Error)
			}
		}
		if got := hits.Load(); got != 2 {
			t.Errorf("server hits = %d, want 2", got)
		}
	})

	t.Run("undecodable body degrades", func(t *testing.T) {
		t.Parallel()

		srv, _ := phishTankServer(t, http.StatusOK, "<html>", nil)
		c := NewClient(WithEndpoint(srv.URL), WithLogger(quietLogger()))
		rec := c.CheckURL(context.Background(), "http://x.example", false)

		if !rec.Failed() || rec.InDatabase {
			t.Errorf("record = %+v, want degraded", rec)
		}
	})

	t.Run("timeout degrades", func(t *testing.T) {
		t.Parallel()

		srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		t.Cleanup(srv.Close)

		c := NewClient(
			WithEndpoint(srv.URL),
			WithHTTPClient(&http.Client{Timeout: 50 * time.Millisecond}),
			WithLogger(quietLogger()),
		)
		rec := c.CheckURL(context.Background(), "http://slow.example", false)
		if !rec.Failed() {
			t.Errorf("record = %+v, want degraded", rec)
		}
	})

	t.Run("cached result skips the service", func(t *testing.T) {
		t.Parallel()

		body := `{"results":{"in_database":true,"phish":false,"verified":true}}`
		srv, hits := phishTankServer(t, http.StatusOK, body, nil)
		cache, err := NewFileCache(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileCache() error = %v", err)
		}
		c := NewClient(WithEndpoint(srv.URL), WithCache(cache), WithLogger(quietLogger()))

		first := c.CheckURL(context.Background(), "http://ok.example", true)
		second := c.CheckURL(context.Background(), "http://ok.example", true)

		if first.FromCache {
			t.Error("first lookup marked as cached")
		}
		if !second.FromCache || !second.InDatabase || !second.Verified {
			t.Errorf("second = %+v, want cached listed record", second)
		}
		if got := hits.Load(); got != 1 {
			t.Errorf("server hits = %d, want 1", got)
		}

		third := c.CheckURL(context.Background(), "http://ok.example", false)
		if third.FromCache {
			t.Error("lookup with useCache=false served from cache")
		}
		if got := hits.Load(); got != 2 {
			t.Errorf("server hits = %d, want 2", got)
		}
	})
}

func TestClientClearCache(t *testing.T) {
	t.Parallel()

	t.Run("without cache", func(t *testing.T) {
		t.Parallel()

		c := NewClient(WithLogger(quietLogger()))
		if _, err := c.ClearCache(context.Background()); err != ErrCacheDisabled {
			t.Errorf("ClearCache() error = %v, want ErrCacheDisabled", err)
		}
	})

	t.Run("counts removed entries", func(t *testing.T) {
		t.Parallel()

		body := `{"results":{"in_database":false}}`
		srv, _ := phishTankServer(t, http.StatusOK, body, nil)
		cache, err := NewFileCache(t.TempDir())
		if err != nil {
			t.Fatalf("NewFileCache() error = %v", err)
		}
		c := NewClient(WithEndpoint(srv.URL), WithCache(cache), WithLogger(quietLogger()))
		for _, u := range []string{"http://a.example", "http://b.example", "http://a.example"} {
			c.CheckURL(context.Background(), u, true)
		}

		n, err := c.ClearCache(context.Background())
		if err != nil {
			t.Fatalf("ClearCache() error = %v", err)
		}
		if n != 2 {
			t.Errorf("ClearCache() = %d, want 2", n)
		}
	})
}

func TestNewProxiedHTTPClient(t *testing.T) {
	t.Parallel()

	if _, err := NewProxiedHTTPClient("no-port", 0); err != ErrInvalidProxyAddress {
		t.Errorf("error = %v, want ErrInvalidProxyAddress", err)
	}

	hc, err := NewProxiedHTTPClient("127.0.0.1:9050", 0)
	if err != nil {
		t.Fatalf("NewProxiedHTTPClient() error = %v", err)
	}
	if hc.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", hc.Timeout, DefaultTimeout)
	}
	if _, ok := hc.Transport.(*http.Transport); !ok {
		t.Errorf("Transport = %T, want *http.Transport", hc.Transport)
	}
}
