package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/nao1215/defensys/internal/model"
	"github.com/nao1215/defensys/internal/urlfeature"
)

func TestPhishingDetector(t *testing.T) {
	t.Parallel()

	urls := []string{
		"https://golang.org/doc",
		"http://secure-login.paypal.account-verify.example.tk/signin?id=12345",
	}

	t.Run("untrained without fallback", func(t *testing.T) {
		t.Parallel()

		d := NewPhishingDetector(NewPhishingModel())
		if _, err := d.Predict(urls); !errors.Is(err, model.ErrNotTrained) {
			t.Errorf("expected ErrNotTrained, got %v", err)
		}
	})

	t.Run("heuristic fallback", func(t *testing.T) {
		t.Parallel()

		d := NewPhishingDetector(NewPhishingModel(), WithHeuristicFallback(true))
		preds, err := d.Predict(urls)
		if err != nil {
			t.Fatal(err)
		}
		if preds[0].IsPhishing || !preds[1].IsPhishing {
			t.Errorf("unexpected heuristic verdicts: %+v", preds)
		}
		for _, p := range preds {
			if p.Source != model.SourceHeuristic {
				t.Errorf("expected heuristic source, got %q", p.Source)
			}
		}
	})

	t.Run("trained model", func(t *testing.T) {
		t.Parallel()

		train := []string{
			"https://golang.org", "https://example.com/about", "https://github.com/golang/go",
			"https://www.wikipedia.org", "https://news.ycombinator.com", "https://pkg.go.dev/net/url",
			"http://192.168.10.5/paypal/login.php?acct=77812", "http://verify-account.example.tk//signin@x",
			"http://secure-update-bank.example.ml/confirm?id=99812", "http://1.2.3.4/wallet/recover-12345",
			"http://login-apple-id.example.gq/verify//now", "http://a.b.c.d.example.xyz/@signin-000111",
		}
		labels := []int{0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 1, 1}

		ex := urlfeature.NewExtractor()
		m := NewPhishingModel(testOptions()...)
		if err := m.Train(context.Background(), ex.ExtractBatch(train), labels, TrainOptions{FeatureNames: urlfeature.Names()}); err != nil {
			t.Fatal(err)
		}

		d := NewPhishingDetector(m, WithExtractor(ex), WithHeuristicFallback(true))
		preds, err := d.Predict(train)
		if err != nil {
			t.Fatal(err)
		}
		for i, p := range preds {
			if p.Source != model.SourceModel {
				t.Errorf("row %d: expected model source, got %q", i, p.Source)
			}
			if p.IsPhishing != (labels[i] == 1) {
				t.Errorf("row %d (%s): expected phishing=%v, got %+v", i, train[i], labels[i] == 1, p)
			}
			if p.URL != train[i] {
				t.Errorf("row %d: expected URL to be carried, got %q", i, p.URL)
			}
		}
	})
}
