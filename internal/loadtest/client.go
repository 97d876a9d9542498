package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// browser is one simulated visitor. It keeps its own cookies, so each one
// gets its own server-side session.
type browser struct {
	base   string
	client *http.Client
}

func newBrowser(base string, timeout time.Duration) (*browser, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &browser{base: base, client: &http.Client{Jar: jar, Timeout: timeout}}, nil
}

// do sends body as JSON and decodes the reply into out when it is non-nil.
// Any status other than want is an error.
func (b *browser) do(ctx context.Context, method, path string, body, out any, want int) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, b.base+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s %s: %w", method, path, err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("%w: %s %s answered %d: %s", ErrUnexpectedStatus, method, path, resp.StatusCode, bytes.TrimSpace(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}

type investorEntry struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	InterestedDomains []string `json:"interestedDomains"`
}

type investorList struct {
	Investors []investorEntry `json:"investors"`
}
