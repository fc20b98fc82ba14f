// Package validate implements the --validate entry point (spec §9 open
// question): a separate path that checks a token against a remote HTTP
// endpoint and exits 0/1 without starting the proxy. Token validation
// itself is an external collaborator per spec §1's scope — this package
// is the thin, testable boundary the core calls into.
package validate

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"os"
	"time"
)

// DefaultURL is used when MULTIFLOWPROXY_VALIDATE_URL is unset.
const DefaultURL = "https://api.example.invalid/validate"

const requestTimeout = 5 * time.Second

// Run posts token to the validation endpoint and reports whether it was
// accepted. A non-2xx response or transport error counts as rejected.
func Run(ctx context.Context, token string) (bool, error) {
	url := os.Getenv("MULTIFLOWPROXY_VALIDATE_URL")
	if url == "" {
		url = DefaultURL
	}

	body, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return false, err
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
