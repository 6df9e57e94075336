// Package directory talks to the external identity directory (Microsoft
// Graph) and the vendor directory (Ramp). Clients fetch every page into
// memory; they never write local state.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/lobbytrack/lobbytrack/internal/observability/metrics"
	"github.com/lobbytrack/lobbytrack/pkg/cache"
	"golang.org/x/oauth2"
)

const bodySnippetLimit = 512

// SettingsReader is the part of the settings store credential lookup needs
type SettingsReader interface {
	GetMany(ctx context.Context, keys []string) (map[string]string, error)
}

// EnvCredentials are provider credentials from the process environment,
// consulted only when the settings store has no value.
type EnvCredentials struct {
	AzureTenantID     string
	AzureClientID     string
	AzureClientSecret string
	RampAPIToken      string
	RampClientID      string
	RampClientSecret  string
}

func pick(stored map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(stored[key]); v != "" {
		return v
	}
	return strings.TrimSpace(fallback)
}

func defaultHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: 30 * time.Second}
}

// getJSON performs an authenticated GET and decodes a 2xx body into out.
// 401/403 become *domain.AuthError, any other non-2xx *domain.UpstreamError.
func getJSON(ctx context.Context, client *http.Client, integration, call, rawURL, token string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		metrics.ObserveUpstream(integration, call, "error")
		return fmt.Errorf("%s %s request: %w", integration, call, err)
	}
	defer resp.Body.Close()
	metrics.ObserveUpstream(integration, call, metrics.StatusClass(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, bodySnippetLimit))
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return &domain.AuthError{
				Integration: integration,
				Status:      resp.StatusCode,
				Err:         errors.New(strings.TrimSpace(string(body))),
			}
		}
		return &domain.UpstreamError{
			Integration: integration,
			Status:      resp.StatusCode,
			Body:        strings.TrimSpace(string(body)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", integration, call, err)
	}
	return nil
}

// resolveNext turns a pagination cursor into an absolute URL. Empty
// cursors, and cursors pointing back at the current page, end the listing.
func resolveNext(current, next string) (string, bool) {
	next = strings.TrimSpace(next)
	if next == "" {
		return "", false
	}
	base, err := url.Parse(current)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref).String()
	if resolved == current {
		return "", false
	}
	return resolved, true
}

// tokenError classifies a failed client-credentials exchange.
func tokenError(integration string, err error) error {
	var rErr *oauth2.RetrieveError
	if errors.As(err, &rErr) {
		status := 0
		if rErr.Response != nil {
			status = rErr.Response.StatusCode
		}
		return &domain.AuthError{Integration: integration, Status: status, Err: err}
	}
	return fmt.Errorf("%s token request: %w", integration, err)
}

// tokenTTL leaves a minute of headroom before the provider's expiry.
func tokenTTL(tok *oauth2.Token, now time.Time) time.Duration {
	if tok.Expiry.IsZero() {
		return 0
	}
	return tok.Expiry.Sub(now) - time.Minute
}

// forgetRevokedToken drops a cached token the provider no longer accepts,
// so the next call exchanges a fresh one.
func forgetRevokedToken(tokens *cache.Cache[string], key string, err error) {
	var authErr *domain.AuthError
	if key != "" && errors.As(err, &authErr) {
		tokens.Delete(key)
	}
}
