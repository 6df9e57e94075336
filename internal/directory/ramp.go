package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/lobbytrack/lobbytrack/internal/observability/metrics"
	"github.com/lobbytrack/lobbytrack/internal/reliability/retry"
	"github.com/lobbytrack/lobbytrack/pkg/cache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	rampIntegration = "ramp"
	rampScope       = "vendors:read"
	rampPageSize    = 100
)

// RampOptions configures a RampClient
type RampOptions struct {
	Settings   SettingsReader
	Env        EnvCredentials
	HTTPClient *http.Client
	BaseURL    string // default https://api.ramp.com
	Logger     *slog.Logger
}

// RampClient lists vendors from Ramp
type RampClient struct {
	settings   SettingsReader
	env        EnvCredentials
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	tokens     *cache.Cache[string]
}

// NewRampClient creates a Ramp client
func NewRampClient(opts RampOptions) *RampClient {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.ramp.com"
	}
	return &RampClient{
		settings:   opts.Settings,
		env:        opts.Env,
		httpClient: defaultHTTPClient(opts.HTTPClient),
		baseURL:    baseURL,
		logger:     logger.With(slog.String("integration", rampIntegration)),
		tokens:     cache.New[string](),
	}
}

type rampCredentials struct {
	staticToken, clientID, secret string
}

func (c *RampClient) credentials(ctx context.Context) (rampCredentials, error) {
	stored := map[string]string{}
	if c.settings != nil {
		var err error
		stored, err = c.settings.GetMany(ctx, []string{
			domain.SettingRampAPIToken,
			domain.SettingRampClientID,
			domain.SettingRampClientSecret,
		})
		if err != nil {
			return rampCredentials{}, fmt.Errorf("read ramp settings: %w", err)
		}
	}

	creds := rampCredentials{
		staticToken: pick(stored, domain.SettingRampAPIToken, c.env.RampAPIToken),
		clientID:    pick(stored, domain.SettingRampClientID, c.env.RampClientID),
		secret:      pick(stored, domain.SettingRampClientSecret, c.env.RampClientSecret),
	}
	if creds.staticToken == "" && (creds.clientID == "" || creds.secret == "") {
		return rampCredentials{}, &domain.ConfigurationError{
			Integration: rampIntegration,
			Message:     "set RAMP_API_TOKEN, or RAMP_CLIENT_ID and RAMP_CLIENT_SECRET",
		}
	}
	return creds, nil
}

// AccessToken returns the static API token when one is configured.
// Otherwise it runs the client-credentials exchange, first with the
// credentials in the form body and then in an HTTP Basic header.
func (c *RampClient) AccessToken(ctx context.Context) (string, error) {
	tok, _, err := c.accessToken(ctx)
	return tok, err
}

// accessToken also returns the cache key of an exchanged token. The key
// is empty for a static token.
func (c *RampClient) accessToken(ctx context.Context) (string, string, error) {
	creds, err := c.credentials(ctx)
	if err != nil {
		return "", "", err
	}
	if creds.staticToken != "" {
		return creds.staticToken, "", nil
	}

	if tok, ok := c.tokens.Get(creds.clientID); ok {
		return tok, creds.clientID, nil
	}

	strategies := []retry.Strategy[*oauth2.Token]{
		{Name: "form body", Do: c.exchange(creds, oauth2.AuthStyleInParams)},
		{Name: "basic header", Do: c.exchange(creds, oauth2.AuthStyleInHeader)},
	}
	tok, err := retry.FirstSuccess(ctx, c.logger, "ramp token exchange", strategies)
	if err != nil {
		var rErr *oauth2.RetrieveError
		if errors.As(err, &rErr) {
			status := 0
			if rErr.Response != nil {
				status = rErr.Response.StatusCode
			}
			return "", "", &domain.AuthError{Integration: rampIntegration, Status: status, Err: err}
		}
		return "", "", err
	}

	c.tokens.Set(creds.clientID, tok.AccessToken, tokenTTL(tok, time.Now()))
	return tok.AccessToken, creds.clientID, nil
}

func (c *RampClient) exchange(creds rampCredentials, style oauth2.AuthStyle) retry.Retryable[*oauth2.Token] {
	return func(ctx context.Context) (*oauth2.Token, error) {
		cfg := clientcredentials.Config{
			ClientID:     creds.clientID,
			ClientSecret: creds.secret,
			TokenURL:     c.baseURL + "/developer/v1/token",
			Scopes:       []string{rampScope},
			AuthStyle:    style,
		}
		tok, err := cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient))
		if err != nil {
			metrics.ObserveUpstream(rampIntegration, "token", "error")
			return nil, err
		}
		metrics.ObserveUpstream(rampIntegration, "token", "2xx")
		return tok, nil
	}
}

type rampVendor struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	LegalName   string `json:"legal_name"`
	IsActive    bool   `json:"is_active"`
	Country     string `json:"country"`
	State       string `json:"state"`
	Description string `json:"description"`
	Category    *struct {
		Name string `json:"name"`
	} `json:"category"`
}

type rampVendorPage struct {
	Data []rampVendor `json:"data"`
	Page struct {
		Next string `json:"next"`
	} `json:"page"`
}

// ListVendors follows page.next until the listing is exhausted. Any failed
// page aborts the whole listing.
func (c *RampClient) ListVendors(ctx context.Context) ([]domain.ExternalVendor, error) {
	token, key, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	next := fmt.Sprintf("%s/developer/v1/vendors?page_size=%d", c.baseURL, rampPageSize)
	var vendors []domain.ExternalVendor
	pages := 0
	for next != "" {
		var page rampVendorPage
		if err := getJSON(ctx, c.httpClient, rampIntegration, "list_vendors", next, token, &page); err != nil {
			forgetRevokedToken(c.tokens, key, err)
			return nil, err
		}
		pages++
		for _, v := range page.Data {
			ev := domain.ExternalVendor{
				ExternalID:  v.ID,
				Name:        v.Name,
				LegalName:   v.LegalName,
				IsActive:    v.IsActive,
				Country:     v.Country,
				State:       v.State,
				Description: v.Description,
			}
			if v.Category != nil {
				ev.CategoryName = v.Category.Name
			}
			vendors = append(vendors, ev)
		}
		next, _ = resolveNext(next, page.Page.Next)
	}

	c.logger.Info("vendors fetched",
		slog.Int("count", len(vendors)),
		slog.Int("pages", pages),
	)
	return vendors, nil
}
