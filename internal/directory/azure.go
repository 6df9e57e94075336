package directory

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/lobbytrack/lobbytrack/internal/domain"
	"github.com/lobbytrack/lobbytrack/internal/observability/metrics"
	"github.com/lobbytrack/lobbytrack/pkg/cache"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	azureIntegration = "azure"
	graphScope       = "https://graph.microsoft.com/.default"
	graphUserFields  = "id,displayName,mail,userPrincipalName,jobTitle,department"
	maxPhotoBytes    = 4 << 20
)

// AzureOptions configures an AzureClient
type AzureOptions struct {
	Settings   SettingsReader
	Env        EnvCredentials
	HTTPClient *http.Client
	LoginURL   string // default https://login.microsoftonline.com
	GraphURL   string // default https://graph.microsoft.com
	Logger     *slog.Logger
}

// AzureClient lists users from Microsoft Graph
type AzureClient struct {
	settings   SettingsReader
	env        EnvCredentials
	httpClient *http.Client
	loginURL   string
	graphURL   string
	logger     *slog.Logger
	tokens     *cache.Cache[string]
}

// NewAzureClient creates a Graph client
func NewAzureClient(opts AzureOptions) *AzureClient {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	loginURL := strings.TrimRight(opts.LoginURL, "/")
	if loginURL == "" {
		loginURL = "https://login.microsoftonline.com"
	}
	graphURL := strings.TrimRight(opts.GraphURL, "/")
	if graphURL == "" {
		graphURL = "https://graph.microsoft.com"
	}
	return &AzureClient{
		settings:   opts.Settings,
		env:        opts.Env,
		httpClient: defaultHTTPClient(opts.HTTPClient),
		loginURL:   loginURL,
		graphURL:   graphURL,
		logger:     logger.With(slog.String("integration", azureIntegration)),
		tokens:     cache.New[string](),
	}
}

type azureCredentials struct {
	tenant, clientID, secret string
}

func (c *AzureClient) credentials(ctx context.Context) (azureCredentials, error) {
	stored := map[string]string{}
	if c.settings != nil {
		var err error
		stored, err = c.settings.GetMany(ctx, []string{
			domain.SettingAzureTenantID,
			domain.SettingAzureClientID,
			domain.SettingAzureClientSecret,
			domain.SettingAzureCallbackURL,
		})
		if err != nil {
			return azureCredentials{}, fmt.Errorf("read azure settings: %w", err)
		}
	}

	creds := azureCredentials{
		tenant:   pick(stored, domain.SettingAzureTenantID, c.env.AzureTenantID),
		clientID: pick(stored, domain.SettingAzureClientID, c.env.AzureClientID),
		secret:   pick(stored, domain.SettingAzureClientSecret, c.env.AzureClientSecret),
	}
	if creds.tenant == "" {
		creds.tenant = TenantFromCallbackURL(stored[domain.SettingAzureCallbackURL])
	}

	var missing []string
	if creds.tenant == "" {
		missing = append(missing, "AZURE_TENANT_ID")
	}
	if creds.clientID == "" {
		missing = append(missing, "AZURE_CLIENT_ID")
	}
	if creds.secret == "" {
		missing = append(missing, "AZURE_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return azureCredentials{}, &domain.ConfigurationError{
			Integration: azureIntegration,
			Message:     "set " + strings.Join(missing, ", "),
		}
	}
	return creds, nil
}

// TenantFromCallbackURL derives the directory tenant from a stored OAuth
// callback URL: the first path segment on login.microsoftonline.com, or
// the tenant query parameter on any other host.
func TenantFromCallbackURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	if strings.EqualFold(u.Hostname(), "login.microsoftonline.com") {
		if seg := strings.Split(strings.Trim(u.Path, "/"), "/"); seg[0] != "" {
			return seg[0]
		}
	}
	return u.Query().Get("tenant")
}

// AccessToken performs the client-credentials exchange, reusing a cached
// token until a minute before it expires.
func (c *AzureClient) AccessToken(ctx context.Context) (string, error) {
	tok, _, err := c.accessToken(ctx)
	return tok, err
}

// accessToken also returns the cache key the token is stored under
func (c *AzureClient) accessToken(ctx context.Context) (string, string, error) {
	creds, err := c.credentials(ctx)
	if err != nil {
		return "", "", err
	}

	key := creds.tenant + ":" + creds.clientID
	if tok, ok := c.tokens.Get(key); ok {
		return tok, key, nil
	}

	cfg := clientcredentials.Config{
		ClientID:     creds.clientID,
		ClientSecret: creds.secret,
		TokenURL:     fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.loginURL, url.PathEscape(creds.tenant)),
		Scopes:       []string{graphScope},
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	tok, err := cfg.Token(context.WithValue(ctx, oauth2.HTTPClient, c.httpClient))
	if err != nil {
		metrics.ObserveUpstream(azureIntegration, "token", "error")
		return "", "", tokenError(azureIntegration, err)
	}
	metrics.ObserveUpstream(azureIntegration, "token", "2xx")

	c.tokens.Set(key, tok.AccessToken, tokenTTL(tok, time.Now()))
	return tok.AccessToken, key, nil
}

type graphUser struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
	JobTitle          string `json:"jobTitle"`
	Department        string `json:"department"`
}

type graphUserPage struct {
	Value    []graphUser `json:"value"`
	NextLink string      `json:"@odata.nextLink"`
}

// ListUsers follows @odata.nextLink until the listing is exhausted. Any
// failed page aborts the whole listing.
func (c *AzureClient) ListUsers(ctx context.Context) ([]domain.ExternalUser, error) {
	token, key, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	next := fmt.Sprintf("%s/v1.0/users?$select=%s&$top=999", c.graphURL, graphUserFields)
	var users []domain.ExternalUser
	pages := 0
	for next != "" {
		var page graphUserPage
		if err := getJSON(ctx, c.httpClient, azureIntegration, "list_users", next, token, &page); err != nil {
			forgetRevokedToken(c.tokens, key, err)
			return nil, err
		}
		pages++
		for _, u := range page.Value {
			users = append(users, domain.ExternalUser{
				ExternalID:        u.ID,
				DisplayName:       u.DisplayName,
				Mail:              u.Mail,
				UserPrincipalName: u.UserPrincipalName,
				JobTitle:          u.JobTitle,
				Department:        u.Department,
			})
		}
		next, _ = resolveNext(next, page.NextLink)
	}

	c.logger.Info("directory users fetched",
		slog.Int("count", len(users)),
		slog.Int("pages", pages),
	)
	return users, nil
}

// UserPhoto downloads a user's profile photo. Every failure, including a
// user without a photo, returns nil.
func (c *AzureClient) UserPhoto(ctx context.Context, externalID string) ([]byte, string) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, ""
	}

	photoURL := fmt.Sprintf("%s/v1.0/users/%s/photo/$value", c.graphURL, url.PathEscape(externalID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, photoURL, nil)
	if err != nil {
		return nil, ""
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.ObserveUpstream(azureIntegration, "photo", "error")
		c.logger.Debug("photo request failed", slog.String("external_id", externalID), slog.String("error", err.Error()))
		return nil, ""
	}
	defer resp.Body.Close()
	metrics.ObserveUpstream(azureIntegration, "photo", metrics.StatusClass(resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, ""
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPhotoBytes))
	if err != nil || len(data) == 0 {
		return nil, ""
	}
	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return data, contentType
}
