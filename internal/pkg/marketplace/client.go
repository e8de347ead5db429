package marketplace

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const dateLayout = "2006-01-02"

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
	Timeout      time.Duration
}

// Client talks to the marketplace REST API. Token grants go through
// golang.org/x/oauth2; order calls are plain bearer-authenticated GETs.
type Client struct {
	oauth   *oauth2.Config
	baseURL string
	http    *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"read_orders", "read_items"},
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		baseURL: strings.TrimRight(cfg.APIBaseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// AuthCodeURL is the consent URL an admin is redirected to when connecting a store.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ExchangeCode performs the authorization_code grant.
func (c *Client) ExchangeCode(ctx context.Context, code string) (Token, error) {
	tok, err := c.oauth.Exchange(c.oauthContext(ctx), code)
	if err != nil {
		return Token{}, wrapOAuthError(err)
	}
	return fromOAuth(tok), nil
}

// RefreshToken performs the refresh_token grant.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (Token, error) {
	src := c.oauth.TokenSource(c.oauthContext(ctx), &oauth2.Token{RefreshToken: refreshToken})
	tok, err := src.Token()
	if err != nil {
		return Token{}, wrapOAuthError(err)
	}
	out := fromOAuth(tok)
	if out.RefreshToken == "" {
		out.RefreshToken = refreshToken
	}
	return out, nil
}

func (c *Client) ListOrders(ctx context.Context, accessToken string, params ListOrdersParams) ([]OrderSummary, error) {
	q := url.Values{}
	if !params.StartOrdered.IsZero() {
		q.Set("start_ordered", params.StartOrdered.Format(dateLayout))
	}
	if !params.EndOrdered.IsZero() {
		q.Set("end_ordered", params.EndOrdered.Format(dateLayout))
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Offset > 0 {
		q.Set("offset", strconv.Itoa(params.Offset))
	}

	var resp listOrdersResponse
	if err := c.get(ctx, accessToken, "/1/orders", q, &resp); err != nil {
		return nil, err
	}
	return resp.Orders, nil
}

func (c *Client) GetOrderDetail(ctx context.Context, accessToken string, uniqueKey string) (OrderDetail, error) {
	var resp orderDetailResponse
	if err := c.get(ctx, accessToken, "/1/orders/detail/"+url.PathEscape(uniqueKey), nil, &resp); err != nil {
		return OrderDetail{}, err
	}
	return resp.Order, nil
}

func (c *Client) get(ctx context.Context, accessToken string, path string, params url.Values, dest interface{}) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint = endpoint + "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build marketplace request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("marketplace request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read marketplace response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, body)
	}
	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to decode marketplace response: %w", err)
	}
	return nil
}

func (c *Client) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.http)
}

func newAPIError(status int, body []byte) *APIError {
	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err != nil || parsed.Error == "" {
		return &APIError{StatusCode: status, ErrorCode: http.StatusText(status), Message: strings.TrimSpace(string(body))}
	}
	return &APIError{StatusCode: status, ErrorCode: parsed.Error, Message: parsed.ErrorDescription}
}

func wrapOAuthError(err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) {
		status := 0
		if re.Response != nil {
			status = re.Response.StatusCode
		}
		return &APIError{StatusCode: status, ErrorCode: re.ErrorCode, Message: re.ErrorDescription}
	}
	return fmt.Errorf("marketplace token request failed: %w", err)
}

func fromOAuth(tok *oauth2.Token) Token {
	return Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
}
