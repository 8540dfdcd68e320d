package reddit

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bakerboy448/RedditModLog/app/modlog"
)

// ErrNotFound is returned when the subreddit or wiki page does not exist.
var ErrNotFound = errors.New("not found")

// maxBodySize bounds response bodies; wiki pages top out near 512KB.
const maxBodySize = 4 << 20

// Client talks to the reddit API as a script application. It is the source of
// moderation log pages and the target of wiki writes.
type Client struct {
	httpClient *http.Client
	creds      Credentials
	userAgent  string
	apiURL     string
	authURL    string
	now        func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewClient(httpClient *http.Client, config Config) *Client {
	return &Client{
		httpClient: httpClient,
		creds:      config.Credentials,
		userAgent:  config.UserAgent,
		apiURL:     strings.TrimRight(cmp.Or(config.APIURL, DefaultAPIURL), "/"),
		authURL:    cmp.Or(config.AuthURL, DefaultAuthURL),
		now:        time.Now,
	}
}

// FetchPage returns one page of the subreddit's moderation log, newest first.
func (c *Client) FetchPage(ctx context.Context, req modlog.PageRequest) (*modlog.Page, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(req.Limit))
	query.Set("raw_json", "1")
	if req.After != "" {
		query.Set("after", req.After)
	}

	path := fmt.Sprintf("/r/%s/about/log?%s", url.PathEscape(req.Subreddit), query.Encode())

	var listing modLogListing
	if err := c.doJSON(ctx, "fetch modlog", http.MethodGet, path, nil, &listing); err != nil {
		return nil, err
	}

	page := &modlog.Page{After: listing.Data.After}
	for _, child := range listing.Data.Children {
		page.Actions = append(page.Actions, child.Data.toRaw())
	}

	slog.Debug("Modlog page fetched", "subreddit", req.Subreddit, "actions", len(page.Actions), "after", page.After)

	return page, nil
}

// WritePage replaces the content of a wiki page, creating it if needed.
func (c *Client) WritePage(ctx context.Context, subreddit, page, content, reason string) error {
	form := url.Values{}
	form.Set("page", page)
	form.Set("content", content)
	form.Set("reason", reason)

	path := fmt.Sprintf("/r/%s/api/wiki/edit", url.PathEscape(subreddit))

	return c.doJSON(ctx, "write wiki page", http.MethodPost, path, form, nil)
}

// ReadPage returns the markdown source of a wiki page.
func (c *Client) ReadPage(ctx context.Context, subreddit, page string) (string, error) {
	path := fmt.Sprintf("/r/%s/wiki/%s.json?raw_json=1", url.PathEscape(subreddit), page)

	var resp wikiPageResponse
	if err := c.doJSON(ctx, "read wiki page", http.MethodGet, path, nil, &resp); err != nil {
		return "", err
	}

	return resp.Data.ContentMD, nil
}

// doJSON performs an authenticated request. An expired token is refreshed once
// before a 401 is reported.
func (c *Client) doJSON(ctx context.Context, op, method, path string, form url.Values, out any) error {
	for attempt := 0; ; attempt++ {
		token, err := c.accessToken(ctx)
		if err != nil {
			return err
		}

		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}

		req, err := http.NewRequestWithContext(ctx, method, c.apiURL+path, body)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Authorization", "bearer "+token)
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return &modlog.TransientError{Op: op, Err: err}
		}

		data, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
		resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			slog.Debug("Access token rejected, refreshing", "op", op)
			c.invalidateToken()
			continue
		}

		if err := statusError(op, resp); err != nil {
			return err
		}

		if readErr != nil {
			return &modlog.TransientError{Op: op, Err: fmt.Errorf("failed to read response: %w", readErr)}
		}

		if out == nil {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s: failed to decode response: %w", op, err)
		}
		return nil
	}
}

func (c *Client) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "password")
	form.Set("username", c.creds.Username)
	form.Set("password", c.creds.Password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &modlog.TransientError{Op: "authenticate", Err: err}
	}
	defer resp.Body.Close()

	if err := statusError("authenticate", resp); err != nil {
		return "", err
	}

	var token tokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodySize)).Decode(&token); err != nil {
		return "", fmt.Errorf("authenticate: failed to decode token: %w", err)
	}
	if token.Error != "" || token.AccessToken == "" {
		return "", &modlog.AuthError{Op: "authenticate", Err: errors.New(cmp.Or(token.Error, "empty access token"))}
	}

	// refresh a minute early
	lifetime := time.Duration(token.ExpiresIn)*time.Second - time.Minute
	c.token = token.AccessToken
	c.expiresAt = c.now().Add(max(lifetime, 0))

	slog.Debug("Access token obtained", "expires_at", c.expiresAt)

	return c.token, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
}

func statusError(op string, resp *http.Response) error {
	status := resp.StatusCode
	cause := fmt.Errorf("HTTP error: %d %s", status, http.StatusText(status))

	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized:
		return &modlog.AuthError{Op: op, Err: cause}
	case status == http.StatusForbidden:
		return &modlog.PermissionError{Op: op, Err: cause}
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	case status == http.StatusTooManyRequests || status >= 500:
		return &modlog.TransientError{Op: op, StatusCode: status, RetryAfter: retryAfter(resp), Err: cause}
	default:
		return fmt.Errorf("%s: %w", op, cause)
	}
}

func retryAfter(resp *http.Response) time.Duration {
	for _, header := range []string{"Retry-After", "X-Ratelimit-Reset"} {
		if v := resp.Header.Get(header); v != "" {
			if seconds, err := strconv.ParseFloat(v, 64); err == nil && seconds > 0 {
				return time.Duration(seconds * float64(time.Second))
			}
		}
	}
	return 0
}
