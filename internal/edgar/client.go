package edgar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
)

const (
	// DefaultSubmissionsURL is the submissions endpoint template; %s is the
	// 10-digit zero-padded CIK.
	DefaultSubmissionsURL = "https://data.sec.gov/submissions/CIK%s.json"

	// DefaultArchiveBaseURL is the base URL for filing archive documents.
	DefaultArchiveBaseURL = "https://www.sec.gov/Archives/edgar/data"

	// DefaultUserAgent identifies the client per the SEC fair-access policy.
	DefaultUserAgent = "Tenka Report Automation admin@ternarybob.com"

	// DefaultRequestDelay is the minimum spacing between requests. The SEC
	// allows at most 10 requests per second.
	DefaultRequestDelay = 100 * time.Millisecond

	// DefaultTimeout is the default HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries is the number of retries on transient failure.
	DefaultMaxRetries = 1

	retryBackoff = 500 * time.Millisecond
)

// Client is a rate-limited SEC EDGAR API client. A single limiter paces all
// requests made through one client, so every consumer sharing it observes
// the global minimum spacing.
type Client struct {
	submissionsURL string
	archiveBaseURL string
	userAgent      string
	maxRetries     int
	httpClient     *http.Client
	logger         arbor.ILogger
	limiter        *rate.Limiter
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithSubmissionsURL sets a custom submissions endpoint template.
func WithSubmissionsURL(urlTemplate string) ClientOption {
	return func(c *Client) {
		c.submissionsURL = urlTemplate
	}
}

// WithArchiveBaseURL sets a custom archive base URL.
func WithArchiveBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.archiveBaseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithUserAgent sets the client-identification header value.
func WithUserAgent(userAgent string) ClientOption {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets a logger.
func WithLogger(logger arbor.ILogger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithRequestDelay sets the minimum spacing between consecutive requests.
func WithRequestDelay(delay time.Duration) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Every(delay), 1)
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries sets how many times a transient failure is retried.
func WithMaxRetries(retries int) ClientOption {
	return func(c *Client) {
		c.maxRetries = retries
	}
}

// NewClient creates a new SEC EDGAR API client.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		submissionsURL: DefaultSubmissionsURL,
		archiveBaseURL: DefaultArchiveBaseURL,
		userAgent:      DefaultUserAgent,
		maxRetries:     DefaultMaxRetries,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
		limiter: rate.NewLimiter(rate.Every(DefaultRequestDelay), 1),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// PadCIK zero-pads a CIK to the 10 digits the submissions endpoint expects.
func PadCIK(cik string) string {
	return fmt.Sprintf("%010s", strings.TrimLeft(cik, "0"))
}

// cikArchiveSegment strips leading zeros; archive paths use the bare integer.
func cikArchiveSegment(cik string) string {
	trimmed := strings.TrimLeft(cik, "0")
	if trimmed == "" {
		return "0"
	}
	if _, err := strconv.Atoi(trimmed); err != nil {
		return cik
	}
	return trimmed
}

// DocumentURL constructs the canonical archive location of one filing
// document from registrant, accession number and document name.
func (c *Client) DocumentURL(cik, accessionNumber, document string) string {
	accession := strings.ReplaceAll(accessionNumber, "-", "")
	return fmt.Sprintf("%s/%s/%s/%s", c.archiveBaseURL, cikArchiveSegment(cik), accession, document)
}

// FilingBaseURL returns the archive directory URL of one filing, used to
// resolve relative image references inside the filing document.
func (c *Client) FilingBaseURL(cik, accessionNumber string) string {
	accession := strings.ReplaceAll(accessionNumber, "-", "")
	return fmt.Sprintf("%s/%s/%s/", c.archiveBaseURL, cikArchiveSegment(cik), accession)
}

// GetSubmissions retrieves a registrant's filing history metadata.
func (c *Client) GetSubmissions(ctx context.Context, cik string) (*Submissions, error) {
	url := fmt.Sprintf(c.submissionsURL, PadCIK(cik))

	body, err := c.get(ctx, url, false)
	if err != nil {
		return nil, err
	}

	var submissions Submissions
	if err := json.Unmarshal(body, &submissions); err != nil {
		return nil, fmt.Errorf("failed to parse submissions response: %w", err)
	}

	if c.logger != nil {
		c.logger.Debug().
			Str("cik", cik).
			Int("filings", len(submissions.Filings.Recent.Form)).
			Msg("Fetched registrant submissions")
	}

	return &submissions, nil
}

// FetchDocument downloads a filing's primary document from the archive.
func (c *Client) FetchDocument(ctx context.Context, cik, accessionNumber, document string) ([]byte, error) {
	return c.FetchArchiveFile(ctx, c.DocumentURL(cik, accessionNumber, document))
}

// FetchArchiveFile downloads an arbitrary archive file (document or image).
func (c *Client) FetchArchiveFile(ctx context.Context, url string) ([]byte, error) {
	return c.get(ctx, url, true)
}

// get performs a rate-limited GET with client identification, retrying
// transient failures up to maxRetries times with backoff.
func (c *Client) get(ctx context.Context, url string, archive bool) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := retryBackoff
			var rateErr *RateLimitError
			if errors.As(lastErr, &rateErr) && rateErr.RetryAfter > 0 {
				backoff = rateErr.RetryAfter
			}
			if c.logger != nil {
				c.logger.Warn().
					Str("url", url).
					Int("attempt", attempt+1).
					Dur("backoff", backoff).
					Err(lastErr).
					Msg("Retrying SEC request after transient failure")
			}
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		body, err := c.doGet(ctx, url, archive)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if !isTransient(err) {
			break
		}
	}

	return nil, lastErr
}

func (c *Client) doGet(ctx context.Context, url string, archive bool) ([]byte, error) {
	// Wait for rate limiter before every outbound request. Wait fails only on
	// context cancellation or an unmeetable deadline, never on upstream state.
	reserveStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	if waited := time.Since(reserveStart); waited > time.Millisecond && c.logger != nil {
		c.logger.Debug().
			Dur("waited", waited).
			Str("url", url).
			Msg("Rate limit wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", c.userAgent)
	if archive {
		req.Header.Set("Referer", "https://www.sec.gov/")
	} else {
		req.Header.Set("Accept", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RateLimitError{RetryAfter: retryAfterDelay(resp.Header.Get("Retry-After"))}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			URL:        url,
			Message:    strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, nil
}
