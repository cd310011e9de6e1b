// Package bugzilla is a minimal client for the Bugzilla REST API, covering
// the two reads this tool needs: bug details and bug comments.
package bugzilla

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultBaseURL is the Bugzilla instance tracking mozilla-central work.
	DefaultBaseURL = "https://bugzilla.mozilla.org/rest"

	// defaultTimeout bounds each HTTP request.
	defaultTimeout = 30 * time.Second

	// maxRetries caps retries of transient failures (network errors, 429, 5xx).
	maxRetries = 3
)

// ErrContract reports a well-formed response that lacks the requested bug.
var ErrContract = errors.New("requested bug missing from response")

// Status is a bug's lifecycle state. The wire values are uppercase; unknown
// future states parse fine and simply never count as completed.
type Status string

const (
	StatusNew      Status = "NEW"
	StatusResolved Status = "RESOLVED"
	StatusVerified Status = "VERIFIED"
)

// Completed reports whether the bug's work is done and a landing may exist.
func (s Status) Completed() bool {
	return s == StatusResolved || s == StatusVerified
}

// BugDetail is the slice of bug metadata this tool cares about.
type BugDetail struct {
	Status Status `json:"status"`
}

// Comment is one entry in a bug's discussion, oldest first.
type Comment struct {
	ID      int64  `json:"id"`
	RawText string `json:"raw_text"`
}

type detailsResponse struct {
	Bugs []BugDetail `json:"bugs"`
}

type commentsResponse struct {
	Bugs map[string]struct {
		Comments []Comment `json:"comments"`
	} `json:"bugs"`
}

// Client issues read-only requests against one Bugzilla instance.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New returns a client for the Bugzilla instance at baseURL. A nil httpClient
// gets a default one; passing a shared client lets callers reuse connections.
func New(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: baseURL, httpClient: httpClient}
}

// Details fetches the current metadata for bug id.
func (c *Client) Details(ctx context.Context, id string) (*BugDetail, error) {
	var data detailsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/bug/%s", c.baseURL, id), &data); err != nil {
		return nil, fmt.Errorf("fetch details for bug %s: %w", id, err)
	}
	if len(data.Bugs) == 0 {
		return nil, fmt.Errorf("bug %s: %w", id, ErrContract)
	}
	return &data.Bugs[0], nil
}

// Comments fetches the full discussion of bug id in chronological order.
func (c *Client) Comments(ctx context.Context, id string) ([]Comment, error) {
	var data commentsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/bug/%s/comment", c.baseURL, id), &data); err != nil {
		return nil, fmt.Errorf("fetch comments for bug %s: %w", id, err)
	}
	bug, ok := data.Bugs[id]
	if !ok {
		return nil, fmt.Errorf("bug %s: %w", id, ErrContract)
	}
	return bug.Comments, nil
}

// getJSON performs a GET and decodes the body into out. Transport errors and
// 429/5xx responses are retried with exponential backoff; anything else fails
// immediately. Malformed bodies are never retried: no partial trust is placed
// in a payload that does not parse.
func (c *Client) getJSON(ctx context.Context, url string, out interface{}) error {
	op := func() error {
		log.Debug().Str("url", url).Msg("bugzilla request")

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("bugzilla returned %s", resp.Status)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("bugzilla returned %s", resp.Status))
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, out); err != nil {
			return backoff.Permanent(fmt.Errorf("parse response: %w", err))
		}
		return nil
	}

	bo := backoff.WithContext(backoff.NewExponentialBackOff(), ctx)
	return backoff.Retry(op, backoff.WithMaxRetries(bo, maxRetries))
}
