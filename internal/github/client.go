// Package github is the implementation of the data fetcher component.
// The fetcher issues read requests against the GitHub REST API, collects the
// paginated results in memory, and projects each response object down to the
// fields configured for its dataset category. It never writes to the filesystem.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ubuntu/decorate"
	"github.com/zuehlke/orgdata-sync/internal/constants"
	"github.com/zuehlke/orgdata-sync/internal/datasets"
)

var (
	// ErrAuth is returned when the API rejects the provided credential.
	ErrAuth = errors.New("authentication rejected by the API")
	// ErrRateLimited is returned when the API rate limit is exhausted.
	// The run is aborted; the next scheduled run starts with a fresh budget.
	ErrRateLimited = errors.New("API rate limit exhausted")
	// ErrRequest is returned when a request fails or returns an unusable response.
	ErrRequest = errors.New("API request failed")
)

// Record is a single projected API object.
type Record map[string]any

// Dataset maps stable identifiers to fetched records. Identifiers are unique within a run.
type Dataset map[string]Record

// Fetcher is an interface for the data fetcher component.
type Fetcher interface {
	// Fetch retrieves all given dataset categories. A failure on any category
	// aborts the whole fetch, no partial result is returned.
	Fetch(ctx context.Context, defs []datasets.Definition) (map[string]Dataset, error)

	// RateLimit fetches the current API rate limit status.
	RateLimit(ctx context.Context) (RateLimitStatus, error)
}

// Config represents the fetcher specific data needed to collect.
type Config struct {
	Org     string
	BaseURL string
	Token   string
}

// Sanitize sets defaults and checks that the Config is properly configured.
func (c *Config) Sanitize(l *slog.Logger) error {
	if c.Org == "" {
		c.Org = constants.DefaultOrg
		l.Info("No organization provided, defaulting to", "org", c.Org)
	}

	if c.BaseURL == "" {
		c.BaseURL = constants.DefaultAPIBaseURL
	}
	if _, err := url.Parse(c.BaseURL); err != nil {
		return fmt.Errorf("invalid base URL %s: %v", c.BaseURL, err)
	}

	if c.Token == "" {
		return fmt.Errorf("%w: no access token provided", ErrAuth)
	}

	return nil
}

type client struct {
	org     string
	baseURL string
	token   string

	http      *http.Client
	rateLimit RateLimitStatus

	log *slog.Logger
}

type options struct {
	// Private members exported for tests.
	httpClient *http.Client
}

var defaultOptions = options{
	httpClient: &http.Client{Timeout: 30 * time.Second},
}

// Options represents an optional function to override Fetcher default values.
type Options func(*options)

// New returns a new Fetcher.
// Sanitize the config before use, but Sanitize may be called beforehand safely.
func New(l *slog.Logger, c Config, args ...Options) (Fetcher, error) {
	if err := c.Sanitize(l); err != nil {
		return nil, err
	}

	opts := defaultOptions
	for _, opt := range args {
		opt(&opts)
	}

	return &client{
		org:     c.Org,
		baseURL: c.BaseURL,
		token:   c.Token,
		http:    opts.httpClient,
		log:     l,
	}, nil
}

// Fetch retrieves every dataset category in defs, strictly sequentially.
func (c *client) Fetch(ctx context.Context, defs []datasets.Definition) (result map[string]Dataset, err error) {
	defer decorate.OnError(&err, "data fetch failed")

	result = make(map[string]Dataset, len(defs))
	for _, def := range defs {
		c.log.Info("Fetching dataset", "dataset", def.Name, "flow", def.Flow)

		proj := newProjection(def.Fields)
		var ds Dataset
		switch def.Flow {
		case datasets.FlowRepos:
			ds, err = c.collectOrgRepos(ctx, proj)
		case datasets.FlowMembers:
			ds, err = c.collectOrgMembers(ctx, proj)
		default:
			err = fmt.Errorf("unknown collection flow %q", def.Flow)
		}
		if err != nil {
			return nil, fmt.Errorf("dataset %s: %w", def.Name, err)
		}

		result[def.Name] = ds
	}

	return result, nil
}

// collectOrgRepos fetches all pages of the organization's repository listing.
func (c *client) collectOrgRepos(ctx context.Context, proj projection) (Dataset, error) {
	items, err := c.fetchAllPages(ctx, fmt.Sprintf("%s/orgs/%s/repos", c.baseURL, c.org))
	if err != nil {
		return nil, err
	}

	ds := make(Dataset, len(items))
	for _, item := range items {
		key, err := recordKey(item)
		if err != nil {
			return nil, err
		}
		ds[key] = proj.apply(item)
	}
	return ds, nil
}

// collectOrgMembers fetches all pages of the organization's member listing,
// then one profile detail request per member.
func (c *client) collectOrgMembers(ctx context.Context, proj projection) (Dataset, error) {
	members, err := c.fetchAllPages(ctx, fmt.Sprintf("%s/orgs/%s/members", c.baseURL, c.org))
	if err != nil {
		return nil, err
	}

	ds := make(Dataset, len(members))
	for _, member := range members {
		memberURL, ok := member["url"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: member listing entry has no url", ErrRequest)
		}

		c.log.Debug("Fetching member profile", "url", memberURL)
		var profile map[string]any
		if err := c.apiRequest(ctx, memberURL, &profile); err != nil {
			return nil, err
		}

		key, err := recordKey(profile)
		if err != nil {
			return nil, err
		}
		ds[key] = proj.apply(profile)
	}
	return ds, nil
}

// fetchAllPages follows the Link header until there is no next page, accumulating all items.
func (c *client) fetchAllPages(ctx context.Context, initialURL string) ([]map[string]any, error) {
	var items []map[string]any

	pageURL := initialURL
	for pageURL != "" {
		c.log.Debug("Fetching page", "url", pageURL)

		var page []map[string]any
		next, err := c.pagedRequest(ctx, pageURL, &page)
		if err != nil {
			return nil, err
		}
		items = append(items, page...)
		pageURL = next
	}

	return items, nil
}

func (c *client) apiRequest(ctx context.Context, url string, out any) error {
	_, err := c.pagedRequest(ctx, url, out)
	return err
}

// pagedRequest performs a single authenticated GET, decodes the JSON body into out,
// and returns the URL of the next page, if any. The rate limit status is refreshed
// from the response headers on every request.
func (c *client) pagedRequest(ctx context.Context, url string, out any) (next string, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequest, err)
	}
	req.Header.Set("Authorization", "token "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRequest, err)
	}
	defer resp.Body.Close()

	if status, ok := parseRateLimitHeaders(resp.Header); ok {
		c.rateLimit = status
	}

	if err := c.checkStatus(resp); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: failed to read response body: %v", ErrRequest, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return "", fmt.Errorf("%w: malformed response from %s: %v", ErrRequest, url, err)
	}

	return parseLinkHeader(resp.Header.Get("Link")).next, nil
}

// checkStatus maps an unexpected HTTP response to the fetcher error taxonomy.
// There is no retry on any path: the next scheduled run is the retry.
func (c *client) checkStatus(resp *http.Response) error {
	if resp.Header.Get("Retry-After") != "" {
		return fmt.Errorf("%w: secondary rate limit, Retry-After %s seconds", ErrRateLimited, resp.Header.Get("Retry-After"))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	case resp.StatusCode == http.StatusForbidden && c.rateLimit.Exhausted():
		return fmt.Errorf("%w: resets at %s", ErrRateLimited, c.rateLimit.ResetAt.Format(time.RFC3339))
	case resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", ErrAuth, resp.StatusCode)
	default:
		return fmt.Errorf("%w: unexpected status %d", ErrRequest, resp.StatusCode)
	}
}

// recordKey derives the dataset key from the raw API object's stable id.
func recordKey(item map[string]any) (string, error) {
	id, ok := item["id"]
	if !ok {
		return "", fmt.Errorf("%w: response object has no id", ErrRequest)
	}

	// JSON numbers decode as float64; ids are integers.
	if f, ok := id.(float64); ok {
		return fmt.Sprintf("%.0f", f), nil
	}
	return fmt.Sprint(id), nil
}
