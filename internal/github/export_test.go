package github

import "net/http"

type Projection = projection

var NewProjection = newProjection

// Apply exposes projection.apply for tests.
func (p projection) Apply(item map[string]any) Record {
	return p.apply(item)
}

// WithHTTPClient overrides the HTTP client used by the fetcher.
func WithHTTPClient(c *http.Client) Options {
	return func(o *options) {
		o.httpClient = c
	}
}

// ParseLinkNext returns the next page URL from a Link header.
func ParseLinkNext(header string) string {
	return parseLinkHeader(header).next
}
