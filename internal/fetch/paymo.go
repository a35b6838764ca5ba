package fetch

import (
	"context"
	"encoding/json"
	"strings"

	"hoard-go/internal/hoard"
)

// DefaultPaymoAPI is the Paymo REST endpoint.
const DefaultPaymoAPI = "https://app.paymoapp.com/api"

// PaymoFetcher fetches one resource endpoint as a single filtered query.
// This is the degenerate, non-paginated case of the fetcher contract: one
// request, same validation and error path. Each configured endpoint becomes
// its own fetcher so a failure on one never blocks the others.
type PaymoFetcher struct {
	client   *Client
	apiBase  string
	endpoint string // e.g. "projects" or "entries?where=time_interval in (...)"
}

var _ hoard.Fetcher = (*PaymoFetcher)(nil)

// NewPaymoFetcher creates a fetcher for one endpoint against apiBase
// (DefaultPaymoAPI when empty).
func NewPaymoFetcher(client *Client, apiBase, endpoint string) *PaymoFetcher {
	if apiBase == "" {
		apiBase = DefaultPaymoAPI
	}
	return &PaymoFetcher{client: client, apiBase: apiBase, endpoint: endpoint}
}

// Endpoint returns the resource path this fetcher queries.
func (f *PaymoFetcher) Endpoint() string { return f.endpoint }

// FetchAll issues the one-shot query and yields a single item carrying the
// full validated response as its payload.
func (f *PaymoFetcher) FetchAll(ctx context.Context) ([]hoard.RemoteItem, error) {
	url := f.apiBase + "/" + f.endpoint

	var payload json.RawMessage
	if err := f.client.GetJSON(ctx, url, &payload); err != nil {
		return nil, err
	}

	return []hoard.RemoteItem{{
		Name:    EndpointName(f.endpoint),
		URL:     url,
		Payload: payload,
	}}, nil
}

// EndpointName derives the archive record identifier from an endpoint path:
// the resource name without any query string, sanitized for the filesystem.
func EndpointName(endpoint string) string {
	name, _, _ := strings.Cut(endpoint, "?")
	return hoard.SanitizeName(name)
}
