package fetch

import (
	"context"
	"encoding/json"
	"fmt"

	"hoard-go/internal/hoard"
)

// DefaultGitHubAPI is the REST endpoint for github.com.
const DefaultGitHubAPI = "https://api.github.com"

// GitHubFetcher enumerates repositories via the paginated GitHub REST API.
// With an owner set it lists that user's public repositories; otherwise it
// lists the repositories of the authenticated user, private ones included.
type GitHubFetcher struct {
	client   *Client
	apiBase  string
	owner    string
	perPage  int
	maxPages int
}

var _ hoard.Fetcher = (*GitHubFetcher)(nil)

// NewGitHubFetcher creates a fetcher against apiBase (DefaultGitHubAPI when
// empty). perPage defaults to 100, the API maximum.
func NewGitHubFetcher(client *Client, apiBase, owner string, perPage, maxPages int) *GitHubFetcher {
	if apiBase == "" {
		apiBase = DefaultGitHubAPI
	}
	if perPage <= 0 {
		perPage = 100
	}
	return &GitHubFetcher{
		client:   client,
		apiBase:  apiBase,
		owner:    owner,
		perPage:  perPage,
		maxPages: maxPages,
	}
}

// repoFields are the repository descriptor fields the sync engine relies on.
// The full descriptor rides along as the item payload.
type repoFields struct {
	Name     string `json:"name"`
	CloneURL string `json:"clone_url"`
	Fork     bool   `json:"fork"`
	Archived bool   `json:"archived"`
}

// FetchAll walks the repository listing page by page.
func (f *GitHubFetcher) FetchAll(ctx context.Context) ([]hoard.RemoteItem, error) {
	return fetchPages(f.perPage, f.maxPages, func(page int) ([]hoard.RemoteItem, error) {
		url := fmt.Sprintf("%s%s?per_page=%d&page=%d", f.apiBase, f.listPath(), f.perPage, page)

		var raw []json.RawMessage
		if err := f.client.GetJSON(ctx, url, &raw); err != nil {
			return nil, err
		}

		items := make([]hoard.RemoteItem, 0, len(raw))
		for _, r := range raw {
			var fields repoFields
			if err := json.Unmarshal(r, &fields); err != nil {
				return nil, fmt.Errorf("decoding repository descriptor: %w", err)
			}
			if fields.Name == "" {
				return nil, fmt.Errorf("repository descriptor without a name")
			}
			items = append(items, hoard.RemoteItem{
				Name:     fields.Name,
				URL:      fields.CloneURL,
				Fork:     fields.Fork,
				Archived: fields.Archived,
				Payload:  r,
			})
		}
		return items, nil
	})
}

func (f *GitHubFetcher) listPath() string {
	if f.owner != "" {
		return "/users/" + f.owner + "/repos"
	}
	return "/user/repos"
}
