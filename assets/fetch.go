package assets

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultHubURL is the resource hub used for hub-mode imports.
const DefaultHubURL = "https://sv.risuai.xyz"

// maxResourceSize bounds a single fetched resource.
const maxResourceSize = 64 << 20

// Fetcher retrieves remote resources by id.
type Fetcher interface {
	Fetch(ctx context.Context, id string) ([]byte, error)
}

// HubFetcher fetches resources with GET {BaseURL}/resource/{id}.
type HubFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewHubFetcher creates a fetcher for base. An empty base uses DefaultHubURL.
func NewHubFetcher(base string) *HubFetcher {
	if base == "" {
		base = DefaultHubURL
	}
	return &HubFetcher{
		BaseURL: strings.TrimRight(base, "/"),
		Client:  &http.Client{Timeout: time.Minute},
	}
}

// Fetch implements Fetcher. Any status other than 200 is a *FetchError.
func (f *HubFetcher) Fetch(ctx context.Context, id string) ([]byte, error) {
	u := f.BaseURL + "/resource/" + url.PathEscape(id)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &FetchError{URL: u, Err: err}
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &FetchError{URL: u, Status: resp.StatusCode}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResourceSize))
	if err != nil {
		return nil, &FetchError{URL: u, Err: fmt.Errorf("read body: %w", err)}
	}
	return data, nil
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context, id string) ([]byte, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, id string) ([]byte, error) {
	return f(ctx, id)
}
