package emby

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"watchsync/internal/catalog"
	"watchsync/internal/config"
	"watchsync/internal/providerid"
	"watchsync/internal/services"
	"watchsync/internal/services/httpx"
)

const component = "emby"

// User is an enabled Emby account.
type User struct {
	ID   string `json:"Id"`
	Name string `json:"Name"`
}

// Client talks to one Emby server on behalf of one Emby user.
type Client struct {
	baseURL string
	apiKey  string
	userID  string
	client  httpx.Doer
}

// New constructs a client. baseURL is the server root; pathPrefix is joined in
// front of every API path.
func New(baseURL, pathPrefix, apiKey, userID string, client httpx.Doer) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/") + strings.TrimRight(pathPrefix, "/"),
		apiKey:  strings.TrimSpace(apiKey),
		userID:  strings.TrimSpace(userID),
		client:  client,
	}
}

// NewFromConfig builds a client for the [emby] section and the given user id.
func NewFromConfig(cfg *config.Config, userID string, client httpx.Doer) *Client {
	return New(cfg.Emby.URL, cfg.Emby.PathPrefix, cfg.Emby.APIKey, userID, client)
}

type mediaFolder struct {
	ID             string `json:"Id"`
	Name           string `json:"Name"`
	CollectionType string `json:"CollectionType"`
}

type itemsResponse[T any] struct {
	Items []T `json:"Items"`
}

type item struct {
	ID                string `json:"Id"`
	Name              string `json:"Name"`
	IndexNumber       *int   `json:"IndexNumber"`
	ParentIndexNumber *int   `json:"ParentIndexNumber"`
}

// ResolveSection finds the media folder whose name matches title, ignoring case.
// The first match wins.
func (c *Client) ResolveSection(ctx context.Context, title string) (catalog.Section, bool, error) {
	var payload itemsResponse[mediaFolder]
	if err := c.getJSON(ctx, "/Library/MediaFolders", nil, "resolve section", &payload); err != nil {
		return catalog.Section{}, false, err
	}
	sections := make([]catalog.Section, 0, len(payload.Items))
	for _, folder := range payload.Items {
		sections = append(sections, catalog.Section{
			Key:   folder.ID,
			Title: folder.Name,
			Kind:  collectionKind(folder.CollectionType),
		})
	}
	section, ok := catalog.FindSection(sections, title)
	return section, ok, nil
}

// ResolveItem finds the item in section carrying ref as a provider id. The
// first result wins; an empty result set reports not found.
func (c *Client) ResolveItem(ctx context.Context, ref providerid.ProviderRef, section catalog.Section) (string, bool, error) {
	query := url.Values{}
	query.Set("ParentId", section.Key)
	query.Set("Recursive", "true")
	query.Set("AnyProviderIdEquals", ref.String())

	var payload itemsResponse[item]
	if err := c.getJSON(ctx, "/Items", query, "resolve item", &payload); err != nil {
		return "", false, err
	}
	for _, it := range payload.Items {
		if it.ID != "" {
			return it.ID, true, nil
		}
	}
	return "", false, nil
}

// ListEpisodes returns season -> episode -> item id for showID. Entries without
// a season or episode number are ignored.
func (c *Client) ListEpisodes(ctx context.Context, section catalog.Section, showID string) (map[int]map[int]string, error) {
	query := url.Values{}
	query.Set("ParentId", section.Key)

	var payload itemsResponse[item]
	path := "/Shows/" + url.PathEscape(showID) + "/Episodes"
	if err := c.getJSON(ctx, path, query, "list episodes", &payload); err != nil {
		return nil, err
	}

	episodes := make(map[int]map[int]string)
	for _, it := range payload.Items {
		if it.ParentIndexNumber == nil || it.IndexNumber == nil || it.ID == "" {
			continue
		}
		season := *it.ParentIndexNumber
		if episodes[season] == nil {
			episodes[season] = make(map[int]string)
		}
		episodes[season][*it.IndexNumber] = it.ID
	}
	return episodes, nil
}

// MarkWatched records itemID as played for the client's user.
func (c *Client) MarkWatched(ctx context.Context, itemID string) error {
	if c.userID == "" {
		return services.Wrap(services.ErrConfiguration, component, "mark watched", "emby user id is not set", nil)
	}
	endpoint := fmt.Sprintf("%s/Users/%s/PlayedItems/%s", c.baseURL, url.PathEscape(c.userID), url.PathEscape(itemID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, component, "mark watched", "build request", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return httpx.TransportError(component, "mark watched", err)
	}
	defer resp.Body.Close()
	return httpx.StatusError(resp, component, "mark watched")
}

// Users lists enabled Emby accounts.
func (c *Client) Users(ctx context.Context) ([]User, error) {
	query := url.Values{}
	query.Set("IsDisabled", "false")

	var users []User
	if err := c.getJSON(ctx, "/Users", query, "list users", &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, operation string, dest any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return services.Wrap(services.ErrValidation, component, operation, "build request", err)
	}
	c.authorize(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return httpx.TransportError(component, operation, err)
	}
	defer resp.Body.Close()
	if err := httpx.StatusError(resp, component, operation); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return services.Wrap(services.ErrValidation, component, operation, "decode response", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Emby-Token", c.apiKey)
	}
}

func collectionKind(collectionType string) catalog.Kind {
	switch strings.ToLower(collectionType) {
	case "movies":
		return catalog.KindMovie
	case "tvshows":
		return catalog.KindShow
	default:
		return catalog.KindUnknown
	}
}

