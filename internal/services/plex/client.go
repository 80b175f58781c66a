package plex

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"watchsync/internal/catalog"
	"watchsync/internal/services"
	"watchsync/internal/services/httpx"
)

const (
	component = "plex"

	productName    = "watchsync"
	productVersion = "1"

	// DefaultPageSize is the container size requested per page.
	DefaultPageSize = 200
)

// Client reads one Plex account's view of a Plex Media Server.
type Client struct {
	baseURL          string
	token            string
	clientIdentifier string
	pageSize         int
	client           httpx.Doer
}

// New constructs a client. token is the account's X-Plex-Token.
func New(baseURL, token string, client httpx.Doer) *Client {
	if client == nil {
		client = http.DefaultClient
	}
	return &Client{
		baseURL:          strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		token:            strings.TrimSpace(token),
		clientIdentifier: clientIdentifier(),
		pageSize:         DefaultPageSize,
		client:           client,
	}
}

// WithPageSize overrides the page size used when listing section contents.
func (c *Client) WithPageSize(size int) *Client {
	if size > 0 {
		c.pageSize = size
	}
	return c
}

// clientIdentifier derives a stable per-host X-Plex-Client-Identifier so Plex
// does not register a new device on every run.
func clientIdentifier() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "localhost"
	}
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(productName+":"+host))
	return strings.ReplaceAll(id.String(), "-", "")
}

type mediaContainer[T any] struct {
	MediaContainer struct {
		Size      int `json:"size"`
		TotalSize int `json:"totalSize"`
		Directory []T `json:"Directory"`
		Metadata  []T `json:"Metadata"`
	} `json:"MediaContainer"`
}

type directory struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Type  string `json:"type"`
}

type guidEntry struct {
	ID string `json:"id"`
}

type metadata struct {
	RatingKey       string      `json:"ratingKey"`
	Title           string      `json:"title"`
	Year            int         `json:"year"`
	GUID            string      `json:"guid"`
	ViewCount       int         `json:"viewCount"`
	ViewedLeafCount int         `json:"viewedLeafCount"`
	ParentIndex     *int        `json:"parentIndex"`
	Index           *int        `json:"index"`
	Guids           []guidEntry `json:"Guid"`
}

// Sections lists library sections. Types other than movie and show are
// returned with KindUnknown.
func (c *Client) Sections(ctx context.Context) ([]catalog.Section, error) {
	var payload mediaContainer[directory]
	if err := c.getJSON(ctx, "/library/sections", nil, "list sections", &payload); err != nil {
		return nil, err
	}
	sections := make([]catalog.Section, 0, len(payload.MediaContainer.Directory))
	for _, dir := range payload.MediaContainer.Directory {
		sections = append(sections, catalog.Section{
			Key:   dir.Key,
			Title: dir.Title,
			Kind:  sectionKind(dir.Type),
		})
	}
	return sections, nil
}

// Movies lists every movie in section, watched or not.
func (c *Client) Movies(ctx context.Context, section catalog.Section) ([]catalog.Movie, error) {
	items, err := c.sectionItems(ctx, section, "list movies")
	if err != nil {
		return nil, err
	}
	movies := make([]catalog.Movie, 0, len(items))
	for _, item := range items {
		alternates := make([]string, 0, len(item.Guids))
		for _, g := range item.Guids {
			if id := strings.TrimSpace(g.ID); id != "" {
				alternates = append(alternates, id)
			}
		}
		movies = append(movies, catalog.Movie{
			Key:            item.RatingKey,
			Title:          item.Title,
			Year:           item.Year,
			Watched:        item.ViewCount > 0,
			GUID:           item.GUID,
			AlternateGUIDs: alternates,
		})
	}
	return movies, nil
}

// Shows lists every show in section with its watched episode count.
func (c *Client) Shows(ctx context.Context, section catalog.Section) ([]catalog.Show, error) {
	items, err := c.sectionItems(ctx, section, "list shows")
	if err != nil {
		return nil, err
	}
	shows := make([]catalog.Show, 0, len(items))
	for _, item := range items {
		shows = append(shows, catalog.Show{
			Key:                 item.RatingKey,
			Title:               item.Title,
			Year:                item.Year,
			WatchedEpisodeCount: item.ViewedLeafCount,
			GUID:                item.GUID,
		})
	}
	return shows, nil
}

// Episodes lists every episode of show. Entries without a season or episode
// number are dropped.
func (c *Client) Episodes(ctx context.Context, show catalog.Show) ([]catalog.Episode, error) {
	var payload mediaContainer[metadata]
	path := "/library/metadata/" + url.PathEscape(show.Key) + "/allLeaves"
	if err := c.getJSON(ctx, path, nil, "list episodes", &payload); err != nil {
		return nil, err
	}
	episodes := make([]catalog.Episode, 0, len(payload.MediaContainer.Metadata))
	for _, item := range payload.MediaContainer.Metadata {
		if item.ParentIndex == nil || item.Index == nil {
			continue
		}
		episodes = append(episodes, catalog.Episode{
			Season:  *item.ParentIndex,
			Number:  *item.Index,
			Watched: item.ViewCount > 0,
		})
	}
	return episodes, nil
}

func (c *Client) sectionItems(ctx context.Context, section catalog.Section, operation string) ([]metadata, error) {
	path := "/library/sections/" + url.PathEscape(section.Key) + "/all"
	var items []metadata
	for start := 0; ; {
		query := url.Values{}
		query.Set("includeGuids", "1")
		query.Set("X-Plex-Container-Start", strconv.Itoa(start))
		query.Set("X-Plex-Container-Size", strconv.Itoa(c.pageSize))

		var payload mediaContainer[metadata]
		if err := c.getJSON(ctx, path, query, operation, &payload); err != nil {
			return nil, err
		}
		page := payload.MediaContainer.Metadata
		items = append(items, page...)
		start += len(page)

		total := payload.MediaContainer.TotalSize
		if len(page) < c.pageSize || (total > 0 && start >= total) {
			return items, nil
		}
	}
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
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Plex-Client-Identifier", c.clientIdentifier)
	req.Header.Set("X-Plex-Product", productName)
	req.Header.Set("X-Plex-Version", productVersion)
	req.Header.Set("X-Plex-Platform", runtime.GOOS)
	if c.token != "" {
		req.Header.Set("X-Plex-Token", c.token)
	}

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

func sectionKind(value string) catalog.Kind {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "movie":
		return catalog.KindMovie
	case "show":
		return catalog.KindShow
	default:
		return catalog.KindUnknown
	}
}
