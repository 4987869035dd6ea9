// Package wiki is a small client for the MediaWiki action API covering the
// three queries the reader needs: category members, plain-text extracts and a
// siteinfo ping.
package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"histreader/internal/models"
)

const (
	DefaultAPIURL = "https://ja.wikipedia.org/w/api.php"

	// CategoryPrefix is the canonical category namespace prefix on titles.
	CategoryPrefix = "Category:"

	// NamespaceArticle is the main (article) namespace.
	NamespaceArticle = 0

	missingPageID = "-1"

	// maxResponseBytes bounds a single API response body.
	maxResponseBytes = 16 << 20
)

// MemberType restricts a category listing to one kind of member.
type MemberType string

const (
	MemberSubcategory MemberType = "subcat"
	MemberPage        MemberType = "page"
)

// CategoryMember is one entry of a categorymembers listing.
type CategoryMember struct {
	PageID int    `json:"pageid"`
	NS     int    `json:"ns"`
	Title  string `json:"title"`
}

// CategoryMembersQuery describes a categorymembers listing request.
type CategoryMembersQuery struct {
	Category           string // without the "Category:" prefix
	Type               MemberType
	Limit              int
	StartSortKeyPrefix string // optional
}

// Client talks to a single MediaWiki API endpoint.
type Client struct {
	httpClient      *http.Client
	apiURL          string
	userAgent       string
	followRedirects bool
}

// Options configures a Client.
type Options struct {
	APIURL          string
	Timeout         time.Duration
	UserAgent       string
	FollowRedirects bool
	HTTPClient      *http.Client // overrides Timeout when set
}

// NewClient creates a client. Every request is bounded by opts.Timeout.
func NewClient(opts Options) *Client {
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	apiURL := opts.APIURL
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		httpClient:      hc,
		apiURL:          apiURL,
		userAgent:       opts.UserAgent,
		followRedirects: opts.FollowRedirects,
	}
}

// TrimCategoryPrefix strips the namespace prefix from a category title.
func TrimCategoryPrefix(title string) string {
	return strings.TrimPrefix(title, CategoryPrefix)
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type categoryMembersResponse struct {
	Error *apiError `json:"error"`
	Query *struct {
		CategoryMembers *[]CategoryMember `json:"categorymembers"`
	} `json:"query"`
}

// CategoryMembers lists members of a category.
func (c *Client) CategoryMembers(ctx context.Context, q CategoryMembersQuery) ([]CategoryMember, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "categorymembers")
	params.Set("cmtitle", CategoryPrefix+TrimCategoryPrefix(q.Category))
	if q.Type != "" {
		params.Set("cmtype", string(q.Type))
	}
	if q.Limit > 0 {
		params.Set("cmlimit", strconv.Itoa(q.Limit))
	}
	if q.StartSortKeyPrefix != "" {
		params.Set("cmstartsortkeyprefix", q.StartSortKeyPrefix)
	}

	var resp categoryMembersResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: api error %s: %s", models.ErrMalformedResponse, resp.Error.Code, resp.Error.Info)
	}
	if resp.Query == nil || resp.Query.CategoryMembers == nil {
		return nil, fmt.Errorf("%w: categorymembers missing for %q", models.ErrMalformedResponse, q.Category)
	}
	return *resp.Query.CategoryMembers, nil
}

// presence decodes MediaWiki's formatversion=1 flags, where the mere presence
// of the key ("missing": "") means true.
type presence bool

func (p *presence) UnmarshalJSON(b []byte) error {
	*p = presence(string(b) != "false" && string(b) != "null")
	return nil
}

type extractPage struct {
	PageID  int      `json:"pageid"`
	Title   string   `json:"title"`
	Missing presence `json:"missing"`
	Invalid presence `json:"invalid"`
	Extract *string  `json:"extract"`
}

type extractResponse struct {
	Error *apiError `json:"error"`
	Query *struct {
		Pages map[string]extractPage `json:"pages"`
	} `json:"query"`
}

// Extract returns the plain-text extract of a page. A missing page yields
// models.ErrNotFound and a blank extract models.ErrEmptyContent.
func (c *Client) Extract(ctx context.Context, title string) (string, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("prop", "extracts")
	params.Set("explaintext", "1")
	params.Set("titles", title)
	if c.followRedirects {
		params.Set("redirects", "1")
	}

	var resp extractResponse
	if err := c.get(ctx, params, &resp); err != nil {
		return "", err
	}
	if resp.Error != nil {
		return "", fmt.Errorf("%w: api error %s: %s", models.ErrMalformedResponse, resp.Error.Code, resp.Error.Info)
	}
	if resp.Query == nil || resp.Query.Pages == nil {
		return "", fmt.Errorf("%w: pages missing for %q", models.ErrMalformedResponse, title)
	}
	if len(resp.Query.Pages) == 0 {
		return "", fmt.Errorf("%w: no page data for %q", models.ErrNotFound, title)
	}

	// One title is requested, so one page is expected; sort for determinism anyway.
	ids := make([]string, 0, len(resp.Query.Pages))
	for id := range resp.Query.Pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	pageID := ids[0]
	page := resp.Query.Pages[pageID]

	if pageID == missingPageID || bool(page.Missing) || bool(page.Invalid) {
		return "", fmt.Errorf("%w: page %q does not exist", models.ErrNotFound, title)
	}
	if page.Extract == nil || strings.TrimSpace(*page.Extract) == "" {
		return "", fmt.Errorf("%w: page %q has no extract", models.ErrEmptyContent, title)
	}
	return *page.Extract, nil
}

// Ping checks that the endpoint answers a siteinfo query.
func (c *Client) Ping(ctx context.Context) error {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("meta", "siteinfo")

	var resp struct {
		Error *apiError       `json:"error"`
		Query json.RawMessage `json:"query"`
	}
	if err := c.get(ctx, params, &resp); err != nil {
		return err
	}
	if resp.Error != nil || len(resp.Query) == 0 {
		return fmt.Errorf("%w: siteinfo query failed", models.ErrMalformedResponse)
	}
	return nil
}

// requestURL merges params into the query string already present on the
// configured endpoint; params win on conflicting keys.
func (c *Client) requestURL(params url.Values) (string, error) {
	u, err := url.Parse(c.apiURL)
	if err != nil {
		return "", fmt.Errorf("parsing api url: %w", err)
	}
	q := u.Query()
	for k, vs := range params {
		q[k] = vs
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// get issues a GET against the API endpoint and decodes the JSON body into dst.
func (c *Client) get(ctx context.Context, params url.Values, dst interface{}) error {
	params.Set("format", "json")
	params.Set("origin", "*")

	reqURL, err := c.requestURL(params)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrTransport, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: creating request: %w", models.ErrTransport, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", models.ErrTransport, err)
	}
	defer resp.Body.Close()

	log.WithFields(log.Fields{
		"action":  params.Get("action"),
		"list":    params.Get("list"),
		"prop":    params.Get("prop"),
		"status":  resp.StatusCode,
		"elapsed": time.Since(start),
	}).Debug("wiki api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: HTTP %d: %s", models.ErrTransport, resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return fmt.Errorf("%w: reading body: %w", models.ErrTransport, err)
	}
	if len(body) > maxResponseBytes {
		return fmt.Errorf("%w: response body exceeds %d bytes", models.ErrMalformedResponse, maxResponseBytes)
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %w", models.ErrMalformedResponse, err)
	}
	return nil
}
