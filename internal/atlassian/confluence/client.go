// Package confluence is the typed client for the Confluence REST v1 API.
package confluence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/go-querystring/query"

	"github.com/golovatskygroup/mcp-atlas/internal/atlassian"
	"github.com/golovatskygroup/mcp-atlas/internal/attachment"
)

const (
	apiBase = "/rest/api"

	// pageSize is the page size used when walking paginated endpoints;
	// callers only see their requested limit.
	pageSize = 50
)

// Client wraps the shared request layer with Confluence endpoints.
type Client struct {
	api *atlassian.Client
}

// normalizeBase appends the /wiki context path for Cloud sites, where the
// REST API does not live at the site root.
func normalizeBase(base string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	if strings.HasSuffix(strings.ToLower(u.Host), ".atlassian.net") &&
		!strings.Contains(u.Path, "/wiki") {
		return strings.TrimRight(base, "/") + "/wiki"
	}
	return base
}

// New builds a client for already resolved credentials.
func New(creds atlassian.Credentials) *Client {
	creds.BaseURL = normalizeBase(creds.BaseURL)
	return &Client{api: atlassian.NewClient(creds)}
}

// NewFromEnv resolves credentials from the CONFLUENCE_* environment,
// honoring a per-call client alias and base URL override.
func NewFromEnv(clientName, baseOverride string) (*Client, error) {
	creds, err := atlassian.ResolveCredentials("CONFLUENCE", clientName, baseOverride)
	if err != nil {
		return nil, err
	}
	return New(creds), nil
}

// BaseURL returns the normalized instance base URL.
func (c *Client) BaseURL() string { return c.api.BaseURL() }

func (c *Client) get(ctx context.Context, path string, params any, out any) error {
	var q url.Values
	if params != nil {
		var err error
		q, err = query.Values(params)
		if err != nil {
			return atlassian.NewValidationError("encode query: %v", err)
		}
	}
	b, _, err := c.api.Do(ctx, http.MethodGet, path, q, nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return atlassian.NewValidationError("encode request: %v", err)
	}
	b, _, err := c.api.Do(ctx, http.MethodPost, path, nil, nil, body)
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(b, out); err != nil {
			return fmt.Errorf("decode %s response: %w", path, err)
		}
	}
	return nil
}

type pageParams struct {
	Start    int    `url:"start,omitempty"`
	Limit    int    `url:"limit"`
	Expand   string `url:"expand,omitempty"`
	Type     string `url:"type,omitempty"`
	SpaceKey string `url:"spaceKey,omitempty"`
	Title    string `url:"title,omitempty"`
	CQL      string `url:"cql,omitempty"`
}

// ListSpaces returns up to limit spaces, walking pagination internally.
func (c *Client) ListSpaces(ctx context.Context, limit int) ([]Space, error) {
	if limit <= 0 {
		limit = pageSize
	}
	var out []Space
	for start := 0; len(out) < limit; {
		var page SpaceList
		p := pageParams{Start: start, Limit: min(pageSize, limit-len(out))}
		if err := c.get(ctx, apiBase+"/space", p, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Results...)
		if len(page.Results) == 0 || page.Links.Next == "" {
			break
		}
		start += len(page.Results)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetSpace fetches one space by key.
func (c *Client) GetSpace(ctx context.Context, key string) (*Space, error) {
	if strings.TrimSpace(key) == "" {
		return nil, atlassian.NewValidationError("space key is required")
	}
	var s Space
	if err := c.get(ctx, apiBase+"/space/"+url.PathEscape(key), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

const searchExpand = "space,version,history"

// SearchCQL runs a CQL query and returns up to limit results, walking
// pagination internally.
func (c *Client) SearchCQL(ctx context.Context, cql string, limit int) ([]Content, error) {
	if strings.TrimSpace(cql) == "" {
		return nil, atlassian.NewValidationError("cql query is required")
	}
	if limit <= 0 {
		limit = pageSize
	}
	var out []Content
	for start := 0; len(out) < limit; {
		var page ContentList
		p := pageParams{Start: start, Limit: min(pageSize, limit-len(out)), CQL: cql, Expand: searchExpand}
		if err := c.get(ctx, apiBase+"/content/search", p, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Results...)
		if len(page.Results) == 0 || page.Links.Next == "" {
			break
		}
		start += len(page.Results)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetContent fetches one content item by ID; includeBody also expands the
// storage-format body.
func (c *Client) GetContent(ctx context.Context, id string, includeBody bool) (*Content, error) {
	if strings.TrimSpace(id) == "" {
		return nil, atlassian.NewValidationError("content id is required")
	}
	expand := searchExpand
	if includeBody {
		expand += ",body.storage"
	}
	var content Content
	p := pageParams{Limit: 1, Expand: expand}
	if err := c.get(ctx, apiBase+"/content/"+url.PathEscape(id), p, &content); err != nil {
		return nil, err
	}
	return &content, nil
}

// GetContentByTitle looks up content by exact title within a space.
func (c *Client) GetContentByTitle(ctx context.Context, spaceKey, title, contentType string, includeBody bool) (*Content, error) {
	if strings.TrimSpace(spaceKey) == "" || strings.TrimSpace(title) == "" {
		return nil, atlassian.NewValidationError("space key and title are required")
	}
	if contentType == "" {
		contentType = "page"
	}
	expand := searchExpand
	if includeBody {
		expand += ",body.storage"
	}
	var page ContentList
	p := pageParams{SpaceKey: spaceKey, Title: title, Type: contentType, Limit: 1, Expand: expand}
	if err := c.get(ctx, apiBase+"/content", p, &page); err != nil {
		return nil, err
	}
	if len(page.Results) == 0 {
		return nil, &atlassian.Error{Kind: atlassian.KindNotFound, Status: http.StatusNotFound,
			Message: fmt.Sprintf("no %s titled %q in space %s", contentType, title, spaceKey)}
	}
	return &page.Results[0], nil
}

// GetSpaceContent lists content of one type in a space, up to limit.
func (c *Client) GetSpaceContent(ctx context.Context, spaceKey, contentType string, limit int) ([]Content, error) {
	if strings.TrimSpace(spaceKey) == "" {
		return nil, atlassian.NewValidationError("space key is required")
	}
	if contentType == "" {
		contentType = "page"
	}
	if limit <= 0 {
		limit = pageSize
	}
	var out []Content
	for start := 0; len(out) < limit; {
		var page ContentList
		p := pageParams{SpaceKey: spaceKey, Type: contentType, Start: start,
			Limit: min(pageSize, limit-len(out)), Expand: searchExpand}
		if err := c.get(ctx, apiBase+"/content", p, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Results...)
		if len(page.Results) == 0 || page.Links.Next == "" {
			break
		}
		start += len(page.Results)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListAttachments returns the attachments of one content item.
func (c *Client) ListAttachments(ctx context.Context, contentID string, limit int) ([]Attachment, error) {
	if strings.TrimSpace(contentID) == "" {
		return nil, atlassian.NewValidationError("content id is required")
	}
	if limit <= 0 {
		limit = pageSize
	}
	path := apiBase + "/content/" + url.PathEscape(contentID) + "/child/attachment"
	var out []Attachment
	for start := 0; len(out) < limit; {
		var page AttachmentList
		p := pageParams{Start: start, Limit: min(pageSize, limit-len(out)), Expand: "version"}
		if err := c.get(ctx, path, p, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Results...)
		if len(page.Results) == 0 || page.Links.Next == "" {
			break
		}
		start += len(page.Results)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Refs converts attachments of one content item into vendor-neutral refs.
func Refs(content Content, atts []Attachment) []attachment.Ref {
	key := ""
	if content.Space != nil {
		key = content.Space.Key
	}
	refs := make([]attachment.Ref, 0, len(atts))
	for _, a := range atts {
		ref := attachment.Ref{
			ID:           a.ID,
			Filename:     a.Title,
			MediaType:    a.Extensions.MediaType,
			Size:         a.Extensions.FileSize,
			DownloadURL:  a.Links.Download,
			ContentID:    content.ID,
			ContentTitle: content.Title,
			Key:          key,
		}
		if a.Version != nil {
			ref.Author = a.Version.By.DisplayName
			ref.Created = a.Version.When
		}
		refs = append(refs, ref)
	}
	return refs
}

// Download streams the bytes of one attachment.
func (c *Client) Download(ctx context.Context, ref attachment.Ref) (io.ReadCloser, error) {
	return c.api.DoRaw(ctx, ref.DownloadURL)
}

type createPagePayload struct {
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Space     map[string]any  `json:"space"`
	Ancestors []map[string]any `json:"ancestors,omitempty"`
	Body      map[string]any  `json:"body"`
}

// CreatePage creates a page with a storage-format body, optionally under a
// parent page.
func (c *Client) CreatePage(ctx context.Context, spaceKey, title, storageBody, parentID string) (*Content, error) {
	if strings.TrimSpace(spaceKey) == "" || strings.TrimSpace(title) == "" {
		return nil, atlassian.NewValidationError("space key and title are required")
	}
	payload := createPagePayload{
		Type:  "page",
		Title: title,
		Space: map[string]any{"key": spaceKey},
		Body: map[string]any{
			"storage": map[string]any{"value": storageBody, "representation": "storage"},
		},
	}
	if parentID != "" {
		payload.Ancestors = []map[string]any{{"id": parentID}}
	}
	var created Content
	if err := c.post(ctx, apiBase+"/content", payload, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// UploadAttachment attaches a file to a content item. The response lists the
// created attachment records; the first one is returned.
func (c *Client) UploadAttachment(ctx context.Context, contentID, filename string, data io.Reader, comment string) (*Attachment, error) {
	if strings.TrimSpace(contentID) == "" {
		return nil, atlassian.NewValidationError("content id is required")
	}
	if strings.TrimSpace(filename) == "" {
		return nil, atlassian.NewValidationError("filename is required")
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return nil, fmt.Errorf("read upload data: %w", err)
	}
	if comment != "" {
		if err := w.WriteField("comment", comment); err != nil {
			return nil, fmt.Errorf("build multipart body: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}

	path := apiBase + "/content/" + url.PathEscape(contentID) + "/child/attachment"
	b, err := c.api.DoMultipart(ctx, path, w.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	var list AttachmentList
	if err := json.Unmarshal(b, &list); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if len(list.Results) == 0 {
		return nil, fmt.Errorf("upload succeeded but response listed no attachments")
	}
	return &list.Results[0], nil
}
