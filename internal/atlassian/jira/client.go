// Package jira is the typed client for the Jira REST v2 API.
package jira

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
	apiBase = "/rest/api/2"

	// pageSize is the page size used when walking /search; callers only
	// see their requested limit.
	pageSize = 50

	// maxUploadBytes caps attachment uploads; the default Jira limit.
	maxUploadBytes = 10 << 20
)

// Client wraps the shared request layer with Jira endpoints.
type Client struct {
	api *atlassian.Client
}

// New builds a client for already resolved credentials.
func New(creds atlassian.Credentials) *Client {
	return &Client{api: atlassian.NewClient(creds)}
}

// NewFromEnv resolves credentials from the JIRA_* environment, honoring a
// per-call client alias and base URL override.
func NewFromEnv(clientName, baseOverride string) (*Client, error) {
	creds, err := atlassian.ResolveCredentials("JIRA", clientName, baseOverride)
	if err != nil {
		return nil, err
	}
	return New(creds), nil
}

// BaseURL returns the instance base URL.
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

// ListProjects returns all projects visible to the authenticated user.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	var projects []Project
	if err := c.get(ctx, apiBase+"/project", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// GetProject fetches one project by key.
func (c *Client) GetProject(ctx context.Context, key string) (*Project, error) {
	if strings.TrimSpace(key) == "" {
		return nil, atlassian.NewValidationError("project key is required")
	}
	var p Project
	if err := c.get(ctx, apiBase+"/project/"+url.PathEscape(key), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

const searchFields = "summary,description,status,issuetype,priority,assignee,reporter,created,updated,project,attachment"

type searchParams struct {
	JQL        string `url:"jql"`
	StartAt    int    `url:"startAt"`
	MaxResults int    `url:"maxResults"`
	Fields     string `url:"fields"`
}

// SearchIssues runs a JQL query and returns up to limit issues, walking
// pagination internally. Attachment metadata rides along in the fields.
func (c *Client) SearchIssues(ctx context.Context, jql string, limit int) ([]Issue, error) {
	if strings.TrimSpace(jql) == "" {
		return nil, atlassian.NewValidationError("jql query is required")
	}
	if limit <= 0 {
		limit = pageSize
	}
	var out []Issue
	for startAt := 0; len(out) < limit; {
		var page SearchResult
		p := searchParams{JQL: jql, StartAt: startAt,
			MaxResults: min(pageSize, limit-len(out)), Fields: searchFields}
		if err := c.get(ctx, apiBase+"/search", p, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Issues...)
		startAt += len(page.Issues)
		if len(page.Issues) == 0 || startAt >= page.Total {
			break
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type getIssueParams struct {
	Fields string `url:"fields"`
}

// GetIssue fetches one issue by key or ID, including attachment metadata.
func (c *Client) GetIssue(ctx context.Context, key string) (*Issue, error) {
	if strings.TrimSpace(key) == "" {
		return nil, atlassian.NewValidationError("issue key is required")
	}
	var issue Issue
	p := getIssueParams{Fields: searchFields}
	if err := c.get(ctx, apiBase+"/issue/"+url.PathEscape(key), p, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// Refs converts an issue's attachments into vendor-neutral refs.
func Refs(issue Issue) []attachment.Ref {
	refs := make([]attachment.Ref, 0, len(issue.Fields.Attachment))
	for _, a := range issue.Fields.Attachment {
		ref := attachment.Ref{
			ID:           a.ID,
			Filename:     a.Filename,
			MediaType:    a.MimeType,
			Size:         a.Size,
			DownloadURL:  a.Content,
			ContentID:    issue.Key,
			ContentTitle: issue.Fields.Summary,
			Key:          issue.ProjectKey(),
			Created:      a.Created,
		}
		if a.Author != nil {
			ref.Author = a.Author.DisplayName
		}
		refs = append(refs, ref)
	}
	return refs
}

// Download streams the bytes of one attachment.
func (c *Client) Download(ctx context.Context, ref attachment.Ref) (io.ReadCloser, error) {
	return c.api.DoRaw(ctx, ref.DownloadURL)
}

type createIssuePayload struct {
	Fields map[string]any `json:"fields"`
}

type createIssueResponse struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// CreateIssue creates an issue and returns its key. issueType defaults to
// Task.
func (c *Client) CreateIssue(ctx context.Context, projectKey, summary, description, issueType string) (*Issue, error) {
	if strings.TrimSpace(projectKey) == "" || strings.TrimSpace(summary) == "" {
		return nil, atlassian.NewValidationError("project key and summary are required")
	}
	if issueType == "" {
		issueType = "Task"
	}
	fields := map[string]any{
		"project":   map[string]any{"key": projectKey},
		"summary":   summary,
		"issuetype": map[string]any{"name": issueType},
	}
	if description != "" {
		fields["description"] = description
	}
	var created createIssueResponse
	if err := c.post(ctx, apiBase+"/issue", createIssuePayload{Fields: fields}, &created); err != nil {
		return nil, err
	}
	return &Issue{ID: created.ID, Key: created.Key,
		Fields: IssueFields{Summary: summary}}, nil
}

// UploadAttachment attaches a file to an issue. Uploads over the vendor's
// 10 MB default limit are rejected before any network call.
func (c *Client) UploadAttachment(ctx context.Context, issueKey, filename string, data io.Reader, size int64) (*IssueAttachment, error) {
	if strings.TrimSpace(issueKey) == "" {
		return nil, atlassian.NewValidationError("issue key is required")
	}
	if strings.TrimSpace(filename) == "" {
		return nil, atlassian.NewValidationError("filename is required")
	}
	if size > maxUploadBytes {
		return nil, atlassian.NewValidationError("file %q is %d bytes, over the %d byte upload limit",
			filename, size, maxUploadBytes)
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
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}

	path := apiBase + "/issue/" + url.PathEscape(issueKey) + "/attachments"
	b, err := c.api.DoMultipart(ctx, path, w.FormDataContentType(), &buf)
	if err != nil {
		return nil, err
	}
	// The endpoint returns the created attachment records as an array.
	var created []IssueAttachment
	if err := json.Unmarshal(b, &created); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	if len(created) == 0 {
		return nil, fmt.Errorf("upload succeeded but response listed no attachments")
	}
	return &created[0], nil
}
