package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golovatskygroup/mcp-atlas/internal/atlassian/jira"
	"github.com/golovatskygroup/mcp-atlas/internal/attachment"
	"github.com/golovatskygroup/mcp-atlas/internal/query"
	"github.com/golovatskygroup/mcp-atlas/pkg/mcp"
)

// issueSummary is the compact issue shape returned by list/search tools.
type issueSummary struct {
	Key         string `json:"key"`
	Summary     string `json:"summary"`
	Status      string `json:"status,omitempty"`
	IssueType   string `json:"issue_type,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
	Reporter    string `json:"reporter,omitempty"`
	Created     string `json:"created,omitempty"`
	Updated     string `json:"updated,omitempty"`
	Attachments int    `json:"attachments"`
	Description string `json:"description,omitempty"`
}

func summarizeIssue(i jira.Issue, includeDescription bool) issueSummary {
	s := issueSummary{
		Key:         i.Key,
		Summary:     i.Fields.Summary,
		Created:     i.Fields.Created,
		Updated:     i.Fields.Updated,
		Attachments: len(i.Fields.Attachment),
	}
	if i.Fields.Status != nil {
		s.Status = i.Fields.Status.Name
	}
	if i.Fields.IssueType != nil {
		s.IssueType = i.Fields.IssueType.Name
	}
	if i.Fields.Priority != nil {
		s.Priority = i.Fields.Priority.Name
	}
	if i.Fields.Assignee != nil {
		s.Assignee = i.Fields.Assignee.DisplayName
	}
	if i.Fields.Reporter != nil {
		s.Reporter = i.Fields.Reporter.DisplayName
	}
	if includeDescription {
		s.Description = i.Fields.Description
	}
	return s
}

func summarizeIssues(issues []jira.Issue) []issueSummary {
	out := make([]issueSummary, 0, len(issues))
	for _, i := range issues {
		out = append(out, summarizeIssue(i, false))
	}
	return out
}

type jiraClientInput struct {
	clientArgs
}

func (h *Handler) jiraListProjects(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input jiraClientInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.jiraFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	projects, err := c.ListProjects(ctx)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(map[string]any{"count": len(projects), "projects": projects}), nil
}

type jiraGetProjectInput struct {
	clientArgs
	ProjectKey string `json:"project_key"`
}

func (h *Handler) jiraGetProject(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input jiraGetProjectInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.jiraFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	project, err := c.GetProject(ctx, input.ProjectKey)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(project), nil
}

type jiraSearchIssuesInput struct {
	clientArgs
	query.IssueFilter
	Limit int `json:"limit,omitempty"`
}

func (h *Handler) jiraSearchIssues(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input jiraSearchIssuesInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	jql, err := query.BuildJQL(input.IssueFilter)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	c, err := h.jiraFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if input.Limit <= 0 {
		input.Limit = 25
	}
	issues, err := c.SearchIssues(ctx, jql, input.Limit)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(map[string]any{
		"jql":     jql,
		"count":   len(issues),
		"results": summarizeIssues(issues),
	}), nil
}

type jiraGetIssueInput struct {
	clientArgs
	IssueKey string `json:"issue_key"`
}

func (h *Handler) jiraGetIssue(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input jiraGetIssueInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.jiraFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	issue, err := c.GetIssue(ctx, input.IssueKey)
	if err != nil {
		return apiErrorResult(err), nil
	}
	out := summarizeIssue(*issue, true)
	return jsonResult(map[string]any{
		"issue":       out,
		"attachments": jira.Refs(*issue),
	}), nil
}

type jiraListAttachmentsInput struct {
	clientArgs
	IssueKey  string   `json:"issue_key"`
	FileTypes []string `json:"file_types,omitempty"`
}

func (h *Handler) jiraListAttachments(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input jiraListAttachmentsInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.jiraFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	issue, err := c.GetIssue(ctx, input.IssueKey)
	if err != nil {
		return apiErrorResult(err), nil
	}
	refs := attachment.FilterByType(jira.Refs(*issue), input.FileTypes)
	return jsonResult(map[string]any{
		"issue_key":   issue.Key,
		"summary":     issue.Fields.Summary,
		"count":       len(refs),
		"attachments": refs,
	}), nil
}

type jiraDownloadAttachmentsInput struct {
	clientArgs
	IssueKey  string   `json:"issue_key"`
	BaseDir   string   `json:"base_dir,omitempty"`
	FileTypes []string `json:"file_types,omitempty"`
	Workers   int      `json:"workers,omitempty"`
}

func (h *Handler) jiraDownloadAttachments(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input jiraDownloadAttachmentsInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.jiraFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	issue, err := c.GetIssue(ctx, input.IssueKey)
	if err != nil {
		return apiErrorResult(err), nil
	}
	refs := attachment.FilterByType(jira.Refs(*issue), input.FileTypes)

	org, err := attachment.NewOrganizer(downloadDir(input.BaseDir))
	if err != nil {
		return errorResult(err.Error()), nil
	}
	dl := &attachment.Downloader{Workers: input.Workers, Fetch: c.Download}
	results := dl.DownloadAll(ctx, refs, func(r attachment.Ref) (string, error) {
		return org.Resolve(r.Key, r.ContentTitle, r.Filename)
	})
	return jsonResult(summarizeDownloads(results, org.BaseDir())), nil
}

type jiraProjectStatsInput struct {
	clientArgs
	ProjectKey string `json:"project_key"`
	Limit      int    `json:"limit,omitempty"`
}

func (h *Handler) jiraGetProjectStatistics(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input jiraProjectStatsInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.jiraFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if input.Limit <= 0 {
		input.Limit = 100
	}

	project, err := c.GetProject(ctx, input.ProjectKey)
	if err != nil {
		return apiErrorResult(err), nil
	}
	jql, err := query.BuildJQL(query.IssueFilter{ProjectKey: input.ProjectKey})
	if err != nil {
		return errorResult(err.Error()), nil
	}
	issues, err := c.SearchIssues(ctx, jql, input.Limit)
	if err != nil {
		return apiErrorResult(err), nil
	}

	byType := map[string]int{}
	byStatus := map[string]int{}
	var attachmentCount int
	var attachmentBytes int64
	for _, i := range issues {
		if i.Fields.IssueType != nil {
			byType[i.Fields.IssueType.Name]++
		}
		if i.Fields.Status != nil {
			byStatus[i.Fields.Status.Name]++
		}
		attachmentCount += len(i.Fields.Attachment)
		for _, a := range i.Fields.Attachment {
			attachmentBytes += a.Size
		}
	}

	return jsonResult(map[string]any{
		"project_key":           project.Key,
		"project_name":          project.Name,
		"issues_scanned":        len(issues),
		"issues_by_type":        byType,
		"issues_by_status":      byStatus,
		"attachment_count":      attachmentCount,
		"attachment_total_size": attachmentBytes,
	}), nil
}

type jiraIngestIssueInput struct {
	clientArgs
	IssueKey  string `json:"issue_key"`
	BaseDir   string `json:"base_dir,omitempty"`
	KeepFiles bool   `json:"keep_files,omitempty"`
}

func (h *Handler) jiraIngestIssueAttachments(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input jiraIngestIssueInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.jiraFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	issue, err := c.GetIssue(ctx, input.IssueKey)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return h.runIngestPipeline(ctx, jira.Refs(*issue), c.Download, input.BaseDir, input.KeepFiles, "jira")
}

type jiraIngestProjectInput struct {
	clientArgs
	ProjectKey string `json:"project_key"`
	BaseDir    string `json:"base_dir,omitempty"`
	KeepFiles  bool   `json:"keep_files,omitempty"`
	Limit      int    `json:"limit,omitempty"`
}

func (h *Handler) jiraIngestProjectAttachments(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input jiraIngestProjectInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.jiraFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if input.Limit <= 0 {
		input.Limit = 100
	}

	// Only issues that actually carry attachments need fetching.
	hasAttachments := true
	jql, err := query.BuildJQL(query.IssueFilter{ProjectKey: input.ProjectKey, HasAttachments: &hasAttachments})
	if err != nil {
		return errorResult(err.Error()), nil
	}
	issues, err := c.SearchIssues(ctx, jql, input.Limit)
	if err != nil {
		return apiErrorResult(err), nil
	}
	var refs []attachment.Ref
	for _, i := range issues {
		refs = append(refs, jira.Refs(i)...)
	}
	return h.runIngestPipeline(ctx, refs, c.Download, input.BaseDir, input.KeepFiles, "jira")
}

type jiraCreateIssueInput struct {
	clientArgs
	ProjectKey  string `json:"project_key"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	IssueType   string `json:"issue_type,omitempty"`
}

func (h *Handler) jiraCreateIssue(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input jiraCreateIssueInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.jiraFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	issue, err := c.CreateIssue(ctx, input.ProjectKey, input.Summary, input.Description, input.IssueType)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(map[string]any{"key": issue.Key, "summary": issue.Fields.Summary}), nil
}

// uploadIssueFile opens and uploads one local file to an issue.
func uploadIssueFile(ctx context.Context, c *jira.Client, issueKey, filePath, filename string) (*jira.IssueAttachment, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", filePath, err)
	}
	if filename == "" {
		filename = filepath.Base(filePath)
	}
	return c.UploadAttachment(ctx, issueKey, filename, f, fi.Size())
}

type jiraUploadAttachmentInput struct {
	clientArgs
	IssueKey string `json:"issue_key"`
	FilePath string `json:"file_path"`
	Filename string `json:"filename,omitempty"`
}

func (h *Handler) jiraUploadAttachment(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input jiraUploadAttachmentInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.jiraFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	att, err := uploadIssueFile(ctx, c, input.IssueKey, input.FilePath, input.Filename)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(map[string]any{
		"attachment_id": att.ID,
		"filename":      att.Filename,
		"issue_key":     input.IssueKey,
	}), nil
}

type jiraUploadAttachmentsInput struct {
	clientArgs
	IssueKey  string   `json:"issue_key"`
	FilePaths []string `json:"file_paths"`
}

func (h *Handler) jiraUploadAttachments(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input jiraUploadAttachmentsInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.jiraFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	type uploadOutcome struct {
		FilePath     string `json:"file_path"`
		AttachmentID string `json:"attachment_id,omitempty"`
		Error        string `json:"error,omitempty"`
	}
	var uploaded, failed int
	outcomes := make([]uploadOutcome, 0, len(input.FilePaths))
	for _, path := range input.FilePaths {
		out := uploadOutcome{FilePath: path}
		att, err := uploadIssueFile(ctx, c, input.IssueKey, path, "")
		if err != nil {
			out.Error = err.Error()
			failed++
		} else {
			out.AttachmentID = att.ID
			uploaded++
		}
		outcomes = append(outcomes, out)
	}
	return jsonResult(map[string]any{
		"issue_key": input.IssueKey,
		"uploaded":  uploaded,
		"failed":    failed,
		"files":     outcomes,
	}), nil
}

type jiraCreateAndUploadInput struct {
	clientArgs
	ProjectKey  string `json:"project_key"`
	Summary     string `json:"summary"`
	Description string `json:"description,omitempty"`
	IssueType   string `json:"issue_type,omitempty"`
	FilePath    string `json:"file_path"`
}

func (h *Handler) jiraCreateIssueAndUploadFile(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input jiraCreateAndUploadInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.jiraFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	issue, err := c.CreateIssue(ctx, input.ProjectKey, input.Summary, input.Description, input.IssueType)
	if err != nil {
		return apiErrorResult(err), nil
	}
	att, err := uploadIssueFile(ctx, c, issue.Key, input.FilePath, "")
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(map[string]any{
		"key":           issue.Key,
		"created":       true,
		"attachment_id": att.ID,
		"filename":      att.Filename,
	}), nil
}

type jiraUploadOrCreateInput struct {
	clientArgs
	IssueKey   string `json:"issue_key,omitempty"`
	ProjectKey string `json:"project_key"`
	Summary    string `json:"summary"`
	FilePath   string `json:"file_path"`
}

// issueOrCreate resolves the target issue key, creating an issue in the
// project when the key is empty or not found. The bool reports whether an
// issue was created.
func issueOrCreate(ctx context.Context, c *jira.Client, issueKey, projectKey, summary string) (string, bool, error) {
	if issueKey != "" {
		if _, err := c.GetIssue(ctx, issueKey); err == nil {
			return issueKey, false, nil
		} else if !isNotFound(err) {
			return "", false, err
		}
	}
	issue, err := c.CreateIssue(ctx, projectKey, summary, "", "")
	if err != nil {
		return "", false, err
	}
	return issue.Key, true, nil
}

func (h *Handler) jiraUploadFileToIssueOrCreate(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input jiraUploadOrCreateInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.jiraFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	issueKey, created, err := issueOrCreate(ctx, c, input.IssueKey, input.ProjectKey, input.Summary)
	if err != nil {
		return apiErrorResult(err), nil
	}

	att, err := uploadIssueFile(ctx, c, issueKey, input.FilePath, "")
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(map[string]any{
		"issue_key":     issueKey,
		"created":       created,
		"attachment_id": att.ID,
		"filename":      att.Filename,
	}), nil
}

type jiraUploadAndIngestInput struct {
	clientArgs
	IssueKey string `json:"issue_key"`
	FilePath string `json:"file_path"`
}

func (h *Handler) jiraUploadAndIngestFile(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input jiraUploadAndIngestInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.jiraFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	issue, err := c.GetIssue(ctx, input.IssueKey)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return h.uploadThenIngest(ctx, func() (string, error) {
		att, err := uploadIssueFile(ctx, c, issue.Key, input.FilePath, "")
		if err != nil {
			return "", err
		}
		return att.ID, nil
	}, input.FilePath, ingestTarget{
		source: "jira", key: issue.ProjectKey(), contentID: issue.Key, contentTitle: issue.Fields.Summary,
	})
}

func (h *Handler) jiraCreateIssueAndUploadAndIngestFile(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input jiraCreateAndUploadInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.jiraFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	issue, err := c.CreateIssue(ctx, input.ProjectKey, input.Summary, input.Description, input.IssueType)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return h.uploadThenIngest(ctx, func() (string, error) {
		att, err := uploadIssueFile(ctx, c, issue.Key, input.FilePath, "")
		if err != nil {
			return "", err
		}
		return att.ID, nil
	}, input.FilePath, ingestTarget{
		source: "jira", key: input.ProjectKey, contentID: issue.Key, contentTitle: input.Summary,
	})
}

func (h *Handler) jiraUploadAndIngestFileToIssueOrCreate(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input jiraUploadOrCreateInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.jiraFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	issueKey, _, err := issueOrCreate(ctx, c, input.IssueKey, input.ProjectKey, input.Summary)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return h.uploadThenIngest(ctx, func() (string, error) {
		att, err := uploadIssueFile(ctx, c, issueKey, input.FilePath, "")
		if err != nil {
			return "", err
		}
		return att.ID, nil
	}, input.FilePath, ingestTarget{
		source: "jira", key: input.ProjectKey, contentID: issueKey, contentTitle: input.Summary,
	})
}
