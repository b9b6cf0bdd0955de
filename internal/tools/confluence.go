package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golovatskygroup/mcp-atlas/internal/atlassian/confluence"
	"github.com/golovatskygroup/mcp-atlas/internal/attachment"
	"github.com/golovatskygroup/mcp-atlas/internal/query"
	"github.com/golovatskygroup/mcp-atlas/pkg/mcp"
)

// contentSummary is the compact content shape returned by list/search tools.
type contentSummary struct {
	ID       string `json:"id"`
	Type     string `json:"type,omitempty"`
	Title    string `json:"title"`
	SpaceKey string `json:"space_key,omitempty"`
	Author   string `json:"author,omitempty"`
	Created  string `json:"created,omitempty"`
	WebURL   string `json:"web_url,omitempty"`
	Body     string `json:"body,omitempty"`
}

func summarizeContent(c confluence.Content, includeBody bool) contentSummary {
	s := contentSummary{
		ID:      c.ID,
		Type:    c.Type,
		Title:   c.Title,
		Author:  c.CreatedBy(),
		Created: c.CreatedDate(),
		WebURL:  c.Links.WebUI,
	}
	if c.Space != nil {
		s.SpaceKey = c.Space.Key
	}
	if includeBody {
		s.Body = c.BodyValue()
	}
	return s
}

func summarizeContents(items []confluence.Content) []contentSummary {
	out := make([]contentSummary, 0, len(items))
	for _, c := range items {
		out = append(out, summarizeContent(c, false))
	}
	return out
}

type confluenceListSpacesInput struct {
	clientArgs
	Limit int `json:"limit,omitempty"`
}

func (h *Handler) confluenceListSpaces(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceListSpacesInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	spaces, err := c.ListSpaces(ctx, input.Limit)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(map[string]any{"count": len(spaces), "spaces": spaces}), nil
}

type confluenceGetSpaceInput struct {
	clientArgs
	SpaceKey string `json:"space_key"`
}

func (h *Handler) confluenceGetSpace(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceGetSpaceInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	space, err := c.GetSpace(ctx, input.SpaceKey)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(space), nil
}

type confluenceSearchContentInput struct {
	clientArgs
	query.ContentFilter
	Limit int `json:"limit,omitempty"`
}

func (h *Handler) confluenceSearchContent(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceSearchContentInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	cql, err := query.BuildCQL(input.ContentFilter)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if input.Limit <= 0 {
		input.Limit = 25
	}
	items, err := c.SearchCQL(ctx, cql, input.Limit)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(map[string]any{
		"cql":     cql,
		"count":   len(items),
		"results": summarizeContents(items),
	}), nil
}

type confluenceSearchCQLInput struct {
	clientArgs
	CQL   string `json:"cql"`
	Limit int    `json:"limit,omitempty"`
}

func (h *Handler) confluenceSearchCQL(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceSearchCQLInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if input.Limit <= 0 {
		input.Limit = 25
	}
	items, err := c.SearchCQL(ctx, input.CQL, input.Limit)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(map[string]any{
		"cql":     input.CQL,
		"count":   len(items),
		"results": summarizeContents(items),
	}), nil
}

type confluenceGetContentInput struct {
	clientArgs
	ContentID   string `json:"content_id"`
	IncludeBody bool   `json:"include_body,omitempty"`
}

func (h *Handler) confluenceGetContent(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceGetContentInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	content, err := c.GetContent(ctx, input.ContentID, input.IncludeBody)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(summarizeContent(*content, input.IncludeBody)), nil
}

type confluenceGetContentByTitleInput struct {
	clientArgs
	SpaceKey    string `json:"space_key"`
	Title       string `json:"title"`
	ContentType string `json:"content_type,omitempty"`
	IncludeBody bool   `json:"include_body,omitempty"`
}

func (h *Handler) confluenceGetContentByTitle(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceGetContentByTitleInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	content, err := c.GetContentByTitle(ctx, input.SpaceKey, input.Title, input.ContentType, input.IncludeBody)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(summarizeContent(*content, input.IncludeBody)), nil
}

type confluenceGetSpaceContentInput struct {
	clientArgs
	SpaceKey    string `json:"space_key"`
	ContentType string `json:"content_type,omitempty"`
	Limit       int    `json:"limit,omitempty"`
}

func (h *Handler) confluenceGetSpaceContent(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceGetSpaceContentInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if input.Limit <= 0 {
		input.Limit = 25
	}
	items, err := c.GetSpaceContent(ctx, input.SpaceKey, input.ContentType, input.Limit)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(map[string]any{"count": len(items), "results": summarizeContents(items)}), nil
}

type confluenceListAttachmentsInput struct {
	clientArgs
	ContentID string   `json:"content_id"`
	FileTypes []string `json:"file_types,omitempty"`
	Limit     int      `json:"limit,omitempty"`
}

// contentRefs lists a content item's attachments as refs, fetching the
// content first so refs carry the space key and title.
func (h *Handler) contentRefs(ctx context.Context, c *confluence.Client, contentID string, fileTypes []string, limit int) ([]attachment.Ref, *confluence.Content, error) {
	content, err := c.GetContent(ctx, contentID, false)
	if err != nil {
		return nil, nil, err
	}
	atts, err := c.ListAttachments(ctx, contentID, limit)
	if err != nil {
		return nil, nil, err
	}
	refs := attachment.FilterByType(confluence.Refs(*content, atts), fileTypes)
	return refs, content, nil
}

func (h *Handler) confluenceListAttachments(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceListAttachmentsInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	refs, content, err := h.contentRefs(ctx, c, input.ContentID, input.FileTypes, input.Limit)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(map[string]any{
		"content_id":  content.ID,
		"title":       content.Title,
		"count":       len(refs),
		"attachments": refs,
	}), nil
}

type confluenceDownloadAttachmentsInput struct {
	clientArgs
	ContentID string   `json:"content_id"`
	BaseDir   string   `json:"base_dir,omitempty"`
	FileTypes []string `json:"file_types,omitempty"`
	Workers   int      `json:"workers,omitempty"`
}

// downloadSummary is the shared result shape of both vendors' download
// tools.
type downloadSummary struct {
	Count      int              `json:"count"`
	Downloaded int              `json:"downloaded"`
	Failed     int              `json:"failed"`
	BaseDir    string           `json:"base_dir"`
	Files      []downloadedFile `json:"files"`
}

type downloadedFile struct {
	AttachmentID string `json:"attachment_id"`
	Filename     string `json:"filename"`
	LocalPath    string `json:"local_path,omitempty"`
	SizeBytes    int64  `json:"size_bytes,omitempty"`
	Error        string `json:"error,omitempty"`
}

func summarizeDownloads(results []attachment.Result, baseDir string) downloadSummary {
	sum := downloadSummary{Count: len(results), BaseDir: baseDir, Files: make([]downloadedFile, 0, len(results))}
	for _, r := range results {
		f := downloadedFile{
			AttachmentID: r.AttachmentID,
			Filename:     r.Filename,
			LocalPath:    r.LocalPath,
			SizeBytes:    r.Bytes,
			Error:        r.ErrString(),
		}
		if r.Err == nil {
			sum.Downloaded++
		} else {
			sum.Failed++
		}
		sum.Files = append(sum.Files, f)
	}
	return sum
}

func (h *Handler) confluenceDownloadAttachments(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceDownloadAttachmentsInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	refs, _, err := h.contentRefs(ctx, c, input.ContentID, input.FileTypes, 0)
	if err != nil {
		return apiErrorResult(err), nil
	}

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

type confluenceSpaceStatsInput struct {
	clientArgs
	SpaceKey string `json:"space_key"`
	Limit    int    `json:"limit,omitempty"`
}

func (h *Handler) confluenceGetSpaceStatistics(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceSpaceStatsInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if input.Limit <= 0 {
		input.Limit = 100
	}

	space, err := c.GetSpace(ctx, input.SpaceKey)
	if err != nil {
		return apiErrorResult(err), nil
	}

	byType := map[string]int{}
	var attachmentCount int
	var attachmentBytes int64
	var scanned int
	for _, contentType := range []string{"page", "blogpost"} {
		items, err := c.GetSpaceContent(ctx, input.SpaceKey, contentType, input.Limit)
		if err != nil {
			return apiErrorResult(err), nil
		}
		byType[contentType] = len(items)
		for _, item := range items {
			scanned++
			atts, err := c.ListAttachments(ctx, item.ID, 0)
			if err != nil {
				continue
			}
			attachmentCount += len(atts)
			for _, a := range atts {
				attachmentBytes += a.Extensions.FileSize
			}
		}
	}

	return jsonResult(map[string]any{
		"space_key":             space.Key,
		"space_name":            space.Name,
		"content_by_type":       byType,
		"content_scanned":       scanned,
		"attachment_count":      attachmentCount,
		"attachment_total_size": attachmentBytes,
	}), nil
}

type confluenceIngestContentInput struct {
	clientArgs
	ContentID string `json:"content_id"`
	BaseDir   string `json:"base_dir,omitempty"`
	KeepFiles bool   `json:"keep_files,omitempty"`
}

func (h *Handler) confluenceIngestContentAttachments(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceIngestContentInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	refs, _, err := h.contentRefs(ctx, c, input.ContentID, nil, 0)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return h.runIngestPipeline(ctx, refs, c.Download, input.BaseDir, input.KeepFiles, "confluence")
}

type confluenceIngestSpaceInput struct {
	clientArgs
	SpaceKey  string `json:"space_key"`
	BaseDir   string `json:"base_dir,omitempty"`
	KeepFiles bool   `json:"keep_files,omitempty"`
	Limit     int    `json:"limit,omitempty"`
}

func (h *Handler) confluenceIngestSpaceAttachments(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceIngestSpaceInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	if input.Limit <= 0 {
		input.Limit = 100
	}

	items, err := c.GetSpaceContent(ctx, input.SpaceKey, "page", input.Limit)
	if err != nil {
		return apiErrorResult(err), nil
	}
	var refs []attachment.Ref
	for _, item := range items {
		atts, err := c.ListAttachments(ctx, item.ID, 0)
		if err != nil {
			// One unreadable page shouldn't sink a space-wide run.
			continue
		}
		refs = append(refs, confluence.Refs(item, atts)...)
	}
	return h.runIngestPipeline(ctx, refs, c.Download, input.BaseDir, input.KeepFiles, "confluence")
}

type confluenceCreatePageInput struct {
	clientArgs
	SpaceKey string `json:"space_key"`
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
}

func (h *Handler) confluenceCreatePage(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceCreatePageInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	created, err := c.CreatePage(ctx, input.SpaceKey, input.Title, input.Body, input.ParentID)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(map[string]any{
		"id":      created.ID,
		"title":   created.Title,
		"web_url": created.Links.WebUI,
	}), nil
}

// uploadFile opens and uploads one local file to a content item.
func uploadFile(ctx context.Context, c *confluence.Client, contentID, filePath, filename, comment string) (*confluence.Attachment, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", filePath, err)
	}
	defer f.Close()
	if filename == "" {
		filename = filepath.Base(filePath)
	}
	return c.UploadAttachment(ctx, contentID, filename, f, comment)
}

type confluenceUploadAttachmentInput struct {
	clientArgs
	ContentID string `json:"content_id"`
	FilePath  string `json:"file_path"`
	Filename  string `json:"filename,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

func (h *Handler) confluenceUploadAttachment(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceUploadAttachmentInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	att, err := uploadFile(ctx, c, input.ContentID, input.FilePath, input.Filename, input.Comment)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(map[string]any{
		"attachment_id": att.ID,
		"filename":      att.Title,
		"content_id":    input.ContentID,
	}), nil
}

type confluenceUploadAttachmentsInput struct {
	clientArgs
	ContentID string   `json:"content_id"`
	FilePaths []string `json:"file_paths"`
	Comment   string   `json:"comment,omitempty"`
}

func (h *Handler) confluenceUploadAttachments(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceUploadAttachmentsInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
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
		att, err := uploadFile(ctx, c, input.ContentID, path, "", input.Comment)
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
		"content_id": input.ContentID,
		"uploaded":   uploaded,
		"failed":     failed,
		"files":      outcomes,
	}), nil
}

type confluenceUploadByTitleInput struct {
	clientArgs
	SpaceKey string `json:"space_key"`
	Title    string `json:"title"`
	FilePath string `json:"file_path"`
	Comment  string `json:"comment,omitempty"`
}

func (h *Handler) confluenceUploadFileToPageByTitle(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceUploadByTitleInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	content, err := c.GetContentByTitle(ctx, input.SpaceKey, input.Title, "page", false)
	if err != nil {
		return apiErrorResult(err), nil
	}
	att, err := uploadFile(ctx, c, content.ID, input.FilePath, "", input.Comment)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(map[string]any{
		"attachment_id": att.ID,
		"filename":      att.Title,
		"content_id":    content.ID,
		"title":         content.Title,
	}), nil
}

type confluenceCreateAndUploadInput struct {
	clientArgs
	SpaceKey string `json:"space_key"`
	Title    string `json:"title"`
	Body     string `json:"body,omitempty"`
	FilePath string `json:"file_path"`
	Comment  string `json:"comment,omitempty"`
}

func (h *Handler) confluenceCreatePageAndUploadFile(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceCreateAndUploadInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	created, err := c.CreatePage(ctx, input.SpaceKey, input.Title, input.Body, "")
	if err != nil {
		return apiErrorResult(err), nil
	}
	att, err := uploadFile(ctx, c, created.ID, input.FilePath, "", input.Comment)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(map[string]any{
		"content_id":    created.ID,
		"title":         created.Title,
		"created":       true,
		"attachment_id": att.ID,
		"filename":      att.Title,
	}), nil
}

// pageOrCreate finds the page by title, creating it when missing. The bool
// reports whether a page was created.
func pageOrCreate(ctx context.Context, c *confluence.Client, spaceKey, title, body string) (*confluence.Content, bool, error) {
	content, err := c.GetContentByTitle(ctx, spaceKey, title, "page", false)
	if err == nil {
		return content, false, nil
	}
	if !isNotFound(err) {
		return nil, false, err
	}
	created, err := c.CreatePage(ctx, spaceKey, title, body, "")
	if err != nil {
		return nil, false, err
	}
	return created, true, nil
}

func (h *Handler) confluenceUploadFileToPageOrCreate(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceCreateAndUploadInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	content, created, err := pageOrCreate(ctx, c, input.SpaceKey, input.Title, input.Body)
	if err != nil {
		return apiErrorResult(err), nil
	}
	att, err := uploadFile(ctx, c, content.ID, input.FilePath, "", input.Comment)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return jsonResult(map[string]any{
		"content_id":    content.ID,
		"title":         content.Title,
		"created":       created,
		"attachment_id": att.ID,
		"filename":      att.Title,
	}), nil
}

type confluenceUploadAndIngestInput struct {
	clientArgs
	ContentID string `json:"content_id"`
	FilePath  string `json:"file_path"`
	Comment   string `json:"comment,omitempty"`
}

func (h *Handler) confluenceUploadAndIngestFile(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceUploadAndIngestInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	content, err := c.GetContent(ctx, input.ContentID, false)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return h.uploadThenIngest(ctx, func() (string, error) {
		att, err := uploadFile(ctx, c, content.ID, input.FilePath, "", input.Comment)
		if err != nil {
			return "", err
		}
		return att.ID, nil
	}, input.FilePath, ingestTarget{
		source: "confluence", key: spaceKeyOf(content), contentID: content.ID, contentTitle: content.Title,
	})
}

func spaceKeyOf(c *confluence.Content) string {
	if c.Space != nil {
		return c.Space.Key
	}
	return ""
}

func (h *Handler) confluenceUploadAndIngestFileToPageOrCreate(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input confluenceCreateAndUploadInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	c, err := h.confluenceFor(input.Client, input.BaseURL)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	content, _, err := pageOrCreate(ctx, c, input.SpaceKey, input.Title, input.Body)
	if err != nil {
		return apiErrorResult(err), nil
	}
	return h.uploadThenIngest(ctx, func() (string, error) {
		att, err := uploadFile(ctx, c, content.ID, input.FilePath, "", input.Comment)
		if err != nil {
			return "", err
		}
		return att.ID, nil
	}, input.FilePath, ingestTarget{
		source: "confluence", key: input.SpaceKey, contentID: content.ID, contentTitle: content.Title,
	})
}
