// Package tools implements the tool catalog: Confluence and Jira adapters,
// the download/ingestion pipelines, and the meta tools that navigate the
// catalog itself.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/golovatskygroup/mcp-atlas/internal/atlassian"
	"github.com/golovatskygroup/mcp-atlas/internal/atlassian/confluence"
	"github.com/golovatskygroup/mcp-atlas/internal/atlassian/jira"
	"github.com/golovatskygroup/mcp-atlas/internal/ingest"
	"github.com/golovatskygroup/mcp-atlas/internal/registry"
	"github.com/golovatskygroup/mcp-atlas/pkg/mcp"
)

// Handler dispatches tool calls. Vendor clients are built per call so that
// multi-tenant alias maps and per-call overrides work; the factories are
// swappable for tests.
type Handler struct {
	registry *registry.Registry
	logger   *log.Logger

	confluenceFor func(clientName, baseOverride string) (*confluence.Client, error)
	jiraFor       func(clientName, baseOverride string) (*jira.Client, error)
	processorFor  func() (ingest.Processor, error)
	ledgerFor     func() (*ingest.Ledger, error)
}

// NewHandler builds a handler with the full catalog registered and
// environment-backed client factories.
func NewHandler(logger *log.Logger) *Handler {
	h := &Handler{
		registry:      registry.New(),
		logger:        logger,
		confluenceFor: confluence.NewFromEnv,
		jiraFor:       jira.NewFromEnv,
		processorFor: func() (ingest.Processor, error) {
			return ingest.NewHTTPProcessorFromEnv()
		},
		ledgerFor: ingest.OpenLedgerFromEnv,
	}
	for _, e := range catalog() {
		h.registry.Register(e.tool, e.category)
	}
	return h
}

// Registry exposes the catalog index, used by the server for tools/list.
func (h *Handler) Registry() *registry.Registry { return h.registry }

// Tools returns every registered tool definition.
func (h *Handler) Tools() []mcp.Tool { return h.registry.List("") }

// Handle validates the arguments against the tool's input schema, then
// dispatches. Argument and API failures come back as error results, not
// protocol errors; only an unknown tool is a protocol error.
func (h *Handler) Handle(ctx context.Context, name string, args json.RawMessage) (*mcp.CallToolResult, error) {
	tool, _, ok := h.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
	if err := validateArgs(name, tool.InputSchema, args); err != nil {
		return errorResult(err.Error()), nil
	}

	switch name {
	case "search_tools":
		return h.searchTools(args)
	case "describe_tool":
		return h.describeTool(args)

	case "confluence_list_spaces":
		return h.confluenceListSpaces(ctx, args)
	case "confluence_get_space":
		return h.confluenceGetSpace(ctx, args)
	case "confluence_search_content":
		return h.confluenceSearchContent(ctx, args)
	case "confluence_search_cql":
		return h.confluenceSearchCQL(ctx, args)
	case "confluence_get_content":
		return h.confluenceGetContent(ctx, args)
	case "confluence_get_content_by_title":
		return h.confluenceGetContentByTitle(ctx, args)
	case "confluence_get_space_content":
		return h.confluenceGetSpaceContent(ctx, args)
	case "confluence_list_attachments":
		return h.confluenceListAttachments(ctx, args)
	case "confluence_download_attachments":
		return h.confluenceDownloadAttachments(ctx, args)
	case "confluence_get_space_statistics":
		return h.confluenceGetSpaceStatistics(ctx, args)
	case "confluence_download_and_ingest_content_attachments":
		return h.confluenceIngestContentAttachments(ctx, args)
	case "confluence_download_and_ingest_space_attachments":
		return h.confluenceIngestSpaceAttachments(ctx, args)
	case "confluence_create_page":
		return h.confluenceCreatePage(ctx, args)
	case "confluence_upload_attachment":
		return h.confluenceUploadAttachment(ctx, args)
	case "confluence_upload_attachments":
		return h.confluenceUploadAttachments(ctx, args)
	case "confluence_upload_file_to_page_by_title":
		return h.confluenceUploadFileToPageByTitle(ctx, args)
	case "confluence_create_page_and_upload_file":
		return h.confluenceCreatePageAndUploadFile(ctx, args)
	case "confluence_upload_file_to_page_or_create":
		return h.confluenceUploadFileToPageOrCreate(ctx, args)
	case "confluence_upload_and_ingest_file":
		return h.confluenceUploadAndIngestFile(ctx, args)
	case "confluence_upload_and_ingest_file_to_page_or_create":
		return h.confluenceUploadAndIngestFileToPageOrCreate(ctx, args)
	case "confluence_storage_to_text":
		return h.confluenceStorageToText(ctx, args)
	case "confluence_storage_to_markdown":
		return h.confluenceStorageToMarkdown(ctx, args)

	case "jira_list_projects":
		return h.jiraListProjects(ctx, args)
	case "jira_get_project":
		return h.jiraGetProject(ctx, args)
	case "jira_search_issues":
		return h.jiraSearchIssues(ctx, args)
	case "jira_get_issue":
		return h.jiraGetIssue(ctx, args)
	case "jira_list_attachments":
		return h.jiraListAttachments(ctx, args)
	case "jira_download_attachments":
		return h.jiraDownloadAttachments(ctx, args)
	case "jira_get_project_statistics":
		return h.jiraGetProjectStatistics(ctx, args)
	case "jira_download_and_ingest_issue_attachments":
		return h.jiraIngestIssueAttachments(ctx, args)
	case "jira_download_and_ingest_project_attachments":
		return h.jiraIngestProjectAttachments(ctx, args)
	case "jira_create_issue":
		return h.jiraCreateIssue(ctx, args)
	case "jira_upload_attachment":
		return h.jiraUploadAttachment(ctx, args)
	case "jira_upload_attachments":
		return h.jiraUploadAttachments(ctx, args)
	case "jira_create_issue_and_upload_file":
		return h.jiraCreateIssueAndUploadFile(ctx, args)
	case "jira_upload_file_to_issue_or_create":
		return h.jiraUploadFileToIssueOrCreate(ctx, args)
	case "jira_upload_and_ingest_file":
		return h.jiraUploadAndIngestFile(ctx, args)
	case "jira_create_issue_and_upload_and_ingest_file":
		return h.jiraCreateIssueAndUploadAndIngestFile(ctx, args)
	case "jira_upload_and_ingest_file_to_issue_or_create":
		return h.jiraUploadAndIngestFileToIssueOrCreate(ctx, args)

	case "ingest_history":
		return h.ingestHistory(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// clientArgs are the per-call tenant override fields shared by every vendor
// tool.
type clientArgs struct {
	Client  string `json:"client,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

const defaultDownloadDir = "~/atlas_downloads"

// downloadDir resolves the local layout root: per-call base_dir, then
// ATLAS_MCP_DOWNLOAD_DIR, then the default.
func downloadDir(baseDir string) string {
	if strings.TrimSpace(baseDir) != "" {
		return baseDir
	}
	if v := strings.TrimSpace(os.Getenv("ATLAS_MCP_DOWNLOAD_DIR")); v != "" {
		return v
	}
	return defaultDownloadDir
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: text}}}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.ContentBlock{{Type: "text", Text: "Error: " + msg}}, IsError: true}
}

func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult("failed to encode result: " + err.Error())
	}
	return textResult(string(data))
}

// apiErrorResult renders an API failure with an operator hint where one
// helps.
func apiErrorResult(err error) *mcp.CallToolResult {
	msg := err.Error()
	switch {
	case atlassian.IsKind(err, atlassian.KindAuth):
		msg += "\nHint: check the PAT/API token and base URL; Data Center instances redirect bad API auth to a login page."
	case atlassian.IsKind(err, atlassian.KindRateLimit):
		msg += "\nHint: the instance is rate limiting; lower ATLAS_MCP_RPS or retry later."
	case atlassian.IsKind(err, atlassian.KindIngestion):
		msg += "\nHint: check INGEST_API_URL and that the processing service is up."
	}
	return errorResult(msg)
}
