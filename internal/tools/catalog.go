package tools

import (
	"encoding/json"

	"github.com/golovatskygroup/mcp-atlas/internal/registry"
	"github.com/golovatskygroup/mcp-atlas/pkg/mcp"
)

type catalogEntry struct {
	tool     mcp.Tool
	category string
}

// catalog returns every tool definition. Schemas are strict: unknown
// argument names are rejected so typos fail before any network call.
func catalog() []catalogEntry {
	confluence := func(name, desc, schema string) catalogEntry {
		return catalogEntry{
			tool:     mcp.Tool{Name: name, Description: desc, InputSchema: json.RawMessage(schema)},
			category: registry.CategoryConfluence,
		}
	}
	jira := func(name, desc, schema string) catalogEntry {
		return catalogEntry{
			tool:     mcp.Tool{Name: name, Description: desc, InputSchema: json.RawMessage(schema)},
			category: registry.CategoryJira,
		}
	}

	return []catalogEntry{
		{
			tool: mcp.Tool{
				Name:        "search_tools",
				Description: "Fuzzy-search the tool catalog by name or description. Use this first to find the right tool.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"additionalProperties": false,
					"properties": {
						"query": {"type": "string", "description": "Search query (e.g. 'download attachments', 'jql')"},
						"category": {"type": "string", "description": "Restrict to a category", "enum": ["confluence", "jira", "ingest", "meta"]},
						"limit": {"type": "integer", "description": "Max results (default: 10)", "minimum": 1}
					},
					"required": ["query"]
				}`),
			},
			category: registry.CategoryMeta,
		},
		{
			tool: mcp.Tool{
				Name:        "describe_tool",
				Description: "Show one tool's full description and input schema.",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"additionalProperties": false,
					"properties": {
						"name": {"type": "string", "description": "Exact tool name"}
					},
					"required": ["name"]
				}`),
			},
			category: registry.CategoryMeta,
		},

		confluence("confluence_list_spaces",
			"List Confluence spaces visible to the configured credentials.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string", "description": "Named client from CONFLUENCE_CLIENTS_JSON"},
				"base_url": {"type": "string", "description": "Override the instance base URL for this call"},
				"limit": {"type": "integer", "description": "Max spaces (default: 50)", "minimum": 1}
			}
		}`),
		confluence("confluence_get_space",
			"Get one Confluence space by key.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"space_key": {"type": "string", "description": "Space key (e.g. ENG)"}
			},
			"required": ["space_key"]
		}`),
		confluence("confluence_search_content",
			"Search Confluence content with structured filters; the CQL is built for you and included in the result.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"space_key": {"type": "string", "description": "Restrict to a space"},
				"content_type": {"type": "string", "description": "page, blogpost or attachment (default: page)"},
				"title_search": {"type": "string", "description": "Fuzzy title match"},
				"text_search": {"type": "string", "description": "Full-text body match"},
				"author": {"type": "string", "description": "Creator username"},
				"created_after": {"type": "string", "description": "YYYY-MM-DD"},
				"created_before": {"type": "string", "description": "YYYY-MM-DD"},
				"modified_after": {"type": "string", "description": "YYYY-MM-DD"},
				"modified_before": {"type": "string", "description": "YYYY-MM-DD"},
				"limit": {"type": "integer", "description": "Max results (default: 25)", "minimum": 1}
			}
		}`),
		confluence("confluence_search_cql",
			"Search Confluence with a raw CQL query for cases the structured filters don't cover.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"cql": {"type": "string", "description": "CQL query string"},
				"limit": {"type": "integer", "description": "Max results (default: 25)", "minimum": 1}
			},
			"required": ["cql"]
		}`),
		confluence("confluence_get_content",
			"Get one content item (page/blog post) by id, optionally with its storage-format body.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"content_id": {"type": "string", "description": "Numeric content id"},
				"include_body": {"type": "boolean", "description": "Include the storage-format body", "default": false}
			},
			"required": ["content_id"]
		}`),
		confluence("confluence_get_content_by_title",
			"Find a content item by exact title within a space.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"space_key": {"type": "string"},
				"title": {"type": "string", "description": "Exact title"},
				"content_type": {"type": "string", "description": "page or blogpost (default: page)"},
				"include_body": {"type": "boolean", "default": false}
			},
			"required": ["space_key", "title"]
		}`),
		confluence("confluence_get_space_content",
			"List content of one type in a space.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"space_key": {"type": "string"},
				"content_type": {"type": "string", "description": "page or blogpost (default: page)"},
				"limit": {"type": "integer", "description": "Max results (default: 25)", "minimum": 1}
			},
			"required": ["space_key"]
		}`),
		confluence("confluence_list_attachments",
			"List attachments of a content item, optionally filtered by file type.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"content_id": {"type": "string"},
				"file_types": {"type": "array", "items": {"type": "string"}, "description": "Extensions or MIME types to keep (e.g. ['pdf', 'docx'])"},
				"limit": {"type": "integer", "minimum": 1}
			},
			"required": ["content_id"]
		}`),
		confluence("confluence_download_attachments",
			"Download attachments of a content item into {base_dir}/{space}/{title}/.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"content_id": {"type": "string"},
				"base_dir": {"type": "string", "description": "Download root (default: ATLAS_MCP_DOWNLOAD_DIR or ~/atlas_downloads)"},
				"file_types": {"type": "array", "items": {"type": "string"}},
				"workers": {"type": "integer", "description": "Parallel downloads (default: 4)", "minimum": 1}
			},
			"required": ["content_id"]
		}`),
		confluence("confluence_get_space_statistics",
			"Summarize a space: content counts by type and attachment totals.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"space_key": {"type": "string"},
				"limit": {"type": "integer", "description": "Max content items to scan (default: 100)", "minimum": 1}
			},
			"required": ["space_key"]
		}`),
		confluence("confluence_download_and_ingest_content_attachments",
			"Download a content item's PDF attachments and hand them to the document processing service; successfully ingested files are cleaned up locally.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"content_id": {"type": "string"},
				"base_dir": {"type": "string"},
				"keep_files": {"type": "boolean", "description": "Leave ingested files on disk", "default": false}
			},
			"required": ["content_id"]
		}`),
		confluence("confluence_download_and_ingest_space_attachments",
			"Run the PDF ingestion pipeline over every content item in a space.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"space_key": {"type": "string"},
				"base_dir": {"type": "string"},
				"keep_files": {"type": "boolean", "default": false},
				"limit": {"type": "integer", "description": "Max content items to scan (default: 100)", "minimum": 1}
			},
			"required": ["space_key"]
		}`),
		confluence("confluence_create_page",
			"Create a Confluence page with a storage-format body.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"space_key": {"type": "string"},
				"title": {"type": "string"},
				"body": {"type": "string", "description": "Storage-format (XHTML) body"},
				"parent_id": {"type": "string", "description": "Optional parent page id"}
			},
			"required": ["space_key", "title"]
		}`),
		confluence("confluence_upload_attachment",
			"Upload a local file as an attachment to a content item.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"content_id": {"type": "string"},
				"file_path": {"type": "string", "description": "Local file path"},
				"filename": {"type": "string", "description": "Override the attachment filename"},
				"comment": {"type": "string", "description": "Attachment comment"}
			},
			"required": ["content_id", "file_path"]
		}`),
		confluence("confluence_upload_attachments",
			"Upload several local files to a content item; each file succeeds or fails independently.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"content_id": {"type": "string"},
				"file_paths": {"type": "array", "items": {"type": "string"}, "minItems": 1},
				"comment": {"type": "string"}
			},
			"required": ["content_id", "file_paths"]
		}`),
		confluence("confluence_upload_file_to_page_by_title",
			"Upload a file to the page found by space key + title.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"space_key": {"type": "string"},
				"title": {"type": "string"},
				"file_path": {"type": "string"},
				"comment": {"type": "string"}
			},
			"required": ["space_key", "title", "file_path"]
		}`),
		confluence("confluence_create_page_and_upload_file",
			"Create a page, then attach a file to it.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"space_key": {"type": "string"},
				"title": {"type": "string"},
				"body": {"type": "string"},
				"file_path": {"type": "string"},
				"comment": {"type": "string"}
			},
			"required": ["space_key", "title", "file_path"]
		}`),
		confluence("confluence_upload_file_to_page_or_create",
			"Upload a file to the page with the given title, creating the page first if it doesn't exist.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"space_key": {"type": "string"},
				"title": {"type": "string"},
				"body": {"type": "string", "description": "Body used only when the page is created"},
				"file_path": {"type": "string"},
				"comment": {"type": "string"}
			},
			"required": ["space_key", "title", "file_path"]
		}`),
		confluence("confluence_upload_and_ingest_file",
			"Upload a file to a content item and also hand it to the document processing service.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"content_id": {"type": "string"},
				"file_path": {"type": "string"},
				"comment": {"type": "string"}
			},
			"required": ["content_id", "file_path"]
		}`),
		confluence("confluence_upload_and_ingest_file_to_page_or_create",
			"Upload a file to a page by title (creating it if missing) and hand the file to the document processing service.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"space_key": {"type": "string"},
				"title": {"type": "string"},
				"body": {"type": "string"},
				"file_path": {"type": "string"},
				"comment": {"type": "string"}
			},
			"required": ["space_key", "title", "file_path"]
		}`),
		confluence("confluence_storage_to_text",
			"Convert Confluence storage-format XHTML to plain text, offline.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"storage": {"type": "string", "description": "Storage-format XHTML"}
			},
			"required": ["storage"]
		}`),
		confluence("confluence_storage_to_markdown",
			"Convert Confluence storage-format XHTML to Markdown, offline.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"storage": {"type": "string", "description": "Storage-format XHTML"}
			},
			"required": ["storage"]
		}`),

		jira("jira_list_projects",
			"List Jira projects visible to the configured credentials.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string", "description": "Named client from JIRA_CLIENTS_JSON"},
				"base_url": {"type": "string", "description": "Override the instance base URL for this call"}
			}
		}`),
		jira("jira_get_project",
			"Get one Jira project by key.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"project_key": {"type": "string", "description": "Project key (e.g. OPS)"}
			},
			"required": ["project_key"]
		}`),
		jira("jira_search_issues",
			"Search Jira issues with structured filters; the JQL is built for you and included in the result.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"project_key": {"type": "string"},
				"issue_type": {"type": "string", "description": "Bug, Task, Story, ..."},
				"status": {"type": "string"},
				"assignee": {"type": "string", "description": "Username, or 'unassigned'"},
				"priority": {"type": "string"},
				"text_search": {"type": "string", "description": "Full-text match"},
				"has_attachments": {"type": "boolean", "description": "Only issues with (or without) attachments"},
				"created_after": {"type": "string", "description": "YYYY-MM-DD"},
				"created_before": {"type": "string", "description": "YYYY-MM-DD"},
				"updated_after": {"type": "string", "description": "YYYY-MM-DD"},
				"updated_before": {"type": "string", "description": "YYYY-MM-DD"},
				"limit": {"type": "integer", "description": "Max results (default: 25)", "minimum": 1}
			}
		}`),
		jira("jira_get_issue",
			"Get one Jira issue by key, including attachment metadata.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"issue_key": {"type": "string", "description": "Issue key (e.g. OPS-7)"}
			},
			"required": ["issue_key"]
		}`),
		jira("jira_list_attachments",
			"List an issue's attachments, optionally filtered by file type.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"issue_key": {"type": "string"},
				"file_types": {"type": "array", "items": {"type": "string"}}
			},
			"required": ["issue_key"]
		}`),
		jira("jira_download_attachments",
			"Download an issue's attachments into {base_dir}/{project}/{summary}/.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"issue_key": {"type": "string"},
				"base_dir": {"type": "string", "description": "Download root (default: ATLAS_MCP_DOWNLOAD_DIR or ~/atlas_downloads)"},
				"file_types": {"type": "array", "items": {"type": "string"}},
				"workers": {"type": "integer", "minimum": 1}
			},
			"required": ["issue_key"]
		}`),
		jira("jira_get_project_statistics",
			"Summarize a project: issue counts by type/status and attachment totals.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"project_key": {"type": "string"},
				"limit": {"type": "integer", "description": "Max issues to scan (default: 100)", "minimum": 1}
			},
			"required": ["project_key"]
		}`),
		jira("jira_download_and_ingest_issue_attachments",
			"Download an issue's PDF attachments and hand them to the document processing service; ingested files are cleaned up locally.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"issue_key": {"type": "string"},
				"base_dir": {"type": "string"},
				"keep_files": {"type": "boolean", "default": false}
			},
			"required": ["issue_key"]
		}`),
		jira("jira_download_and_ingest_project_attachments",
			"Run the PDF ingestion pipeline over every issue in a project.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"project_key": {"type": "string"},
				"base_dir": {"type": "string"},
				"keep_files": {"type": "boolean", "default": false},
				"limit": {"type": "integer", "description": "Max issues to scan (default: 100)", "minimum": 1}
			},
			"required": ["project_key"]
		}`),
		jira("jira_create_issue",
			"Create a Jira issue.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"project_key": {"type": "string"},
				"summary": {"type": "string"},
				"description": {"type": "string"},
				"issue_type": {"type": "string", "description": "Default: Task"}
			},
			"required": ["project_key", "summary"]
		}`),
		jira("jira_upload_attachment",
			"Upload a local file as an issue attachment (10 MB limit).", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"issue_key": {"type": "string"},
				"file_path": {"type": "string"},
				"filename": {"type": "string", "description": "Override the attachment filename"}
			},
			"required": ["issue_key", "file_path"]
		}`),
		jira("jira_upload_attachments",
			"Upload several local files to an issue; each file succeeds or fails independently.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"issue_key": {"type": "string"},
				"file_paths": {"type": "array", "items": {"type": "string"}, "minItems": 1}
			},
			"required": ["issue_key", "file_paths"]
		}`),
		jira("jira_create_issue_and_upload_file",
			"Create an issue, then attach a file to it.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"project_key": {"type": "string"},
				"summary": {"type": "string"},
				"description": {"type": "string"},
				"issue_type": {"type": "string"},
				"file_path": {"type": "string"}
			},
			"required": ["project_key", "summary", "file_path"]
		}`),
		jira("jira_upload_file_to_issue_or_create",
			"Upload a file to an existing issue, or create the issue in the project first when it doesn't exist.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"issue_key": {"type": "string", "description": "Target issue; when missing or not found, a new issue is created"},
				"project_key": {"type": "string", "description": "Project for the created issue"},
				"summary": {"type": "string", "description": "Summary for the created issue"},
				"file_path": {"type": "string"}
			},
			"required": ["project_key", "summary", "file_path"]
		}`),
		jira("jira_upload_and_ingest_file",
			"Upload a file to an issue and also hand it to the document processing service.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"issue_key": {"type": "string"},
				"file_path": {"type": "string"}
			},
			"required": ["issue_key", "file_path"]
		}`),
		jira("jira_create_issue_and_upload_and_ingest_file",
			"Create an issue, attach a file to it, and hand the file to the document processing service.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"project_key": {"type": "string"},
				"summary": {"type": "string"},
				"description": {"type": "string"},
				"issue_type": {"type": "string"},
				"file_path": {"type": "string"}
			},
			"required": ["project_key", "summary", "file_path"]
		}`),
		jira("jira_upload_and_ingest_file_to_issue_or_create",
			"Upload a file to an issue (creating the issue in the project when it doesn't exist) and hand the file to the document processing service.", `{
			"type": "object",
			"additionalProperties": false,
			"properties": {
				"client": {"type": "string"},
				"base_url": {"type": "string"},
				"issue_key": {"type": "string", "description": "Target issue; when missing or not found, a new issue is created"},
				"project_key": {"type": "string", "description": "Project for the created issue"},
				"summary": {"type": "string", "description": "Summary for the created issue"},
				"file_path": {"type": "string"}
			},
			"required": ["project_key", "summary", "file_path"]
		}`),

		{
			tool: mcp.Tool{
				Name:        "ingest_history",
				Description: "Show recent ingestion ledger entries (what was sent to the document processing service, and whether it succeeded).",
				InputSchema: json.RawMessage(`{
					"type": "object",
					"additionalProperties": false,
					"properties": {
						"limit": {"type": "integer", "description": "Max entries (default: 50)", "minimum": 1}
					}
				}`),
			},
			category: registry.CategoryIngest,
		},
	}
}
