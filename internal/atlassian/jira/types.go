package jira

import "strings"

// REST v2 response shapes, trimmed to the fields the tools surface.

type User struct {
	DisplayName  string `json:"displayName,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

type Project struct {
	ID             string `json:"id,omitempty"`
	Key            string `json:"key"`
	Name           string `json:"name,omitempty"`
	ProjectTypeKey string `json:"projectTypeKey,omitempty"`
	Lead           *User  `json:"lead,omitempty"`
	Description    string `json:"description,omitempty"`
}

type NamedField struct {
	Name string `json:"name,omitempty"`
}

// IssueAttachment is the attachment record embedded in issue fields; the
// content URL is the direct download link.
type IssueAttachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType,omitempty"`
	Size     int64  `json:"size,omitempty"`
	Content  string `json:"content,omitempty"`
	Author   *User  `json:"author,omitempty"`
	Created  string `json:"created,omitempty"`
}

type IssueFields struct {
	Summary     string            `json:"summary,omitempty"`
	Description string            `json:"description,omitempty"`
	Status      *NamedField       `json:"status,omitempty"`
	IssueType   *NamedField       `json:"issuetype,omitempty"`
	Priority    *NamedField       `json:"priority,omitempty"`
	Assignee    *User             `json:"assignee,omitempty"`
	Reporter    *User             `json:"reporter,omitempty"`
	Created     string            `json:"created,omitempty"`
	Updated     string            `json:"updated,omitempty"`
	Project     *Project          `json:"project,omitempty"`
	Attachment  []IssueAttachment `json:"attachment,omitempty"`
}

type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// ProjectKey returns the issue's project key, derived from the key prefix
// when the project field is not expanded.
func (i Issue) ProjectKey() string {
	if i.Fields.Project != nil && i.Fields.Project.Key != "" {
		return i.Fields.Project.Key
	}
	if idx := strings.IndexByte(i.Key, '-'); idx > 0 {
		return i.Key[:idx]
	}
	return ""
}

type SearchResult struct {
	StartAt    int     `json:"startAt"`
	MaxResults int     `json:"maxResults"`
	Total      int     `json:"total"`
	Issues     []Issue `json:"issues"`
}
