package query

import "strings"

// IssueFilter selects Jira issues. Zero-valued fields are omitted from the
// conjunction; HasAttachments is a tri-state.
type IssueFilter struct {
	ProjectKey     string `json:"project_key,omitempty"`
	IssueType      string `json:"issue_type,omitempty"`
	Status         string `json:"status,omitempty"`
	Assignee       string `json:"assignee,omitempty"` // "unassigned" selects empty assignee
	Priority       string `json:"priority,omitempty"`
	TextSearch     string `json:"text_search,omitempty"`
	HasAttachments *bool  `json:"has_attachments,omitempty"`
	CreatedAfter   string `json:"created_after,omitempty"` // YYYY-MM-DD
	CreatedBefore  string `json:"created_before,omitempty"`
	UpdatedAfter   string `json:"updated_after,omitempty"`
	UpdatedBefore  string `json:"updated_before,omitempty"`
}

func (f IssueFilter) validate() error {
	dates := []struct{ name, val string }{
		{"created_after", f.CreatedAfter},
		{"created_before", f.CreatedBefore},
		{"updated_after", f.UpdatedAfter},
		{"updated_before", f.UpdatedBefore},
	}
	for _, d := range dates {
		if d.val == "" {
			continue
		}
		if err := validDate(d.name, d.val); err != nil {
			return err
		}
	}
	return nil
}

// BuildJQL renders the filter as a JQL conjunction ordered newest-first.
// An empty filter yields a valid query matching every visible issue.
func BuildJQL(f IssueFilter) (string, error) {
	if err := f.validate(); err != nil {
		return "", err
	}

	var parts []string
	if f.ProjectKey != "" {
		parts = append(parts, `project = "`+escapeText(f.ProjectKey)+`"`)
	}
	if f.IssueType != "" {
		parts = append(parts, `issuetype = "`+escapeText(f.IssueType)+`"`)
	}
	if f.Status != "" {
		parts = append(parts, `status = "`+escapeText(f.Status)+`"`)
	}
	if f.Assignee != "" {
		if strings.EqualFold(f.Assignee, "unassigned") {
			parts = append(parts, "assignee is EMPTY")
		} else {
			parts = append(parts, `assignee = "`+escapeText(f.Assignee)+`"`)
		}
	}
	if f.Priority != "" {
		parts = append(parts, `priority = "`+escapeText(f.Priority)+`"`)
	}
	if f.HasAttachments != nil {
		if *f.HasAttachments {
			parts = append(parts, "attachments is not EMPTY")
		} else {
			parts = append(parts, "attachments is EMPTY")
		}
	}
	if f.TextSearch != "" {
		parts = append(parts, `text ~ "`+escapeText(f.TextSearch)+`"`)
	}
	if f.CreatedAfter != "" {
		parts = append(parts, `created >= "`+f.CreatedAfter+`"`)
	}
	if f.CreatedBefore != "" {
		parts = append(parts, `created <= "`+f.CreatedBefore+`"`)
	}
	if f.UpdatedAfter != "" {
		parts = append(parts, `updated >= "`+f.UpdatedAfter+`"`)
	}
	if f.UpdatedBefore != "" {
		parts = append(parts, `updated <= "`+f.UpdatedBefore+`"`)
	}

	jql := "project is not EMPTY"
	if len(parts) > 0 {
		jql = strings.Join(parts, " AND ")
	}
	return jql + " ORDER BY created DESC", nil
}
