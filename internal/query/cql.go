// Package query builds CQL and JQL strings from structured filters.
//
// Both builders are AND-only conjunctions with a fixed field order, so a
// given filter always produces the same string. Text values are escaped,
// dates are validated before any network call, and an empty filter yields
// the vendor's unconstrained-but-valid default query.
package query

import (
	"strings"
	"time"

	"github.com/golovatskygroup/mcp-atlas/internal/atlassian"
)

// ContentFilter selects Confluence content. Zero-valued fields are omitted
// from the conjunction.
type ContentFilter struct {
	SpaceKey       string `json:"space_key,omitempty"`
	ContentType    string `json:"content_type,omitempty"` // page, blogpost, comment, attachment
	TitleSearch    string `json:"title_search,omitempty"`
	TextSearch     string `json:"text_search,omitempty"`
	Author         string `json:"author,omitempty"`
	CreatedAfter   string `json:"created_after,omitempty"` // YYYY-MM-DD
	CreatedBefore  string `json:"created_before,omitempty"`
	ModifiedAfter  string `json:"modified_after,omitempty"`
	ModifiedBefore string `json:"modified_before,omitempty"`
}

// escapeText neutralizes quote characters inside a quoted CQL/JQL value so
// user text can't terminate the string and inject operators.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// validDate enforces ISO-8601 calendar dates. "2024-13-40" is a
// ValidationError, not a vendor 400.
func validDate(field, s string) error {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return atlassian.NewValidationError("%s must be a valid YYYY-MM-DD date, got %q", field, s)
	}
	return nil
}

func (f ContentFilter) validate() error {
	dates := []struct{ name, val string }{
		{"created_after", f.CreatedAfter},
		{"created_before", f.CreatedBefore},
		{"modified_after", f.ModifiedAfter},
		{"modified_before", f.ModifiedBefore},
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

// BuildCQL renders the filter as a CQL conjunction ordered newest-first.
// An empty filter matches every page the caller can see.
func BuildCQL(f ContentFilter) (string, error) {
	if err := f.validate(); err != nil {
		return "", err
	}

	var parts []string
	if f.SpaceKey != "" {
		parts = append(parts, `space = "`+escapeText(f.SpaceKey)+`"`)
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "page"
	}
	parts = append(parts, `type = "`+escapeText(contentType)+`"`)
	if f.TitleSearch != "" {
		parts = append(parts, `title ~ "`+escapeText(f.TitleSearch)+`"`)
	}
	if f.TextSearch != "" {
		parts = append(parts, `text ~ "`+escapeText(f.TextSearch)+`"`)
	}
	if f.Author != "" {
		parts = append(parts, `creator = "`+escapeText(f.Author)+`"`)
	}
	if f.CreatedAfter != "" {
		parts = append(parts, `created >= "`+f.CreatedAfter+`"`)
	}
	if f.CreatedBefore != "" {
		parts = append(parts, `created <= "`+f.CreatedBefore+`"`)
	}
	if f.ModifiedAfter != "" {
		parts = append(parts, `lastModified >= "`+f.ModifiedAfter+`"`)
	}
	if f.ModifiedBefore != "" {
		parts = append(parts, `lastModified <= "`+f.ModifiedBefore+`"`)
	}

	return strings.Join(parts, " AND ") + " ORDER BY created DESC", nil
}
