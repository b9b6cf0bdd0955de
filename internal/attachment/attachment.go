// Package attachment handles attachment metadata filtering, local path
// layout and batch downloading for both vendors.
package attachment

import (
	"path/filepath"
	"strings"
)

// Ref is attachment metadata as reported by the vendor; no bytes have been
// fetched yet. A Ref belongs to exactly one content item (page or issue),
// which belongs to exactly one space or project.
type Ref struct {
	ID           string `json:"id"`
	Filename     string `json:"filename"`
	MediaType    string `json:"media_type,omitempty"`
	Size         int64  `json:"size_bytes"`
	DownloadURL  string `json:"download_url"`
	ContentID    string `json:"content_id"`
	ContentTitle string `json:"content_title,omitempty"`
	Key          string `json:"key"` // space or project key
	Author       string `json:"author,omitempty"`
	Created      string `json:"created,omitempty"`
}

// Ext returns the lowercased filename extension without the dot.
func (r Ref) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(r.Filename)), ".")
}

// IsPDF reports whether the attachment is a PDF by extension or declared
// media type. The declared type is trusted; there is no content sniffing.
func (r Ref) IsPDF() bool {
	return r.Ext() == "pdf" || strings.EqualFold(r.MediaType, "application/pdf")
}

// FilterByType keeps attachments whose extension or declared MIME type
// matches one of allowed (case-insensitive). Empty allowed means no
// filtering.
func FilterByType(refs []Ref, allowed []string) []Ref {
	if len(allowed) == 0 {
		return refs
	}
	norm := make([]string, 0, len(allowed))
	for _, t := range allowed {
		t = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(t, ".")))
		if t != "" {
			norm = append(norm, t)
		}
	}
	if len(norm) == 0 {
		return refs
	}

	var out []Ref
	for _, r := range refs {
		ext := r.Ext()
		media := strings.ToLower(r.MediaType)
		for _, t := range norm {
			if ext == t || media == t || strings.HasSuffix(media, "/"+t) {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
