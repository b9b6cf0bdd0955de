package confluence

// REST v1 response shapes, trimmed to the fields the tools surface.

type Links struct {
	WebUI    string `json:"webui,omitempty"`
	Download string `json:"download,omitempty"`
	Next     string `json:"next,omitempty"`
	Base     string `json:"base,omitempty"`
}

type User struct {
	DisplayName string `json:"displayName,omitempty"`
}

type Version struct {
	Number int    `json:"number,omitempty"`
	When   string `json:"when,omitempty"`
	By     User   `json:"by,omitempty"`
}

type History struct {
	CreatedDate string `json:"createdDate,omitempty"`
	CreatedBy   User   `json:"createdBy,omitempty"`
}

type Space struct {
	ID     int64  `json:"id,omitempty"`
	Key    string `json:"key"`
	Name   string `json:"name,omitempty"`
	Type   string `json:"type,omitempty"`
	Status string `json:"status,omitempty"`
	Links  Links  `json:"_links,omitempty"`
}

type SpaceList struct {
	Results []Space `json:"results"`
	Start   int     `json:"start"`
	Limit   int     `json:"limit"`
	Size    int     `json:"size"`
	Links   Links   `json:"_links,omitempty"`
}

type BodyRepresentation struct {
	Value          string `json:"value,omitempty"`
	Representation string `json:"representation,omitempty"`
}

type Body struct {
	Storage *BodyRepresentation `json:"storage,omitempty"`
	View    *BodyRepresentation `json:"view,omitempty"`
}

// Content is a page, blog post or attachment record.
type Content struct {
	ID      string   `json:"id"`
	Type    string   `json:"type,omitempty"`
	Status  string   `json:"status,omitempty"`
	Title   string   `json:"title"`
	Space   *Space   `json:"space,omitempty"`
	Version *Version `json:"version,omitempty"`
	History *History `json:"history,omitempty"`
	Body    *Body    `json:"body,omitempty"`
	Links   Links    `json:"_links,omitempty"`
}

// BodyValue returns the storage body if present, falling back to view.
func (c Content) BodyValue() string {
	if c.Body == nil {
		return ""
	}
	if c.Body.Storage != nil && c.Body.Storage.Value != "" {
		return c.Body.Storage.Value
	}
	if c.Body.View != nil {
		return c.Body.View.Value
	}
	return ""
}

// CreatedBy returns the original author's display name when expanded.
func (c Content) CreatedBy() string {
	if c.History != nil && c.History.CreatedBy.DisplayName != "" {
		return c.History.CreatedBy.DisplayName
	}
	if c.Version != nil {
		return c.Version.By.DisplayName
	}
	return ""
}

// CreatedDate returns the creation timestamp when expanded.
func (c Content) CreatedDate() string {
	if c.History != nil && c.History.CreatedDate != "" {
		return c.History.CreatedDate
	}
	if c.Version != nil {
		return c.Version.When
	}
	return ""
}

type ContentList struct {
	Results []Content `json:"results"`
	Start   int       `json:"start"`
	Limit   int       `json:"limit"`
	Size    int       `json:"size"`
	Links   Links     `json:"_links,omitempty"`
}

type AttachmentExtensions struct {
	MediaType string `json:"mediaType,omitempty"`
	FileSize  int64  `json:"fileSize,omitempty"`
	Comment   string `json:"comment,omitempty"`
}

// Attachment is the child-attachment record; the title is the filename.
type Attachment struct {
	ID         string               `json:"id"`
	Title      string               `json:"title"`
	Extensions AttachmentExtensions `json:"extensions,omitempty"`
	Version    *Version             `json:"version,omitempty"`
	Links      Links                `json:"_links,omitempty"`
}

type AttachmentList struct {
	Results []Attachment `json:"results"`
	Start   int          `json:"start"`
	Limit   int          `json:"limit"`
	Size    int          `json:"size"`
	Links   Links        `json:"_links,omitempty"`
}
