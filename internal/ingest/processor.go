// Package ingest bridges downloaded attachments into the external document
// processing service and keeps a local ledger of what was sent.
package ingest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/golovatskygroup/mcp-atlas/internal/atlassian"
)

// Record is the provenance metadata shipped alongside each document.
type Record struct {
	Source       string `json:"source"` // "confluence" or "jira"
	Key          string `json:"key"`
	ContentID    string `json:"content_id"`
	ContentTitle string `json:"content_title,omitempty"`
	Filename     string `json:"filename"`
	MediaType    string `json:"media_type,omitempty"`
	SizeBytes    int64  `json:"size_bytes,omitempty"`
}

// Processor hands one local file to the document processing service.
type Processor interface {
	Ingest(ctx context.Context, localPath string, rec Record) error
}

// HTTPProcessor posts files to the processing service's upload endpoint as
// multipart/form-data with a JSON metadata field.
type HTTPProcessor struct {
	url    string
	token  string
	client *http.Client
}

// NewHTTPProcessor builds a processor for an explicit endpoint.
func NewHTTPProcessor(url, token string) *HTTPProcessor {
	return &HTTPProcessor{
		url:    strings.TrimRight(url, "/"),
		token:  token,
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

// NewHTTPProcessorFromEnv reads INGEST_API_URL (required) and
// INGEST_API_TOKEN (optional bearer token).
func NewHTTPProcessorFromEnv() (*HTTPProcessor, error) {
	url := strings.TrimSpace(os.Getenv("INGEST_API_URL"))
	if url == "" {
		return nil, atlassian.NewValidationError("ingestion is not configured: set INGEST_API_URL")
	}
	return NewHTTPProcessor(url, strings.TrimSpace(os.Getenv("INGEST_API_TOKEN"))), nil
}

func (p *HTTPProcessor) Ingest(ctx context.Context, localPath string, rec Record) error {
	f, err := os.Open(localPath)
	if err != nil {
		return atlassian.NewIngestionError(fmt.Sprintf("open %s", localPath), err)
	}
	defer f.Close()

	if rec.Filename == "" {
		rec.Filename = filepath.Base(localPath)
	}

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", rec.Filename)
	if err != nil {
		return atlassian.NewIngestionError("build upload body", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return atlassian.NewIngestionError(fmt.Sprintf("read %s", localPath), err)
	}
	meta, err := json.Marshal(rec)
	if err != nil {
		return atlassian.NewIngestionError("encode metadata", err)
	}
	if err := w.WriteField("metadata", string(meta)); err != nil {
		return atlassian.NewIngestionError("build upload body", err)
	}
	if err := w.Close(); err != nil {
		return atlassian.NewIngestionError("build upload body", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, &buf)
	if err != nil {
		return atlassian.NewIngestionError("build upload request", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if p.token != "" {
		req.Header.Set("Authorization", "Bearer "+p.token)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return atlassian.NewIngestionError("processing service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		return atlassian.NewIngestionError(
			fmt.Sprintf("processing service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b))), nil)
	}
	return nil
}
