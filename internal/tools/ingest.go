package tools

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/golovatskygroup/mcp-atlas/internal/atlassian"
	"github.com/golovatskygroup/mcp-atlas/internal/attachment"
	"github.com/golovatskygroup/mcp-atlas/internal/ingest"
	"github.com/golovatskygroup/mcp-atlas/pkg/mcp"
)

func isNotFound(err error) bool {
	return atlassian.IsKind(err, atlassian.KindNotFound)
}

// runIngestPipeline wires the download/ingest pipeline for one batch of
// refs and renders its summary. The ledger is best-effort: a broken ledger
// doesn't block ingestion.
func (h *Handler) runIngestPipeline(ctx context.Context, refs []attachment.Ref, fetch attachment.Fetcher, baseDir string, keepFiles bool, source string) (*mcp.CallToolResult, error) {
	proc, err := h.processorFor()
	if err != nil {
		return errorResult(err.Error()), nil
	}
	org, err := attachment.NewOrganizer(downloadDir(baseDir))
	if err != nil {
		return errorResult(err.Error()), nil
	}

	ledger, err := h.ledgerFor()
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("ingestion ledger unavailable", "err", err)
		}
		ledger = nil
	}
	if ledger != nil {
		defer ledger.Close()
	}

	p := &ingest.Pipeline{
		Organizer: org,
		Download:  &attachment.Downloader{Fetch: fetch},
		Processor: proc,
		Ledger:    ledger,
		Logger:    h.logger,
		KeepFiles: keepFiles,
	}
	sum := p.Run(ctx, refs, source)
	return jsonResult(sum), nil
}

// ingestTarget is the provenance for a direct (non-pipeline) ingest after an
// upload.
type ingestTarget struct {
	source       string
	key          string
	contentID    string
	contentTitle string
}

// uploadThenIngest runs the upload, then hands the same local file to the
// processing service. The upload outcome and the ingest outcome are
// reported separately: an upload that lands but fails to ingest is not
// rolled back.
func (h *Handler) uploadThenIngest(ctx context.Context, upload func() (string, error), filePath string, target ingestTarget) (*mcp.CallToolResult, error) {
	attachmentID, err := upload()
	if err != nil {
		return apiErrorResult(err), nil
	}

	out := map[string]any{
		"attachment_id": attachmentID,
		"content_id":    target.contentID,
		"uploaded":      true,
		"ingested":      false,
	}

	proc, err := h.processorFor()
	if err != nil {
		out["ingest_error"] = err.Error()
		return jsonResult(out), nil
	}

	var size int64
	if fi, err := os.Stat(filePath); err == nil {
		size = fi.Size()
	}
	rec := ingest.Record{
		Source:       target.source,
		Key:          target.key,
		ContentID:    target.contentID,
		ContentTitle: target.contentTitle,
		Filename:     filepath.Base(filePath),
		SizeBytes:    size,
	}
	ingestErr := proc.Ingest(ctx, filePath, rec)
	h.appendLedgerEntry(ctx, rec, ingestErr)
	if ingestErr != nil {
		out["ingest_error"] = ingestErr.Error()
		return jsonResult(out), nil
	}
	out["ingested"] = true
	return jsonResult(out), nil
}

func (h *Handler) appendLedgerEntry(ctx context.Context, rec ingest.Record, ingestErr error) {
	ledger, err := h.ledgerFor()
	if err != nil {
		return
	}
	defer ledger.Close()

	e := ingest.Entry{
		Source:       rec.Source,
		Key:          rec.Key,
		ContentID:    rec.ContentID,
		ContentTitle: rec.ContentTitle,
		Filename:     rec.Filename,
		SizeBytes:    rec.SizeBytes,
		Status:       "ingested",
	}
	if ingestErr != nil {
		e.Status = "failed"
		e.Error = ingestErr.Error()
	}
	if err := ledger.Append(ctx, e); err != nil && h.logger != nil {
		h.logger.Warn("ledger append failed", "err", err)
	}
}

type ingestHistoryInput struct {
	Limit int `json:"limit,omitempty"`
}

func (h *Handler) ingestHistory(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
	var input ingestHistoryInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	ledger, err := h.ledgerFor()
	if err != nil {
		return errorResult("ingestion ledger unavailable: " + err.Error()), nil
	}
	defer ledger.Close()

	entries, err := ledger.Recent(ctx, input.Limit)
	if err != nil {
		return errorResult(err.Error()), nil
	}
	return jsonResult(map[string]any{"count": len(entries), "entries": entries}), nil
}
