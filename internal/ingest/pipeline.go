package ingest

import (
	"context"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/golovatskygroup/mcp-atlas/internal/attachment"
)

// ItemOutcome is the per-attachment record in a pipeline summary.
type ItemOutcome struct {
	AttachmentID string `json:"attachment_id"`
	Filename     string `json:"filename"`
	LocalPath    string `json:"local_path,omitempty"`
	Ingested     bool   `json:"ingested"`
	Cleaned      bool   `json:"cleaned"`
	Error        string `json:"error,omitempty"`
}

// Summary aggregates one pipeline run. Found counts PDFs selected for
// ingestion, before any download attempt.
type Summary struct {
	Found      int           `json:"found"`
	Downloaded int           `json:"downloaded"`
	Ingested   int           `json:"ingested"`
	Failed     int           `json:"failed"`
	Cleaned    int           `json:"cleaned"`
	Items      []ItemOutcome `json:"items"`
}

// Pipeline downloads PDF attachments and hands them to the processing
// service. Each item fails independently.
type Pipeline struct {
	Organizer *attachment.Organizer
	Download  *attachment.Downloader
	Processor Processor
	Ledger    *Ledger // optional; nil skips history
	Logger    *log.Logger

	// KeepFiles leaves successfully ingested files on disk instead of
	// cleaning them up.
	KeepFiles bool
}

// Run executes the pipeline for one batch of refs. Only PDFs are ingested;
// non-PDF refs are dropped up front. Local files are removed after a
// successful ingest only, so failures stay on disk for inspection.
func (p *Pipeline) Run(ctx context.Context, refs []attachment.Ref, source string) Summary {
	pdfs := make([]attachment.Ref, 0, len(refs))
	for _, r := range refs {
		if r.IsPDF() {
			pdfs = append(pdfs, r)
		}
	}

	sum := Summary{Found: len(pdfs), Items: make([]ItemOutcome, 0, len(pdfs))}
	if len(pdfs) == 0 {
		return sum
	}

	results := p.Download.DownloadAll(ctx, pdfs, func(r attachment.Ref) (string, error) {
		return p.Organizer.Resolve(r.Key, r.ContentTitle, r.Filename)
	})

	for i, res := range results {
		ref := pdfs[i]
		item := ItemOutcome{AttachmentID: res.AttachmentID, Filename: res.Filename}

		if res.Err != nil {
			item.Error = res.Err.Error()
			sum.Failed++
			sum.Items = append(sum.Items, item)
			p.logf("download failed", "attachment", ref.ID, "filename", ref.Filename, "err", res.Err)
			continue
		}
		item.LocalPath = res.LocalPath
		sum.Downloaded++

		rec := Record{
			Source:       source,
			Key:          ref.Key,
			ContentID:    ref.ContentID,
			ContentTitle: ref.ContentTitle,
			Filename:     res.Filename,
			MediaType:    ref.MediaType,
			SizeBytes:    res.Bytes,
		}

		err := p.Processor.Ingest(ctx, res.LocalPath, rec)
		p.appendLedger(ctx, rec, err)
		if err != nil {
			item.Error = err.Error()
			sum.Failed++
			sum.Items = append(sum.Items, item)
			p.logf("ingest failed", "attachment", ref.ID, "filename", ref.Filename, "err", err)
			continue
		}
		item.Ingested = true
		sum.Ingested++

		if !p.KeepFiles {
			if err := os.Remove(res.LocalPath); err == nil {
				item.Cleaned = true
				sum.Cleaned++
				pruneEmptyDirs(res.LocalPath, p.Organizer.BaseDir())
			} else {
				p.logf("cleanup failed", "path", res.LocalPath, "err", err)
			}
		}
		sum.Items = append(sum.Items, item)
	}
	return sum
}

func (p *Pipeline) appendLedger(ctx context.Context, rec Record, ingestErr error) {
	if p.Ledger == nil {
		return
	}
	e := Entry{
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
	if err := p.Ledger.Append(ctx, e); err != nil {
		p.logf("ledger append failed", "err", err)
	}
}

func (p *Pipeline) logf(msg string, kv ...any) {
	if p.Logger != nil {
		p.Logger.Warn(msg, kv...)
	}
}

// pruneEmptyDirs removes now-empty directories above the deleted file, up to
// but not including base. os.Remove refuses non-empty dirs, which ends the
// walk.
func pruneEmptyDirs(deletedFile, base string) {
	dir := filepath.Dir(deletedFile)
	for dir != base && len(dir) > len(base) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}
