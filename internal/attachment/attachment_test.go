package attachment

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestFilterByTypeCaseInsensitive(t *testing.T) {
	refs := []Ref{
		{ID: "1", Filename: "report.pdf"},
		{ID: "2", Filename: "notes.docx"},
		{ID: "3", Filename: "SCAN.PDF"},
	}

	got := FilterByType(refs, []string{"pdf"})
	if len(got) != 2 {
		t.Fatalf("expected 2 PDFs, got %d", len(got))
	}
	if got[0].ID != "1" || got[1].ID != "3" {
		t.Fatalf("unexpected selection: %+v", got)
	}
}

func TestFilterByTypeMatchesMediaType(t *testing.T) {
	refs := []Ref{
		{ID: "1", Filename: "blob", MediaType: "application/pdf"},
		{ID: "2", Filename: "blob2", MediaType: "image/png"},
	}
	got := FilterByType(refs, []string{"pdf"})
	if len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("expected media-type match, got %+v", got)
	}
}

func TestFilterByTypeEmptyAllowedPassesThrough(t *testing.T) {
	refs := []Ref{{ID: "1", Filename: "a.pdf"}, {ID: "2", Filename: "b.docx"}}
	if got := FilterByType(refs, nil); len(got) != 2 {
		t.Fatalf("expected pass-through, got %d", len(got))
	}
	if got := FilterByType(refs, []string{" ", ""}); len(got) != 2 {
		t.Fatalf("expected pass-through for blank types, got %d", len(got))
	}
}

func TestSanitizeComponent(t *testing.T) {
	cases := map[string]string{
		"Q1/Report":        "Q1_Report",
		`back\slash`:       "back_slash",
		"plain title":      "plain title",
		"dots...":          "dots",
		"":                 "untitled",
		"///":              "_",
		"a//b":             "a_b",
		"a/\t/b":           "a_b",
		"tab\there":        "tab_here",
		strings.Repeat("x", 80): strings.Repeat("x", 50),
	}
	for in, want := range cases {
		if got := SanitizeComponent(in); got != want {
			t.Errorf("SanitizeComponent(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOrganizerResolveNeutralizesTitleSeparator(t *testing.T) {
	base := t.TempDir()
	o, err := NewOrganizer(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path, err := o.Resolve("TEAM", "Q1/Report", "file.pdf")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := filepath.Join(base, "TEAM", "Q1_Report", "file.pdf")
	if path != want {
		t.Fatalf("got %q, want %q", path, want)
	}

	// The parent exists, and a second call is idempotent.
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		t.Fatalf("parent dir missing: %v", err)
	}
	if _, err := o.Resolve("TEAM", "Q1/Report", "file.pdf"); err != nil {
		t.Fatalf("second resolve failed: %v", err)
	}
}

func TestDownloadAllIsolatesFailures(t *testing.T) {
	base := t.TempDir()
	o, err := NewOrganizer(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	refs := []Ref{
		{ID: "a1", Filename: "one.pdf", DownloadURL: "u1", Key: "TEAM", ContentTitle: "Page"},
		{ID: "a2", Filename: "two.pdf", DownloadURL: "u2", Key: "TEAM", ContentTitle: "Page"},
		{ID: "a3", Filename: "three.pdf", DownloadURL: "u3", Key: "TEAM", ContentTitle: "Page"},
	}

	boom := errors.New("connection reset")
	d := &Downloader{
		Workers: 2,
		Fetch: func(_ context.Context, ref Ref) (io.ReadCloser, error) {
			if ref.ID == "a2" {
				return nil, boom
			}
			return io.NopCloser(strings.NewReader("content-of-" + ref.ID)), nil
		},
	}

	results := d.DownloadAll(context.Background(), refs, func(r Ref) (string, error) {
		return o.Resolve(r.Key, r.ContentTitle, r.Filename)
	})

	if len(results) != len(refs) {
		t.Fatalf("expected %d results, got %d", len(refs), len(results))
	}

	var failed int
	for i, res := range results {
		if res.AttachmentID != refs[i].ID {
			t.Fatalf("result order not preserved: got %s at %d", res.AttachmentID, i)
		}
		if res.Err != nil {
			failed++
			if res.AttachmentID != "a2" {
				t.Fatalf("wrong item failed: %s", res.AttachmentID)
			}
			if res.LocalPath != "" {
				t.Fatalf("failed item has a local path: %q", res.LocalPath)
			}
			continue
		}
		if _, err := os.Stat(res.LocalPath); err != nil {
			t.Fatalf("downloaded file missing at %s: %v", res.LocalPath, err)
		}
		if res.Bytes == 0 {
			t.Fatalf("zero bytes recorded for %s", res.AttachmentID)
		}
	}
	if failed != 1 {
		t.Fatalf("expected exactly one failure, got %d", failed)
	}
}

func TestDownloadAllSuffixesCollidingFilenames(t *testing.T) {
	base := t.TempDir()
	o, err := NewOrganizer(base)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same filename under the same content title: second gets _1.
	refs := []Ref{
		{ID: "a1", Filename: "report.pdf", DownloadURL: "u1", Key: "TEAM", ContentTitle: "Page"},
		{ID: "a2", Filename: "report.pdf", DownloadURL: "u2", Key: "TEAM", ContentTitle: "Page"},
	}

	d := &Downloader{
		Workers: 1,
		Fetch: func(_ context.Context, ref Ref) (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(ref.ID)), nil
		},
	}

	results := d.DownloadAll(context.Background(), refs, func(r Ref) (string, error) {
		return o.Resolve(r.Key, r.ContentTitle, r.Filename)
	})

	paths := map[string]bool{}
	for _, res := range results {
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
		if paths[res.LocalPath] {
			t.Fatalf("duplicate local path %q", res.LocalPath)
		}
		paths[res.LocalPath] = true
	}
	if !paths[filepath.Join(base, "TEAM", "Page", "report.pdf")] ||
		!paths[filepath.Join(base, "TEAM", "Page", "report_1.pdf")] {
		t.Fatalf("unexpected paths: %v", paths)
	}
}
