package query

import (
	"strings"
	"testing"

	"github.com/golovatskygroup/mcp-atlas/internal/atlassian"
)

func TestBuildCQLEmptyFilterDefaults(t *testing.T) {
	cql, err := BuildCQL(ContentFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cql != `type = "page" ORDER BY created DESC` {
		t.Fatalf("unexpected default CQL: %s", cql)
	}
}

func TestBuildCQLOneTermPerOption(t *testing.T) {
	cql, err := BuildCQL(ContentFilter{
		SpaceKey:     "TEAM",
		ContentType:  "page",
		TitleSearch:  "roadmap",
		Author:       "alice",
		CreatedAfter: "2024-01-15",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := strings.Count(cql, " AND "); got != 4 {
		t.Fatalf("expected 4 AND joins for 5 options, got %d in %q", got, cql)
	}
	for _, want := range []string{
		`space = "TEAM"`,
		`type = "page"`,
		`title ~ "roadmap"`,
		`creator = "alice"`,
		`created >= "2024-01-15"`,
		"ORDER BY created DESC",
	} {
		if !strings.Contains(cql, want) {
			t.Fatalf("missing %q in %q", want, cql)
		}
	}
	if strings.Contains(cql, "lastModified") || strings.Contains(cql, "text ~") {
		t.Fatalf("unset options leaked into %q", cql)
	}
}

func TestBuildCQLDeterministic(t *testing.T) {
	f := ContentFilter{SpaceKey: "A", TextSearch: "x", ModifiedBefore: "2024-06-01"}
	a, err := BuildCQL(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := BuildCQL(f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("same filter produced %q then %q", a, b)
	}
}

func TestBuildCQLRejectsMalformedDate(t *testing.T) {
	_, err := BuildCQL(ContentFilter{CreatedAfter: "2024-13-40"})
	if err == nil {
		t.Fatal("expected error for impossible date")
	}
	if !atlassian.IsKind(err, atlassian.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = BuildCQL(ContentFilter{ModifiedAfter: "yesterday"})
	if !atlassian.IsKind(err, atlassian.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBuildCQLEscapesQuotes(t *testing.T) {
	cql, err := BuildCQL(ContentFilter{TitleSearch: `a" OR space = "SECRET`})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(cql, `"a" OR `) {
		t.Fatalf("quote was not escaped: %q", cql)
	}
	if !strings.Contains(cql, `\"`) {
		t.Fatalf("expected escaped quote in %q", cql)
	}
}

func TestBuildJQLEmptyFilterDefaults(t *testing.T) {
	jql, err := BuildJQL(IssueFilter{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if jql != "project is not EMPTY ORDER BY created DESC" {
		t.Fatalf("unexpected default JQL: %s", jql)
	}
}

func TestBuildJQLAttachmentsAndAssignee(t *testing.T) {
	yes := true
	jql, err := BuildJQL(IssueFilter{
		ProjectKey:     "OPS",
		Assignee:       "Unassigned",
		HasAttachments: &yes,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		`project = "OPS"`,
		"assignee is EMPTY",
		"attachments is not EMPTY",
	} {
		if !strings.Contains(jql, want) {
			t.Fatalf("missing %q in %q", want, jql)
		}
	}

	no := false
	jql, err = BuildJQL(IssueFilter{HasAttachments: &no})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(jql, "attachments is EMPTY") {
		t.Fatalf("missing negative attachments clause in %q", jql)
	}
}

func TestBuildJQLRejectsMalformedDate(t *testing.T) {
	_, err := BuildJQL(IssueFilter{UpdatedBefore: "2024-02-30"})
	if !atlassian.IsKind(err, atlassian.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
