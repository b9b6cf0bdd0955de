package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/golovatskygroup/mcp-atlas/pkg/mcp"
)

func seeded() *Registry {
	r := New()
	r.Register(mcp.Tool{Name: "confluence_search_content", Description: "Search Confluence content with filters"}, CategoryConfluence)
	r.Register(mcp.Tool{Name: "confluence_list_spaces", Description: "List Confluence spaces"}, CategoryConfluence)
	r.Register(mcp.Tool{Name: "jira_search_issues", Description: "Search Jira issues with filters"}, CategoryJira)
	r.Register(mcp.Tool{Name: "ingest_history", Description: "Show recent ingestion ledger entries"}, CategoryIngest)
	return r
}

func TestListFiltersByCategory(t *testing.T) {
	r := seeded()
	assert.Len(t, r.List(""), 4)

	jira := r.List(CategoryJira)
	require.Len(t, jira, 1)
	assert.Equal(t, "jira_search_issues", jira[0].Name)
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	r := seeded()
	all := r.List("")
	assert.Equal(t, "confluence_search_content", all[0].Name)
	assert.Equal(t, "ingest_history", all[3].Name)
}

func TestGet(t *testing.T) {
	r := seeded()
	tool, cat, ok := r.Get("ingest_history")
	require.True(t, ok)
	assert.Equal(t, CategoryIngest, cat)
	assert.Equal(t, "ingest_history", tool.Name)

	_, _, ok = r.Get("nope")
	assert.False(t, ok)
}

func TestSearchPrefersNameMatches(t *testing.T) {
	r := seeded()
	got := r.Search("search", "", 10)
	require.NotEmpty(t, got)
	// Both search tools match by name and outrank any description hit.
	names := []string{got[0].Tool.Name, got[1].Tool.Name}
	assert.Contains(t, names, "confluence_search_content")
	assert.Contains(t, names, "jira_search_issues")
}

func TestSearchScopesToCategory(t *testing.T) {
	r := seeded()
	got := r.Search("search", CategoryJira, 10)
	require.Len(t, got, 1)
	assert.Equal(t, "jira_search_issues", got[0].Tool.Name)
}

func TestSearchEmptyQueryListsAll(t *testing.T) {
	r := seeded()
	got := r.Search("", "", 2)
	assert.Len(t, got, 2)
}

func TestCategories(t *testing.T) {
	r := seeded()
	assert.Equal(t, []string{CategoryConfluence, CategoryIngest, CategoryJira}, r.Categories())
}
