// Package registry indexes the tool catalog for listing, lookup and fuzzy
// discovery.
package registry

import (
	"sort"
	"strings"
	"sync"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/golovatskygroup/mcp-atlas/pkg/mcp"
)

// Categories used by the catalog.
const (
	CategoryConfluence = "confluence"
	CategoryJira       = "jira"
	CategoryIngest     = "ingest"
	CategoryMeta       = "meta"
)

type entry struct {
	tool     mcp.Tool
	category string
}

// Registry is a read-mostly index of registered tools. Registration happens
// at startup; lookups are concurrent.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
	order   []string
}

func New() *Registry {
	return &Registry{entries: map[string]entry{}}
}

// Register adds a tool under a category. Re-registering a name replaces the
// previous definition but keeps its position.
func (r *Registry) Register(tool mcp.Tool, category string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[tool.Name]; !exists {
		r.order = append(r.order, tool.Name)
	}
	r.entries[tool.Name] = entry{tool: tool, category: category}
}

// Get returns a tool definition and its category by exact name.
func (r *Registry) Get(name string) (mcp.Tool, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[name]
	return e.tool, e.category, ok
}

// List returns all tools in registration order, optionally filtered by
// category.
func (r *Registry) List(category string) []mcp.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]mcp.Tool, 0, len(r.order))
	for _, name := range r.order {
		e := r.entries[name]
		if category != "" && e.category != category {
			continue
		}
		out = append(out, e.tool)
	}
	return out
}

// Categories returns the distinct categories in use, sorted.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := map[string]bool{}
	for _, e := range r.entries {
		seen[e.category] = true
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Match is one search hit; lower Rank is a closer match.
type Match struct {
	Tool     mcp.Tool
	Category string
	Rank     int
}

// Search fuzzy-matches query against tool names and descriptions. Name hits
// rank ahead of description hits; ties break on registration order.
func (r *Registry) Search(query, category string, limit int) []Match {
	r.mu.RLock()
	defer r.mu.RUnlock()

	query = strings.TrimSpace(query)
	var matches []Match
	for i, name := range r.order {
		e := r.entries[name]
		if category != "" && e.category != category {
			continue
		}
		if query == "" {
			matches = append(matches, Match{Tool: e.tool, Category: e.category, Rank: i})
			continue
		}
		rank := fuzzy.RankMatchNormalizedFold(query, e.tool.Name)
		if rank < 0 {
			if dr := fuzzy.RankMatchNormalizedFold(query, e.tool.Description); dr >= 0 {
				// Description matches sort after every name match.
				rank = dr + 1000
			}
		}
		if rank < 0 {
			continue
		}
		matches = append(matches, Match{Tool: e.tool, Category: e.category, Rank: rank})
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Rank < matches[j].Rank })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}
