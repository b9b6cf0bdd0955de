package tools

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/golovatskygroup/mcp-atlas/pkg/mcp"
)

type searchToolsInput struct {
	Query    string `json:"query"`
	Category string `json:"category,omitempty"`
	Limit    int    `json:"limit,omitempty"`
}

type describeToolInput struct {
	Name string `json:"name"`
}

func (h *Handler) searchTools(args json.RawMessage) (*mcp.CallToolResult, error) {
	var input searchToolsInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}
	if input.Limit <= 0 {
		input.Limit = 10
	}

	matches := h.registry.Search(input.Query, input.Category, input.Limit)

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d tools matching '%s':\n\n", len(matches), input.Query)
	for i, m := range matches {
		fmt.Fprintf(&sb, "%d. **%s** [%s]\n   %s\n\n", i+1, m.Tool.Name, m.Category, m.Tool.Description)
	}
	if len(matches) == 0 {
		sb.WriteString("No tools found. Try a different query or browse categories:\n")
		for _, cat := range h.registry.Categories() {
			fmt.Fprintf(&sb, "- %s\n", cat)
		}
	}
	return textResult(sb.String()), nil
}

func (h *Handler) describeTool(args json.RawMessage) (*mcp.CallToolResult, error) {
	var input describeToolInput
	if err := json.Unmarshal(args, &input); err != nil {
		return errorResult("invalid input: " + err.Error()), nil
	}

	tool, category, ok := h.registry.Get(input.Name)
	if !ok {
		return errorResult(fmt.Sprintf("Tool '%s' not found. Use search_tools to find available tools.", input.Name)), nil
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## %s [%s]\n\n", tool.Name, category)
	fmt.Fprintf(&sb, "**Description:** %s\n\n", tool.Description)
	sb.WriteString("**Input Schema:**\n```json\n")

	var prettySchema map[string]any
	_ = json.Unmarshal(tool.InputSchema, &prettySchema)
	schemaBytes, _ := json.MarshalIndent(prettySchema, "", "  ")
	sb.Write(schemaBytes)
	sb.WriteString("\n```\n")

	return textResult(sb.String()), nil
}
