// ABOUTME: Builds the hybrid MCP content envelope from raw tool results.
// ABOUTME: One text element whose payload serves narrative and list consumers.

package envelope

import (
	"encoding/json"
	"fmt"

	"github.com/loreweave/lore-gateway/internal/tools"
)

// Content is one element of an MCP tool result content array.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// stub is one citable entry of a list-shaped document.
type stub struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Source string `json:"source"`
}

// document is the JSON payload embedded in the content element. A single
// tool invocation has to satisfy both "read me this" consumers (text) and
// structured consumers (metadata, results), so both shapes live side by
// side rather than the tool author choosing one audience.
type document struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Source   string         `json:"source"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// listDocument extends document with the results array list-aware clients
// render as citations without parsing Text.
type listDocument struct {
	document
	Results []stub `json:"results"`
	Total   int    `json:"total"`
}

// maxSummaryLen bounds the plain-text summary stored in metadata.
const maxSummaryLen = 280

// Build converts a raw tool result into the MCP content array. The result
// is always a single text element; partial failure never reaches here, the
// dispatcher translates domain errors before envelope construction.
func Build(result *tools.Result) ([]Content, error) {
	doc := document{
		ID:       result.ID,
		Title:    result.Title,
		Text:     renderText(result),
		Source:   result.Source,
		Metadata: result.Metadata,
	}
	if result.Shape == tools.ShapeSingle && result.Markdown != "" {
		if doc.Metadata == nil {
			doc.Metadata = make(map[string]any)
		}
		doc.Metadata["summary"] = Snippet(result.Markdown, maxSummaryLen)
	}

	var payload any = doc
	if result.Shape == tools.ShapeList {
		stubs := make([]stub, len(result.Hits))
		for i, hit := range result.Hits {
			stubs[i] = stub{ID: hit.ID, Title: hit.Title, Source: hit.Source}
		}
		payload = listDocument{
			document: doc,
			Results:  stubs,
			Total:    result.Total,
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling envelope: %w", err)
	}

	return []Content{{Type: "text", Text: string(data)}}, nil
}

// renderText produces the human-readable markdown rendering of a result.
func renderText(result *tools.Result) string {
	if result.Title == "" {
		return result.Markdown
	}
	if result.Markdown == "" {
		return "# " + result.Title
	}
	return fmt.Sprintf("# %s\n\n%s", result.Title, result.Markdown)
}
