// ABOUTME: Baseline card tools backed by the upstream archive client.
// ABOUTME: Translates archive errors to stable domain errors for dispatch.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/loreweave/lore-gateway/internal/archive"
)

// Source identifies the archive as the origin of card results.
const Source = "lore-archive"

// defaultSearchLimit caps search results when the caller does not set one.
const defaultSearchLimit = 20

// CardTools builds the baseline tool set backed by the archive client.
// Registration order here is the order tools/list reports.
func CardTools(client *archive.Client) []*Descriptor {
	h := &cardHandlers{client: client}
	return []*Descriptor{
		{
			Name: "get_card",
			Description: "Retrieve a single card by its id. The result embeds the full " +
				"markdown content under 'text' and structural fields (type, tags, " +
				"timestamps) under 'metadata'. Fails with a not-found error if the id " +
				"does not exist; use search_cards first when you only know the title.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"string","description":"Card identifier"}},"required":["id"]}`),
			Handler:     h.Get,
		},
		{
			Name: "search_cards",
			Description: "Full-text search over cards. Returns a 'results' array of " +
				"{id, title, source} stubs plus a 'total' count; each stub's id can be " +
				"passed to get_card. An empty results array means no matches, not an " +
				"error. 'total' may exceed the number of returned results when the " +
				"limit truncates the hit list.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"query":{"type":"string","description":"Search terms"},"limit":{"type":"integer","minimum":1,"maximum":100,"description":"Maximum hits to return (default 20)"}},"required":["query"]}`),
			Handler:     h.Search,
		},
		{
			Name: "create_card",
			Description: "Create a new card. 'content' is markdown. Returns the created " +
				"card including its server-assigned id; keep that id for follow-up " +
				"update_card or add_tag calls. Tags must already satisfy the archive's " +
				"tag rules or the call fails with a validation error.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"title":{"type":"string"},"content":{"type":"string","description":"Markdown body"},"type":{"type":"string","description":"Card type, archive-defined"},"tags":{"type":"array","items":{"type":"string"}}},"required":["title","content"]}`),
			Handler:     h.Create,
		},
		{
			Name: "update_card",
			Description: "Partially update an existing card. Only the fields provided " +
				"are changed; omitted fields keep their current values. Passing 'tags' " +
				"replaces the whole tag list — use add_tag to append a single tag. " +
				"Fails with a not-found error for unknown ids.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"},"title":{"type":"string"},"content":{"type":"string","description":"Markdown body"},"tags":{"type":"array","items":{"type":"string"}}},"required":["id"]}`),
			Handler:     h.Update,
		},
		{
			Name: "add_tag",
			Description: "Append one tag to a card, leaving existing tags in place. " +
				"Adding a tag the card already has is a no-op, not an error. Returns " +
				"the updated card.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{"id":{"type":"string"},"tag":{"type":"string"}},"required":["id","tag"]}`),
			Handler:     h.AddTag,
		},
		{
			Name: "health_check",
			Description: "Check that the gateway can reach the upstream archive. " +
				"Returns a status payload; a failure here means card tools will also " +
				"fail and the client should back off.",
			InputSchema: json.RawMessage(`{"type":"object","properties":{}}`),
			Handler:     h.Health,
		},
	}
}

type cardHandlers struct {
	client *archive.Client
}

type getCardInput struct {
	ID string `json:"id"`
}

func (h *cardHandlers) Get(ctx context.Context, args json.RawMessage) (*Result, error) {
	var in getCardInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, Errorf(CodeInvalidInput, "invalid arguments: %v", err)
	}

	card, err := h.client.GetCard(ctx, in.ID)
	if err != nil {
		return nil, translateArchiveError(err, fmt.Sprintf("card '%s'", in.ID))
	}
	return cardResult(card), nil
}

type searchInput struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (h *cardHandlers) Search(ctx context.Context, args json.RawMessage) (*Result, error) {
	var in searchInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, Errorf(CodeInvalidInput, "invalid arguments: %v", err)
	}
	limit := in.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	result, err := h.client.SearchCards(ctx, in.Query, limit)
	if err != nil {
		return nil, translateArchiveError(err, "search")
	}

	hits := make([]Hit, len(result.Cards))
	var body string
	for i, card := range result.Cards {
		hits[i] = Hit{ID: card.ID, Title: card.Title, Source: Source}
		body += fmt.Sprintf("- **%s** (`%s`)\n", card.Title, card.ID)
	}

	return &Result{
		Shape:    ShapeList,
		ID:       "search:" + in.Query,
		Title:    fmt.Sprintf("Search results for %q", in.Query),
		Markdown: body,
		Source:   Source,
		Metadata: map[string]any{"query": in.Query, "limit": limit},
		Hits:     hits,
		Total:    result.Total,
	}, nil
}

type createInput struct {
	Title   string   `json:"title"`
	Content string   `json:"content"`
	Type    string   `json:"type"`
	Tags    []string `json:"tags"`
}

func (h *cardHandlers) Create(ctx context.Context, args json.RawMessage) (*Result, error) {
	var in createInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, Errorf(CodeInvalidInput, "invalid arguments: %v", err)
	}

	card, err := h.client.CreateCard(ctx, &archive.CardDraft{
		Title:   in.Title,
		Content: in.Content,
		Type:    in.Type,
		Tags:    in.Tags,
	})
	if err != nil {
		return nil, translateArchiveError(err, "create card")
	}
	return cardResult(card), nil
}

type updateInput struct {
	ID      string    `json:"id"`
	Title   *string   `json:"title"`
	Content *string   `json:"content"`
	Tags    *[]string `json:"tags"`
}

func (h *cardHandlers) Update(ctx context.Context, args json.RawMessage) (*Result, error) {
	var in updateInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, Errorf(CodeInvalidInput, "invalid arguments: %v", err)
	}
	if in.Title == nil && in.Content == nil && in.Tags == nil {
		return nil, Errorf(CodeInvalidInput, "update_card requires at least one of title, content, or tags")
	}

	card, err := h.client.UpdateCard(ctx, in.ID, &archive.CardPatch{
		Title:   in.Title,
		Content: in.Content,
		Tags:    in.Tags,
	})
	if err != nil {
		return nil, translateArchiveError(err, fmt.Sprintf("card '%s'", in.ID))
	}
	return cardResult(card), nil
}

type addTagInput struct {
	ID  string `json:"id"`
	Tag string `json:"tag"`
}

func (h *cardHandlers) AddTag(ctx context.Context, args json.RawMessage) (*Result, error) {
	var in addTagInput
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, Errorf(CodeInvalidInput, "invalid arguments: %v", err)
	}

	card, err := h.client.AddTag(ctx, in.ID, in.Tag)
	if err != nil {
		return nil, translateArchiveError(err, fmt.Sprintf("card '%s'", in.ID))
	}
	return cardResult(card), nil
}

func (h *cardHandlers) Health(ctx context.Context, _ json.RawMessage) (*Result, error) {
	status, err := h.client.Health(ctx)
	if err != nil {
		return nil, translateArchiveError(err, "health check")
	}

	return &Result{
		Shape:    ShapeStatus,
		ID:       "health",
		Title:    "Archive health",
		Markdown: fmt.Sprintf("Archive is **%s**.", status.Status),
		Source:   Source,
		Metadata: map[string]any{"status": status.Status, "upstream_version": status.Version},
	}, nil
}

// cardResult converts one card into a single-shaped result.
func cardResult(card *archive.Card) *Result {
	return &Result{
		Shape:    ShapeSingle,
		ID:       card.ID,
		Title:    card.Title,
		Markdown: card.Content,
		Source:   Source,
		Metadata: map[string]any{
			"type":       card.Type,
			"tags":       card.Tags,
			"tag_count":  len(card.Tags),
			"created_at": card.CreatedAt,
			"updated_at": card.UpdatedAt,
		},
	}
}

// translateArchiveError maps upstream failures to stable domain errors.
// Messages stay agent-safe: no URLs, status lines, or tokens.
func translateArchiveError(err error, subject string) error {
	switch {
	case errors.Is(err, archive.ErrNotFound):
		return Errorf(CodeNotFound, "%s not found", subject)
	case errors.Is(err, archive.ErrUnauthorized):
		return Errorf(CodeUnauthorized, "archive rejected the gateway's credentials")
	}

	var apiErr *archive.APIError
	if errors.As(err, &apiErr) {
		return Errorf(CodeExecutionFailed, "archive request failed: %s", apiErr.Message)
	}
	return Errorf(CodeExecutionFailed, "archive is unreachable")
}
