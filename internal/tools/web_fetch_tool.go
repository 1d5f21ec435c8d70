package tools

import (
	"context"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

var htmlTagPattern = regexp.MustCompile(`(?s)<[^>]*>`)

// WebFetchTool fetches a URL and returns its body reduced to plain text.
// The HTTP client itself is an out-of-scope external collaborator
// (spec.md §1); this tool is the thin, in-scope plumbing around it.
type WebFetchTool struct {
	Client *http.Client
}

func (WebFetchTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "web_fetch",
		Description: "Fetch a URL and return its content as plain text.",
		Schema: map[string]any{
			"type":       "object",
			"properties": map[string]any{"url": map[string]any{"type": "string"}},
			"required":   []any{"url"},
		},
	}
}

func (t WebFetchTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	client := t.Client
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strArg(args, "url"), nil)
	if err != nil {
		return "", err
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	text := htmlTagPattern.ReplaceAllString(string(body), " ")
	return strings.Join(strings.Fields(text), " "), nil
}
