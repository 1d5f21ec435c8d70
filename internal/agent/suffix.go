package agent

import (
	"strings"
	"unicode"
)

// ExternalCLI names the trampoline an inbound message was routed to.
type ExternalCLI struct {
	Name string // "codex" or "gemini"
}

// ParsedRequest is the result of stripping the suffix grammar from raw
// inbound content, grounded on external_cli.hpp's parse_external_request.
type ParsedRequest struct {
	Prompt         string
	ExternalCLI    *ExternalCLI
	VisionEnabled  bool
}

// stripTokenWholeWordCI removes every whole-word, case-insensitive
// occurrence of token from s, wherever it appears, together with the
// whitespace directly before it (so "do a --vision task" becomes
// "do a task"), and reports whether it found at least one.
func stripTokenWholeWordCI(s, token string) (string, bool) {
	lower := strings.ToLower(s)
	tokenLower := strings.ToLower(token)
	found := false

	var out strings.Builder
	i := 0
	for {
		idx := strings.Index(lower[i:], tokenLower)
		if idx < 0 {
			out.WriteString(s[i:])
			break
		}
		start := i + idx
		end := start + len(token)

		leftOK := start == 0 || unicode.IsSpace(rune(s[start-1]))
		rightOK := end >= len(s) || unicode.IsSpace(rune(s[end]))

		if leftOK && rightOK {
			out.WriteString(strings.TrimRightFunc(s[i:start], unicode.IsSpace))
			found = true
			i = end
		} else {
			out.WriteString(s[i : start+1])
			i = start + 1
		}
	}
	return out.String(), found
}

// hasSuffixTokenCI reports whether s ends with token as a whole word,
// case-insensitively (trailing whitespace in s is ignored).
func hasSuffixTokenCI(s, token string) bool {
	trimmed := strings.TrimRightFunc(s, unicode.IsSpace)
	if len(trimmed) < len(token) {
		return false
	}
	tail := trimmed[len(trimmed)-len(token):]
	if !strings.EqualFold(tail, token) {
		return false
	}
	if len(trimmed) == len(token) {
		return true
	}
	return unicode.IsSpace(rune(trimmed[len(trimmed)-len(token)-1]))
}

// ParseSuffixes strips a trailing --codex/--gemini token (mutually
// exclusive, codex checked first) and any --vision occurrences from
// content, in that order (spec.md §4.7 step 3, §6).
func ParseSuffixes(content string) ParsedRequest {
	prompt := content

	var cli *ExternalCLI
	if hasSuffixTokenCI(prompt, "--codex") {
		trimmed := strings.TrimRightFunc(prompt, unicode.IsSpace)
		prompt = strings.TrimRightFunc(trimmed[:len(trimmed)-len("--codex")], unicode.IsSpace)
		cli = &ExternalCLI{Name: "codex"}
	} else if hasSuffixTokenCI(prompt, "--gemini") {
		trimmed := strings.TrimRightFunc(prompt, unicode.IsSpace)
		prompt = strings.TrimRightFunc(trimmed[:len(trimmed)-len("--gemini")], unicode.IsSpace)
		cli = &ExternalCLI{Name: "gemini"}
	}

	stripped, visionFound := stripTokenWholeWordCI(prompt, "--vision")
	if visionFound {
		prompt = strings.TrimSpace(stripped)
	}

	return ParsedRequest{Prompt: prompt, ExternalCLI: cli, VisionEnabled: visionFound}
}
