package utils

import "strings"

// charsPerToken is the rough ratio used for prompt budgeting.
const charsPerToken = 4

// TruncatedMarker ends text cut by TruncateToTokenLimit.
const TruncatedMarker = "\n...[truncated]"

// CountTokens estimates the number of tokens in text. Any non-empty text
// counts as at least one token.
func CountTokens(text string) int {
	if text == "" {
		return 0
	}
	n := len([]rune(text)) / charsPerToken
	if n == 0 {
		return 1
	}
	return n
}

// TruncateToTokenLimit cuts text so its estimate fits within limit tokens,
// preferring a line boundary, and appends TruncatedMarker when anything was
// dropped. A non-positive limit yields "".
func TruncateToTokenLimit(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(text)
	maxChars := limit * charsPerToken
	if len(runes) <= maxChars {
		return text
	}
	marker := []rune(TruncatedMarker)
	keep := maxChars - len(marker)
	if keep <= 0 {
		return string(runes[:maxChars])
	}
	head := string(runes[:keep])
	// Only back off to a newline in the last quarter, so one long line
	// does not wipe out the budget.
	if i := strings.LastIndexByte(head, '\n'); i > 0 && i >= len(head)*3/4 {
		head = head[:i]
	}
	return head + TruncatedMarker
}

// TokenBreakdown estimates tokens per labeled section.
func TokenBreakdown(sections map[string]string) map[string]int {
	out := make(map[string]int, len(sections))
	for k, v := range sections {
		out[k] = CountTokens(v)
	}
	return out
}
