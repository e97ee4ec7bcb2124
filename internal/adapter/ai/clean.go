// Package ai implements the reasoning-service adapter: an
// OpenAI-compatible chat client, prompt builders, and strict parsing of
// the service's JSON-shaped answers. The service is treated as an
// unreliable dependency: one attempt, no retries, errors surface as
// domain sentinels for the caller's fallback branch.
package ai

import (
	"encoding/json"
	"regexp"
	"strings"
)

var trailingCommaRe = regexp.MustCompile(`,(\s*[}\]])`)

// CleanJSON salvages a JSON object from a possibly decorated LLM
// response: markdown fences and surrounding prose are stripped, the
// first balanced object extracted, trailing commas removed.
func CleanJSON(response string) string {
	response = strings.TrimSpace(response)
	response = strings.TrimPrefix(response, "```json")
	response = strings.TrimPrefix(response, "```")
	response = strings.TrimSuffix(response, "```")
	response = extractObject(strings.TrimSpace(response))

	if json.Valid([]byte(response)) {
		return response
	}
	return trailingCommaRe.ReplaceAllString(response, "$1")
}

// extractObject returns the first brace-balanced object in s, or s
// unchanged when none is found.
func extractObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return s
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		switch {
		case escaped:
			escaped = false
		case ch == '\\' && inString:
			escaped = true
		case ch == '"':
			inString = !inString
		case !inString && ch == '{':
			depth++
		case !inString && ch == '}':
			depth--
			if depth == 0 {
				return s[start : i+1]
			}
		}
	}
	return s[start:]
}
