package llm

import (
	"regexp"
	"strings"
)

var jsonObjectPattern = regexp.MustCompile(`\{[^}]+\}`)

// ExtractSQL extracts a single SQL statement from an LLM response. It drops
// anything up to a "SQLQuery:" marker, unwraps markdown code fences and removes
// the trailing semicolon.
func ExtractSQL(content string) string {
	if idx := strings.LastIndex(content, "SQLQuery:"); idx != -1 {
		content = content[idx+len("SQLQuery:"):]
	}

	// Try to extract from markdown code blocks
	if sql := extractFromCodeBlock(content, "```sql", "```"); sql != "" {
		return sql
	}
	if sql := extractFromCodeBlock(content, "```", "```"); sql != "" {
		return sql
	}

	// Unterminated fences
	content = strings.ReplaceAll(content, "```sql", "")
	content = strings.ReplaceAll(content, "```", "")

	return trimSQL(content)
}

// ExtractJSONObject returns the first brace-delimited object in content. The
// match stops at the first closing brace, so nested objects are truncated.
func ExtractJSONObject(content string) (string, bool) {
	match := jsonObjectPattern.FindString(content)
	return match, match != ""
}

func extractFromCodeBlock(content, startMarker, endMarker string) string {
	startIdx := strings.Index(content, startMarker)
	if startIdx == -1 {
		return ""
	}

	contentStart := startIdx + len(startMarker)
	// Skip newline after marker
	if contentStart < len(content) && content[contentStart] == '\n' {
		contentStart++
	}

	endIdx := strings.Index(content[contentStart:], endMarker)
	if endIdx == -1 {
		return ""
	}

	return trimSQL(content[contentStart : contentStart+endIdx])
}

func trimSQL(sql string) string {
	sql = strings.TrimSpace(sql)
	// Remove trailing semicolons for consistency
	sql = strings.TrimRight(sql, ";")
	return strings.TrimSpace(sql)
}
