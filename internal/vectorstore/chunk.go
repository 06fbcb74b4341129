package vectorstore

import "strings"

// Chunk splits text into windows of size characters, each starting size-overlap
// characters after the previous one. The window that reaches the end of text is the last
// one. Whitespace-only windows are dropped.
func Chunk(text string, size, overlap int) []string {
	if size <= 0 {
		return nil
	}
	runes := []rune(text)
	n := len(runes)

	var chunks []string
	start := 0
	for start < n {
		end := start + size
		chunk := string(runes[start:min(end, n)])
		if strings.TrimSpace(chunk) != "" {
			chunks = append(chunks, chunk)
		}
		if end >= n {
			break
		}

		next := end - overlap
		if next <= start {
			break
		}
		start = next
	}
	return chunks
}
