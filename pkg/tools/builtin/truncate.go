package builtin

import (
	"fmt"
	"strings"
)

// TruncationResult reports how much of the content survived.
type TruncationResult struct {
	Content     string
	Truncated   bool
	TruncatedBy string // "lines" | "bytes" | ""
	TotalLines  int
	OutputLines int
}

// FormatSize renders a byte count for humans.
func FormatSize(bytes int) string {
	switch {
	case bytes < 1024:
		return fmt.Sprintf("%dB", bytes)
	case bytes < 1024*1024:
		return fmt.Sprintf("%.1fKB", float64(bytes)/1024)
	default:
		return fmt.Sprintf("%.1fMB", float64(bytes)/(1024*1024))
	}
}

// TruncateHead keeps the beginning of content up to maxLines or maxBytes,
// never returning a partial line. Used by read_file and search_files.
func TruncateHead(content string, maxLines, maxBytes int) TruncationResult {
	lines := strings.Split(content, "\n")
	total := len(lines)
	if total <= maxLines && len(content) <= maxBytes {
		return TruncationResult{Content: content, TotalLines: total, OutputLines: total}
	}

	by := "lines"
	cut := min(maxLines, total)
	size := 0
	for i := 0; i < cut; i++ {
		need := len(lines[i])
		if i > 0 {
			need++ // newline separator
		}
		if size+need > maxBytes {
			by = "bytes"
			cut = i
			break
		}
		size += need
	}

	return TruncationResult{
		Content:     strings.Join(lines[:cut], "\n"),
		Truncated:   true,
		TruncatedBy: by,
		TotalLines:  total,
		OutputLines: cut,
	}
}

// TruncateTail keeps the end of content up to maxLines or maxBytes. Used by
// execute_shell, where the tail of the output carries the verdict.
func TruncateTail(content string, maxLines, maxBytes int) TruncationResult {
	lines := strings.Split(content, "\n")
	total := len(lines)
	if total <= maxLines && len(content) <= maxBytes {
		return TruncationResult{Content: content, TotalLines: total, OutputLines: total}
	}

	by := "lines"
	first := total // index of the first kept line
	size := 0
	for first > 0 && total-first < maxLines {
		need := len(lines[first-1])
		if first < total {
			need++
		}
		if size+need > maxBytes {
			by = "bytes"
			break
		}
		size += need
		first--
	}
	if first == total {
		// Even the last line alone is over budget: keep its tail at a
		// rune boundary.
		return TruncationResult{
			Content:     tailBytes(lines[total-1], maxBytes),
			Truncated:   true,
			TruncatedBy: by,
			TotalLines:  total,
			OutputLines: 1,
		}
	}

	return TruncationResult{
		Content:     strings.Join(lines[first:], "\n"),
		Truncated:   true,
		TruncatedBy: by,
		TotalLines:  total,
		OutputLines: total - first,
	}
}

// tailBytes returns the last maxBytes of s, starting at a valid rune boundary.
func tailBytes(s string, maxBytes int) string {
	b := []byte(s)
	if len(b) <= maxBytes {
		return s
	}
	start := len(b) - maxBytes
	for start < len(b) && (b[start]&0xc0) == 0x80 {
		start++
	}
	return string(b[start:])
}
