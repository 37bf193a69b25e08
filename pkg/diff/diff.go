package diff

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

const (
	maxDiffLines    = 10000
	truncateMessage = "... (diff truncated, exceeds 10,000 lines) ..."
)

// GenerateUnifiedDiff generates a unified diff format output comparing the
// observed and desired content of a target attribute.
// Returns empty string if content is identical.
// Truncates diffs exceeding 10,000 lines with a truncation marker.
func GenerateUnifiedDiff(before, after []byte, beforeLabel, afterLabel string) string {
	if bytes.Equal(before, after) {
		return ""
	}

	dmp := diffmatchpatch.New()

	beforeStr := string(before)
	afterStr := string(after)

	diffs := dmp.DiffMain(beforeStr, afterStr, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var buf bytes.Buffer

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	fmt.Fprintf(&buf, "--- %s\t%s\n", beforeLabel, timestamp)
	fmt.Fprintf(&buf, "+++ %s\t%s\n", afterLabel, timestamp)

	beforeLines := strings.Split(beforeStr, "\n")
	afterLines := strings.Split(afterStr, "\n")

	fmt.Fprintf(&buf, "@@ -1,%d +1,%d @@\n", len(beforeLines), len(afterLines))

	for _, diff := range diffs {
		text := diff.Text
		lines := strings.Split(text, "\n")

		// Remove empty trailing line from split
		if len(lines) > 0 && lines[len(lines)-1] == "" && text[len(text)-1] == '\n' {
			lines = lines[:len(lines)-1]
		}

		var marker string
		switch diff.Type {
		case diffmatchpatch.DiffEqual:
			marker = " "
		case diffmatchpatch.DiffDelete:
			marker = "-"
		case diffmatchpatch.DiffInsert:
			marker = "+"
		}

		for _, line := range lines {
			buf.WriteString(marker)
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}

	result := buf.String()
	lines := strings.Split(result, "\n")
	if len(lines) > maxDiffLines {
		truncated := strings.Join(lines[:maxDiffLines], "\n")
		return truncated + "\n" + truncateMessage + "\n"
	}

	return result
}

// FormatValue renders a single attribute value for display. Nil renders as
// "absent" so removal diffs read naturally.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "absent"
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	default:
		encoded, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(encoded)
	}
}

// RenderTransition renders an old/new pair for display. Multiline string
// pairs render as a unified diff under the given label; everything else
// renders as a one-line transition.
func RenderTransition(label string, oldVal, newVal any) string {
	oldStr, oldOK := oldVal.(string)
	newStr, newOK := newVal.(string)
	if oldOK && newOK && (strings.Contains(oldStr, "\n") || strings.Contains(newStr, "\n")) {
		return GenerateUnifiedDiff([]byte(oldStr), []byte(newStr), label+" (current)", label+" (desired)")
	}
	return fmt.Sprintf("%s: %s -> %s", label, FormatValue(oldVal), FormatValue(newVal))
}
