package diff

import (
	"strings"

	"github.com/fatih/color"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

var (
	removedColor = color.New(color.FgRed).SprintFunc()
	addedColor   = color.New(color.FgGreen).SprintFunc()
	headerColor  = color.New(color.Bold).SprintFunc()
)

// Colorize maps report lines to colored renderings by line shape: left-side
// values red, right-side values green, per-pair headers bold. Honors
// color.NoColor, so piping output stays plain.
func Colorize(lines []string) []string {
	out := make([]string, len(lines))
	for i, line := range lines {
		trimmed := strings.TrimLeft(line, " ")
		switch {
		case strings.HasPrefix(trimmed, "-"):
			out[i] = removedColor(line)
		case strings.HasPrefix(trimmed, "+"):
			out[i] = addedColor(line)
		case strings.HasPrefix(trimmed, "Change details for ["):
			out[i] = headerColor(line)
		default:
			out[i] = line
		}
	}
	return out
}

// inlineValueDiff renders a character-level diff of two values, marking
// deleted runs [-..-] and inserted runs [+..+]. Used when a field changed by
// exactly one replaced value, where the -/+ pair alone can hide a tiny edit
// inside a long serialized string.
func inlineValueDiff(left, right string) string {
	dmp := diffpatch.New()
	diffs := dmp.DiffMain(left, right, false)
	diffs = dmp.DiffCleanupSemantic(diffs)

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffpatch.DiffDelete:
			b.WriteString("[-")
			b.WriteString(d.Text)
			b.WriteString("-]")
		case diffpatch.DiffInsert:
			b.WriteString("[+")
			b.WriteString(d.Text)
			b.WriteString("+]")
		default:
			b.WriteString(d.Text)
		}
	}
	return b.String()
}
