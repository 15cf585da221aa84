// Package render formats frames for console output.
package render

import (
	"fmt"
	"strings"

	"github.com/quasar-data/quasar/pkg/frame"
)

// Frame renders df as an aligned text table, showing at most maxRows
// rows. Nulls render as "null".
func Frame(df *frame.DataFrame, maxRows int) string {
	schema := df.Schema()
	width := df.Width()

	headers := make([]string, width)
	for i, f := range schema.Fields {
		headers[i] = fmt.Sprintf("%s (%s)", f.Name, f.Type)
	}

	shown := df.Height()
	truncated := false
	if maxRows > 0 && shown > maxRows {
		shown = maxRows
		truncated = true
	}

	cells := make([][]string, shown)
	widths := make([]int, width)
	for i, h := range headers {
		widths[i] = len(h)
	}
	for r := 0; r < shown; r++ {
		row := df.Row(r)
		line := make([]string, width)
		for c, v := range row {
			line[c] = formatValue(v)
			if len(line[c]) > widths[c] {
				widths[c] = len(line[c])
			}
		}
		cells[r] = line
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "shape: (%d, %d)\n", df.Height(), width)
	writeRow(&sb, headers, widths)
	writeRule(&sb, widths)
	for _, line := range cells {
		writeRow(&sb, line, widths)
	}
	if truncated {
		fmt.Fprintf(&sb, "... %d more rows\n", df.Height()-shown)
	}
	return sb.String()
}

func formatValue(v interface{}) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprintf("%v", v)
}

func writeRow(sb *strings.Builder, cells []string, widths []int) {
	for i, c := range cells {
		if i > 0 {
			sb.WriteString(" | ")
		}
		sb.WriteString(c)
		sb.WriteString(strings.Repeat(" ", widths[i]-len(c)))
	}
	sb.WriteByte('\n')
}

func writeRule(sb *strings.Builder, widths []int) {
	for i, w := range widths {
		if i > 0 {
			sb.WriteString("-+-")
		}
		sb.WriteString(strings.Repeat("-", w))
	}
	sb.WriteByte('\n')
}
