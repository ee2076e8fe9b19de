package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/rivo/uniseg"

	"github.com/giygas/tpn-api/calculator"
)

// Render writes d as plain-text tables. Labels are padded by display
// width so full-width Japanese labels line up with ASCII ones.
func Render(w io.Writer, d Display) error {
	for i, section := range d.Sections {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintf(w, "%s\n%s\n", section.Title, strings.Repeat("-", uniseg.StringWidth(section.Title))); err != nil {
			return err
		}

		labelWidth, valueWidth := 0, 0
		for _, row := range section.Rows {
			labelWidth = max(labelWidth, uniseg.StringWidth(row.Label))
			valueWidth = max(valueWidth, len(row.Value))
		}

		for _, row := range section.Rows {
			pad := strings.Repeat(" ", labelWidth-uniseg.StringWidth(row.Label))
			if _, err := fmt.Fprintf(w, "%s%s  %*s\n", row.Label, pad, valueWidth, row.Value); err != nil {
				return err
			}
		}
	}
	return nil
}

// RenderErrors writes one line per violated rule.
func RenderErrors(w io.Writer, errs calculator.ValidationErrors) error {
	for _, e := range errs {
		if _, err := fmt.Fprintf(w, "x %s\n", e.Message); err != nil {
			return err
		}
	}
	return nil
}
