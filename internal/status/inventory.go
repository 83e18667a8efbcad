package status

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"rlloop/internal/artifact"
	"rlloop/internal/stage"
)

const missing = "-"

// RenderInventory writes a table of artifact presence for epochs 0..epochs
// under l, followed by the stage a resumed run would start with (nil when
// nothing is pending).
func RenderInventory(w io.Writer, l artifact.Layout, epochs int, next *stage.Stage) {
	inv := l.Inventory(epochs)
	r := lipgloss.NewRenderer(w)
	header := r.NewStyle().Bold(true).Foreground(lipgloss.Color(stage.ColorPrimary)).Padding(0, 1)
	present := r.NewStyle().Foreground(lipgloss.Color(stage.ColorSuccess)).Padding(0, 1)
	absent := r.NewStyle().Foreground(lipgloss.Color(stage.ColorMuted)).Padding(0, 1)

	complete := 0
	rows := make([][]string, 0, len(inv))
	for _, e := range inv {
		if e.Complete() {
			complete++
		}
		n := strconv.Itoa(e.Epoch)
		rows = append(rows, []string{
			n,
			mark(e.Checkpoint, "cp_"+n),
			mark(e.ExportedModel, "sm_"+n),
			mark(e.Records, "records_"+n+".bin"),
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.NewStyle().Foreground(lipgloss.Color(stage.ColorMuted))).
		Headers("EPOCH", "CHECKPOINT", "EXPORTED", "RECORDS").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			if row < 0 || row >= len(rows) {
				return present
			}
			if col > 0 && rows[row][col] == missing {
				return absent
			}
			return present
		})

	_, _ = fmt.Fprintf(w, "%s\n", l.WorkDir())
	_, _ = fmt.Fprintln(w, t.Render())
	_, _ = fmt.Fprintf(w, "Epochs with all artifacts: %d of %d\n", complete, len(inv))
	if next == nil {
		_, _ = fmt.Fprintln(w, "Up to date: a run would skip every stage.")
		return
	}
	_, _ = fmt.Fprintf(w, "Next: %s (epoch %d)\n  %s\n", next.Name, next.Epoch, next.CommandLine())
}

func mark(ok bool, name string) string {
	if ok {
		return name
	}
	return missing
}
