package cli

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/forPelevin/trailercut/internal/types"
)

// reporter draws chunk transcription progress and the final summary.
type reporter struct {
	mu       sync.Mutex
	progress *progressbar.ProgressBar
	out      io.Writer
	barOut   io.Writer

	cyan  *color.Color
	green *color.Color
	bold  *color.Color
	faint *color.Color
}

func newReporter(out, barOut io.Writer) *reporter {
	if out == nil {
		out = os.Stdout
	}
	if barOut == nil {
		barOut = os.Stderr
	}
	return &reporter{
		out:    out,
		barOut: barOut,
		cyan:   color.New(color.FgCyan, color.Bold),
		green:  color.New(color.FgGreen),
		bold:   color.New(color.Bold),
		faint:  color.New(color.Faint),
	}
}

// chunkDone is the usecase OnChunk hook. The bar is created on the first
// call, once the chunk count is known.
func (r *reporter) chunkDone(done, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.progress == nil {
		r.progress = progressbar.NewOptions(
			total,
			progressbar.OptionSetDescription("chunks"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionSetWriter(r.barOut),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "Transcribing [",
				BarEnd:        "]",
			}),
		)
	}
	_ = r.progress.Set(done)
	if done >= total {
		_ = r.progress.Finish()
		r.progress = nil
	}
}

func (r *reporter) summary(m types.Manifest) {
	fmt.Fprintln(r.out)
	_, _ = r.cyan.Fprintln(r.out, "TRAILER")
	r.printLabel(11, "File:", r.green.Sprint(m.File))
	if fi, err := os.Stat(m.File); err == nil {
		r.printLabel(11, "Size:", humanize.Bytes(uint64(fi.Size())))
	}
	if m.Subtitles != "" {
		r.printLabel(11, "Subtitles:", m.Subtitles)
	}
	r.printLabel(11, "Strategy:", m.Strategy)
	r.printLabel(11, "Duration:", fmt.Sprintf("%.2fs of %.2fs", m.TotalSec, m.BudgetSec))
	r.printLabel(11, "Scenes:", fmt.Sprintf("%d of %d", len(m.Scenes), m.ScenesScanned))

	for _, s := range m.Scenes {
		line := fmt.Sprintf("  %s %8.2f - %-8.2f score %+.3f", s.ID, s.StartSec, s.EndSec, s.Score)
		if s.Text == "" {
			fmt.Fprintf(r.out, "%s %s\n", line, r.faint.Sprint("(no speech)"))
			continue
		}
		fmt.Fprintf(r.out, "%s %s\n", line, truncate(s.Text, 60))
	}
}

func (r *reporter) printLabel(width int, label, value string) {
	padded := fmt.Sprintf("%-*s", width, label)
	fmt.Fprintf(r.out, "  %s %s\n", r.bold.Sprint(padded), value)
}

func truncate(s string, n int) string {
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	return string(rs[:n-1]) + "…"
}
