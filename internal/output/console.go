package output

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/tyemirov/combine/internal/concat"
)

const outputArrow = " -> "

// ConsoleRenderer prints run summaries. Colour is used only when the writer is a terminal.
type ConsoleRenderer struct {
	writer      io.Writer
	colorOutput bool
}

// NewConsoleRenderer creates a renderer writing to writer. A nil writer discards everything.
func NewConsoleRenderer(writer io.Writer) *ConsoleRenderer {
	return &ConsoleRenderer{writer: writer, colorOutput: isTerminal(writer)}
}

// isTerminal reports whether writer is a file attached to a terminal and colour is not disabled.
func isTerminal(writer io.Writer) bool {
	file, isFile := writer.(*os.File)
	if !isFile || file == nil {
		return false
	}
	if color.NoColor {
		return false
	}
	descriptor := file.Fd()
	return isatty.IsTerminal(descriptor) || isatty.IsCygwinTerminal(descriptor)
}

// RenderSummary writes the summary line followed by the output path, plus a binary notice when needed.
func (renderer *ConsoleRenderer) RenderSummary(summary concat.Summary) error {
	if renderer == nil || renderer.writer == nil {
		return nil
	}
	summaryText := FormatSummaryLine(summary)
	pathText := summary.OutputPath
	if renderer.colorOutput {
		summaryText = color.New(color.FgGreen, color.Bold).Sprint(summaryText)
		pathText = color.New(color.FgCyan).Sprint(pathText)
	}
	if _, writeError := fmt.Fprintln(renderer.writer, summaryText+outputArrow+pathText); writeError != nil {
		return writeError
	}
	notice := FormatBinaryNotice(summary)
	if notice == "" {
		return nil
	}
	if renderer.colorOutput {
		notice = color.New(color.FgYellow).Sprint(notice)
	}
	_, writeError := fmt.Fprintln(renderer.writer, notice)
	return writeError
}
