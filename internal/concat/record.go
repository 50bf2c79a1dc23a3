package concat

import (
	"fmt"
	"io"
)

// recordHeaderFormat frames every file: two blank lines, the header line, one blank line.
// Consumers of the combined file rely on this exact layout.
const recordHeaderFormat = "\n\n# ==== %s ====\n\n"

// FormatRecordHeader returns the separator written ahead of a file's content.
func FormatRecordHeader(relativePath string) string {
	return fmt.Sprintf(recordHeaderFormat, relativePath)
}

type recordWriter struct {
	destination io.Writer
}

func (writer recordWriter) writeHeader(relativePath string) error {
	_, writeError := io.WriteString(writer.destination, FormatRecordHeader(relativePath))
	return writeError
}

func (writer recordWriter) writeContent(content string) error {
	_, writeError := io.WriteString(writer.destination, content)
	return writeError
}
