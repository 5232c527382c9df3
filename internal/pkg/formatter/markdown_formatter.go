package formatter

import (
	"bytes"
	"fmt"

	"github.com/aiforce/canvas-backend/internal/entity"
)

const (
	markdownContentType   = "text/markdown; charset=utf-8"
	markdownFileExtension = ".md"
)

type MarkdownFormatter struct{}

func NewMarkdownFormatter() *MarkdownFormatter {
	return &MarkdownFormatter{}
}

func (mf *MarkdownFormatter) Format(fields *entity.CanvasFields) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "# %s\n", documentTitle(fields))

	for _, sec := range renderSections(fields) {
		fmt.Fprintf(&buf, "\n## %s\n\n", sec.Heading)
		if len(sec.Lines) == 1 {
			fmt.Fprintf(&buf, "%s\n", sec.Lines[0])
			continue
		}
		for _, line := range sec.Lines {
			fmt.Fprintf(&buf, "- %s\n", line)
		}
	}

	return buf.Bytes(), nil
}

func (mf *MarkdownFormatter) ContentType() string {
	return markdownContentType
}

func (mf *MarkdownFormatter) FileExtension() string {
	return markdownFileExtension
}
