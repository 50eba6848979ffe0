package textsource

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

// Pages returns one plain-text string per page of the given document.
// A page whose text cannot be extracted yields an empty string; the
// pipeline treats empty and very short pages as skippable noise.
func Pages(path string) ([]string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return pdfPages(blob)
	case ".txt":
		blob, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return textPages(string(blob)), nil
	default:
		return nil, fmt.Errorf("unsupported document type: %s", filepath.Ext(path))
	}
}

func pdfPages(content []byte) ([]string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			out = append(out, "")
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			out = append(out, "")
			continue
		}
		out = append(out, text)
	}
	return out, nil
}

// textPages splits plain text on form feeds, the page marker our
// text-dump fixtures use.
func textPages(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.Split(text, "\f")
}
