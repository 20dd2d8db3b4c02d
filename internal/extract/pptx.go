package extract

import (
	"archive/zip"
	"bytes"
	"fmt"
	"regexp"
	"strings"
)

const pptxSlidePrefix = "ppt/slides/slide"

// atTag matches <a:t>text</a:t> including attributed forms.
var atTag = regexp.MustCompile(`<a:t[^>]*>([^<]*)</a:t>`)

// extractPPTX extracts text from .pptx bytes. PPTX is a ZIP containing one OOXML
// file per slide (ppt/slides/slideN.xml); all <a:t> text nodes are collected.
func extractPPTX(content []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("extract PPTX: not a zip: %w", err)
	}
	var buf strings.Builder
	for _, f := range zr.File {
		if !strings.HasPrefix(f.Name, pptxSlidePrefix) || !strings.HasSuffix(f.Name, ".xml") {
			continue
		}
		slideXML, err := readZipFile(zr, f.Name)
		if err != nil {
			return "", fmt.Errorf("extract PPTX: %w", err)
		}
		for _, p := range atTag.FindAllStringSubmatch(string(slideXML), -1) {
			if buf.Len() > 0 {
				buf.WriteByte(' ')
			}
			buf.WriteString(strings.TrimSpace(p[1]))
		}
	}
	return strings.TrimSpace(buf.String()), nil
}
