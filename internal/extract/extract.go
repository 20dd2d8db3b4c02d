// Package extract provides text extraction from the supported document formats.
//
// Extractors are selected through an explicit extension registry; there is no
// content sniffing or dynamic dispatch. A file that cannot be read or decoded is
// an extraction failure, reported to the caller as such.
package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Func extracts plain text from raw file content.
type Func func(content []byte) (string, error)

// registry maps a lower-case file extension (with leading dot) to its extractor.
var registry = map[string]Func{
	".pdf":  extractPDF,
	".docx": extractDOCX,
	".pptx": extractPPTX,
	".xlsx": extractXLSX,
	".txt":  extractPlain,
	".md":   extractPlain,
}

// Supported reports whether files with the given extension can be extracted.
// The extension may be given with or without the leading dot, in any case.
func Supported(ext string) bool {
	_, ok := registry[normalizeExt(ext)]
	return ok
}

// SupportedForPath reports whether the file at path has a recognized extension.
func SupportedForPath(path string) bool {
	return Supported(filepath.Ext(path))
}

// Extensions returns the sorted list of recognized extensions, with leading dots.
func Extensions() []string {
	exts := make([]string, 0, len(registry))
	for ext := range registry {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract reads the file at path and returns its text content.
// Returns an error if the extension is unrecognized, the file cannot be read,
// or the content cannot be decoded.
func Extract(path string) (string, error) {
	fn, ok := registry[normalizeExt(filepath.Ext(path))]
	if !ok {
		return "", fmt.Errorf("unsupported file type %q", filepath.Ext(path))
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return fn(content)
}

// Bytes extracts text from in-memory content based on the given extension.
func Bytes(content []byte, ext string) (string, error) {
	fn, ok := registry[normalizeExt(ext)]
	if !ok {
		return "", fmt.Errorf("unsupported file type %q", ext)
	}
	return fn(content)
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(ext)
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
