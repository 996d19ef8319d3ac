package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"docqa/internal/domain"
)

const maxFileSize = 10 * 1024 * 1024

// Registry maps file extensions to parsers. PDF and Office formats are
// deliberately absent; their extraction lives outside this module.
type Registry struct {
	parsers map[string]domain.Parser
}

func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[string]domain.Parser)}
	text := &TextParser{}
	for _, ext := range []string{".txt", ".md", ".markdown", ".csv", ".tsv", ".log"} {
		r.Register(ext, text)
	}
	r.Register(".json", &JSONParser{})
	return r
}

func (r *Registry) Register(ext string, p domain.Parser) {
	r.parsers[strings.ToLower(ext)] = p
}

// For returns the parser registered for the path's extension.
func (r *Registry) For(path string) (domain.Parser, error) {
	ext := strings.ToLower(filepath.Ext(path))
	p, ok := r.parsers[ext]
	if !ok {
		return nil, &domain.UnsupportedFormatError{Path: path, Ext: ext}
	}
	return p, nil
}

// Supported reports whether any parser handles the extension.
func (r *Registry) Supported(ext string) bool {
	_, ok := r.parsers[strings.ToLower(ext)]
	return ok
}

// Parse resolves a parser for path and runs it.
func (r *Registry) Parse(path string) (string, error) {
	p, err := r.For(path)
	if err != nil {
		return "", err
	}
	return p.Parse(path)
}

// TextParser reads plain-text files. Binary content is rejected rather
// than indexed as garbage.
type TextParser struct{}

func (p *TextParser) Parse(path string) (string, error) {
	data, err := readBounded(path)
	if err != nil {
		return "", err
	}
	if isBinary(data) {
		return "", &domain.ParseError{Path: path, Err: fmt.Errorf("binary content")}
	}
	return string(data), nil
}

func readBounded(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &domain.ParseError{Path: path, Err: err}
	}
	if info.Size() > maxFileSize {
		return nil, &domain.ParseError{Path: path, Err: fmt.Errorf("file too large (%d bytes)", info.Size())}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &domain.ParseError{Path: path, Err: err}
	}
	return data, nil
}

// isBinary checks a prefix of the data for null bytes and control
// characters.
func isBinary(data []byte) bool {
	n := len(data)
	if n > 1000 {
		n = 1000
	}
	if n < 32 {
		return false
	}
	nulls, controls := 0, 0
	for i := 0; i < n; i++ {
		b := data[i]
		switch {
		case b == 0:
			nulls++
		case b < 9 || (b > 13 && b < 32 && b != 27):
			controls++
		}
	}
	return nulls > 0 || controls > n/20
}
