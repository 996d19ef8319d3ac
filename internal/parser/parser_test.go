package parser

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"docqa/internal/domain"
)

func TestRegistry_UnsupportedFormat(t *testing.T) {
	r := NewRegistry()
	_, err := r.Parse("/tmp/slides.pptx")
	var unsupported *domain.UnsupportedFormatError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedFormatError, got %v", err)
	}
	if unsupported.Ext != ".pptx" {
		t.Fatalf("unexpected extension: %q", unsupported.Ext)
	}
}

func TestTextParser_ReadsPlainText(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("The quarterly report is due March 15"), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewRegistry()
	text, err := r.Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if text != "The quarterly report is due March 15" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestTextParser_EmptyFileIsValid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "empty.txt")
	if err := os.WriteFile(path, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewRegistry()
	text, err := r.Parse(path)
	if err != nil {
		t.Fatalf("empty file must not error: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty text, got %q", text)
	}
}

func TestTextParser_RejectsBinary(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blob.txt")
	data := make([]byte, 256)
	for i := range data {
		data[i] = byte(i % 7) // plenty of null and control bytes
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewRegistry()
	_, err := r.Parse(path)
	var parseErr *domain.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("expected ParseError for binary file, got %v", err)
	}
	if !strings.Contains(parseErr.Error(), path) {
		t.Fatalf("parse error must name the file: %v", parseErr)
	}
}

func TestJSONParser_Flattens(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "meta.json")
	if err := os.WriteFile(path, []byte(`{"project":{"name":"apollo","tags":["a","b"]}}`), 0o644); err != nil {
		t.Fatal(err)
	}
	r := NewRegistry()
	text, err := r.Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if !strings.Contains(text, "project.name: apollo") {
		t.Fatalf("nested key missing: %q", text)
	}
	if !strings.Contains(text, "project.tags[0]: a") {
		t.Fatalf("array entry missing: %q", text)
	}
}
