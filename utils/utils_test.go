package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestCompressAndDecompress(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"Short text", []byte("Hello, world!")},
		{"Empty", []byte{}},
		{"Payload JSON", []byte(`{"lines":[{"text":"a","start_ms":1000,"end_ms":null}]}`)},
		{"Unicode", []byte("안녕하세요 こんにちは")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compressed, err := Compress(tt.data)
			if err != nil {
				t.Fatalf("Compress error: %v", err)
			}
			got, err := Decompress(compressed)
			if err != nil {
				t.Fatalf("Decompress error: %v", err)
			}
			if !bytes.Equal(got, tt.data) {
				t.Errorf("round trip mismatch: got %q, want %q", got, tt.data)
			}
		})
	}
}

func TestCompressRatio(t *testing.T) {
	content := []byte(strings.Repeat("[00:01.00]la la la\n", 500))

	compressed, err := Compress(content)
	if err != nil {
		t.Fatalf("Compress error: %v", err)
	}

	ratio := float64(len(compressed)) / float64(len(content))
	if ratio > 0.1 {
		t.Errorf("Expected compression ratio < 0.1 for repetitive content, got %.2f", ratio)
	}
}

func TestDecompressInvalidInput(t *testing.T) {
	if _, err := Decompress("invalid_base64_string"); err == nil {
		t.Error("Expected error for invalid base64")
	}
	if _, err := Decompress("aGVsbG8="); err == nil {
		t.Error("Expected error for base64 that is not gzip")
	}
}

func TestContentHash(t *testing.T) {
	a := ContentHash("lrc", "[00:01.00]x")
	if len(a) != 64 {
		t.Fatalf("Expected 64 hex chars, got %d", len(a))
	}
	if a != ContentHash("lrc", "[00:01.00]x") {
		t.Error("ContentHash is not deterministic")
	}
	if a == ContentHash("srt", "[00:01.00]x") {
		t.Error("Different parts should hash differently")
	}
	if ContentHash("ab", "c") == ContentHash("a", "bc") {
		t.Error("Part boundaries should affect the hash")
	}
}
