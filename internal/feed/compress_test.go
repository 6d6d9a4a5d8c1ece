package feed

import (
	"bytes"
	"testing"
)

func TestCompressorsRoundTrip(t *testing.T) {
	payload := bytes.Repeat([]byte("tick-batch "), 64)
	for _, name := range []string{"gzip", "zstd"} {
		compressor, err := CompressorByName(name)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if compressor.Name() != name {
			t.Fatalf("expected name %s, got %s", name, compressor.Name())
		}
		compressed, err := compressor.Compress(payload)
		if err != nil {
			t.Fatalf("%s compress: %v", name, err)
		}
		if len(compressed) == 0 || len(compressed) >= len(payload) {
			t.Fatalf("%s: expected a smaller payload, got %d bytes", name, len(compressed))
		}
		restored, err := compressor.Decompress(compressed)
		if err != nil {
			t.Fatalf("%s decompress: %v", name, err)
		}
		if !bytes.Equal(restored, payload) {
			t.Fatalf("%s: round trip mismatch", name)
		}
		if _, err := compressor.Decompress(nil); err == nil {
			t.Fatalf("%s: expected error for empty payload", name)
		}
	}
	if _, err := CompressorByName("brotli"); err == nil {
		t.Fatalf("expected an unknown encoding to be rejected")
	}
}
