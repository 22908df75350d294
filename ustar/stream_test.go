package ustar

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/ulikunitz/xz"
)

func compressedArchive(t *testing.T, c Compression) []byte {
	t.Helper()
	var buf bytes.Buffer
	cw, err := NewCompressor(&buf, c)
	if err != nil {
		t.Fatalf("NewCompressor(%s): %s", c, err)
	}
	w := NewWriter(cw)
	m, content := testMember("a.txt", "hello")
	if err := w.Add(m, content); err != nil {
		t.Fatalf("Add: %s", err)
	}
	if err := w.Finish(); err != nil {
		t.Fatalf("Finish: %s", err)
	}
	if err := cw.Close(); err != nil {
		t.Fatalf("Close: %s", err)
	}
	return buf.Bytes()
}

func readSingleMember(t *testing.T, raw []byte) (*Member, string) {
	t.Helper()
	r, closer, err := OpenStream(bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("OpenStream: %s", err)
	}
	defer closer.Close()

	m, err := r.Next()
	if err != nil {
		t.Fatalf("Next: %s", err)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %s", err)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Fatalf("want io.EOF, got %v", err)
	}
	return m, string(data)
}

func TestGzipRoundTrip(t *testing.T) {
	raw := compressedArchive(t, CompressionGzip)
	if DetectCompression(raw) != CompressionGzip {
		t.Errorf("sniffed %s, want gzip", DetectCompression(raw))
	}
	m, content := readSingleMember(t, raw)
	if m.Path != "a.txt" || content != "hello" {
		t.Errorf("got member %s with content %q", m, content)
	}
}

func TestXZRoundTrip(t *testing.T) {
	raw := compressedArchive(t, CompressionXZ)
	if DetectCompression(raw) != CompressionXZ {
		t.Errorf("sniffed %s, want xz", DetectCompression(raw))
	}
	m, content := readSingleMember(t, raw)
	if m.Path != "a.txt" || content != "hello" {
		t.Errorf("got member %s with content %q", m, content)
	}
}

func TestUncompressedStream(t *testing.T) {
	raw := compressedArchive(t, CompressionNone)
	if DetectCompression(raw) != CompressionNone {
		t.Errorf("sniffed %s, want none", DetectCompression(raw))
	}
	m, content := readSingleMember(t, raw)
	if m.Path != "a.txt" || content != "hello" {
		t.Errorf("got member %s with content %q", m, content)
	}
}

func TestBzip2WriteUnsupported(t *testing.T) {
	if _, err := NewCompressor(io.Discard, CompressionBzip2); !errors.Is(err, ErrCompression) {
		t.Errorf("want ErrCompression, got %v", err)
	}
}

func TestDecompressorsMatchTheirWriters(t *testing.T) {
	payload := []byte("raw bytes, not an archive")

	var gz bytes.Buffer
	zw := pgzip.NewWriter(&gz)
	zw.Write(payload)
	zw.Close()

	var x bytes.Buffer
	xw, err := xz.NewWriter(&x)
	if err != nil {
		t.Fatalf("xz.NewWriter: %s", err)
	}
	xw.Write(payload)
	xw.Close()

	for _, tc := range []struct {
		c   Compression
		raw []byte
	}{
		{CompressionGzip, gz.Bytes()},
		{CompressionXZ, x.Bytes()},
		{CompressionNone, payload},
	} {
		dec, err := NewDecompressor(bytes.NewReader(tc.raw), tc.c)
		if err != nil {
			t.Fatalf("NewDecompressor(%s): %s", tc.c, err)
		}
		got, err := io.ReadAll(dec)
		dec.Close()
		if err != nil {
			t.Fatalf("ReadAll(%s): %s", tc.c, err)
		}
		if !bytes.Equal(got, payload) {
			t.Errorf("%s: got %q", tc.c, got)
		}
	}
}

func TestCompressionForPath(t *testing.T) {
	cases := map[string]Compression{
		"a.tar":      CompressionNone,
		"a.tar.gz":   CompressionGzip,
		"a.tgz":      CompressionGzip,
		"a.tar.bz2":  CompressionBzip2,
		"a.tar.xz":   CompressionXZ,
		"plain.file": CompressionNone,
	}
	for name, want := range cases {
		if got := CompressionForPath(name); got != want {
			t.Errorf("CompressionForPath(%q) = %s, want %s", name, got, want)
		}
	}
}
