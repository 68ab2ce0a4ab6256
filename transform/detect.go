package transform

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/h2non/filetype"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
)

// enough for filetype matchers
const headerSize = 262

type srcEncoding int

const (
	encUnknown srcEncoding = iota
	encUTF8
	encUTF16BigEndian
	encUTF16LittleEndian
	encUTF32BigEndian
	encUTF32LittleEndian
)

func isUTF8BOM3(buf []byte) bool {
	return len(buf) >= 3 && buf[0] == 0xEF && buf[1] == 0xBB && buf[2] == 0xBF
}

func isUTF16BigEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFE && buf[1] == 0xFF
}

func isUTF16LittleEndianBOM2(buf []byte) bool {
	return len(buf) >= 2 && buf[0] == 0xFF && buf[1] == 0xFE
}

func isUTF32BigEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0x00 && buf[1] == 0x00 && buf[2] == 0xFE && buf[3] == 0xFF
}

func isUTF32LittleEndianBOM4(buf []byte) bool {
	return len(buf) >= 4 && buf[0] == 0xFF && buf[1] == 0xFE && buf[2] == 0x00 && buf[3] == 0x00
}

// detectUTF looks for byte order mark. UTF-32LE must be checked before
// UTF-16LE, its BOM starts with the same two bytes.
func detectUTF(buf []byte) srcEncoding {
	switch {
	case isUTF8BOM3(buf):
		return encUTF8
	case isUTF32BigEndianBOM4(buf):
		return encUTF32BigEndian
	case isUTF32LittleEndianBOM4(buf):
		return encUTF32LittleEndian
	case isUTF16BigEndianBOM2(buf):
		return encUTF16BigEndian
	case isUTF16LittleEndianBOM2(buf):
		return encUTF16LittleEndian
	}
	return encUnknown
}

// charset is encoding of a stylesheet. Nil enc means UTF-8, which is passed
// through untouched (including its BOM, the parser keeps it).
type charset struct {
	name string
	enc  encoding.Encoding
}

var charsetUTF8 = charset{name: "UTF-8"}

func (e srcEncoding) charset() charset {
	switch e {
	case encUnknown, encUTF8:
		return charsetUTF8
	case encUTF16BigEndian:
		return charset{name: "UTF-16BE", enc: unicode.UTF16(unicode.BigEndian, unicode.UseBOM)}
	case encUTF16LittleEndian:
		return charset{name: "UTF-16LE", enc: unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)}
	case encUTF32BigEndian:
		return charset{name: "UTF-32BE", enc: utf32.UTF32(utf32.BigEndian, utf32.UseBOM)}
	case encUTF32LittleEndian:
		return charset{name: "UTF-32LE", enc: utf32.UTF32(utf32.LittleEndian, utf32.UseBOM)}
	}
	// this should never happen
	panic(fmt.Sprintf("unexpected source encoding %d", e))
}

// @charset must be the very first thing in the file, in this exact form.
var reCharsetRule = regexp.MustCompile(`^@charset "([^"]{1,40})";`)

// detectCharset selects stylesheet encoding: byte order mark wins, then
// forced charset, then @charset rule, UTF-8 otherwise.
func detectCharset(data []byte, forced encoding.Encoding) (charset, error) {
	if enc := detectUTF(data); enc != encUnknown {
		return enc.charset(), nil
	}
	if forced != nil {
		return charsetFromEncoding(forced)
	}
	if m := reCharsetRule.FindSubmatch(data); m != nil {
		return charsetFromName(string(m[1]))
	}
	return charsetUTF8, nil
}

func charsetFromName(name string) (charset, error) {
	// ASCII compatible file cannot be in UTF-16, rule is lying
	if strings.HasPrefix(strings.ToLower(name), "utf-16") {
		return charsetUTF8, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return charset{}, fmt.Errorf("unknown charset %q: %w", name, err)
	}
	if enc == nil {
		return charset{}, fmt.Errorf("unsupported charset %q", name)
	}
	return charsetFromEncoding(enc)
}

func charsetFromEncoding(enc encoding.Encoding) (charset, error) {
	name, err := ianaindex.IANA.Name(enc)
	if err != nil {
		return charset{}, fmt.Errorf("unable to name charset: %w", err)
	}
	if name == "UTF-8" {
		return charsetUTF8, nil
	}
	return charset{name: name, enc: enc}, nil
}

func (c charset) decode(data []byte) ([]byte, error) {
	if c.enc == nil {
		return data, nil
	}
	out, err := c.enc.NewDecoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("unable to decode from %s: %w", c.name, err)
	}
	return out, nil
}

func (c charset) encode(data []byte) ([]byte, error) {
	if c.enc == nil {
		return data, nil
	}
	out, err := c.enc.NewEncoder().Bytes(data)
	if err != nil {
		return nil, fmt.Errorf("unable to encode to %s: %w", c.name, err)
	}
	return out, nil
}

// isArchiveFile checks content, not extension.
func isArchiveFile(path string) (bool, error) {
	head, err := readHeader(path)
	if err != nil {
		return false, err
	}
	return filetype.Is(head, "zip"), nil
}

// isStylesheet rejects content recognized as some binary format. Text without
// NULs or with UTF-16/32 byte order mark is accepted.
func isStylesheet(head []byte) bool {
	if enc := detectUTF(head); enc != encUnknown {
		return true
	}
	if kind, err := filetype.Match(head); err == nil && kind != filetype.Unknown {
		return false
	}
	return bytes.IndexByte(head, 0) < 0
}

func readHeader(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return readAtMost(f, headerSize)
}

func readAtMost(r io.Reader, n int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, n))
}

// isStylesheetInArchive peeks into archive entry.
func isStylesheetInArchive(f *zip.File) (bool, error) {
	r, err := f.Open()
	if err != nil {
		return false, err
	}
	defer r.Close()

	head, err := readAtMost(r, headerSize)
	if err != nil {
		return false, err
	}
	return isStylesheet(head), nil
}
