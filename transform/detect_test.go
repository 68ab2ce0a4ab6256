package transform

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

func TestIsArchiveFile(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("stylesheet", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "site.css")
		if err := os.WriteFile(filePath, []byte("@keyframes spin {}"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("isArchiveFile() = true, want false")
		}
	})

	t.Run("zip extension but invalid content", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "styles.zip")
		if err := os.WriteFile(filePath, []byte("not a real zip file"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if got {
			t.Error("isArchiveFile() = true, want false")
		}
	})

	t.Run("valid zip without extension", func(t *testing.T) {
		filePath := filepath.Join(tmpDir, "bundle")
		zipFile, err := os.Create(filePath)
		if err != nil {
			t.Fatalf("Failed to create zip file: %v", err)
		}
		w := zip.NewWriter(zipFile)
		f, err := w.Create("site.css")
		if err != nil {
			t.Fatalf("Failed to create file in zip: %v", err)
		}
		f.Write(bytes.Repeat([]byte("a {}\n"), 60))
		w.Close()
		zipFile.Close()

		got, err := isArchiveFile(filePath)
		if err != nil {
			t.Errorf("isArchiveFile() error = %v", err)
		}
		if !got {
			t.Error("isArchiveFile() = false, want true")
		}
	})
}

func TestIsArchiveFile_NonExistent(t *testing.T) {
	if _, err := isArchiveFile("/nonexistent/file.zip"); err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

func TestDetectUTF(t *testing.T) {
	tests := []struct {
		name string
		buf  []byte
		want srcEncoding
	}{
		{"UTF-8 BOM", []byte{0xEF, 0xBB, 0xBF, 0x40}, encUTF8},
		{"UTF-16 Big Endian BOM", []byte{0xFE, 0xFF, 0x00, 0x40}, encUTF16BigEndian},
		{"UTF-16 Little Endian BOM", []byte{0xFF, 0xFE, 0x40, 0x00}, encUTF16LittleEndian},
		{"UTF-32 Big Endian BOM", []byte{0x00, 0x00, 0xFE, 0xFF}, encUTF32BigEndian},
		{"UTF-32 Little Endian BOM", []byte{0xFF, 0xFE, 0x00, 0x00}, encUTF32LittleEndian},
		{"No BOM", []byte("@charset"), encUnknown},
		{"Short", []byte{0xEF}, encUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectUTF(tt.buf); got != tt.want {
				t.Errorf("detectUTF() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBOMDetectionFunctions(t *testing.T) {
	if !isUTF8BOM3([]byte{0xEF, 0xBB, 0xBF}) || isUTF8BOM3([]byte{0x00, 0x00, 0x00}) {
		t.Error("isUTF8BOM3 mismatch")
	}
	if !isUTF16BigEndianBOM2([]byte{0xFE, 0xFF}) || isUTF16BigEndianBOM2([]byte{0xFF, 0xFE}) {
		t.Error("isUTF16BigEndianBOM2 mismatch")
	}
	if !isUTF16LittleEndianBOM2([]byte{0xFF, 0xFE}) || isUTF16LittleEndianBOM2([]byte{0xFE, 0xFF}) {
		t.Error("isUTF16LittleEndianBOM2 mismatch")
	}
	if !isUTF32BigEndianBOM4([]byte{0x00, 0x00, 0xFE, 0xFF}) || isUTF32BigEndianBOM4([]byte{0xFF, 0xFE, 0x00, 0x00}) {
		t.Error("isUTF32BigEndianBOM4 mismatch")
	}
	if !isUTF32LittleEndianBOM4([]byte{0xFF, 0xFE, 0x00, 0x00}) || isUTF32LittleEndianBOM4([]byte{0x00, 0x00, 0xFE, 0xFF}) {
		t.Error("isUTF32LittleEndianBOM4 mismatch")
	}
}

func TestSrcEncoding_Charset_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("Expected panic for invalid encoding, but didn't panic")
		}
	}()
	srcEncoding(999).charset()
}

func TestDetectCharset(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		forced  bool
		want    string
		wantErr bool
	}{
		{"plain", []byte("a {}"), false, "UTF-8", false},
		{"utf-8 bom", []byte("\xEF\xBB\xBFa {}"), false, "UTF-8", false},
		{"utf-16 bom", []byte{0xFF, 0xFE, 'a', 0}, false, "UTF-16LE", false},
		{"charset rule", []byte(`@charset "windows-1251"; a {}`), false, "windows-1251", false},
		{"charset rule utf-8", []byte(`@charset "utf-8"; a {}`), false, "UTF-8", false},
		{"charset rule lying utf-16", []byte(`@charset "UTF-16LE"; a {}`), false, "UTF-8", false},
		{"charset rule must be first", []byte(` @charset "windows-1251"; a {}`), false, "UTF-8", false},
		{"unknown charset", []byte(`@charset "martian"; a {}`), false, "", true},
		{"forced wins over rule", []byte(`@charset "windows-1251"; a {}`), true, "KOI8-R", false},
		{"bom wins over forced", []byte("\xEF\xBB\xBFa {}"), true, "UTF-8", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got charset
			var err error
			if tt.forced {
				got, err = detectCharset(tt.data, charmap.KOI8R)
			} else {
				got, err = detectCharset(tt.data, nil)
			}
			if (err != nil) != tt.wantErr {
				t.Fatalf("detectCharset() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && got.name != tt.want {
				t.Errorf("detectCharset() = %s, want %s", got.name, tt.want)
			}
		})
	}
}

func TestCharset_RoundTrip(t *testing.T) {
	t.Run("utf-8 passes through", func(t *testing.T) {
		data := []byte("\xEF\xBB\xBF/* \xff */")
		out, err := charsetUTF8.decode(data)
		if err != nil || !bytes.Equal(out, data) {
			t.Errorf("decode() = %q, %v", out, err)
		}
		out, err = charsetUTF8.encode(data)
		if err != nil || !bytes.Equal(out, data) {
			t.Errorf("encode() = %q, %v", out, err)
		}
	})

	t.Run("utf-16 keeps bom", func(t *testing.T) {
		data, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("a { }"))
		if err != nil {
			t.Fatal(err)
		}
		cs := encUTF16LittleEndian.charset()
		text, err := cs.decode(data)
		if err != nil {
			t.Fatalf("decode() error = %v", err)
		}
		if string(text) != "a { }" {
			t.Errorf("decode() = %q", text)
		}
		out, err := cs.encode(text)
		if err != nil {
			t.Fatalf("encode() error = %v", err)
		}
		if !bytes.Equal(out, data) {
			t.Errorf("encode() = %x, want %x", out, data)
		}
	})

	t.Run("single byte charset", func(t *testing.T) {
		data := []byte(`@charset "windows-1251"; /* ` + "\xcf\xf0\xe8\xe2\xe5\xf2" + ` */`)
		cs, err := detectCharset(data, nil)
		if err != nil {
			t.Fatal(err)
		}
		text, err := cs.decode(data)
		if err != nil {
			t.Fatalf("decode() error = %v", err)
		}
		if !bytes.Contains(text, []byte("Привет")) {
			t.Errorf("decode() = %q", text)
		}
		out, err := cs.encode(text)
		if err != nil || !bytes.Equal(out, data) {
			t.Errorf("encode() = %q, %v", out, err)
		}
	})
}

func TestIsStylesheet(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D, 'I', 'H', 'D', 'R'}
	tests := []struct {
		name string
		head []byte
		want bool
	}{
		{"css", []byte("@keyframes spin { from { opacity: 0 } }"), true},
		{"empty", []byte{}, true},
		{"utf-16 with bom", []byte{0xFF, 0xFE, 'a', 0, ' ', 0}, true},
		{"png", png, false},
		{"nul bytes", []byte("a\x00b"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isStylesheet(tt.head); got != tt.want {
				t.Errorf("isStylesheet() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsStylesheetInArchive(t *testing.T) {
	zipPath := filepath.Join(t.TempDir(), "test.zip")
	zipFile, err := os.Create(zipPath)
	if err != nil {
		t.Fatalf("Failed to create zip file: %v", err)
	}
	w := zip.NewWriter(zipFile)
	for name, content := range map[string][]byte{
		"a.css":   []byte("a { animation: spin 1s }"),
		"b.bin":   {0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0x0D},
		"bom.css": append([]byte{0xEF, 0xBB, 0xBF}, "a {}"...),
	} {
		f, err := w.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		if err != nil {
			t.Fatalf("Failed to create file in zip: %v", err)
		}
		f.Write(content)
	}
	w.Close()
	zipFile.Close()

	r, err := zip.OpenReader(zipPath)
	if err != nil {
		t.Fatalf("Failed to open zip: %v", err)
	}
	defer r.Close()

	want := map[string]bool{"a.css": true, "b.bin": false, "bom.css": true}
	for _, f := range r.File {
		got, err := isStylesheetInArchive(f)
		if err != nil {
			t.Errorf("isStylesheetInArchive(%s) error = %v", f.Name, err)
			continue
		}
		if got != want[f.Name] {
			t.Errorf("isStylesheetInArchive(%s) = %v, want %v", f.Name, got, want[f.Name])
		}
	}
}
