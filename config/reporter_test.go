package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func newTestReport(t *testing.T) (*Report, string) {
	t.Helper()
	name := filepath.Join(t.TempDir(), "report.zip")
	rpt, err := (&ReporterConfig{Destination: name}).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error: %v", err)
	}
	return rpt, name
}

func readArchive(t *testing.T, name string) map[string]string {
	t.Helper()
	zr, err := zip.OpenReader(name)
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer zr.Close()

	files := make(map[string]string)
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("unable to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("unable to read %s: %v", f.Name, err)
		}
		files[f.Name] = string(data)
	}
	return files
}

func TestReport_Contents(t *testing.T) {
	rpt, name := newTestReport(t)

	if rpt.Name() == "" {
		t.Error("Name() returned empty string")
	}

	src := filepath.Join(t.TempDir(), "site.css")
	if err := os.WriteFile(src, []byte("@keyframes spin {}"), 0644); err != nil {
		t.Fatalf("failed to write source: %v", err)
	}

	rpt.Store("source/site.css", src)
	rpt.StoreData("scoped/site.css", []byte("@keyframes _x_spin {}"))
	rpt.StoreData("scoped/site.css", []byte("second"))
	rpt.Store("absent.log", filepath.Join(t.TempDir(), "absent.log"))

	if err := rpt.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	files := readArchive(t, name)

	if got := files["source/site.css"]; got != "@keyframes spin {}" {
		t.Errorf("source/site.css = %q", got)
	}
	if got := files["scoped/site.css"]; got != "@keyframes _x_spin {}" {
		t.Errorf("scoped/site.css = %q", got)
	}
	versioned := 0
	for n, data := range files {
		if strings.HasPrefix(n, "scoped/site.css-") && data == "second" {
			versioned++
		}
	}
	if versioned != 1 {
		t.Errorf("expected versioned copy of repeated name, files: %v", files)
	}
	if _, ok := files["absent.log"]; ok {
		t.Error("absent file must be skipped")
	}
	manifest, ok := files["MANIFEST"]
	if !ok {
		t.Fatal("MANIFEST is missing")
	}
	if !strings.Contains(manifest, "source/site.css") || !strings.Contains(manifest, "absent.log") {
		t.Errorf("MANIFEST does not list entries:\n%s", manifest)
	}
}

func TestReport_StoreCopy(t *testing.T) {
	rpt, name := newTestReport(t)

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "nested"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "a.css"), []byte("a"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "nested", "b.css"), []byte("b"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := rpt.StoreCopy("input", dir); err != nil {
		t.Fatalf("StoreCopy() error: %v", err)
	}
	// changes after the copy must not be visible
	if err := os.WriteFile(filepath.Join(dir, "a.css"), []byte("changed"), 0644); err != nil {
		t.Fatal(err)
	}
	temps := append([]string{}, rpt.temps...)

	if err := rpt.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	files := readArchive(t, name)
	if got := files["input/a.css"]; got != "a" {
		t.Errorf("input/a.css = %q, want %q", got, "a")
	}
	if got := files["input/nested/b.css"]; got != "b" {
		t.Errorf("input/nested/b.css = %q, want %q", got, "b")
	}

	for _, tmp := range temps {
		if _, err := os.Stat(tmp); !os.IsNotExist(err) {
			os.RemoveAll(tmp)
			t.Errorf("expected temporary copy %s to be removed", tmp)
		}
	}
	// original stays
	if _, err := os.Stat(filepath.Join(dir, "a.css")); err != nil {
		t.Errorf("original must not be removed: %v", err)
	}
}

func TestReport_StoreCopyMissing(t *testing.T) {
	rpt, _ := newTestReport(t)
	defer rpt.Close()

	if err := rpt.StoreCopy("x", filepath.Join(t.TempDir(), "missing.css")); err == nil {
		t.Error("expected error for missing path")
	}
}

func TestReport_StorePanicsOnConflict(t *testing.T) {
	rpt, _ := newTestReport(t)
	defer rpt.Close()

	rpt.Store("final.log", "/tmp/a.log")
	rpt.Store("final.log", "/tmp/a.log") // same path is fine

	defer func() {
		if r := recover(); r == nil {
			t.Error("expected panic when storing different path under the same name")
		}
	}()
	rpt.Store("final.log", "/tmp/b.log")
}

func TestPrepareManifest_NaturalOrder(t *testing.T) {
	now := time.Now()
	entries := map[string]entry{
		"scoped/10.css": {data: []byte("x")},
		"scoped/2.css":  {data: []byte("x")},
		"scoped/1.css":  {data: []byte("x")},
	}
	names, buf := prepareManifest(entries, now)

	want := []string{"scoped/1.css", "scoped/2.css", "scoped/10.css"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("names = %v, want %v", names, want)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 3 {
		t.Errorf("manifest has %d lines, want 3", lines)
	}
}

func TestReport_NilIsNoop(t *testing.T) {
	var r *Report
	r.Store("a", "b")
	r.StoreData("a", []byte("b"))
	if err := r.StoreCopy("a", "b"); err != nil {
		t.Errorf("StoreCopy on nil report returned %v", err)
	}
	if r.Name() != "" {
		t.Error("Name on nil report must be empty")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil report should not error, got: %v", err)
	}
}

func TestReportClose_NilFile(t *testing.T) {
	r := &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close with nil file should not error, got: %v", err)
	}
}
