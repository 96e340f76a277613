package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"imgtext/pkg/models"
)

func testFileInfo(t *testing.T) os.FileInfo {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.png")
	if err := os.WriteFile(path, []byte("png"), 0644); err != nil {
		t.Fatalf("failed to write image: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	return info
}

func TestOutputResult_StdoutMatchesFile(t *testing.T) {
	result := &models.ExtractionResult{Text: "# Receipt\n\n- Tea 2.00", ProcessedAt: time.Now()}
	info := testFileInfo(t)

	var stdout bytes.Buffer
	if err := outputResult(&stdout, result, info, "", false, zerolog.Nop()); err != nil {
		t.Fatalf("outputResult to stdout failed: %v", err)
	}

	path := filepath.Join(t.TempDir(), models.DownloadFileName)
	if err := outputResult(&bytes.Buffer{}, result, info, path, false, zerolog.Nop()); err != nil {
		t.Fatalf("outputResult to file failed: %v", err)
	}
	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read output: %v", err)
	}

	if stdout.String() != result.Text {
		t.Errorf("stdout got %q, want %q", stdout.String(), result.Text)
	}
	if string(written) != result.Text {
		t.Errorf("file got %q, want %q", written, result.Text)
	}
}

func TestOutputResult_JSON(t *testing.T) {
	result := &models.ExtractionResult{Text: "| a | b |", Backend: "gemini", Model: "gemini-1.5-pro"}

	var stdout bytes.Buffer
	if err := outputResult(&stdout, result, testFileInfo(t), "", true, zerolog.Nop()); err != nil {
		t.Fatalf("outputResult failed: %v", err)
	}

	var out ExtractOutput
	if err := json.Unmarshal(stdout.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.Text != result.Text || out.Backend != "gemini" || out.FileName != "scan.png" || out.FileSize != 3 {
		t.Errorf("unexpected output %+v", out)
	}
}
