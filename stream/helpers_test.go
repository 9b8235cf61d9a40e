package stream

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

type identityPainter struct{}

func (identityPainter) Paint(s string) string { return s }

func writeFrameFile(t *testing.T, dir, name string, frames []string) string {
	t.Helper()
	data, err := json.Marshal(frames)
	if err != nil {
		t.Fatalf("marshal frames: %v", err)
	}
	return writeRawFile(t, dir, name, data)
}

func writeRawFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

type logCapture struct {
	buf bytes.Buffer
}

func (c *logCapture) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

func (c *logCapture) entries(t *testing.T) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(c.buf.Bytes(), []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		entry := map[string]any{}
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("parse log entry: %v", err)
		}
		out = append(out, entry)
	}
	return out
}

func (c *logCapture) firstEntry(t *testing.T) map[string]any {
	t.Helper()
	entries := c.entries(t)
	if len(entries) == 0 {
		t.Fatalf("no log entries")
	}
	return entries[0]
}
