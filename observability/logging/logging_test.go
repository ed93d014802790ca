package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestSetupEmitsStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("cashd", "test", WithWriter(&buf), WithLevel("debug"))
	logger.Debug("ledger call rejected", slog.String("reason", "InsufficientLiquidity"))

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	for key, want := range map[string]string{
		"service":  "cashd",
		"env":      "test",
		"severity": "DEBUG",
		"message":  "ledger call rejected",
		"reason":   "InsufficientLiquidity",
	} {
		if line[key] != want {
			t.Fatalf("%s = %v, want %q", key, line[key], want)
		}
	}
	if _, ok := line["timestamp"]; !ok {
		t.Fatalf("missing timestamp in %v", line)
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := Setup("cashd", "", WithWriter(&buf), WithLevel("warn"))
	logger.Info("quiet")
	if buf.Len() != 0 {
		t.Fatalf("info line written at warn level: %q", buf.String())
	}
}

func TestMaskField(t *testing.T) {
	if got := MaskField("reason", "StalePrice").Value.String(); got != "StalePrice" {
		t.Fatalf("allowlisted key masked: %q", got)
	}
	if got := MaskField("rpc_url", "https://eth.example/key").Value.String(); got != RedactedValue {
		t.Fatalf("rpc_url not masked: %q", got)
	}
	if got := Secret("reason", "hunter2").Value.String(); got != RedactedValue {
		t.Fatalf("secret not masked: %q", got)
	}
	if got := MaskValue(" "); got != " " {
		t.Fatalf("blank value altered: %q", got)
	}
}

func TestRotatingFileReceivesLines(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "cashd.log")
	logger := Setup("cashd", "test", WithWriter(&buf), WithRotatingFile(path))
	logger.Info("block produced")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !bytes.Contains(data, []byte("block produced")) || !bytes.Contains(buf.Bytes(), []byte("block produced")) {
		t.Fatalf("line missing: file=%q stdout=%q", data, buf.String())
	}
}
