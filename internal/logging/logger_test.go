package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestNewWritesJSONWithFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pollchatd.log")

	logger, err := New(path, "test", false)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("hidden")
	logger.Info("started")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"instance":"test"`)) || !bytes.Contains(data, []byte(`"msg":"started"`)) {
		t.Errorf("log file = %s", data)
	}
	if bytes.Contains(data, []byte("hidden")) {
		t.Error("debug entry written at info level")
	}
}

func TestNewFileDebug(t *testing.T) {
	path := filepath.Join(t.TempDir(), "polltui.log")

	logger, err := NewFile(path, "side", true)
	if err != nil {
		t.Fatal(err)
	}
	logger.Debug("tick")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"msg":"tick"`)) || !bytes.Contains(data, []byte(`"pid":`)) {
		t.Errorf("log file = %s", data)
	}
}
