package instance

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matheus3301/pollchat/internal/config"
)

func TestPaths(t *testing.T) {
	base := t.TempDir()
	t.Setenv(HomeEnv, base)

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"dir", Dir("main"), filepath.Join(base, "instances", "main")},
		{"socket", SocketPath("test"), filepath.Join(base, "instances", "test", "pollchatd.sock")},
		{"lock", LockPath("test"), filepath.Join(base, "instances", "test", "LOCK")},
		{"db", DBPath("test"), filepath.Join(base, "instances", "test", "chat.db")},
		{"log", LogPath("test"), filepath.Join(base, "instances", "test", "logs", "pollchatd.log")},
		{"config", ConfigPath(), filepath.Join(base, "config.toml")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestEnsureDir(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	if err := EnsureDir("test"); err != nil {
		t.Fatal(err)
	}
	for _, d := range []string{Dir("test"), LogDir("test"), UploadsDir("test")} {
		info, err := os.Stat(d)
		if err != nil {
			t.Fatalf("%s not created: %v", d, err)
		}
		if !info.IsDir() || info.Mode().Perm() != 0700 {
			t.Errorf("%s mode = %v", d, info.Mode())
		}
	}
}

func TestResolve(t *testing.T) {
	t.Setenv(HomeEnv, t.TempDir())

	if got := Resolve(""); got != DefaultName {
		t.Errorf("Resolve without config = %q, want %q", got, DefaultName)
	}
	cfg := config.Default()
	cfg.DefaultInstance = "work"
	if err := config.Save(ConfigPath(), cfg); err != nil {
		t.Fatal(err)
	}
	if got := Resolve(""); got != "work" {
		t.Errorf("Resolve from config = %q, want work", got)
	}
	if got := Resolve("flag"); got != "flag" {
		t.Errorf("Resolve with flag = %q, want flag", got)
	}
}

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid simple", "main", false},
		{"valid with numbers", "work123", false},
		{"valid with hyphen", "my-instance", false},
		{"valid with underscore", "my_instance", false},
		{"valid single char", "a", false},
		{"empty", "", true},
		{"uppercase", "Main", true},
		{"space", "my instance", true},
		{"dot", "my.instance", true},
		{"too long", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", true},
		{"slash", "my/instance", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateName(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestClientTarget(t *testing.T) {
	base := t.TempDir()
	t.Setenv(HomeEnv, base)

	cfg := config.Default()
	if got, want := ClientTarget(cfg, "main"), SocketPath("main"); got != want {
		t.Errorf("default target = %q, want %q", got, want)
	}
	cfg.Server.GRPCListen = "127.0.0.1:9000"
	if got := ClientTarget(cfg, "main"); got != "127.0.0.1:9000" {
		t.Errorf("listen target = %q", got)
	}
	cfg.Client.Server = "chat.example.com:443"
	if got := ClientTarget(cfg, "main"); got != "chat.example.com:443" {
		t.Errorf("client target = %q", got)
	}
}
