// Package instance locates the on-disk state of one named pollchat instance.
package instance

import (
	"os"
	"path/filepath"
)

// HomeEnv overrides the base directory when set.
const HomeEnv = "POLLCHAT_HOME"

// BaseDir returns ~/.pollchat, or $POLLCHAT_HOME when set.
func BaseDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".pollchat")
}

// Dir returns the instance-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "instances", name)
}

// SocketPath returns the gRPC unix socket path for an instance.
func SocketPath(name string) string {
	return filepath.Join(Dir(name), "pollchatd.sock")
}

// LockPath returns the lock file path for an instance.
func LockPath(name string) string {
	return filepath.Join(Dir(name), "LOCK")
}

// DBPath returns the chat database path.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "chat.db")
}

// UploadsDir returns the directory holding uploaded blobs.
func UploadsDir(name string) string {
	return filepath.Join(Dir(name), "uploads")
}

// LogDir returns the log directory for an instance.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "pollchatd.log")
}

// ClientLogPath returns the terminal client log file path.
func ClientLogPath(name string) string {
	return filepath.Join(LogDir(name), "polltui.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the instance directory tree with proper permissions.
func EnsureDir(name string) error {
	for _, d := range []string{Dir(name), LogDir(name), UploadsDir(name)} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}
