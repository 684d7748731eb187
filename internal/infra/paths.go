package infra

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

const (
	AppName = "orb-trader"

	// HomeEnv overrides the workspace root.
	HomeEnv = "ORB_HOME"
	// ConfigEnv overrides the config file location.
	ConfigEnv = "ORB_CONFIG"

	lockName = "instance.lock"
)

// WorkspaceDir returns the root for journals, snapshots and the instance lock.
// Order: $ORB_HOME, a local "_workspace" dir (dev), then the OS data dir.
func WorkspaceDir() string {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir
	}

	localDir := "_workspace"
	if _, err := os.Stat(localDir); err == nil {
		return localDir
	}

	base, ok := dataRoot()
	if !ok {
		return localDir
	}
	return filepath.Join(base, AppName)
}

// dataRoot is the per-user application data directory of the OS.
func dataRoot() (string, bool) {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "windows":
		if dir := os.Getenv("APPDATA"); dir != "" {
			return dir, true
		}
		return filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming"), true
	case "darwin":
		return filepath.Join(home, "Library", "Application Support"), true
	case "linux":
		if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
			return dir, true
		}
		return filepath.Join(home, ".local", "share"), true
	}
	return "", false
}

// EnsureDir creates the directory tree with 0755 permissions.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// Lock is an exclusive instance lock file holding the owner's PID and start time.
type Lock struct {
	Path string
}

// AcquireLock creates dir/instance.lock. It fails if the file already exists,
// naming the recorded owner so a stale lock can be removed by hand.
func AcquireLock(dir string) (*Lock, error) {
	path := filepath.Join(dir, lockName)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("another trader holds %s (%s)", path, lockOwner(path))
		}
		return nil, fmt.Errorf("failed to create lock file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339)); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}
	return &Lock{Path: path}, nil
}

// Release removes the lock file.
func (l *Lock) Release() {
	if l == nil {
		return
	}
	os.Remove(l.Path)
}

func lockOwner(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "owner unknown"
	}
	fields := strings.Fields(string(data))
	if len(fields) < 2 {
		return "owner unknown"
	}
	return fmt.Sprintf("pid %s since %s", fields[0], fields[1])
}

// ResolveConfigPath finds config.yaml.
// Order: $ORB_CONFIG, ./configs/config.yaml, then the OS config dir. When none
// exists the local default is returned and LoadConfig reports the missing file.
func ResolveConfigPath() string {
	if p := os.Getenv(ConfigEnv); p != "" {
		return p
	}

	defaultPath := filepath.Join("configs", "config.yaml")
	if _, err := os.Stat(defaultPath); err == nil {
		return defaultPath
	}

	if root, err := os.UserConfigDir(); err == nil {
		osPath := filepath.Join(root, AppName, "config.yaml")
		if _, err := os.Stat(osPath); err == nil {
			return osPath
		}
	}
	return defaultPath
}
