package app

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/camera6912/orb-trader/internal/event"
	"github.com/camera6912/orb-trader/internal/infra"
)

// ConfigPath is the config file location handed to the injectors.
type ConfigPath string

// SecretsPath is the optional secrets file applied over the config.
const SecretsPath = "secrets/orb.yaml"

// Workspace holds the resolved runtime directories.
// Each mode journals into its own <root>/data/<mode>/ directory.
type Workspace struct {
	Root    string
	DataDir string
}

// Resolve joins a relative storage path onto the data directory.
func (w *Workspace) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(w.DataDir, p)
}

// InstanceLock is held for the lifetime of a trading process.
type InstanceLock struct {
	Path string
}

// ProvideConfig loads the config file, applies the optional secrets file and
// installs the configured logger.
func ProvideConfig(path ConfigPath) (*infra.Config, error) {
	cfg, err := infra.LoadConfig(string(path))
	if err != nil {
		return nil, fmt.Errorf("failed to load config %s: %w", path, err)
	}

	if _, err := os.Stat(SecretsPath); err == nil {
		secrets, err := infra.LoadSecretConfig(SecretsPath)
		if err != nil {
			return nil, err
		}
		secrets.Apply(cfg)
	}

	infra.NewLogger(cfg)
	return cfg, nil
}

// ProvideWorkspace creates the data directory for the configured mode.
func ProvideWorkspace(cfg *infra.Config) (*Workspace, error) {
	mode := strings.ToLower(cfg.Trading.Mode)
	if mode == "" {
		mode = "paper"
	}

	root := infra.WorkspaceDir()
	ws := &Workspace{Root: root, DataDir: filepath.Join(root, "data", mode)}
	if err := infra.EnsureDir(ws.DataDir); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return ws, nil
}

// ProvideInstanceLock prevents two traders from journaling into the same database.
// The cleanup removes the lock file.
func ProvideInstanceLock(ws *Workspace) (InstanceLock, func(), error) {
	lock, err := infra.AcquireLock(ws.Root)
	if err != nil {
		return InstanceLock{}, nil, err
	}

	// Runtime Warmup (GC Optimization)
	event.Warmup()
	slog.Info("🔥 Event Pool Warmed up")

	return InstanceLock{Path: lock.Path}, lock.Release, nil
}
