package infra

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkspaceDir_HomeEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(HomeEnv, dir)
	assert.Equal(t, dir, WorkspaceDir())
}

func TestAcquireLock(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "instance.lock"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), strconv.Itoa(os.Getpid())+" "))

	_, err = AcquireLock(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pid "+strconv.Itoa(os.Getpid()))

	lock.Release()
	again, err := AcquireLock(dir)
	require.NoError(t, err, "released lock can be taken again")
	again.Release()
}

func TestResolveConfigPath_EnvWins(t *testing.T) {
	t.Setenv(ConfigEnv, "/etc/orb/config.yaml")
	assert.Equal(t, "/etc/orb/config.yaml", ResolveConfigPath())
}
