package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T) *viper.Viper {
	t.Helper()
	t.Setenv("GH_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")
	v := viper.New()
	SetDefaults(v)
	return v
}

func TestLoadDefaults(t *testing.T) {
	v := newViper(t)
	v.Set(KeyRepo, "octo/demo")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "octo", cfg.Owner)
	assert.Equal(t, "demo", cfg.Repo)
	assert.Equal(t, "octo/demo", cfg.RepoNWO())
	assert.Equal(t, 30, cfg.PageSize)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.RefreshInterval)
	assert.Equal(t, 200, cfg.CacheSize)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 24*time.Hour, cfg.LogCacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadRepo(t *testing.T) {
	tests := []struct {
		repo    string
		wantErr bool
	}{
		{repo: "octo/demo"},
		{repo: "", wantErr: true},
		{repo: "octo", wantErr: true},
		{repo: "octo/", wantErr: true},
		{repo: "/demo", wantErr: true},
		{repo: "a/b/c", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.repo, func(t *testing.T) {
			v := newViper(t)
			v.Set(KeyRepo, tt.repo)
			_, err := Load(v)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateRanges(t *testing.T) {
	v := newViper(t)
	v.Set(KeyRepo, "octo/demo")
	v.Set(KeyPageSize, 101)
	_, err := Load(v)
	assert.ErrorContains(t, err, "page size")

	v.Set(KeyPageSize, 50)
	v.Set(KeyCacheSize, 0)
	_, err = Load(v)
	assert.ErrorContains(t, err, "cache size")
}

func TestTokenFallback(t *testing.T) {
	v := newViper(t)
	v.Set(KeyRepo, "octo/demo")
	t.Setenv("GITHUB_TOKEN", "from-github")

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-github", cfg.Token)

	t.Setenv("GH_TOKEN", "from-gh")
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, "from-gh", cfg.Token)

	v.Set(KeyToken, "explicit")
	cfg, err = Load(v)
	require.NoError(t, err)
	assert.Equal(t, "explicit", cfg.Token)
}

func TestInitReadsEnvAndFile(t *testing.T) {
	t.Setenv("GH_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")
	dir := t.TempDir()
	file := filepath.Join(dir, "gha-watch.yaml")
	require.NoError(t, os.WriteFile(file, []byte("repo: octo/demo\npage_size: 50\nbranch: main\n"), 0o644))
	t.Setenv("GHA_WATCH_PAGE_SIZE", "75")

	v := viper.New()
	require.NoError(t, Init(v, file))
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, "octo/demo", cfg.RepoNWO())
	assert.Equal(t, 75, cfg.PageSize, "env wins over the file")
	assert.Equal(t, "main", cfg.Filters.Branch)
}

func TestInitMissingExplicitFile(t *testing.T) {
	v := viper.New()
	err := Init(v, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunsFilter(t *testing.T) {
	cfg := Config{PageSize: 20, Filters: Filters{Branch: "main", Workflow: "ci.yml"}}
	f := cfg.RunsFilter()
	assert.Equal(t, "ci.yml", f.WorkflowFile)
	assert.Zero(t, f.WorkflowID)
	assert.Equal(t, 20, f.PerPage)
	assert.Equal(t, "main", f.Branch)

	cfg.Filters.Workflow = "1234"
	f = cfg.RunsFilter()
	assert.Equal(t, int64(1234), f.WorkflowID)
	assert.Empty(t, f.WorkflowFile)

	cfg.Filters.Workflow = "12ab"
	assert.Equal(t, "12ab", cfg.RunsFilter().WorkflowFile)
}
