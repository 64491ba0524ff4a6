package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envVars = []string{
	"ATTEND_SERVER_PORT",
	"ATTEND_LOGGING_LEVEL",
	"ATTEND_PATHS_BASE_DIR",
	"ATTEND_PATHS_MAPPING_FILE",
	"ATTEND_ATTENDANCE_POLICY_MIN_PERCENT",
	"ATTEND_ATTENDANCE_POLICY_WARN_PERCENT",
	"ATTEND_ATTENDANCE_MATCH_IGNORE_SPACES",
	"ATTEND_FETCH_TIMEOUT",
	"ATTEND_FETCH_DEFAULT_URL",
}

// clearEnv unsets the variables under test for the duration of t.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envVars {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFrom(t *testing.T) {
	tests := []struct {
		name        string
		env         map[string]string
		yaml        string
		wantErr     bool
		validateCfg func(*testing.T, *Config, string)
	}{
		{
			name: "defaults",
			validateCfg: func(t *testing.T, cfg *Config, dir string) {
				assert.Equal(t, 8080, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, "info", cfg.Logging.Level)
				assert.Equal(t, "json", cfg.Logging.Format)
				assert.Equal(t, 80, cfg.Attendance.Policy.MinPercent)
				assert.Equal(t, 75, cfg.Attendance.Policy.WarnPercent)
				assert.False(t, cfg.Attendance.MatchIgnoreSpaces)
				assert.Equal(t, 30*time.Second, cfg.Fetch.Timeout)
				assert.Equal(t, filepath.Join(dir, "module_mappings.json"), cfg.Paths.MappingFile)
				assert.Equal(t, filepath.Join(dir, "logs", "app.log"), cfg.Logging.FilePath)
			},
		},
		{
			name: "yaml overrides defaults",
			yaml: `
server:
  port: 9090
attendance:
  policy:
    min_percent: 70
    warn_percent: 60
  match_ignore_spaces: true
fetch:
  sources:
    - name: batch-a
      url: https://example.sharepoint.com/:x:/g/personal/user/ABC?e=1
`,
			validateCfg: func(t *testing.T, cfg *Config, _ string) {
				assert.Equal(t, 9090, cfg.Server.Port)
				assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout, "unset keys keep defaults")
				assert.Equal(t, 70, cfg.Attendance.Policy.MinPercent)
				assert.Equal(t, 60, cfg.Attendance.Policy.WarnPercent)
				assert.True(t, cfg.Attendance.MatchIgnoreSpaces)
				require.Len(t, cfg.Fetch.Sources, 1)
				assert.Equal(t, "batch-a", cfg.Fetch.Sources[0].Name)
			},
		},
		{
			name: "env overrides yaml",
			yaml: "server:\n  port: 9090\n",
			env: map[string]string{
				"ATTEND_SERVER_PORT":                   "7070",
				"ATTEND_ATTENDANCE_POLICY_MIN_PERCENT": "85",
				"ATTEND_FETCH_TIMEOUT":                 "5s",
			},
			validateCfg: func(t *testing.T, cfg *Config, _ string) {
				assert.Equal(t, 7070, cfg.Server.Port)
				assert.Equal(t, 85, cfg.Attendance.Policy.MinPercent)
				assert.Equal(t, 5*time.Second, cfg.Fetch.Timeout)
			},
		},
		{
			name: "absolute mapping file kept",
			env:  map[string]string{"ATTEND_PATHS_MAPPING_FILE": "/srv/mappings.json"},
			validateCfg: func(t *testing.T, cfg *Config, _ string) {
				assert.Equal(t, "/srv/mappings.json", cfg.Paths.MappingFile)
			},
		},
		{
			name:    "invalid port",
			env:     map[string]string{"ATTEND_SERVER_PORT": "70000"},
			wantErr: true,
		},
		{
			name:    "warn above min",
			env:     map[string]string{"ATTEND_ATTENDANCE_POLICY_WARN_PERCENT": "90"},
			wantErr: true,
		},
		{
			name:    "bad source url",
			yaml:    "fetch:\n  sources:\n    - name: broken\n      url: not a url\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			yaml:    "server: [",
			wantErr: true,
		},
		{
			name:    "unparsable env",
			env:     map[string]string{"ATTEND_SERVER_PORT": "eighty"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			dir := t.TempDir()
			t.Setenv("ATTEND_PATHS_BASE_DIR", dir)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			file := ""
			if tt.yaml != "" {
				file = writeFile(t, dir, "config.yaml", tt.yaml)
			}

			cfg, err := LoadFrom(file)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.validateCfg(t, cfg, dir)
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := writeFile(t, dir, ".env", "ATTEND_LOGGING_LEVEL=debug\nATTEND_SERVER_PORT=6060\n")
	t.Setenv("ATTEND_SERVER_PORT", "5050")

	require.NoError(t, loadDotEnv(path))
	t.Cleanup(func() { os.Unsetenv("ATTEND_LOGGING_LEVEL") })

	assert.Equal(t, "debug", os.Getenv("ATTEND_LOGGING_LEVEL"))
	assert.Equal(t, "5050", os.Getenv("ATTEND_SERVER_PORT"), "existing variables win")

	assert.NoError(t, loadDotEnv(filepath.Join(dir, "missing.env")))
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	cfg.Paths.BaseDir = t.TempDir()
	require.NoError(t, cfg.ResolvePaths())
	assert.NoError(t, cfg.validate())
}

func TestValidateForcesJSON(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "app.log", cfg.Logging.FilePath)
}

func TestGetConfigFilePathFromEnv(t *testing.T) {
	t.Setenv("ATTEND_CONFIG_FILE", "/etc/attendcalc.yaml")
	assert.Equal(t, "/etc/attendcalc.yaml", getConfigFilePath())
}

func TestAllSources(t *testing.T) {
	tests := []struct {
		name string
		cfg  FetchConfig
		want []string
	}{
		{"none", FetchConfig{}, []string{}},
		{"default only", FetchConfig{DefaultURL: "https://a.example"}, []string{"default"}},
		{
			"default first",
			FetchConfig{DefaultURL: "https://a.example", Sources: []Source{{Name: "semester2", URL: "https://b.example"}}},
			[]string{"default", "semester2"},
		},
		{
			"named default wins",
			FetchConfig{DefaultURL: "https://a.example", Sources: []Source{{Name: "default", URL: "https://b.example"}}},
			[]string{"default"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			names := []string{}
			for _, s := range tt.cfg.AllSources() {
				names = append(names, s.Name)
			}
			assert.Equal(t, tt.want, names)
		})
	}
}
