package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	require.Equal(t, NONE, LevelFromString("NONE"))
	require.Equal(t, ERROR, LevelFromString("error"))
	require.Equal(t, WARNING, LevelFromString("WARN"))
	require.Equal(t, INFO, LevelFromString("Info"))
	require.Equal(t, TRACE, LevelFromString("TRACE"))
	require.Equal(t, DEBUG, LevelFromString("whatever"))
	require.Equal(t, "WARNING", WARNING.String())
}

func TestPackageName(t *testing.T) {
	r := &PackageNameResolver{BasePackage: "cosmicpool/cosmicpool", Depth: 1}
	require.Equal(t, "logger", r.PackageName())
}

func TestJSONOutput_PackageLevels(t *testing.T) {
	buf := &bytes.Buffer{}
	UpdateGlobalConfig(GlobalConfig{
		DefaultLevel:  INFO,
		PackageLevels: map[string]LogLevel{"quiet": ERROR},
		Writer:        buf,
	})

	loud := Create("loud")
	quiet := Create("quiet")
	require.Same(t, loud, Create("loud"))

	loud.Info("deposit %d accepted", 7)
	loud.Debug("not shown")
	quiet.Warning("not shown either")
	quiet.Error("failure")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, buf.String())

	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Equal(t, "deposit 7 accepted", rec["message"])
	require.Equal(t, "info", rec["level"])
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	require.Equal(t, "error", rec["level"])

	buf.Reset()
	loud.ChangeLevel(NONE)
	loud.Error("silenced")
	require.Empty(t, buf.String())
}

func TestSetContext(t *testing.T) {
	buf := &bytes.Buffer{}
	UpdateGlobalConfig(GlobalConfig{DefaultLevel: INFO, Writer: buf})
	l := Create("withctx")

	SetContext("ledger", "0x00cc")
	l.Info("with context")
	ClearContext("ledger")
	l.Info("without context")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, buf.String())
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &rec))
	require.Equal(t, "0x00cc", rec["ledger"])
	rec = nil
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &rec))
	require.NotContains(t, rec, "ledger")
}

func TestLoadGlobalConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "logger-config.yaml")
	logFile := filepath.Join(dir, "logs", "node.log")
	require.NoError(t, os.WriteFile(cfgFile, []byte(`
defaultLevel: WARNING
packageLevels:
  pool: DEBUG
outputPath: `+logFile+`
consoleFormat: false
timeLocation: UTC
`), 0600))

	conf, err := LoadGlobalConfigFromFile(cfgFile)
	require.NoError(t, err)
	require.Equal(t, WARNING, conf.DefaultLevel)
	require.Equal(t, DEBUG, conf.PackageLevels["pool"])
	require.False(t, conf.ConsoleFormat)
	require.Equal(t, "UTC", conf.TimeLocation)
	require.FileExists(t, logFile)

	_, err = LoadGlobalConfigFromFile(filepath.Join(dir, "missing.yaml"))
	require.ErrorContains(t, err, "failed to read logger config file")
}
