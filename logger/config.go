package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfiguration is the YAML representation of the GlobalConfig.
type fileConfiguration struct {
	DefaultLevel    string            `yaml:"defaultLevel"`
	PackageLevels   map[string]string `yaml:"packageLevels"`
	OutputPath      string            `yaml:"outputPath"`
	ConsoleFormat   bool              `yaml:"consoleFormat"`
	ShowCaller      bool              `yaml:"showCaller"`
	TimeLocation    string            `yaml:"timeLocation"`
	ShowGoroutineID bool              `yaml:"showGoroutineID"`
}

// LoadGlobalConfigFromFile reads YAML logger configuration from the file.
func LoadGlobalConfigFromFile(fileName string) (GlobalConfig, error) {
	yamlFile, err := os.ReadFile(filepath.Clean(fileName))
	if err != nil {
		return GlobalConfig{}, fmt.Errorf("failed to read logger config file: %w", err)
	}
	config := &fileConfiguration{}
	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return GlobalConfig{}, fmt.Errorf("failed to unmarshal logger config: %w", err)
	}
	return config.toGlobalConfig()
}

func (config *fileConfiguration) toGlobalConfig() (GlobalConfig, error) {
	gc := GlobalConfig{
		DefaultLevel:    LevelFromString(config.DefaultLevel),
		PackageLevels:   make(map[string]LogLevel),
		ConsoleFormat:   config.ConsoleFormat,
		ShowCaller:      config.ShowCaller,
		TimeLocation:    config.TimeLocation,
		ShowGoroutineID: config.ShowGoroutineID,
	}
	w, err := OutputWriter(config.OutputPath)
	if err != nil {
		return GlobalConfig{}, err
	}
	gc.Writer = w
	for k, v := range config.PackageLevels {
		gc.PackageLevels[k] = LevelFromString(v)
	}
	return gc, nil
}

/*
OutputWriter returns writer for the log output. Besides file name special
values "stdout", "stderr" and "discard" are supported, empty string means stdout.
*/
func OutputWriter(path string) (io.Writer, error) {
	switch path {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	case "discard":
		return io.Discard, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("failed to create log file directory: %w", err)
	}
	file, err := os.OpenFile(filepath.Clean(path), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600) // -rw-------
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return file, nil
}
