package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cosmicpool/cosmicpool/logger"
)

type baseConfiguration struct {
	// The cosmicpool home directory
	HomeDir string
	// Configuration file URL. If it's relative, then it's relative from the HomeDir.
	CfgFile string
	// Logger configuration file URL.
	LogCfgFile string
}

const (
	// The prefix for configuration keys inside environment.
	envPrefix = "CP"
	// The default name for config file.
	defaultConfigFile = "config.props"
	// the default cosmicpool directory.
	defaultCosmicpoolDir = ".cosmicpool"
	// The default logger configuration file name.
	defaultLoggerConfigFile = "logger-config.yaml"
	// The configuration key for home directory.
	keyHome = "home"
	// The configuration key for config file name.
	keyConfig = "config"

	flagNameLoggerCfgFile = "logger-config"
	flagNameLogOutputFile = "log-file"
	flagNameLogLevel      = "log-level"
	flagNameLogFormat     = "log-format"

	logFormatConsole = "console"
	logFormatJSON    = "json"
)

func (r *baseConfiguration) addConfigurationFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&r.HomeDir, keyHome, "", fmt.Sprintf("set the CP_HOME for this invocation (default is %s)", cosmicpoolHomeDir()))
	cmd.PersistentFlags().StringVar(&r.CfgFile, keyConfig, "", fmt.Sprintf("config file URL (default is $CP_HOME/%s)", defaultConfigFile))

	cmd.PersistentFlags().StringVar(&r.LogCfgFile, flagNameLoggerCfgFile, defaultLoggerConfigFile, "logger config file URL. Considered absolute if starts with '/'. Otherwise relative from $CP_HOME.")
	// do not set default values for these flags as then we can easily determine whether to load the value from cfg file or not
	cmd.PersistentFlags().String(flagNameLogOutputFile, "", "log file path or one of the special values: stdout, stderr, discard (default stderr)")
	cmd.PersistentFlags().String(flagNameLogLevel, "", "logging level, one of: NONE, ERROR, WARNING, INFO, DEBUG, TRACE (default INFO)")
	cmd.PersistentFlags().String(flagNameLogFormat, "", "log format, one of: console, json (default console)")
}

func (r *baseConfiguration) initConfigFileLocation() {
	// Home directory and config file are special configuration values as these are used for loading in rest of the configuration.
	// Handle these manually, before other configuration loaded with Viper.

	// Home dir is loaded from command line argument. If it's not set, then from env. If that's not set, then default is used.
	if r.HomeDir == "" {
		r.HomeDir = os.Getenv(envKey(keyHome))
		if r.HomeDir == "" {
			r.HomeDir = cosmicpoolHomeDir()
		}
	}

	// Config file name is loaded from command line argument. If it's not set, then from env. If that's not set, then default is used.
	if r.CfgFile == "" {
		r.CfgFile = os.Getenv(envKey(keyConfig))
		if r.CfgFile == "" {
			r.CfgFile = defaultConfigFile
		}
	}
	if !filepath.IsAbs(r.CfgFile) {
		r.CfgFile = filepath.Join(r.HomeDir, r.CfgFile)
	}
}

/*
LoggerCfgFilename always returns non-empty filename - either the value
of the flag set by user or default cfg location.
*/
func (r *baseConfiguration) LoggerCfgFilename() string {
	if !filepath.IsAbs(r.LogCfgFile) {
		return filepath.Join(r.HomeDir, r.LogCfgFile)
	}
	return r.LogCfgFile
}

func (r *baseConfiguration) configFileExists() bool {
	_, err := os.Stat(r.CfgFile)
	return err == nil
}

// pathInHome resolves relative file names against the home directory.
func (r *baseConfiguration) pathInHome(file string) string {
	if file == "" || filepath.IsAbs(file) {
		return file
	}
	return filepath.Join(r.HomeDir, file)
}

/*
initLogger configures the global logger. The logger config file is optional
when it's the default one, the log flags override values loaded from it.
*/
func (r *baseConfiguration) initLogger(cmd *cobra.Command) error {
	cfg := logger.GlobalConfig{
		DefaultLevel:  logger.INFO,
		PackageLevels: map[string]logger.LogLevel{},
		Writer:        os.Stderr,
		ConsoleFormat: true,
		TimeLocation:  "Local",
	}

	loggerCfgFile := filepath.Clean(r.LoggerCfgFilename())
	if _, err := os.Stat(loggerCfgFile); err != nil {
		defaultLoggerCfg := filepath.Join(r.HomeDir, defaultLoggerConfigFile)
		if !(errors.Is(err, os.ErrNotExist) && loggerCfgFile == defaultLoggerCfg) {
			return fmt.Errorf("opening logger configuration file: %w", err)
		}
	} else {
		if cfg, err = logger.LoadGlobalConfigFromFile(loggerCfgFile); err != nil {
			return fmt.Errorf("loading logger configuration (%s): %w", loggerCfgFile, err)
		}
	}

	getFlagValueIfSet := func(flagName string) (string, bool, error) {
		if !cmd.Flags().Changed(flagName) {
			return "", false, nil
		}
		v, err := cmd.Flags().GetString(flagName)
		if err != nil {
			return "", false, fmt.Errorf("failed to read %s flag value: %w", flagName, err)
		}
		return v, true, nil
	}

	// flags override values loaded from cfg file.
	// NB! these flags mustn't have default values in Cobra cmd definition!
	if v, ok, err := getFlagValueIfSet(flagNameLogLevel); err != nil {
		return err
	} else if ok {
		cfg.DefaultLevel = logger.LevelFromString(v)
	}
	if v, ok, err := getFlagValueIfSet(flagNameLogFormat); err != nil {
		return err
	} else if ok {
		switch strings.ToLower(v) {
		case logFormatConsole:
			cfg.ConsoleFormat = true
		case logFormatJSON:
			cfg.ConsoleFormat = false
		default:
			return fmt.Errorf("unsupported log format %q", v)
		}
	}
	if v, ok, err := getFlagValueIfSet(flagNameLogOutputFile); err != nil {
		return err
	} else if ok {
		w, err := logger.OutputWriter(v)
		if err != nil {
			return err
		}
		cfg.Writer = w
	}

	logger.UpdateGlobalConfig(cfg)
	return nil
}

func envKey(key string) string {
	return strings.ToUpper(envPrefix + "_" + key)
}

func cosmicpoolHomeDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		panic("default user home dir not defined: " + err.Error())
	}
	return filepath.Join(dir, defaultCosmicpoolDir)
}
