// Package config loads the optional .civerify.yaml file, a .env file and
// environment overrides.
//
// Precedence (highest to lowest):
//  1. Environment variables (CIVERIFY_*, plus DB_PATH, BACKUP_DIR, BACKUP_DAYS)
//  2. .env in the base directory, LoadWithDotEnv only
//  3. .civerify.yaml in the base directory
//  4. Built-in defaults
//
// Command lists given as a single string, from the environment or the file,
// are split on whitespace: CIVERIFY_LINT_COMMAND="flake8 app".
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// FileName is the optional project config file.
const FileName = ".civerify.yaml"

// DefaultMaxOutput caps captured tool output per invocation.
const DefaultMaxOutput = 1 << 20 // 1 MB

// Config holds all configuration for civerify.
type Config struct {
	MaxOutput    int           `mapstructure:"max_output"`
	Tools        ToolsConfig   `mapstructure:"tools"`
	Hooks        HooksConfig   `mapstructure:"hooks"`
	Lint         CommandConfig `mapstructure:"lint"`
	Typecheck    CommandConfig `mapstructure:"typecheck"`
	Security     CommandConfig `mapstructure:"security"`
	Dependencies CommandConfig `mapstructure:"dependencies"`
	Backup       BackupConfig  `mapstructure:"backup"`
}

// ToolsConfig controls how missing tools are installed.
type ToolsConfig struct {
	// Installer is the argv prefix; the tool name is appended.
	Installer []string `mapstructure:"installer"`
}

// HooksConfig controls hook registration and the hook-managed checks.
type HooksConfig struct {
	Install []string `mapstructure:"install"` // one-time registration command
	Command []string `mapstructure:"command"` // hook id is appended
	Checks  []string `mapstructure:"checks"`  // hook ids, run in order
}

// CommandConfig is a single standalone check command.
type CommandConfig struct {
	Command []string `mapstructure:"command"`
	Dir     string   `mapstructure:"dir"` // relative to the repository root
}

// BackupConfig controls the database backup job.
type BackupConfig struct {
	DBPath   string `mapstructure:"db_path"`
	Dir      string `mapstructure:"dir"`
	KeepDays int    `mapstructure:"keep_days"`
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.MaxOutput > 0 {
		return c.MaxOutput
	}
	return DefaultMaxOutput
}

// unprefixedEnv maps keys the container image sets without the CIVERIFY_
// prefix to their variable names.
var unprefixedEnv = map[string]string{
	"backup.db_path":   "DB_PATH",
	"backup.dir":       "BACKUP_DIR",
	"backup.keep_days": "BACKUP_DAYS",
}

var stringSliceType = reflect.TypeOf([]string(nil))

// Load reads configuration rooted at baseDir. .civerify.yaml is optional;
// .env is not consulted.
func Load(baseDir string) (*Config, error) {
	return load(baseDir, false)
}

// LoadWithDotEnv is Load plus values from baseDir/.env, used by the backup
// job. The file is read into the config only; nothing is exported to the
// process environment.
func LoadWithDotEnv(baseDir string) (*Config, error) {
	return load(baseDir, true)
}

func load(baseDir string, withDotEnv bool) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	path := filepath.Join(baseDir, FileName)
	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading %s: %w", FileName, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("checking %s: %w", FileName, err)
	}

	v.SetEnvPrefix("CIVERIFY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, name := range unprefixedEnv {
		_ = v.BindEnv(key, name)
	}

	if withDotEnv {
		if err := applyDotEnv(v, baseDir); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		stringToArgvHook(),
		mapstructure.StringToTimeDurationHookFunc(),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	return cfg, nil
}

// stringToArgvHook splits a string on whitespace when the target is a
// []string.
func stringToArgvHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data any) (any, error) {
		if from.Kind() != reflect.String || to != stringSliceType {
			return data, nil
		}
		return strings.Fields(reflect.ValueOf(data).String()), nil
	}
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		MaxOutput: DefaultMaxOutput,
		Tools: ToolsConfig{
			Installer: []string{"pip", "install", "--quiet"},
		},
		Hooks: HooksConfig{
			Install: []string{"pre-commit", "install"},
			Command: []string{"pre-commit", "run", "--all-files"},
			Checks:  []string{"ruff", "ruff-format", "mypy", "bandit"},
		},
		Lint:         CommandConfig{Command: []string{"ruff", "check", "."}},
		Typecheck:    CommandConfig{Command: []string{"mypy", "app", "--ignore-missing-imports"}},
		Security:     CommandConfig{Command: []string{"bandit", "-r", "app", "-ll"}},
		Dependencies: CommandConfig{Command: []string{"safety", "check", "-r", "requirements.txt"}},
		Backup: BackupConfig{
			DBPath:   "./data/app.db",
			Dir:      "./data/backups",
			KeepDays: 7,
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("max_output", d.MaxOutput)

	v.SetDefault("tools.installer", d.Tools.Installer)

	v.SetDefault("hooks.install", d.Hooks.Install)
	v.SetDefault("hooks.command", d.Hooks.Command)
	v.SetDefault("hooks.checks", d.Hooks.Checks)

	for key, c := range map[string]CommandConfig{
		"lint":         d.Lint,
		"typecheck":    d.Typecheck,
		"security":     d.Security,
		"dependencies": d.Dependencies,
	} {
		v.SetDefault(key+".command", c.Command)
		v.SetDefault(key+".dir", c.Dir)
	}

	v.SetDefault("backup.db_path", d.Backup.DBPath)
	v.SetDefault("backup.dir", d.Backup.Dir)
	v.SetDefault("backup.keep_days", d.Backup.KeepDays)
}

// applyDotEnv fills keys from baseDir/.env whose variable is not set in the
// environment.
func applyDotEnv(v *viper.Viper, baseDir string) error {
	path := filepath.Join(baseDir, ".env")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	vals, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("loading .env: %w", err)
	}

	for _, key := range v.AllKeys() {
		name := envName(key)
		if os.Getenv(name) != "" {
			continue
		}
		if val, ok := vals[name]; ok {
			v.Set(key, val)
		}
	}
	return nil
}

// envName returns the variable viper consults for key.
func envName(key string) string {
	if name, ok := unprefixedEnv[key]; ok {
		return name
	}
	return "CIVERIFY_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}
