package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/rim/internal/paths"
	"github.com/mesh-intelligence/rim/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"

	envPrefix = "RIM"

	cfgKeyAPIURL      = "api_url"
	cfgKeyTimeout     = "timeout"
	cfgKeyStrict      = "strict"
	cfgKeyLogLevel    = "log_level"
	cfgKeyLogFormat   = "log_format"
	cfgKeyDataDir     = "data_dir"
	cfgKeyCollections = "collections"

	defaultAPIURL  = "http://localhost:8080"
	defaultTimeout = 30 * time.Second
)

// defaultConfigYAML is written to config.yaml on first run.
const defaultConfigYAML = `# rimctl configuration
# Every key can be overridden by an environment variable, e.g. RIM_API_URL.

api_url: http://localhost:8080
timeout: 30s
strict: true
log_level: WARN
log_format: CONSOLE

# Snapshot directory (optional; overridable by --data-dir)
# data_dir:

collections:
  - name: User
    id_key: ID
`

// settings is what a command needs from configuration.
type settings struct {
	types.Config
	ConfigDir string
	DataDir   string
}

// loadSettings resolves the config directory, creates it with a default
// config.yaml on first run, and reads it through viper. Environment
// variables prefixed RIM_ override file values.
func loadSettings(flags *rootFlags) (settings, error) {
	configDir, err := paths.ResolveConfigDir(flags.configDir)
	if err != nil {
		return settings{}, fmt.Errorf("resolve config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return settings{}, fmt.Errorf("ensure default config: %w", err)
	}

	v, err := readConfig(configDir)
	if err != nil {
		return settings{}, err
	}

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return settings{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return settings{}, fmt.Errorf("invalid config %s: %w", paths.ConfigFile(configDir), err)
	}

	dataDir, err := paths.ResolveDataDir(flags.dataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return settings{}, fmt.Errorf("resolve data dir: %w", err)
	}
	return settings{Config: cfg, ConfigDir: configDir, DataDir: dataDir}, nil
}

func readConfig(configDir string) (*viper.Viper, error) {
	v := viper.New()
	v.SetDefault(cfgKeyAPIURL, defaultAPIURL)
	v.SetDefault(cfgKeyTimeout, defaultTimeout)
	v.SetDefault(cfgKeyStrict, true)
	v.SetDefault(cfgKeyLogLevel, "WARN")
	v.SetDefault(cfgKeyLogFormat, "CONSOLE")
	v.SetDefault(cfgKeyCollections, []map[string]any{{"name": "User", "id_key": "ID"}})

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// ensureDefaultConfigFile creates the config directory and a default
// config.yaml if the file does not exist yet.
func ensureDefaultConfigFile(configDir string) error {
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(configDir, paths.ConfigFileName)
	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
