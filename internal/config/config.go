// Package config loads InkBoard settings from flags, INKBOARD_* environment
// variables and an optional inkboard.yaml, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"InkBoard/internal/export"
	"InkBoard/internal/render"
	"InkBoard/internal/state"
	"InkBoard/internal/store"
)

const (
	EnvPrefix  = "INKBOARD"
	ConfigName = "inkboard"

	DefaultLogLevel  = "info"
	DefaultServePort = 8888

	// DefaultDirPerm is used when creating the store directory.
	DefaultDirPerm = 0o750
)

// Viper keys.
const (
	KeyStoreDir        = "store.dir"
	KeyStoreURL        = "store.url"
	KeyOwner           = "owner"
	KeyLogLevel        = "loglevel"
	KeyAutosaveDelay   = "autosave.delay"
	KeyZoomMin         = "zoom.min"
	KeyZoomMax         = "zoom.max"
	KeySimplifyEpsilon = "simplify.epsilon"
	KeyExportScale     = "export.scale"
	KeyExportQuality   = "export.quality"
	KeyServePort       = "serve.port"
	KeyServeAdvertise  = "serve.advertise"
)

// flagKeys maps command line flags to viper keys.
var flagKeys = map[string]string{
	"store-dir":        KeyStoreDir,
	"store":            KeyStoreURL,
	"owner":            KeyOwner,
	"loglevel":         KeyLogLevel,
	"autosave-delay":   KeyAutosaveDelay,
	"zoom-min":         KeyZoomMin,
	"zoom-max":         KeyZoomMax,
	"simplify-epsilon": KeySimplifyEpsilon,
	"export-scale":     KeyExportScale,
	"export-quality":   KeyExportQuality,
	"port":             KeyServePort,
	"advertise":        KeyServeAdvertise,
}

// Config holds all InkBoard settings.
type Config struct {
	// Store configuration. StoreURL selects a remote store server; it is
	// empty for the local directory store, or "auto" for mDNS discovery.
	StoreDir string
	StoreURL string
	Owner    string

	LogLevel string

	AutosaveDelay   time.Duration
	ZoomMin         float64
	ZoomMax         float64
	SimplifyEpsilon float64
	ExportScale     float64
	ExportQuality   int

	ServePort      int
	ServeAdvertise bool

	// ConfigFile is the file the values were read from, if any.
	ConfigFile string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		StoreDir:        defaultStoreDir(),
		Owner:           defaultOwner(),
		LogLevel:        DefaultLogLevel,
		AutosaveDelay:   store.DefaultAutosaveDelay,
		ZoomMin:         state.DefaultMinZoom,
		ZoomMax:         state.DefaultMaxZoom,
		SimplifyEpsilon: render.DefaultEpsilon,
		ExportScale:     export.DefaultScale,
		ExportQuality:   export.DefaultQuality,
		ServePort:       DefaultServePort,
		ServeAdvertise:  true,
	}
}

func defaultStoreDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".inkboard"
	}
	return filepath.Join(dir, "inkboard", "documents")
}

func defaultOwner() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "local"
}

// BindFlags defines the configuration flags on fs.
func BindFlags(fs *pflag.FlagSet) {
	cfg := DefaultConfig()
	fs.String("config", "", "Config file (default ./inkboard.yaml or <user config>/inkboard/inkboard.yaml)")
	fs.String("store-dir", cfg.StoreDir, "Directory of the local document store")
	fs.String("store", cfg.StoreURL, "Remote store server (host:port or ws:// URL, 'auto' to discover)")
	fs.String("owner", cfg.Owner, "Owner recorded on imported documents")
	fs.String("loglevel", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.Duration("autosave-delay", cfg.AutosaveDelay, "Quiet period before edits are saved")
	fs.Float64("zoom-min", cfg.ZoomMin, "Minimum zoom")
	fs.Float64("zoom-max", cfg.ZoomMax, "Maximum zoom")
	fs.Float64("simplify-epsilon", cfg.SimplifyEpsilon, "Stroke simplification tolerance in page units")
	fs.Float64("export-scale", cfg.ExportScale, "Export resolution multiplier")
	fs.Int("export-quality", cfg.ExportQuality, "Export JPEG quality (1-100)")
	fs.Int("port", cfg.ServePort, "Store server port")
	fs.Bool("advertise", cfg.ServeAdvertise, "Advertise the store server over mDNS")
}

// Load resolves the configuration from fs, the environment and the config
// file. Flags only override the other sources when set explicitly.
func Load(fs *pflag.FlagSet) (*Config, error) {
	cfg := DefaultConfig()
	v := newViper(cfg)

	for name, key := range flagKeys {
		if f := fs.Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return nil, err
			}
		}
	}

	configFile := ""
	if f := fs.Lookup("config"); f != nil {
		configFile = f.Value.String()
	}
	if err := readConfigFile(v, configFile); err != nil {
		return nil, err
	}

	populateConfigFromViper(v, cfg)
	cfg.ConfigFile = v.ConfigFileUsed()
	if cfg.StoreDir != "" {
		if abs, err := filepath.Abs(cfg.StoreDir); err == nil {
			cfg.StoreDir = abs
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyStoreDir, cfg.StoreDir)
	v.SetDefault(KeyStoreURL, cfg.StoreURL)
	v.SetDefault(KeyOwner, cfg.Owner)
	v.SetDefault(KeyLogLevel, cfg.LogLevel)
	v.SetDefault(KeyAutosaveDelay, cfg.AutosaveDelay)
	v.SetDefault(KeyZoomMin, cfg.ZoomMin)
	v.SetDefault(KeyZoomMax, cfg.ZoomMax)
	v.SetDefault(KeySimplifyEpsilon, cfg.SimplifyEpsilon)
	v.SetDefault(KeyExportScale, cfg.ExportScale)
	v.SetDefault(KeyExportQuality, cfg.ExportQuality)
	v.SetDefault(KeyServePort, cfg.ServePort)
	v.SetDefault(KeyServeAdvertise, cfg.ServeAdvertise)
	return v
}

// readConfigFile reads path, or searches the default locations when path
// is empty. A missing default file is not an error.
func readConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if dir, err := os.UserConfigDir(); err == nil {
		v.AddConfigPath(filepath.Join(dir, "inkboard"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.StoreDir = v.GetString(KeyStoreDir)
	cfg.StoreURL = v.GetString(KeyStoreURL)
	cfg.Owner = v.GetString(KeyOwner)
	cfg.LogLevel = strings.ToLower(v.GetString(KeyLogLevel))
	cfg.AutosaveDelay = v.GetDuration(KeyAutosaveDelay)
	cfg.ZoomMin = v.GetFloat64(KeyZoomMin)
	cfg.ZoomMax = v.GetFloat64(KeyZoomMax)
	cfg.SimplifyEpsilon = v.GetFloat64(KeySimplifyEpsilon)
	cfg.ExportScale = v.GetFloat64(KeyExportScale)
	cfg.ExportQuality = v.GetInt(KeyExportQuality)
	cfg.ServePort = v.GetInt(KeyServePort)
	cfg.ServeAdvertise = v.GetBool(KeyServeAdvertise)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.StoreDir == "" && c.StoreURL == "" {
		return errors.New("either a store directory or a store server is required")
	}
	if c.AutosaveDelay < 0 {
		return errors.New("autosave delay cannot be negative")
	}
	if c.ZoomMin <= 0 || c.ZoomMax < c.ZoomMin {
		return fmt.Errorf("invalid zoom range [%g, %g]", c.ZoomMin, c.ZoomMax)
	}
	if c.SimplifyEpsilon <= 0 {
		return errors.New("simplify epsilon must be positive")
	}
	if c.ExportScale <= 0 {
		return errors.New("export scale must be positive")
	}
	if c.ExportQuality < 1 || c.ExportQuality > 100 {
		return errors.New("export quality must be between 1 and 100")
	}
	if c.ServePort < 1 || c.ServePort > 65535 {
		return errors.New("port must be between 1 and 65535")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}
	return nil
}

// EnsureStoreDir creates the local store directory if needed.
func (c *Config) EnsureStoreDir() error {
	if err := os.MkdirAll(c.StoreDir, DefaultDirPerm); err != nil {
		return fmt.Errorf("cannot create store directory %s: %w", c.StoreDir, err)
	}
	return nil
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

func (c *Config) ZoomLimits() state.ZoomLimits {
	return state.ZoomLimits{Min: c.ZoomMin, Max: c.ZoomMax}
}

// RemoteStore reports whether documents live on a store server.
func (c *Config) RemoteStore() bool {
	return c.StoreURL != ""
}

func (c *Config) String() string {
	return fmt.Sprintf("Config{StoreDir: %s, StoreURL: %s, Owner: %s, LogLevel: %s, AutosaveDelay: %s, Zoom: [%g, %g], Epsilon: %g, Export: %gx q%d, Port: %d}",
		c.StoreDir, c.StoreURL, c.Owner, c.LogLevel, c.AutosaveDelay, c.ZoomMin, c.ZoomMax, c.SimplifyEpsilon, c.ExportScale, c.ExportQuality, c.ServePort)
}
