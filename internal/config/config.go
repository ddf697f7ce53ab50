package config

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

var (
	configMutex   sync.RWMutex
	currentConfig *AppConfig
	reloadHooks   []func(*AppConfig)
)

// TrackerConfig is the sampling policy
type TrackerConfig struct {
	MinDistanceMeters float64       `mapstructure:"min_distance_meters" validate:"gt=0"`
	Capacity          int           `mapstructure:"capacity" validate:"gt=0,lte=100"`
	FixTimeout        time.Duration `mapstructure:"fix_timeout" validate:"gt=0"`
	HighAccuracy      bool          `mapstructure:"high_accuracy"`
}

// OSRMConfig points at the routing service
type OSRMConfig struct {
	BaseUrl string        `mapstructure:"base_url" validate:"required,url"`
	Profile string        `mapstructure:"profile" validate:"required"`
	Timeout time.Duration `mapstructure:"timeout" validate:"gte=0"`
}

// StorageConfig selects where the log is persisted
type StorageConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=file sqlite"`
	Path    string `mapstructure:"path"`
	Key     string `mapstructure:"key" validate:"required"`
}

// ProviderConfig selects the position source
type ProviderConfig struct {
	Kind         string        `mapstructure:"kind" validate:"oneof=simulator gpx"`
	Source       string        `mapstructure:"source"` // "lat,lon"
	Target       string        `mapstructure:"target"` // "lat,lon"
	Stops        []string      `mapstructure:"stops"`
	Interval     time.Duration `mapstructure:"interval" validate:"gt=0"`
	JitterMeters float64       `mapstructure:"jitter_meters" validate:"gte=0"`
	GPXFile      string        `mapstructure:"gpx_file" validate:"required_if=Kind gpx"`
	Loop         bool          `mapstructure:"loop"`
}

// ServerConfig is the UI feed
type ServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr" validate:"required_if=Enabled true"`
}

// AppConfig holds entire config
type AppConfig struct {
	Tracker  TrackerConfig  `mapstructure:"tracker"`
	OSRM     OSRMConfig     `mapstructure:"osrm"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Provider ProviderConfig `mapstructure:"provider"`
	Server   ServerConfig   `mapstructure:"server"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tracker.min_distance_meters", 10.0)
	v.SetDefault("tracker.capacity", 100)
	v.SetDefault("tracker.fix_timeout", "15s")
	v.SetDefault("tracker.high_accuracy", true)
	v.SetDefault("osrm.base_url", "http://router.project-osrm.org")
	v.SetDefault("osrm.profile", "foot")
	v.SetDefault("osrm.timeout", "0s")
	v.SetDefault("storage.backend", "file")
	v.SetDefault("storage.path", "./state")
	v.SetDefault("storage.key", "logTable")
	v.SetDefault("provider.kind", "simulator")
	v.SetDefault("provider.interval", "1s")
	v.SetDefault("provider.jitter_meters", 0.0)
	v.SetDefault("server.addr", ":8080")
}

// LoadConfig reads path (when set), applies defaults and WALK_* style env
// overrides, and validates the result. An empty path loads defaults only.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("WALK")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if path != "" {
		v.SetConfigFile(path)
		// Explicitly set the config type if not using file extension
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}

	configMutex.Lock()
	currentConfig = cfg
	configMutex.Unlock()

	if path != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			newCfg, err := decode(v)
			if err != nil {
				log.Printf("[config] Ignoring reload of %s: %v", e.Name, err)
				return
			}
			configMutex.Lock()
			currentConfig = newCfg
			hooks := append([]func(*AppConfig){}, reloadHooks...)
			configMutex.Unlock()
			log.Printf("[config] Reloaded %s", e.Name)
			for _, fn := range hooks {
				fn(newCfg)
			}
		})
		v.WatchConfig()
	}

	return cfg, nil
}

func decode(v *viper.Viper) (*AppConfig, error) {
	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct tags on cfg.
func Validate(cfg *AppConfig) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// OnReload registers fn to run with every successfully reloaded config.
func OnReload(fn func(*AppConfig)) {
	configMutex.Lock()
	defer configMutex.Unlock()
	reloadHooks = append(reloadHooks, fn)
}

// GetCurrentConfig returns the current configuration in a thread-safe way
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()
	return currentConfig
}
