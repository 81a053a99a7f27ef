// Package config loads and saves the sheetviz configuration file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/sheetviz/internal/utils"
)

// Global configuration structure.
type Global struct {
	ListenAddr  string `mapstructure:"listen_addr" yaml:"listen_addr"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
	MaxRows     int    `mapstructure:"max_rows" yaml:"max_rows"`

	// Sheet selection; SheetName wins over SheetIndex (1-based).
	SheetName  string `mapstructure:"sheet_name" yaml:"sheet_name"`
	SheetIndex int    `mapstructure:"sheet_index" yaml:"sheet_index"`

	// Figure defaults
	ChartWidth  int    `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight int    `mapstructure:"chart_height" yaml:"chart_height"`
	ImageFormat string `mapstructure:"image_format" yaml:"image_format"`

	// SessionSecret signs the flash cookie. A random one is generated per
	// process when empty, so flashes do not survive restarts.
	SessionSecret string `mapstructure:"session_secret" yaml:"session_secret"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// Keys lists the settable keys in display order.
var Keys = []string{
	"listen_addr", "max_upload_mb", "max_rows", "sheet_name", "sheet_index",
	"chart_width", "chart_height", "image_format", "session_secret", "log_level", "log_format",
}

func defaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".sheetviz"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.sheetviz/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := defaultDir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("SHEETVIZ")
	v.AutomaticEnv()

	v.SetDefault("listen_addr", ":8501")
	v.SetDefault("max_upload_mb", 50)
	v.SetDefault("max_rows", 1000000)
	v.SetDefault("sheet_name", "")
	v.SetDefault("sheet_index", 1)
	v.SetDefault("chart_width", 960)
	v.SetDefault("chart_height", 640)
	v.SetDefault("image_format", "svg")
	v.SetDefault("session_secret", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := defaultDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}

// Secret returns the configured session secret, or a random one.
func (c *Global) Secret() []byte {
	if c.SessionSecret != "" {
		return []byte(c.SessionSecret)
	}
	return []byte(uuid.NewString() + uuid.NewString())
}

// MaxUploadBytes converts max_upload_mb to bytes.
func (c *Global) MaxUploadBytes() int64 {
	if c.MaxUploadMB <= 0 {
		return 50 << 20
	}
	return int64(c.MaxUploadMB) << 20
}

// Set assigns one key from its string form, validating the value.
func (c *Global) Set(key, val string) error {
	atoi := func(min int) (int, error) {
		i, err := strconv.Atoi(val)
		if err != nil || i < min {
			return 0, fmt.Errorf("invalid int for %s: %v", key, val)
		}
		return i, nil
	}
	var err error
	switch key {
	case "listen_addr":
		c.ListenAddr = val
	case "max_upload_mb":
		c.MaxUploadMB, err = atoi(1)
	case "max_rows":
		c.MaxRows, err = atoi(0)
	case "sheet_name":
		c.SheetName = val
	case "sheet_index":
		c.SheetIndex, err = atoi(1)
	case "chart_width":
		c.ChartWidth, err = atoi(100)
	case "chart_height":
		c.ChartHeight, err = atoi(100)
	case "image_format":
		switch f := strings.ToLower(val); f {
		case "svg", "png":
			c.ImageFormat = f
		default:
			return fmt.Errorf("invalid image_format: %s (use svg or png)", val)
		}
	case "session_secret":
		c.SessionSecret = val
	case "log_level":
		switch l := strings.ToLower(val); l {
		case "debug", "info", "warn", "error":
			c.LogLevel = l
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	case "log_format":
		switch f := strings.ToLower(val); f {
		case "text", "json":
			c.LogFormat = f
		default:
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return err
}

// Get returns the string form of one key.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "listen_addr":
		return c.ListenAddr, nil
	case "max_upload_mb":
		return strconv.Itoa(c.MaxUploadMB), nil
	case "max_rows":
		return strconv.Itoa(c.MaxRows), nil
	case "sheet_name":
		return c.SheetName, nil
	case "sheet_index":
		return strconv.Itoa(c.SheetIndex), nil
	case "chart_width":
		return strconv.Itoa(c.ChartWidth), nil
	case "chart_height":
		return strconv.Itoa(c.ChartHeight), nil
	case "image_format":
		return c.ImageFormat, nil
	case "session_secret":
		return mask(c.SessionSecret), nil
	case "log_level":
		return c.LogLevel, nil
	case "log_format":
		return c.LogFormat, nil
	}
	return "", fmt.Errorf("unknown key: %s", key)
}

func mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
