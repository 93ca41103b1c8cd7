package modelapi

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds router settings loaded from a file and the environment.
type Config struct {
	Title              string   `mapstructure:"title"`
	Version            string   `mapstructure:"version"`
	Servers            []string `mapstructure:"servers"`
	RenderErrors       bool     `mapstructure:"render_errors"`
	ErrorStatus        int      `mapstructure:"error_status"`
	FieldsName         string   `mapstructure:"fields_name"`
	MaxExpansionDepth  int      `mapstructure:"max_expansion_depth"`
	MaxMultipartMemory int64    `mapstructure:"max_multipart_memory"`
	Addr               string   `mapstructure:"addr"`
}

// LoadConfig reads the YAML config file at path (optional; empty means
// defaults only) and applies MODELAPI_* environment overrides, e.g.
// MODELAPI_RENDER_ERRORS=true.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetDefault("title", "API Documentation")
	v.SetDefault("version", "0.1")
	v.SetDefault("servers", []string{})
	v.SetDefault("render_errors", false)
	v.SetDefault("error_status", 400)
	v.SetDefault("fields_name", defaultFieldsName)
	v.SetDefault("max_expansion_depth", defaultMaxExpansionDepth)
	v.SetDefault("max_multipart_memory", defaultMaxMultipartMemory)
	v.SetDefault("addr", ":8080")

	v.SetEnvPrefix("MODELAPI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	var errs []error
	if cfg.ErrorStatus < 400 || cfg.ErrorStatus > 599 {
		errs = append(errs, fmt.Errorf("error_status must be a 4xx or 5xx code, got %d", cfg.ErrorStatus))
	}
	if cfg.FieldsName == "" {
		errs = append(errs, errors.New("fields_name must not be empty"))
	}
	if cfg.MaxExpansionDepth < 1 {
		errs = append(errs, fmt.Errorf("max_expansion_depth must be positive, got %d", cfg.MaxExpansionDepth))
	}
	if cfg.MaxMultipartMemory < 1 {
		errs = append(errs, fmt.Errorf("max_multipart_memory must be positive, got %d", cfg.MaxMultipartMemory))
	}
	return errors.Join(errs...)
}
