// Package config loads symcore settings from a file and the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/speakeasy-api/symcore/engine"
	"github.com/speakeasy-api/symcore/pkg/exprfmt"
	"github.com/speakeasy-api/symcore/pkg/session"
)

// EnvPrefix prefixes environment overrides, e.g. SYMCORE_ENGINE_RECURSION_LIMIT.
const EnvPrefix = "SYMCORE"

// Config represents the configuration implementation.
type Config struct {
	Engine     *Engine
	Output     *Output
	Logger     *Logger
	Attributes map[string][]string
	Viper      *viper.Viper
}

// Engine holds evaluation limits.
type Engine struct {
	RecursionLimit int
	IterationLimit int
	Timeout        time.Duration
	SessionID      string
	RelaxedSyntax  bool
	Parallelism    int
}

// Output holds formatter settings.
type Output struct {
	Form  string
	Width int
}

// Logger holds logging settings.
type Logger struct {
	Level        string
	PreviewWidth int
}

// LoadConfig loads the configuration from configPath. With an empty path
// the default locations are searched and a missing file is not an error.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("symcore")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".symcore"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	attrs, err := getAttributes(v)
	if err != nil {
		return nil, err
	}
	cfg := &Config{
		Engine:     getEngineConfig(v),
		Output:     getOutputConfig(v),
		Logger:     getLoggerConfig(v),
		Attributes: attrs,
		Viper:      v,
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := engine.DefaultOptions()
	v.SetDefault("engine.recursion_limit", d.RecursionLimit)
	v.SetDefault("engine.iteration_limit", d.IterationLimit)
	v.SetDefault("engine.timeout", time.Duration(0))
	v.SetDefault("engine.relaxed_syntax", false)
	v.SetDefault("output.form", string(exprfmt.InputForm))
	v.SetDefault("output.width", 0)
	v.SetDefault("logger.level", d.LogLevel)
	v.SetDefault("logger.preview_width", d.LogPreviewWidth)
}

func getEngineConfig(v *viper.Viper) *Engine {
	return &Engine{
		RecursionLimit: v.GetInt("engine.recursion_limit"),
		IterationLimit: v.GetInt("engine.iteration_limit"),
		Timeout:        getDurationOrDefault(v, "engine.timeout", 0),
		SessionID:      v.GetString("engine.session_id"),
		RelaxedSyntax:  v.GetBool("engine.relaxed_syntax"),
		Parallelism:    getIntOrDefault(v, "engine.parallelism", 0),
	}
}

func getOutputConfig(v *viper.Viper) *Output {
	return &Output{
		Form:  v.GetString("output.form"),
		Width: v.GetInt("output.width"),
	}
}

func getLoggerConfig(v *viper.Viper) *Logger {
	return &Logger{
		Level:        v.GetString("logger.level"),
		PreviewWidth: v.GetInt("logger.preview_width"),
	}
}

// AttributeDecl declares attributes of a user symbol. Symbol names are
// case-sensitive, so declarations are a list rather than a map keyed by
// name.
type AttributeDecl struct {
	Symbol     string   `mapstructure:"symbol"`
	Attributes []string `mapstructure:"attributes"`
}

func getAttributes(v *viper.Viper) (map[string][]string, error) {
	var decls []AttributeDecl
	if err := v.UnmarshalKey("attributes", &decls); err != nil {
		return nil, fmt.Errorf("failed to read attributes: %w", err)
	}
	out := make(map[string][]string, len(decls))
	for _, d := range decls {
		if d.Symbol == "" {
			return nil, fmt.Errorf("attributes: declaration without symbol")
		}
		out[d.Symbol] = append(out[d.Symbol], d.Attributes...)
	}
	return out, nil
}

func (c *Config) validate() error {
	if c.Engine.RecursionLimit <= 0 {
		return fmt.Errorf("engine.recursion_limit must be positive, got %d", c.Engine.RecursionLimit)
	}
	if c.Engine.IterationLimit <= 0 {
		return fmt.Errorf("engine.iteration_limit must be positive, got %d", c.Engine.IterationLimit)
	}
	if c.Engine.Timeout < 0 {
		return fmt.Errorf("engine.timeout must not be negative, got %s", c.Engine.Timeout)
	}
	if _, err := exprfmt.ValidateConfig(c.formatConfig()); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}

func (c *Config) formatConfig() exprfmt.Config {
	return exprfmt.Config{Form: exprfmt.Form(c.Output.Form), Width: c.Output.Width}
}

// EngineOptions converts the configuration into engine options.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		RecursionLimit:  c.Engine.RecursionLimit,
		IterationLimit:  c.Engine.IterationLimit,
		SessionID:       c.Engine.SessionID,
		RelaxedSyntax:   c.Engine.RelaxedSyntax,
		Timeout:         c.Engine.Timeout,
		LogLevel:        c.Logger.Level,
		LogPreviewWidth: c.Logger.PreviewWidth,
	}
}

// SessionConfig converts the configuration into a session configuration.
func (c *Config) SessionConfig() session.Config {
	return session.Config{
		Engine:      c.EngineOptions(),
		Format:      c.formatConfig(),
		Timeout:     c.Engine.Timeout,
		Attributes:  c.Attributes,
		Parallelism: c.Engine.Parallelism,
	}
}
