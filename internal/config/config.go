package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/insightloom/internal/utils"
)

// EnvPrefix prefixes every environment override, e.g. INSIGHTLOOM_DATA_BACKEND.
const EnvPrefix = "INSIGHTLOOM"

// User is one entry of the bearer-token directory used by the HTTP server
// and by --user lookups on the CLI.
type User struct {
	Token      string `mapstructure:"token" yaml:"token"`
	FullName   string `mapstructure:"full_name" yaml:"full_name"`
	Department string `mapstructure:"department" yaml:"department"`
	Role       string `mapstructure:"role" yaml:"role"`
	Email      string `mapstructure:"email" yaml:"email"`
}

// Data selects the tabular backend.
type Data struct {
	Backend string `mapstructure:"backend" yaml:"backend"`
	DSN     string `mapstructure:"dsn" yaml:"dsn,omitempty"`
	Dir     string `mapstructure:"dir" yaml:"dir,omitempty"`
	Seed    int64  `mapstructure:"seed" yaml:"seed"`
}

type Server struct {
	Addr  string `mapstructure:"addr" yaml:"addr"`
	Users []User `mapstructure:"users" yaml:"users,omitempty"`
}

type Output struct {
	Format string `mapstructure:"format" yaml:"format"`
	Color  string `mapstructure:"color" yaml:"color"`
}

// Global configuration structure.
type Global struct {
	Provider    string  `mapstructure:"provider" yaml:"provider"`
	Model       string  `mapstructure:"model" yaml:"model"`
	BaseURL     string  `mapstructure:"base_url" yaml:"base_url,omitempty"`
	APIKey      string  `mapstructure:"api_key" yaml:"api_key,omitempty"`
	OllamaHost  string  `mapstructure:"ollama_host" yaml:"ollama_host"`
	MaxTokens   int     `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	StepTimeoutSec   int `mapstructure:"step_timeout_sec" yaml:"step_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Prompting
	ReportingYear    int `mapstructure:"reporting_year" yaml:"reporting_year"`
	PromptTokenLimit int `mapstructure:"prompt_token_limit" yaml:"prompt_token_limit"`

	Data   Data   `mapstructure:"data" yaml:"data"`
	Server Server `mapstructure:"server" yaml:"server"`
	Output Output `mapstructure:"output" yaml:"output"`
}

var defaults = map[string]any{
	"provider":            "openrouter",
	"model":               "openai/gpt-4o-mini",
	"base_url":            "",
	"api_key":             "",
	"ollama_host":         "http://127.0.0.1:11434",
	"max_tokens":          2048,
	"temperature":         0.3,
	"http_timeout_sec":    60,
	"step_timeout_sec":    60,
	"retry_max_attempts":  1,
	"retry_base_delay_ms": 500,
	"retry_max_delay_ms":  4000,
	"reporting_year":      2025,
	"prompt_token_limit":  12000,
	"data.backend":        "memory",
	"data.dsn":            "",
	"data.dir":            "",
	"data.seed":           42,
	"server.addr":         ":8080",
	"output.format":       "table",
	"output.color":        "auto",
}

// Keys lists every scalar key accepted by Set, sorted.
func Keys() []string {
	out := make([]string, 0, len(defaults))
	for k := range defaults {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// DefaultPath returns ~/.insightloom/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".insightloom", "config.yaml"), nil
}

// Save writes the given configuration to cfgFile, or to DefaultPath when
// cfgFile is empty. The write is atomic.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. CLI flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	// Conventional provider variables are honored after our own.
	_ = v.BindEnv("api_key", EnvPrefix+"_API_KEY", "OPENROUTER_API_KEY", "OPENAI_API_KEY")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	c.Data.Dir = utils.ExpandHome(c.Data.Dir)
	return &c, nil
}

// Set assigns one scalar key from its string form. Users are edited in the
// YAML file directly.
func (c *Global) Set(key, val string) error {
	setInt := func(dst *int) error {
		i, err := strconv.Atoi(val)
		if err != nil || i < 0 {
			return fmt.Errorf("invalid int for %s: %q", key, val)
		}
		*dst = i
		return nil
	}
	switch key {
	case "provider":
		switch p := strings.ToLower(val); p {
		case "openrouter", "openai", "ollama":
			c.Provider = p
		case "local":
			c.Provider = "ollama"
		default:
			return fmt.Errorf("invalid provider: %s (use openrouter, openai or ollama)", val)
		}
	case "model":
		c.Model = val
	case "base_url":
		c.BaseURL = val
	case "api_key":
		c.APIKey = val
	case "ollama_host":
		c.OllamaHost = val
	case "max_tokens":
		return setInt(&c.MaxTokens)
	case "temperature":
		f, perr := strconv.ParseFloat(val, 64)
		if perr != nil || f < 0 {
			return fmt.Errorf("invalid float for temperature: %q", val)
		}
		c.Temperature = f
	case "http_timeout_sec":
		return setInt(&c.HTTPTimeoutSec)
	case "step_timeout_sec":
		return setInt(&c.StepTimeoutSec)
	case "retry_max_attempts":
		return setInt(&c.RetryMaxAttempts)
	case "retry_base_delay_ms":
		return setInt(&c.RetryBaseDelayMs)
	case "retry_max_delay_ms":
		return setInt(&c.RetryMaxDelayMs)
	case "reporting_year":
		return setInt(&c.ReportingYear)
	case "prompt_token_limit":
		return setInt(&c.PromptTokenLimit)
	case "data.backend":
		c.Data.Backend = strings.ToLower(val)
	case "data.dsn":
		c.Data.DSN = val
	case "data.dir":
		c.Data.Dir = val
	case "data.seed":
		s, perr := strconv.ParseInt(val, 10, 64)
		if perr != nil {
			return fmt.Errorf("invalid int for data.seed: %q", val)
		}
		c.Data.Seed = s
	case "server.addr":
		c.Server.Addr = val
	case "output.format":
		switch val {
		case "table", "json", "markdown":
			c.Output.Format = val
		default:
			return fmt.Errorf("invalid output.format: %s (use table, json or markdown)", val)
		}
	case "output.color":
		switch val {
		case "auto", "always", "never":
			c.Output.Color = val
		default:
			return fmt.Errorf("invalid output.color: %s (use auto, always or never)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// UserByToken finds a directory entry by bearer token.
func (c *Global) UserByToken(token string) (User, bool) {
	if token == "" {
		return User{}, false
	}
	for _, u := range c.Server.Users {
		if u.Token == token {
			return u, true
		}
	}
	return User{}, false
}

// UserByEmail finds a directory entry by email, case-insensitively.
func (c *Global) UserByEmail(email string) (User, bool) {
	for _, u := range c.Server.Users {
		if strings.EqualFold(u.Email, email) {
			return u, true
		}
	}
	return User{}, false
}
