package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/insightloom/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set InsightLoom configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		out := cmd.OutOrStdout()
		for _, k := range cfgpkg.Keys() {
			fmt.Fprintf(out, "%s: %s\n", k, configValue(cfg, k))
		}
		fmt.Fprintf(out, "server.users: %d configured\n", len(cfg.Server.Users))
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if err := cfg.Set(key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// configValue renders one key for display. Secrets are masked.
func configValue(c *cfgpkg.Global, key string) string {
	switch key {
	case "provider":
		return c.Provider
	case "model":
		return c.Model
	case "base_url":
		return c.BaseURL
	case "api_key":
		return mask(c.APIKey)
	case "ollama_host":
		return c.OllamaHost
	case "max_tokens":
		return strconv.Itoa(c.MaxTokens)
	case "temperature":
		return strconv.FormatFloat(c.Temperature, 'f', 3, 64)
	case "http_timeout_sec":
		return strconv.Itoa(c.HTTPTimeoutSec)
	case "step_timeout_sec":
		return strconv.Itoa(c.StepTimeoutSec)
	case "retry_max_attempts":
		return strconv.Itoa(c.RetryMaxAttempts)
	case "retry_base_delay_ms":
		return strconv.Itoa(c.RetryBaseDelayMs)
	case "retry_max_delay_ms":
		return strconv.Itoa(c.RetryMaxDelayMs)
	case "reporting_year":
		return strconv.Itoa(c.ReportingYear)
	case "prompt_token_limit":
		return strconv.Itoa(c.PromptTokenLimit)
	case "data.backend":
		return c.Data.Backend
	case "data.dsn":
		return mask(c.Data.DSN)
	case "data.dir":
		return c.Data.Dir
	case "data.seed":
		return strconv.FormatInt(c.Data.Seed, 10)
	case "server.addr":
		return c.Server.Addr
	case "output.format":
		return c.Output.Format
	case "output.color":
		return c.Output.Color
	}
	return ""
}
