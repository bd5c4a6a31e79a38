package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/KaramelBytes/insightloom/internal/ai"
	cfgpkg "github.com/KaramelBytes/insightloom/internal/config"
	"github.com/KaramelBytes/insightloom/internal/gateway"
	"github.com/KaramelBytes/insightloom/internal/logging"
	"github.com/KaramelBytes/insightloom/internal/pipeline"
)

type runtimeOptions struct {
	ProviderFlag string
	ModelFlag    string
	OllamaHost   string
}

// buildRuntime resolves the provider and its HTTP/retry settings.
// Precedence: flag, then config, then built-in default.
func buildRuntime(cfg *cfgpkg.Global, opts runtimeOptions) (ai.Runtime, string, error) {
	httpTimeout := 60 * time.Second
	retryMax := 1
	baseDelay := 500 * time.Millisecond
	maxDelay := 4 * time.Second
	if cfg != nil {
		if cfg.HTTPTimeoutSec > 0 {
			httpTimeout = time.Duration(cfg.HTTPTimeoutSec) * time.Second
		}
		if cfg.RetryMaxAttempts > 0 {
			retryMax = cfg.RetryMaxAttempts
		}
		if cfg.RetryBaseDelayMs > 0 {
			baseDelay = time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond
		}
		if cfg.RetryMaxDelayMs > 0 {
			maxDelay = time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond
		}
	}

	providerName := strings.ToLower(strings.TrimSpace(opts.ProviderFlag))
	if providerName == "" && cfg != nil {
		providerName = strings.ToLower(cfg.Provider)
	}
	if providerName == "" {
		providerName = ai.ProviderOpenRouter
	}
	if providerName == "local" {
		providerName = ai.ProviderOllama
	}

	rc := ai.RuntimeConfig{
		HTTPTimeout: httpTimeout,
		RetryMax:    retryMax,
		BaseDelay:   baseDelay,
		MaxDelay:    maxDelay,
	}
	if cfg != nil {
		rc.APIKey = cfg.APIKey
		rc.BaseURL = cfg.BaseURL
		rc.Host = cfg.OllamaHost
	}
	if h := strings.TrimSpace(opts.OllamaHost); h != "" {
		rc.Host = h
	}

	rt, ok := ai.GetRuntime(providerName, rc)
	if !ok {
		return nil, "", fmt.Errorf("unknown provider: %s (use %s)", providerName, strings.Join(ai.Providers(), ", "))
	}
	return rt, providerName, nil
}

// selectModel resolves the model name: flag, then config, then fallback.
func selectModel(cfg *cfgpkg.Global, flagModel string) string {
	if m := strings.TrimSpace(flagModel); m != "" {
		return m
	}
	if cfg != nil && cfg.Model != "" {
		return cfg.Model
	}
	return "openai/gpt-4o-mini"
}

// buildCompleter wires the runtime into the pipeline's text-completion port.
func buildCompleter(cfg *cfgpkg.Global, opts runtimeOptions) (*ai.Completer, error) {
	rt, _, err := buildRuntime(cfg, opts)
	if err != nil {
		return nil, err
	}
	var copts []ai.CompleterOption
	if cfg != nil {
		copts = append(copts, ai.WithMaxTokens(cfg.MaxTokens), ai.WithTemperature(cfg.Temperature))
	}
	return ai.NewCompleter(rt, selectModel(cfg, opts.ModelFlag), copts...), nil
}

type sourceOptions struct {
	Backend string
	DSN     string
	Dir     string
}

// openSource opens the configured data backend; flags override config.
func openSource(cfg *cfgpkg.Global, opts sourceOptions) (gateway.DataSource, gateway.Backend, error) {
	var d cfgpkg.Data
	if cfg != nil {
		d = cfg.Data
	}
	if opts.Backend != "" {
		d.Backend = opts.Backend
	}
	if opts.DSN != "" {
		d.DSN = opts.DSN
	}
	if opts.Dir != "" {
		d.Dir = opts.Dir
	}
	backend, err := gateway.ParseBackend(d.Backend)
	if err != nil {
		return nil, "", err
	}
	src, err := gateway.Open(gateway.Options{Backend: backend, DSN: d.DSN, Dir: d.Dir, Seed: d.Seed})
	if err != nil {
		return nil, "", err
	}
	return src, backend, nil
}

// buildPipeline assembles the pipeline over src.
func buildPipeline(cfg *cfgpkg.Global, src gateway.DataSource, llm pipeline.TextCompletion, log *logging.Logger, sources []string) *pipeline.Pipeline {
	opts := []pipeline.Option{pipeline.WithLogger(log)}
	if cfg != nil {
		opts = append(opts,
			pipeline.WithStepTimeout(time.Duration(cfg.StepTimeoutSec)*time.Second),
			pipeline.WithReportingYear(cfg.ReportingYear),
			pipeline.WithPromptTokenLimit(cfg.PromptTokenLimit),
		)
	}
	if len(sources) > 0 {
		opts = append(opts, pipeline.WithSources(sources...))
	}
	return pipeline.New(gateway.New(src), llm, opts...)
}

// resolveUser maps --user to a directory entry. Unknown emails are passed
// through with the email only.
func resolveUser(cfg *cfgpkg.Global, email string) pipeline.UserContext {
	email = strings.TrimSpace(email)
	if email == "" {
		return pipeline.UserContext{}
	}
	if cfg != nil {
		if u, ok := cfg.UserByEmail(email); ok {
			return pipeline.UserContext{FullName: u.FullName, Department: u.Department, Role: u.Role, Email: u.Email}
		}
	}
	return pipeline.UserContext{Email: email}
}

// parseSources splits a comma list and rejects unknown keys.
func parseSources(s string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(s, ",") {
		key := strings.ToLower(strings.TrimSpace(part))
		if key == "" {
			continue
		}
		if _, ok := gateway.KindForSource(key); !ok {
			return nil, fmt.Errorf("unknown data source %q (use %s)", key, strings.Join(gateway.SourceKeys(), ", "))
		}
		out = append(out, key)
	}
	return out, nil
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
