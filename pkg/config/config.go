package config

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/oauth2"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultModel         = "gpt-4"
	DefaultGitHubAPIURL  = "https://api.github.com"
	DefaultGitHubOwner   = "abdullahhsajid"
	DefaultGitHubRepo    = "bmd-portfolio"
	DefaultGitHubBranch  = "main"
	DefaultContentRoot   = "outstatic/content"
	DefaultCollection    = "blogs"
)

// Config is built once at startup and handed to every component.
type Config struct {
	// Text generation
	OpenAIAPIKey      string
	OpenAIBaseURL     string
	Model             string
	Temperature       float64
	ResearchMaxTokens int
	ArticleMaxTokens  int
	LLMTimeout        time.Duration

	// Content repository
	GitToken      string
	GitHubOwner   string
	GitHubRepo    string
	GitHubBranch  string
	GitHubAPIURL  string
	GitHubTimeout time.Duration

	ContentRoot string
	Collection  string

	// Server
	ListenAddr      string
	APIToken        string
	PipelineTimeout time.Duration

	Debug bool
}

// Load reads the environment (and a .env file when present) into a Config.
// It does not check credentials; call Validate for that.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		OpenAIAPIKey:  os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: strings.TrimRight(getEnv("OPENAI_BASE_URL", DefaultOpenAIBaseURL), "/"),
		Model:         getEnv("MODEL", getEnv("OPENAI_MODEL_NAME", DefaultModel)),

		GitToken:     os.Getenv("GIT_TOKEN"),
		GitHubOwner:  getEnv("GITHUB_OWNER", DefaultGitHubOwner),
		GitHubRepo:   getEnv("GITHUB_REPO", DefaultGitHubRepo),
		GitHubBranch: getEnv("GITHUB_BRANCH", DefaultGitHubBranch),
		GitHubAPIURL: strings.TrimRight(getEnv("GITHUB_API_URL", DefaultGitHubAPIURL), "/"),

		ContentRoot: strings.Trim(getEnv("CONTENT_ROOT", DefaultContentRoot), "/"),
		Collection:  strings.Trim(getEnv("CONTENT_COLLECTION", DefaultCollection), "/"),

		ListenAddr: getEnv("LISTEN_ADDR", ":8000"),
		APIToken:   os.Getenv("API_TOKEN"),
	}

	var errs []error
	var err error

	if cfg.Temperature, err = getEnvFloat("LLM_TEMPERATURE", 0.7); err != nil {
		errs = append(errs, err)
	}
	if cfg.ResearchMaxTokens, err = getEnvInt("RESEARCH_MAX_TOKENS", 1000); err != nil {
		errs = append(errs, err)
	}
	if cfg.ArticleMaxTokens, err = getEnvInt("ARTICLE_MAX_TOKENS", 2000); err != nil {
		errs = append(errs, err)
	}
	if cfg.LLMTimeout, err = getEnvDuration("LLM_TIMEOUT", 2*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.GitHubTimeout, err = getEnvDuration("GITHUB_TIMEOUT", 30*time.Second); err != nil {
		errs = append(errs, err)
	}
	if cfg.PipelineTimeout, err = getEnvDuration("PIPELINE_TIMEOUT", 5*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.Debug, err = getEnvBool("DEBUG", false); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Validate reports missing credentials. needRemote is false for dry runs,
// which never talk to the repository host.
func (c *Config) Validate(needRemote bool) error {
	var missing []string
	if c.OpenAIAPIKey == "" {
		missing = append(missing, "OPENAI_API_KEY")
	}
	if needRemote {
		if c.GitToken == "" {
			missing = append(missing, "GIT_TOKEN")
		}
		if c.GitHubOwner == "" {
			missing = append(missing, "GITHUB_OWNER")
		}
		if c.GitHubRepo == "" {
			missing = append(missing, "GITHUB_REPO")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.ResearchMaxTokens <= 0 || c.ArticleMaxTokens <= 0 {
		return fmt.Errorf("max token bounds must be positive")
	}
	return nil
}

// GitHubHTTPClient returns an HTTP client that authenticates every request
// with the configured repository token.
func (c *Config) GitHubHTTPClient(ctx context.Context) *http.Client {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: c.GitToken, TokenType: "Bearer"})
	client := oauth2.NewClient(ctx, src)
	client.Timeout = c.GitHubTimeout
	return client
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnvBool(key string, fallback bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
