package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"blog-agent/pkg/config"
	"blog-agent/pkg/handlers"
	"blog-agent/pkg/models"
	"blog-agent/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	logger *zap.Logger
	cfg    *config.Config

	listenAddr string

	genReq models.GenerationRequest
	dryRun bool
	outDir string
)

var rootCmd = &cobra.Command{
	Use:           "blog-agent",
	Short:         "blog-agent - research, write and publish blog posts to an Outstatic repository",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if cfg.Debug {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		return err
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(true); err != nil {
			return err
		}
		if listenAddr == "" {
			listenAddr = cfg.ListenAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		pipeline := buildPipeline(githubStore(ctx))

		if !cfg.Debug {
			gin.SetMode(gin.ReleaseMode)
		}
		api := handlers.NewAPI(pipeline, cfg.PipelineTimeout, logger)
		srv := &http.Server{
			Addr:    listenAddr,
			Handler: handlers.NewRouter(api, cfg.APIToken, logger),
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("server listening", zap.String("addr", listenAddr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the pipeline once for a topic",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(!dryRun); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		ctx, cancel := context.WithTimeout(ctx, cfg.PipelineTimeout)
		defer cancel()

		var store services.ContentStore
		if dryRun {
			local, err := services.NewLocalStore(outDir)
			if err != nil {
				return err
			}
			logger.Info("dry run, writing to local directory", zap.String("dir", outDir))
			store = local
		} else {
			store = githubStore(ctx)
		}

		res, runErr := buildPipeline(store).Run(ctx, genReq)

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return err
		}
		return runErr
	},
}

func githubStore(ctx context.Context) services.ContentStore {
	repo := services.GitHubRepo{Owner: cfg.GitHubOwner, Name: cfg.GitHubRepo, Branch: cfg.GitHubBranch}
	return services.NewGitHubClient(cfg.GitHubAPIURL, repo, cfg.GitToken, cfg.GitHubHTTPClient(ctx), logger)
}

func buildPipeline(store services.ContentStore) *services.Pipeline {
	llm := services.NewOpenAIClient(cfg.OpenAIAPIKey, cfg.Model, cfg.OpenAIBaseURL, &http.Client{Timeout: cfg.LLMTimeout}, logger)
	gen := services.NewGenerator(llm, services.GeneratorOptions{
		ResearchMaxTokens: cfg.ResearchMaxTokens,
		ArticleMaxTokens:  cfg.ArticleMaxTokens,
		Temperature:       cfg.Temperature,
	}, logger)
	layout := services.ContentLayout{Root: cfg.ContentRoot, Collection: cfg.Collection}
	pub := services.NewPublisher(store, layout, logger)
	return services.NewPipeline(gen, pub, layout, logger)
}

func main() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (default LISTEN_ADDR or :8000)")

	generateCmd.Flags().StringVar(&genReq.Topic, "topic", "", "topic to research and write about")
	generateCmd.Flags().StringVar(&genReq.AuthorName, "author-name", "", "author display name")
	generateCmd.Flags().StringVar(&genReq.AuthorPictureURL, "author-picture", "", "author picture URL")
	generateCmd.Flags().StringVar(&genReq.CoverImageURL, "cover-image", "", "cover image URL")
	generateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "write to a local directory instead of GitHub")
	generateCmd.Flags().StringVar(&outDir, "out", "./dry-run", "output directory for --dry-run")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(generateCmd)

	err := rootCmd.Execute()
	if logger != nil {
		logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
