package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"blog-agent/pkg/models"
	"blog-agent/pkg/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Runner executes one generation run.
type Runner interface {
	Run(ctx context.Context, req models.GenerationRequest) (*services.Result, error)
}

type API struct {
	runner  Runner
	timeout time.Duration
	logger  *zap.Logger
}

func NewAPI(runner Runner, timeout time.Duration, logger *zap.Logger) *API {
	return &API{runner: runner, timeout: timeout, logger: logger}
}

type runResponse struct {
	Result           string  `json:"result"`
	ExecutionTime    float64 `json:"execution_time"`
	Slug             string  `json:"slug"`
	Path             string  `json:"path"`
	BlogURL          string  `json:"blog_url"`
	ArticlePublished bool    `json:"article_published"`
	ManifestUpdated  bool    `json:"manifest_updated"`
}

func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Blog agent API is running"})
}

func (a *API) RunAgent(c *gin.Context) {
	var req models.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "Invalid JSON"})
		return
	}

	// A client disconnect must not stop a run halfway through publishing.
	ctx := context.WithoutCancel(c.Request.Context())
	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := a.runner.Run(ctx, req)
	elapsed := time.Since(start)

	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			c.JSON(http.StatusBadRequest, gin.H{"detail": verr.Error(), "stage": string(services.StageValidating)})
			return
		}

		body := gin.H{"detail": err.Error()}
		if res != nil {
			body["stage"] = string(res.FailedAt)
			body["article_published"] = res.ArticlePublished
			body["manifest_updated"] = res.ManifestUpdated
			if res.ArticlePublished {
				body["blog_url"] = res.BlogURL
				body["path"] = res.Path
			}
		}
		a.logger.Error("run-agent failed", zap.String("request_id", RequestID(c)), zap.Error(err))
		c.JSON(http.StatusInternalServerError, body)
		return
	}

	c.JSON(http.StatusOK, runResponse{
		Result:           services.SuccessMessage,
		ExecutionTime:    elapsed.Seconds(),
		Slug:             res.Slug,
		Path:             res.Path,
		BlogURL:          res.BlogURL,
		ArticlePublished: res.ArticlePublished,
		ManifestUpdated:  res.ManifestUpdated,
	})
}

// NewRouter wires the API routes. apiToken guards /run-agent when set.
func NewRouter(api *API, apiToken string, logger *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestIDMiddleware(), AccessLog(logger))

	r.GET("/", api.Health)

	authorized := r.Group("/")
	authorized.Use(TokenRequired(apiToken))
	{
		authorized.POST("/run-agent", api.RunAgent)
	}
	return r
}
