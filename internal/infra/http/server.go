package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"docseal/internal/config"
	"docseal/internal/domain"
	"docseal/internal/infra/crypto"
	"docseal/internal/infra/db"
	"docseal/internal/infra/policyopa"
	"docseal/internal/infra/ratelimit"
	"docseal/internal/logging"
	"docseal/internal/usecase"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	cfg    config.Config
	store  *db.Store
	r      *gin.Engine
	logger *zap.Logger

	issueUC   *usecase.IssueDocument
	signUC    *usecase.SignDocument
	verifyUC  *usecase.VerifyDocument
	counters  *usecase.CounterAdmin
	documents *usecase.DocumentAdmin

	adminAPIKey string

	rateLimiter         domain.RateLimiter
	rateLimitRequests   int
	rateLimitWindow     time.Duration
	rateLimitFailClosed bool
}

// NewServer wires the repositories, signing engine and use cases from cfg.
// It fails when the signing secret or policy cannot be loaded.
func NewServer(ctx context.Context, cfg config.Config, store *db.Store, logger *zap.Logger) (*Server, error) {
	if store == nil || store.DB == nil {
		return nil, errors.New("store is required")
	}
	logger = logging.OrNop(logger)

	engine, err := crypto.NewHMACEngine(cfg.SigningSecret)
	if err != nil {
		return nil, err
	}
	var policy usecase.SigningPolicy
	if cfg.SigningPolicyEnabled {
		pe, err := loadPolicy(ctx, cfg.SigningPolicyPath)
		if err != nil {
			return nil, err
		}
		logger.Info("signing policy loaded", zap.String("policy_hash", pe.PolicyHash()))
		policy = pe
	}

	retry := usecase.RetryPolicy{MaxAttempts: cfg.RetryMaxAttempts, Backoff: cfg.RetryBackoff()}
	documents := db.NewDocumentRepository(store.DB)
	counters := db.NewCounterRepository(store.DB)

	s := NewServerWithDeps(cfg, ServerDeps{
		Issue:       usecase.NewIssueDocument(documents, counters, retry, logger),
		Sign:        usecase.NewSignDocument(documents, engine, policy, cfg.VerifyBaseURL, retry, logger),
		Verify:      usecase.NewVerifyDocument(documents, engine, retry, logger),
		Counters:    usecase.NewCounterAdmin(counters, logger),
		Documents:   usecase.NewDocumentAdmin(documents, logger),
		AdminAPIKey: cfg.AdminAPIKey,
		Logger:      logger,
	})
	s.store = store
	return s, nil
}

func loadPolicy(ctx context.Context, path string) (*policyopa.Engine, error) {
	if path != "" {
		return policyopa.NewEngineFromFile(ctx, path)
	}
	return policyopa.NewEngine(ctx)
}

type ServerDeps struct {
	Issue       *usecase.IssueDocument
	Sign        *usecase.SignDocument
	Verify      *usecase.VerifyDocument
	Counters    *usecase.CounterAdmin
	Documents   *usecase.DocumentAdmin
	AdminAPIKey string
	RateLimiter domain.RateLimiter
	Logger      *zap.Logger
}

func NewServerWithDeps(cfg config.Config, deps ServerDeps) *Server {
	logger := logging.OrNop(deps.Logger)
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), requestLogger(logger))

	s := &Server{
		cfg:         cfg,
		r:           r,
		logger:      logger,
		issueUC:     deps.Issue,
		signUC:      deps.Sign,
		verifyUC:    deps.Verify,
		counters:    deps.Counters,
		documents:   deps.Documents,
		adminAPIKey: deps.AdminAPIKey,
	}
	s.initRateLimit(deps.RateLimiter)
	s.routes()
	return s
}

func (s *Server) initRateLimit(override domain.RateLimiter) {
	if override != nil {
		s.rateLimiter = override
	}
	if s.rateLimiter == nil && s.cfg.RateLimitRequests > 0 {
		if s.cfg.RedisAddr != "" {
			limiter, err := ratelimit.NewRedisLimiter(ratelimit.RedisConfig{
				Addr:     s.cfg.RedisAddr,
				Password: s.cfg.RedisPassword,
				DB:       s.cfg.RedisDB,
			})
			if err == nil {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				if err := limiter.Ping(ctx); err != nil {
					s.logger.Warn("redis rate limiter unreachable", zap.String("addr", s.cfg.RedisAddr), zap.Error(err))
				}
				cancel()
				s.rateLimiter = limiter
			}
		}
		if s.rateLimiter == nil {
			s.rateLimiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{
				MaxKeys: s.cfg.RateLimitMaxKeys,
			})
		}
	}
	s.rateLimitRequests = s.cfg.RateLimitRequests
	s.rateLimitWindow = s.cfg.RateLimitWindow()
	if s.rateLimitWindow <= 0 {
		s.rateLimitWindow = time.Minute
	}
	s.rateLimitFailClosed = s.cfg.RateLimitFailClosed
}

func (s *Server) routes() {
	s.r.GET("/healthz", s.handleHealth)

	v1 := s.r.Group("/v1")
	{
		v1.POST("/documents", s.handleIssue)
		v1.POST("/documents/sign", s.handleSign)
		v1.GET("/documents/:id", s.handleGetDocument)
		v1.PUT("/documents/:id/workflow", s.handleUpdateWorkflow)
		v1.GET("/verify", s.handleVerify)

		v1.GET("/counters/peek", s.handlePeekCounter)
		v1.POST("/counters/reset", s.handleResetCounter)
	}

	s.r.NoRoute(func(c *gin.Context) {
		writeErrorCode(c, http.StatusNotFound, "NOT_FOUND", "route not found")
	})
}

func (s *Server) Handler() http.Handler {
	return s.r
}

// Run serves until ctx is cancelled, then drains in-flight requests within
// the configured shutdown timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if closer, ok := s.rateLimiter.(io.Closer); ok {
		defer closer.Close()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		timeout := s.cfg.ShutdownTimeout()
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		s.logger.Info("http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
