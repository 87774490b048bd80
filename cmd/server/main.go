package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/andmorefine/clay-community-site/internal/activity"
	"github.com/andmorefine/clay-community-site/internal/auditlog"
	"github.com/andmorefine/clay-community-site/internal/content"
	"github.com/andmorefine/clay-community-site/internal/email"
	"github.com/andmorefine/clay-community-site/internal/health"
	"github.com/andmorefine/clay-community-site/internal/identity"
	"github.com/andmorefine/clay-community-site/internal/moderation/handler"
	"github.com/andmorefine/clay-community-site/internal/moderation/service"
	"github.com/andmorefine/clay-community-site/internal/spam"
	"github.com/andmorefine/clay-community-site/internal/users"
	"github.com/andmorefine/clay-community-site/internal/webhooks"
)

func main() {
	if err := loadConfig(); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(viper.GetBool("log.development"))
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("server exited with error", zap.Error(err))
	}
}

func newLogger(development bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// ── Configuration ────────────────────────────────────────────────────────────

func loadConfig() error {
	viper.SetConfigName("clay")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.rate_limit_rps", 20)
	viper.SetDefault("database.url", "")
	viper.SetDefault("redis.url", "redis://localhost:6379/0")
	viper.SetDefault("activity.backend", "postgres")
	viper.SetDefault("auth.jwt_secret", "")
	viper.SetDefault("auth.token_ttl", "24h")
	viper.SetDefault("auth.issuer", "clay-community")
	viper.SetDefault("moderation.system_actor_id", "00000000-0000-0000-0000-000000000001")
	viper.SetDefault("audit.backend", "postgres")
	viper.SetDefault("webhooks.enabled", true)
	viper.SetDefault("log.development", false)
	viper.SetDefault("health.interval", "30s")
	viper.SetDefault("bootstrap.moderator_email", "")
	viper.SetDefault("bootstrap.moderator_password", "")
	viper.SetDefault("email.smtp_host", "")
	viper.SetDefault("email.smtp_port", 587)
	viper.SetDefault("email.smtp_username", "")
	viper.SetDefault("email.smtp_password", "")
	viper.SetDefault("email.from_address", "moderation@clay.local")

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

func run(logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	systemActor, err := uuid.Parse(viper.GetString("moderation.system_actor_id"))
	if err != nil {
		return fmt.Errorf("moderation.system_actor_id: %w", err)
	}

	// ── Storage ──────────────────────────────────────────────────────────────
	var st *stores
	if dbURL := viper.GetString("database.url"); dbURL != "" {
		st, err = postgresStores(ctx, dbURL, logger)
	} else {
		logger.Warn("database.url not set, using in-memory storage; data is lost on restart")
		st, err = memoryStores(ctx, systemActor,
			viper.GetString("bootstrap.moderator_email"), viper.GetString("bootstrap.moderator_password"))
	}
	if err != nil {
		return err
	}
	defer st.close()

	if viper.GetString("audit.backend") == "memory" {
		st.ledger = auditlog.NewMemoryLog()
	}
	if err := st.ledger.Verify(ctx); err != nil {
		logger.Warn("moderation audit integrity check FAILED", zap.Error(err))
	} else {
		n, _ := st.ledger.Len(ctx)
		logger.Info("moderation audit verified", zap.Int("entries", n))
	}

	counter, err := activityCounter(ctx, viper.GetString("activity.backend"), viper.GetString("redis.url"), logger)
	if err != nil {
		return fmt.Errorf("activity counter: %w", err)
	}
	var scorerActivity spam.ActivityCounter = st.content
	if counter != nil {
		scorerActivity = activity.ScorerAdapter{Counter: counter}
	}

	// ── Health ───────────────────────────────────────────────────────────────
	healthInterval, err := time.ParseDuration(viper.GetString("health.interval"))
	if err != nil {
		return fmt.Errorf("health.interval: %w", err)
	}
	checker := health.New(health.Config{CheckInterval: healthInterval}, logger)
	checker.SetMetricsRecord(handler.RecordHealthCheck)
	for name, p := range st.probes {
		checker.Add(name, p)
	}
	checker.Add("audit", st.ledger.Verify)
	if rc, ok := counter.(*activity.RedisCounter); ok {
		checker.Add("redis", func(ctx context.Context) error { return rc.Client.Ping(ctx).Err() })
	}
	go checker.Start(ctx)

	// ── Identity ─────────────────────────────────────────────────────────────
	tokenTTL, err := time.ParseDuration(viper.GetString("auth.token_ttl"))
	if err != nil {
		return fmt.Errorf("auth.token_ttl: %w", err)
	}
	tokens, err := identity.NewUserTokenIssuer(viper.GetString("auth.jwt_secret"), viper.GetString("auth.issuer"), tokenTTL)
	if err != nil {
		return fmt.Errorf("auth.jwt_secret: %w", err)
	}

	// ── Moderation core ──────────────────────────────────────────────────────
	engine, err := service.NewDecisionEngine(st.reports, st.users, spam.NewBehaviorScorer(scorerActivity, logger), systemActor, logger)
	if err != nil {
		return err
	}
	if err := engine.CheckSystemActor(ctx); err != nil {
		return err
	}

	targets := service.NewTargetResolver(st.users, st.content)
	actionSvc := service.NewActionService(st.actions, st.users, logger)
	reportSvc := service.NewReportService(st.reports, st.users, targets, actionSvc, logger)
	appealSvc := service.NewAppealService(st.appeals, st.users, targets, actionSvc, logger)
	overviewSvc := service.NewOverviewService(reportSvc, actionSvc, appealSvc)

	engine.SetAuditLog(st.ledger)
	actionSvc.SetAuditLog(st.ledger)
	reportSvc.SetAuditLog(st.ledger)
	appealSvc.SetAuditLog(st.ledger)

	// ── Event sinks ──────────────────────────────────────────────────────────
	var mailer email.EmailSender
	if smtpHost := viper.GetString("email.smtp_host"); smtpHost != "" {
		mailer = email.NewSMTPSender(email.SMTPConfig{
			Host:     smtpHost,
			Port:     viper.GetInt("email.smtp_port"),
			Username: viper.GetString("email.smtp_username"),
			Password: viper.GetString("email.smtp_password"),
			From:     viper.GetString("email.from_address"),
		})
		logger.Info("SMTP email sender configured", zap.String("host", smtpHost))
	} else {
		mailer = email.NewNoopSender(logger)
		logger.Info("email sender: noop (set email.smtp_host to enable SMTP)")
	}
	mail := email.NewNotifier(mailer, st.users, logger)
	sinks := service.Dispatchers{mail}

	var hooks *webhooks.Service
	if viper.GetBool("webhooks.enabled") {
		hooks = webhooks.NewService(st.webhooks, logger)
		hooks.SetMetricsRecorder(handler.RecordWebhookDelivery)
		sinks = append(sinks, hooks)
		logger.Info("webhook delivery enabled")
	}
	engine.SetEventDispatcher(sinks)
	actionSvc.SetEventDispatcher(sinks)
	reportSvc.SetEventDispatcher(sinks)
	appealSvc.SetEventDispatcher(sinks)

	// ── Collaborators ────────────────────────────────────────────────────────
	userSvc := users.NewUserService(st.users, logger)
	userSvc.SetModerator(engine)
	contentSvc := content.NewService(st.content, logger)
	contentSvc.SetModerator(engine)
	if counter != nil {
		contentSvc.SetActivityCounter(counter)
	}

	// ── HTTP Router ──────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsOrigins := viper.GetStringSlice("server.cors_origins")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(corsOrigins),
		MaxAge:           12 * time.Hour,
	}))

	router.Use(func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Request body size limit (1 MB)
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<20)
		c.Next()
	})

	if rps := viper.GetFloat64("server.rate_limit_rps"); rps > 0 {
		router.Use(handler.RateLimiter(ctx, rps, int(rps*2)))
	}
	router.Use(handler.PrometheusMiddleware())
	router.Use(requestLogger(logger))

	router.GET("/healthz", checker.Handler())
	router.GET("/metrics", handler.MetricsHandler())

	v1 := router.Group("/api/v1")
	user := v1.Group("", identity.RequireUser(tokens))
	mod := v1.Group("", identity.RequireModerator(tokens))
	admin := v1.Group("/admin", identity.RequireModerator(tokens))

	users.NewHandler(userSvc, tokens, logger).Register(v1)
	content.NewHandler(contentSvc, logger).Register(v1, user)
	handler.NewReportHandler(reportSvc, logger).Register(user, admin)
	handler.NewAppealHandler(appealSvc, logger).Register(user, admin)
	handler.NewAdminHandler(overviewSvc, actionSvc, reportSvc, userSvc, st.ledger, logger).Register(admin)
	handler.NewScoreHandler(engine, st.users, logger).Register(mod)
	if hooks != nil {
		webhooks.NewHandler(hooks, logger).Register(mod)
	}

	httpPort := viper.GetInt("server.port")
	httpSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("clay HTTP listening", zap.Int("port", httpPort))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	select {
	case err := <-serveErr:
		return fmt.Errorf("HTTP listen: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}
	if hooks != nil {
		hooks.Wait()
	}
	mail.Wait()

	logger.Info("server stopped")
	return nil
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
