package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"rms-be/config"
	"rms-be/controllers"
	"rms-be/middlewares"
	"rms-be/repository"
	"rms-be/routes"
	"rms-be/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	setupLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, db, err := config.ConnectDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			slog.Error("disconnect mongodb", "error", err)
		}
	}()

	if err := repository.EnsureIndexes(ctx, db); err != nil {
		return fmt.Errorf("ensure indexes: %w", err)
	}

	issueRepo := repository.NewIssueRepository(db)
	voteRepo := repository.NewVoteRepository(client, db)
	commentRepo := repository.NewCommentRepository(client, db)
	counterRepo := repository.NewCounterRepository(db)
	userRepo := repository.NewUserRepository(db)

	var sender services.Sender = services.NoopSender{}
	if cfg.SMTPHost != "" {
		smtpSender, err := services.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.EmailFrom)
		if err != nil {
			return err
		}
		sender = smtpSender
	} else {
		slog.Warn("SMTP_HOST not set, notification mail disabled")
	}
	notifier := services.NewNotifier(sender, userRepo, cfg.ClientURL)

	media, err := services.NewLocalMediaStore(cfg.UploadDir, cfg.PublicURL)
	if err != nil {
		return err
	}

	ids := services.NewIssueIDGenerator(counterRepo)
	issueService := services.NewIssueService(issueRepo, voteRepo, commentRepo, userRepo, ids, notifier)
	voteLedger := services.NewVoteLedger(issueRepo, voteRepo)
	commentService := services.NewCommentService(issueRepo, commentRepo, userRepo)
	engine := services.NewTransitionEngine(issueRepo, userRepo, notifier)
	authService := services.NewAuthService(userRepo, cfg.JWTSecret, cfg.JWTExpire)

	redisClient, err := config.ConnectRedis(ctx, cfg)
	if err != nil {
		return err
	}
	var issueLimiter gin.HandlerFunc
	if redisClient != nil {
		defer redisClient.Close()
		counter := middlewares.NewRedisRateCounter(redisClient, "rms:ratelimit")
		issueLimiter = middlewares.IssueRateLimiter(counter, cfg.IssueRateLimit, 24*time.Hour)
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.NewRouter(routes.Dependencies{
		Auth:            authService,
		AuthController:  controllers.NewAuthController(authService, cfg.Production()),
		IssueController: controllers.NewIssueController(issueService, voteLedger, commentService, media),
		AdminController: controllers.NewAdminController(issueService, engine),
		UserController:  controllers.NewUserController(authService),
		IssueLimiter:    issueLimiter,
		ClientURL:       cfg.ClientURL,
		UploadDir:       cfg.UploadDir,
		RequestTimeout:  cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", srv.Addr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	notifier.Wait()
	slog.Info("server stopped")
	return nil
}

func setupLogger(cfg config.Config) {
	var handler slog.Handler
	if cfg.Production() {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))
}
