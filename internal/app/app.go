package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	httpapi "github.com/immxrtalbeast/studyroom/internal/api/http"
	"github.com/immxrtalbeast/studyroom/internal/auth"
	"github.com/immxrtalbeast/studyroom/internal/config"
	"github.com/immxrtalbeast/studyroom/internal/repository"
	"github.com/immxrtalbeast/studyroom/internal/service"
	"github.com/immxrtalbeast/studyroom/internal/storage"
	"github.com/immxrtalbeast/studyroom/lib/logger/sl"
	"gorm.io/gorm"
)

const (
	providerOIDC = "oidc"
	providerHMAC = "hmac"
)

// App owns every long-lived resource of the server.
type App struct {
	cfg     *config.Config
	log     *slog.Logger
	db      *gorm.DB
	chatLog *repository.BuntChatLog
	server  *http.Server
}

func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	db, err := openDatabase(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	a := &App{cfg: cfg, log: log, db: db}

	if cfg.Database.AutoMigrate {
		if err := repository.Migrate(db); err != nil {
			a.Close()
			return nil, fmt.Errorf("migrate database: %w", err)
		}
		log.Info("database migrated")
	}

	verifier, err := newVerifier(ctx, cfg.Auth, log)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("identity verifier: %w", err)
	}

	if err := ensureParentDir(cfg.Chat.StorePath); err != nil {
		a.Close()
		return nil, fmt.Errorf("chat store dir: %w", err)
	}
	chatLog, err := repository.NewBuntChatLog(cfg.Chat.StorePath)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open chat store: %w", err)
	}
	a.chatLog = chatLog

	blobs, err := storage.NewLocalStore(cfg.Media.Dir)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("open media store: %w", err)
	}

	handler := NewHandler(cfg, log, Dependencies{
		Users:       repository.NewPostgresUserRepository(db),
		Rooms:       repository.NewPostgresRoomRepository(db),
		Memberships: repository.NewPostgresMembershipRepository(db),
		Media:       repository.NewPostgresMediaRepository(db),
		MindMaps:    repository.NewPostgresMindMapRepository(db),
		ChatLog:     chatLog,
		Blobs:       blobs,
		Verifier:    verifier,
	})

	a.server = newServer(cfg.HTTP, handler)
	return a, nil
}

// newServer bounds only the header read by default: uploads and downloads
// run up to the media size limit and must not be cut off mid-body.
func newServer(cfg config.HTTPConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// openDatabase creates the directory of a file-backed sqlite database first.
func openDatabase(cfg config.DatabaseConfig, log *slog.Logger) (*gorm.DB, error) {
	if cfg.Driver == "sqlite" && !strings.HasPrefix(cfg.DSN, "file:") {
		if err := ensureParentDir(cfg.DSN); err != nil {
			return nil, fmt.Errorf("database dir: %w", err)
		}
	}
	db, err := repository.Open(cfg, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return db, nil
}

func ensureParentDir(path string) error {
	if path == "" || path == ":memory:" {
		return nil
	}
	return os.MkdirAll(filepath.Dir(path), 0o755)
}

// Dependencies are the storage and identity backends the HTTP handler is built on.
type Dependencies struct {
	Users       repository.UserRepository
	Rooms       repository.RoomRepository
	Memberships repository.MembershipRepository
	Media       repository.MediaRepository
	MindMaps    repository.MindMapRepository
	ChatLog     repository.ChatLog
	Blobs       service.BlobStore
	Verifier    auth.Verifier
}

// NewHandler wires services and controllers into a router.
func NewHandler(cfg *config.Config, log *slog.Logger, deps Dependencies) http.Handler {
	userService := service.NewUserService(deps.Users, deps.Verifier, log)
	roomService := service.NewRoomService(deps.Rooms, deps.Memberships, log)
	membershipService := service.NewMembershipService(deps.Rooms, deps.Memberships, log)
	chatService := service.NewChatService(deps.ChatLog, membershipService, cfg.Chat.HistoryLimit, log)
	mediaService := service.NewMediaService(deps.Rooms, deps.Media, deps.Blobs, membershipService, service.MediaOptions{
		MaxSize:           cfg.Media.MaxSize,
		AllowedExtensions: cfg.Media.AllowedExtensions,
	}, log)
	mindMapService := service.NewMindMapService(deps.MindMaps, membershipService, log)

	return httpapi.SetupRouter(
		httpapi.RouterOptions{CORS: cfg.CORS, RateLimit: cfg.RateLimit, Log: log},
		httpapi.Controllers{
			Users:       httpapi.NewUserController(userService, log),
			Rooms:       httpapi.NewRoomController(roomService, log),
			Memberships: httpapi.NewMembershipController(membershipService, log),
			Chat:        httpapi.NewChatController(chatService, cfg.CORS.AllowOrigins, log),
			Media:       httpapi.NewMediaController(mediaService, cfg.Media.MaxSize, log),
			MindMaps:    httpapi.NewMindMapController(mindMapService, log),
			Auth:        httpapi.NewAuthMiddleware(userService, log),
		},
	)
}

func newVerifier(ctx context.Context, cfg config.AuthConfig, log *slog.Logger) (auth.Verifier, error) {
	switch cfg.Provider {
	case providerHMAC:
		hmacVerifier, err := auth.NewHMACVerifier(cfg.HMACSecret)
		if err != nil {
			return nil, err
		}
		return hmacVerifier, nil
	case providerOIDC:
		oidcVerifier, err := auth.NewOIDCVerifier(ctx, cfg.IssuerURL, cfg.ClientID)
		if err != nil {
			return nil, err
		}
		return auth.NewBreakerVerifier(oidcVerifier, auth.BreakerSettings{
			Name:             "oidc",
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
			FailureThreshold: cfg.Breaker.FailureThreshold,
		}, log), nil
	default:
		return nil, fmt.Errorf("unknown auth provider %q", cfg.Provider)
	}
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.log.Info("starting http server", slog.String("addr", a.server.Addr), slog.String("env", a.cfg.Env))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	a.log.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func (a *App) Close() {
	if a.chatLog != nil {
		if err := a.chatLog.Close(); err != nil {
			a.log.Error("failed to close chat store", sl.Err(err))
		}
	}
	if a.db != nil {
		if sqlDB, err := a.db.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				a.log.Error("failed to close database", sl.Err(err))
			}
		}
	}
}

// MigrateOnly applies the schema and exits.
func MigrateOnly(cfg *config.Config, log *slog.Logger) error {
	start := time.Now()
	db, err := openDatabase(cfg.Database, log)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	if err := repository.Migrate(db); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	log.Info("database migrated", slog.String("driver", cfg.Database.Driver), slog.Duration("took", time.Since(start)))
	return nil
}
