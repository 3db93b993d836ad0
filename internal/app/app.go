// Package app wires configuration, storage, realtime delivery and the HTTP API
// into one runnable server.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/redis/go-redis/v9"

	"github.com/Zimam07/Sonjog/internal/config"
	"github.com/Zimam07/Sonjog/internal/domain"
	"github.com/Zimam07/Sonjog/internal/httpserver"
	"github.com/Zimam07/Sonjog/internal/realtime"
	"github.com/Zimam07/Sonjog/internal/security"
	"github.com/Zimam07/Sonjog/internal/service"
	"github.com/Zimam07/Sonjog/internal/store/postgres"
	"github.com/Zimam07/Sonjog/internal/store/sqlite"
	"github.com/Zimam07/Sonjog/internal/ws"
)

// App is a fully wired server. Handler is safe to serve once Run has started.
type App struct {
	Handler http.Handler

	hub   *ws.Hub
	conns *ws.Conns
	db    *sql.DB
	redis *redis.Client
	log   *slog.Logger
}

type repositories struct {
	users         domain.UserRepository
	conversations domain.ConversationGateway
	groups        domain.GroupRepository
	invites       domain.InviteRepository
	notifications domain.NotificationRepository
}

// New opens the configured stores and builds the handler tree.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	db, repos, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	a := &App{db: db, log: log}

	presence, roomStore, err := a.openPresence(ctx, cfg)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	tokens := security.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL())
	hasher := security.NewPasswordHasher(0)
	encryptor, err := security.NewEncryptor(cfg.EncryptKey, cfg.LegacyEncryptKeys)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("init encryptor: %w", err)
	}

	a.conns = ws.NewConns(log)
	rooms := realtime.NewRooms(roomStore, a.conns, log)
	router := realtime.NewRouter(presence, rooms, a.conns, log)
	typing := realtime.NewTypingRelay(presence, a.conns, log)
	a.hub = ws.NewHub(a.conns, presence, rooms, typing, repos.groups, log)

	svc := httpserver.Services{
		Auth:          service.NewAuthService(repos.users, tokens, hasher),
		Users:         service.NewUserService(repos.users, presence),
		Messages:      service.NewMessageService(repos.conversations, repos.users, repos.groups, encryptor, router, log, cfg.HistoryLimit),
		Groups:        service.NewGroupService(repos.groups, repos.invites, repos.notifications, repos.users, router, log),
		Notifications: service.NewNotificationService(repos.notifications),
	}
	wsHandler := ws.MakeHandler(a.hub, svc.Auth, cfg.CORSOrigins, cfg.WSSendBuffer, log)
	a.Handler = httpserver.NewRouter(cfg, svc, wsHandler)
	return a, nil
}

// Run processes websocket events until ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	a.hub.Run(ctx)
}

// Close hangs up live connections and releases the stores.
func (a *App) Close() error {
	if a.conns != nil {
		a.conns.CloseAll()
	}
	var errs []error
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}

func openStore(cfg *config.Config) (*sql.DB, repositories, error) {
	switch cfg.DBDriver {
	case "postgres":
		db, err := postgres.Open(cfg.PostgresURL())
		if err != nil {
			return nil, repositories{}, err
		}
		if err := postgres.Migrate(db); err != nil {
			_ = db.Close()
			return nil, repositories{}, fmt.Errorf("migrate postgres: %w", err)
		}
		return db, repositories{
			users:         postgres.NewUserRepo(db),
			conversations: postgres.NewConversationRepo(db),
			groups:        postgres.NewGroupRepo(db),
			invites:       postgres.NewInviteRepo(db),
			notifications: postgres.NewNotificationRepo(db),
		}, nil
	default:
		db, err := sqlite.Open(cfg.SQLiteDSN)
		if err != nil {
			return nil, repositories{}, err
		}
		if err := sqlite.Migrate(db); err != nil {
			_ = db.Close()
			return nil, repositories{}, fmt.Errorf("migrate sqlite: %w", err)
		}
		return db, repositories{
			users:         sqlite.NewUserRepo(db),
			conversations: sqlite.NewConversationRepo(db),
			groups:        sqlite.NewGroupRepo(db),
			invites:       sqlite.NewInviteRepo(db),
			notifications: sqlite.NewNotificationRepo(db),
		}, nil
	}
}

func (a *App) openPresence(ctx context.Context, cfg *config.Config) (realtime.PresenceStore, realtime.RoomStore, error) {
	if cfg.PresenceBackend != "redis" {
		return realtime.NewMemoryPresence(), realtime.NewMemoryRooms(), nil
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return nil, nil, fmt.Errorf("ping redis at %s: %w", cfg.RedisAddr, err)
	}
	a.log.Info("presence backed by redis", "addr", cfg.RedisAddr, "prefix", cfg.RedisKeyPrefix)
	return realtime.NewRedisPresence(a.redis, cfg.RedisKeyPrefix), realtime.NewRedisRooms(a.redis, cfg.RedisKeyPrefix), nil
}
