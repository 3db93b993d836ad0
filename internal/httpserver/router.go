package httpserver

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/Zimam07/Sonjog/docs"
	"github.com/Zimam07/Sonjog/internal/config"
	"github.com/Zimam07/Sonjog/internal/service"
)

// Services bundles the application services the HTTP API is built on.
type Services struct {
	Auth          *service.AuthService
	Users         *service.UserService
	Messages      *service.MessageService
	Groups        *service.GroupService
	Notifications *service.NotificationService
}

// NewRouter constructs the main HTTP router and wires routes and middleware.
// wsHandler serves the websocket endpoint.
func NewRouter(cfg *config.Config, svc Services, wsHandler http.Handler) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	cookies := sessionCookies{ttl: cfg.AccessTokenTTL(), secure: cfg.SecureCookies}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"message": cfg.AppName,
			"version": "1.0.0",
			"docs":    "/docs/index.html",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
	})

	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/docs/doc.json"),
	))

	// The websocket must not sit behind the request timeout.
	r.Handle("/ws", wsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", handleRegister(svc.Auth, cookies))
			r.Post("/login", handleLogin(svc.Auth, cookies))

			r.Group(func(r chi.Router) {
				r.Use(AuthMiddleware(svc.Auth))
				r.Post("/logout", handleLogout(cookies))
				r.Get("/me", handleMe())
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(svc.Auth))

			r.Route("/users", func(r chi.Router) {
				r.Get("/online", handleListOnlineUsers(svc.Users))
				r.Get("/{userID}", handleGetUser(svc.Users))
			})

			r.Route("/message", func(r chi.Router) {
				r.Post("/send/{userID}", handleSendDirect(svc.Messages))
				r.Get("/all/{userID}", handleDirectHistory(svc.Messages))
				r.Post("/group/{groupID}/send", handleSendGroup(svc.Messages))
				r.Get("/group/{groupID}/all", handleGroupHistory(svc.Messages))
			})

			r.Route("/group", func(r chi.Router) {
				r.Post("/", handleCreateGroup(svc.Groups))
				r.Get("/mine", handleMyGroups(svc.Groups))
				r.Post("/invite/send", handleSendInvite(svc.Groups))
				r.Get("/invites/pending", handlePendingInvites(svc.Groups))
				r.Post("/invite/{inviteID}/accept", handleAcceptInvite(svc.Groups))
				r.Post("/invite/{inviteID}/reject", handleRejectInvite(svc.Groups))
				r.Post("/member/remove", handleRemoveMember(svc.Groups))
				r.Post("/{groupID}/join", handleJoinGroup(svc.Groups))
				r.Post("/{groupID}/leave", handleLeaveGroup(svc.Groups))
				r.Put("/{groupID}", handleUpdateGroup(svc.Groups))
			})

			r.Route("/notification", func(r chi.Router) {
				r.Get("/", handleListNotifications(svc.Notifications))
				r.Delete("/", handleClearNotifications(svc.Notifications))
				r.Get("/group-invites", handleGroupInviteNotifications(svc.Notifications))
				r.Post("/{notificationID}/read", handleMarkNotificationRead(svc.Notifications))
			})
		})
	})

	return r
}

// writeJSON is a small helper to send JSON responses.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
