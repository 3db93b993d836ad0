package ws

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/Zimam07/Sonjog/internal/domain"
)

// TokenCookie is the cookie carrying the session token for browser clients.
const TokenCookie = "token"

// Authenticator resolves a session token to its user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*domain.User, error)
}

var errMissingToken = errors.New("missing session token")

// originKey reduces an Origin value to lower-case scheme://host.
func originKey(origin string) (string, bool) {
	u, err := url.Parse(strings.ToLower(strings.TrimSpace(origin)))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return u.Scheme + "://" + u.Host, true
}

// originPolicy admits handshakes whose Origin is in the allow list. An empty
// list admits nothing, and so does a request without an Origin header.
type originPolicy map[string]struct{}

func newOriginPolicy(origins []string) originPolicy {
	p := make(originPolicy, len(origins))
	for _, o := range origins {
		if key, ok := originKey(o); ok {
			p[key] = struct{}{}
		}
	}
	return p
}

func (p originPolicy) allows(r *http.Request) bool {
	key, ok := originKey(r.Header.Get("Origin"))
	if !ok {
		return false
	}
	_, ok = p[key]
	return ok
}

// TokenFromRequest extracts the session token from the token cookie, an
// Authorization bearer header, or a "bearer, <token>" websocket subprotocol.
func TokenFromRequest(r *http.Request) (string, error) {
	if c, err := r.Cookie(TokenCookie); err == nil {
		if tok := strings.TrimSpace(c.Value); tok != "" {
			return tok, nil
		}
	}

	scheme, tok, found := strings.Cut(strings.TrimSpace(r.Header.Get("Authorization")), " ")
	if found && strings.EqualFold(scheme, "bearer") {
		if tok = strings.TrimSpace(tok); tok != "" {
			return tok, nil
		}
	}

	// Browsers cannot set headers on a websocket handshake.
	if protos := websocket.Subprotocols(r); len(protos) >= 2 && strings.EqualFold(protos[0], "bearer") && protos[1] != "" {
		return protos[1], nil
	}

	return "", errMissingToken
}

// MakeHandler returns the /ws endpoint. The handshake is authenticated; the
// connection stays offline for routing until the client sends register.
func MakeHandler(hub *Hub, auth Authenticator, allowedOrigins []string, sendBuffer int, log *slog.Logger) http.HandlerFunc {
	origins := newOriginPolicy(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin:  origins.allows,
		Subprotocols: []string{"bearer"},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !origins.allows(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr, err := TokenFromRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		user, err := auth.Authenticate(r.Context(), tokenStr)
		if err != nil {
			http.Error(w, "invalid session", http.StatusUnauthorized)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Debug("ws: upgrade failed", "user", user.ID, "err", err)
			return
		}

		client := newClient(conn, user.ID, sendBuffer)
		hub.conns.Add(client)
		log.Debug("ws: connected", "conn", client.id, "user", user.ID)

		go client.writePump()
		client.readPump(hub)
	}
}
