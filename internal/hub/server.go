package hub

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/kobbyadu/consulta/internal/notify"
	"github.com/kobbyadu/consulta/pkg/observability"
)

// Server upgrades HTTP requests to authenticated hub sessions. The token is
// issued by the auth service (external collaborator); we only verify it and
// read the identity claims.
type Server struct {
	hub      *Hub
	secret   []byte
	upgrader websocket.Upgrader
	logger   *observability.Logger
}

func NewServer(h *Hub, jwtSecret string, logger *observability.Logger) *Server {
	return &Server{
		hub:    h,
		secret: []byte(jwtSecret),
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // same-origin policy is enforced upstream by the gateway
			},
		},
	}
}

// HandleWS is the websocket endpoint. On success the session has joined
// its identity rooms before the first frame can be emitted; reconnecting
// clients rejoin the same way, with no backlog replay.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	identity, err := s.authenticate(r)
	if err != nil {
		s.logger.Warn("websocket auth failed", "error", err, "remote", r.RemoteAddr)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	sess := newSession(s.hub, conn, identity)
	s.hub.join(sess)
	s.logger.Info("session connected", "user_id", identity.UserID, "role", identity.Role)

	go sess.writePump()
	go sess.readPump()
}

// authenticate pulls the JWT from the Authorization header or, for browser
// clients that cannot set headers on websocket dials, the token query
// parameter.
func (s *Server) authenticate(r *http.Request) (notify.Identity, error) {
	raw := r.URL.Query().Get("token")
	if auth := r.Header.Get("Authorization"); auth != "" {
		raw = strings.TrimPrefix(auth, "Bearer ")
	}
	if raw == "" {
		return notify.Identity{}, fmt.Errorf("no token supplied")
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return notify.Identity{}, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return notify.Identity{}, fmt.Errorf("invalid token")
	}

	identity := notify.Identity{}
	if sub, ok := claims["sub"].(string); ok {
		identity.UserID = sub
	}
	if email, ok := claims["email"].(string); ok {
		identity.Email = email
	}
	if role, ok := claims["role"].(string); ok {
		identity.Role = notify.Role(role)
	}
	if identity.UserID == "" {
		return notify.Identity{}, fmt.Errorf("token has no subject")
	}
	return identity, nil
}

// IssueToken mints an identity token. Production tokens come from the auth
// service; this exists for the CLI client and tests.
func IssueToken(secret string, identity notify.Identity) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   identity.UserID,
		"email": identity.Email,
		"role":  string(identity.Role),
	})
	return token.SignedString([]byte(secret))
}
