// Package api is the polling fallback and ops surface. When a client
// exhausts its websocket reconnect budget it refreshes durable booking
// state from here instead of waiting for pushes.
package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/kobbyadu/consulta/internal/booking"
	"github.com/kobbyadu/consulta/internal/notify"
	"github.com/kobbyadu/consulta/pkg/jsonutil"
	"github.com/kobbyadu/consulta/pkg/observability"
)

type Server struct {
	bookings   booking.Repository
	dispatcher *notify.Dispatcher
	logger     *observability.Logger
}

func NewServer(bookings booking.Repository, dispatcher *notify.Dispatcher, logger *observability.Logger) *Server {
	return &Server{bookings: bookings, dispatcher: dispatcher, logger: logger}
}

// Routes mounts the REST surface. The websocket endpoint is mounted by the
// caller so this package stays free of transport internals.
func (s *Server) Routes(r *mux.Router) {
	r.Handle("/api/v1/bookings/upcoming", otelhttp.NewHandler(http.HandlerFunc(s.UpcomingBookings), "UpcomingBookings")).Methods("GET")
	r.Handle("/api/v1/events/test", otelhttp.NewHandler(http.HandlerFunc(s.EmitTestEvent), "EmitTestEvent")).Methods("POST")
	r.HandleFunc("/healthz", s.Health).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// UpcomingBookings lists confirmed sessions in the next `hours` hours
// (default 48). This is the manual-refresh path: it re-derives state from
// the booking store, so nothing is lost when pushes were missed.
func (s *Server) UpcomingBookings(w http.ResponseWriter, r *http.Request) {
	hours := 48
	if h := r.URL.Query().Get("hours"); h != "" {
		if parsed, err := strconv.Atoi(h); err == nil && parsed > 0 {
			hours = parsed
		}
	}

	now := time.Now().UTC()
	bookings, err := s.bookings.ListConfirmedInWindow(r.Context(), now, now.Add(time.Duration(hours)*time.Hour))
	if err != nil {
		s.logger.Error("failed to list upcoming bookings", "error", err)
		jsonutil.WriteError(w, http.StatusInternalServerError, "failed to list bookings")
		return
	}
	if bookings == nil {
		bookings = []*booking.Booking{}
	}

	jsonutil.WriteJSON(w, http.StatusOK, map[string]any{
		"bookings": bookings,
		"count":    len(bookings),
	})
}

// EmitTestEvent injects a synthesized event into the dispatcher. Dev and
// support tooling use it to verify a client's realtime path end to end.
func (s *Server) EmitTestEvent(w http.ResponseWriter, r *http.Request) {
	var e notify.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		jsonutil.WriteError(w, http.StatusBadRequest, "invalid event body")
		return
	}
	if e.EmittedAt.IsZero() {
		e.EmittedAt = time.Now().UTC()
	}

	if err := s.dispatcher.Dispatch(r.Context(), &e); err != nil {
		jsonutil.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonutil.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "dispatched"})
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	jsonutil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
