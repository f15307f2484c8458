package api

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/kobbyadu/consulta/internal/booking"
	"github.com/kobbyadu/consulta/internal/notify"
	"github.com/kobbyadu/consulta/pkg/observability"
)

type captureDriver struct {
	events []notify.Event
}

func (d *captureDriver) Name() string { return "capture" }

func (d *captureDriver) Deliver(ctx context.Context, e *notify.Event) error {
	d.events = append(d.events, *e)
	return nil
}

func newTestRouter(repo booking.Repository, drv notify.Driver) *mux.Router {
	logger := observability.NewTestLogger()
	s := NewServer(repo, notify.NewDispatcher(logger, drv), logger)
	r := mux.NewRouter()
	s.Routes(r)
	return r
}

func TestUpcomingBookings(t *testing.T) {
	repo := booking.NewMockRepository()
	repo.Put(&booking.Booking{
		ID:          "bk_soon",
		TeacherName: "Dr. Mensah",
		Schedule:    time.Now().UTC().Add(3 * time.Hour),
		Status:      booking.StatusConfirmed,
	})
	repo.Put(&booking.Booking{
		ID:       "bk_far",
		Schedule: time.Now().UTC().Add(100 * time.Hour),
		Status:   booking.StatusConfirmed,
	})
	repo.Put(&booking.Booking{
		ID:       "bk_pending",
		Schedule: time.Now().UTC().Add(3 * time.Hour),
		Status:   booking.StatusPending,
	})

	router := newTestRouter(repo, &captureDriver{})

	tests := []struct {
		name         string
		url          string
		wantContains string
		wantMissing  []string
	}{
		{
			name:         "Default Window",
			url:          "/api/v1/bookings/upcoming",
			wantContains: "bk_soon",
			wantMissing:  []string{"bk_far", "bk_pending"},
		},
		{
			name:         "Widened Window",
			url:          "/api/v1/bookings/upcoming?hours=120",
			wantContains: "bk_far",
			wantMissing:  []string{"bk_pending"},
		},
		{
			name:         "Bad Hours Falls Back To Default",
			url:          "/api/v1/bookings/upcoming?hours=soon",
			wantContains: "bk_soon",
			wantMissing:  []string{"bk_far"},
		},
		{
			name:         "Fractional Hours Falls Back To Default",
			url:          "/api/v1/bookings/upcoming?hours=0.5",
			wantContains: "bk_soon",
			wantMissing:  []string{"bk_far"},
		},
		{
			name:         "Zero Hours Falls Back To Default",
			url:          "/api/v1/bookings/upcoming?hours=0",
			wantContains: "bk_soon",
			wantMissing:  []string{"bk_far"},
		},
		{
			name:         "Negative Hours Falls Back To Default",
			url:          "/api/v1/bookings/upcoming?hours=-3",
			wantContains: "bk_soon",
			wantMissing:  []string{"bk_far"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.url, nil)
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != 200 {
				t.Fatalf("Expected status 200, got %d", w.Code)
			}
			body := w.Body.String()
			if !strings.Contains(body, tt.wantContains) {
				t.Errorf("Expected body to contain %q, got %s", tt.wantContains, body)
			}
			for _, missing := range tt.wantMissing {
				if strings.Contains(body, missing) {
					t.Errorf("Expected body not to contain %q, got %s", missing, body)
				}
			}
		})
	}
}

func TestEmitTestEvent(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedEvents int
	}{
		{
			name:           "Valid Event",
			body:           `{"action":"confirm","bookingID":"bk_1","targetUserId":"u_1"}`,
			expectedStatus: 202,
			expectedEvents: 1,
		},
		{
			name:           "Invalid Body",
			body:           `{broken`,
			expectedStatus: 400,
			expectedEvents: 0,
		},
		{
			name:           "Untargeted Event Refused",
			body:           `{"action":"confirm","bookingID":"bk_1"}`,
			expectedStatus: 400,
			expectedEvents: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv := &captureDriver{}
			router := newTestRouter(booking.NewMockRepository(), drv)

			req := httptest.NewRequest("POST", "/api/v1/events/test", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
			if len(drv.events) != tt.expectedEvents {
				t.Errorf("Expected %d dispatched events, got %d", tt.expectedEvents, len(drv.events))
			}
			if tt.expectedEvents == 1 && drv.events[0].EmittedAt.IsZero() {
				t.Error("Expected EmittedAt to be stamped")
			}
		})
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(booking.NewMockRepository(), &captureDriver{})

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != 200 {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "ok") {
		t.Errorf("Expected ok body, got %s", w.Body.String())
	}
}
