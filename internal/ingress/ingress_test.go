package ingress

import (
	"testing"

	"github.com/kobbyadu/consulta/internal/notify"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{
			name: "Valid Lifecycle Event",
			body: `{"action":"confirm","bookingID":"bk_1","targetUserId":"u_1"}`,
		},
		{
			name:    "Not JSON",
			body:    `{broken`,
			wantErr: true,
		},
		{
			name:    "Missing Action",
			body:    `{"bookingID":"bk_1"}`,
			wantErr: true,
		},
		{
			name:    "Missing Booking ID",
			body:    `{"action":"cancel"}`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := decode([]byte(tt.body))
			if tt.wantErr {
				if err == nil {
					t.Error("Expected decode to fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if e.Action != notify.ActionConfirm || e.BookingID != "bk_1" {
				t.Errorf("Unexpected event: %+v", e)
			}
		})
	}
}
