package config

import (
	"testing"
	"time"
)

func TestParseLeads(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    []time.Duration
		wantErr bool
	}{
		{
			name: "Stock Set",
			raw:  "24h,1h,15m",
			want: []time.Duration{24 * time.Hour, time.Hour, 15 * time.Minute},
		},
		{
			name: "Whitespace And Empty Parts",
			raw:  " 48h , ,30m",
			want: []time.Duration{48 * time.Hour, 30 * time.Minute},
		},
		{
			name:    "Garbage Entry",
			raw:     "24h,tomorrow",
			wantErr: true,
		},
		{
			name:    "Negative Lead",
			raw:     "-1h",
			wantErr: true,
		},
		{
			name:    "Empty",
			raw:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLeads(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Error("Expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Expected %v, got %v", tt.want, got)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Expected lead %v at %d, got %v", tt.want[i], i, got[i])
				}
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ListenAddr != ":8086" {
		t.Errorf("Expected default listen addr :8086, got %s", cfg.ListenAddr)
	}
	if cfg.BrokerKind != "rabbitmq" {
		t.Errorf("Expected default broker rabbitmq, got %s", cfg.BrokerKind)
	}
	if cfg.SchedulerInterval != time.Minute {
		t.Errorf("Expected default interval 60s, got %v", cfg.SchedulerInterval)
	}
	if len(cfg.ReminderLeads) != 3 {
		t.Errorf("Expected 3 default leads, got %v", cfg.ReminderLeads)
	}
}
