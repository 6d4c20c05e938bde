package types

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr error
	}{
		{
			name:    "empty backend returns ErrBackendEmpty",
			config:  Config{Backend: "", DataDir: "/tmp/data"},
			wantErr: ErrBackendEmpty,
		},
		{
			name:    "unknown backend returns ErrBackendUnknown",
			config:  Config{Backend: "postgres", DataDir: "/tmp/data"},
			wantErr: ErrBackendUnknown,
		},
		{
			name:    "valid sqlite config",
			config:  Config{Backend: "sqlite", DataDir: "/tmp/data"},
			wantErr: nil,
		},
		{
			name:    "sqlite with empty DataDir is valid at config level",
			config:  Config{Backend: "sqlite", DataDir: ""},
			wantErr: nil,
		},
		{
			name:    "negative threshold rejected",
			config:  Config{Backend: "sqlite", InUseAfter: -time.Second},
			wantErr: ErrThresholdInvalid,
		},
		{
			name:    "negative warning days rejected",
			config:  Config{Backend: "sqlite", ExpiryWarningDays: -1},
			wantErr: ErrWarningDaysInvalid,
		},
		{
			name:    "unknown notify driver rejected",
			config:  Config{Backend: "sqlite", Notify: NotifyConfig{Driver: "kafka"}},
			wantErr: ErrNotifyUnknown,
		},
		{
			name:    "redis driver needs an address",
			config:  Config{Backend: "sqlite", Notify: NotifyConfig{Driver: NotifyRedis}},
			wantErr: ErrRedisAddrEmpty,
		},
		{
			name:    "redis driver with address",
			config:  Config{Backend: "sqlite", Notify: NotifyConfig{Driver: NotifyRedis, RedisAddr: "localhost:6379"}},
			wantErr: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected nil error, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %v, got nil", tt.wantErr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigWithDefaults(t *testing.T) {
	c := Config{Backend: BackendSQLite}.WithDefaults()

	if c.LayoutID != DefaultLayoutID {
		t.Errorf("LayoutID = %q, want %q", c.LayoutID, DefaultLayoutID)
	}
	if c.InUseAfter != 10*time.Minute {
		t.Errorf("InUseAfter = %v, want 10m", c.InUseAfter)
	}
	if c.ExpiryWarningDays != 30 {
		t.Errorf("ExpiryWarningDays = %d, want 30", c.ExpiryWarningDays)
	}
	if c.Notify.Driver != NotifyNone {
		t.Errorf("Notify.Driver = %q, want %q", c.Notify.Driver, NotifyNone)
	}

	custom := Config{Backend: BackendSQLite, LayoutID: "field", InUseAfter: time.Minute}.WithDefaults()
	if custom.LayoutID != "field" || custom.InUseAfter != time.Minute {
		t.Errorf("explicit values were overwritten: %+v", custom)
	}
}
