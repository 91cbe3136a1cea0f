package config

import (
	"strings"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		wantErr     bool
		errorString string
	}{
		{
			name: "valid config",
			config: Config{
				Port:     "8080",
				DBPath:   ":memory:",
				LogLevel: "info",
			},
			wantErr: false,
		},
		{
			name: "invalid port - non-numeric",
			config: Config{
				Port:     "abc",
				DBPath:   ":memory:",
				LogLevel: "info",
			},
			wantErr:     true,
			errorString: `invalid port "abc": must be a number`,
		},
		{
			name: "invalid port - out of range",
			config: Config{
				Port:     "70000",
				DBPath:   ":memory:",
				LogLevel: "info",
			},
			wantErr:     true,
			errorString: "invalid port 70000: must be between 1 and 65535",
		},
		{
			name: "empty database path",
			config: Config{
				Port:     "8080",
				DBPath:   "",
				LogLevel: "info",
			},
			wantErr:     true,
			errorString: "database path cannot be empty",
		},
		{
			name: "invalid log level",
			config: Config{
				Port:     "8080",
				DBPath:   ":memory:",
				LogLevel: "verbose",
			},
			wantErr:     true,
			errorString: `invalid log level "verbose"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Validate() expected error, got nil")
				}
				if !strings.Contains(err.Error(), tt.errorString) {
					t.Errorf("Validate() error = %q, want substring %q", err.Error(), tt.errorString)
				}
				return
			}
			if err != nil {
				t.Errorf("Validate() unexpected error: %v", err)
			}
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	if cfg.Port == "" {
		t.Error("Load() should default the port")
	}
	if cfg.DBPath == "" {
		t.Error("Load() should default the database path")
	}
	if len(cfg.CORSOrigins) == 0 {
		t.Error("Load() should default the CORS origins")
	}
}

func TestSplitCSV(t *testing.T) {
	got := splitCSV("http://localhost:3000, http://localhost:5173 ,")
	if len(got) != 2 {
		t.Fatalf("splitCSV() = %v, want 2 entries", got)
	}
	if got[1] != "http://localhost:5173" {
		t.Errorf("splitCSV() entry = %q, want trimmed value", got[1])
	}
}
