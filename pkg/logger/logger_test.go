package logger

import (
	"errors"
	"log/slog"
	"os"
	"testing"
)

func TestScope(t *testing.T) {
	tests := []struct {
		name  string
		scope string
		want  string
	}{
		{"basic scope", "schema.compiler", "schema.compiler"},
		{"nested scope", "streams.matcher.retry", "streams.matcher.retry"},
		{"empty scope", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr := Scope(tt.scope)
			if attr.Key != "scope" {
				t.Errorf("Scope() key = %q, want %q", attr.Key, "scope")
			}
			if attr.Value.String() != tt.want {
				t.Errorf("Scope() value = %q, want %q", attr.Value.String(), tt.want)
			}
		})
	}
}

func TestError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"simple error", errors.New("compile failed")},
		{"nil error", nil},
		{"wrapped error", errors.Join(errors.New("outer"), errors.New("inner"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr := Error(tt.err)
			if attr.Key != "error" {
				t.Errorf("Error() key = %q, want %q", attr.Key, "error")
			}
			gotErr := attr.Value.Any()
			if gotErr != tt.err {
				t.Errorf("Error() value = %v, want %v", gotErr, tt.err)
			}
		})
	}
}

func TestNewLogger_DefaultLevel(t *testing.T) {
	os.Unsetenv("LOG_LEVEL")
	os.Unsetenv("GO_ENV")

	log := NewLogger()
	if log == nil {
		t.Fatal("NewLogger() returned nil")
	}
	if !log.Enabled(nil, slog.LevelInfo) {
		t.Error("NewLogger() should have info level enabled by default")
	}
	if log.Enabled(nil, slog.LevelDebug) {
		t.Error("NewLogger() should not have debug level enabled by default")
	}
}

func TestNewLogger_DebugLevel(t *testing.T) {
	origLevel, hadLevel := os.LookupEnv("LOG_LEVEL")
	defer restoreEnv(t, "LOG_LEVEL", origLevel, hadLevel)

	os.Setenv("LOG_LEVEL", "debug")

	log := NewLogger()
	if !log.Enabled(nil, slog.LevelDebug) {
		t.Error("NewLogger() should have debug level enabled when LOG_LEVEL=debug")
	}
}

func restoreEnv(t *testing.T, key, value string, had bool) {
	t.Helper()
	if had {
		os.Setenv(key, value)
	} else {
		os.Unsetenv(key)
	}
}
