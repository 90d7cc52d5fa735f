package otel

import (
	"context"
	"testing"
)

func TestSetup_DisabledWithoutEndpoint(t *testing.T) {
	t.Setenv("WILDTREK_OTEL_ENDPOINT", "")
	shutdown, err := Setup(context.Background(), "wildtrek-test")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestSetup_ExplicitlyDisabled(t *testing.T) {
	t.Setenv("WILDTREK_OTEL_ENABLED", "false")
	t.Setenv("WILDTREK_OTEL_ENDPOINT", "http://localhost:4318")
	shutdown, err := Setup(context.Background(), "wildtrek-test")
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
