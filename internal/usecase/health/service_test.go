package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

// --- Mocks ---

type mockDBPinger struct {
	err error
}

func (m *mockDBPinger) Ping(_ context.Context) error { return m.err }

type mockProvider struct {
	err   error
	block bool
}

func (m *mockProvider) HealthCheck(ctx context.Context) error {
	if m.block {
		<-ctx.Done()
		return ctx.Err()
	}
	return m.err
}

// --- Tests ---

func TestCheck_AllHealthy(t *testing.T) {
	svc := New(&mockDBPinger{}, map[string]ProviderChecker{"llm": &mockProvider{}})
	r := svc.Check(context.Background())

	if r.Status != Healthy {
		t.Errorf("expected %q, got %q", Healthy, r.Status)
	}
	if r.Checks["database"] != CheckOK {
		t.Errorf("expected database %q, got %q", CheckOK, r.Checks["database"])
	}
	if r.Checks["llm"] != CheckOK {
		t.Errorf("expected llm %q, got %q", CheckOK, r.Checks["llm"])
	}
}

func TestCheck_DBError(t *testing.T) {
	svc := New(&mockDBPinger{err: errors.New("conn refused")}, map[string]ProviderChecker{"llm": &mockProvider{}})
	r := svc.Check(context.Background())

	if r.Status != Unhealthy {
		t.Errorf("expected %q, got %q", Unhealthy, r.Status)
	}
	if r.Checks["database"] != CheckError {
		t.Errorf("expected database %q, got %q", CheckError, r.Checks["database"])
	}
	if r.Checks["llm"] != CheckOK {
		t.Errorf("expected llm %q, got %q", CheckOK, r.Checks["llm"])
	}
}

func TestCheck_ProviderError(t *testing.T) {
	svc := New(&mockDBPinger{}, map[string]ProviderChecker{
		"llm":    &mockProvider{err: errors.New("timeout")},
		"search": &mockProvider{},
	})
	r := svc.Check(context.Background())

	if r.Status != Degraded {
		t.Errorf("expected %q, got %q", Degraded, r.Status)
	}
	if r.Checks["llm"] != CheckError || r.Checks["search"] != CheckOK {
		t.Errorf("unexpected checks: %v", r.Checks)
	}
}

func TestCheck_NoProviders(t *testing.T) {
	svc := New(&mockDBPinger{}, nil)
	r := svc.Check(context.Background())

	if r.Status != Healthy || len(r.Checks) != 1 {
		t.Errorf("unexpected report: %+v", r)
	}
}

func TestCheck_ProviderTimeout(t *testing.T) {
	svc := New(&mockDBPinger{}, map[string]ProviderChecker{"llm": &mockProvider{block: true}})
	svc.timeout = 10 * time.Millisecond

	r := svc.Check(context.Background())
	if r.Checks["llm"] != CheckError {
		t.Errorf("expected hung provider to fail, got %q", r.Checks["llm"])
	}
}
