package telemetry

import "testing"

func TestSetup_DisabledIsNoop(t *testing.T) {
	for _, cfg := range []Config{
		{Enabled: false, Endpoint: "http://collector:4318"},
		{Enabled: true, Endpoint: "  "},
	} {
		shutdown, err := Setup(t.Context(), cfg)
		if err != nil {
			t.Fatalf("Setup(%+v): %v", cfg, err)
		}
		if err := shutdown(t.Context()); err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	}
}

func TestSetup_Enabled(t *testing.T) {
	shutdown, err := Setup(t.Context(), Config{
		Enabled:  true,
		Endpoint: "http://127.0.0.1:4318",
		Service:  "poll-service",
		Version:  "test",
		Env:      "dev",
	})
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	// Коллектора нет - экспорт пустого батча не должен падать.
	_ = shutdown(t.Context())
}
