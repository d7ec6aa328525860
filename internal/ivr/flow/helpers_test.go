package flow

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
	"github.com/rakunlabs/ivrflow/internal/ivr/vars"
)

func newTestStore() *vars.Store { return vars.New() }

// buildRegistryFromNodes assembles a minimal ivrconfig.json/API catalog
// from in-memory nodes and loads them through registry.Load, so driver
// tests exercise the same validation path production config does.
func buildRegistryFromNodes(t *testing.T, nodes ...registry.Node) *registry.Registry {
	t.Helper()
	return buildRegistryFromConfig(t, nil, nodes...)
}

// buildRegistryFromConfig is buildRegistryFromNodes plus an optional
// GeneralSettingValues table, for tests that need the business-hours
// gate or language table wired in.
func buildRegistryFromConfig(t *testing.T, generalSettings []map[string]any, nodes ...registry.Node) *registry.Registry {
	t.Helper()

	doc := map[string]any{
		"IVRConfiguration": []map[string]any{
			{"GeneralSettingValues": generalSettings, "IVRProcessFlow": nodes},
		},
	}

	data, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal test flow config: %v", err)
	}

	dir := t.TempDir()
	flowPath := filepath.Join(dir, "ivrconfig.json")
	if err := os.WriteFile(flowPath, data, 0o600); err != nil {
		t.Fatalf("write test flow config: %v", err)
	}

	apiPath := filepath.Join(dir, "automax_webAPIConfig.json")
	if err := os.WriteFile(apiPath, []byte(`{"result":[]}`), 0o600); err != nil {
		t.Fatalf("write test api catalog: %v", err)
	}

	reg, err := registry.Load(registry.Files{IVRConfig: flowPath, APICatalog: apiPath}, 1)
	if err != nil {
		t.Fatalf("registry.Load: %v", err)
	}
	return reg
}
