package registry

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const minimalFlowConfig = `{
  "IVRConfiguration": [
    {
      "GeneralSettingValues": [
        {"SettingId": 15, "SettingnKey": "LanguageList", "SettingValue": "[{\"LanguageCode\":1,\"LanguageName\":\"English\",\"TTSLanguageCode\":\"en-US\",\"STTLanguageCode\":\"en\",\"TTSVoiceNameBuiltIn\":\"Allison\",\"TTSVoiceNameCloud\":\"en-US-Standard-C\"}]"},
        {"SettingId": 8, "SettingnKey": "IVRUnavailablityAudio", "SettingValue": "\"closed.wav\""},
        {"SettingId": 7, "SettingnKey": "IVRUnavailablityDates", "SettingValue": "[\"12252026\"]"},
        {"SettingId": 6, "SettingnKey": "IVRAvailablitySchedule", "SettingValue": "{\"MON\":{\"From\":\"9:00AM\",\"To\":\"5:00PM\"}}"}
      ],
      "IVRProcessFlow": [
        {
          "id": 1000,
          "name": "welcome",
          "op_code": 10,
          "is_start": true,
          "voice_file_id": "welcome.wav",
          "edges": [{"target_id": 1001}]
        },
        {
          "id": 1001,
          "name": "menu",
          "op_code": 30,
          "valid_keys": "1,2,3",
          "input_time_limit": 10,
          "tag_name": "MainMenuSelection",
          "edges": [
            {"target_id": 2000, "input_keys": "2"},
            {"target_id": 1999, "input_keys": "X"}
          ]
        },
        {
          "id": 1999,
          "name": "goodbye",
          "op_code": 200,
          "edges": []
        },
        {
          "id": 2000,
          "name": "leaf",
          "op_code": 200,
          "edges": []
        }
      ]
    }
  ]
}`

const minimalFlowConfigNoSchedule = `{
  "IVRConfiguration": [
    {
      "GeneralSettingValues": [],
      "IVRProcessFlow": [
        {
          "id": 1000,
          "name": "welcome",
          "op_code": 10,
          "is_start": true,
          "voice_file_id": "welcome.wav",
          "edges": [{"target_id": 1999}]
        },
        {
          "id": 1999,
          "name": "goodbye",
          "op_code": 200,
          "edges": []
        }
      ]
    }
  ]
}`

const minimalApiCatalog = `{
  "result": [
    {
      "api_id": 10,
      "method": "POST",
      "url": "https://auth.example.com/login",
      "content_type": "application/json",
      "inputs": [
        {"name": "email", "raw_value": "{{email}}", "placement": "BODY", "value_source": "dynamic-from-tag"}
      ],
      "outputs": [
        {"tag_name": "Access_token", "json_field": "data.token"}
      ]
    }
  ]
}`

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}

func loadTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()

	files := Files{
		IVRConfig:  writeFixture(t, dir, "ivrconfig.json", minimalFlowConfig),
		APICatalog: writeFixture(t, dir, "automax_webAPIConfig.json", minimalApiCatalog),
	}

	reg, err := Load(files, 1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	return reg
}

func TestLoadResolvesStartNode(t *testing.T) {
	reg := loadTestRegistry(t)

	start := reg.StartNode()
	if start.ID != 1000 {
		t.Fatalf("StartNode().ID = %d, want 1000", start.ID)
	}
}

func TestLoadIndexesNodesAndAPIs(t *testing.T) {
	reg := loadTestRegistry(t)

	if _, ok := reg.Node(2000); !ok {
		t.Fatal("expected node 2000 to be indexed")
	}
	if _, ok := reg.Node(9999); ok {
		t.Fatal("node 9999 should not exist")
	}

	api, ok := reg.API(10)
	if !ok {
		t.Fatal("expected api 10 to be indexed")
	}
	if api.Method != "POST" {
		t.Fatalf("api.Method = %q, want POST", api.Method)
	}
}

func TestLoadParsesLanguageAndSchedule(t *testing.T) {
	reg := loadTestRegistry(t)

	row, ok := reg.LanguageRow(1)
	if !ok {
		t.Fatal("expected language row 1")
	}
	if row.LanguageName != "English" {
		t.Fatalf("LanguageName = %q, want English", row.LanguageName)
	}

	if !reg.IsUnavailableDate("12252026") {
		t.Fatal("expected 12252026 to be an unavailability date")
	}

	if reg.UnavailabilityAudio() != "closed.wav" {
		t.Fatalf("UnavailabilityAudio() = %q, want closed.wav", reg.UnavailabilityAudio())
	}

	win, ok := reg.Schedule()["MON"]
	if !ok || win.From != "9:00AM" {
		t.Fatalf("Schedule()[MON] = %+v, ok=%v", win, ok)
	}
}

func TestIsClosedForBusinessHours(t *testing.T) {
	reg := loadTestRegistry(t)

	// The fixture's schedule only configures Monday 9AM-5PM.
	withinMonday := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	if reg.IsClosedForBusinessHours(withinMonday) {
		t.Fatal("expected open within Monday's configured window")
	}

	beforeMonday := time.Date(2026, time.March, 2, 8, 0, 0, 0, time.UTC)
	if !reg.IsClosedForBusinessHours(beforeMonday) {
		t.Fatal("expected closed before Monday's configured window opens")
	}

	// Tuesday has no configured window at all, which closes the whole day.
	tuesday := time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC)
	if !reg.IsClosedForBusinessHours(tuesday) {
		t.Fatal("expected closed on a weekday absent from the schedule")
	}

	// The fixture also lists 12/25/2026 as an explicit unavailability date.
	unavailableDate := time.Date(2026, time.December, 25, 10, 0, 0, 0, time.UTC)
	if !reg.IsClosedForBusinessHours(unavailableDate) {
		t.Fatal("expected closed on a listed unavailability date")
	}
}

func TestIsClosedForBusinessHoursNoScheduleConfigured(t *testing.T) {
	dir := t.TempDir()
	files := Files{
		IVRConfig:  writeFixture(t, dir, "ivrconfig.json", minimalFlowConfigNoSchedule),
		APICatalog: writeFixture(t, dir, "automax_webAPIConfig.json", minimalApiCatalog),
	}

	reg, err := Load(files, 1)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if reg.IsClosedForBusinessHours(time.Now()) {
		t.Fatal("expected no gate when no schedule is configured at all")
	}
}

func TestLoadRejectsUnresolvedEdgeTarget(t *testing.T) {
	dir := t.TempDir()
	bad := `{"IVRConfiguration":[{"IVRProcessFlow":[
		{"id":1,"op_code":10,"is_start":true,"edges":[{"target_id":999}]}
	]}]}`

	files := Files{
		IVRConfig:  writeFixture(t, dir, "ivrconfig.json", bad),
		APICatalog: writeFixture(t, dir, "automax_webAPIConfig.json", `{"result":[]}`),
	}

	if _, err := Load(files, 1); err == nil {
		t.Fatal("expected error for unresolved edge target")
	}
}

func TestLoadRejectsMissingStartNode(t *testing.T) {
	dir := t.TempDir()
	bad := `{"IVRConfiguration":[{"IVRProcessFlow":[
		{"id":1,"op_code":200,"edges":[]}
	]}]}`

	files := Files{
		IVRConfig:  writeFixture(t, dir, "ivrconfig.json", bad),
		APICatalog: writeFixture(t, dir, "automax_webAPIConfig.json", `{"result":[]}`),
	}

	if _, err := Load(files, 1); err == nil {
		t.Fatal("expected error for missing start node")
	}
}

func TestLoadRejectsMultipleStartNodes(t *testing.T) {
	dir := t.TempDir()
	bad := `{"IVRConfiguration":[{"IVRProcessFlow":[
		{"id":1,"op_code":10,"is_start":true,"edges":[{"target_id":2}]},
		{"id":2,"op_code":200,"is_start":true,"edges":[]}
	]}]}`

	files := Files{
		IVRConfig:  writeFixture(t, dir, "ivrconfig.json", bad),
		APICatalog: writeFixture(t, dir, "automax_webAPIConfig.json", `{"result":[]}`),
	}

	if _, err := Load(files, 1); err == nil {
		t.Fatal("expected error for multiple start nodes")
	}
}

func TestLoadToleratesMissingSupplementaryFiles(t *testing.T) {
	dir := t.TempDir()

	files := Files{
		IVRConfig:         writeFixture(t, dir, "ivrconfig.json", minimalFlowConfig),
		APICatalog:        writeFixture(t, dir, "automax_webAPIConfig.json", minimalApiCatalog),
		AgentRoster:        filepath.Join(dir, "does-not-exist-agents.json"),
		RecordingProfiles:  filepath.Join(dir, "does-not-exist-recordings.json"),
	}

	reg, err := Load(files, 1)
	if err != nil {
		t.Fatalf("Load with missing supplementary files: %v", err)
	}
	if len(reg.Agents()) != 0 {
		t.Fatalf("expected empty agent roster, got %v", reg.Agents())
	}
}
