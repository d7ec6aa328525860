package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

// General setting ids recognized out of the flow config's
// GeneralSettingValues table.
const (
	settingIDAvailabilitySchedule = 6
	settingIDUnavailabilityDates  = 7
	settingIDUnavailabilityAudio  = 8
	settingIDLanguageList         = 15
	settingIDSTTResponseField     = 14
)

// rawFlowConfig mirrors ivrconfig.json's top-level shape.
type rawFlowConfig struct {
	IVRConfiguration []rawFlowEntry `json:"IVRConfiguration"`
}

type rawFlowEntry struct {
	GeneralSettingValues []rawGeneralSetting `json:"GeneralSettingValues"`
	IVRProcessFlow       []Node              `json:"IVRProcessFlow"`
}

// rawGeneralSetting mirrors one row of GeneralSettingValues. The
// "SettingnKey" spelling matches the source field name verbatim; it is not a typo introduced here.
type rawGeneralSetting struct {
	SettingID    int             `json:"SettingId"`
	SettingnKey  string          `json:"SettingnKey"`
	SettingValue json.RawMessage `json:"SettingValue"`
}

// flowConfig is the parsed, pre-validation contents of ivrconfig.json.
type flowConfig struct {
	nodes     []Node
	languages []LanguageRow

	schedule Schedule
	// scheduleConfigured distinguishes "setting 6 was never present"
	// (no business-hours gate at all) from "setting 6 is an empty
	// object" (every day unconfigured, so every day is closed).
	scheduleConfigured  bool
	unavailabilityDates map[string]bool
	unavailabilityAudio string
	sttResponseField    string
}

// loadFlowConfig reads and parses the flow config file. It does not
// validate cross-references; that happens once in Load, after the API
// catalog is also available.
func loadFlowConfig(path string) (*flowConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read flow config: %w", err)
	}

	var raw rawFlowConfig
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse flow config: %w", err)
	}

	if len(raw.IVRConfiguration) == 0 {
		return nil, fmt.Errorf("flow config: IVRConfiguration is empty")
	}

	fc := &flowConfig{
		unavailabilityDates: make(map[string]bool),
	}

	for _, entry := range raw.IVRConfiguration {
		fc.nodes = append(fc.nodes, entry.IVRProcessFlow...)

		for _, setting := range entry.GeneralSettingValues {
			if err := fc.applySetting(setting); err != nil {
				return nil, fmt.Errorf("flow config: setting %d (%s): %w", setting.SettingID, setting.SettingnKey, err)
			}
		}
	}

	return fc, nil
}

func (fc *flowConfig) applySetting(s rawGeneralSetting) error {
	switch s.SettingID {
	case settingIDLanguageList:
		var rows []LanguageRow
		if err := decodeSettingValue(s.SettingValue, &rows); err != nil {
			return err
		}
		fc.languages = rows

	case settingIDAvailabilitySchedule:
		var sched Schedule
		if err := decodeSettingValue(s.SettingValue, &sched); err != nil {
			return err
		}
		fc.schedule = sched
		fc.scheduleConfigured = true

	case settingIDUnavailabilityDates:
		var dates []string
		if err := decodeSettingValue(s.SettingValue, &dates); err != nil {
			return err
		}
		for _, d := range dates {
			fc.unavailabilityDates[d] = true
		}

	case settingIDUnavailabilityAudio:
		var audio string
		if err := decodeSettingValue(s.SettingValue, &audio); err != nil {
			return err
		}
		fc.unavailabilityAudio = audio

	case settingIDSTTResponseField:
		var field string
		if err := decodeSettingValue(s.SettingValue, &field); err != nil {
			return err
		}
		fc.sttResponseField = field
	}

	return nil
}

// decodeSettingValue unmarshals a SettingValue, which may be a JSON
// string (a literal value) or a JSON-encoded-as-string document (the
// source stores some settings as a string containing JSON). Try direct
// decode first, then fall back to unwrapping a string layer.
func decodeSettingValue(raw json.RawMessage, out any) error {
	if err := json.Unmarshal(raw, out); err == nil {
		// A string target also decodes from the outer string layer; when
		// that string itself holds a JSON string, unwrap it once more.
		if s, ok := out.(*string); ok {
			var inner string
			if json.Unmarshal([]byte(*s), &inner) == nil {
				*s = inner
			}
		}
		return nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err != nil {
		return fmt.Errorf("decode setting value: %w", err)
	}

	if err := json.Unmarshal([]byte(asString), out); err != nil {
		return fmt.Errorf("decode setting value string: %w", err)
	}

	return nil
}
