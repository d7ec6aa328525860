package registry

import (
	"encoding/json"
	"fmt"
	"os"
)

// loadAgentRoster reads the supplementary agent extensions file. A
// missing file is not an error: an installation with no agent-transfer
// nodes need not supply one.
func loadAgentRoster(path string) ([]AgentRosterEntry, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read agent roster: %w", err)
	}

	var roster []AgentRosterEntry
	if err := json.Unmarshal(data, &roster); err != nil {
		return nil, fmt.Errorf("parse agent roster: %w", err)
	}

	return roster, nil
}

// loadRecordingProfiles reads the supplementary recording profiles
// file. A missing file is not an error for an
// installation with no recording nodes.
func loadRecordingProfiles(path string) ([]RecordingProfile, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read recording profiles: %w", err)
	}

	var profiles []RecordingProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("parse recording profiles: %w", err)
	}

	return profiles, nil
}
