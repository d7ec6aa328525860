package registry

import (
	"fmt"
	"time"
)

// weekdayKeys maps time.Weekday (Sunday=0) to the Schedule's SUN..SAT
// keys.
var weekdayKeys = [...]string{"SUN", "MON", "TUE", "WED", "THU", "FRI", "SAT"}

// Registry is the indexed, read-only view of one loaded flow graph plus
// its API catalog, recording profiles, agent roster, and language
// table. It is immutable: build a new Registry to pick up configuration
// changes and swap the pointer used by the flow driver between calls.
type Registry struct {
	version int

	nodes     map[int]Node
	startNode int

	apis map[int]ApiSpec

	languages map[int]LanguageRow

	schedule            Schedule
	scheduleConfigured  bool
	unavailabilityDates map[string]bool
	unavailabilityAudio string
	sttResponseField    string

	agents    []AgentRosterEntry
	recordings map[int]RecordingProfile
}

// Files names the four JSON documents a Registry is built from. It mirrors config.FlowFiles without importing the config
// package, so registry stays free of process-configuration concerns.
type Files struct {
	IVRConfig         string
	APICatalog        string
	AgentRoster       string
	RecordingProfiles string
}

// Load reads all configuration documents named by f, validates that
// every edge target resolves and exactly one start node exists, and
// returns an immutable Registry. version is an opaque counter the
// caller threads through reload notifications (cluster broadcasts,
// admin API responses); Load does not interpret it.
func Load(f Files, version int) (*Registry, error) {
	fc, err := loadFlowConfig(f.IVRConfig)
	if err != nil {
		return nil, err
	}

	apiList, err := loadApiCatalog(f.APICatalog)
	if err != nil {
		return nil, err
	}

	agents, err := loadAgentRoster(f.AgentRoster)
	if err != nil {
		return nil, err
	}

	profiles, err := loadRecordingProfiles(f.RecordingProfiles)
	if err != nil {
		return nil, err
	}

	r := &Registry{
		version:             version,
		nodes:               make(map[int]Node, len(fc.nodes)),
		apis:                make(map[int]ApiSpec, len(apiList)),
		languages:           make(map[int]LanguageRow, len(fc.languages)),
		schedule:            fc.schedule,
		scheduleConfigured:  fc.scheduleConfigured,
		unavailabilityDates: fc.unavailabilityDates,
		unavailabilityAudio: fc.unavailabilityAudio,
		sttResponseField:    fc.sttResponseField,
		agents:              agents,
		recordings:          make(map[int]RecordingProfile, len(profiles)),
		startNode:           -1,
	}

	for _, n := range fc.nodes {
		if _, dup := r.nodes[n.ID]; dup {
			return nil, fmt.Errorf("config error: duplicate node id %d", n.ID)
		}
		r.nodes[n.ID] = n

		if n.IsStart {
			if r.startNode != -1 {
				return nil, fmt.Errorf("config error: more than one start node (%d and %d)", r.startNode, n.ID)
			}
			r.startNode = n.ID
		}
	}

	if r.startNode == -1 {
		return nil, fmt.Errorf("config error: no start node defined")
	}

	for _, a := range apiList {
		r.apis[a.APIID] = a
	}

	for _, row := range fc.languages {
		r.languages[row.LanguageCode] = row
	}

	for _, p := range profiles {
		r.recordings[p.ID] = p
	}

	if err := r.validateEdges(); err != nil {
		return nil, err
	}

	return r, nil
}

// validateEdges enforces invariant 1: every edge target must
// resolve to a defined node.
func (r *Registry) validateEdges() error {
	for _, n := range r.nodes {
		for _, e := range n.Edges {
			if _, ok := r.nodes[e.TargetID]; !ok {
				return fmt.Errorf("config error: node %d has an edge to undefined node %d", n.ID, e.TargetID)
			}
		}
	}
	return nil
}

// Version returns the reload counter this Registry was built with.
func (r *Registry) Version() int { return r.version }

// Node returns the node with the given id.
func (r *Registry) Node(id int) (Node, bool) {
	n, ok := r.nodes[id]
	return n, ok
}

// StartNode returns the flow's single entry node (invariant 2).
func (r *Registry) StartNode() Node {
	return r.nodes[r.startNode]
}

// API returns the catalog entry with the given id.
func (r *Registry) API(id int) (ApiSpec, bool) {
	a, ok := r.apis[id]
	return a, ok
}

// LanguageRow returns the language table row for the given LanguageCode,
// used by op 30's is_language_select path.
func (r *Registry) LanguageRow(code int) (LanguageRow, bool) {
	row, ok := r.languages[code]
	return row, ok
}

// RecordingProfile returns the recording profile with the given id,
// used by op 40.
func (r *Registry) RecordingProfile(id int) (RecordingProfile, bool) {
	p, ok := r.recordings[id]
	return p, ok
}

// Agents returns the loaded agent roster.
func (r *Registry) Agents() []AgentRosterEntry {
	return r.agents
}

// Schedule returns the business-hours availability schedule.
func (r *Registry) Schedule() Schedule {
	return r.schedule
}

// IsUnavailableDate reports whether date (MMDDYYYY) is listed
// in the unavailability dates table.
func (r *Registry) IsUnavailableDate(date string) bool {
	return r.unavailabilityDates[date]
}

// UnavailabilityAudio is the audio file id played when the business-hours
// gate closes the call.
func (r *Registry) UnavailabilityAudio() string {
	return r.unavailabilityAudio
}

// IsClosedForBusinessHours reports whether now falls outside the
// configured availability schedule, or now's date is explicitly listed
// as unavailable. A schedule that was never configured
// (settingID 6 absent from GeneralSettingValues) imposes no gate at
// all; a configured schedule with no entry (or a blank From/To) for
// today's weekday closes the whole day.
func (r *Registry) IsClosedForBusinessHours(now time.Time) bool {
	if r.IsUnavailableDate(now.Format("01022006")) {
		return true
	}

	if !r.scheduleConfigured {
		return false
	}

	win, ok := r.schedule[weekdayKeys[now.Weekday()]]
	if !ok || win.From == "" || win.To == "" {
		return true
	}

	from, err := parseClockTime(win.From, now)
	if err != nil {
		return false
	}
	to, err := parseClockTime(win.To, now)
	if err != nil {
		return false
	}

	return now.Before(from) || now.After(to)
}

// parseClockTime parses an "h:mmAM/PM" time of day, anchored to
// now's calendar date and location.
func parseClockTime(s string, now time.Time) (time.Time, error) {
	t, err := time.Parse("3:04PM", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse clock time %q: %w", s, err)
	}
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, now.Location()), nil
}

// STTResponseField names the response field (from general setting 14)
// that carries transcription text for op 341.
func (r *Registry) STTResponseField() string {
	return r.sttResponseField
}
