// Package registry holds the indexed, read-only view of a loaded flow
// graph, API catalog, recording profiles, agent roster, and language
// table. A Registry is immutable once Load returns;
// reloading means building a new Registry and swapping the pointer
// between calls.
package registry

import (
	"fmt"
	"time"

	str2duration "github.com/xhit/go-str2duration/v2"
)

// OpCode is one of the closed set of node operation codes.
type OpCode int

const (
	OpPlayAudio          OpCode = 10
	OpPlayCapturedFile   OpCode = 11
	OpCollectDigits      OpCode = 20
	OpPlayAndCollect     OpCode = 30
	OpPlayCapturedCollect OpCode = 31
	OpRecord             OpCode = 40
	OpPlayDigits         OpCode = 50
	OpTransferQueue      OpCode = 100
	OpTransferQueueEval  OpCode = 101
	OpExtensionDial      OpCode = 105
	OpDirectExtension    OpCode = 107
	OpExternalDial       OpCode = 108
	OpHTTPInvoke         OpCode = 111
	OpHTTPInvokeCurl     OpCode = 112
	OpBranch             OpCode = 120
	OpTerminate          OpCode = 200
	OpTTSBuiltin         OpCode = 330
	OpTTSCloud           OpCode = 331
	OpSpeechToText       OpCode = 341
)

// Comparison operators for op 120 and comparison edges. The
// richer, documented set is honored rather than the source's narrower
// GRT/LST/IBW-only implementation.
type Operator string

const (
	OpEQ           Operator = "EQ"
	OpNE           Operator = "NE"
	OpGRT          Operator = "GRT"
	OpLST          Operator = "LST"
	OpGTE          Operator = "GTE"
	OpLTE          Operator = "LTE"
	OpIBW          Operator = "IBW"
	OpOBW          Operator = "OBW"
	OpContains     Operator = "CONTAINS"
	OpStartsWith   Operator = "STARTS_WITH"
	OpEndsWith     Operator = "ENDS_WITH"
	OpIsEmpty      Operator = "IS_EMPTY"
	OpIsNotEmpty   Operator = "IS_NOT_EMPTY"
)

// OperandType selects where a comparison's left-hand operand comes from.
type OperandType string

const (
	OperandTag     OperandType = "tag"
	OperandLiteral OperandType = "literal"
)

// Placement is where an ApiInput's resolved value is written into the
// outgoing HTTP request.
type Placement string

const (
	PlacementURL    Placement = "URL"
	PlacementBody   Placement = "BODY"
	PlacementHeader Placement = "HEADER"
	PlacementFile   Placement = "FILE"
	PlacementBinary Placement = "BINARY"
)

// ValueSource selects how an ApiInput's raw value is resolved.
type ValueSource string

const (
	SourceStatic          ValueSource = "static"
	SourceDynamicFromTag  ValueSource = "dynamic-from-tag"
	SourceEnvironment     ValueSource = "environment"
)

// ContentType enumerates the body encodings the HTTP invoker supports.
type ContentType string

const (
	ContentJSON      ContentType = "application/json"
	ContentForm      ContentType = "application/x-www-form-urlencoded"
	ContentMultipart ContentType = "multipart/form-data"
	ContentWav       ContentType = "audio/wav"
	ContentRaw       ContentType = "raw"
)

// EdgeSpec is one outgoing link from a Node. Exactly one of
// InputKeys or ApplyComparison governs whether it matches; an EdgeSpec
// with neither set is a catch-all.
type EdgeSpec struct {
	TargetID int `json:"target_id"`

	// InputKeys, when non-empty, must equal the result token exactly.
	InputKeys string `json:"input_keys,omitempty"`

	// ApplyComparison switches this edge to comparison matching.
	ApplyComparison bool        `json:"apply_comparison,omitempty"`
	OperandType     OperandType `json:"operand_type,omitempty"`
	CollectionTag   string      `json:"collection_tag,omitempty"`
	Operator        Operator    `json:"operator,omitempty"`
	Value1          string      `json:"value1,omitempty"`
	Value2          string      `json:"value2,omitempty"`
}

// IsCatchAll reports whether this edge matches unconditionally.
func (e EdgeSpec) IsCatchAll() bool {
	return e.InputKeys == "" && !e.ApplyComparison
}

// Node is one step in the IVR graph. Nodes are immutable for
// the process lifetime; reloading builds a new Registry entirely.
type Node struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	OpCode OpCode `json:"op_code"`
	IsStart bool  `json:"is_start,omitempty"`

	VoiceFileID             string `json:"voice_file_id,omitempty"`
	APIID                   int    `json:"api_id,omitempty"`
	ValidKeys               string `json:"valid_keys,omitempty"`
	InputLength             int    `json:"input_length,omitempty"`
	InputTimeLimit          int    `json:"input_time_limit,omitempty"`
	TagName                 string `json:"tag_name,omitempty"`
	DefaultInput            string `json:"default_input,omitempty"`
	RecordingTypeID         int    `json:"recording_type_id,omitempty"`
	RepeatLimit             int    `json:"repeat_limit,omitempty"`
	InvalidInputVoiceFileID string `json:"invalid_input_voice_file_id,omitempty"`
	IsRepetitive            bool   `json:"is_repetitive,omitempty"`
	TimeLimitResponseType   string `json:"time_limit_response_type,omitempty"`
	IsLanguageSelect        bool   `json:"is_language_select,omitempty"`
	TagValuePrefix          string `json:"tag_value_prefix,omitempty"`

	Edges []EdgeSpec `json:"edges"`
}

// ApiInput is one templated request parameter.
type ApiInput struct {
	Name         string      `json:"name"`
	RawValue     string      `json:"raw_value"`
	Placement    Placement   `json:"placement"`
	ValueSource  ValueSource `json:"value_source"`
	DefaultValue string      `json:"default_value,omitempty"`
}

// ApiOutput describes one field extracted from a response into the
// variable store.
type ApiOutput struct {
	TagName            string `json:"tag_name"`
	JSONField          string `json:"json_field"`
	ParentField        string `json:"parent_field,omitempty"`
	IsList             bool   `json:"is_list,omitempty"`
	ListIndex          int    `json:"list_index,omitempty"`
	IsSuccessValidator bool   `json:"is_success_validator,omitempty"`
	SuccessValue       string `json:"success_value,omitempty"`
	DefaultValue       string `json:"default_value,omitempty"`
}

// ApiSpec is a single named, parameterized HTTP call.
type ApiSpec struct {
	APIID       int         `json:"api_id"`
	Method      string      `json:"method"`
	URL         string      `json:"url"`
	ContentType ContentType `json:"content_type"`

	// ApiType, when equal to "simple", selects the flat JSON body shape
	// instead of the {"values":[...]} envelope.
	ApiType string `json:"api_type,omitempty"`

	// Timeout overrides httpapi.DefaultTimeout for this call alone, as a
	// human-friendly duration string ("10s", "2m"). Empty uses the
	// invoker's default.
	Timeout string `json:"timeout,omitempty"`

	Inputs  []ApiInput  `json:"inputs"`
	Outputs []ApiOutput `json:"outputs"`
}

// IsSimpleJSON reports whether this API entry uses the flat JSON body shape.
func (a ApiSpec) IsSimpleJSON() bool {
	return a.ApiType == "simple"
}

// TimeoutDuration parses Timeout, returning zero and no error when unset.
func (a ApiSpec) TimeoutDuration() (time.Duration, error) {
	if a.Timeout == "" {
		return 0, nil
	}
	d, err := str2duration.ParseDuration(a.Timeout)
	if err != nil {
		return 0, fmt.Errorf("parse api %d timeout %q: %w", a.APIID, a.Timeout, err)
	}
	return d, nil
}

// LanguageRow is one entry of the LanguageList general setting.
// An op-30 language-select node copies every field of the matched row
// into the variable store under the same names used here.
type LanguageRow struct {
	LanguageCode       int    `json:"LanguageCode"`
	LanguageName       string `json:"LanguageName"`
	TTSLanguageCode    string `json:"TTSLanguageCode"`
	STTLanguageCode    string `json:"STTLanguageCode"`
	TTSVoiceNameBuiltIn string `json:"TTSVoiceNameBuiltIn"`
	TTSVoiceNameCloud  string `json:"TTSVoiceNameCloud"`
}

// ScheduleWindow is one weekday's business-hours window.
type ScheduleWindow struct {
	From string `json:"From"`
	To   string `json:"To"`
}

// Schedule maps weekday keys (SUN..SAT) to their availability window.
// An entry absent or with a blank From/To means the IVR is unavailable
// that entire day.
type Schedule map[string]ScheduleWindow

// AgentRosterEntry is one row of the supplementary agent roster file.
type AgentRosterEntry struct {
	Extension string `json:"extension"`
	IsAgent   bool   `json:"is_agent"`
}

// RecordingProfile is one row of the supplementary recording profiles
// file, looked up by op 40 via RecordingTypeID.
type RecordingProfile struct {
	ID         int    `json:"id"`
	FilePrefix string `json:"file_prefix"`

	// MaxDurationSec is the legacy plain-integer-seconds form. Either it
	// or MaxDuration may be set; MaxDuration wins when both are present.
	MaxDurationSec int `json:"max_duration_sec,omitempty"`

	// MaxDuration is a human-friendly duration string ("90s", "2m"),
	// parsed by str2duration. Catalog authors can write either form.
	MaxDuration string `json:"max_duration,omitempty"`
}

// Duration resolves MaxDuration/MaxDurationSec into a time.Duration.
func (p RecordingProfile) Duration() (time.Duration, error) {
	if p.MaxDuration != "" {
		d, err := str2duration.ParseDuration(p.MaxDuration)
		if err != nil {
			return 0, fmt.Errorf("parse recording profile %d max_duration %q: %w", p.ID, p.MaxDuration, err)
		}
		return d, nil
	}
	return time.Duration(p.MaxDurationSec) * time.Second, nil
}
