// Package config loads process-level settings for the ivrflow engine: log
// level, the store backend, the clustering/telemetry layers, and the
// filesystem locations of the IVR configuration documents (flow graph
// and API catalog).
package config

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rakunlabs/alan"
	_ "github.com/rakunlabs/chu/loader/external/loaderconsul"
	_ "github.com/rakunlabs/chu/loader/external/loadervault"
	"github.com/rakunlabs/chu/loader/loaderenv"
	"github.com/rakunlabs/logi"

	"github.com/rakunlabs/chu"
	"github.com/rakunlabs/tell"
)

var Service = ""

type Config struct {
	LogLevel string `cfg:"log_level,no_prefix" default:"info"`

	// Flow holds the filesystem paths of the JSON configuration
	// documents: the node graph, the API call catalog, and the two
	// supplementary documents (agent roster, recording profiles).
	Flow FlowFiles `cfg:"flow"`

	// ReloadInterval controls how often the registry re-reads the flow
	// files from disk. Zero disables polling; the registry can still be
	// reloaded on demand via the admin API or a cluster broadcast.
	ReloadInterval time.Duration `cfg:"reload_interval" default:"0s"`

	// MaxNodeTransitions bounds the flow driver's per-call loop. A call that exceeds this many node transitions
	// without reaching a terminal node is aborted as a fatal error.
	MaxNodeTransitions int `cfg:"max_node_transitions" default:"300"`

	// QueueName names the agent queue ops 100/101 dispatch to. Empty
	// falls back to the agent manager's default.
	QueueName string `cfg:"queue_name"`

	// EncryptionKey, if set, enables AES-256-GCM encryption of the
	// call-record Error field persisted by the store, and lets the HTTP
	// invoker decrypt static ApiInput values carrying the "enc:" prefix.
	// Any non-empty passphrase is accepted.
	EncryptionKey string `cfg:"encryption_key" log:"-"`

	Store     Store       `cfg:"store"`
	Server    Server      `cfg:"server"`
	Notify    Notify      `cfg:"notify"`
	STT       STT         `cfg:"stt"`
	HTTP      HTTP        `cfg:"http"`
	Telemetry tell.Config `cfg:"telemetry,noprefix"`
}

// STT configures the speech-to-text subsystem op 341 calls. An empty APIKey leaves transcription unavailable; flows that
// never use op 341 don't need it configured.
type STT struct {
	AssemblyAIAPIKey string `cfg:"assemblyai_api_key" log:"-"`
}

// HTTP configures the ops-111/112 HTTP invoker subsystem.
type HTTP struct {
	InsecureSkipVerify bool          `cfg:"insecure_skip_verify"`
	Timeout            time.Duration `cfg:"timeout" default:"15s"`

	// OAuth2 client-credentials, if set, attaches a bearer token to
	// every outbound API call the invoker makes, refreshed
	// transparently as it expires.
	OAuth2 *HTTPOAuth2 `cfg:"oauth2"`
}

type HTTPOAuth2 struct {
	TokenURL     string   `cfg:"token_url"`
	ClientID     string   `cfg:"client_id"`
	ClientSecret string   `cfg:"client_secret" log:"-"`
	Scopes       []string `cfg:"scopes"`
}

// FlowFiles are the on-disk locations of the configuration documents.
// All are plain JSON files read at startup and on reload.
type FlowFiles struct {
	IVRConfig       string `cfg:"ivr_config" default:"./ivrconfig.json"`
	APICatalog      string `cfg:"api_catalog" default:"./automax_webAPIConfig.json"`
	AgentRoster     string `cfg:"agent_roster" default:"./agents.json"`
	RecordingProfiles string `cfg:"recording_profiles" default:"./recordings.json"`
}

type Server struct {
	Port string `cfg:"port" default:"8080"`
	Host string `cfg:"host"`

	// AdminToken protects the /api/v1/settings/* endpoints (key
	// rotation) with bearer token authentication; when it is empty those
	// endpoints reject every request. Other /api/v1/* routes are not
	// authenticated.
	AdminToken string `cfg:"admin_token" log:"-"`

	// Alan, if set, enables multi-instance coordination: a config reload
	// triggered on one instance is broadcast to every peer so they all
	// pick up the same flow graph and API catalog.
	Alan *alan.Config `cfg:"alan"`
}

// Notify configures best-effort operational alerting, independent of call
// handling: an SMTP message is sent when the agent rendezvous finds
// no available agents, or when the registry fails to reload.
type Notify struct {
	SMTP *NotifySMTP `cfg:"smtp"`
	// To is the list of operator addresses that receive alerts.
	To []string `cfg:"to"`
}

type NotifySMTP struct {
	Host               string `cfg:"host"`
	Port               int    `cfg:"port" default:"587"`
	Username           string `cfg:"username"`
	Password           string `cfg:"password" log:"-"`
	From               string `cfg:"from"`
	InsecureSkipVerify bool   `cfg:"insecure_skip_verify"`
}

type Store struct {
	Postgres *StorePostgres `cfg:"postgres"`
	SQLite   *StoreSQLite   `cfg:"sqlite"`
}

type StorePostgres struct {
	TablePrefix     *string        `cfg:"table_prefix"`
	Datasource      string         `cfg:"datasource" log:"-"`
	Schema          string         `cfg:"schema"`
	ConnMaxLifetime *time.Duration `cfg:"conn_max_lifetime"`
	MaxIdleConns    *int           `cfg:"max_idle_conns"`
	MaxOpenConns    *int           `cfg:"max_open_conns"`

	Migrate Migrate `cfg:"migrate"`
}

type StoreSQLite struct {
	TablePrefix *string `cfg:"table_prefix"`
	Datasource  string  `cfg:"datasource" default:"./ivrflow.db"`

	Migrate Migrate `cfg:"migrate"`
}

type Migrate struct {
	Datasource string            `cfg:"datasource" log:"-"`
	Schema     string            `cfg:"schema"`
	Table      string            `cfg:"table"`
	Values     map[string]string `cfg:"values"`
}

func Load(ctx context.Context, path string) (*Config, error) {
	var cfg Config
	if err := chu.Load(ctx, path, &cfg, chu.WithLoaderOption(loaderenv.New(loaderenv.WithPrefix("IVRFLOW_")))); err != nil {
		return nil, err
	}

	if err := logi.SetLogLevel(cfg.LogLevel); err != nil {
		return nil, fmt.Errorf("set log level %s: %w", cfg.LogLevel, err)
	}

	slog.Info("loaded configuration", "config", chu.MarshalMap(cfg))

	return &cfg, nil
}
