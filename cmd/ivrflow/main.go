package main

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/rakunlabs/into"
	"github.com/rakunlabs/logi"
	"github.com/worldline-go/hardloop"

	"github.com/rakunlabs/ivrflow/internal/cluster"
	"github.com/rakunlabs/ivrflow/internal/config"
	"github.com/rakunlabs/ivrflow/internal/crypto"
	"github.com/rakunlabs/ivrflow/internal/ivr/agent"
	"github.com/rakunlabs/ivrflow/internal/ivr/engine"
	"github.com/rakunlabs/ivrflow/internal/ivr/flow"
	"github.com/rakunlabs/ivrflow/internal/ivr/httpapi"
	_ "github.com/rakunlabs/ivrflow/internal/ivr/ops"
	"github.com/rakunlabs/ivrflow/internal/ivr/registry"
	"github.com/rakunlabs/ivrflow/internal/ivr/stt"
	"github.com/rakunlabs/ivrflow/internal/notify"
	"github.com/rakunlabs/ivrflow/internal/server"
	"github.com/rakunlabs/ivrflow/internal/store"
)

var (
	name    = "ivrflow"
	version = "v0.0.0"
)

func main() {
	config.Service = name + "/" + version

	into.Init(run,
		into.WithLogger(logi.InitializeLog(logi.WithCaller(false))),
		into.WithMsgf("%s [%s]", name, version),
	)
}

// ///////////////////////////////////////////////////////////////////

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var encKey []byte
	if cfg.EncryptionKey != "" {
		encKey, err = crypto.DeriveKey(cfg.EncryptionKey)
		if err != nil {
			return fmt.Errorf("derive encryption key: %w", err)
		}
	}

	flowFiles := toRegistryFiles(cfg.Flow)

	reg, err := registry.Load(flowFiles, 1)
	if err != nil {
		return fmt.Errorf("load flow registry: %w", err)
	}

	st, err := store.New(ctx, cfg.Store, encKey)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	notifier := notify.New(cfg.Notify)
	agentManager := agent.NewManager(cfg.QueueName, notifier)

	invoker := &httpapi.Invoker{
		InsecureSkipVerify: cfg.HTTP.InsecureSkipVerify,
		Timeout:            cfg.HTTP.Timeout,
		EncKey:             encKey,
	}
	if cfg.HTTP.OAuth2 != nil {
		invoker.TokenSource = (&clientcredentials.Config{
			ClientID:     cfg.HTTP.OAuth2.ClientID,
			ClientSecret: cfg.HTTP.OAuth2.ClientSecret,
			TokenURL:     cfg.HTTP.OAuth2.TokenURL,
			Scopes:       cfg.HTTP.OAuth2.Scopes,
		}).TokenSource(ctx)
	}

	var sttClient flow.STTTranscriber
	if cfg.STT.AssemblyAIAPIKey != "" {
		sttClient = stt.NewClient(cfg.STT.AssemblyAIAPIKey)
	}

	eng := engine.New(reg, cfg.MaxNodeTransitions, invoker, sttClient, agentManager, st)

	cl, err := cluster.New(cfg.Server.Alan)
	if err != nil {
		return fmt.Errorf("create cluster: %w", err)
	}

	if cl != nil {
		go func() {
			onReload := func(version int) {
				reloaded, err := registry.Load(flowFiles, version)
				if err != nil {
					slog.Error("cluster: failed to apply peer-broadcast reload", "error", err)
					return
				}
				eng.Reload(reloaded)
			}
			if err := cl.Start(ctx, onReload); err != nil && ctx.Err() == nil {
				slog.Error("cluster: stopped unexpectedly", "error", err)
			}
		}()
		defer cl.Stop() //nolint:errcheck
	}

	if cfg.ReloadInterval > 0 {
		cron, err := hardloop.NewCron(hardloop.Cron{
			Name:  "registry-reload",
			Specs: []string{"@every " + cfg.ReloadInterval.String()},
			Func:  pollReloadFunc(flowFiles, eng, notifier),
		})
		if err != nil {
			return fmt.Errorf("create reload poller: %w", err)
		}
		if err := cron.Start(ctx); err != nil {
			return fmt.Errorf("start reload poller: %w", err)
		}
		defer cron.Stop()
	}

	srv := server.New(cfg.Server, eng, st, cl, flowFiles, encKey)

	slog.Info("ivrflow ready", "port", cfg.Server.Port)

	return srv.Start(ctx)
}

// toRegistryFiles adapts config.FlowFiles to registry.Files so
// internal/config stays free of the registry package's dependency
// surface.
func toRegistryFiles(f config.FlowFiles) registry.Files {
	return registry.Files{
		IVRConfig:         f.IVRConfig,
		APICatalog:        f.APICatalog,
		AgentRoster:       f.AgentRoster,
		RecordingProfiles: f.RecordingProfiles,
	}
}

// pollReloadFunc returns the cron tick that re-reads the flow registry
// from disk, swapping it into eng whenever the files parse cleanly. A
// parse failure is logged and the previous registry stays active; the
// returned error is always nil so hardloop keeps the loop running.
func pollReloadFunc(flowFiles registry.Files, eng *engine.Engine, notifier *notify.Notifier) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		version := eng.Registry().Version() + 1

		reg, err := registry.Load(flowFiles, version)
		if err != nil {
			slog.Warn("scheduled reload failed, keeping previous registry", "error", err)
			if notifier != nil {
				if nerr := notifier.Notify(ctx, "ivrflow: registry reload failed",
					fmt.Sprintf("scheduled reload of the flow configuration failed: %v", err)); nerr != nil {
					slog.Warn("reload failure alert not delivered", "error", nerr)
				}
			}
			return nil
		}

		eng.Reload(reg)
		slog.Info("scheduled reload applied", "version", version)

		return nil
	}
}
