// Package cluster provides distributed coordination for multiple ivrflow
// instances using the alan UDP peer discovery library. Call handling itself
// needs no coordination but registry reloads do: when an operator pushes a new flow graph
// or API catalog to one instance, every peer must swap to the same
// registry snapshot before the next call lands on it.
package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/rakunlabs/alan"
)

const (
	// lockReload is the distributed lock name guarding a reload broadcast,
	// so concurrent reload requests on different instances don't race.
	lockReload = "registry-reload"

	// msgTypeReload identifies a registry-reload broadcast message.
	msgTypeReload = "reload-registry"
)

// clusterMessage is the JSON envelope for messages sent between peers.
type clusterMessage struct {
	Type string `json:"type"`
	// Version is the new registry version (see internal/store) that
	// peers should load before acknowledging.
	Version int `json:"version,omitempty"`
}

// Cluster wraps an alan instance with ivrflow-specific coordination.
type Cluster struct {
	alan *alan.Alan
}

// New creates a Cluster from the server's alan configuration.
// Returns nil, nil if cfg is nil (clustering disabled; single instance).
func New(cfg *alan.Config) (*Cluster, error) {
	if cfg == nil {
		return nil, nil
	}

	a, err := alan.New(*cfg)
	if err != nil {
		return nil, fmt.Errorf("create alan instance: %w", err)
	}

	return &Cluster{alan: a}, nil
}

// Start begins the alan peer discovery system in the background. onReload
// is invoked with the broadcast version whenever a peer announces that a
// new registry snapshot is available. Start blocks until ctx is cancelled;
// run it in a goroutine.
func (c *Cluster) Start(ctx context.Context, onReload func(version int)) error {
	c.alan.OnPeerJoin(func(addr *net.UDPAddr) {
		slog.Info("cluster peer joined", "addr", addr.String())
	})

	c.alan.OnPeerLeave(func(addr *net.UDPAddr) {
		slog.Info("cluster peer left", "addr", addr.String())
	})

	handler := func(_ context.Context, msg alan.Message) {
		var cm clusterMessage
		if err := json.Unmarshal(msg.Data, &cm); err != nil {
			slog.Warn("cluster: invalid message", "from", msg.Addr, "error", err)
			return
		}

		switch cm.Type {
		case msgTypeReload:
			slog.Info("cluster: received registry reload from peer", "from", msg.Addr, "version", cm.Version)

			if onReload != nil {
				onReload(cm.Version)
			}

			if msg.IsRequest() {
				c.alan.Reply(msg, []byte("ok")) //nolint:errcheck
			}

		default:
			slog.Debug("cluster: unknown message type", "type", cm.Type, "from", msg.Addr)
		}
	}

	return c.alan.Start(ctx, handler)
}

// Stop gracefully leaves the cluster.
func (c *Cluster) Stop() error {
	return c.alan.Stop()
}

// LockReload acquires the distributed lock guarding a reload broadcast.
// Blocks until the lock is acquired or the context is cancelled.
func (c *Cluster) LockReload(ctx context.Context) error {
	return c.alan.Lock(ctx, lockReload)
}

// UnlockReload releases the reload lock.
func (c *Cluster) UnlockReload() error {
	return c.alan.Unlock(lockReload)
}

// BroadcastReload tells every peer to reload the registry to the given
// version and waits for their acknowledgements.
func (c *Cluster) BroadcastReload(ctx context.Context, version int) error {
	peers := c.alan.Peers()
	if len(peers) == 0 {
		slog.Info("cluster: no peers to broadcast reload to")
		return nil
	}

	cm := clusterMessage{Type: msgTypeReload, Version: version}

	data, err := json.Marshal(cm)
	if err != nil {
		return fmt.Errorf("marshal cluster message: %w", err)
	}

	broadcastCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	replies, err := c.alan.SendAndWaitReply(broadcastCtx, data)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("broadcast reload: %w", err)
	}

	slog.Info("cluster: reload broadcast complete", "peers", len(peers), "acks", len(replies))

	if len(replies) < len(peers) {
		slog.Warn("cluster: not all peers acknowledged reload", "expected", len(peers), "received", len(replies))
	}

	return nil
}

// Ready returns a channel that is closed when the cluster is ready.
func (c *Cluster) Ready() <-chan struct{} {
	return c.alan.Ready()
}
