// Package listener wakes the event dispatcher when a settlement pass commits
// outbox rows. It holds its own pgx connection, outside the pool, because a
// LISTEN session pins the connection.
//
// Notification payloads are game instance ids. The dispatcher still polls,
// so a missed NOTIFY only delays delivery.
package listener

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const (
	minBackoff = 5 * time.Second
	maxBackoff = 30 * time.Second
)

// Handler receives each payload. An empty payload means "check everything",
// sent once per (re)connect to catch up on what was missed while down.
type Handler func(payload string)

// Start listens on channel until ctx ends, reconnecting with doubling
// backoff. The backoff resets once a session has connected.
func Start(ctx context.Context, dbURL, channel string, handle Handler, logger *slog.Logger) {
	backoff := minBackoff
	for {
		connected, err := session(ctx, dbURL, channel, handle, logger)
		if ctx.Err() != nil {
			logger.Info("Event listener stopped")
			return
		}
		if connected {
			backoff = minBackoff
		}
		logger.Error("Event listener disconnected", "channel", channel, "error", err, "retry_in", backoff)

		t := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			return
		case <-t.C:
		}
		backoff = min(2*backoff, maxBackoff)
	}
}

// session runs one LISTEN connection. connected reports whether LISTEN
// succeeded before the session ended.
func session(ctx context.Context, dbURL, channel string, handle Handler, logger *slog.Logger) (connected bool, err error) {
	conn, err := pgx.Connect(ctx, dbURL)
	if err != nil {
		return false, fmt.Errorf("connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{channel}.Sanitize()); err != nil {
		return false, fmt.Errorf("listen %s: %w", channel, err)
	}
	logger.Info("Event listener connected", "channel", channel)
	handle("")

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return true, fmt.Errorf("wait for notification: %w", err)
		}
		logger.Debug("Settlement events committed", "game_instance_id", n.Payload)
		handle(n.Payload)
	}
}
