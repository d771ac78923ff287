// Package redistest contains utilities for unit tests with Redis.
package redistest

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"go.od2.network/tubeq/pkg/exectest"
)

// Redis is a Redis server and client for use in end-to-end unit tests.
type Redis struct {
	Cmd    *exec.Cmd
	Client *redis.Client

	bg      *exectest.Background
	tempDir string
}

// NewRedis starts an ephemeral Redis server and returns a client.
// It skips the test if redis-server is not installed.
func NewRedis(ctx context.Context, t testing.TB) *Redis {
	if _, err := exec.LookPath("redis-server"); err != nil {
		t.Skip("redis-server not installed:", err)
	}
	// Run Redis server as subprocess.
	dir, err := os.MkdirTemp("", "redistest-")
	if err != nil {
		t.Fatal("Failed to get temp dir:", err)
	}
	socket := filepath.Join(dir, "redis.sock")
	redisCmd := exec.CommandContext(ctx, "redis-server",
		"--port", "0",
		"--unixsocket", socket,
		"--unixsocketperm", "700",
		"--save", "",
		"--loglevel", "verbose")
	redisCmd.Dir = dir
	bg := exectest.NewBackground(t, redisCmd)
	bg.Name = "redis"
	bg.LogStdout = true
	bg.LogStderr = true
	bg.Start()
	// Create Redis client.
	client := redis.NewClient(&redis.Options{
		Network: "unix",
		Addr:    socket,
	})
	// Give Redis a few seconds to start up.
	// Errors like a missing socket or a refused connection mean it's still loading.
	err = bg.WaitReady(100*time.Millisecond, 30, func() error {
		return client.Ping(ctx).Err()
	})
	if err != nil {
		_ = client.Close()
		bg.Close()
		_ = os.RemoveAll(dir)
		t.Fatal("Redis did not come up:", err)
	}
	t.Log("redistest: Redis is up")
	return &Redis{
		Cmd:    redisCmd,
		Client: client,

		bg:      bg,
		tempDir: dir,
	}
}

// Close shuts down the server and client and removes its files.
func (r *Redis) Close(t testing.TB) {
	_ = r.Client.Close()
	t.Log("redistest: Removing", r.tempDir)
	r.bg.Close()
	_ = os.RemoveAll(r.tempDir)
}
