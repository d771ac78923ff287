// Package beanstalktest contains utilities for unit tests with beanstalkd.
//
// Available backends: Subprocess (local beanstalkd), Docker.
// Tests are skipped if neither is available.
package beanstalktest

import (
	"context"
	"net"
	"os/exec"
	"strconv"
	"testing"
	"time"

	"github.com/beanstalkd/go-beanstalk"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.od2.network/tubeq/pkg/exectest"
)

// Beanstalkd is a beanstalkd server and connection for use in end-to-end unit tests.
type Beanstalkd struct {
	Addr string
	Conn *beanstalk.Conn

	bg       *exectest.Background
	resource *dockertest.Resource
}

// New starts an ephemeral beanstalkd server from the fastest available backend.
func New(ctx context.Context, t testing.TB) *Beanstalkd {
	if _, err := exec.LookPath("beanstalkd"); err == nil {
		t.Log("beanstalktest: beanstalkd installed, using subprocess")
		return NewSubprocess(ctx, t)
	}
	t.Log("beanstalktest: Falling back to Docker")
	return NewDocker(t)
}

// NewSubprocess runs beanstalkd as a subprocess.
func NewSubprocess(ctx context.Context, t testing.TB) *Beanstalkd {
	addr := freeAddr(t)
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	cmd := exec.CommandContext(ctx, "beanstalkd", "-l", host, "-p", port)
	bg := exectest.NewBackground(t, cmd)
	bg.Name = "beanstalkd"
	bg.LogStdout = true
	bg.LogStderr = true
	bg.Start()
	// Give beanstalkd a few seconds to start up.
	var conn *beanstalk.Conn
	err = bg.WaitReady(100*time.Millisecond, 30, func() error {
		var err error
		conn, err = beanstalk.Dial("tcp", addr)
		return err
	})
	if err != nil {
		bg.Close()
		t.Fatal("beanstalkd did not come up:", err)
	}
	t.Log("beanstalktest: beanstalkd is up")
	return &Beanstalkd{
		Addr: addr,
		Conn: conn,
		bg:   bg,
	}
}

// NewDocker runs beanstalkd in a Docker container.
// It skips the test if Docker is not reachable.
func NewDocker(t testing.TB) *Beanstalkd {
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skip("Docker not available:", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skip("Docker not available:", err)
	}
	t.Log("Connected to Docker")
	pool.MaxWait = 2 * time.Minute
	runOpts := &dockertest.RunOptions{
		Repository: "schickling/beanstalkd",
		Tag:        "latest",
	}
	resource, err := pool.RunWithOptions(runOpts, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	require.NoError(t, err, "Creating beanstalkd")
	t.Log("Created beanstalkd Docker container")
	addr := "localhost:" + resource.GetPort("11300/tcp")
	var conn *beanstalk.Conn
	require.NoError(t, pool.Retry(func() error {
		var err error
		conn, err = beanstalk.Dial("tcp", addr)
		if err != nil {
			t.Log("Dial failed, retrying:", err)
			return err
		}
		// Connections succeed before the server answers.
		if _, err := conn.Stats(); err != nil {
			_ = conn.Close()
			t.Log("Stats failed, retrying:", err)
			return err
		}
		return nil
	}), "Connection to beanstalkd")
	return &Beanstalkd{
		Addr:     addr,
		Conn:     conn,
		resource: resource,
	}
}

// Close shuts down the server and connection.
func (b *Beanstalkd) Close(t testing.TB) {
	_ = b.Conn.Close()
	if b.bg != nil {
		b.bg.Close()
	}
	if b.resource != nil {
		assert.NoError(t, b.resource.Close(), "Removing container")
	}
}

// Dial opens another connection to the server.
func (b *Beanstalkd) Dial(t testing.TB) *beanstalk.Conn {
	conn, err := beanstalk.Dial("tcp", b.Addr)
	require.NoError(t, err)
	return conn
}

func freeAddr(t testing.TB) string {
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer lis.Close()
	port := lis.Addr().(*net.TCPAddr).Port
	return net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
}
