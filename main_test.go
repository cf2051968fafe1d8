package main

import (
	"bytes"
	"context"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wricardo/mazed/client"
)

func run(t *testing.T, ctx context.Context, in string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp(strings.NewReader(in), &out)
	err := app.Run(ctx, append([]string{AppName}, args...))
	return out.String(), err
}

func TestConstants(t *testing.T) {
	assert.Equal(t, "1.0.0", Version)
	assert.Equal(t, "mazed", AppName)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, context.Background(), "", "version")
	require.NoError(t, err)
	assert.Equal(t, "mazed v1.0.0\n", out)
}

func TestLocalURL(t *testing.T) {
	assert.Equal(t, "http://127.0.0.1:8080", localURL(":8080"))
	assert.Equal(t, "http://127.0.0.1:8080", localURL("0.0.0.0:8080"))
	assert.Equal(t, "http://localhost:9000", localURL("localhost:9000"))
	assert.Equal(t, "http://[::1]:9000", localURL("[::1]:9000"))
}

func TestLevelsValidateShippedLevels(t *testing.T) {
	out, err := run(t, context.Background(), "", "levels", "validate", "levels")
	require.NoError(t, err)
	assert.Contains(t, out, "intro.yaml (intro)")
	assert.Contains(t, out, "spiral.yaml (spiral)")
	assert.Contains(t, out, "open-field.json (open)")
	assert.Contains(t, out, "3 level files are valid")
}

func TestLevelsValidateReportsInvalidFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.yaml"), []byte("code: good\nlayout: [\"#####\", \"#S.E#\", \"#####\"]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "walled.yaml"), []byte("code: walled\nlayout: [\"#####\", \"#S#E#\", \"#####\"]\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "clash.yaml"), []byte("code: test\nkind: test\n"), 0o644))

	out, err := run(t, context.Background(), "", "levels", "validate", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 of 3")
	assert.Contains(t, out, "ok      "+filepath.Join(dir, "good.yaml"))
	assert.Contains(t, out, "INVALID "+filepath.Join(dir, "walled.yaml"))
	assert.Contains(t, out, "INVALID "+filepath.Join(dir, "clash.yaml"))
}

func TestLevelsList(t *testing.T) {
	out, err := run(t, context.Background(), "", "levels", "list", "--levels-dir", "levels")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "intro "))
	assert.True(t, strings.HasPrefix(lines[1], "open "))
	assert.True(t, strings.HasPrefix(lines[2], "spiral "))
	assert.True(t, strings.HasPrefix(lines[3], "test "))
	assert.Contains(t, lines[3], "max_connections=2 max_duration=10s")

	out, err = run(t, context.Background(), "", "levels", "list", "--levels-dir", "")
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
}

func TestLevelsAnalyze(t *testing.T) {
	out, err := run(t, context.Background(), "", "levels", "analyze", "levels")
	require.NoError(t, err)
	assert.Contains(t, out, "intro: 7x6, 13 open cells (31%), shortest solution 7 moves: ddssdds")
	assert.Contains(t, out, "open: 6x5, 12 open cells (40%)")
}

func freeAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestServePlayAndSolve(t *testing.T) {
	addr := freeAddr(t)
	history := t.TempDir()

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		_, err := run(t, ctx, "", "serve",
			"--addr", addr,
			"--http-addr", "",
			"--levels-dir", "levels",
			"--history-dir", history,
		)
		served <- err
	}()
	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 20*time.Millisecond)

	clientCtx, clientCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer clientCancel()

	out, err := run(t, clientCtx, "", "solve", "--server", addr, "--user", "bob", "--level", "intro")
	require.NoError(t, err)
	assert.Contains(t, out, "solved in 7 moves: ddssdds")
	assert.Contains(t, out, "You found the exit!")

	out, err = run(t, clientCtx, "d w\nq", "play", "--server", addr, "--user", "carol", "--level", "intro")
	require.NoError(t, err)
	assert.Contains(t, out, "maze is 7x6")
	assert.Contains(t, out, "d -> (2,1)")
	assert.Contains(t, out, "w: You bump into a wall.")
	assert.Contains(t, out, "q: Unknown move")

	_, err = run(t, clientCtx, "", "solve", "--server", addr, "--user", "dave", "--level", "tardis")
	assert.ErrorContains(t, err, "unknown level")

	cancel()
	select {
	case err := <-served:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not stop")
	}

	assert.Eventually(t, func() bool {
		entries, err := os.ReadDir(history)
		return err == nil && len(entries) == 2
	}, 2*time.Second, 20*time.Millisecond)
}

// startServe runs the serve command on a free port until the test ends.
func startServe(t *testing.T, args ...string) string {
	t.Helper()
	addr := freeAddr(t)

	ctx, cancel := context.WithCancel(context.Background())
	served := make(chan error, 1)
	go func() {
		_, err := run(t, ctx, "", append([]string{"serve", "--addr", addr, "--http-addr", ""}, args...)...)
		served <- err
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-served:
		case <-time.After(5 * time.Second):
			t.Error("serve did not stop")
		}
	})

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}, 5*time.Second, 20*time.Millisecond)
	return addr
}

func TestClientCommandsWaitForSlot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "solo.yaml"), []byte(
		"code: solo\nmax_connections: 1\nlayout: [\"#####\", \"#S.E#\", \"#####\"]\n"), 0o644))
	addr := startServe(t, "--levels-dir", dir)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	holder, err := client.Dial(ctx, addr, client.Options{User: "alice", Level: "solo"})
	require.NoError(t, err)

	_, err = run(t, ctx, "", "solve", "--server", addr, "--user", "bob", "--level", "solo")
	assert.ErrorContains(t, err, "level is full")

	type result struct {
		out string
		err error
	}
	solved := make(chan result, 1)
	go func() {
		out, err := run(t, ctx, "", "solve", "--server", addr, "--user", "carol", "--level", "solo", "--wait")
		solved <- result{out, err}
	}()

	select {
	case r := <-solved:
		t.Fatalf("solve finished while the level was full: %v", r.err)
	case <-time.After(100 * time.Millisecond):
	}
	require.NoError(t, holder.Close())

	r := <-solved
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "solved in 2 moves: dd")

	holder, err = client.Dial(ctx, addr, client.Options{User: "alice", Level: "solo"})
	require.NoError(t, err)
	played := make(chan result, 1)
	go func() {
		out, err := run(t, ctx, "d", "play", "--server", addr, "--user", "dave", "--level", "solo", "--wait")
		played <- result{out, err}
	}()
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, holder.Close())

	r = <-played
	require.NoError(t, r.err)
	assert.Contains(t, r.out, "maze is 5x3")
	assert.Contains(t, r.out, "d -> (2,1)")
}
