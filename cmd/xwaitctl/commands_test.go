//go:build unix || windows

package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xwait/pkg/sync/xwaitobj"
)

func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(context.Background(), append([]string{"xwaitctl"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func TestRun_Probe(t *testing.T) {
	code, out, errOut := runCLI(t, "probe")
	require.Equal(t, 0, code, errOut)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 5)
	want := []struct {
		step     string
		signaled string
	}{
		{"new", "signaled=false"},
		{"set", "signaled=true"},
		{"set", "signaled=true"},
		{"clear", "signaled=false"},
		{"close", "signaled=false"},
	}
	for i, w := range want {
		fields := strings.Fields(lines[i])
		require.Len(t, fields, 2, lines[i])
		assert.Equal(t, w.step, fields[0])
		assert.Equal(t, w.signaled, fields[1])
	}
}

func TestRun_Bench(t *testing.T) {
	code, out, errOut := runCLI(t, "bench", "--iterations", "50")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "iterations=50 ")
	assert.Contains(t, out, "xwait.loop.wakeups{")
	assert.Contains(t, out, "source=signal")
}

func TestRun_Loop(t *testing.T) {
	code, out, errOut := runCLI(t, "loop", "--duration", "200ms", "--interval", "10ms")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "loop=xloop ")
	assert.Contains(t, out, "pushed=")
	assert.NotContains(t, out, "pushed=0 ")
}

func TestRun_LoopWithConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: cli\npoll_interval: 20ms\n"), 0o600))

	code, out, errOut := runCLI(t, "loop", "--config", path, "--duration", "150ms")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "loop=cli ")
	assert.NotContains(t, out, "ticks=0\n")
}

func TestCmdLoop_ReloadsConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("name: before\n"), 0o600))

	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	done := make(chan error, 1)
	go func() {
		done <- cmdLoop(context.Background(), &out, logger, loopOptions{
			configPath: path,
			duration:   2 * time.Second,
			interval:   50 * time.Millisecond,
		})
	}()

	time.Sleep(300 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("name: after\n"), 0o600))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("cmdLoop did not return")
	}
	assert.Contains(t, out.String(), "loop=after ")
	assert.NotContains(t, out.String(), "reloads=0 ")
}

func TestRun_LogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "xwaitctl.log")

	code, _, errOut := runCLI(t, "--log-file", logPath, "--log-format", "json",
		"loop", "--duration", "50ms")
	require.Equal(t, 0, code, errOut)

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"xloop: started"`)
	// 日志写入文件时不输出到 stderr。
	assert.NotContains(t, errOut, "xloop: started")
}

func TestRun_UsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown flag", []string{"probe", "--nope"}},
		{"invalid log level", []string{"--log-level", "loud", "probe"}},
		{"invalid log format", []string{"--log-format", "xml", "probe"}},
		{"zero iterations", []string{"bench", "--iterations", "0"}},
		{"negative duration", []string{"loop", "--duration", "-1s"}},
		{"zero interval", []string{"loop", "--interval", "0s"}},
		{"bad duration", []string{"loop", "--duration", "soon"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, errOut := runCLI(t, tt.args...)
			assert.Equal(t, 2, code, errOut)
		})
	}
}

func TestRun_Failure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.yaml")
	require.NoError(t, os.WriteFile(path, []byte("poll_interval: 0s\n"), 0o600))

	code, _, errOut := runCLI(t, "loop", "--config", path)
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "invalid config")
}

func TestUsageError(t *testing.T) {
	err := &usageError{msg: "test error"}
	assert.Equal(t, "test error", err.Error())

	var target *usageError
	assert.True(t, errors.As(error(err), &target))
}

func TestIsCLIUsageError(t *testing.T) {
	assert.True(t, isCLIUsageError(errors.New("flag provided but not defined: -nope")))
	assert.True(t, isCLIUsageError(errors.New(`invalid value "soon" for flag -duration`)))
	assert.False(t, isCLIUsageError(errors.New("xloop: invalid config")))
}

func newBenchObjects(t *testing.T) (*xwaitobj.Object, *xwaitobj.Object) {
	t.Helper()
	pong, err := xwaitobj.New(xwaitobj.WithName("pong"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pong.Close() })
	cancelled, err := xwaitobj.New(xwaitobj.WithName("cancelled"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = cancelled.Close() })
	return pong, cancelled
}

func TestAwaitAck(t *testing.T) {
	pong, cancelled := newBenchObjects(t)

	require.NoError(t, pong.Set())
	acked, err := awaitAck(context.Background(), pong, cancelled)
	require.NoError(t, err)
	assert.True(t, acked)
	assert.False(t, pong.IsSet())
}

// TestAwaitAck_Canceled 取消后生产者不必等满应答超时。
func TestAwaitAck_Canceled(t *testing.T) {
	pong, cancelled := newBenchObjects(t)

	ctx, cancel := context.WithCancel(context.Background())
	stop := context.AfterFunc(ctx, func() { _ = cancelled.Set() })
	defer stop()
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	acked, err := awaitAck(ctx, pong, cancelled)
	assert.False(t, acked)
	require.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), benchAckTimeout)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, benchStats{}, summarize(nil))

	s := summarize([]time.Duration{3 * time.Millisecond, time.Millisecond, 2 * time.Millisecond})
	assert.Equal(t, benchStats{
		count:   3,
		minimum: time.Millisecond,
		mean:    2 * time.Millisecond,
		maximum: 3 * time.Millisecond,
	}, s)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warning", slog.LevelWarn},
		{" error ", slog.LevelError},
	}
	for _, tt := range tests {
		got, err := parseLevel(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseLevel("verbose")
	var usageErr *usageError
	assert.ErrorAs(t, err, &usageErr)
}

func TestNewLogger_Stderr(t *testing.T) {
	var buf bytes.Buffer
	logger, closer, err := newLogger("warn", "json", "", &buf)
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestRun_Limits(t *testing.T) {
	code, out, errOut := runCLI(t, "limits", "--ensure", "16")
	require.Equal(t, 0, code, errOut)
	assert.True(t, strings.HasPrefix(out, "max_objects="), out)

	code, _, _ = runCLI(t, "limits", "--ensure", "-1")
	assert.Equal(t, 2, code)
}
