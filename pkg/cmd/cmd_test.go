package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"testing"
	"time"

	log "github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/maxgio92/xperfasm/pkg/cmd/parse"
	"github.com/maxgio92/xperfasm/pkg/cmd/record"
	"github.com/maxgio92/xperfasm/pkg/events"
	"github.com/maxgio92/xperfasm/pkg/healthcheck"
	"github.com/maxgio92/xperfasm/pkg/report"
)

const traceTemplate = `  SampledProfile,  TimeStamp,     Process Name ( PID),  ThreadID,           PrgrmCtr, CPU,   ThreadStartImage!Function,  Image!Function
  SampledProfile,    2000000,         target (@PID@),       4250, 0x000000000280f100,   0, sh!main, libc.so!write
  SampledProfile,    2000001,         target (@PID@),       4250, 0x000000000280f100,   0, sh!main, libc.so!write
  SampledProfile,    2000002,         target (@PID@),       4250, 0x000000000280f200,   0, sh!main, libc.so!read
  SampledProfile,    2000003,           init (1),           1, 0x000000000280f300,   0, init!main, libc.so!poll
`

// fakeXperf behaves like xperf for the commands issued by a recording: the
// converted trace is traceTemplate with the PID read from
// XPERFASM_TEST_PIDFILE.
const fakeXperf = `#!/bin/sh
case "$1" in
-d) printf etl > "$2" ;;
-i) sed "s/@PID@/$(cat "$XPERFASM_TEST_PIDFILE")/g" "$XPERFASM_TEST_TRACE" ;;
esac
exit 0
`

func newTestCommand(_ *testing.T) *cobra.Command {
	logger := log.New(log.ConsoleWriter{Out: os.Stderr})
	opts := NewOptions(WithContext(context.Background()), WithLogger(logger))
	return NewCommand(opts)
}

// setupFakeXperf installs fakeXperf and returns the root flags pointing to
// it, and the path of the PID file it reads.
func setupFakeXperf(t *testing.T) ([]string, string) {
	if runtime.GOOS == "windows" {
		t.Skip("fake xperf is a shell script")
	}
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "xperf"), []byte(fakeXperf), 0755))

	tracePath := filepath.Join(dir, "trace.tpl")
	require.NoError(t, os.WriteFile(tracePath, []byte(traceTemplate), 0644))

	pidFile := filepath.Join(dir, "target.pid")
	t.Setenv("XPERFASM_TEST_TRACE", tracePath)
	t.Setenv("XPERFASM_TEST_PIDFILE", pidFile)

	return []string{
		"--xperf-dir", dir,
		"--bin-trace", filepath.Join(dir, "trace.etl"),
		"--text-trace", filepath.Join(dir, "trace.txt"),
	}, pidFile
}

func readReport(t *testing.T, path string) *report.Report {
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	r := new(report.Report)
	require.NoError(t, json.Unmarshal(data, r))
	return r
}

func requireTargetReport(t *testing.T, r *report.Report) {
	require.Len(t, r.Events, 1)
	ev := r.Events[0]
	require.Equal(t, events.SampledProfile, ev.Event)
	require.Equal(t, uint64(3), ev.Total)
	require.Equal(t, "0x280f100", ev.HotSpots[0].Addr)
	require.Equal(t, uint64(2), ev.HotSpots[0].Count)
	require.Equal(t, "libc.so", ev.HotSpots[0].Module)
	require.Equal(t, "write", ev.HotSpots[0].Symbol)
	require.Equal(t, uint64(3), r.Stats.Matched)
}

func TestNewCommand(t *testing.T) {
	tests := []struct {
		name     string
		options  *Options
		validate func(*testing.T, *cobra.Command)
	}{
		{
			name: "default command creation",
			options: NewOptions(
				WithContext(context.Background()),
				WithLogger(log.Nop()),
			),
			validate: func(t *testing.T, cmd *cobra.Command) {
				require.Equal(t, "xperfasm", cmd.Name())
				require.Contains(t, cmd.Short, "sampling profiler")
				require.True(t, cmd.HasSubCommands())
				require.True(t, cmd.DisableAutoGenTag)
				require.NotEmpty(t, cmd.Long)
			},
		},
		{
			name:    "without options",
			options: NewOptions(),
			validate: func(t *testing.T, cmd *cobra.Command) {
				require.Equal(t, "xperfasm", cmd.Name())
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewCommand(tt.options)
			require.NotNil(t, cmd)

			if tt.validate != nil {
				tt.validate(t, cmd)
			}
		})
	}
}

func TestCommandFlags(t *testing.T) {
	cmd := newTestCommand(t)

	tests := []struct {
		name     string
		defValue string
	}{
		{"log-level", "info"},
		{"xperf-dir", ""},
		{"providers", "loader+proc_thread+profile"},
		{"symbol-dir", ""},
		{"skip", "0"},
		{"events", "[SampledProfile]"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flag := cmd.PersistentFlags().Lookup(tt.name)
			require.NotNil(t, flag)
			require.Equal(t, tt.defValue, flag.DefValue)
		})
	}

	flag := cmd.PersistentFlags().Lookup("bin-trace")
	require.NotNil(t, flag)
	require.True(t, strings.HasSuffix(flag.DefValue, ".etl"))
}

func TestCommandSubcommands(t *testing.T) {
	cmd := newTestCommand(t)

	actualSubcommands := make([]string, 0)
	for _, subCmd := range cmd.Commands() {
		actualSubcommands = append(actualSubcommands, subCmd.Name())
	}

	for _, expected := range []string{"run", "record", "parse", "wait", "stop", "status"} {
		require.Contains(t, actualSubcommands, expected)
	}
}

func TestCommandHelp(t *testing.T) {
	cmd := newTestCommand(t)

	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	helpOutput := output.String()
	require.Contains(t, helpOutput, "xperfasm")
	require.Contains(t, helpOutput, "Available Commands:")
	require.Contains(t, helpOutput, "record")
	require.Contains(t, helpOutput, "--xperf-dir")
}

func TestCommandExecutionWithoutSubcommand(t *testing.T) {
	cmd := newTestCommand(t)

	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())
	require.Contains(t, output.String(), "Available Commands:")
}

func TestCommandInvalidFlag(t *testing.T) {
	cmd := newTestCommand(t)

	var output bytes.Buffer
	cmd.SetErr(&output)
	cmd.SetArgs([]string{"--invalid-flag"})

	require.Error(t, cmd.Execute())
	require.Contains(t, output.String(), "unknown flag")
}

func TestCommandLogLevelFlag(t *testing.T) {
	tests := []struct {
		name     string
		logLevel string
		wantErr  bool
	}{
		{"trace level", "trace", false},
		{"debug level", "debug", false},
		{"info level", "info", false},
		{"warn level", "warn", false},
		{"error level", "error", false},
		{"invalid level", "invalid", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newTestCommand(t)

			var output bytes.Buffer
			cmd.SetOut(&output)
			cmd.SetErr(&output)
			cmd.SetArgs([]string{"--log-level", tt.logLevel, "status"})

			err := cmd.Execute()
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Contains(t, output.String(), "xperfasm is")
		})
	}
}

func TestParseCommand(t *testing.T) {
	dir := t.TempDir()
	tracePath := filepath.Join(dir, "trace.txt")
	trace := strings.ReplaceAll(traceTemplate, "@PID@", "4242")
	require.NoError(t, os.WriteFile(tracePath, []byte(trace), 0644))

	t.Run("aggregates the samples of the PID", func(t *testing.T) {
		reportPath := filepath.Join(dir, "report.json")
		pprofPath := filepath.Join(dir, "profile.pb.gz")

		cmd := newTestCommand(t)
		var output bytes.Buffer
		cmd.SetOut(&output)
		cmd.SetArgs([]string{"parse", "--pid", "4242", "--report-json", reportPath, "--pprof", pprofPath, tracePath})

		require.NoError(t, cmd.Execute())
		require.Contains(t, output.String(), "0x280f100")
		requireTargetReport(t, readReport(t, reportPath))
		require.FileExists(t, pprofPath)
	})

	t.Run("defaults to the text trace flag", func(t *testing.T) {
		reportPath := filepath.Join(dir, "report-default.json")

		cmd := newTestCommand(t)
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetArgs([]string{"--text-trace", tracePath, "parse", "--pid", "4242", "--report-json", reportPath})

		require.NoError(t, cmd.Execute())
		requireTargetReport(t, readReport(t, reportPath))
	})

	t.Run("requires the PID", func(t *testing.T) {
		cmd := newTestCommand(t)
		cmd.SetOut(new(bytes.Buffer))
		cmd.SetErr(new(bytes.Buffer))
		cmd.SetArgs([]string{"parse", tracePath})

		require.ErrorIs(t, cmd.Execute(), parse.ErrPIDRequired)
	})

	t.Run("reports no samples on missing trace", func(t *testing.T) {
		reportPath := filepath.Join(dir, "report-missing.json")

		cmd := newTestCommand(t)
		var output bytes.Buffer
		cmd.SetOut(&output)
		cmd.SetErr(new(bytes.Buffer))
		cmd.SetArgs([]string{"parse", "--pid", "4242", "--report-json", reportPath, filepath.Join(dir, "missing.txt")})

		require.NoError(t, cmd.Execute())
		require.Contains(t, output.String(), "SampledProfile: 0 samples")

		r := readReport(t, reportPath)
		require.Len(t, r.Events, 1)
		require.Zero(t, r.Events[0].Total)
		require.Empty(t, r.Events[0].HotSpots)
		require.Zero(t, r.Stats.Lines)
	})
}

func TestRunCommand(t *testing.T) {
	flags, pidFile := setupFakeXperf(t)
	out := t.TempDir()
	reportPath := filepath.Join(out, "report.json")
	saveText := filepath.Join(out, "saved.txt")

	cmd := newTestCommand(t)
	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(append(flags,
		"run", "--report-json", reportPath, "--save-text", saveText,
		"--", "sh", "-c", `echo $$ > "$XPERFASM_TEST_PIDFILE"`,
	))

	require.NoError(t, cmd.Execute())

	r := readReport(t, reportPath)
	requireTargetReport(t, r)

	data, err := os.ReadFile(pidFile)
	require.NoError(t, err)
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	require.NoError(t, err)
	require.Equal(t, pid, r.PID)
	require.Equal(t, "xperfasm", r.Profiler)
	require.FileExists(t, saveText)
	require.Contains(t, output.String(), "write")
}

func TestRunCommand_Unsupported(t *testing.T) {
	cmd := newTestCommand(t)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"--xperf-dir", t.TempDir(), "run", "--", "true"})

	require.Error(t, cmd.Execute())
}

func TestRunCommand_RequiresCommand(t *testing.T) {
	cmd := newTestCommand(t)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"run"})

	require.Error(t, cmd.Execute())
}

func TestRecordCommand(t *testing.T) {
	flags, pidFile := setupFakeXperf(t)
	require.NoError(t, os.WriteFile(pidFile, []byte("4242"), 0644))

	// t.TempDir can exceed the unix socket path limit.
	dir, err := os.MkdirTemp("", "xpa")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(dir) })
	socketPath := filepath.Join(dir, "record.sock")
	reportPath := filepath.Join(dir, "report.json")

	cmd := newTestCommand(t)
	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(append(flags,
		"record", "--pid", "4242", "--status=false",
		"--socket-path", socketPath, "--report-json", reportPath,
	))

	done := make(chan error, 1)
	go func() {
		done <- cmd.Execute()
	}()

	require.Eventually(t, func() bool {
		resp, err := healthcheck.Request(socketPath, healthcheck.ReqReady, 100*time.Millisecond)
		return err == nil && resp == healthcheck.ReadyMsg
	}, 10*time.Second, 50*time.Millisecond)

	require.NoError(t, healthcheck.RequestStop(socketPath, 5*time.Second))

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("record did not stop")
	}

	r := readReport(t, reportPath)
	requireTargetReport(t, r)
	require.Equal(t, 4242, r.PID)
	require.NoFileExists(t, socketPath)
}

func TestRecordCommand_RequiresPID(t *testing.T) {
	cmd := newTestCommand(t)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"record"})

	require.ErrorIs(t, cmd.Execute(), record.ErrPIDRequired)
}

func TestWaitCommand_Timeout(t *testing.T) {
	cmd := newTestCommand(t)
	cmd.SetOut(new(bytes.Buffer))
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs([]string{"wait",
		"--socket-path", filepath.Join(t.TempDir(), "missing.sock"),
		"--timeout", "200ms", "--retry-interval", "50ms",
	})

	require.Error(t, cmd.Execute())
}

func TestStopCommand_NotRunning(t *testing.T) {
	cmd := newTestCommand(t)
	var output bytes.Buffer
	cmd.SetOut(&output)
	cmd.SetArgs([]string{"stop", "--socket-path", filepath.Join(t.TempDir(), "missing.sock")})

	require.NoError(t, cmd.Execute())
	require.Contains(t, output.String(), "not running")
}
