package applog_test

import (
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsprackett/timestream/internal/applog"
)

func day(n int) func() time.Time {
	return func() time.Time { return time.Date(2026, 3, n, 9, 30, 0, 0, time.UTC) }
}

func logFiles(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestDayFile_NamesFileByDay(t *testing.T) {
	dir := t.TempDir()
	f := applog.NewDayFile(dir, "", 0)
	defer f.Close()
	f.SetClock(day(4))

	_, err := f.Write([]byte("one\n"))
	require.NoError(t, err)

	assert.Equal(t, []string{"timestream-2026-03-04.log"}, logFiles(t, dir))
	data, err := os.ReadFile(filepath.Join(dir, "timestream-2026-03-04.log"))
	require.NoError(t, err)
	assert.Equal(t, "one\n", string(data))
}

func TestDayFile_SwitchesAtMidnight(t *testing.T) {
	dir := t.TempDir()
	f := applog.NewDayFile(dir, "api", 0)
	defer f.Close()

	f.SetClock(func() time.Time { return time.Date(2026, 3, 4, 23, 59, 59, 0, time.UTC) })
	_, err := f.Write([]byte("late\n"))
	require.NoError(t, err)
	f.SetClock(func() time.Time { return time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC) })
	_, err = f.Write([]byte("early\n"))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"api-2026-03-04.log", "api-2026-03-05.log"}, logFiles(t, dir))
}

func TestDayFile_Retention(t *testing.T) {
	cases := []struct {
		name   string
		retain int
		want   []string
	}{
		{"keep two", 2, []string{"timestream-2026-03-04.log", "timestream-2026-03-05.log"}},
		{"keep all", 0, []string{
			"timestream-2026-03-01.log", "timestream-2026-03-02.log", "timestream-2026-03-03.log",
			"timestream-2026-03-04.log", "timestream-2026-03-05.log",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			f := applog.NewDayFile(dir, "", tc.retain)
			for n := 1; n <= 5; n++ {
				f.SetClock(day(n))
				_, err := f.Write([]byte("x\n"))
				require.NoError(t, err)
			}
			require.NoError(t, f.Close())
			assert.ElementsMatch(t, tc.want, logFiles(t, dir))
		})
	}
}

func TestDayFile_SweepIgnoresForeignFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"timestream-old.log", "other-2026-01-01.log", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0644))
	}
	f := applog.NewDayFile(dir, "", 1)
	for n := 1; n <= 3; n++ {
		f.SetClock(day(n))
		_, err := f.Write([]byte("x\n"))
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())

	assert.ElementsMatch(t, []string{
		"timestream-old.log", "other-2026-01-01.log", "notes.txt", "timestream-2026-03-03.log",
	}, logFiles(t, dir))
}

func TestDayFile_WriteAfterCloseReopens(t *testing.T) {
	dir := t.TempDir()
	f := applog.NewDayFile(dir, "", 0)
	f.SetClock(day(4))

	_, err := f.Write([]byte("a\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())
	_, err = f.Write([]byte("b\n"))
	require.NoError(t, err)
	require.NoError(t, f.Close())

	data, err := os.ReadFile(filepath.Join(dir, f.Name(day(4)())))
	require.NoError(t, err)
	assert.Equal(t, "a\nb\n", string(data))
}

func TestDayFile_MissingDir(t *testing.T) {
	f := applog.NewDayFile(filepath.Join(t.TempDir(), "gone"), "", 0)
	_, err := f.Write([]byte("x\n"))
	assert.Error(t, err)
}

func TestInit_WritesThroughSlogAndStdlib(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	logger, closer, err := applog.Init(applog.Options{Dir: dir, Level: "debug", Prefix: "svc", RetainDays: 3})
	require.NoError(t, err)
	defer closer.Close()

	logger.Debug("stream started", "frames", 0)
	log.Print("from stdlib")

	data, err := os.ReadFile(filepath.Join(dir, "svc-"+time.Now().Format("2006-01-02")+".log"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "msg=\"stream started\" frames=0")
	assert.Contains(t, string(data), "from stdlib")
}

func TestInit_LevelFilters(t *testing.T) {
	dir := t.TempDir()
	logger, closer, err := applog.Init(applog.Options{Dir: dir, Level: "warn", Console: true})
	require.NoError(t, err)
	defer closer.Close()

	logger.Info("hidden")
	logger.Warn("stream aborted")

	data, err := os.ReadFile(filepath.Join(dir, "timestream-"+time.Now().Format("2006-01-02")+".log"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "stream aborted")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"Warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"loud":    slog.LevelInfo,
	} {
		assert.Equal(t, want, applog.ParseLevel(in), "ParseLevel(%q)", in)
	}
}
