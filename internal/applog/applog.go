// Package applog routes slog and the stdlib log package into one log file
// per calendar day.
package applog

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultPrefix names files timestream-YYYY-MM-DD.log.
	DefaultPrefix = "timestream"

	dayLayout = "2006-01-02"
	fileExt   = ".log"
)

// DayFile is an io.Writer over <dir>/<prefix>-<day>.log. The first write
// on a new day switches files and sweeps days beyond the retention limit.
type DayFile struct {
	dir    string
	prefix string
	retain int

	mu    sync.Mutex
	day   string
	f     *os.File
	clock func() time.Time
}

// NewDayFile keeps retainDays files in dir; retainDays <= 0 keeps every file.
func NewDayFile(dir, prefix string, retainDays int) *DayFile {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &DayFile{dir: dir, prefix: prefix, retain: retainDays, clock: time.Now}
}

// SetClock replaces the time source.
func (d *DayFile) SetClock(fn func() time.Time) {
	d.mu.Lock()
	d.clock = fn
	d.mu.Unlock()
}

// Name returns the file name used for day t.
func (d *DayFile) Name(t time.Time) string {
	return d.prefix + "-" + t.Format(dayLayout) + fileExt
}

func (d *DayFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.clock()
	if day := now.Format(dayLayout); day != d.day || d.f == nil {
		if err := d.switchTo(now); err != nil {
			return 0, err
		}
	}
	return d.f.Write(p)
}

// switchTo opens the file for day t before closing the current one, so a
// failed open leaves nothing half-switched.
func (d *DayFile) switchTo(t time.Time) error {
	f, err := os.OpenFile(filepath.Join(d.dir, d.Name(t)), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	if d.f != nil {
		d.f.Close()
	}
	d.f, d.day = f, t.Format(dayLayout)
	d.sweep()
	return nil
}

// sweep removes the oldest day files past the retention limit. Files in
// dir that do not parse as <prefix>-<day>.log are left alone.
func (d *DayFile) sweep() {
	if d.retain <= 0 {
		return
	}
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return
	}
	var days []string
	for _, e := range entries {
		if day, ok := d.dayOf(e.Name()); ok && !e.IsDir() {
			days = append(days, day)
		}
	}
	if len(days) <= d.retain {
		return
	}
	slices.Sort(days)
	for _, day := range days[:len(days)-d.retain] {
		if day == d.day {
			continue
		}
		os.Remove(filepath.Join(d.dir, d.prefix+"-"+day+fileExt))
	}
}

func (d *DayFile) dayOf(name string) (string, bool) {
	rest, ok := strings.CutPrefix(name, d.prefix+"-")
	if !ok {
		return "", false
	}
	day, ok := strings.CutSuffix(rest, fileExt)
	if !ok {
		return "", false
	}
	if _, err := time.Parse(dayLayout, day); err != nil {
		return "", false
	}
	return day, true
}

// Close closes the current file. A later Write reopens it.
func (d *DayFile) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.f == nil {
		return nil
	}
	err := d.f.Close()
	d.f, d.day = nil, ""
	return err
}

// Options configures Init.
type Options struct {
	Dir        string
	Level      string
	Prefix     string
	RetainDays int
	// Console mirrors every record to stderr.
	Console bool
}

// Init installs a text slog handler over a DayFile in opts.Dir as the
// default logger and points the stdlib log package at the same writer.
// The caller closes the returned io.Closer on exit.
func Init(opts Options) (*slog.Logger, io.Closer, error) {
	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	file := NewDayFile(opts.Dir, opts.Prefix, opts.RetainDays)

	var out io.Writer = file
	if opts.Console {
		out = io.MultiWriter(file, os.Stderr)
	}
	logger := slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: ParseLevel(opts.Level)}))
	slog.SetDefault(logger)
	log.SetOutput(out)
	log.SetFlags(0)
	return logger, file, nil
}

// ParseLevel accepts slog level names in any case, plus "warning".
// Anything unparseable is info.
func ParseLevel(s string) slog.Level {
	if strings.EqualFold(s, "warning") {
		return slog.LevelWarn
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}
