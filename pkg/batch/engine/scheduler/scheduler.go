// Package scheduler reads a test plan and submits one delayed job per entry to the worker pool.
package scheduler

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	model "github.com/tigerroll/paytest/pkg/batch/core/domain/model"
	metrics "github.com/tigerroll/paytest/pkg/batch/core/metrics"
	"github.com/tigerroll/paytest/pkg/batch/engine/pool"
	"github.com/tigerroll/paytest/pkg/batch/support/util/exception"
	"github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

const moduleName = "scheduler"

// FieldSeparator separates the fields of a plan line.
const FieldSeparator = ";"

// Plan date-times are ISO local date-times; fractional seconds are accepted by time.Parse.
var planTimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// Submitter is the part of the worker pool the scheduler uses.
type Submitter interface {
	Schedule(delay time.Duration, task pool.Task) error
	Shutdown()
}

// TaskFactory builds the pool task of a plan entry.
type TaskFactory interface {
	NewTask(entry model.PlanEntry) pool.Task
}

// Scheduler turns plan lines into scheduled tasks.
type Scheduler struct {
	pool      Submitter
	factory   TaskFactory
	location  *time.Location
	asapGrace time.Duration
	recorder  metrics.MetricRecorder
	now       func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithRecorder reports skipped entries to recorder.
func WithRecorder(recorder metrics.MetricRecorder) Option {
	return func(s *Scheduler) { s.recorder = recorder }
}

// New creates a Scheduler. Plan date-times are interpreted in location; ASAP entries fire asapGrace after parsing.
func New(p Submitter, factory TaskFactory, location *time.Location, asapGrace time.Duration, opts ...Option) *Scheduler {
	s := &Scheduler{
		pool:      p,
		factory:   factory,
		location:  location,
		asapGrace: asapGrace,
		recorder:  metrics.NewNoOpMetricRecorder(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.location == nil {
		s.location = time.Local
	}
	return s
}

// SchedulePlan parses the plan at planPath and schedules every valid entry.
// Invalid entries are logged and skipped. Submission is closed when it returns, whatever the outcome.
// The returned error is only set when the plan file itself could not be read.
func (s *Scheduler) SchedulePlan(ctx context.Context, planPath string) (model.PlanSummary, error) {
	defer s.pool.Shutdown()

	var summary model.PlanSummary
	f, err := os.Open(planPath)
	if err != nil {
		logger.Errorf("Error while reading test plan file: %v", err)
		return summary, exception.NewBatchErrorf(moduleName, exception.KindConfig, "failed to open test plan %s", planPath, err)
	}
	defer f.Close()

	planDir := filepath.Dir(planPath)
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if ctx.Err() != nil {
			logger.Warnf("Scheduling interrupted at line %d of %s.", lineNo, planPath)
			break
		}
		summary.Lines++
		if s.scheduleLine(ctx, line, lineNo, planDir) {
			summary.Scheduled++
		} else {
			summary.Skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		logger.Errorf("Error while reading test plan file: %v", err)
		return summary, exception.NewBatchErrorf(moduleName, exception.KindConfig, "failed to read test plan %s", planPath, err)
	}

	logger.Infof("Test plan %s loaded: %d scheduled, %d skipped.", filepath.Base(planPath), summary.Scheduled, summary.Skipped)
	return summary, nil
}

func (s *Scheduler) scheduleLine(ctx context.Context, line string, lineNo int, planDir string) bool {
	entry, err := s.ParseEntry(line, lineNo, planDir)
	if err != nil {
		logger.Errorf("Skipping test plan line %d: %v", lineNo, err)
		s.recorder.RecordEntrySkipped(ctx, skipReason(err))
		return false
	}

	now := s.now()
	target := entry.ScheduledAt
	if entry.Asap {
		target = now.Add(s.asapGrace)
		entry.ScheduledAt = target
	}
	if !target.After(now) {
		logger.Infof("Skipping test file (%s) because it's scheduled in past (%s)", entry.SourceFile, entry.RawTime)
		s.recorder.RecordEntrySkipped(ctx, "in_past")
		return false
	}

	if err := s.pool.Schedule(target.Sub(now), s.factory.NewTask(entry)); err != nil {
		logger.Errorf("Test file %s could not be scheduled: %v", entry.SourceFile, err)
		s.recorder.RecordEntrySkipped(ctx, "rejected")
		return false
	}
	logger.Infof("Test file %s scheduled at %s", entry.SourceFile, entry.RawTime)
	return true
}

var (
	errFileNotFound = errors.New("payment file not found")
	errBadTime      = errors.New("unparsable scheduled time")
)

func skipReason(err error) string {
	switch {
	case errors.Is(err, errFileNotFound):
		return "file_not_found"
	case errors.Is(err, errBadTime):
		return "bad_time"
	default:
		return "malformed"
	}
}

// ParseEntry parses one plan line "scheduledTime;filePath;procedureName[;portionSize]".
// ASAP entries are returned with a zero ScheduledAt; the fire time is set when they are scheduled.
func (s *Scheduler) ParseEntry(line string, lineNo int, planDir string) (model.PlanEntry, error) {
	fields := strings.Split(line, FieldSeparator)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	if len(fields) < 3 || fields[1] == "" || fields[2] == "" {
		return model.PlanEntry{}, exception.NewBatchErrorf(moduleName, exception.KindEntry, "expected time;file;procedure[;portion size], got %q", line, exception.ErrMalformedEntry)
	}

	entry := model.PlanEntry{
		Line:      lineNo,
		RawTime:   fields[0],
		Procedure: fields[2],
	}
	if len(fields) > 3 {
		entry.PortionSize = fields[3]
	}

	path, ok := resolveFile(fields[1], planDir)
	if !ok {
		return model.PlanEntry{}, exception.NewBatchErrorf(moduleName, exception.KindEntry,
			"skipping test scheduled at %s, because file %s does not exist", fields[0], fields[1], errFileNotFound)
	}
	entry.SourceFile = path

	if model.IsAsap(entry.RawTime) {
		entry.Asap = true
		return entry, nil
	}
	at, err := s.parseTime(entry.RawTime)
	if err != nil {
		return model.PlanEntry{}, exception.NewBatchErrorf(moduleName, exception.KindEntry, "invalid scheduled time %q", entry.RawTime, errors.Join(errBadTime, err))
	}
	entry.ScheduledAt = at
	return entry, nil
}

func (s *Scheduler) parseTime(raw string) (time.Time, error) {
	var firstErr error
	for _, layout := range planTimeLayouts {
		t, err := time.ParseInLocation(layout, raw, s.location)
		if err == nil {
			return t, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// resolveFile returns path as given when it exists, otherwise a relative path is tried against planDir.
func resolveFile(path, planDir string) (string, bool) {
	if fileExists(path) {
		return path, true
	}
	if !filepath.IsAbs(path) {
		candidate := filepath.Join(planDir, path)
		if fileExists(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
