// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package slackcleaner

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SlackLogger is the logging sink of the cleaner: leveled messages plus a
// structured deleted/failed event that feeds a stack of counter layers. The
// console receives Info and above; an optional log file additionally records
// Debug entries as JSON.
type SlackLogger struct {
	zlog *zap.SugaredLogger

	mu     sync.Mutex
	layers []*LogLayer

	sleepFor time.Duration
	// sleep is swapped out in tests to avoid real delays.
	sleep func(time.Duration)
}

// LogLayer is one element of the delete counter stack, grouping delete
// operations under a name.
type LogLayer struct {
	// Name of the group.
	Name string
	// Deleted counts successful delete operations while this layer was open.
	Deleted int
	// Errors counts failed delete operations while this layer was open.
	Errors int
}

func (l *LogLayer) String() string {
	return fmt.Sprintf("%s: deleted: %d, errors: %d", l.Name, l.Deleted, l.Errors)
}

// NewSlackLogger returns a logger writing Info and above to stderr, and all
// levels to the given log file when logFile is not empty. sleepFor is the
// optional self-throttle delay applied after every recorded delete.
func NewSlackLogger(logFile string, sleepFor time.Duration) (*SlackLogger, error) {
	encCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), zapcore.InfoLevel)

	if len(logFile) > 0 {
		f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to open log file %q", logFile)
		}

		fileCore := zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.Lock(f),
			zapcore.DebugLevel,
		)
		core = zapcore.NewTee(core, fileCore)
	}

	return WrapLogger(zap.New(core), sleepFor), nil
}

// WrapLogger builds a SlackLogger on top of an existing zap logger, e.g. the
// application logger of a larger automation.
func WrapLogger(z *zap.Logger, sleepFor time.Duration) *SlackLogger {
	return &SlackLogger{
		zlog:     z.Sugar(),
		layers:   []*LogLayer{{Name: "overall"}},
		sleepFor: sleepFor,
		sleep:    time.Sleep,
	}
}

// Debugf logs a debug level message.
func (l *SlackLogger) Debugf(format string, args ...interface{}) { l.zlog.Debugf(format, args...) }

// Infof logs an info level message.
func (l *SlackLogger) Infof(format string, args ...interface{}) { l.zlog.Infof(format, args...) }

// Warnf logs a warning level message.
func (l *SlackLogger) Warnf(format string, args ...interface{}) { l.zlog.Warnf(format, args...) }

// Errorf logs an error level message.
func (l *SlackLogger) Errorf(format string, args ...interface{}) { l.zlog.Errorf(format, args...) }

// SleepFor returns the configured post-delete throttle delay.
func (l *SlackLogger) SleepFor() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.sleepFor
}

// SetSleepFor changes the post-delete throttle delay.
func (l *SlackLogger) SetSleepFor(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sleepFor = d
}

// Deleted records the outcome of one delete operation: it increments the
// counters of every open layer, logs the outcome, and applies the optional
// throttle sleep after both successful and failed deletes.
func (l *SlackLogger) Deleted(entry string, err error) {
	l.mu.Lock()
	for _, layer := range l.layers {
		if err != nil {
			layer.Errors++
		} else {
			layer.Deleted++
		}
	}
	sleepFor := l.sleepFor
	l.mu.Unlock()

	if err != nil {
		l.Warnf("cannot delete entry: %s: %v", entry, err)
	} else {
		l.Debugf("deleted entry: %s", entry)
	}

	if sleepFor > 0 {
		l.sleep(sleepFor)
	}
}

// Group pushes a named counter layer onto the stack. Deletes recorded until
// the matching Pop are counted against it.
func (l *SlackLogger) Group(name string) *LogLayer {
	layer := &LogLayer{Name: name}

	l.Infof("start deleting: %s", name)

	l.mu.Lock()
	l.layers = append(l.layers, layer)
	l.mu.Unlock()

	return layer
}

// Pop removes the innermost counter layer and logs its totals. The root
// "overall" layer is never popped.
func (l *SlackLogger) Pop() *LogLayer {
	l.mu.Lock()
	if len(l.layers) == 1 {
		l.mu.Unlock()
		return l.layers[0]
	}
	layer := l.layers[len(l.layers)-1]
	l.layers = l.layers[:len(l.layers)-1]
	l.mu.Unlock()

	l.Infof("stop deleting: %s", layer)

	return layer
}

// Overall returns the root counter layer spanning all recorded deletes.
func (l *SlackLogger) Overall() LogLayer {
	l.mu.Lock()
	defer l.mu.Unlock()
	return *l.layers[0]
}

// Summary logs the overall delete counters.
func (l *SlackLogger) Summary() {
	overall := l.Overall()
	l.Infof("summary %s", overall.String())
}
