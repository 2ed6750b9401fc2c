// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package slackcleaner

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlackLogger_layers(t *testing.T) {
	log, _, _ := newTestLogger()

	group := log.Group("clean general")
	log.Deleted("msg 1", nil)
	log.Deleted("msg 2", errors.New("missing scope"))

	popped := log.Pop()
	require.Same(t, group, popped)

	assert.Equal(t, "clean general", popped.Name)
	assert.Equal(t, 1, popped.Deleted)
	assert.Equal(t, 1, popped.Errors)

	// a delete after the pop only counts against the root layer
	log.Deleted("msg 3", nil)

	overall := log.Overall()
	assert.Equal(t, "overall", overall.Name)
	assert.Equal(t, 2, overall.Deleted)
	assert.Equal(t, 1, overall.Errors)

	assert.Equal(t, 1, popped.Deleted, "a popped layer stops counting")
}

func TestSlackLogger_popNeverRemovesRoot(t *testing.T) {
	log, _, _ := newTestLogger()

	first := log.Pop()
	second := log.Pop()

	require.Same(t, first, second)
	assert.Equal(t, "overall", first.Name)
}

func TestSlackLogger_nestedGroups(t *testing.T) {
	log, _, _ := newTestLogger()

	log.Group("outer")
	log.Group("inner")
	log.Deleted("msg", nil)

	inner := log.Pop()
	outer := log.Pop()

	assert.Equal(t, 1, inner.Deleted)
	assert.Equal(t, 1, outer.Deleted)
	assert.Equal(t, 1, log.Overall().Deleted)
}

func TestSlackLogger_throttle(t *testing.T) {
	log, _, rec := newTestLogger()

	log.Deleted("msg", nil)
	assert.Empty(t, rec.delays, "a zero throttle must not sleep")

	log.SetSleepFor(250 * time.Millisecond)
	assert.Equal(t, 250*time.Millisecond, log.SleepFor())

	log.Deleted("msg", nil)
	log.Deleted("msg", errors.New("failed"))

	assert.Equal(t, []time.Duration{250 * time.Millisecond, 250 * time.Millisecond}, rec.delays,
		"the throttle applies after successful and failed deletes alike")
}

func TestNewSlackLogger_logFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "cleaner.log")

	log, err := NewSlackLogger(logFile, 0)
	require.NoError(t, err)

	log.Debugf("debug breadcrumb %d", 42)

	content, err := os.ReadFile(logFile)
	require.NoError(t, err)

	assert.True(t, strings.Contains(string(content), "debug breadcrumb 42"),
		"the log file must record debug entries")
}

func TestNewSlackLogger_badLogFile(t *testing.T) {
	_, err := NewSlackLogger(filepath.Join(t.TempDir(), "missing", "dir", "cleaner.log"), 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to open log file")
}
