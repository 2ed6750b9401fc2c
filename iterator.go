// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package slackcleaner

import (
	"encoding/json"
)

// MessageIterator lazily walks message histories across one or more
// conversations. Records are decoded into entities as they are consumed, one
// page is buffered per conversation (and reversed for ascending order), and
// thread replies are interleaved directly after their parent when requested.
//
// The iterator is forward-only and may be abandoned at any point.
type MessageIterator struct {
	slack    *SlackCleaner
	channels []*SlackChannel
	opts     MsgOptions
	filter   func(*SlackMessage) bool

	chIdx   int
	pages   *pageIterator
	buf     []json.RawMessage
	replies []*SlackMessage
	cur     *SlackMessage
}

func newMessageIterator(slack *SlackCleaner, channels []*SlackChannel, opts MsgOptions, filter func(*SlackMessage) bool) *MessageIterator {
	return &MessageIterator{
		slack:    slack,
		channels: channels,
		opts:     opts,
		filter:   filter,
		chIdx:    -1,
	}
}

// Next advances to the next message, reporting false once the sequence is
// exhausted. Expected service failures end the affected conversation's
// history without aborting the iteration.
func (it *MessageIterator) Next() bool {
	for {
		if len(it.replies) > 0 {
			msg := it.replies[0]
			it.replies = it.replies[1:]
			if it.filter != nil && !it.filter(msg) {
				continue
			}
			it.cur = msg
			return true
		}

		if len(it.buf) == 0 {
			if !it.fill() {
				return false
			}
			continue
		}

		rec := it.buf[0]
		it.buf = it.buf[1:]

		ch := it.channels[it.chIdx]
		msg, err := newMessage(rec, ch, it.slack)
		if err != nil {
			it.slack.Log.Warnf("skipping malformed message in %s: %v", ch, err)
			continue
		}
		if msg == nil {
			continue
		}

		// expand one level of thread replies right after the parent
		if it.opts.WithReplies && msg.HasReplies && msg.TS == msg.ThreadTS {
			it.replies = ch.RepliesTo(msg)
		}

		if it.filter != nil && !it.filter(msg) {
			continue
		}

		it.cur = msg
		return true
	}
}

// fill buffers the next non-empty page, advancing to the next conversation
// when the current one is exhausted.
func (it *MessageIterator) fill() bool {
	for {
		if it.pages == nil {
			it.chIdx++
			if it.chIdx >= len(it.channels) {
				return false
			}
			ch := it.channels[it.chIdx]
			it.slack.Log.Debugf("list msgs of %s (after=%s, before=%s)", ch, it.opts.After, it.opts.Before)
			it.pages = ch.historyPages(it.opts)
		}

		page, ok := it.pages.next()
		if !ok {
			it.pages = nil
			continue
		}
		if len(page) == 0 {
			continue
		}

		if it.opts.Ascending {
			for i, j := 0, len(page)-1; i < j; i, j = i+1, j-1 {
				page[i], page[j] = page[j], page[i]
			}
		}

		it.buf = page
		return true
	}
}

// Message returns the message the iterator currently points at. Only valid
// after a Next call that returned true.
func (it *MessageIterator) Message() *SlackMessage { return it.cur }

// Collect drains the iterator into a slice.
func (it *MessageIterator) Collect() []*SlackMessage {
	var msgs []*SlackMessage
	for it.Next() {
		msgs = append(msgs, it.Message())
	}
	return msgs
}

// FileIterator lazily walks a file listing. Records are decoded into
// entities as they are consumed.
type FileIterator struct {
	slack *SlackCleaner
	pages *pageIterator
	buf   []json.RawMessage
	cur   *SlackFile
}

// Next advances to the next file, reporting false once the sequence is
// exhausted.
func (it *FileIterator) Next() bool {
	for {
		if len(it.buf) == 0 {
			page, ok := it.pages.next()
			if !ok {
				return false
			}
			it.buf = page
			continue
		}

		rec := it.buf[0]
		it.buf = it.buf[1:]

		f, err := newFile(rec, it.slack)
		if err != nil {
			it.slack.Log.Warnf("skipping malformed file record: %v", err)
			continue
		}

		it.cur = f
		return true
	}
}

// File returns the file the iterator currently points at. Only valid after a
// Next call that returned true.
func (it *FileIterator) File() *SlackFile { return it.cur }

// Collect drains the iterator into a slice.
func (it *FileIterator) Collect() []*SlackFile {
	var files []*SlackFile
	for it.Next() {
		files = append(files, it.File())
	}
	return files
}
