// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package slackcleaner

import (
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// SlackMessage is an immutable snapshot of a message within a conversation.
// The timestamp is its identity within the channel.
type SlackMessage struct {
	// TS is the message timestamp as reported by the API.
	TS string
	// ThreadTS is the timestamp of the thread the message belongs to; it
	// equals TS when the message is not part of a thread (or is the thread
	// parent itself).
	ThreadTS string
	// Text is the message text.
	Text string
	// User is the sender; nil for bot-authored system messages without one.
	User *SlackUser
	// Bot flags messages written by a bot.
	Bot bool
	// Pinned flags pinned messages.
	Pinned bool
	// HasReplies flags thread parents with at least one reply.
	HasReplies bool
	// Tombstone flags messages whose body was already removed upstream.
	// Deleting a tombstone is a no-op, but its replies and files remain
	// deletable.
	Tombstone bool
	// Files are the files attached to this message.
	Files []*SlackFile
	// Raw is the underlying API payload.
	Raw json.RawMessage

	channel *SlackChannel
	slack   *SlackCleaner

	reactions []reactionPayload
}

type messagePayload struct {
	Type       string            `json:"type"`
	Subtype    string            `json:"subtype"`
	TS         string            `json:"ts"`
	ThreadTS   string            `json:"thread_ts"`
	Text       string            `json:"text"`
	User       string            `json:"user"`
	BotID      string            `json:"bot_id"`
	PinnedTo   []string          `json:"pinned_to"`
	ReplyCount int               `json:"reply_count"`
	Files      []json.RawMessage `json:"files"`
	Reactions  []reactionPayload `json:"reactions"`
}

// newMessage decodes a history record into a SlackMessage. Records that are
// not of type "message" yield (nil, nil) and are skipped by the iterators.
func newMessage(rec json.RawMessage, channel *SlackChannel, slack *SlackCleaner) (*SlackMessage, error) {
	var payload messagePayload
	if err := json.Unmarshal(rec, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode message record")
	}

	if payload.Type != "message" {
		return nil, nil
	}

	if len(payload.TS) == 0 {
		return nil, errors.New("message record has no ts")
	}

	msg := &SlackMessage{
		TS:         payload.TS,
		ThreadTS:   payload.ThreadTS,
		Text:       payload.Text,
		Bot:        payload.Subtype == "bot_message" || len(payload.BotID) > 0,
		Pinned:     len(payload.PinnedTo) > 0,
		HasReplies: payload.ReplyCount > 0,
		Tombstone:  payload.Subtype == "tombstone",
		Raw:        rec,
		channel:    channel,
		slack:      slack,
		reactions:  payload.Reactions,
	}

	if len(msg.ThreadTS) == 0 {
		msg.ThreadTS = msg.TS
	}

	// every message with a user reference resolves to some user, real or
	// dummy; only bot system messages without one stay nil
	if len(payload.User) > 0 {
		msg.User = slack.ResolveUser(payload.User)
	}

	for _, raw := range payload.Files {
		f, err := newFile(raw, slack)
		if err != nil {
			slack.Log.Warnf("skipping malformed file of message %s: %v", msg.TS, err)
			continue
		}
		msg.Files = append(msg.Files, f)
	}

	return msg, nil
}

func (m *SlackMessage) String() string {
	sender := "bot"
	if !m.Bot && m.User != nil {
		sender = m.User.String()
	}
	return fmt.Sprintf("%s:%s (%s): %s", m.channel.Name, m.TS, sender, truncate(m.Text, 20))
}

// Channel returns the conversation this message was written in.
func (m *SlackMessage) Channel() *SlackChannel { return m.channel }

// Time returns the message timestamp as a time.Time.
func (m *SlackMessage) Time() time.Time { return parseTS(m.TS) }

// Replies lists the replies to this message, excluding the message itself.
func (m *SlackMessage) Replies() []*SlackMessage {
	return m.channel.RepliesTo(m)
}

// Reactions returns the reactions attached to this message.
func (m *SlackMessage) Reactions() []*Reaction {
	reactions := make([]*Reaction, 0, len(m.reactions))
	for _, payload := range m.reactions {
		reactions = append(reactions, newReaction(payload, m.slack, &messageReactionTarget{msg: m}))
	}
	return reactions
}

// DeleteOptions shape a message delete operation.
type DeleteOptions struct {
	// AsUser performs the delete as the user identified by the token.
	AsUser bool
	// DeleteFiles also deletes the files attached to the message.
	DeleteFiles bool
	// DeleteReplies also deletes the replies of a threaded message.
	DeleteReplies bool
}

// Delete deletes this message and, when requested, its attached files and
// replies. For a tombstone message the remote delete of the message itself is
// skipped. Every individual delete outcome is reported through the logging
// sink; the first error encountered is returned.
func (m *SlackMessage) Delete(opts DeleteOptions) error {
	var first error

	if !m.Tombstone {
		args := url.Values{"channel": {m.channel.ID}, "ts": {m.TS}}
		if opts.AsUser {
			args.Set("as_user", "true")
		}
		first = m.slack.deleteCall("chat.delete", args, "chat:write:user", m.String())
	}

	if opts.DeleteFiles {
		for _, f := range m.Files {
			if err := f.Delete(); err != nil && first == nil {
				first = err
			}
		}
	}

	if opts.DeleteReplies && m.HasReplies {
		for _, reply := range m.Replies() {
			err := reply.Delete(DeleteOptions{AsUser: opts.AsUser, DeleteFiles: opts.DeleteFiles})
			if err != nil && first == nil {
				first = err
			}
		}
	}

	return first
}

func (m *SlackMessage) objectText() string { return m.Text }

func (m *SlackMessage) isBotLike() bool { return m.Bot }

func (m *SlackMessage) isPinned() bool { return m.Pinned }

func (m *SlackMessage) author() *SlackUser { return m.User }
