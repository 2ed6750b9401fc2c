// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package slackcleaner

import (
	"encoding/json"
	"net/url"
	"time"

	"github.com/pkg/errors"
)

// ChannelType classifies a conversation.
type ChannelType string

const (
	// ChannelPublic is a public channel.
	ChannelPublic ChannelType = "public"
	// ChannelPrivate is a private channel aka group.
	ChannelPrivate ChannelType = "private"
	// ChannelMPIM is a multi-person instant message.
	ChannelMPIM ChannelType = "mpim"
	// ChannelIM is a direct message conversation.
	ChannelIM ChannelType = "im"
)

// historyScopes are the permission scopes reading conversation history may
// require, depending on the conversation type.
var historyScopes = []string{"channels:history", "groups:history", "im:history", "mpim:history"}

// SlackChannel is an immutable snapshot of a conversation (public or private
// channel, mpim, or im) plus its lazily fetched member list.
type SlackChannel struct {
	// ID is the channel id.
	ID string
	// Name is the channel name; for direct messages it mirrors the name of
	// the conversation partner.
	Name string
	// Type classifies the conversation.
	Type ChannelType
	// Archived flags archived conversations.
	Archived bool
	// Raw is the underlying API payload.
	Raw json.RawMessage

	slack *SlackCleaner

	// member cache, populated on first access and kept for the lifetime of
	// the owning cleaner.
	membersLoaded bool
	members       []*SlackUser
}

// SlackDirectMessage is a direct message conversation: a channel whose single
// member is the conversation partner.
type SlackDirectMessage struct {
	*SlackChannel

	// User is the conversation partner.
	User *SlackUser
}

type channelPayload struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	IsChannel  bool   `json:"is_channel"`
	IsGroup    bool   `json:"is_group"`
	IsIM       bool   `json:"is_im"`
	IsMPIM     bool   `json:"is_mpim"`
	IsPrivate  bool   `json:"is_private"`
	IsArchived bool   `json:"is_archived"`
	User       string `json:"user"`
}

// newChannel decodes a conversations.list record. Called with the cleaner
// mutex held since direct messages resolve their partner.
func newChannel(rec json.RawMessage, slack *SlackCleaner) (*SlackChannel, *SlackDirectMessage, error) {
	var payload channelPayload
	if err := json.Unmarshal(rec, &payload); err != nil {
		return nil, nil, errors.Wrap(err, "failed to decode channel record")
	}

	if len(payload.ID) == 0 {
		return nil, nil, errors.New("channel record has no id")
	}

	ch := &SlackChannel{
		ID:       payload.ID,
		Name:     payload.Name,
		Archived: payload.IsArchived,
		Raw:      rec,
		slack:    slack,
	}

	if len(ch.Name) == 0 {
		ch.Name = ch.ID
	}

	switch {
	case payload.IsIM:
		ch.Type = ChannelIM
	case payload.IsMPIM:
		ch.Type = ChannelMPIM
	case payload.IsGroup || payload.IsPrivate:
		ch.Type = ChannelPrivate
	default:
		ch.Type = ChannelPublic
	}

	if ch.Type != ChannelIM {
		return ch, nil, nil
	}

	partner := slack.resolveUserLocked(payload.User)
	ch.Name = partner.Name
	ch.members = []*SlackUser{partner}
	ch.membersLoaded = true

	return ch, &SlackDirectMessage{SlackChannel: ch, User: partner}, nil
}

func (ch *SlackChannel) String() string {
	return ch.Name
}

// Members returns the users of this conversation. The list is fetched on
// first access and cached for the lifetime of the owning cleaner; fetching
// the members of an archived conversation degrades to an empty list.
func (ch *SlackChannel) Members() []*SlackUser {
	ch.slack.mu.Lock()
	defer ch.slack.mu.Unlock()

	if ch.membersLoaded {
		return ch.members
	}
	ch.membersLoaded = true

	args := url.Values{"channel": {ch.ID}}
	records := ch.slack.client.cursorPages("conversations.members", args, "members",
		"channels:read", "groups:read", "im:read", "mpim:read").collect()

	for _, rec := range records {
		var id string
		if err := json.Unmarshal(rec, &id); err != nil {
			continue
		}
		ch.members = append(ch.members, ch.slack.resolveUserLocked(id))
	}

	return ch.members
}

func (ch *SlackChannel) hasMember(u *SlackUser) bool {
	for _, m := range ch.Members() {
		if m == u {
			return true
		}
	}
	return false
}

// MsgOptions narrow and shape a message listing.
type MsgOptions struct {
	// After limits the listing to messages after the given point in time.
	After time.Time
	// Before limits the listing to messages before the given point in time.
	Before time.Time
	// Ascending yields each page in ascending timestamp order. The API
	// returns pages newest first; one page is buffered and reversed.
	Ascending bool
	// WithReplies interleaves the replies of a threaded message directly
	// after their parent. Replies of replies are not expanded further.
	WithReplies bool
}

// Msgs lazily lists the message history of this conversation.
func (ch *SlackChannel) Msgs(opts MsgOptions) *MessageIterator {
	return newMessageIterator(ch.slack, []*SlackChannel{ch}, opts, nil)
}

func (ch *SlackChannel) historyPages(opts MsgOptions) *pageIterator {
	args := url.Values{"channel": {ch.ID}}
	if !opts.After.IsZero() {
		args.Set("oldest", formatTS(opts.After))
	}
	if !opts.Before.IsZero() {
		args.Set("latest", formatTS(opts.Before))
	}

	return ch.slack.client.cursorPages("conversations.history", args, "messages", historyScopes...)
}

// RepliesTo returns the replies to the given message, excluding the parent
// itself. Expected failures degrade to an empty list.
func (ch *SlackChannel) RepliesTo(base *SlackMessage) []*SlackMessage {
	args := url.Values{"channel": {ch.ID}, "ts": {base.ThreadTS}}
	records := ch.slack.client.cursorPages("conversations.replies", args, "messages", historyScopes...).collect()

	var replies []*SlackMessage
	for _, rec := range records {
		msg, err := newMessage(rec, ch, ch.slack)
		if err != nil {
			ch.slack.Log.Warnf("skipping malformed reply in %s: %v", ch, err)
			continue
		}
		if msg == nil || msg.TS == base.TS {
			continue
		}
		replies = append(replies, msg)
	}

	return replies
}

// Files lists the files shared in this conversation, narrowed further by the
// given options.
func (ch *SlackChannel) Files(opts FileOptions) *FileIterator {
	opts.Channel = ch
	return ch.slack.Files(opts)
}

func (ch *SlackChannel) objectName() string { return ch.Name }
