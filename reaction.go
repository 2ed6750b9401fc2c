// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package slackcleaner

import (
	"net/url"
)

// Reaction is an emoji reaction attached to either a message or a file. Both
// variants share resolve and delete behavior and differ only in which remote
// delete arguments and which logging context they use.
type Reaction struct {
	// Name is the emoji name, without colons.
	Name string
	// Count is the number of users who reacted.
	Count int

	slack   *SlackCleaner
	userIDs []string
	target  reactionTarget

	users         []*SlackUser
	usersResolved bool
}

type reactionPayload struct {
	Name  string   `json:"name"`
	Count int      `json:"count"`
	Users []string `json:"users"`
}

// reactionTarget is the tagged variant behind a Reaction: the attachment
// point providing the reactions.remove arguments and a context string for
// logging.
type reactionTarget interface {
	removeArgs() url.Values
	describe() string
}

type messageReactionTarget struct {
	msg *SlackMessage
}

func (t *messageReactionTarget) removeArgs() url.Values {
	return url.Values{"channel": {t.msg.channel.ID}, "timestamp": {t.msg.TS}}
}

func (t *messageReactionTarget) describe() string {
	return "message " + t.msg.channel.Name + ":" + t.msg.TS
}

type fileReactionTarget struct {
	file *SlackFile
}

func (t *fileReactionTarget) removeArgs() url.Values {
	return url.Values{"file": {t.file.ID}}
}

func (t *fileReactionTarget) describe() string {
	return "file " + t.file.Name
}

func newReaction(payload reactionPayload, slack *SlackCleaner, target reactionTarget) *Reaction {
	return &Reaction{
		Name:    payload.Name,
		Count:   payload.Count,
		slack:   slack,
		userIDs: payload.Users,
		target:  target,
	}
}

func (r *Reaction) String() string {
	return ":" + r.Name + ": on " + r.target.describe()
}

// Users returns the reacting users, resolved on first access. Unresolvable
// references yield dummy users.
func (r *Reaction) Users() []*SlackUser {
	if !r.usersResolved {
		r.users = make([]*SlackUser, 0, len(r.userIDs))
		for _, id := range r.userIDs {
			r.users = append(r.users, r.slack.ResolveUser(id))
		}
		r.usersResolved = true
	}
	return r.users
}

// Delete removes this reaction from its message or file. The outcome is
// reported through the logging sink and the return value.
func (r *Reaction) Delete() error {
	args := r.target.removeArgs()
	args.Set("name", r.Name)
	return r.slack.deleteCall("reactions.remove", args, "reactions:write", r.String())
}
