// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package slackcleaner

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"
)

// SlackUser is an immutable snapshot of a workspace user.
type SlackUser struct {
	// ID is the user id.
	ID string
	// Name is the user name.
	Name string
	// RealName is the real name of the user.
	RealName string
	// DisplayName is the display name of the user.
	DisplayName string
	// Email is the email address of the user, empty when not disclosed.
	Email string
	// IsBot flags bot users.
	IsBot bool
	// IsAppUser flags app users.
	IsAppUser bool
	// Bot flags bot or app users.
	Bot bool
	// Dummy flags a synthesized placeholder standing in for an unresolvable
	// user reference.
	Dummy bool
	// Raw is the underlying API payload.
	Raw json.RawMessage

	slack *SlackCleaner
}

type userPayload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Profile struct {
		RealName    string `json:"real_name"`
		DisplayName string `json:"display_name"`
		Email       string `json:"email"`
	} `json:"profile"`
	IsBot     bool `json:"is_bot"`
	IsAppUser bool `json:"is_app_user"`
}

func newUser(rec json.RawMessage, slack *SlackCleaner) (*SlackUser, error) {
	var payload userPayload
	if err := json.Unmarshal(rec, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode user record")
	}

	if len(payload.ID) == 0 {
		return nil, errors.New("user record has no id")
	}

	user := &SlackUser{
		ID:          payload.ID,
		Name:        payload.Name,
		RealName:    payload.Profile.RealName,
		DisplayName: payload.Profile.DisplayName,
		Email:       payload.Profile.Email,
		IsBot:       payload.IsBot,
		IsAppUser:   payload.IsAppUser,
		Bot:         payload.IsBot || payload.IsAppUser,
		Raw:         rec,
		slack:       slack,
	}

	return user, nil
}

// dummyUser synthesizes a placeholder for an unresolvable user reference:
// id and name are the requested id, all other fields stay empty.
func dummyUser(id string, slack *SlackCleaner) *SlackUser {
	return &SlackUser{
		ID:    id,
		Name:  id,
		Dummy: true,
		slack: slack,
	}
}

func (u *SlackUser) String() string {
	return fmt.Sprintf("%s (%s) %s", u.Name, u.ID, u.RealName)
}

// Files lists the files of this user, narrowed further by the given options.
func (u *SlackUser) Files(opts FileOptions) *FileIterator {
	opts.User = u
	return u.slack.Files(opts)
}

// Msgs lists the messages written by this user across all conversations the
// user is a member of.
func (u *SlackUser) Msgs(opts MsgOptions) *MessageIterator {
	var channels []*SlackChannel
	for _, ch := range u.slack.Conversations() {
		if ch.hasMember(u) {
			channels = append(channels, ch)
		}
	}

	return newMessageIterator(u.slack, channels, opts, func(m *SlackMessage) bool {
		return m.User == u
	})
}

func (u *SlackUser) objectName() string { return u.Name }

func (u *SlackUser) isBotLike() bool { return u.Bot }

func (u *SlackUser) identityFields() []string {
	return []string{u.ID, u.Name, u.DisplayName, u.Email, u.RealName}
}
