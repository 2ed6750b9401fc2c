// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package slackcleaner

import (
	"encoding/json"
	"net/url"

	"github.com/pkg/errors"
)

// SlackFile is an immutable snapshot of an uploaded file. The owning user is
// resolved lazily on first access.
type SlackFile struct {
	// ID is the file id.
	ID string
	// Name is the file name.
	Name string
	// Title is the file title.
	Title string
	// Mimetype is the mime type of the file, empty when unknown.
	Mimetype string
	// Size is the file size in bytes.
	Size int64
	// Public flags files visible to the whole workspace.
	Public bool
	// Pinned flags pinned files.
	Pinned bool
	// Raw is the underlying API payload.
	Raw json.RawMessage

	slack *SlackCleaner

	userID       string
	user         *SlackUser
	userResolved bool

	downloadURL string
	reactions   []reactionPayload
}

type filePayload struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Title              string            `json:"title"`
	Mimetype           string            `json:"mimetype"`
	Size               int64             `json:"size"`
	IsPublic           bool              `json:"is_public"`
	PinnedTo           []string          `json:"pinned_to"`
	User               string            `json:"user"`
	URLPrivateDownload string            `json:"url_private_download"`
	Reactions          []reactionPayload `json:"reactions"`
}

func newFile(rec json.RawMessage, slack *SlackCleaner) (*SlackFile, error) {
	var payload filePayload
	if err := json.Unmarshal(rec, &payload); err != nil {
		return nil, errors.Wrap(err, "failed to decode file record")
	}

	if len(payload.ID) == 0 {
		return nil, errors.New("file record has no id")
	}

	file := &SlackFile{
		ID:          payload.ID,
		Name:        payload.Name,
		Title:       payload.Title,
		Mimetype:    payload.Mimetype,
		Size:        payload.Size,
		Public:      payload.IsPublic,
		Pinned:      len(payload.PinnedTo) > 0,
		Raw:         rec,
		slack:       slack,
		userID:      payload.User,
		downloadURL: payload.URLPrivateDownload,
		reactions:   payload.Reactions,
	}

	return file, nil
}

func (f *SlackFile) String() string {
	return f.Name
}

// User returns the owning user, resolved on first access. An unresolvable
// reference yields a dummy user, never nil.
func (f *SlackFile) User() *SlackUser {
	if !f.userResolved {
		f.user = f.slack.ResolveUser(f.userID)
		f.userResolved = true
	}
	return f.user
}

// Reactions returns the reactions attached to this file.
func (f *SlackFile) Reactions() []*Reaction {
	reactions := make([]*Reaction, 0, len(f.reactions))
	for _, payload := range f.reactions {
		reactions = append(reactions, newReaction(payload, f.slack, &fileReactionTarget{file: f}))
	}
	return reactions
}

// Delete deletes this file. The outcome is reported through the logging sink
// and the return value.
func (f *SlackFile) Delete() error {
	return f.slack.deleteCall("files.delete", url.Values{"file": {f.ID}}, "files:write:user", f.String())
}

func (f *SlackFile) objectName() string { return f.Name }

func (f *SlackFile) isPinned() bool { return f.Pinned }

func (f *SlackFile) author() *SlackUser { return f.User() }
