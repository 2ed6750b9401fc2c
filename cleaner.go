// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package slackcleaner

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// SlackCleaner is the entry point of this package. It owns the API client and
// three lazily built caches: the workspace users (including a registry of
// synthesized dummy users merged into the same lookup), the conversations,
// and the calling user. The caches are populated on first access and never
// invalidated for the lifetime of the cleaner; a long-running automation will
// serve stale membership and user data.
//
// A SlackCleaner is safe for use from a single goroutine; the caches are
// mutex-guarded so that concurrent readers do not race on the first
// population.
type SlackCleaner struct {
	// Log is the logging sink used for all diagnostics and delete events.
	Log *SlackLogger

	client *Client
	token  string

	mu             sync.Mutex
	users          []*SlackUser
	userLookup     map[string]*SlackUser
	usersLoaded    bool
	channels       []*SlackChannel
	ims            []*SlackDirectMessage
	channelsLoaded bool
	myself         *SlackUser
	stats          map[string]*ScopeStats
}

// ScopeStats counts delete outcomes per permission scope.
type ScopeStats struct {
	// Deleted counts successful deletes.
	Deleted int
	// Failed counts failed deletes.
	Failed int
}

// Options customize a SlackCleaner. The zero value is a working default.
type Options struct {
	// HTTPClient is the client used for all requests; defaults to an
	// *http.Client with a 60 second timeout.
	HTTPClient HTTPClient
	// Logger replaces the logging sink; when set, LogFile and SleepFor are
	// ignored.
	Logger *SlackLogger
	// Endpoint overrides the API base URL, mainly for tests.
	Endpoint string
	// SleepFor is an optional self-throttle delay applied after every delete
	// call, independent of server-side rate limiting.
	SleepFor time.Duration
	// LogFile enables debug logging to the given file.
	LogFile string
	// PageSize overrides the page limit requested from paginated methods.
	PageSize int
}

// New returns a SlackCleaner for the workspace the given token belongs to.
// No remote call is made yet; the caches fill on first access.
func New(token string, opts *Options) (*SlackCleaner, error) {
	if len(token) == 0 {
		return nil, errors.New("must provide a slack token")
	}

	if opts == nil {
		opts = &Options{}
	}

	log := opts.Logger
	if log == nil {
		var err error
		log, err = NewSlackLogger(opts.LogFile, opts.SleepFor)
		if err != nil {
			return nil, err
		}
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 60 * time.Second}
	}

	client, err := NewClient(hc, token, opts.Endpoint, log)
	if err != nil {
		return nil, err
	}

	if opts.PageSize > 0 {
		client.PageSize = opts.PageSize
	}

	s := &SlackCleaner{
		Log:        log,
		client:     client,
		token:      token,
		userLookup: map[string]*SlackUser{},
		stats:      map[string]*ScopeStats{},
	}

	log.Debugf("start")

	return s, nil
}

// Users returns all workspace users. Loaded on first access and cached for
// the lifetime of the cleaner.
func (s *SlackCleaner) Users() []*SlackUser {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadUsersLocked()
	return s.users
}

func (s *SlackCleaner) loadUsersLocked() {
	if s.usersLoaded {
		return
	}
	s.usersLoaded = true

	records := s.client.cursorPages("users.list", nil, "members", "users:read").collect()
	for _, rec := range records {
		u, err := newUser(rec, s)
		if err != nil {
			s.Log.Warnf("skipping malformed user record: %v", err)
			continue
		}
		s.addUserLocked(u)
	}

	s.Log.Debugf("collected %d users", len(s.users))
}

// addUserLocked inserts a user into the cache; the lookup is keyed by both id
// and name so either resolves with a single map access.
func (s *SlackCleaner) addUserLocked(u *SlackUser) {
	s.users = append(s.users, u)
	s.userLookup[u.ID] = u
	if len(u.Name) > 0 {
		s.userLookup[u.Name] = u
	}
}

// User returns the user with the given id or name, or nil when unknown. Use
// ResolveUser when a result is required unconditionally.
func (s *SlackCleaner) User(idOrName string) *SlackUser {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadUsersLocked()
	return s.userLookup[idOrName]
}

// ResolveUser resolves a user id, never failing: a cache hit is returned
// directly, an unknown id is fetched individually, and when that fails a
// dummy user is synthesized, cached, and returned, so that message and file
// attribution always resolves to some user.
func (s *SlackCleaner) ResolveUser(id string) *SlackUser {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.resolveUserLocked(id)
}

func (s *SlackCleaner) resolveUserLocked(id string) *SlackUser {
	s.loadUsersLocked()

	if u, ok := s.userLookup[id]; ok {
		return u
	}

	if rec := s.client.safeAttr("users.info", url.Values{"user": {id}}, "user", "users:read"); rec != nil {
		if u, err := newUser(rec, s); err == nil {
			s.addUserLocked(u)
			return u
		}
	}

	s.Log.Errorf("user %s not found - generating dummy one", id)

	u := dummyUser(id, s)
	s.addUserLocked(u)
	return u
}

// Myself returns the calling user, i.e. the one the token belongs to. Looked
// up once via auth.test and cached.
func (s *SlackCleaner) Myself() *SlackUser {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.myself != nil {
		return s.myself
	}

	var userID string
	if resp := s.client.safeCall("auth.test", nil); resp != nil {
		if raw, ok := resp.attr("user_id"); ok {
			_ = json.Unmarshal(raw, &userID)
		}
	}

	s.myself = s.resolveUserLocked(userID)
	return s.myself
}

// Conversations returns all conversations (public and private channels,
// mpims, and ims). Loaded on first access and cached for the lifetime of the
// cleaner.
func (s *SlackCleaner) Conversations() []*SlackChannel {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadChannelsLocked()
	return s.channels
}

// Channels returns the public channels.
func (s *SlackCleaner) Channels() []*SlackChannel { return s.channelsOfType(ChannelPublic) }

// Groups returns the private channels.
func (s *SlackCleaner) Groups() []*SlackChannel { return s.channelsOfType(ChannelPrivate) }

// MPIMs returns the multi-person instant message conversations.
func (s *SlackCleaner) MPIMs() []*SlackChannel { return s.channelsOfType(ChannelMPIM) }

// IMs returns the direct message conversations.
func (s *SlackCleaner) IMs() []*SlackDirectMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadChannelsLocked()
	return s.ims
}

// Channel returns the conversation with the given id or name, or nil when
// unknown.
func (s *SlackCleaner) Channel(idOrName string) *SlackChannel {
	for _, ch := range s.Conversations() {
		if ch.ID == idOrName || ch.Name == idOrName {
			return ch
		}
	}
	return nil
}

func (s *SlackCleaner) channelsOfType(t ChannelType) []*SlackChannel {
	var channels []*SlackChannel
	for _, ch := range s.Conversations() {
		if ch.Type == t {
			channels = append(channels, ch)
		}
	}
	return channels
}

func (s *SlackCleaner) loadChannelsLocked() {
	if s.channelsLoaded {
		return
	}
	s.channelsLoaded = true

	args := url.Values{"types": {"public_channel,private_channel,mpim,im"}}
	records := s.client.cursorPages("conversations.list", args, "channels",
		"channels:read", "groups:read", "im:read", "mpim:read").collect()

	for _, rec := range records {
		ch, dm, err := newChannel(rec, s)
		if err != nil {
			s.Log.Warnf("skipping malformed channel record: %v", err)
			continue
		}
		s.channels = append(s.channels, ch)
		if dm != nil {
			s.ims = append(s.ims, dm)
		}
	}

	s.Log.Debugf("collected %d conversations", len(s.channels))
}

// Msgs lazily lists messages across the given conversations, defaulting to
// all of them.
func (s *SlackCleaner) Msgs(channels []*SlackChannel, opts MsgOptions) *MessageIterator {
	if len(channels) == 0 {
		channels = s.Conversations()
	}
	return newMessageIterator(s, channels, opts, nil)
}

// FileOptions narrow a file listing.
type FileOptions struct {
	// User limits the listing to files of the given user.
	User *SlackUser
	// Channel limits the listing to files shared in the given conversation.
	Channel *SlackChannel
	// After limits the listing to files uploaded after the given point in
	// time.
	After time.Time
	// Before limits the listing to files uploaded before the given point in
	// time.
	Before time.Time
	// Types filters by file type, one or multiple of
	// all,spaces,snippets,images,gdocs,zips,pdfs.
	Types string
}

// Files lazily lists the files of the workspace matching the given options.
func (s *SlackCleaner) Files(opts FileOptions) *FileIterator {
	args := url.Values{}
	if opts.User != nil {
		args.Set("user", opts.User.ID)
	}
	if opts.Channel != nil {
		args.Set("channel", opts.Channel.ID)
	}
	if !opts.After.IsZero() {
		args.Set("ts_from", formatTS(opts.After))
	}
	if !opts.Before.IsZero() {
		args.Set("ts_to", formatTS(opts.Before))
	}
	if len(opts.Types) > 0 {
		args.Set("types", opts.Types)
	}

	s.Log.Debugf("list all files (user=%v, channel=%v, types=%s)", opts.User, opts.Channel, opts.Types)

	return &FileIterator{
		slack: s,
		pages: s.client.numberedPages("files.list", args, "files", "files:read"),
	}
}

// Stats returns a copy of the per-scope delete counters.
func (s *SlackCleaner) Stats() map[string]ScopeStats {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := make(map[string]ScopeStats, len(s.stats))
	for scope, st := range s.stats {
		stats[scope] = *st
	}
	return stats
}

// deleteCall performs a single delete method call and routes its outcome
// through the post-delete hook.
func (s *SlackCleaner) deleteCall(method string, args url.Values, scope, entry string) error {
	err := s.client.checkedCall(method, args)
	s.postDelete(scope, entry, err)
	return err
}

// postDelete records the outcome of one delete call: it bumps the counter of
// the scope the call needed, emits a readable warning when that scope is
// missing, and reports the delete event to the logging sink, which applies
// the optional self-throttle sleep after both successful and failed deletes.
func (s *SlackCleaner) postDelete(scope, entry string, err error) {
	s.mu.Lock()
	st, ok := s.stats[scope]
	if !ok {
		st = &ScopeStats{}
		s.stats[scope] = st
	}
	if err != nil {
		st.Failed++
	} else {
		st.Deleted++
	}
	s.mu.Unlock()

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.MissingScope() {
		s.Log.Warnf("deleting requires the %q scope which the token does not have", scope)
	}

	s.Log.Deleted(entry, err)
}
