// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

// Package slackcleaner is a client library for bulk-inspecting and
// bulk-deleting content (messages, files, reactions) of a Slack workspace
// through the paginated, rate-limited Slack Web API.
//
// The entry point is the SlackCleaner, which owns the API connection and
// lazily built caches of users and channels. Listing operations return lazy
// iterators that transparently follow cursor- and page-based pagination and
// wait out server-side rate limits. Expected service failures (missing
// permission scopes, archived channels, plain API errors) never abort a
// listing; they are logged and degrade to empty results.
//
// Iterated entities can be filtered with the predicate algebra in this
// package: predicates are combined with And/Or and evaluated against users,
// channels, messages, and files through one uniform interface. Matched
// entities expose delete operations that report per-item success or failure
// both through the logging sink and their return value.
//
// The cleaner needs a Slack token with the scopes matching the calls you
// intend to make (users:read, channels:read, channels:history, files:read,
// chat:write:user, files:write:user, reactions:write, ...). A call made
// without its scope logs a warning naming the scope and yields no data.
package slackcleaner
