// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package slackcleaner

import (
	"encoding/json"
	"net/url"
	"strconv"
)

// pagingStyle selects how a paginated API method advances between pages.
type pagingStyle int

const (
	// cursorPaging uses an opaque continuation token
	// (response_metadata.next_cursor) and a limit argument.
	cursorPaging pagingStyle = iota
	// numberedPaging uses a numeric page index and total page count
	// (paging.page / paging.pages) and a count argument.
	numberedPaging
)

// pageIterator lazily walks the pages of a paginated API method. It is a
// non-restartable forward iterator: each next call fetches at most one page
// through the safe call layer, so a permission failure or API error simply
// ends the sequence. Abandoning the iterator early needs no cleanup.
type pageIterator struct {
	c      *Client
	method string
	attr   string
	args   url.Values
	scopes []string
	style  pagingStyle

	cursor  string
	page    int
	started bool
	done    bool
}

// cursorPages returns an iterator over a cursor-paginated method. The first
// request carries only the page limit; follow-up requests add the cursor of
// the previous page.
func (c *Client) cursorPages(method string, args url.Values, attr string, scopes ...string) *pageIterator {
	return &pageIterator{c: c, method: method, attr: attr, args: args, scopes: scopes, style: cursorPaging}
}

// numberedPages returns an iterator over a page-number paginated method,
// starting at page 1.
func (c *Client) numberedPages(method string, args url.Values, attr string, scopes ...string) *pageIterator {
	return &pageIterator{c: c, method: method, attr: attr, args: args, scopes: scopes, style: numberedPaging, page: 1}
}

// next fetches the next page of records. It reports false once the sequence
// is exhausted; an empty first page is a valid single iteration with zero
// records. When the server omits pagination metadata the sequence stops
// rather than loop.
func (it *pageIterator) next() ([]json.RawMessage, bool) {
	if it.done {
		return nil, false
	}

	args := cloneValues(it.args)

	switch it.style {
	case cursorPaging:
		args.Set("limit", strconv.Itoa(it.c.pageSize()))
		if it.started && len(it.cursor) > 0 {
			args.Set("cursor", it.cursor)
		}
	case numberedPaging:
		args.Set("count", strconv.Itoa(it.c.pageSize()))
		args.Set("page", strconv.Itoa(it.page))
	}

	it.started = true

	resp := it.c.safeCall(it.method, args, it.scopes...)
	if resp == nil {
		it.done = true
		return nil, false
	}

	records := resp.list(it.attr)

	switch it.style {
	case cursorPaging:
		it.cursor = resp.NextCursor
		if len(it.cursor) == 0 {
			it.done = true
		}
	case numberedPaging:
		if resp.Pages == 0 || resp.Page >= resp.Pages {
			it.done = true
		} else {
			it.page = resp.Page + 1
		}
	}

	return records, true
}

// collect drains the remaining pages into a single slice. Used by the few
// callers that need the full collection anyway, such as the user cache and
// channel member lists.
func (it *pageIterator) collect() []json.RawMessage {
	var records []json.RawMessage
	for {
		page, ok := it.next()
		if !ok {
			return records
		}
		records = append(records, page...)
	}
}
