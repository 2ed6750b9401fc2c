// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package slackcleaner

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Version is the version of this package.
const Version = "3.0.0"

// DefaultEndpoint is the base URL of the Slack Web API.
const DefaultEndpoint = "https://slack.com/api"

// DefaultPageSize is the page limit requested from paginated API methods when
// no custom page size is configured.
const DefaultPageSize = 200

// defaultRetryAfter is used when a rate-limited response carries no usable
// Retry-After header.
const defaultRetryAfter = time.Second

// HTTPClient represents the functionality we need from an *http.Client, or
// similar.
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is a low-level client for the Slack Web API. It posts form-encoded
// method calls with bearer authentication, decodes the response envelope, and
// transparently waits out rate limits. Higher layers (SlackCleaner and the
// domain entities) speak to Slack exclusively through it.
type Client struct {
	c        HTTPClient
	endpoint string
	token    string
	log      *SlackLogger

	// PageSize is the page limit sent with every paginated request.
	PageSize int

	// sleep is swapped out in tests to avoid real delays.
	sleep func(time.Duration)
}

// NewClient returns a new *Client posting to the given endpoint. Most users
// want New or NewFromEnv instead, which wire a Client into a SlackCleaner.
func NewClient(c HTTPClient, token, endpoint string, log *SlackLogger) (*Client, error) {
	if c == nil {
		return nil, errors.New("must provide an http client")
	}

	if len(token) == 0 {
		return nil, errors.New("must provide a slack token")
	}

	if log == nil {
		return nil, errors.New("must provide a logger")
	}

	if len(endpoint) == 0 {
		endpoint = DefaultEndpoint
	}

	client := &Client{
		c:        c,
		endpoint: strings.TrimSuffix(endpoint, "/"),
		token:    token,
		log:      log,
		PageSize: DefaultPageSize,
		sleep:    time.Sleep,
	}

	return client, nil
}

func (c *Client) pageSize() int {
	if c.PageSize > 0 {
		return c.PageSize
	}
	return DefaultPageSize
}

// call invokes a single API method through the rate-limit wrapper. Slack
// signals rate limiting with an HTTP 429 response and a Retry-After header in
// seconds; call sleeps for exactly that long and retries without a retry cap,
// since rate limiting is transient and finite. Any other transport or decode
// failure propagates to the caller. A response with ok=false is not an error
// at this layer; callers inspect the envelope.
func (c *Client) call(method string, args url.Values) (*apiResponse, error) {
	u := c.endpoint + "/" + method

	for {
		req, err := postFormReq(u, args)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to build request for %q", method)
		}

		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.c.Do(req)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to call %q", method)
		}

		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()

		if err != nil {
			return nil, errors.Wrapf(err, "failed to read response of %q", method)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			delay := retryAfter(resp)
			c.log.Debugf("%s is rate limited, retrying in %s", method, delay)
			c.sleep(delay)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			return nil, errors.Errorf("unexpected HTTP response status for %q: %s", method, resp.Status)
		}

		return decodeResponse(method, body)
	}
}

// checkedCall invokes an API method and turns an ok=false envelope into an
// *APIError. Used by delete operations, which report failures through their
// return value instead of degrading to a default.
func (c *Client) checkedCall(method string, args url.Values) error {
	resp, err := c.call(method, args)
	if err != nil {
		return err
	}

	if !resp.OK {
		return resp.apiError()
	}

	return nil
}

// safeCall invokes an API method and degrades every expected failure to nil,
// so that downstream consumers stay total over remote failures. The optional
// scopes name the permissions the method requires and are used to produce a
// readable warning when the token is missing one of them.
func (c *Client) safeCall(method string, args url.Values, scopes ...string) *apiResponse {
	resp, err := c.call(method, args)
	if err != nil {
		c.log.Errorf("%s failed: %+v", method, err)
		return nil
	}

	if resp.OK {
		return resp
	}

	apiErr := resp.apiError()

	switch {
	case apiErr.MissingScope() && len(scopes) > 0:
		c.log.Warnf("%s requires the %q scope which the token does not have (expected one of: %s)",
			method, apiErr.Needed, strings.Join(scopes, ", "))
	case apiErr.benign():
		c.log.Debugf("%s returned %q, treating as no data", method, apiErr.Reason)
	default:
		c.log.Warnf("%s returned a not ok response: %s", method, string(resp.body))
	}

	return nil
}

// safeAttr extracts a single named attribute of a safeCall response,
// defaulting to nil on any expected failure.
func (c *Client) safeAttr(method string, args url.Values, attr string, scopes ...string) json.RawMessage {
	resp := c.safeCall(method, args, scopes...)
	if resp == nil {
		return nil
	}

	raw, ok := resp.attr(attr)
	if !ok {
		return nil
	}
	return raw
}

// retryAfter reads the server-provided retry delay of a rate-limited
// response.
func retryAfter(resp *http.Response) time.Duration {
	header := resp.Header.Get("Retry-After")
	if len(header) == 0 {
		return defaultRetryAfter
	}

	seconds, err := strconv.ParseFloat(header, 64)
	if err != nil || seconds <= 0 {
		return defaultRetryAfter
	}

	return time.Duration(seconds * float64(time.Second))
}

// apiResponse is the decoded Slack API envelope: the success flag, error
// details, pagination metadata, and the raw body attributes for name-driven
// extraction.
type apiResponse struct {
	OK       bool
	Reason   string
	Needed   string
	Provided string

	// NextCursor is the cursor-style pagination token, empty on the last page.
	NextCursor string
	// Page and Pages carry page-number style pagination metadata; both are
	// zero when the method does not paginate that way.
	Page  int
	Pages int

	method string
	body   []byte
	attrs  map[string]json.RawMessage
}

func decodeResponse(method string, body []byte) (*apiResponse, error) {
	var head struct {
		OK       bool   `json:"ok"`
		Error    string `json:"error"`
		Needed   string `json:"needed"`
		Provided string `json:"provided"`
		Metadata struct {
			NextCursor string `json:"next_cursor"`
		} `json:"response_metadata"`
		Paging struct {
			Page  int `json:"page"`
			Pages int `json:"pages"`
		} `json:"paging"`
	}

	if err := json.Unmarshal(body, &head); err != nil {
		return nil, errors.Wrapf(err, "failed to decode API envelope of %q", method)
	}

	attrs := map[string]json.RawMessage{}
	if err := json.Unmarshal(body, &attrs); err != nil {
		return nil, errors.Wrapf(err, "failed to decode API attributes of %q", method)
	}

	resp := &apiResponse{
		OK:         head.OK,
		Reason:     head.Error,
		Needed:     head.Needed,
		Provided:   head.Provided,
		NextCursor: head.Metadata.NextCursor,
		Page:       head.Paging.Page,
		Pages:      head.Paging.Pages,
		method:     method,
		body:       body,
		attrs:      attrs,
	}

	return resp, nil
}

// attr returns the named top-level attribute of the response body.
func (r *apiResponse) attr(name string) (json.RawMessage, bool) {
	raw, ok := r.attrs[name]
	return raw, ok
}

// list returns the named attribute as a list of raw records, or nil when the
// attribute is absent or not a list.
func (r *apiResponse) list(name string) []json.RawMessage {
	raw, ok := r.attrs[name]
	if !ok {
		return nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil
	}
	return records
}

func (r *apiResponse) apiError() *APIError {
	return &APIError{
		Method:   r.method,
		Reason:   r.Reason,
		Needed:   r.Needed,
		Provided: r.Provided,
	}
}

// APIError is a Slack API envelope with ok=false, i.e. a service-level
// failure of a single method call.
type APIError struct {
	// Method is the API method that failed.
	Method string
	// Reason is the error code of the envelope, e.g. "missing_scope".
	Reason string
	// Needed names the missing permission scope for missing_scope failures.
	Needed string
	// Provided names the scopes the token actually has.
	Provided string
}

func (e *APIError) Error() string {
	if e.MissingScope() {
		return e.Method + " failed: missing scope " + e.Needed + " (provided: " + e.Provided + ")"
	}
	return e.Method + " failed: " + e.Reason
}

// MissingScope reports whether this error was caused by a permission scope
// the token does not have.
func (e *APIError) MissingScope() bool {
	return e.Reason == "missing_scope"
}

// benign reports whether this error is an expected soft failure, such as
// asking for the members of an archived or otherwise inaccessible channel.
func (e *APIError) benign() bool {
	switch e.Reason {
	case "is_archived", "channel_not_found", "method_not_supported_for_channel_type":
		return true
	}
	return false
}
