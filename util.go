// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package slackcleaner

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

func postFormReq(url string, val url.Values) (*http.Request, error) {
	req, err := http.NewRequest(http.MethodPost, url, strings.NewReader(val.Encode()))
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return req, nil
}

func getReq(url string) (*http.Request, error) {
	return http.NewRequest(http.MethodGet, url, nil)
}

func cloneValues(val url.Values) url.Values {
	clone := url.Values{}
	for k, vs := range val {
		clone[k] = append([]string(nil), vs...)
	}
	return clone
}

// ParseTime parses the compact timestamp notations accepted by the listing
// filters: YYYYMMDD or YYYYMMDDHHMM, interpreted in local time.
func ParseTime(s string) (time.Time, error) {
	layout := "200601021504"
	if len(s) == 8 {
		layout = "20060102"
	}

	t, err := time.ParseInLocation(layout, s, time.Local)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse time %q", s)
	}

	return t, nil
}

// formatTS renders a point in time as a Slack API timestamp argument.
func formatTS(t time.Time) string {
	return strconv.FormatInt(t.Unix(), 10)
}

// parseTS parses a Slack message timestamp ("1582103945.000600") into a
// time.Time, returning the zero time for malformed input.
func parseTS(ts string) time.Time {
	seconds, err := strconv.ParseFloat(ts, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(0, int64(seconds*float64(time.Second)))
}

// truncate shortens a string for log rendering.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}
