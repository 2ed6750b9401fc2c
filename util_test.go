// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package slackcleaner

import (
	"net/url"
	"testing"
	"time"
)

func TestParseTime(t *testing.T) {
	tests := []struct {
		n string
		i string
		o time.Time
		e bool
	}{
		{n: "date", i: "20200215", o: time.Date(2020, 2, 15, 0, 0, 0, 0, time.Local)},
		{n: "date_time", i: "202002151430", o: time.Date(2020, 2, 15, 14, 30, 0, 0, time.Local)},
		{n: "garbage", i: "yesterday", e: true},
		{n: "too_short", i: "2020", e: true},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.n, func(t *testing.T) {
			got, err := ParseTime(tt.i)
			if err != nil {
				if !tt.e {
					t.Fatalf("ParseTime() unexpected error: %s", err)
				}
				return
			}

			if tt.e {
				t.Fatal("expected error did not occur")
			}

			if !got.Equal(tt.o) {
				t.Errorf("ParseTime() = %s, want %s", got, tt.o)
			}
		})
	}
}

func Test_parseTS(t *testing.T) {
	got := parseTS("1582103945.000600")
	if got.Unix() != 1582103945 {
		t.Errorf("parseTS() seconds = %d, want 1582103945", got.Unix())
	}

	if !parseTS("not a ts").IsZero() {
		t.Error("parseTS() of malformed input, want the zero time")
	}
}

func Test_formatTS(t *testing.T) {
	if got := formatTS(time.Unix(1582103945, 0)); got != "1582103945" {
		t.Errorf("formatTS() = %q, want %q", got, "1582103945")
	}
}

func Test_truncate(t *testing.T) {
	tests := []struct {
		n string
		i string
		o string
	}{
		{n: "short", i: "hi", o: "hi"},
		{n: "exact", i: "12345", o: "12345"},
		{n: "long", i: "123456789", o: "12345"},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.n, func(t *testing.T) {
			if got := truncate(tt.i, 5); got != tt.o {
				t.Errorf("truncate() = %q, want %q", got, tt.o)
			}
		})
	}
}

func Test_cloneValues(t *testing.T) {
	orig := url.Values{"channel": {"C1"}}
	clone := cloneValues(orig)

	clone.Set("channel", "C2")
	clone.Set("cursor", "abc")

	if orig.Get("channel") != "C1" {
		t.Error("mutating the clone leaked into the original")
	}

	if orig.Has("cursor") {
		t.Error("adding to the clone leaked into the original")
	}
}
