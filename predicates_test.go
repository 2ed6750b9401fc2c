// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package slackcleaner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser(id, name string) *SlackUser {
	return &SlackUser{ID: id, Name: name}
}

func TestPredicate_identity(t *testing.T) {
	obj := testUser("U1", "alice")

	assert.True(t, And().Matches(obj), "empty And must be vacuously true")
	assert.False(t, Or().Matches(obj), "empty Or must be vacuously false")
}

func TestPredicate_laws(t *testing.T) {
	yes := predicateFunc(func(interface{}) bool { return true })
	no := predicateFunc(func(interface{}) bool { return false })

	obj := testUser("U1", "alice")

	tests := []struct {
		n string
		p Predicate
		q Predicate
	}{
		{n: "tt", p: yes, q: yes},
		{n: "tf", p: yes, q: no},
		{n: "ft", p: no, q: yes},
		{n: "ff", p: no, q: no},
	}

	for _, tt := range tests {
		tt := tt

		t.Run(tt.n, func(t *testing.T) {
			assert.Equal(t, tt.p.Matches(obj) && tt.q.Matches(obj), tt.p.And(tt.q).Matches(obj))
			assert.Equal(t, tt.p.Matches(obj) || tt.q.Matches(obj), tt.p.Or(tt.q).Matches(obj))
		})
	}
}

func TestPredicate_flattening(t *testing.T) {
	a := predicateFunc(func(interface{}) bool { return true })
	b := predicateFunc(func(interface{}) bool { return true })
	c := predicateFunc(func(interface{}) bool { return true })
	d := predicateFunc(func(interface{}) bool { return true })

	// And of two Ands merges the child lists instead of nesting
	merged := And(a, b).And(And(c, d))
	and, ok := merged.(*andPredicate)
	require.True(t, ok)
	assert.Len(t, and.children, 4)

	// And with a plain predicate appends
	appended := And(a, b).And(c)
	and, ok = appended.(*andPredicate)
	require.True(t, ok)
	assert.Len(t, and.children, 3)

	// Or mirrors the flattening rule
	mergedOr := Or(a, b).Or(Or(c, d))
	or, ok := mergedOr.(*orPredicate)
	require.True(t, ok)
	assert.Len(t, or.children, 4)

	// mixed combination wraps: (a | b) & c keeps the Or as one child
	mixed := Or(a, b).And(c)
	and, ok = mixed.(*andPredicate)
	require.True(t, ok)
	require.Len(t, and.children, 2)
	_, ok = and.children[0].(*orPredicate)
	assert.True(t, ok, "the Or operand must stay a single child")
}

func TestMatch(t *testing.T) {
	ch := &SlackChannel{ID: "C1", Name: "General"}

	assert.True(t, Match("general").Matches(ch), "match must be case-insensitive")
	assert.True(t, Match("gen.*").Matches(ch))
	assert.False(t, Match("ener").Matches(ch), "match must be anchored")
	assert.False(t, Match("general").Matches(42), "objects without a name never match")
}

func TestIsName(t *testing.T) {
	ch := &SlackChannel{ID: "C1", Name: "general"}

	assert.True(t, IsName("general").Matches(ch))
	assert.False(t, IsName("General").Matches(ch), "IsName is exact")
}

func TestMatchText(t *testing.T) {
	msg := &SlackMessage{TS: "1", Text: "hello world"}

	assert.True(t, MatchText("hello.*").Matches(msg))
	assert.False(t, MatchText("world").Matches(msg), "match must be anchored")
	assert.False(t, MatchText("hello.*").Matches(testUser("U1", "hello world")), "users have no text")
}

func TestMatchUser(t *testing.T) {
	user := &SlackUser{
		ID:          "U1",
		Name:        "alice",
		DisplayName: "Alice",
		RealName:    "Alice Cooper",
		// Email intentionally unset: coerced to empty, never an error
	}

	assert.True(t, MatchUser("u1").Matches(user), "id matches case-insensitively")
	assert.True(t, MatchUser("alice").Matches(user))
	assert.True(t, MatchUser("alice cooper").Matches(user))
	assert.False(t, MatchUser("bob").Matches(user))
	assert.False(t, MatchUser(".*").Matches("not a user"))
}

func TestIsNotPinnedAndIsBot(t *testing.T) {
	pinned := &SlackMessage{TS: "1", Pinned: true}
	plain := &SlackMessage{TS: "2"}
	bot := &SlackMessage{TS: "3", Bot: true}
	botUser := &SlackUser{ID: "U9", Name: "robo", Bot: true}

	assert.False(t, IsNotPinned().Matches(pinned))
	assert.True(t, IsNotPinned().Matches(plain))
	assert.True(t, IsNotPinned().Matches(testUser("U1", "alice")), "objects without a pinned flag pass")

	assert.True(t, IsBot().Matches(bot))
	assert.False(t, IsBot().Matches(plain))
	assert.True(t, IsBot().Matches(botUser))
	assert.False(t, IsBot().Matches("not a message"))
}

func TestByUser(t *testing.T) {
	alice := testUser("U1", "alice")
	bob := testUser("U2", "bob")

	byAlice := &SlackMessage{TS: "1", User: alice}
	byBob := &SlackMessage{TS: "2", User: bob}
	byNobody := &SlackMessage{TS: "3"}

	assert.True(t, ByUser(alice).Matches(byAlice))
	assert.False(t, ByUser(alice).Matches(byBob))
	assert.False(t, ByUser(alice).Matches(byNobody))

	assert.True(t, ByUsers(alice, bob).Matches(byBob))
	assert.False(t, ByUsers(alice).Matches(byBob))
	assert.False(t, ByUsers().Matches(byAlice))
}

func TestIsMember(t *testing.T) {
	alice := testUser("U1", "alice")
	bob := testUser("U2", "bob")

	ch := &SlackChannel{
		ID:            "C1",
		Name:          "general",
		slack:         &SlackCleaner{},
		members:       []*SlackUser{alice},
		membersLoaded: true,
	}

	assert.True(t, IsMember(alice).Matches(ch))
	assert.False(t, IsMember(bob).Matches(ch))
	assert.False(t, IsMember(alice).Matches(testUser("U3", "carol")), "users have no members")
}

func TestPredicate_composition(t *testing.T) {
	alice := testUser("U1", "alice")

	keep := &SlackMessage{TS: "1", User: alice, Text: "spam"}
	pinned := &SlackMessage{TS: "2", User: alice, Text: "spam", Pinned: true}
	other := &SlackMessage{TS: "3", User: testUser("U2", "bob"), Text: "spam"}

	p := ByUser(alice).And(MatchText("spam")).And(IsNotPinned())

	assert.True(t, p.Matches(keep))
	assert.False(t, p.Matches(pinned))
	assert.False(t, p.Matches(other))
}
