// Copyright (c) 2020 Samuel Gratzl
//
// Use of this source code is governed by the MIT License that can be found in
// the LICENSE file at the root of this repository.

package slackcleaner

import (
	"regexp"
)

// Predicate is a boolean filter over domain objects (users, channels,
// messages, files). Predicates are pure and never fail: an object lacking the
// inspected attribute simply does not match. They compose with And and Or.
type Predicate interface {
	// Matches evaluates the predicate against the given object.
	Matches(obj interface{}) bool
	// And combines this predicate with another one; the result matches iff
	// both match.
	And(other Predicate) Predicate
	// Or combines this predicate with another one; the result matches iff at
	// least one matches.
	Or(other Predicate) Predicate
}

// capability interfaces implemented by the domain entities; predicates probe
// for them instead of looking attributes up by name.
type (
	named      interface{ objectName() string }
	texted     interface{ objectText() string }
	identified interface{ identityFields() []string }
	pinnable   interface{ isPinned() bool }
	botLike    interface{ isBotLike() bool }
	authored   interface{ author() *SlackUser }
	membered   interface{ hasMember(u *SlackUser) bool }
)

type predicateFunc func(obj interface{}) bool

func (p predicateFunc) Matches(obj interface{}) bool { return p(obj) }

func (p predicateFunc) And(other Predicate) Predicate { return And(p, other) }

func (p predicateFunc) Or(other Predicate) Predicate { return Or(p, other) }

type andPredicate struct {
	children []Predicate
}

// And combines predicates conjunctively. With no children it is vacuously
// true.
func And(predicates ...Predicate) Predicate {
	return &andPredicate{children: predicates}
}

func (p *andPredicate) Matches(obj interface{}) bool {
	for _, child := range p.children {
		if !child.Matches(obj) {
			return false
		}
	}
	return true
}

// And flattens nested conjunctions: combining two And predicates merges their
// child lists instead of nesting.
func (p *andPredicate) And(other Predicate) Predicate {
	if o, ok := other.(*andPredicate); ok {
		return &andPredicate{children: append(append([]Predicate{}, p.children...), o.children...)}
	}
	return &andPredicate{children: append(append([]Predicate{}, p.children...), other)}
}

// Or wraps this conjunction as a single child of a new disjunction,
// preserving conventional operator precedence.
func (p *andPredicate) Or(other Predicate) Predicate {
	return &orPredicate{children: []Predicate{p, other}}
}

type orPredicate struct {
	children []Predicate
}

// Or combines predicates disjunctively. With no children it is vacuously
// false.
func Or(predicates ...Predicate) Predicate {
	return &orPredicate{children: predicates}
}

func (p *orPredicate) Matches(obj interface{}) bool {
	for _, child := range p.children {
		if child.Matches(obj) {
			return true
		}
	}
	return false
}

// Or flattens nested disjunctions, mirroring the And flattening rule.
func (p *orPredicate) Or(other Predicate) Predicate {
	if o, ok := other.(*orPredicate); ok {
		return &orPredicate{children: append(append([]Predicate{}, p.children...), o.children...)}
	}
	return &orPredicate{children: append(append([]Predicate{}, p.children...), other)}
}

// And wraps this disjunction as a single child of a new conjunction.
func (p *orPredicate) And(other Predicate) Predicate {
	return &andPredicate{children: []Predicate{p, other}}
}

// IsNotPinned matches messages and files that are not pinned. Objects without
// a pinned flag match as well.
func IsNotPinned() Predicate {
	return predicateFunc(func(obj interface{}) bool {
		if p, ok := obj.(pinnable); ok {
			return !p.isPinned()
		}
		return true
	})
}

// IsBot matches messages and users authored by a bot or app.
func IsBot() Predicate {
	return predicateFunc(func(obj interface{}) bool {
		if b, ok := obj.(botLike); ok {
			return b.isBotLike()
		}
		return false
	})
}

// compileMatch anchors the pattern and makes it case-insensitive, matching
// the original regex semantics of the filters.
func compileMatch(pattern string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)^(?:` + pattern + `)$`)
}

// Match matches objects whose name matches the given anchored,
// case-insensitive regular expression.
func Match(pattern string) Predicate {
	regex := compileMatch(pattern)
	return predicateFunc(func(obj interface{}) bool {
		if n, ok := obj.(named); ok {
			return regex.MatchString(n.objectName())
		}
		return false
	})
}

// IsName matches objects with exactly the given name.
func IsName(name string) Predicate {
	return predicateFunc(func(obj interface{}) bool {
		if n, ok := obj.(named); ok {
			return n.objectName() == name
		}
		return false
	})
}

// MatchText matches messages whose text matches the given anchored,
// case-insensitive regular expression.
func MatchText(pattern string) Predicate {
	regex := compileMatch(pattern)
	return predicateFunc(func(obj interface{}) bool {
		if t, ok := obj.(texted); ok {
			return regex.MatchString(t.objectText())
		}
		return false
	})
}

// MatchUser matches users one of whose identity fields (id, name, display
// name, email, real name, in that order) matches the given anchored,
// case-insensitive regular expression. Evaluation short-circuits on the first
// matching field; unset fields are treated as empty strings.
func MatchUser(pattern string) Predicate {
	regex := compileMatch(pattern)
	return predicateFunc(func(obj interface{}) bool {
		i, ok := obj.(identified)
		if !ok {
			return false
		}
		for _, field := range i.identityFields() {
			if regex.MatchString(field) {
				return true
			}
		}
		return false
	})
}

// IsMember matches channels the given user is a member of.
func IsMember(user *SlackUser) Predicate {
	return predicateFunc(func(obj interface{}) bool {
		if m, ok := obj.(membered); ok {
			return m.hasMember(user)
		}
		return false
	})
}

// ByUser matches messages and files authored by the given user.
func ByUser(user *SlackUser) Predicate {
	return predicateFunc(func(obj interface{}) bool {
		if a, ok := obj.(authored); ok {
			return a.author() == user
		}
		return false
	})
}

// ByUsers matches messages and files authored by any of the given users.
func ByUsers(users ...*SlackUser) Predicate {
	set := make(map[*SlackUser]struct{}, len(users))
	for _, u := range users {
		set[u] = struct{}{}
	}
	return predicateFunc(func(obj interface{}) bool {
		a, ok := obj.(authored)
		if !ok {
			return false
		}
		_, member := set[a.author()]
		return member
	})
}
