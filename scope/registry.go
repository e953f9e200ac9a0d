// Package scope holds the one vocabulary of permissions an application may
// request. Registration, authorization and token issuance all consult it.
package scope

import (
	"errors"
	"fmt"
	"strings"
)

// Version of the vocabulary, bumped whenever a scope is added or retired
const Version = 1

// Scope is a named permission unit in its public (colon) form
type Scope string

const (
	Read               Scope = "read"
	WritePosts         Scope = "write:posts"
	WriteComments      Scope = "write:comments"
	WalletRead         Scope = "wallet:read"
	WalletSend         Scope = "wallet:send"
	WalletReceive      Scope = "wallet:receive"
	ProfileRead        Scope = "profile:read"
	ProfileWrite       Scope = "profile:write"
	NotificationsRead  Scope = "notifications:read"
	NotificationsWrite Scope = "notifications:write"
)

var vocabulary = []Scope{
	Read,
	WritePosts,
	WriteComments,
	WalletRead,
	WalletSend,
	WalletReceive,
	ProfileRead,
	ProfileWrite,
	NotificationsRead,
	NotificationsWrite,
}

var known = func() map[Scope]struct{} {
	m := make(map[Scope]struct{}, len(vocabulary))
	for _, v := range vocabulary {
		m[v] = struct{}{}
	}
	return m
}()

// ErrEmpty is returned when no scope was supplied at all
var ErrEmpty = errors.New("no scope supplied")

// UnknownError names the first scope outside the vocabulary
type UnknownError struct {
	Scope string
}

func (e *UnknownError) Error() string {
	return fmt.Sprintf("unknown scope %q", e.Scope)
}

// All returns a copy of the vocabulary
func All() []Scope {
	out := make([]Scope, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// IsKnown reports if s is part of the vocabulary
func IsKnown(s string) bool {
	_, ok := known[Scope(s)]
	return ok
}

// Set is an ordered, duplicate free list of scopes
type Set []Scope

// Parse splits a space separated scope string. A single unknown value fails
// the whole string so callers never end up with a partial grant.
func Parse(raw string) (Set, error) {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == '+'
	})
	if len(fields) == 0 {
		return nil, ErrEmpty
	}
	return FromStrings(fields)
}

// FromStrings builds a set from individual scope strings
func FromStrings(values []string) (Set, error) {
	if len(values) == 0 {
		return nil, ErrEmpty
	}
	set := make(Set, 0, len(values))
	seen := make(map[Scope]struct{}, len(values))
	for _, v := range values {
		s := Scope(strings.TrimSpace(v))
		if _, ok := known[s]; !ok {
			return nil, &UnknownError{Scope: v}
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		set = append(set, s)
	}
	return set, nil
}

// Contains reports if s is part of the set
func (s Set) Contains(v Scope) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// Missing returns the entries of required which are not in s
func (s Set) Missing(required Set) Set {
	var missing Set
	for _, r := range required {
		if !s.Contains(r) {
			missing = append(missing, r)
		}
	}
	return missing
}

// Covers reports if every entry of other is in s
func (s Set) Covers(other Set) bool {
	return len(s.Missing(other)) == 0
}

// Union returns s with all entries of other appended that are not yet in s
func (s Set) Union(other Set) Set {
	out := make(Set, 0, len(s)+len(other))
	out = append(out, s...)
	for _, o := range other {
		if !out.Contains(o) {
			out = append(out, o)
		}
	}
	return out
}

// Intersect keeps the entries of s that are also in other, in the order of s
func (s Set) Intersect(other Set) Set {
	out := make(Set, 0, len(s))
	for _, v := range s {
		if other.Contains(v) {
			out = append(out, v)
		}
	}
	return out
}

// Strings returns the public form of every scope
func (s Set) Strings() []string {
	out := make([]string, len(s))
	for i, v := range s {
		out[i] = string(v)
	}
	return out
}

// String joins the set with spaces as used on the wire
func (s Set) String() string {
	return strings.Join(s.Strings(), " ")
}

// ToStorage renders the set in the storage safe alphabet, `:` becomes `_`
func (s Set) ToStorage() string {
	parts := make([]string, len(s))
	for i, v := range s {
		parts[i] = strings.ReplaceAll(string(v), ":", "_")
	}
	return strings.Join(parts, " ")
}

// FromStorage reverses ToStorage. Values unknown to the current vocabulary
// are dropped so retired scopes never grant anything.
func FromStorage(stored string) Set {
	fields := strings.Fields(stored)
	set := make(Set, 0, len(fields))
	for _, f := range fields {
		s := Scope(strings.Replace(f, "_", ":", 1))
		if _, ok := known[s]; ok && !set.Contains(s) {
			set = append(set, s)
		}
	}
	return set
}
