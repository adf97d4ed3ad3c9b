package ir

import "strconv"

// Names generates fresh names.
//
// A Names is scoped to one compilation unit:
// names are unique within the lifetime of the Names, or until Reset.
// Generated names begin with _ followed by the prefix.
// They never equal a name passed to Reserve.
type Names struct {
	prefix string
	n      int
	used   map[string]bool
}

// NewNames returns a new Names.
// If prefix is empty, the hint passed to Fresh is used alone.
func NewNames(prefix string) *Names {
	return &Names{prefix: prefix}
}

// Reserve marks names as taken, so Fresh never returns them.
// Only names beginning with _ can collide with a fresh name;
// others are ignored.
func (ns *Names) Reserve(names ...string) {
	for _, n := range names {
		if len(n) == 0 || n[0] != '_' {
			continue
		}
		if ns.used == nil {
			ns.used = make(map[string]bool)
		}
		ns.used[n] = true
	}
}

// Fresh returns a new, unique name.
// The hint is included in the name to help readability.
func (ns *Names) Fresh(hint string) string {
	for {
		ns.n++
		n := "_" + ns.prefix + hint + strconv.Itoa(ns.n)
		if !ns.used[n] {
			return n
		}
	}
}

// Reset starts a new compilation unit.
// Names returned after Reset may equal names returned before it,
// and reserved names are forgotten.
func (ns *Names) Reset() {
	ns.n = 0
	ns.used = nil
}
