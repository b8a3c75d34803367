package rulekey

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrInconsistent indicates the same RuleKey was logged twice with differing
// structures, which means the log is malformed or truncated.
var ErrInconsistent = errors.New("inconsistent rule key structure")

// UnknownInfo is returned for invocation-info keys absent from the log.
const UnknownInfo = "<unknown>"

// Index is the queryable in-memory representation of one log's RuleKey
// entries. It is built once at load time and immutable afterwards.
type Index struct {
	entries    []Entry
	byKey      map[Key]*Structure
	nameToKey  map[string]Key
	invocation map[string]string
}

// NewIndex builds an index over parsed entries. It fails with
// ErrInconsistent when a key re-appears with a structure unequal to its
// first occurrence; duplicate identical entries are allowed.
func NewIndex(entries []Entry, invocation map[string]string) (*Index, error) {
	x := &Index{
		entries:    entries,
		byKey:      make(map[Key]*Structure, len(entries)),
		nameToKey:  make(map[string]Key),
		invocation: invocation,
	}
	if x.invocation == nil {
		x.invocation = make(map[string]string)
	}
	for _, e := range entries {
		if prev, ok := x.byKey[e.Key]; ok && !prev.Equal(e.Structure) {
			return nil, fmt.Errorf("key %s logged with two different structures: %w", e.Key, ErrInconsistent)
		}
		x.byKey[e.Key] = e.Structure
		// Later duplicate names overwrite earlier ones.
		if name, ok := nameFromStructure(e.Structure); ok {
			x.nameToKey[name] = e.Key
		}
	}
	return x, nil
}

// Load parses a log and indexes it.
func Load(r io.Reader) (*Index, error) {
	entries, invocation, err := Parse(r)
	if err != nil {
		return nil, err
	}
	return NewIndex(entries, invocation)
}

// ByKey returns the structure logged for k.
func (x *Index) ByKey(k Key) (*Structure, bool) {
	s, ok := x.byKey[k]
	return s, ok
}

// KeyForName returns the key of the entry carrying the given human-readable
// target name.
func (x *Index) KeyForName(name string) (Key, bool) {
	k, ok := x.nameToKey[name]
	return k, ok
}

// NameForKey resolves a key to its human-readable target name, if the
// structure carries one.
func (x *Index) NameForKey(k Key) (string, bool) {
	s, ok := x.byKey[k]
	if !ok {
		return "", false
	}
	return nameFromStructure(s)
}

// AllNames returns the name of every entry that has one, in parse order.
func (x *Index) AllNames() []string {
	var names []string
	for _, e := range x.entries {
		if name, ok := nameFromStructure(e.Structure); ok {
			names = append(names, name)
		}
	}
	return names
}

// InvocationInfo returns the recorded invocation value for key, or the
// UnknownInfo sentinel when the log carried none.
func (x *Index) InvocationInfo(key string) string {
	if v, ok := x.invocation[key]; ok {
		return v
	}
	return UnknownInfo
}

// Size returns the number of parsed entries.
func (x *Index) Size() int {
	return len(x.entries)
}

// nameFromStructure derives the human-readable target name: the first .name
// value, stripped of its string("...") wrapper, but only when the structure
// carries both .name and .type fields.
func nameFromStructure(s *Structure) (string, bool) {
	if !s.Has(".name") || !s.Has(".type") {
		return "", false
	}
	vals := s.Values(".name")
	if len(vals) == 0 {
		return "", false
	}
	name := vals[0].Raw
	if strings.HasPrefix(name, `string("`) && len(name) >= len(`string("`)+2 {
		name = name[len(`string("`) : len(name)-2]
	}
	return name, true
}
