package rulekey

// Key is a content-derived RuleKey identifier as it appears in a build log,
// typically a hex-encoded SHA-1 digest. Keys are only meaningful relative to
// the Index that produced them; the same logical target carries different
// keys across two logs whenever its inputs differ.
type Key string

// ValueKind classifies a serialized field value. Classification happens once
// at parse time; consumers switch on Kind instead of re-matching patterns.
type ValueKind int

const (
	// Literal is an opaque serialized value.
	Literal ValueKind = iota
	// RuleKeyRef points at another logged RuleKey's structure.
	RuleKeyRef
	// PathRef carries a filesystem path worth inspecting when it differs.
	PathRef
)

// Value is one serialized field value from a RuleKey structure.
type Value struct {
	Raw  string
	Kind ValueKind
	Ref  Key    // set when Kind == RuleKeyRef
	Path string // set when Kind == PathRef
}

// Structure is an ordered mapping from field name to the values logged under
// it. Field order follows reverse-parse order of the serialization and is
// preserved; comparison logic depends on it for the shape-match heuristic.
type Structure struct {
	names  []string
	values map[string][]Value
}

// NewStructure returns an empty structure.
func NewStructure() *Structure {
	return &Structure{values: make(map[string][]Value)}
}

// Append adds a value under name, registering the field on first use.
func (s *Structure) Append(name string, v Value) {
	if _, ok := s.values[name]; !ok {
		s.names = append(s.names, name)
	}
	s.values[name] = append(s.values[name], v)
}

// FieldNames returns the field names in insertion order.
func (s *Structure) FieldNames() []string {
	return s.names
}

// Values returns the values logged under name, nil if the field is absent.
func (s *Structure) Values(name string) []Value {
	return s.values[name]
}

// Has reports whether the field is present.
func (s *Structure) Has(name string) bool {
	_, ok := s.values[name]
	return ok
}

// Len returns the number of distinct field names.
func (s *Structure) Len() int {
	return len(s.names)
}

// Equal reports whether two structures have the same field names in the same
// order with the same raw values. Used to detect contradictory re-logging of
// a key.
func (s *Structure) Equal(o *Structure) bool {
	if len(s.names) != len(o.names) {
		return false
	}
	for i, name := range s.names {
		if o.names[i] != name {
			return false
		}
		sv, ov := s.values[name], o.values[name]
		if len(sv) != len(ov) {
			return false
		}
		for j := range sv {
			if sv[j].Raw != ov[j].Raw {
				return false
			}
		}
	}
	return true
}

// SameShape reports whether two structures expose identical field names in
// identical order, ignoring values. This is the equality proxy used for
// nameless sub-object matching.
func (s *Structure) SameShape(o *Structure) bool {
	if len(s.names) != len(o.names) {
		return false
	}
	for i, name := range s.names {
		if o.names[i] != name {
			return false
		}
	}
	return true
}

// Entry pairs a RuleKey with its parsed structure.
type Entry struct {
	Key       Key
	Structure *Structure
}
