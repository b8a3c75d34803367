package rulekey

import (
	"bufio"
	"io"
	"regexp"
	"strings"
)

// The two recognized line shapes. Everything else in a log is ignored.
var (
	ruleLineRE       = regexp.MustCompile(`\s+RuleKey\s+(.*)$`)
	invocationLineRE = regexp.MustCompile(`\s+InvocationInfo\s+(.*)$`)
	invocationPairRE = regexp.MustCompile(`(\w+)=\[([^]]*)\]`)
	ruleKeyRefRE     = regexp.MustCompile(`^ruleKey\(sha1=(.+)\)$`)
	pathValueRE      = regexp.MustCompile(`path\(([^:]+):\w+\)`)
)

// entryDelim separates serialized structure entries. Build target names
// contain ':', so splitting happens on the closing-paren-colon sequence,
// which the serializer never emits inside a value.
const entryDelim = "):"

// PathFromValue extracts the filesystem path embedded in a path(P:TYPE)
// wrapper anywhere inside raw. Used on annotated report values, which may
// carry a `"name"@` prefix in front of the wrapper.
func PathFromValue(raw string) (string, bool) {
	m := pathValueRE.FindStringSubmatch(raw)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// classify decides once, at parse time, whether a raw serialized value is an
// opaque literal, a reference to another RuleKey, or a path-bearing value.
func classify(raw string) Value {
	if m := ruleKeyRefRE.FindStringSubmatch(raw); m != nil {
		return Value{Raw: raw, Kind: RuleKeyRef, Ref: Key(m[1])}
	}
	if m := pathValueRE.FindStringSubmatch(raw); m != nil {
		return Value{Raw: raw, Kind: PathRef, Path: m[1]}
	}
	return Value{Raw: raw, Kind: Literal}
}

// parseRuleLine parses the payload of one RuleKey log line into an entry.
// The payload is "KEY=" for an empty structure, otherwise "KEY=SERIALIZED"
// where SERIALIZED is a "):"-delimited list of key markers and values. The
// serializer emits each value immediately before its key(NAME) marker, so
// the entries are walked in reverse to associate values with the correct
// field.
func parseRuleLine(payload string) Entry {
	if strings.HasSuffix(payload, "=") {
		return Entry{Key: Key(strings.TrimSuffix(payload, "=")), Structure: NewStructure()}
	}
	key, serialized, _ := strings.Cut(payload, "=")

	var pieces []string
	for _, p := range strings.Split(serialized, entryDelim) {
		if p == "" {
			continue
		}
		pieces = append(pieces, p+")")
	}

	s := NewStructure()
	field := ""
	// Reverse walk: a key(NAME) marker names the field for every value piece
	// that precedes it in serialization order. Values with no following
	// marker land under the empty field name and are skipped by comparison.
	for i := len(pieces) - 1; i >= 0; i-- {
		p := pieces[i]
		if strings.HasPrefix(p, "key(") {
			field = p[len("key(") : len(p)-1]
			continue
		}
		s.Append(field, classify(p))
	}
	return Entry{Key: Key(key), Structure: s}
}

// Parse reads a log line-by-line and returns every RuleKey structure entry
// plus the invocation-info mapping from the first InvocationInfo line. Lines
// matching neither shape are ignored. Absence of an invocation line is not
// an error; the result is simply an empty map.
func Parse(r io.Reader) ([]Entry, map[string]string, error) {
	var entries []Entry
	invocation := make(map[string]string)
	sawInvocation := false

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !sawInvocation {
			if m := invocationLineRE.FindStringSubmatch(line); m != nil {
				sawInvocation = true
				for _, pair := range invocationPairRE.FindAllStringSubmatch(m[1], -1) {
					invocation[pair[1]] = pair[2]
				}
			}
		}
		m := ruleLineRE.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		entries = append(entries, parseRuleLine(m[1]))
	}
	if err := sc.Err(); err != nil {
		return nil, nil, err
	}
	return entries, invocation, nil
}
