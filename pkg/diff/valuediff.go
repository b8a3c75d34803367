package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/odvcencio/rkdiff/pkg/rulekey"
)

const (
	orderOnlyMsg          = "Only order of entries differs: [%s] vs [%s]."
	orderOnlyRemainingMsg = "Only order of remaining entries differs: [%s] vs [%s]."
	orderRepsRemainingMsg = "Order and repetition count of remaining entries differs: [%s] vs [%s]."
	orderAndCaseOnlyMsg   = "Only order and letter casing (Upper Case vs lower case) of entries differs:"

	defaultLeftFormat  = "-[%s]"
	defaultRightFormat = "+[%s]"
)

// KeyValueDiff accumulates paired value observations for a single field
// across one structure comparison and classifies how the two sides differ.
type KeyValueDiff struct {
	left, right []string
	leftFormat  string
	rightFormat string
	inline      bool
	paths       map[string]struct{}
}

// NewKeyValueDiff returns a differ rendering left-side values with
// leftFormat and right-side values with rightFormat (both fmt verbs taking
// one string); empty formats fall back to -[%s] and +[%s]. When inline is
// set, a one-for-one replacement additionally gets a character-level
// rendering.
func NewKeyValueDiff(leftFormat, rightFormat string, inline bool) *KeyValueDiff {
	if leftFormat == "" {
		leftFormat = defaultLeftFormat
	}
	if rightFormat == "" {
		rightFormat = defaultRightFormat
	}
	return &KeyValueDiff{
		leftFormat:  leftFormat,
		rightFormat: rightFormat,
		inline:      inline,
		paths:       make(map[string]struct{}),
	}
}

// Append records one positional observation of the field's value on each
// side.
func (d *KeyValueDiff) Append(left, right string) {
	d.left = append(d.left, left)
	d.right = append(d.right, right)
}

// InterestingPaths returns the filesystem paths surfaced by differing
// values, sorted.
func (d *KeyValueDiff) InterestingPaths() []string {
	paths := make([]string, 0, len(d.paths))
	for p := range d.paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Diff classifies the accumulated observations. Rules apply in order, first
// match wins: element-wise equal, equal as multisets (order only), equal
// after lower-casing (order and case only), and the general case of set
// differences plus a residual-ordering note.
func (d *KeyValueDiff) Diff() []string {
	if equalSlices(d.left, d.right) {
		return []string{"No changes"}
	}

	if equalSlices(sortedCopy(d.left), sortedCopy(d.right)) {
		return []string{fmt.Sprintf(orderOnlyMsg,
			strings.Join(d.left, ", "), strings.Join(d.right, ", "))}
	}

	// Last occurrence wins per lower-cased key, matching the index the
	// serializer-side tooling builds.
	leftLower := lowerIndex(d.left)
	rightLower := lowerIndex(d.right)
	if sameKeys(leftLower, rightLower) {
		result := []string{orderAndCaseOnlyMsg}
		for _, k := range sortedKeys(leftLower) {
			if leftLower[k] != rightLower[k] {
				result = append(result, fmt.Sprintf(d.leftFormat, leftLower[k]))
				result = append(result, fmt.Sprintf(d.rightFormat, rightLower[k]))
			}
		}
		return result
	}

	leftSet := toSet(d.left)
	rightSet := toSet(d.right)
	leftOnly := setDifference(leftSet, rightSet)
	rightOnly := setDifference(rightSet, leftSet)

	// Common elements keep their original order and repetition; pairing them
	// positionally and dropping already-equal pairs isolates residual
	// ordering noise.
	leftCommon := withoutMembers(d.left, leftOnly)
	rightCommon := withoutMembers(d.right, rightOnly)

	var leftNotInOrder, rightNotInOrder []string
	n := len(leftCommon)
	if len(rightCommon) > n {
		n = len(rightCommon)
	}
	for i := 0; i < n; i++ {
		var l, r string
		hasL, hasR := i < len(leftCommon), i < len(rightCommon)
		if hasL {
			l = leftCommon[i]
		}
		if hasR {
			r = rightCommon[i]
		}
		if hasL && hasR && l == r {
			continue
		}
		if hasL {
			leftNotInOrder = append(leftNotInOrder, l)
		}
		if hasR {
			rightNotInOrder = append(rightNotInOrder, r)
		}
	}

	for v := range leftOnly {
		if p, ok := rulekey.PathFromValue(v); ok {
			d.paths[p] = struct{}{}
		}
	}
	for v := range rightOnly {
		if p, ok := rulekey.PathFromValue(v); ok {
			d.paths[p] = struct{}{}
		}
	}

	var result []string
	for _, v := range sortedKeys(leftOnly) {
		result = append(result, fmt.Sprintf(d.leftFormat, v))
	}
	for _, v := range sortedKeys(rightOnly) {
		result = append(result, fmt.Sprintf(d.rightFormat, v))
	}
	if d.inline && len(leftOnly) == 1 && len(rightOnly) == 1 {
		l, r := sortedKeys(leftOnly)[0], sortedKeys(rightOnly)[0]
		result = append(result, "inline: "+inlineValueDiff(l, r))
	}
	if len(leftNotInOrder) > 0 {
		msg := orderRepsRemainingMsg
		if len(leftNotInOrder) == len(rightNotInOrder) {
			msg = orderOnlyRemainingMsg
		}
		result = append(result, fmt.Sprintf(msg,
			strings.Join(leftNotInOrder, ", "),
			strings.Join(rightNotInOrder, ", ")))
	}
	return result
}

func equalSlices(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func sortedCopy(a []string) []string {
	c := make([]string, len(a))
	copy(c, a)
	sort.Strings(c)
	return c
}

func lowerIndex(values []string) map[string]string {
	idx := make(map[string]string, len(values))
	for _, v := range values {
		idx[strings.ToLower(v)] = v
	}
	return idx
}

func sameKeys(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}

func toSet(values []string) map[string]struct{} {
	s := make(map[string]struct{}, len(values))
	for _, v := range values {
		s[v] = struct{}{}
	}
	return s
}

func setDifference(a, b map[string]struct{}) map[string]struct{} {
	d := make(map[string]struct{})
	for v := range a {
		if _, ok := b[v]; !ok {
			d[v] = struct{}{}
		}
	}
	return d
}

func withoutMembers(values []string, drop map[string]struct{}) []string {
	var kept []string
	for _, v := range values {
		if _, ok := drop[v]; !ok {
			kept = append(kept, v)
		}
	}
	return kept
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
