// Package diff explains why two logs disagree about a target's RuleKey by
// comparing structures field-by-field and chasing referenced sub-keys until
// the divergence lands on a concrete value.
package diff

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/odvcencio/rkdiff/pkg/rulekey"
)

// ErrNotFound indicates a requested target name is absent from a log.
var ErrNotFound = errors.New("target not found")

const missingValue = "<missing>"

// Options controls report shape. The zero value gives the default report.
type Options struct {
	Verbose     bool
	CheckPaths  bool
	Inline      bool
	LeftFormat  string
	RightFormat string
	// DepSuffixes are the case-insensitive field-name suffixes that trigger
	// dependency alignment; defaults to ["deps"].
	DepSuffixes []string
}

func (o Options) depSuffixes() []string {
	if len(o.DepSuffixes) == 0 {
		return []string{"deps"}
	}
	suffixes := make([]string, len(o.DepSuffixes))
	for i, s := range o.DepSuffixes {
		suffixes[i] = strings.ToLower(s)
	}
	return suffixes
}

// refPair identifies one (left key, right key) comparison. Keys on the two
// sides come from different indexes and are never compared to each other
// directly, only paired.
type refPair struct {
	left, right rulekey.Key
}

// workItem is one pending sub-comparison with the label it will report
// under.
type workItem struct {
	label string
	pair  refPair
}

// compareStructures diffs two structures field-by-field. It returns the
// report lines for this pair plus the referenced-key pairs whose comparison
// was deferred to recursion.
func compareStructures(label string, leftS *rulekey.Structure, leftInfo *rulekey.Index, rightS *rulekey.Structure, rightInfo *rulekey.Index, opts Options) ([]string, []workItem) {
	fields := unionFieldNames(leftS, rightS)

	changed := make(map[string]*KeyValueDiff)
	nextSet := make(map[workItem]struct{})
	var report []string
	var interestingPaths []string

	for _, field := range fields {
		if field == "" {
			// Values that preceded any key marker in the serialization.
			continue
		}
		leftVals := leftS.Values(field)
		rightVals := copyValues(rightS.Values(field))

		if isDepField(field, opts.depSuffixes()) {
			if alignDepsByName(leftVals, rightVals, leftInfo, rightInfo) {
				report = append(report, "  ("+field+"): order of deps was name-aligned.")
			}
		}

		n := len(leftVals)
		if len(rightVals) > n {
			n = len(rightVals)
		}
		for i := 0; i < n; i++ {
			leftRaw, leftRef := missingValue, rulekey.Key("")
			rightRaw, rightRef := missingValue, rulekey.Key("")
			if i < len(leftVals) {
				leftRaw = leftVals[i].Raw
				if leftVals[i].Kind == rulekey.RuleKeyRef {
					leftRef = leftVals[i].Ref
				}
			}
			if i < len(rightVals) {
				rightRaw = rightVals[i].Raw
				if rightVals[i].Kind == rulekey.RuleKeyRef {
					rightRef = rightVals[i].Ref
				}
			}
			if leftRaw == rightRaw {
				continue
			}

			leftName, _ := leftInfo.NameForKey(leftRef)
			rightName, _ := rightInfo.NameForKey(rightRef)

			if leftRef != "" && rightRef != "" {
				if leftName != "" && leftName == rightName {
					nextSet[workItem{label: leftName, pair: refPair{leftRef, rightRef}}] = struct{}{}
					continue
				}
				if leftName == "" && rightName == "" && sameShapeRefs(leftRef, leftInfo, rightRef, rightInfo) {
					// No names to match on; identical field-name lists are
					// taken as "same logical thing". Names must be absent on
					// both sides or this would pair rules for different
					// targets.
					nextSet[workItem{label: label + "->" + field, pair: refPair{leftRef, rightRef}}] = struct{}{}
					continue
				}
			}
			if leftName != "" {
				leftRaw = fmt.Sprintf("\"%s\"@%s", leftName, leftRaw)
			}
			if rightName != "" {
				rightRaw = fmt.Sprintf("\"%s\"@%s", rightName, rightRaw)
			}
			kv, ok := changed[field]
			if !ok {
				kv = NewKeyValueDiff(opts.LeftFormat, opts.RightFormat, opts.Inline)
				changed[field] = kv
			}
			kv.Append(leftRaw, rightRaw)
		}
	}

	for _, field := range sortedKeys(changed) {
		report = append(report, "  ("+field+"):")
		for _, line := range changed[field].Diff() {
			report = append(report, "    "+line)
		}
		interestingPaths = append(interestingPaths, changed[field].InterestingPaths()...)
	}

	next := make([]workItem, 0, len(nextSet))
	for item := range nextSet {
		next = append(next, item)
	}
	sort.Slice(next, func(i, j int) bool {
		if next[i].label != next[j].label {
			return next[i].label < next[j].label
		}
		if next[i].pair.left != next[j].pair.left {
			return next[i].pair.left < next[j].pair.left
		}
		return next[i].pair.right < next[j].pair.right
	})

	if opts.Verbose && len(next) > 0 {
		labels := make([]string, 0, len(next))
		for _, item := range next {
			labels = append(labels, item.label)
		}
		report = append(report, "  changed because of: "+strings.Join(labels, ","))
	}

	if opts.CheckPaths && len(interestingPaths) > 0 {
		report = append(report, "Information on paths the script has seen:")
		report = append(report, ReportPaths(interestingPaths)...)
	}

	if len(report) > 0 {
		report = append([]string{"Change details for [" + label + "]"}, report...)
	}
	return report, next
}

// alignDepsByName reorders rightVals in place so that references resolving
// to the same target name as a left reference land at the same position.
// This is a stable position-preserving swap pass, not a sort; it keeps pure
// dependency reordering from being reported as a content change. Reports
// whether any swap happened.
func alignDepsByName(leftVals, rightVals []rulekey.Value, leftInfo, rightInfo *rulekey.Index) bool {
	aligned := false
	for i, lv := range leftVals {
		if lv.Kind != rulekey.RuleKeyRef || i >= len(rightVals) {
			continue
		}
		name, ok := leftInfo.NameForKey(lv.Ref)
		if !ok {
			continue
		}
		match := -1
		for j, rv := range rightVals {
			if rv.Kind != rulekey.RuleKeyRef {
				continue
			}
			if rname, ok := rightInfo.NameForKey(rv.Ref); ok && rname == name {
				match = j
				break
			}
		}
		if match >= 0 && match != i {
			rightVals[i], rightVals[match] = rightVals[match], rightVals[i]
			aligned = true
		}
	}
	return aligned
}

// sameShapeRefs reports whether both referenced structures exist and expose
// identical ordered field-name lists.
func sameShapeRefs(leftRef rulekey.Key, leftInfo *rulekey.Index, rightRef rulekey.Key, rightInfo *rulekey.Index) bool {
	leftS, ok := leftInfo.ByKey(leftRef)
	if !ok {
		return false
	}
	rightS, ok := rightInfo.ByKey(rightRef)
	if !ok {
		return false
	}
	return leftS.SameShape(rightS)
}

// diffFrom runs a breadth-first traversal over changed reference pairs. A
// pair is marked seen before it is enqueued, so each (left, right) pair is
// compared at most once and the walk terminates over cyclic or diamond
// reference graphs. Returns the concatenated report and every pair visited.
func diffFrom(start []workItem, leftInfo, rightInfo *rulekey.Index, opts Options, seen map[refPair]bool) ([]string, []refPair) {
	queue := make([]workItem, 0, len(start))
	for _, item := range start {
		if seen[item.pair] {
			continue
		}
		seen[item.pair] = true
		queue = append(queue, item)
	}

	var report []string
	var visited []refPair
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		visited = append(visited, item.pair)

		leftS := structureOrEmpty(leftInfo, item.pair.left)
		rightS := structureOrEmpty(rightInfo, item.pair.right)
		lines, next := compareStructures(item.label, leftS, leftInfo, rightS, rightInfo, opts)
		report = append(report, lines...)

		for _, n := range next {
			if seen[n.pair] {
				continue
			}
			seen[n.pair] = true
			queue = append(queue, n)
		}
	}
	return report, visited
}

func structureOrEmpty(info *rulekey.Index, k rulekey.Key) *rulekey.Structure {
	if s, ok := info.ByKey(k); ok {
		return s
	}
	return rulekey.NewStructure()
}

// ByName diffs the closure of a single named target across the two logs.
// When no field-level cause was found yet the two keys differ, the report
// ends with an explicit cannot-explain line; the traversal heuristics are
// not guaranteed to be complete.
func ByName(name string, leftInfo, rightInfo *rulekey.Index, opts Options) ([]string, error) {
	leftKey, ok := leftInfo.KeyForName(name)
	if !ok {
		return nil, fmt.Errorf("left log does not contain %s: %w", name, ErrNotFound)
	}
	rightKey, ok := rightInfo.KeyForName(name)
	if !ok {
		return nil, fmt.Errorf("right log does not contain %s: %w", name, ErrNotFound)
	}
	start := []workItem{{label: name, pair: refPair{leftKey, rightKey}}}
	report, _ := diffFrom(start, leftInfo, rightInfo, opts, make(map[refPair]bool))
	if len(report) == 0 && leftKey != rightKey {
		report = append(report, fmt.Sprintf("I don't know why RuleKeys for %s do not match.", name))
	}
	return report, nil
}

// All diffs every named target known to the left log, most recently
// discovered first. One seen-set is shared across all starting names, so a
// pair explained under one starting name is never re-explained under
// another; every left-side name visited during a traversal is likewise
// dropped from the remaining work. Progress lines go to progress.
func All(leftInfo, rightInfo *rulekey.Index, opts Options, progress io.Writer) []string {
	names := leftInfo.AllNames()
	remaining := make(map[string]bool, len(names))
	for _, n := range names {
		remaining[n] = true
	}

	allSeen := make(map[refPair]bool)
	var results []string
	for i := len(names) - 1; i >= 0; i-- {
		name := names[i]
		if !remaining[name] {
			continue
		}
		delete(remaining, name)

		leftKey, ok := leftInfo.KeyForName(name)
		if !ok {
			results = append(results, fmt.Sprintf("Skipping %s because it is missing from the left log.", name))
			continue
		}
		rightKey, ok := rightInfo.KeyForName(name)
		if !ok {
			results = append(results, fmt.Sprintf("Skipping %s because it is missing from the right log.", name))
			continue
		}
		if leftKey == rightKey {
			continue
		}
		fmt.Fprintf(progress, "Analyzing %s for changes...\n", name)

		start := []workItem{{label: name, pair: refPair{leftKey, rightKey}}}
		report, visited := diffFrom(start, leftInfo, rightInfo, opts, allSeen)
		if len(report) == 0 && leftKey != rightKey {
			report = append(report, fmt.Sprintf("I don't know why RuleKeys for %s do not match.", name))
		}
		results = append(results, report...)

		for _, pair := range visited {
			if visitedName, ok := leftInfo.NameForKey(pair.left); ok {
				delete(remaining, visitedName)
			}
		}
	}
	return results
}

func unionFieldNames(left, right *rulekey.Structure) []string {
	seen := make(map[string]struct{})
	var fields []string
	for _, name := range left.FieldNames() {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			fields = append(fields, name)
		}
	}
	for _, name := range right.FieldNames() {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}

func isDepField(field string, suffixes []string) bool {
	lower := strings.ToLower(field)
	for _, s := range suffixes {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

func copyValues(vals []rulekey.Value) []rulekey.Value {
	if vals == nil {
		return nil
	}
	c := make([]rulekey.Value, len(vals))
	copy(c, vals)
	return c
}
