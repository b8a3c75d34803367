package rulekey

import (
	"strings"
	"testing"
)

// ruleLine builds a log line in the shape the build tool emits: arbitrary
// prefix, the RuleKey tag, then key=serialized-structure. Serialization
// emits each value before its key(NAME) marker.
func ruleLine(key string, tokens ...string) string {
	return "[2026-03-14 12:00:00][command:0][tid:10] RuleKey " + key + "=" + strings.Join(tokens, ":") + ":"
}

const invocationLine = "[2026-03-14 12:00:00][command:0][tid:10] InvocationInfo BuildId=[ac-97] Args=[build //:top] OutDir=[/tmp/out]"

func parseText(t *testing.T, lines ...string) ([]Entry, map[string]string) {
	t.Helper()
	entries, invocation, err := Parse(strings.NewReader(strings.Join(lines, "\n")))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	return entries, invocation
}

func TestParse_StructureLine(t *testing.T) {
	entries, _ := parseText(t,
		ruleLine("aabb",
			`string("//:top")`, `key(.name)`,
			`string("java_library")`, `key(.type)`,
			`path(src/A.java:abc123)`, `key(srcs)`,
		),
	)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Key != "aabb" {
		t.Errorf("expected key aabb, got %q", e.Key)
	}

	// The reverse walk associates each value with the key marker that
	// followed it.
	srcs := e.Structure.Values("srcs")
	if len(srcs) != 1 || srcs[0].Raw != "path(src/A.java:abc123)" {
		t.Fatalf("unexpected srcs values: %v", srcs)
	}
	if srcs[0].Kind != PathRef || srcs[0].Path != "src/A.java" {
		t.Errorf("srcs value not classified as path: %+v", srcs[0])
	}
	name := e.Structure.Values(".name")
	if len(name) != 1 || name[0].Raw != `string("//:top")` {
		t.Fatalf("unexpected .name values: %v", name)
	}
}

func TestParse_EmptyStructure(t *testing.T) {
	entries, _ := parseText(t, "prefix RuleKey 0011=")
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Key != "0011" {
		t.Errorf("expected key 0011, got %q", entries[0].Key)
	}
	if entries[0].Structure.Len() != 0 {
		t.Errorf("expected empty structure, got %d fields", entries[0].Structure.Len())
	}
}

func TestParse_RepeatedFieldKeepsOrder(t *testing.T) {
	entries, _ := parseText(t,
		ruleLine("ccdd",
			`string("a")`, `key(srcs)`,
			`string("b")`, `key(srcs)`,
		),
	)
	vals := entries[0].Structure.Values("srcs")
	if len(vals) != 2 {
		t.Fatalf("expected 2 srcs values, got %d", len(vals))
	}
	// Reverse-parse order: the later serialized value comes first.
	if vals[0].Raw != `string("b")` || vals[1].Raw != `string("a")` {
		t.Errorf("unexpected value order: %q, %q", vals[0].Raw, vals[1].Raw)
	}
}

func TestParse_RuleKeyRefClassification(t *testing.T) {
	entries, _ := parseText(t,
		ruleLine("eeff", `ruleKey(sha1=0123abcd)`, `key(deps)`),
	)
	deps := entries[0].Structure.Values("deps")
	if len(deps) != 1 {
		t.Fatalf("expected 1 dep, got %d", len(deps))
	}
	if deps[0].Kind != RuleKeyRef || deps[0].Ref != "0123abcd" {
		t.Errorf("dep not classified as rule key ref: %+v", deps[0])
	}
}

func TestParse_ValuesBeforeFirstMarkerLandUnderEmptyField(t *testing.T) {
	// A trailing value with no following key marker has no field to attach
	// to; it parses under the empty name and comparison skips it.
	entries, _ := parseText(t,
		ruleLine("0102", `string("x")`, `key(f)`, `string("dangling")`),
	)
	if got := entries[0].Structure.Values(""); len(got) != 1 {
		t.Fatalf("expected 1 dangling value, got %d", len(got))
	}
	if got := entries[0].Structure.Values("f"); len(got) != 1 || got[0].Raw != `string("x")` {
		t.Fatalf("unexpected f values: %v", got)
	}
}

func TestParse_IgnoresUnrelatedLines(t *testing.T) {
	entries, _ := parseText(t,
		"some unrelated log line",
		"another one with = signs and [brackets]",
		ruleLine("aa11", `string("v")`, `key(f)`),
		"RuleKeyWithoutSpacing ignored",
	)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
}

func TestParse_InvocationInfo(t *testing.T) {
	_, invocation := parseText(t, invocationLine, ruleLine("aa", `string("v")`, `key(f)`))
	if invocation["BuildId"] != "ac-97" {
		t.Errorf("expected BuildId ac-97, got %q", invocation["BuildId"])
	}
	if invocation["Args"] != "build //:top" {
		t.Errorf("expected Args 'build //:top', got %q", invocation["Args"])
	}
	if invocation["OutDir"] != "/tmp/out" {
		t.Errorf("expected OutDir /tmp/out, got %q", invocation["OutDir"])
	}
}

func TestParse_OnlyFirstInvocationLineCounts(t *testing.T) {
	_, invocation := parseText(t,
		"x InvocationInfo BuildId=[first]",
		"x InvocationInfo BuildId=[second]",
	)
	if invocation["BuildId"] != "first" {
		t.Errorf("expected first invocation line to win, got %q", invocation["BuildId"])
	}
}

func TestParse_NoInvocationLine(t *testing.T) {
	_, invocation := parseText(t, ruleLine("aa", `string("v")`, `key(f)`))
	if len(invocation) != 0 {
		t.Errorf("expected empty invocation info, got %v", invocation)
	}
}

func TestParse_Idempotent(t *testing.T) {
	text := strings.Join([]string{
		invocationLine,
		ruleLine("aabb", `string("//:top")`, `key(.name)`, `string("t")`, `key(.type)`),
		ruleLine("ccdd", `ruleKey(sha1=aabb)`, `key(deps)`),
	}, "\n")

	first, firstInfo, err := Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("first parse failed: %v", err)
	}
	second, secondInfo, err := Parse(strings.NewReader(text))
	if err != nil {
		t.Fatalf("second parse failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("entry counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].Key != second[i].Key || !first[i].Structure.Equal(second[i].Structure) {
			t.Errorf("entry %d differs between parses", i)
		}
	}
	if len(firstInfo) != len(secondInfo) {
		t.Errorf("invocation info differs between parses")
	}
}

func TestParse_WhitespaceOutsideGroupsIsIrrelevant(t *testing.T) {
	a, _ := parseText(t, "  prefix\t RuleKey aa="+`string("v")`+":key(f):")
	b, _ := parseText(t, "completely different prefix   RuleKey aa="+`string("v")`+":key(f):")
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("expected 1 entry each, got %d and %d", len(a), len(b))
	}
	if !a[0].Structure.Equal(b[0].Structure) {
		t.Error("structures differ across whitespace variants")
	}
}

func TestPathFromValue(t *testing.T) {
	if p, ok := PathFromValue(`"//:dep"@path(buck-out/gen/x.txt:f1a2)`); !ok || p != "buck-out/gen/x.txt" {
		t.Errorf("expected annotated value to surface its path, got %q ok=%v", p, ok)
	}
	if _, ok := PathFromValue(`string("no path here")`); ok {
		t.Error("expected no path in a plain string value")
	}
}
