package jsonx

import (
	"reflect"
	"testing"

	"github.com/bobmcallan/marketbrief/internal/faults"
)

func TestExtractObject_FencedEqualsUnfenced(t *testing.T) {
	inputs := []string{
		`{"a": 1, "b": "two"}`,
		`{"nested": {"x": [1, 2, 3]}, "s": "hi"}`,
		`{"empty": {}}`,
	}
	for _, x := range inputs {
		plain, ok1 := ExtractObject(x)
		fenced, ok2 := ExtractObject("```json\n" + x + "\n```")
		if !ok1 || !ok2 {
			t.Fatalf("extraction failed for %q: plain=%v fenced=%v", x, ok1, ok2)
		}
		if !reflect.DeepEqual(plain, fenced) {
			t.Errorf("fenced result differs for %q: %v vs %v", x, plain, fenced)
		}
	}
}

func TestExtractObject_ProseAroundFence(t *testing.T) {
	raw := "Here is the result: ```json\n{\"a\": 1,}\n``` Thanks!"
	obj, ok := ExtractObject(raw)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if v, _ := obj["a"].(float64); v != 1 {
		t.Errorf("expected a=1, got %v", obj["a"])
	}
}

// Fence markers inside string values are legitimate content: a markdown
// report routinely embeds code blocks. Extraction must leave them intact.
func TestExtractObject_FenceInsideStringPreserved(t *testing.T) {
	raw := "{\"report_markdown\": \"Intro\\n```go\\ncode here\\n```\\nOutro\"}"
	want := "Intro\n```go\ncode here\n```\nOutro"

	obj, ok := ExtractObject(raw)
	if !ok {
		t.Fatal("expected extraction to succeed")
	}
	if obj["report_markdown"] != want {
		t.Errorf("embedded fence was mangled: %q", obj["report_markdown"])
	}

	// Same payload wrapped in a surrounding fence
	obj, ok = ExtractObject("```json\n" + raw + "\n```")
	if !ok {
		t.Fatal("expected fenced extraction to succeed")
	}
	if obj["report_markdown"] != want {
		t.Errorf("embedded fence was mangled inside outer fence: %q", obj["report_markdown"])
	}
}

func TestExtractObject_NoBracesReturnsNothing(t *testing.T) {
	if _, ok := ExtractObject("market closed flat today, nothing to report"); ok {
		t.Error("expected no object in plain prose")
	}
	if _, ok := ExtractObject(""); ok {
		t.Error("expected no object in empty text")
	}
	if _, ok := ExtractObject("} inverted {"); ok {
		t.Error("expected no object when braces are inverted")
	}
}

func TestParseOrFail_TrailingCommas(t *testing.T) {
	cases := []struct {
		raw string
		key string
	}{
		{`{"a": 1,}`, "a"},
		{`{"list": [1, 2, 3,]}`, "list"},
		{`{"a": {"b": "c",},}`, "a"},
	}
	for _, tc := range cases {
		obj, err := ParseOrFail(tc.raw)
		if err != nil {
			t.Fatalf("ParseOrFail(%q) failed: %v", tc.raw, err)
		}
		if _, present := obj[tc.key]; !present {
			t.Errorf("ParseOrFail(%q): missing key %s", tc.raw, tc.key)
		}
	}
}

func TestParseOrFail_CommaInsideStringUntouched(t *testing.T) {
	raw := `{"text": "profits rose, then fell,"}`
	obj, err := ParseOrFail(raw)
	if err != nil {
		t.Fatalf("ParseOrFail failed: %v", err)
	}
	if obj["text"] != "profits rose, then fell," {
		t.Errorf("string content was mangled: %v", obj["text"])
	}
}

func TestExtractObject_BareNewlineInString(t *testing.T) {
	raw := "{\"summary\": \"first line\nsecond line\"}"
	obj, ok := ExtractObject(raw)
	if !ok {
		t.Fatal("expected newline repair to succeed")
	}
	if obj["summary"] != "first line\nsecond line" {
		t.Errorf("unexpected repaired value: %q", obj["summary"])
	}
}

// A backslash immediately before a raw newline is deliberately not repaired:
// rewriting it risks corrupting legitimate escape sequences. The input stays
// malformed and the strict entrypoint reports it.
func TestParseOrFail_BackslashBeforeNewlineIsTerminal(t *testing.T) {
	raw := "{\"path\": \"C:\\\nusers\"}"
	_, err := ParseOrFail(raw)
	if err == nil {
		t.Fatal("expected malformed response error")
	}
	if faults.KindOf(err) != faults.MalformedResponse {
		t.Errorf("expected MalformedResponse kind, got %v", faults.KindOf(err))
	}
}

func TestParseOrFail_SnippetIsBounded(t *testing.T) {
	long := "no json here, just a very long rant: "
	for len(long) < 5000 {
		long += "more prose "
	}
	_, err := ParseOrFail(long)
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Error()) > 600 {
		t.Errorf("error message not bounded: %d bytes", len(err.Error()))
	}
}
