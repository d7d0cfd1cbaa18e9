package upstream

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeJSON(t *testing.T, s string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(s), &v))
	return v
}

func codesOf(n Normalized) []any {
	out := make([]any, 0, len(n.List))
	for _, r := range n.List {
		out = append(out, r["code"])
	}
	return out
}

func TestNormalize_SingleContainer(t *testing.T) {
	got := Normalize(decodeJSON(t, `{
		"meta": {"generated": "2025-09-20T07:00:00Z"},
		"codes": [{"code": "A"}, 5, null, "x", {"code": "B"}, {"code": "C"}]
	}`))

	assert.Equal(t, []any{"A", "B", "C"}, codesOf(got))
	assert.Equal(t, "2025-09-20T07:00:00Z", got.GeneratedAt)
}

func TestNormalize_ListOfContainers(t *testing.T) {
	got := Normalize(decodeJSON(t, `[
		{"meta": {"generated": ""}, "codes": [{"code": "A"}, {"code": "B"}]},
		{"meta": {"generated": {"human": "Sat Sep 20 2025"}}, "codes": [{"code": "C"}]},
		{"meta": {"generated": "ignored"}, "codes": [{"code": "D"}]}
	]`))

	assert.Equal(t, []any{"A", "B", "C", "D"}, codesOf(got))
	assert.Equal(t, "Sat Sep 20 2025", got.GeneratedAt)
}

func TestNormalize_BareRecordsInList(t *testing.T) {
	got := Normalize(decodeJSON(t, `[{"code": "A", "game": "Borderlands 4"}, "skip", 3, {"code": "B"}]`))

	assert.Equal(t, []any{"A", "B"}, codesOf(got))
	assert.Empty(t, got.GeneratedAt)
}

func TestNormalize_CodesNotAnArray(t *testing.T) {
	got := Normalize(decodeJSON(t, `{"codes": "nope", "code": "A"}`))

	require.Len(t, got.List, 1)
	assert.Equal(t, "A", got.List[0]["code"])
}

func TestNormalize_UnexpectedShapes(t *testing.T) {
	for _, payload := range []string{`{"items": []}`, `"string"`, `42`, `null`, `true`} {
		t.Run(payload, func(t *testing.T) {
			got := Normalize(decodeJSON(t, payload))
			assert.NotNil(t, got.List)
			assert.Empty(t, got.List)
			assert.Empty(t, got.GeneratedAt)
		})
	}
}

func TestNormalize_PreservesCount(t *testing.T) {
	var b strings.Builder
	b.WriteString(`[`)
	for i := 0; i < 3; i++ {
		if i > 0 {
			b.WriteString(",")
		}
		b.WriteString(`{"codes": [{"n": 1}, {"n": 2}, {"n": 3}, {"n": 4}]}`)
	}
	b.WriteString(`]`)

	got := Normalize(decodeJSON(t, b.String()))
	assert.Len(t, got.List, 12)
}

func TestDecode_InvalidJSON(t *testing.T) {
	_, err := Decode(strings.NewReader("<html>"))
	assert.Error(t, err)
}
