package analysis

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadata_ValueScanRoundTrip(t *testing.T) {
	md := NewMetadata(
		Field{KeyTitle, "Title"},
		Field{KeyTopics, []string{"health", "ai", "policy"}},
		Field{KeySentiment, "neutral"},
		Field{"language", "en"},
		Field{"flag", true},
		Field{KeyKeywords, []string{"health", "care"}},
		Field{KeyConfidence, 0.73},
	)

	v, err := md.Value()
	require.NoError(t, err)

	var got Metadata
	require.NoError(t, got.Scan(v))

	assert.Equal(t, md.Keys(), got.Keys())
	assert.Equal(t, md.Topics(), got.Topics())
	assert.Equal(t, md.Keywords(), got.Keywords())
	c, ok := got.Confidence()
	assert.True(t, ok)
	assert.Equal(t, 0.73, c)
	flag, _ := got.Get("flag")
	assert.Equal(t, true, flag)

	again, err := got.Value()
	require.NoError(t, err)
	assert.Equal(t, v, again)
}

func TestMetadata_StoredTextFormat(t *testing.T) {
	md := NewMetadata(
		Field{KeyTitle, "Café \"Ω\" 😀"},
		Field{KeyTopics, []any{"a", "b"}},
		Field{KeySentiment, "positive"},
		Field{"count", json.Number("3")},
		Field{"empty", []string{}},
		Field{"none", nil},
		Field{KeyKeywords, []string{"x"}},
		Field{KeyConfidence, 0.7},
		Field{"whole", 1.0},
	)

	got, err := md.StoredText()
	require.NoError(t, err)
	assert.Equal(t,
		`{"title": "Caf\u00e9 \"\u03a9\" \ud83d\ude00", "topics": ["a", "b"], "sentiment": "positive", `+
			`"count": 3, "empty": [], "none": null, "keywords": ["x"], "confidence": 0.7, "whole": 1.0}`,
		got)
	assert.Contains(t, got, `"sentiment": "positive"`)
}

func TestMetadata_JSONKeepsKeyOrder(t *testing.T) {
	var md Metadata
	require.NoError(t, json.Unmarshal([]byte(`{"zeta":1,"alpha":[1,"two"],"mid":{"b":1,"a":2}}`), &md))
	assert.Equal(t, []string{"zeta", "alpha", "mid"}, md.Keys())

	out, err := json.Marshal(md)
	require.NoError(t, err)
	assert.Equal(t, `{"zeta":1,"alpha":[1,"two"],"mid":{"b":1,"a":2}}`, string(out))

	var empty Metadata
	out, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(out))
}

func TestMetadata_SetDelete(t *testing.T) {
	var md Metadata
	md.Set("a", 1)
	md.Set("b", 2)
	md.Set("c", 3)
	md.Set("a", 10)
	md.Delete("b")
	md.Delete("missing")

	assert.Equal(t, []string{"a", "c"}, md.Keys())
	assert.Equal(t, 2, md.Len())
	a, _ := md.Get("a")
	assert.Equal(t, 10, a)

	clone := md.Clone()
	clone.Set("d", 4)
	assert.Equal(t, 2, md.Len())
	assert.Equal(t, []string{"a", "c", "d"}, clone.Keys())
}

func TestMetadata_ScanBytesAndNil(t *testing.T) {
	var md Metadata
	require.NoError(t, md.Scan([]byte(`{"title":"x"}`)))
	assert.Equal(t, "x", md.Title())

	require.NoError(t, md.Scan(nil))
	assert.Equal(t, 0, md.Len())

	assert.Error(t, md.Scan(42))
	assert.Error(t, md.Scan("not json"))
	assert.Error(t, md.Scan(`["list"]`))
	assert.Error(t, md.Scan(`{"a":1} trailing`))
}

func TestMetadata_ZeroValue(t *testing.T) {
	var md Metadata
	v, err := md.Value()
	require.NoError(t, err)
	assert.Equal(t, "{}", v)
}

func TestMetadata_AccessorsTolerateWrongTypes(t *testing.T) {
	md := NewMetadata(Field{KeyTitle, 3}, Field{KeyTopics, "not a list"}, Field{KeyConfidence, "high"})

	assert.Equal(t, "", md.Title())
	assert.Nil(t, md.Topics())
	_, ok := md.Confidence()
	assert.False(t, ok)
}

func TestMetadata_ConfidenceFromDecodedNumber(t *testing.T) {
	md, err := ParseMetadata([]byte(`{"confidence": 0.65}`))
	require.NoError(t, err)

	c, ok := md.Confidence()
	assert.True(t, ok)
	assert.Equal(t, 0.65, c)
}

func TestKindOf(t *testing.T) {
	err := UpstreamError("LLM analysis failed", errors.New("boom"))

	assert.Equal(t, KindUpstream, KindOf(err))
	assert.Equal(t, KindUpstream, KindOf(errors.Join(errors.New("ctx"), err)))
	assert.Equal(t, Kind(0), KindOf(errors.New("plain")))
	assert.Equal(t, "LLM analysis failed: boom", err.Error())
	assert.Equal(t, "validation", KindValidation.String())
}
