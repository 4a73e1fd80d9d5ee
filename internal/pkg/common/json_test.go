package common

import (
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestParseJSON(t *testing.T) {
	var s sample
	require.NoError(t, ParseJSON(` {"name":"sopa","count":2} `, &s))
	assert.Equal(t, sample{Name: "sopa", Count: 2}, s)
}

func TestParseJSONRejectsTrailingData(t *testing.T) {
	var s sample
	err := ParseJSON(`{"name":"sopa"} obrigado!`, &s)
	assert.ErrorIs(t, err, ErrExtraJSONData)

	err = ParseJSON(`{"name":"a"}{"name":"b"}`, &s)
	assert.ErrorIs(t, err, ErrExtraJSONData)
}

func TestParseJSONTypeErrors(t *testing.T) {
	var s sample
	err := ParseJSON(`{"name":"sopa","count":"dois"}`, &s)
	assert.True(t, IsJSONTypeError(err))

	err = ParseJSON(`{"name":`, &s)
	assert.Error(t, err)
	assert.False(t, IsJSONTypeError(err))
}

func TestDecodeJSONStrict(t *testing.T) {
	var s sample
	assert.NoError(t, ParseJSON(`{"name":"x","extra":1}`, &s))
	assert.Error(t, DecodeJSONStrict(strings.NewReader(`{"name":"x","extra":1}`), &s))
	assert.ErrorIs(t, DecodeJSONStrict(strings.NewReader(`{"name":"x"} {}`), &s), ErrExtraJSONData)
	assert.ErrorIs(t, DecodeJSONStrict(strings.NewReader(``), &s), io.EOF)

	require.NoError(t, DecodeJSONStrict(strings.NewReader(`{"name":"caldo","count":3}`), &s))
	assert.Equal(t, sample{Name: "caldo", Count: 3}, s)
}

func TestDecodeJSONUsesNumber(t *testing.T) {
	var v map[string]interface{}
	require.NoError(t, ParseJSONBytes([]byte(`{"n":12345678901234567890}`), &v))
	assert.Equal(t, json.Number("12345678901234567890"), v["n"])
}

func TestToJSON(t *testing.T) {
	out, err := ToJSON(sample{Name: "bolo", Count: 1})
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"bolo","count":1}`, out)
}
