package menu

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type renameArg struct {
	Name string `json:"name"`
}

func TestActionRegistry_DuplicateNamePanics(t *testing.T) {
	r := NewActionRegistry(nil)
	RegisterNoArgAction(r, "Clear", func() {})
	assert.Panics(t, func() { RegisterAction(r, "Clear", func(string) {}) })
}

func TestActionRegistry_InvokeRoundTrip(t *testing.T) {
	r := NewActionRegistry(nil)
	var got renameArg
	RegisterAction(r, "Rename", func(a renameArg) { got = a })

	payload, err := r.Encode("Rename", renameArg{Name: "drive"})
	require.NoError(t, err)
	require.NoError(t, r.Invoke("Rename", payload))
	assert.Equal(t, "drive", got.Name)
}

func TestActionRegistry_InvokeErrors(t *testing.T) {
	r := NewActionRegistry(nil)
	calls := 0
	RegisterNoArgAction(r, "Clear", func() { calls++ })
	RegisterAction(r, "Rename", func(renameArg) { calls++ })

	assert.ErrorIs(t, r.Invoke("Missing", nil), ErrUnknownAction)
	assert.ErrorIs(t, r.Invoke("Clear", json.RawMessage(`"x"`)), ErrArgumentShape)
	assert.ErrorIs(t, r.Invoke("Rename", nil), ErrArgumentShape)
	assert.ErrorIs(t, r.Invoke("Rename", json.RawMessage(`{"name":`)), ErrMalformedPayload)
	assert.Equal(t, 0, calls)

	require.NoError(t, r.Invoke("Clear", nil))
	assert.Equal(t, 1, calls)
}

func TestActionRegistry_EncodeShapeChecks(t *testing.T) {
	r := NewActionRegistry(nil)
	RegisterNoArgAction(r, "Clear", func() {})
	RegisterAction(r, "Rename", func(renameArg) {})
	RegisterAction(r, "RenamePtr", func(*renameArg) {})

	_, err := r.Encode("Clear", "unexpected")
	assert.ErrorIs(t, err, ErrArgumentShape)

	_, err = r.Encode("Rename", nil)
	assert.ErrorIs(t, err, ErrArgumentShape)

	_, err = r.Encode("Rename", &renameArg{Name: "x"})
	assert.ErrorIs(t, err, ErrArgumentShape, "pointer is not the declared value type")

	_, err = r.Encode("RenamePtr", (*renameArg)(nil))
	assert.ErrorIs(t, err, ErrArgumentShape, "typed nil counts as missing")

	_, err = r.Encode("Unknown", nil)
	assert.ErrorIs(t, err, ErrUnknownAction)

	payload, err := r.Encode("Clear", nil)
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestActionRegistry_PayloadSizeBound(t *testing.T) {
	r := NewActionRegistry(nil)
	RegisterAction(r, "Note", func(string) {})

	// 序列化后多出两个引号
	ok := strings.Repeat("a", MaxPayloadLength-2)
	payload, err := r.Encode("Note", ok)
	require.NoError(t, err)
	assert.Len(t, payload, MaxPayloadLength)

	tooLong := strings.Repeat("a", MaxPayloadLength-1)
	_, err = r.Encode("Note", tooLong)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	assert.ErrorIs(t, r.Invoke("Note", json.RawMessage(`"`+tooLong+`"`)), ErrPayloadTooLarge)
}

func TestActionRegistry_SizeCountsUTF16Units(t *testing.T) {
	r := NewActionRegistry(nil)
	RegisterAction(r, "Note", func(string) {})

	// 每个表情占两个码元
	arg := strings.Repeat("😀", (MaxPayloadLength-1)/2)
	_, err := r.Encode("Note", arg)
	assert.ErrorIs(t, err, ErrPayloadTooLarge)
}

func TestActionRegistry_SchemaValidation(t *testing.T) {
	r := NewActionRegistry(nil)
	var got string
	RegisterAction(r, "Hide", func(s string) { got = s }, WithSchema(`{"type":"string","maxLength":5}`))

	assert.ErrorIs(t, r.Invoke("Hide", json.RawMessage(`"toolong"`)), ErrMalformedPayload)
	assert.ErrorIs(t, r.Invoke("Hide", json.RawMessage(`12`)), ErrMalformedPayload)
	require.NoError(t, r.Invoke("Hide", json.RawMessage(`"ok"`)))
	assert.Equal(t, "ok", got)
}

func TestActionRegistry_InvalidSchemaPanics(t *testing.T) {
	r := NewActionRegistry(nil)
	assert.Panics(t, func() {
		RegisterAction(r, "Bad", func(string) {}, WithSchema(`{"type":`))
	})
}
