// Package dispatch provides a small table that routes a value to a handler
// by a string key, with an optional fallback. It backs the file-type
// routing in the metadata extractors, where the key is a lower-cased file
// extension.
package dispatch

import (
	"path/filepath"
	"strings"

	"zonewatch/internal/errors"
)

// ErrUnknownKey is returned when no handler matches and no default is set.
var ErrUnknownKey = errors.New("dispatch: no handler for key")

// Table routes inputs of type In to handlers keyed by a string derived
// from the input. Keys are matched case-insensitively.
type Table[In, Out any] struct {
	keyFn    func(In) string
	handlers map[string]func(In) (Out, error)
	fallback func(In) (Out, error)
}

// New builds a table that derives each input's key with keyFn.
func New[In, Out any](keyFn func(In) string) *Table[In, Out] {
	return &Table[In, Out]{
		keyFn:    keyFn,
		handlers: make(map[string]func(In) (Out, error)),
	}
}

// Register binds a handler to one or more keys, replacing any previous
// binding for those keys.
func (t *Table[In, Out]) Register(handler func(In) (Out, error), keys ...string) *Table[In, Out] {
	for _, key := range keys {
		t.handlers[strings.ToLower(key)] = handler
	}

	return t
}

// Default sets the handler used when no key matches.
func (t *Table[In, Out]) Default(handler func(In) (Out, error)) *Table[In, Out] {
	t.fallback = handler

	return t
}

// Dispatch routes the input to the handler registered for its key. Inputs
// with no matching handler go to the default handler; without one,
// ErrUnknownKey is returned wrapped with the offending key.
func (t *Table[In, Out]) Dispatch(in In) (Out, error) {
	key := strings.ToLower(t.keyFn(in))
	if handler, ok := t.handlers[key]; ok {
		return handler(in)
	}
	if t.fallback != nil {
		return t.fallback(in)
	}

	var zero Out

	return zero, errors.Wrapf(ErrUnknownKey, "key %q", key)
}

// ExtKey derives a dispatch key from a file path: the extension without
// the leading dot, lower-cased.
func ExtKey(path string) string {
	ext := filepath.Ext(path)
	if len(ext) <= 1 {
		return ""
	}

	return strings.ToLower(ext[1:])
}
