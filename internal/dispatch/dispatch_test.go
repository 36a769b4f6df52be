package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonewatch/internal/errors"
)

func TestDispatchRoutesByKey(t *testing.T) {
	t.Parallel()

	table := New[string, string](ExtKey).
		Register(func(string) (string, error) { return "pdf", nil }, "pdf").
		Register(func(string) (string, error) { return "image", nil }, "png", "jpg", "jpeg")

	got, err := table.Dispatch("plans/site.PDF")
	require.NoError(t, err)
	assert.Equal(t, "pdf", got)

	got, err = table.Dispatch("photos/elevation.jpeg")
	require.NoError(t, err)
	assert.Equal(t, "image", got)
}

func TestDispatchDefault(t *testing.T) {
	t.Parallel()

	table := New[string, string](ExtKey).
		Register(func(string) (string, error) { return "pdf", nil }, "pdf").
		Default(func(string) (string, error) { return "fallback", nil })

	got, err := table.Dispatch("minutes.docx")
	require.NoError(t, err)
	assert.Equal(t, "fallback", got)
}

func TestDispatchUnknownKey(t *testing.T) {
	t.Parallel()

	table := New[string, string](ExtKey).
		Register(func(string) (string, error) { return "pdf", nil }, "pdf")

	_, err := table.Dispatch("minutes.docx")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownKey))
	assert.Contains(t, err.Error(), "docx")
}

func TestExtKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{name: "plain extension", path: "report.pdf", expected: "pdf"},
		{name: "upper case", path: "REPORT.PDF", expected: "pdf"},
		{name: "no extension", path: "README", expected: ""},
		{name: "trailing dot", path: "weird.", expected: ""},
		{name: "nested path", path: "a/b.c/doc.txt", expected: "txt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.expected, ExtKey(tt.path))
		})
	}
}
