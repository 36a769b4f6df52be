package mail

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zonewatch/internal/domain/entity"
)

func TestRender(t *testing.T) {
	t.Parallel()

	t.Run("unknown template", func(t *testing.T) {
		t.Parallel()

		_, err := render("no-such-template", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no-such-template")
	})

	t.Run("user-key includes confirm and manage links", func(t *testing.T) {
		t.Parallel()

		body, err := render("user-key", map[string]any{
			"addressal":   "Jana",
			"site":        "Somerville, MA",
			"confirm_url": "https://alerts.example.com/activate?token=abc",
			"manage_url":  "https://alerts.example.com/manage?token=abc",
		})
		require.NoError(t, err)
		assert.Contains(t, body, "Jana")
		assert.Contains(t, body, "https://alerts.example.com/activate?token=abc")
		assert.Contains(t, body, "https://alerts.example.com/manage?token=abc")
	})

	t.Run("digest renders new and changed proposals", func(t *testing.T) {
		t.Parallel()

		summary := &entity.UpdateSummary{
			Since: time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
			Until: time.Date(2026, 8, 8, 0, 0, 0, 0, time.UTC),
			Proposals: []entity.ProposalUpdate{
				{CaseNumber: "ZBA-24-17", Address: "240 Elm St", IsNew: true, Link: "https://example.com/p/1"},
				{
					CaseNumber: "PB-24-03",
					Address:    "12 Highland Ave",
					Changes: []entity.ProposalChange{
						{Field: "status", From: "Hearing scheduled", To: "Approved"},
					},
				},
			},
		}

		body, err := render("digest", map[string]any{
			"addressal":       "Jana",
			"summary":         summary,
			"manage_url":      "https://alerts.example.com/manage?token=abc",
			"unsubscribe_url": "https://alerts.example.com/deactivate?token=abc",
		})
		require.NoError(t, err)
		assert.Contains(t, body, "ZBA-24-17")
		assert.Contains(t, body, "new proposal")
		assert.Contains(t, body, "Hearing scheduled")
		assert.Contains(t, body, "Approved")
		assert.Contains(t, body, "https://alerts.example.com/deactivate?token=abc")
	})

	t.Run("comment escapes html in body", func(t *testing.T) {
		t.Parallel()

		body, err := render("comment", map[string]any{
			"subject": "Broken link",
			"email":   "visitor@example.com",
			"body":    "<script>alert(1)</script>",
		})
		require.NoError(t, err)
		assert.NotContains(t, body, "<script>")
		assert.Contains(t, body, "&lt;script&gt;")
	})
}
