package entity

import "time"

// ProposalChange records a single attribute change on a proposal since the
// last digest, e.g. a status moving from "Hearing scheduled" to "Approved".
type ProposalChange struct {
	Field string `json:"field"`
	From  string `json:"from,omitempty"`
	To    string `json:"to"`
}

// ProposalUpdate describes one proposal mentioned in a digest: either a
// proposal that newly appeared inside the subscription's area, or an
// existing one whose attributes changed.
type ProposalUpdate struct {
	CaseNumber string           `json:"case_number"`
	Address    string           `json:"address"`
	Link       string           `json:"link,omitempty"`
	IsNew      bool             `json:"is_new"`
	Changes    []ProposalChange `json:"changes,omitempty"`
}

// UpdateSummary is what a digest email is rendered from: every proposal
// update inside a subscription's area over a time window.
type UpdateSummary struct {
	Since     time.Time        `json:"since"`
	Until     time.Time        `json:"until"`
	Proposals []ProposalUpdate `json:"proposals"`
}

// Empty reports whether the summary contains nothing worth mailing.
func (s *UpdateSummary) Empty() bool {
	return s == nil || len(s.Proposals) == 0
}
