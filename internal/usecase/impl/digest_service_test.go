package impl

import (
	"context"
	"testing"
	"time"

	"zonewatch/internal/domain/entity"
	"zonewatch/internal/usecase"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDigestService(factory *fakeFactory, summarizer *fakeSummarizer, mailer *fakeMailer) usecase.DigestUsecase {
	return NewDigestService(
		&fakeTxManager{factory: factory},
		summarizer,
		mailer,
		testConfig(),
		testLogger(),
	)
}

// seedDigestSub stores an active subscription due for a digest, plus its
// owning user and profile.
func seedDigestSub(t *testing.T, factory *fakeFactory, created time.Time) *entity.Subscription {
	t.Helper()

	userID := uuid.New()
	require.NoError(t, factory.users.Create(context.Background(), &entity.User{
		ID:       userID,
		Email:    userID.String() + "@example.com",
		IsActive: true,
	}))
	require.NoError(t, factory.users.CreateProfile(context.Background(), &entity.UserProfile{
		UserID:   userID,
		Token:    entity.MakeToken(),
		SiteName: "somerville.zonewatch.org",
	}))

	center := orb.Point{-71.0995, 42.3876}
	radius := 91.44
	active := created
	sub := &entity.Subscription{
		ID:       uuid.New(),
		UserID:   userID,
		SiteName: "somerville.zonewatch.org",
		Created:  created,
		Active:   &active,
		Center:   &center,
		Radius:   &radius,
	}
	require.NoError(t, factory.subs.CreateSubscription(context.Background(), sub))

	return sub
}

func TestDigestRunSendsAndMarks(t *testing.T) {
	factory := newFakeFactory()
	now := time.Now()
	sub := seedDigestSub(t, factory, now.Add(-30*24*time.Hour))

	summarizer := &fakeSummarizer{summaries: map[uuid.UUID]*entity.UpdateSummary{
		sub.ID: {Proposals: []entity.ProposalUpdate{{CaseNumber: "PB 2025-14", Address: "240 Elm St", IsNew: true}}},
	}}
	mailer := &fakeMailer{}
	svc := newDigestService(factory, summarizer, mailer)

	report, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Due)
	assert.Equal(t, 1, report.Sent)
	assert.Zero(t, report.Failed)

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "digest", mailer.sent[0].template)
	assert.Contains(t, mailer.sent[0].ctx, "manage_url")

	stored, err := factory.subs.FindSubscriptionByID(context.Background(), sub.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastNotified)
	assert.True(t, stored.LastNotified.Equal(now))
}

func TestDigestRunMarkSentRepeatable(t *testing.T) {
	factory := newFakeFactory()
	first := time.Now()
	sub := seedDigestSub(t, factory, first.Add(-30*24*time.Hour))

	summarizer := &fakeSummarizer{summaries: map[uuid.UUID]*entity.UpdateSummary{
		sub.ID: {Proposals: []entity.ProposalUpdate{{CaseNumber: "PB 2025-14", Address: "240 Elm St", IsNew: true}}},
	}}
	mailer := &fakeMailer{}
	svc := newDigestService(factory, summarizer, mailer)

	report, err := svc.Run(context.Background(), first)
	require.NoError(t, err)
	require.Equal(t, 1, report.Sent)

	// A second cycle marks the same subscription again without error and
	// leaves last_notified at the later timestamp.
	second := first.Add(8 * 24 * time.Hour)
	report, err = svc.Run(context.Background(), second)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Len(t, mailer.sent, 2)

	stored, err := factory.subs.FindSubscriptionByID(context.Background(), sub.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastNotified)
	assert.True(t, stored.LastNotified.Equal(second))

	// Re-running at the same instant finds nothing due and changes nothing.
	report, err = svc.Run(context.Background(), second)
	require.NoError(t, err)
	assert.Zero(t, report.Due)
	assert.Len(t, mailer.sent, 2)

	stored, err = factory.subs.FindSubscriptionByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.True(t, stored.LastNotified.Equal(second))
}

func TestDigestRunEmptySummarySkipsMail(t *testing.T) {
	factory := newFakeFactory()
	now := time.Now()
	sub := seedDigestSub(t, factory, now.Add(-30*24*time.Hour))

	mailer := &fakeMailer{}
	svc := newDigestService(factory, &fakeSummarizer{}, mailer)

	report, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Empty)
	assert.Zero(t, report.Sent)
	assert.Empty(t, mailer.sent)

	// Nothing to report still counts as notified.
	stored, err := factory.subs.FindSubscriptionByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastNotified)
}

func TestDigestRunSummarizeFailureLeavesUnmarked(t *testing.T) {
	factory := newFakeFactory()
	now := time.Now()
	sub := seedDigestSub(t, factory, now.Add(-30*24*time.Hour))

	summarizer := &fakeSummarizer{errs: map[uuid.UUID]error{sub.ID: errors.New("upstream down")}}
	svc := newDigestService(factory, summarizer, &fakeMailer{})

	report, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)

	stored, err := factory.subs.FindSubscriptionByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastNotified)

	// The row is still due, so the next run retries it.
	report, err = svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Due)
}

func TestDigestRunMailFailureLeavesUnmarked(t *testing.T) {
	factory := newFakeFactory()
	now := time.Now()
	sub := seedDigestSub(t, factory, now.Add(-30*24*time.Hour))

	summarizer := &fakeSummarizer{summaries: map[uuid.UUID]*entity.UpdateSummary{
		sub.ID: {Proposals: []entity.ProposalUpdate{{CaseNumber: "ZBA 2025-77", Address: "1 Davis Sq"}}},
	}}
	svc := newDigestService(factory, summarizer, &fakeMailer{fail: true})

	report, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Sent)

	stored, err := factory.subs.FindSubscriptionByID(context.Background(), sub.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.LastNotified)
}

func TestDigestRunSkipsRecentlyNotified(t *testing.T) {
	factory := newFakeFactory()
	now := time.Now()
	sub := seedDigestSub(t, factory, now.Add(-30*24*time.Hour))

	recent := now.Add(-24 * time.Hour)
	stored, err := factory.subs.FindSubscriptionByID(context.Background(), sub.ID)
	require.NoError(t, err)
	stored.LastNotified = &recent
	require.NoError(t, factory.subs.UpdateSubscription(context.Background(), stored))

	svc := newDigestService(factory, &fakeSummarizer{}, &fakeMailer{})

	report, err := svc.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Zero(t, report.Due)
}

func TestStaleSweep(t *testing.T) {
	factory := newFakeFactory()
	now := time.Now()

	center := orb.Point{-71.0995, 42.3876}
	radius := 91.44
	stale := &entity.Subscription{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Created: now.Add(-30 * 24 * time.Hour),
		Center:  &center,
		Radius:  &radius,
	}
	fresh := &entity.Subscription{
		ID:      uuid.New(),
		UserID:  uuid.New(),
		Created: now.Add(-24 * time.Hour),
		Center:  &center,
		Radius:  &radius,
	}
	require.NoError(t, factory.subs.CreateSubscription(context.Background(), stale))
	require.NoError(t, factory.subs.CreateSubscription(context.Background(), fresh))

	svc := newDigestService(factory, &fakeSummarizer{}, &fakeMailer{})

	swept, err := svc.StaleSweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, swept)

	_, err = factory.subs.FindSubscriptionByID(context.Background(), stale.ID)
	assert.Error(t, err)
	_, err = factory.subs.FindSubscriptionByID(context.Background(), fresh.ID)
	assert.NoError(t, err)
}

func TestFindContaining(t *testing.T) {
	factory := newFakeFactory()
	now := time.Now()
	sub := seedDigestSub(t, factory, now.Add(-30*24*time.Hour))

	svc := newDigestService(factory, &fakeSummarizer{}, &fakeMailer{})

	inside, err := svc.FindContaining(context.Background(), *sub.Center)
	require.NoError(t, err)
	require.Len(t, inside, 1)
	assert.Equal(t, sub.ID, inside[0].ID)

	outside, err := svc.FindContaining(context.Background(), orb.Point{-70.0, 41.0})
	require.NoError(t, err)
	assert.Empty(t, outside)
}
