package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"zonewatch/config"
	"zonewatch/internal/domain/entity"
	"zonewatch/internal/domain/repository"
	"zonewatch/internal/domain/service"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

var errSendFailed = errors.New("send failed")

// fakeTxManager runs the callback against a shared in-memory factory, no
// real transaction semantics.
type fakeTxManager struct {
	factory *fakeFactory
}

func (m *fakeTxManager) Execute(_ context.Context, fn func(repository.RepositoryFactory) error) error {
	return fn(m.factory)
}

type fakeFactory struct {
	users    *fakeUserRepo
	subs     *fakeSubRepo
	comments *fakeCommentRepo
}

func (f *fakeFactory) NewUserRepository() repository.UserRepository {
	return f.users
}

func (f *fakeFactory) NewSubscriptionRepository() repository.SubscriptionRepository {
	return f.subs
}

func (f *fakeFactory) NewCommentRepository() repository.CommentRepository {
	return f.comments
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{
		users: &fakeUserRepo{
			users:    make(map[uuid.UUID]*entity.User),
			profiles: make(map[uuid.UUID]*entity.UserProfile),
		},
		subs:     &fakeSubRepo{subs: make(map[uuid.UUID]*entity.Subscription)},
		comments: &fakeCommentRepo{},
	}
}

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*entity.User
	profiles map[uuid.UUID]*entity.UserProfile
}

func (r *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := *u

		return &copied, nil
	}

	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u

			return &copied, nil
		}
	}

	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied

	return nil
}

func (r *fakeUserRepo) Update(_ context.Context, user *entity.User) error {
	return r.Create(context.Background(), user)
}

func (r *fakeUserRepo) FindProfile(_ context.Context, userID uuid.UUID) (*entity.UserProfile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.profiles[userID]; ok {
		copied := *p

		return &copied, nil
	}

	return nil, repository.ErrProfileNotFound
}

func (r *fakeUserRepo) CreateProfile(_ context.Context, profile *entity.UserProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *profile
	r.profiles[profile.UserID] = &copied

	return nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, profile *entity.UserProfile) error {
	return r.CreateProfile(context.Background(), profile)
}

type fakeSubRepo struct {
	mu   sync.Mutex
	subs map[uuid.UUID]*entity.Subscription
}

func (r *fakeSubRepo) CreateSubscription(_ context.Context, sub *entity.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *sub
	r.subs[sub.ID] = &copied

	return nil
}

func (r *fakeSubRepo) UpdateSubscription(_ context.Context, sub *entity.Subscription) error {
	return r.CreateSubscription(context.Background(), sub)
}

func (r *fakeSubRepo) FindSubscriptionByID(_ context.Context, id uuid.UUID) (*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.subs[id]; ok {
		copied := *s

		return &copied, nil
	}

	return nil, repository.ErrSubscriptionNotFound
}

func (r *fakeSubRepo) FindSubscriptionsByUser(_ context.Context, userID uuid.UUID) ([]*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Subscription
	for _, s := range r.subs {
		if s.UserID == userID {
			copied := *s
			out = append(out, &copied)
		}
	}

	return out, nil
}

func (r *fakeSubRepo) FindActiveSubscriptionsByUser(_ context.Context, userID uuid.UUID) ([]*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Subscription
	for _, s := range r.subs {
		if s.UserID == userID && s.Active != nil {
			copied := *s
			out = append(out, &copied)
		}
	}

	return out, nil
}

func (r *fakeSubRepo) DeactivateOthers(_ context.Context, userID, keepID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for _, s := range r.subs {
		if s.UserID == userID && s.ID != keepID && s.Active != nil {
			s.Active = nil
			ids = append(ids, s.ID)
		}
	}

	return ids, nil
}

func (r *fakeSubRepo) DeactivateAllForUser(_ context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for _, s := range r.subs {
		if s.UserID == userID && s.Active != nil {
			s.Active = nil
			ids = append(ids, s.ID)
		}
	}

	return ids, nil
}

func (r *fakeSubRepo) FindDue(_ context.Context, cutoff time.Time) ([]*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Subscription
	for _, s := range r.subs {
		if s.Active == nil {
			continue
		}
		neverNotified := s.LastNotified == nil && !s.Created.After(cutoff)
		overdue := s.LastNotified != nil && s.LastNotified.Before(cutoff)
		if neverNotified || overdue {
			copied := *s
			out = append(out, &copied)
		}
	}

	return out, nil
}

func (r *fakeSubRepo) FindDueForUpdate(ctx context.Context, cutoff time.Time) ([]*entity.Subscription, error) {
	return r.FindDue(ctx, cutoff)
}

func (r *fakeSubRepo) FindStale(_ context.Context, cutoff time.Time) ([]*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Subscription
	for _, s := range r.subs {
		if s.Active == nil && s.LastNotified == nil && s.Created.Before(cutoff) {
			copied := *s
			out = append(out, &copied)
		}
	}

	return out, nil
}

func (r *fakeSubRepo) MarkSent(_ context.Context, ids []uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if s, ok := r.subs[id]; ok {
			stamped := at
			s.LastNotified = &stamped
		}
	}

	return nil
}

func (r *fakeSubRepo) FindContaining(_ context.Context, point orb.Point) ([]*entity.Subscription, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Subscription
	for _, s := range r.subs {
		if s.Active == nil {
			continue
		}
		if shape := s.Shape(); shape != nil && shapeContains(shape, point) {
			copied := *s
			out = append(out, &copied)
		}
	}

	return out, nil
}

func (r *fakeSubRepo) DeleteSubscription(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.subs, id)

	return nil
}

func shapeContains(p orb.Polygon, pt orb.Point) bool {
	return p.Bound().Contains(pt)
}

type fakeCommentRepo struct {
	mu       sync.Mutex
	comments []*entity.UserComment
}

func (r *fakeCommentRepo) CreateComment(_ context.Context, comment *entity.UserComment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *comment
	r.comments = append(r.comments, &copied)

	return nil
}

func (r *fakeCommentRepo) FindCommentsBySite(_ context.Context, siteName string, limit int) ([]*entity.UserComment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.UserComment
	for _, c := range r.comments {
		if c.SiteName == siteName {
			out = append(out, c)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}

	return out, nil
}

type sentMail struct {
	to       service.Identity
	subject  string
	template string
	ctx      map[string]any
}

type fakeMailer struct {
	mu    sync.Mutex
	sent  []sentMail
	fail  bool
	errFn func(to service.Identity) error
}

func (m *fakeMailer) Send(_ context.Context, to service.Identity, subject, template string, templateCtx map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.errFn != nil {
		if err := m.errFn(to); err != nil {
			return err
		}
	} else if m.fail {
		return errSendFailed
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, template: template, ctx: templateCtx})

	return nil
}

type fakePublisher struct {
	mu     sync.Mutex
	events []*service.JobEvent
}

func (p *fakePublisher) PublishJobEvent(_ context.Context, event *service.JobEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)

	return nil
}

func (p *fakePublisher) Close() error { return nil }

type fakeGeocoder struct {
	locations map[string]*service.Location
}

func (g *fakeGeocoder) Geocode(_ context.Context, addresses []string) ([]*service.Location, error) {
	out := make([]*service.Location, len(addresses))
	for i, addr := range addresses {
		out[i] = g.locations[addr]
	}

	return out, nil
}

func (g *fakeGeocoder) ReverseGeocode(_ context.Context, lat, lng float64) (*service.Location, error) {
	return &service.Location{Lat: lat, Lng: lng, Formatted: "somewhere", Score: 0.5}, nil
}

type fakeSummarizer struct {
	mu        sync.Mutex
	summaries map[uuid.UUID]*entity.UpdateSummary
	errs      map[uuid.UUID]error
	calls     int
}

func (s *fakeSummarizer) Summarize(_ context.Context, sub *entity.Subscription, since, until time.Time) (*entity.UpdateSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if err, ok := s.errs[sub.ID]; ok {
		return nil, err
	}
	if summary, ok := s.summaries[sub.ID]; ok {
		return summary, nil
	}

	return &entity.UpdateSummary{Since: since, Until: until}, nil
}

type fakeQRService struct{}

func (fakeQRService) GenerateLinkQR(string) ([]byte, error) {
	return []byte("png"), nil
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Site = &config.SiteConfig{DefaultHostname: "somerville.zonewatch.org", Scheme: "https"}
	cfg.Mail = &config.MailConfig{Provider: "noop", FromEmail: "alerts@zonewatch.org"}
	cfg.Alerts = &config.AlertsConfig{MinRadius: 50, MaxRadius: 10000, MinSimilarity: 0.75}
	cfg.Digest = &config.DigestConfig{Interval: 7 * 24 * time.Hour, StaleAfter: 14 * 24 * time.Hour}

	return cfg
}

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}
