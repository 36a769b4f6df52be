// Package impl contains the application-specific business rules implementations.
package impl

import (
	"context"
	"log/slog"
	"time"

	"zonewatch/config"
	"zonewatch/internal/domain/constants"
	"zonewatch/internal/domain/entity"
	domainerrors "zonewatch/internal/domain/errors"
	"zonewatch/internal/domain/repository"
	"zonewatch/internal/domain/service"
	"zonewatch/internal/geo"
	"zonewatch/internal/sitecfg"
	"zonewatch/internal/usecase"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
)

// subscriptionService implements the SubscriptionUsecase interface.
type subscriptionService struct {
	txManager repository.TransactionManager
	sites     *sitecfg.Registry
	geocoder  service.Geocoder
	publisher service.EventPublisher
	cfg       *config.Config
	logger    *slog.Logger
}

// NewSubscriptionService is the constructor for subscriptionService.
func NewSubscriptionService(
	txManager repository.TransactionManager,
	sites *sitecfg.Registry,
	geocoder service.Geocoder,
	publisher service.EventPublisher,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.SubscriptionUsecase {
	return &subscriptionService{
		txManager: txManager,
		sites:     sites,
		geocoder:  geocoder,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Subscribe validates the query, creates the user when needed, stores an
// unconfirmed subscription and enqueues the confirmation email job.
func (srv *subscriptionService) Subscribe(ctx context.Context, input *usecase.SubscribeInput) (*usecase.SubscribeResult, error) {
	if input.Email == "" {
		return nil, domainerrors.NewMissingParameter("email")
	}

	srv.logger.Info("Processing subscribe request", "email", input.Email, "site", input.SiteName)

	result := &usecase.SubscribeResult{}

	sub := &entity.Subscription{
		ID:       uuid.New(),
		SiteName: input.SiteName,
		Created:  time.Now(),
	}
	if err := srv.SetValidatedQuery(ctx, sub, input.Query); err != nil {
		return nil, err
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.NewUserRepository()
		subRepo := repoFactory.NewSubscriptionRepository()

		user, err := userRepo.FindByEmail(ctx, input.Email)
		switch {
		case errors.Is(err, repository.ErrUserNotFound):
			user = &entity.User{
				ID:        uuid.New(),
				Email:     input.Email,
				CreatedAt: time.Now(),
			}
			if err := userRepo.Create(ctx, user); err != nil {
				return errors.Wrap(err, "failed to create user")
			}

			profile := &entity.UserProfile{
				UserID:   user.ID,
				Token:    entity.MakeToken(),
				Language: language(input.Language),
				SiteName: input.SiteName,
			}
			if err := userRepo.CreateProfile(ctx, profile); err != nil {
				return errors.Wrap(err, "failed to create user profile")
			}
			result.NewUser = true
		case err != nil:
			return errors.Wrap(err, "failed to find user")
		}
		sub.UserID = user.ID

		// An equivalent active subscription means the user double-submitted;
		// re-send the manage link instead of storing a duplicate.
		existing, err := subRepo.FindActiveSubscriptionsByUser(ctx, user.ID)
		if err != nil {
			return errors.Wrap(err, "failed to load existing subscriptions")
		}
		if match := srv.MostSimilar(sub, existing); match != nil {
			result.Subscription = match
			result.Resent = true

			return nil
		}

		if err := subRepo.CreateSubscription(ctx, sub); err != nil {
			return errors.Wrap(err, "failed to create subscription")
		}
		result.Subscription = sub

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "subscribe failed")
	}

	event := &service.JobEvent{
		Job:      constants.JobSendUserKey,
		UserID:   result.Subscription.UserID.String(),
		SubID:    result.Subscription.ID.String(),
		SiteName: input.SiteName,
	}
	if result.Resent {
		event.Job = constants.JobResendUserKey
	}
	if err := srv.publisher.PublishJobEvent(ctx, event); err != nil {
		// The subscription is stored; the next digest cycle still works even
		// if the confirmation mail is delayed.
		srv.logger.Error("Failed to publish user key job", "error", err, "userID", event.UserID)
	}

	return result, nil
}

// SetValidatedQuery parses the raw query parameters onto the subscription,
// applies site policy and stores the query snapshot.
func (srv *subscriptionService) SetValidatedQuery(ctx context.Context, sub *entity.Subscription, params map[string]string) error {
	q := &entity.SubscriptionQuery{}

	if region, ok := params["region_name"]; ok && region != "" {
		sub.RegionName = region
		q.RegionName = region
	}

	if box, ok := params["box"]; ok && box != "" {
		bound, err := geo.BoundsFromBox(box)
		if err != nil {
			return err
		}
		sub.Box = &bound
		q.Kind = entity.QueryKindBox
		q.Box = &entity.BoxQuery{
			LatMin: bound.Min.Y(), LonMin: bound.Min.X(),
			LatMax: bound.Max.Y(), LonMax: bound.Max.X(),
		}
	}

	center, hasCenter := params["center"]
	address, hasAddress := params["address"]

	if !hasCenter && hasAddress && address != "" {
		point, formatted, err := srv.resolveAddress(ctx, address, sub.RegionName)
		if err != nil {
			return err
		}
		sub.Center = &point
		sub.Address = formatted
	}

	if hasCenter && center != "" {
		point, err := geo.PointFromString(center)
		if err != nil {
			return err
		}
		sub.Center = &point
		if hasAddress {
			sub.Address = address
		}
	}

	if sub.Center != nil {
		raw, ok := params["r"]
		if !ok || raw == "" {
			return domainerrors.NewMissingParameter("r")
		}
		dist, err := geo.ParseDistance(raw)
		if err != nil {
			return err
		}
		radius := srv.clampRadius(dist.Meters())
		sub.Radius = &radius

		q.Kind = entity.QueryKindCircle
		q.Circle = &entity.CircleQuery{
			Lat:     sub.Center.Y(),
			Lng:     sub.Center.X(),
			Radius:  radius,
			Address: sub.Address,
		}
	}

	if q.Kind == "" && q.RegionName != "" {
		q.Kind = entity.QueryKindRegion
	}

	site, err := srv.sites.ByHostname(sub.SiteName)
	if err != nil {
		return err
	}
	if err := site.ValidateSubscriptionQuery(sub, q); err != nil {
		return err
	}

	sub.Query = q

	return sub.Validate()
}

// ConfirmSubscription activates a subscription from an emailed link.
func (srv *subscriptionService) ConfirmSubscription(ctx context.Context, userID, subID uuid.UUID, token string) (*entity.Subscription, error) {
	srv.logger.Info("Confirming subscription", "userID", userID, "subID", subID)

	var confirmed *entity.Subscription

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.NewUserRepository()
		subRepo := repoFactory.NewSubscriptionRepository()

		profile, err := userRepo.FindProfile(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to find user profile")
		}
		if profile.Token != token {
			return domainerrors.ErrInvalidToken
		}

		sub, err := subRepo.FindSubscriptionByID(ctx, subID)
		if err != nil {
			if errors.Is(err, repository.ErrSubscriptionNotFound) {
				return domainerrors.ErrSubscriptionNotFound
			}

			return errors.Wrap(err, "failed to find subscription")
		}
		if sub.UserID != userID {
			return domainerrors.ErrInvalidToken
		}

		site, err := srv.sites.ByHostname(sub.SiteName)
		if err != nil {
			return err
		}
		if !site.AllowMultipleSubscriptions() {
			deactivated, err := subRepo.DeactivateOthers(ctx, userID, subID)
			if err != nil {
				return errors.Wrap(err, "failed to deactivate other subscriptions")
			}
			if len(deactivated) > 0 {
				srv.logger.Info("Deactivated other subscriptions on confirm",
					"userID", userID, "count", len(deactivated))
			}
		}

		user, err := userRepo.FindByID(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to find user")
		}
		if !user.IsActive {
			user.IsActive = true
			if err := userRepo.Update(ctx, user); err != nil {
				return errors.Wrap(err, "failed to activate user")
			}
			profile.RotateToken()
			if err := userRepo.UpdateProfile(ctx, profile); err != nil {
				return errors.Wrap(err, "failed to rotate token")
			}
		}

		now := time.Now()
		sub.Active = &now
		if err := subRepo.UpdateSubscription(ctx, sub); err != nil {
			return errors.Wrap(err, "failed to activate subscription")
		}
		confirmed = sub

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "confirm subscription failed")
	}

	return confirmed, nil
}

// ListUserSubscriptions returns the user's subscriptions, newest first.
func (srv *subscriptionService) ListUserSubscriptions(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error) {
	var subs []*entity.Subscription

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		found, err := repoFactory.NewSubscriptionRepository().FindSubscriptionsByUser(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to list subscriptions")
		}
		subs = found

		return nil
	})
	if err != nil {
		return nil, err
	}

	return subs, nil
}

// DeleteSubscription removes one of the user's subscriptions.
func (srv *subscriptionService) DeleteSubscription(ctx context.Context, userID, subID uuid.UUID, token string) error {
	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.NewUserRepository()
		subRepo := repoFactory.NewSubscriptionRepository()

		profile, err := userRepo.FindProfile(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to find user profile")
		}
		if profile.Token != token {
			return domainerrors.ErrInvalidToken
		}

		sub, err := subRepo.FindSubscriptionByID(ctx, subID)
		if err != nil {
			if errors.Is(err, repository.ErrSubscriptionNotFound) {
				return domainerrors.ErrSubscriptionNotFound
			}

			return errors.Wrap(err, "failed to find subscription")
		}
		if sub.UserID != userID {
			return domainerrors.ErrInvalidToken
		}

		return subRepo.DeleteSubscription(ctx, subID)
	})
	if err != nil {
		return errors.Wrap(err, "delete subscription failed")
	}

	return nil
}

// FindSimilar returns the candidates scoring at or above the configured
// similarity threshold, excluding sub itself.
func (srv *subscriptionService) FindSimilar(sub *entity.Subscription, candidates []*entity.Subscription) []*entity.Subscription {
	var similar []*entity.Subscription

	for _, c := range candidates {
		if c.ID == sub.ID {
			continue
		}
		if score, ok := sub.Similarity(c); ok && score >= srv.cfg.Alerts.MinSimilarity {
			similar = append(similar, c)
		}
	}

	return similar
}

// MostSimilar returns the closest match among the candidates, or nil.
func (srv *subscriptionService) MostSimilar(sub *entity.Subscription, candidates []*entity.Subscription) *entity.Subscription {
	similar := srv.FindSimilar(sub, candidates)
	best, _ := sub.MostSimilar(similar, srv.cfg.Alerts.MinSimilarity)

	return best
}

func (srv *subscriptionService) resolveAddress(ctx context.Context, address, region string) (orb.Point, string, error) {
	query := address
	if region != "" {
		query = address + ", " + region
	}

	locations, err := srv.geocoder.Geocode(ctx, []string{query})
	if err != nil {
		return orb.Point{}, "", errors.Wrap(err, "geocode failed")
	}
	if len(locations) == 0 || locations[0] == nil {
		return orb.Point{}, "", domainerrors.NewValidationError("address could not be located", "address")
	}

	loc := locations[0]

	return orb.Point{loc.Lng, loc.Lat}, loc.Formatted, nil
}

func (srv *subscriptionService) clampRadius(radius float64) float64 {
	if min := srv.cfg.Alerts.MinRadius; min > 0 && radius < min {
		return min
	}
	if max := srv.cfg.Alerts.MaxRadius; max > 0 && radius > max {
		return max
	}

	return radius
}

func language(lang string) string {
	if lang == "" {
		return "en"
	}

	return lang
}
