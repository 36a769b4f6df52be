package postgres

import (
	"context"
	"encoding/json"
	"time"

	"zonewatch/internal/domain/entity"
	domainerrors "zonewatch/internal/domain/errors"
	"zonewatch/internal/domain/repository"
	"zonewatch/internal/infra/persistence/model"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// subscriptionRepository implements the repository.SubscriptionRepository interface.
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository is the constructor for subscriptionRepository.
func NewSubscriptionRepository(db *gorm.DB) repository.SubscriptionRepository {
	return &subscriptionRepository{
		db: db,
	}
}

// CreateSubscription persists a new subscription.
func (repo *subscriptionRepository) CreateSubscription(ctx context.Context, subscription *entity.Subscription) error {
	subscriptionM, err := fromSubscriptionDomain(subscription)
	if err != nil {
		return err
	}

	if err := repo.db.WithContext(ctx).Create(subscriptionM).Error; err != nil {
		if isForeignKeyConstraintViolation(err) {
			return domainerrors.ErrUserNotFound.WrapMessage("invalid user reference")
		}
		if isNotNullConstraintViolation(err) {
			return domainerrors.NewValidationError("missing required subscription information")
		}

		return domainerrors.NewDatabaseExecuteError(err, "failed to create subscription")
	}

	// Pick up DB-generated values.
	subscription.ID = subscriptionM.ID
	subscription.Created = subscriptionM.CreatedAt
	subscription.Updated = subscriptionM.UpdatedAt

	return nil
}

// UpdateSubscription persists changes to an existing subscription.
func (repo *subscriptionRepository) UpdateSubscription(ctx context.Context, subscription *entity.Subscription) error {
	subscriptionM, err := fromSubscriptionDomain(subscription)
	if err != nil {
		return err
	}

	result := repo.db.WithContext(ctx).
		Model(&model.SubscriptionModel{}).
		Where("id = ?", subscription.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(subscriptionM)
	if result.Error != nil {
		return domainerrors.NewDatabaseExecuteError(result.Error, "failed to update subscription")
	}
	if result.RowsAffected == 0 {
		return repository.ErrSubscriptionNotFound
	}

	return nil
}

// FindSubscriptionByID retrieves a subscription by its unique ID.
func (repo *subscriptionRepository) FindSubscriptionByID(ctx context.Context, id uuid.UUID) (*entity.Subscription, error) {
	var subscriptionM model.SubscriptionModel

	if err := repo.db.WithContext(ctx).
		Where("id = ?", id).
		First(&subscriptionM).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrSubscriptionNotFound
		}

		return nil, errors.Wrap(err, "failed to find subscription by ID")
	}

	return toSubscriptionDomain(&subscriptionM)
}

// FindSubscriptionsByUser retrieves all subscriptions for a specific user, newest first.
func (repo *subscriptionRepository) FindSubscriptionsByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error) {
	var subscriptionModels []*model.SubscriptionModel

	if err := repo.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&subscriptionModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find subscriptions by user")
	}

	return toSubscriptionDomainSlice(subscriptionModels)
}

// FindActiveSubscriptionsByUser retrieves the user's confirmed subscriptions.
func (repo *subscriptionRepository) FindActiveSubscriptionsByUser(ctx context.Context, userID uuid.UUID) ([]*entity.Subscription, error) {
	var subscriptionModels []*model.SubscriptionModel

	if err := repo.db.WithContext(ctx).
		Where("user_id = ? AND active IS NOT NULL", userID).
		Order("created_at DESC").
		Find(&subscriptionModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find active subscriptions by user")
	}

	return toSubscriptionDomainSlice(subscriptionModels)
}

// DeactivateOthers clears the active timestamp on every confirmed
// subscription of the user except keepID, in one bulk UPDATE.
func (repo *subscriptionRepository) DeactivateOthers(ctx context.Context, userID, keepID uuid.UUID) ([]uuid.UUID, error) {
	return repo.bulkDeactivate(ctx, "user_id = ? AND id <> ? AND active IS NOT NULL", userID, keepID)
}

// DeactivateAllForUser clears the active timestamp on every confirmed
// subscription of the user, in one bulk UPDATE.
func (repo *subscriptionRepository) DeactivateAllForUser(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return repo.bulkDeactivate(ctx, "user_id = ? AND active IS NOT NULL", userID)
}

func (repo *subscriptionRepository) bulkDeactivate(ctx context.Context, conds string, args ...any) ([]uuid.UUID, error) {
	// RETURNING id collects the affected rows in the same statement.
	var affected []model.SubscriptionModel

	result := repo.db.WithContext(ctx).
		Model(&affected).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "id"}}}).
		Where(conds, args...).
		Updates(map[string]any{"active": nil, "updated_at": time.Now()})
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, "failed to bulk deactivate subscriptions")
	}

	ids := make([]uuid.UUID, 0, len(affected))
	for _, row := range affected {
		ids = append(ids, row.ID)
	}

	return ids, nil
}

// Due subscriptions: active, and either never notified and created at or
// before the cutoff, or last notified before the cutoff.
func dueConditions(db *gorm.DB, cutoff time.Time) *gorm.DB {
	return db.
		Where("active IS NOT NULL").
		Where("(last_notified IS NULL AND created_at <= ?) OR last_notified < ?", cutoff, cutoff)
}

// FindDue retrieves active subscriptions owed a digest as of the cutoff.
func (repo *subscriptionRepository) FindDue(ctx context.Context, cutoff time.Time) ([]*entity.Subscription, error) {
	var subscriptionModels []*model.SubscriptionModel

	if err := dueConditions(repo.db.WithContext(ctx), cutoff).
		Order("created_at ASC").
		Find(&subscriptionModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find due subscriptions")
	}

	return toSubscriptionDomainSlice(subscriptionModels)
}

// FindDueForUpdate is FindDue with row locks, skipping rows already locked
// by a concurrent digest run. Must run inside a transaction.
func (repo *subscriptionRepository) FindDueForUpdate(ctx context.Context, cutoff time.Time) ([]*entity.Subscription, error) {
	var subscriptionModels []*model.SubscriptionModel

	if err := dueConditions(repo.db.WithContext(ctx), cutoff).
		Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
		Order("created_at ASC").
		Find(&subscriptionModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to lock due subscriptions")
	}

	return toSubscriptionDomainSlice(subscriptionModels)
}

// FindStale retrieves subscriptions never confirmed nor notified, created
// before the cutoff.
func (repo *subscriptionRepository) FindStale(ctx context.Context, cutoff time.Time) ([]*entity.Subscription, error) {
	var subscriptionModels []*model.SubscriptionModel

	if err := repo.db.WithContext(ctx).
		Where("active IS NULL AND last_notified IS NULL AND created_at < ?", cutoff).
		Find(&subscriptionModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find stale subscriptions")
	}

	return toSubscriptionDomainSlice(subscriptionModels)
}

// MarkSent stamps last_notified on the given subscriptions in one bulk UPDATE.
func (repo *subscriptionRepository) MarkSent(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	if err := repo.db.WithContext(ctx).
		Model(&model.SubscriptionModel{}).
		Where("id IN ?", ids).
		Updates(map[string]any{"last_notified": at, "updated_at": at}).Error; err != nil {
		return errors.Wrap(err, "failed to mark subscriptions sent")
	}

	return nil
}

// FindContaining performs a PostGIS geographic query for the active
// subscriptions whose area contains the given point: within the radius of
// a circle query (geography distance, meters) or inside a box query.
func (repo *subscriptionRepository) FindContaining(ctx context.Context, point orb.Point) ([]*entity.Subscription, error) {
	var subscriptionModels []*model.SubscriptionModel

	query := `
		SELECT s.*
		FROM subscriptions s
		WHERE s.active IS NOT NULL
		  AND (
		    (s.center_lat IS NOT NULL AND ST_DWithin(
		      ST_SetSRID(ST_MakePoint(s.center_lng, s.center_lat), 4326)::geography,
		      ST_SetSRID(ST_MakePoint(?, ?), 4326)::geography,
		      s.radius
		    ))
		    OR
		    (s.box_lat_min IS NOT NULL AND ST_Contains(
		      ST_MakeEnvelope(s.box_lon_min, s.box_lat_min, s.box_lon_max, s.box_lat_max, 4326),
		      ST_SetSRID(ST_MakePoint(?, ?), 4326)
		    ))
		  )
		ORDER BY s.created_at DESC
	`

	if err := repo.db.WithContext(ctx).
		Raw(query, point.X(), point.Y(), point.X(), point.Y()).
		Scan(&subscriptionModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find containing subscriptions")
	}

	return toSubscriptionDomainSlice(subscriptionModels)
}

// DeleteSubscription removes a subscription by its ID.
func (repo *subscriptionRepository) DeleteSubscription(ctx context.Context, id uuid.UUID) error {
	result := repo.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&model.SubscriptionModel{})
	if result.Error != nil {
		return errors.Wrap(result.Error, "failed to delete subscription")
	}
	if result.RowsAffected == 0 {
		return repository.ErrSubscriptionNotFound
	}

	return nil
}

// toSubscriptionDomain converts a GORM SubscriptionModel to a domain Subscription entity.
func toSubscriptionDomain(data *model.SubscriptionModel) (*entity.Subscription, error) {
	if data == nil {
		return nil, nil
	}

	sub := &entity.Subscription{
		ID:            data.ID,
		UserID:        data.UserID,
		Created:       data.CreatedAt,
		Updated:       data.UpdatedAt,
		Active:        data.Active,
		LastNotified:  data.LastNotified,
		Radius:        data.Radius,
		Address:       data.Address,
		RegionName:    data.RegionName,
		SiteName:      data.SiteName,
		IncludeEvents: data.IncludeEvents,
	}

	if data.CenterLat != nil && data.CenterLng != nil {
		center := orb.Point{*data.CenterLng, *data.CenterLat}
		sub.Center = &center
	}
	if data.BoxLatMin != nil && data.BoxLonMin != nil && data.BoxLatMax != nil && data.BoxLonMax != nil {
		box := orb.Bound{
			Min: orb.Point{*data.BoxLonMin, *data.BoxLatMin},
			Max: orb.Point{*data.BoxLonMax, *data.BoxLatMax},
		}
		sub.Box = &box
	}

	if len(data.Query) > 0 {
		var q entity.SubscriptionQuery
		if err := json.Unmarshal(data.Query, &q); err != nil {
			return nil, errors.Wrap(err, "failed to decode subscription query")
		}
		sub.Query = &q
	}

	return sub, nil
}

func toSubscriptionDomainSlice(models []*model.SubscriptionModel) ([]*entity.Subscription, error) {
	subscriptions := make([]*entity.Subscription, 0, len(models))
	for _, subscriptionM := range models {
		sub, err := toSubscriptionDomain(subscriptionM)
		if err != nil {
			return nil, err
		}
		subscriptions = append(subscriptions, sub)
	}

	return subscriptions, nil
}

// fromSubscriptionDomain converts a domain Subscription entity to a GORM SubscriptionModel.
func fromSubscriptionDomain(data *entity.Subscription) (*model.SubscriptionModel, error) {
	if data == nil {
		return nil, nil
	}

	subscriptionM := &model.SubscriptionModel{
		ID:            data.ID,
		UserID:        data.UserID,
		CreatedAt:     data.Created,
		UpdatedAt:     data.Updated,
		Active:        data.Active,
		LastNotified:  data.LastNotified,
		Radius:        data.Radius,
		Address:       data.Address,
		RegionName:    data.RegionName,
		SiteName:      data.SiteName,
		IncludeEvents: data.IncludeEvents,
	}

	if data.Center != nil {
		lat, lng := data.Center.Y(), data.Center.X()
		subscriptionM.CenterLat = &lat
		subscriptionM.CenterLng = &lng
	}
	if data.Box != nil {
		latMin, lonMin := data.Box.Min.Y(), data.Box.Min.X()
		latMax, lonMax := data.Box.Max.Y(), data.Box.Max.X()
		subscriptionM.BoxLatMin = &latMin
		subscriptionM.BoxLonMin = &lonMin
		subscriptionM.BoxLatMax = &latMax
		subscriptionM.BoxLonMax = &lonMax
	}

	if data.Query != nil {
		raw, err := json.Marshal(data.Query)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode subscription query")
		}
		subscriptionM.Query = raw
	}

	return subscriptionM, nil
}
