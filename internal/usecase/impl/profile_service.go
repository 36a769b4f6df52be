package impl

import (
	"context"
	"log/slog"

	"zonewatch/config"
	"zonewatch/internal/domain/constants"
	"zonewatch/internal/domain/entity"
	domainerrors "zonewatch/internal/domain/errors"
	"zonewatch/internal/domain/repository"
	"zonewatch/internal/domain/service"
	"zonewatch/internal/sitecfg"
	"zonewatch/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// profileService implements the ProfileUsecase interface.
type profileService struct {
	txManager repository.TransactionManager
	mailer    service.Mailer
	qrService service.QRCodeService
	publisher service.EventPublisher
	sites     *sitecfg.Registry
	cfg       *config.Config
	logger    *slog.Logger
}

// NewProfileService is the constructor for profileService.
func NewProfileService(
	txManager repository.TransactionManager,
	mailer service.Mailer,
	qrService service.QRCodeService,
	publisher service.EventPublisher,
	sites *sitecfg.Registry,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.ProfileUsecase {
	return &profileService{
		txManager: txManager,
		mailer:    mailer,
		qrService: qrService,
		publisher: publisher,
		sites:     sites,
		cfg:       cfg,
		logger:    logger,
	}
}

// Activate confirms the account. Returns false when already active.
func (srv *profileService) Activate(ctx context.Context, userID uuid.UUID) (bool, error) {
	var transitioned bool

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.NewUserRepository()

		user, err := userRepo.FindByID(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to find user")
		}
		if user.IsActive {
			return nil
		}

		user.IsActive = true
		if err := userRepo.Update(ctx, user); err != nil {
			return errors.Wrap(err, "failed to activate user")
		}

		profile, err := userRepo.FindProfile(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to find user profile")
		}
		profile.RotateToken()
		if err := userRepo.UpdateProfile(ctx, profile); err != nil {
			return errors.Wrap(err, "failed to rotate token")
		}
		transitioned = true

		return nil
	})
	if err != nil {
		return false, errors.Wrap(err, "activate failed")
	}

	if transitioned {
		srv.logger.Info("Account activated", "userID", userID)
	}

	return transitioned, nil
}

// Deactivate disables the account and bulk-deactivates its subscriptions.
// The deactivation notice is emitted as a job after the transaction commits,
// so listeners never observe a half-applied state.
func (srv *profileService) Deactivate(ctx context.Context, userID uuid.UUID) (bool, error) {
	var (
		transitioned bool
		deactivated  []uuid.UUID
		siteName     string
	)

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.NewUserRepository()
		subRepo := repoFactory.NewSubscriptionRepository()

		user, err := userRepo.FindByID(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to find user")
		}
		if !user.IsActive {
			return nil
		}

		user.IsActive = false
		if err := userRepo.Update(ctx, user); err != nil {
			return errors.Wrap(err, "failed to deactivate user")
		}

		profile, err := userRepo.FindProfile(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to find user profile")
		}
		siteName = profile.SiteName
		profile.RotateToken()
		if err := userRepo.UpdateProfile(ctx, profile); err != nil {
			return errors.Wrap(err, "failed to rotate token")
		}

		deactivated, err = subRepo.DeactivateAllForUser(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to deactivate subscriptions")
		}
		transitioned = true

		return nil
	})
	if err != nil {
		return false, errors.Wrap(err, "deactivate failed")
	}

	if !transitioned {
		return false, nil
	}

	srv.logger.Info("Account deactivated", "userID", userID, "subscriptions", len(deactivated))

	event := &service.JobEvent{
		Job:      constants.JobSendDeactivated,
		UserID:   userID.String(),
		SiteName: siteName,
	}
	if err := srv.publisher.PublishJobEvent(ctx, event); err != nil {
		srv.logger.Error("Failed to publish deactivation job", "error", err, "userID", userID)
	}

	return true, nil
}

// SendUserKey delivers the confirmation email for a new subscription.
func (srv *profileService) SendUserKey(ctx context.Context, userID, subID uuid.UUID) error {
	user, profile, err := srv.loadAccount(ctx, userID)
	if err != nil {
		return err
	}

	confirmURL, err := srv.actionURL(profile, "confirm", map[string]string{
		"token": profile.Token,
		"uid":   userID.String(),
		"sub":   subID.String(),
	})
	if err != nil {
		return err
	}
	manageURL, err := srv.ManageURL(ctx, userID)
	if err != nil {
		return err
	}

	templateCtx := map[string]any{
		"addressal":   profile.Addressal(user),
		"confirm_url": confirmURL,
		"manage_url":  manageURL,
		"site":        srv.siteTitle(profile.SiteName),
	}
	if qr, err := srv.qrService.GenerateLinkQR(confirmURL); err == nil {
		templateCtx["confirm_qr_png"] = qr
	} else {
		srv.logger.Warn("Failed to render confirmation QR code", "error", err)
	}

	to := service.Identity{Email: user.Email, Name: profile.Addressal(user)}

	return srv.mailer.Send(ctx, to, "Please confirm your subscription", "user-key", templateCtx)
}

// ResendUserKey re-delivers the manage link for an existing account.
func (srv *profileService) ResendUserKey(ctx context.Context, userID uuid.UUID) error {
	user, profile, err := srv.loadAccount(ctx, userID)
	if err != nil {
		return err
	}

	manageURL, err := srv.ManageURL(ctx, userID)
	if err != nil {
		return err
	}

	to := service.Identity{Email: user.Email, Name: profile.Addressal(user)}

	return srv.mailer.Send(ctx, to, "Your subscription settings", "resend-key", map[string]any{
		"addressal":  profile.Addressal(user),
		"manage_url": manageURL,
		"site":       srv.siteTitle(profile.SiteName),
	})
}

// SendDeactivationNotice delivers the account deactivation email.
func (srv *profileService) SendDeactivationNotice(ctx context.Context, userID uuid.UUID) error {
	user, profile, err := srv.loadAccount(ctx, userID)
	if err != nil {
		return err
	}

	to := service.Identity{Email: user.Email, Name: profile.Addressal(user)}

	return srv.mailer.Send(ctx, to, "Your account has been deactivated", "deactivation", map[string]any{
		"addressal": profile.Addressal(user),
		"site":      srv.siteTitle(profile.SiteName),
	})
}

// ConfirmURL builds the absolute confirmation link for a subscription.
func (srv *profileService) ConfirmURL(ctx context.Context, userID, subID uuid.UUID) (string, error) {
	_, profile, err := srv.loadAccount(ctx, userID)
	if err != nil {
		return "", err
	}

	return srv.actionURL(profile, "confirm", map[string]string{
		"token": profile.Token,
		"uid":   userID.String(),
		"sub":   subID.String(),
	})
}

// ManageURL builds the absolute manage link for the user.
func (srv *profileService) ManageURL(ctx context.Context, userID uuid.UUID) (string, error) {
	_, profile, err := srv.loadAccount(ctx, userID)
	if err != nil {
		return "", err
	}

	return srv.actionURL(profile, "manage", map[string]string{
		"token": profile.Token,
		"uid":   userID.String(),
	})
}

// UnsubscribeURL builds the absolute unsubscribe link for the user.
func (srv *profileService) UnsubscribeURL(ctx context.Context, userID uuid.UUID) (string, error) {
	_, profile, err := srv.loadAccount(ctx, userID)
	if err != nil {
		return "", err
	}

	return srv.actionURL(profile, "unsubscribe", map[string]string{
		"token": profile.Token,
		"uid":   userID.String(),
	})
}

func (srv *profileService) loadAccount(ctx context.Context, userID uuid.UUID) (*entity.User, *entity.UserProfile, error) {
	var (
		user    *entity.User
		profile *entity.UserProfile
	)

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.NewUserRepository()

		found, err := userRepo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrUserNotFound) {
				return domainerrors.ErrUserNotFound
			}

			return errors.Wrap(err, "failed to find user")
		}
		user = found

		profile, err = userRepo.FindProfile(ctx, userID)
		if err != nil {
			if errors.Is(err, repository.ErrProfileNotFound) {
				return domainerrors.ErrProfileNotFound
			}

			return errors.Wrap(err, "failed to find user profile")
		}

		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return user, profile, nil
}

func (srv *profileService) actionURL(profile *entity.UserProfile, path string, params map[string]string) (string, error) {
	return buildActionURL(srv.cfg, profile.SiteName, path, params), nil
}

func (srv *profileService) siteTitle(hostname string) string {
	site, err := srv.sites.ByHostname(hostname)
	if err != nil {
		return hostname
	}

	return site.Name()
}
