package impl

import (
	"context"
	"log/slog"
	"net"
	"time"

	"zonewatch/config"
	"zonewatch/internal/domain/entity"
	domainerrors "zonewatch/internal/domain/errors"
	"zonewatch/internal/domain/repository"
	"zonewatch/internal/domain/service"
	"zonewatch/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// commentService implements the CommentUsecase interface.
type commentService struct {
	txManager repository.TransactionManager
	mailer    service.Mailer
	cfg       *config.Config
	logger    *slog.Logger
}

// NewCommentService is the constructor for commentService.
func NewCommentService(
	txManager repository.TransactionManager,
	mailer service.Mailer,
	cfg *config.Config,
	logger *slog.Logger,
) usecase.CommentUsecase {
	return &commentService{
		txManager: txManager,
		mailer:    mailer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Submit persists the comment and forwards it to the site address.
func (srv *commentService) Submit(ctx context.Context, input *usecase.CommentInput) (*entity.UserComment, error) {
	if input.Body == "" {
		return nil, domainerrors.NewMissingParameter("body")
	}

	comment := &entity.UserComment{
		ID:         uuid.New(),
		Email:      input.Email,
		Subject:    input.Subject,
		SendTo:     srv.cfg.Mail.FromEmail,
		Body:       input.Body,
		RemoteAddr: input.RemoteAddr,
		RemoteHost: lookupRemoteHost(input.RemoteAddr),
		SiteName:   input.SiteName,
		CreatedAt:  time.Now(),
	}

	err := srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		return repoFactory.NewCommentRepository().CreateComment(ctx, comment)
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to store comment")
	}

	to := service.Identity{Email: comment.SendTo}
	mailErr := srv.mailer.Send(ctx, to, "Comment: "+comment.Subject, "comment", map[string]any{
		"email":   comment.Email,
		"body":    comment.Body,
		"site":    comment.SiteName,
		"remote":  comment.RemoteAddr,
		"subject": comment.Subject,
	})
	if mailErr != nil {
		// The comment is stored; forwarding is best effort.
		srv.logger.Error("Failed to forward comment", "error", mailErr, "commentID", comment.ID)
	}

	return comment, nil
}

func lookupRemoteHost(addr string) string {
	if addr == "" {
		return ""
	}

	names, err := net.LookupAddr(addr)
	if err != nil || len(names) == 0 {
		return ""
	}

	return names[0]
}
