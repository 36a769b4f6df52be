package usecase

import (
	"context"

	"zonewatch/internal/domain/entity"
)

// CommentInput carries a contact-form submission.
type CommentInput struct {
	Email      string
	Subject    string
	Body       string
	RemoteAddr string
	SiteName   string
}

// CommentUsecase stores contact-form comments and forwards them to the
// site's configured address.
type CommentUsecase interface {
	// Submit persists the comment and forwards it by mail.
	Submit(ctx context.Context, input *CommentInput) (*entity.UserComment, error)
}
