package repository

import (
	"context"

	"zonewatch/internal/domain/entity"
)

// CommentRepository defines the operations for contact-form comment persistence.
type CommentRepository interface {
	// CreateComment persists a submitted comment.
	CreateComment(ctx context.Context, comment *entity.UserComment) error

	// FindCommentsBySite retrieves the comments submitted on a site, newest first.
	FindCommentsBySite(ctx context.Context, siteName string, limit int) ([]*entity.UserComment, error)
}
