package postgres

import (
	"context"

	"zonewatch/internal/domain/entity"
	domainerrors "zonewatch/internal/domain/errors"
	"zonewatch/internal/domain/repository"
	"zonewatch/internal/infra/persistence/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// commentRepository implements the repository.CommentRepository interface.
type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository is the constructor for commentRepository.
func NewCommentRepository(db *gorm.DB) repository.CommentRepository {
	return &commentRepository{
		db: db,
	}
}

// CreateComment persists a submitted comment.
func (repo *commentRepository) CreateComment(ctx context.Context, comment *entity.UserComment) error {
	commentM := fromCommentDomain(comment)

	if err := repo.db.WithContext(ctx).Create(commentM).Error; err != nil {
		return domainerrors.NewDatabaseExecuteError(err, "failed to create comment")
	}

	comment.ID = commentM.ID
	comment.CreatedAt = commentM.CreatedAt

	return nil
}

// FindCommentsBySite retrieves the comments submitted on a site, newest first.
func (repo *commentRepository) FindCommentsBySite(ctx context.Context, siteName string, limit int) ([]*entity.UserComment, error) {
	var commentModels []*model.UserCommentModel

	query := repo.db.WithContext(ctx).
		Where("site_name = ?", siteName).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&commentModels).Error; err != nil {
		return nil, errors.Wrap(err, "failed to find comments by site")
	}

	comments := make([]*entity.UserComment, 0, len(commentModels))
	for _, commentM := range commentModels {
		comments = append(comments, toCommentDomain(commentM))
	}

	return comments, nil
}

func toCommentDomain(data *model.UserCommentModel) *entity.UserComment {
	if data == nil {
		return nil
	}

	return &entity.UserComment{
		ID:         data.ID,
		UserID:     data.UserID,
		Email:      data.Email,
		Subject:    data.Subject,
		SendTo:     data.SendTo,
		Body:       data.Body,
		RemoteAddr: data.RemoteAddr,
		RemoteHost: data.RemoteHost,
		SiteName:   data.SiteName,
		CreatedAt:  data.CreatedAt,
	}
}

func fromCommentDomain(data *entity.UserComment) *model.UserCommentModel {
	if data == nil {
		return nil
	}

	return &model.UserCommentModel{
		ID:         data.ID,
		UserID:     data.UserID,
		Email:      data.Email,
		Subject:    data.Subject,
		SendTo:     data.SendTo,
		Body:       data.Body,
		RemoteAddr: data.RemoteAddr,
		RemoteHost: data.RemoteHost,
		SiteName:   data.SiteName,
		CreatedAt:  data.CreatedAt,
	}
}
