package persistence

import (
	"context"
	"errors"

	"social-publisher/domain/model"
	"social-publisher/domain/repository"

	"gorm.io/gorm"
)

type ContentRepository struct{ db *gorm.DB }

func NewContentRepository(db *gorm.DB) repository.IContent {
	return &ContentRepository{db: db}
}

func (r *ContentRepository) GetByID(ctx context.Context, id string) (*model.Content, error) {
	var c model.Content
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}
