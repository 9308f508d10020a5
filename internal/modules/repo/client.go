package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/inkdesk/inkdesk/internal/modules/model"
	"gorm.io/gorm"
)

var ErrClientNotFound = errors.New("client not found")

type ClientRepo interface {
	Get(ctx context.Context, clientID uuid.UUID) (*model.Client, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Client, error)
}

type clientRepo struct{ db *gorm.DB }

func NewClientRepo(db *gorm.DB) ClientRepo {
	return &clientRepo{db: db}
}

func (r *clientRepo) Get(ctx context.Context, clientID uuid.UUID) (*model.Client, error) {
	var c model.Client
	err := r.db.WithContext(ctx).Where("id = ?", clientID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrClientNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *clientRepo) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Client, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var clients []model.Client
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&clients).Error
	return clients, err
}
