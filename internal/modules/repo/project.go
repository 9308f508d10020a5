package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/inkdesk/inkdesk/internal/modules/model"
	"gorm.io/gorm"
)

type ProjectRepo interface {
	Get(ctx context.Context, ownerID, projectID uuid.UUID) (*model.Project, error)
	RosterClients(ctx context.Context, projectID uuid.UUID) ([]model.Client, error)
	ReplaceRoster(ctx context.Context, ownerID, projectID uuid.UUID, clientIDs []uuid.UUID) error
}

type projectRepo struct{ db *gorm.DB }

func NewProjectRepo(db *gorm.DB) ProjectRepo {
	return &projectRepo{db: db}
}

func (r *projectRepo) Get(ctx context.Context, ownerID, projectID uuid.UUID) (*model.Project, error) {
	var p model.Project
	err := r.db.WithContext(ctx).
		Where("id = ? AND owner_id = ?", projectID, ownerID).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// RosterClients returns the directory entries for every client currently on
// the project.
func (r *projectRepo) RosterClients(ctx context.Context, projectID uuid.UUID) ([]model.Client, error) {
	var clients []model.Client
	err := r.db.WithContext(ctx).
		Joins("JOIN project_clients pc ON pc.client_id = clients.id").
		Where("pc.project_id = ?", projectID).
		Order("clients.name ASC").
		Find(&clients).Error
	return clients, err
}

// ReplaceRoster swaps the project's client roster wholesale. The caller is
// responsible for rederiving agreement statuses afterwards.
func (r *projectRepo) ReplaceRoster(ctx context.Context, ownerID, projectID uuid.UUID, clientIDs []uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.Project
		if err := tx.Where("id = ? AND owner_id = ?", projectID, ownerID).First(&p).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProjectNotFound
			}
			return err
		}
		if err := tx.Where("project_id = ?", projectID).Delete(&model.ProjectClient{}).Error; err != nil {
			return err
		}
		for _, clientID := range clientIDs {
			if err := tx.Create(&model.ProjectClient{ProjectID: projectID, ClientID: clientID}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
