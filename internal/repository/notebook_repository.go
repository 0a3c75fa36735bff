package repository

import (
	"context"
	"strconv"

	"lingua_lms_backend/internal/feed"
	"lingua_lms_backend/internal/model"

	"gorm.io/gorm"
)

// NotebookRepository writes notebooks and publishes a feed event after every
// successful mutation. The feed, not the repository, is what patches cached
// collections.
type NotebookRepository struct {
	DB  *gorm.DB
	Bus feed.Bus
}

func NewNotebookRepository(db *gorm.DB, bus feed.Bus) *NotebookRepository {
	return &NotebookRepository{DB: db, Bus: bus}
}

func ownerKey(ownerID uint) string {
	return strconv.FormatUint(uint64(ownerID), 10)
}

func (r *NotebookRepository) publish(ctx context.Context, action feed.Action, nb *model.Notebook) {
	if r.Bus == nil {
		return
	}
	var row interface{}
	if action != feed.ActionDelete {
		row = nb
	}
	_ = r.Bus.Publish(ctx, feed.NewEvent(feed.EntityNotebook, action, ownerKey(nb.OwnerID), nb.ID, row))
}

func (r *NotebookRepository) Create(ctx context.Context, nb *model.Notebook) error {
	if err := r.DB.WithContext(ctx).Create(nb).Error; err != nil {
		return err
	}
	r.publish(ctx, feed.ActionInsert, nb)
	return nil
}

func (r *NotebookRepository) FindByID(ctx context.Context, id string) (*model.Notebook, error) {
	var nb model.Notebook
	err := r.DB.WithContext(ctx).Preload("Sources").First(&nb, "id = ?", id).Error
	return &nb, err
}

// ListByOwner returns the owner's notebooks by week ascending, the natural
// order of the collection.
func (r *NotebookRepository) ListByOwner(ctx context.Context, ownerID uint) ([]model.Notebook, error) {
	var nbs []model.Notebook
	err := r.DB.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("week ASC").
		Find(&nbs).Error
	return nbs, err
}

func (r *NotebookRepository) Update(ctx context.Context, nb *model.Notebook) error {
	if err := r.DB.WithContext(ctx).Save(nb).Error; err != nil {
		return err
	}
	r.publish(ctx, feed.ActionUpdate, nb)
	return nil
}

func (r *NotebookRepository) UpdateStatus(ctx context.Context, id string, status model.NotebookStatus) error {
	if err := r.DB.WithContext(ctx).Model(&model.Notebook{}).
		Where("id = ?", id).
		Update("status", status).Error; err != nil {
		return err
	}
	nb, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	r.publish(ctx, feed.ActionUpdate, nb)
	return nil
}

// Delete removes the notebook and everything nested under it.
func (r *NotebookRepository) Delete(ctx context.Context, id string) error {
	nb, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("notebook_id = ?", id).Delete(&model.Source{}).Error; err != nil {
			return err
		}
		if err := tx.Where("notebook_id = ?", id).Delete(&model.Note{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ?", id).Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Notebook{}, "id = ?", id).Error
	})
	if err != nil {
		return err
	}
	r.publish(ctx, feed.ActionDelete, nb)
	return nil
}
