package repository

import (
	"context"

	"lingua_lms_backend/internal/feed"
	"lingua_lms_backend/internal/model"

	"gorm.io/gorm"
)

type SourceRepository struct {
	DB  *gorm.DB
	Bus feed.Bus
}

func NewSourceRepository(db *gorm.DB, bus feed.Bus) *SourceRepository {
	return &SourceRepository{DB: db, Bus: bus}
}

func (r *SourceRepository) publish(ctx context.Context, action feed.Action, src *model.Source) {
	if r.Bus == nil {
		return
	}
	var row interface{}
	if action != feed.ActionDelete {
		row = src
	}
	_ = r.Bus.Publish(ctx, feed.NewEvent(feed.EntitySource, action, src.NotebookID, src.ID, row))
}

func (r *SourceRepository) Create(ctx context.Context, src *model.Source) error {
	if err := r.DB.WithContext(ctx).Create(src).Error; err != nil {
		return err
	}
	r.publish(ctx, feed.ActionInsert, src)
	return nil
}

func (r *SourceRepository) FindByID(ctx context.Context, id string) (*model.Source, error) {
	var src model.Source
	err := r.DB.WithContext(ctx).First(&src, "id = ?", id).Error
	return &src, err
}

// ListByNotebook returns sources newest first.
func (r *SourceRepository) ListByNotebook(ctx context.Context, notebookID string) ([]model.Source, error) {
	var srcs []model.Source
	err := r.DB.WithContext(ctx).
		Where("notebook_id = ?", notebookID).
		Order("created_at DESC").
		Find(&srcs).Error
	return srcs, err
}

func (r *SourceRepository) Update(ctx context.Context, src *model.Source) error {
	if err := r.DB.WithContext(ctx).Save(src).Error; err != nil {
		return err
	}
	r.publish(ctx, feed.ActionUpdate, src)
	return nil
}

func (r *SourceRepository) UpdateStatus(ctx context.Context, id string, status model.SourceStatus, summary string) error {
	updates := map[string]interface{}{"status": status}
	if summary != "" {
		updates["summary"] = summary
	}
	if err := r.DB.WithContext(ctx).Model(&model.Source{}).
		Where("id = ?", id).
		Updates(updates).Error; err != nil {
		return err
	}
	src, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	r.publish(ctx, feed.ActionUpdate, src)
	return nil
}

func (r *SourceRepository) Delete(ctx context.Context, id string) error {
	src, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.DB.WithContext(ctx).Delete(&model.Source{}, "id = ?", id).Error; err != nil {
		return err
	}
	r.publish(ctx, feed.ActionDelete, src)
	return nil
}
