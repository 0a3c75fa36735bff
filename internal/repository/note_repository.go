package repository

import (
	"context"

	"lingua_lms_backend/internal/feed"
	"lingua_lms_backend/internal/model"

	"gorm.io/gorm"
)

type NoteRepository struct {
	DB  *gorm.DB
	Bus feed.Bus
}

func NewNoteRepository(db *gorm.DB, bus feed.Bus) *NoteRepository {
	return &NoteRepository{DB: db, Bus: bus}
}

func (r *NoteRepository) publish(ctx context.Context, action feed.Action, note *model.Note) {
	if r.Bus == nil {
		return
	}
	var row interface{}
	if action != feed.ActionDelete {
		row = note
	}
	_ = r.Bus.Publish(ctx, feed.NewEvent(feed.EntityNote, action, note.NotebookID, note.ID, row))
}

func (r *NoteRepository) Create(ctx context.Context, note *model.Note) error {
	if err := r.DB.WithContext(ctx).Create(note).Error; err != nil {
		return err
	}
	r.publish(ctx, feed.ActionInsert, note)
	return nil
}

func (r *NoteRepository) FindByID(ctx context.Context, id string) (*model.Note, error) {
	var note model.Note
	err := r.DB.WithContext(ctx).First(&note, "id = ?", id).Error
	return &note, err
}

// ListByNotebook returns notes newest first.
func (r *NoteRepository) ListByNotebook(ctx context.Context, notebookID string) ([]model.Note, error) {
	var notes []model.Note
	err := r.DB.WithContext(ctx).
		Where("notebook_id = ?", notebookID).
		Order("created_at DESC").
		Find(&notes).Error
	return notes, err
}

func (r *NoteRepository) Update(ctx context.Context, note *model.Note) error {
	if err := r.DB.WithContext(ctx).Save(note).Error; err != nil {
		return err
	}
	r.publish(ctx, feed.ActionUpdate, note)
	return nil
}

func (r *NoteRepository) Delete(ctx context.Context, id string) error {
	note, err := r.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := r.DB.WithContext(ctx).Delete(&model.Note{}, "id = ?", id).Error; err != nil {
		return err
	}
	r.publish(ctx, feed.ActionDelete, note)
	return nil
}
