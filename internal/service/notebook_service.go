package service

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"

	"lingua_lms_backend/internal/feed"
	"lingua_lms_backend/internal/model"
	"lingua_lms_backend/internal/repository"
	"lingua_lms_backend/internal/util"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// NotebookService fronts the notebook, source and note repositories with a
// per-process query cache. Reads serve from the cache when it is warm;
// writes go through the repositories, which publish change-feed events, and
// the service's own feed subscription is the only code path that patches
// cached rows.
type NotebookService struct {
	Notebooks *repository.NotebookRepository
	Sources   *repository.SourceRepository
	Notes     *repository.NoteRepository
	Cache     *QueryCache
	Bus       feed.Bus
	Log       *zap.Logger

	unsubscribe func()
}

func NewNotebookService(notebooks *repository.NotebookRepository, sources *repository.SourceRepository, notes *repository.NoteRepository, bus feed.Bus, log *zap.Logger) *NotebookService {
	return &NotebookService{
		Notebooks: notebooks,
		Sources:   sources,
		Notes:     notes,
		Cache:     NewQueryCache(),
		Bus:       bus,
		Log:       log,
	}
}

// Start attaches the cache to the change feed. Must be paired with Stop.
func (s *NotebookService) Start(ctx context.Context) error {
	unsub, err := s.Bus.Subscribe(ctx, s.Cache.ApplyEvent)
	if err != nil {
		return err
	}
	s.unsubscribe = unsub
	return nil
}

func (s *NotebookService) Stop() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func ownerKey(ownerID uint) string {
	return strconv.FormatUint(uint64(ownerID), 10)
}

func marshalRows[T any](rows []T) []json.RawMessage {
	out := make([]json.RawMessage, 0, len(rows))
	for i := range rows {
		data, err := json.Marshal(rows[i])
		if err != nil {
			continue
		}
		out = append(out, data)
	}
	return out
}

// ListNotebooks returns the owner's notebooks ordered by week, serving from
// the cache when possible.
func (s *NotebookService) ListNotebooks(ctx context.Context, ownerID uint) ([]json.RawMessage, error) {
	key := ownerKey(ownerID)
	if rows, ok := s.Cache.Get(feed.EntityNotebook, key); ok {
		return rows, nil
	}

	notebooks, err := s.Notebooks.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	rows := marshalRows(notebooks)
	s.Cache.Put(feed.EntityNotebook, key, rows)
	return rows, nil
}

func (s *NotebookService) GetNotebook(ctx context.Context, ownerID uint, id string) (*model.Notebook, error) {
	nb, err := s.Notebooks.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNotebookNotFound
	}
	if err != nil {
		return nil, err
	}
	if nb.OwnerID != ownerID {
		return nil, util.ErrNotOwner
	}
	return nb, nil
}

type NotebookInput struct {
	Week        int    `json:"week" binding:"required,min=1"`
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

func (s *NotebookService) CreateNotebook(ctx context.Context, ownerID uint, input NotebookInput) (*model.Notebook, error) {
	nb := &model.Notebook{
		OwnerID:     ownerID,
		Week:        input.Week,
		Title:       input.Title,
		Description: input.Description,
		Icon:        input.Icon,
		Status:      model.NotebookPending,
	}
	if err := s.Notebooks.Create(ctx, nb); err != nil {
		return nil, err
	}
	s.Cache.MarkStale(feed.EntityNotebook, ownerKey(ownerID))
	return nb, nil
}

type NotebookPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Icon        *string `json:"icon"`
	Week        *int    `json:"week"`
}

func (s *NotebookService) UpdateNotebook(ctx context.Context, ownerID uint, id string, patch NotebookPatch) (*model.Notebook, error) {
	nb, err := s.GetNotebook(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if patch.Title != nil {
		nb.Title = *patch.Title
	}
	if patch.Description != nil {
		nb.Description = *patch.Description
	}
	if patch.Icon != nil {
		nb.Icon = *patch.Icon
	}
	if patch.Week != nil {
		nb.Week = *patch.Week
	}
	if err := s.Notebooks.Update(ctx, nb); err != nil {
		return nil, err
	}
	s.Cache.MarkStale(feed.EntityNotebook, ownerKey(ownerID))
	return nb, nil
}

func (s *NotebookService) DeleteNotebook(ctx context.Context, ownerID uint, id string) error {
	if _, err := s.GetNotebook(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.Notebooks.Delete(ctx, id); err != nil {
		return err
	}
	s.Cache.MarkStale(feed.EntityNotebook, ownerKey(ownerID))
	s.Cache.MarkStale(feed.EntitySource, id)
	s.Cache.MarkStale(feed.EntityNote, id)
	return nil
}

// ListSources returns a notebook's sources newest first.
func (s *NotebookService) ListSources(ctx context.Context, ownerID uint, notebookID string) ([]json.RawMessage, error) {
	if _, err := s.GetNotebook(ctx, ownerID, notebookID); err != nil {
		return nil, err
	}
	if rows, ok := s.Cache.Get(feed.EntitySource, notebookID); ok {
		return rows, nil
	}
	sources, err := s.Sources.ListByNotebook(ctx, notebookID)
	if err != nil {
		return nil, err
	}
	rows := marshalRows(sources)
	s.Cache.Put(feed.EntitySource, notebookID, rows)
	return rows, nil
}

type SourceInput struct {
	Type  model.SourceType `json:"type" binding:"required"`
	Title string           `json:"title" binding:"required"`
	URL   string           `json:"url"`
}

func (s *NotebookService) AddSource(ctx context.Context, ownerID uint, notebookID string, input SourceInput, storagePath string, durationSeconds int) (*model.Source, error) {
	if _, err := s.GetNotebook(ctx, ownerID, notebookID); err != nil {
		return nil, err
	}
	src := &model.Source{
		NotebookID:      notebookID,
		Type:            input.Type,
		Title:           input.Title,
		URL:             input.URL,
		StoragePath:     storagePath,
		DurationSeconds: durationSeconds,
		Status:          model.SourcePending,
	}
	if err := s.Sources.Create(ctx, src); err != nil {
		return nil, err
	}
	s.Cache.MarkStale(feed.EntitySource, notebookID)
	return src, nil
}

// SourcePatch carries the fields a client may edit after ingestion.
type SourcePatch struct {
	Title *string `json:"title"`
	URL   *string `json:"url"`
}

func (s *NotebookService) UpdateSource(ctx context.Context, ownerID uint, notebookID, sourceID string, patch SourcePatch) (*model.Source, error) {
	if _, err := s.GetNotebook(ctx, ownerID, notebookID); err != nil {
		return nil, err
	}
	src, err := s.Sources.FindByID(ctx, sourceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrSourceNotFound
	}
	if err != nil {
		return nil, err
	}
	if src.NotebookID != notebookID {
		return nil, util.ErrSourceNotFound
	}
	if patch.Title != nil {
		src.Title = *patch.Title
	}
	if patch.URL != nil {
		src.URL = *patch.URL
	}
	if err := s.Sources.Update(ctx, src); err != nil {
		return nil, err
	}
	s.Cache.MarkStale(feed.EntitySource, notebookID)
	return src, nil
}

func (s *NotebookService) DeleteSource(ctx context.Context, ownerID uint, notebookID, sourceID string) error {
	if _, err := s.GetNotebook(ctx, ownerID, notebookID); err != nil {
		return err
	}
	src, err := s.Sources.FindByID(ctx, sourceID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrSourceNotFound
	}
	if err != nil {
		return err
	}
	if src.NotebookID != notebookID {
		return util.ErrSourceNotFound
	}
	if err := s.Sources.Delete(ctx, sourceID); err != nil {
		return err
	}
	s.Cache.MarkStale(feed.EntitySource, notebookID)
	return nil
}

// ListNotes returns a notebook's notes newest first.
func (s *NotebookService) ListNotes(ctx context.Context, ownerID uint, notebookID string) ([]json.RawMessage, error) {
	if _, err := s.GetNotebook(ctx, ownerID, notebookID); err != nil {
		return nil, err
	}
	if rows, ok := s.Cache.Get(feed.EntityNote, notebookID); ok {
		return rows, nil
	}
	notes, err := s.Notes.ListByNotebook(ctx, notebookID)
	if err != nil {
		return nil, err
	}
	rows := marshalRows(notes)
	s.Cache.Put(feed.EntityNote, notebookID, rows)
	return rows, nil
}

type NoteInput struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content"`
}

func (s *NotebookService) CreateNote(ctx context.Context, ownerID uint, notebookID string, input NoteInput) (*model.Note, error) {
	if _, err := s.GetNotebook(ctx, ownerID, notebookID); err != nil {
		return nil, err
	}
	note := &model.Note{
		NotebookID: notebookID,
		OwnerID:    ownerID,
		Title:      input.Title,
		Content:    input.Content,
	}
	if err := s.Notes.Create(ctx, note); err != nil {
		return nil, err
	}
	s.Cache.MarkStale(feed.EntityNote, notebookID)
	return note, nil
}

func (s *NotebookService) UpdateNote(ctx context.Context, ownerID uint, notebookID, noteID string, input NoteInput) (*model.Note, error) {
	if _, err := s.GetNotebook(ctx, ownerID, notebookID); err != nil {
		return nil, err
	}
	note, err := s.Notes.FindByID(ctx, noteID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrNoteNotFound
	}
	if err != nil {
		return nil, err
	}
	if note.NotebookID != notebookID {
		return nil, util.ErrNoteNotFound
	}
	note.Title = input.Title
	note.Content = input.Content
	if err := s.Notes.Update(ctx, note); err != nil {
		return nil, err
	}
	s.Cache.MarkStale(feed.EntityNote, notebookID)
	return note, nil
}

func (s *NotebookService) DeleteNote(ctx context.Context, ownerID uint, notebookID, noteID string) error {
	if _, err := s.GetNotebook(ctx, ownerID, notebookID); err != nil {
		return err
	}
	note, err := s.Notes.FindByID(ctx, noteID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return util.ErrNoteNotFound
	}
	if err != nil {
		return err
	}
	if note.NotebookID != notebookID {
		return util.ErrNoteNotFound
	}
	if err := s.Notes.Delete(ctx, noteID); err != nil {
		return err
	}
	s.Cache.MarkStale(feed.EntityNote, notebookID)
	return nil
}
