package repository

import (
	"context"
	"strconv"
	"testing"

	"lingua_lms_backend/internal/feed"
	"lingua_lms_backend/internal/model"
)

func TestNotebookCreatePublishesInsert(t *testing.T) {
	db := testDB(t)
	bus := feed.NewMemoryBus()
	repo := NewNotebookRepository(db, bus)
	owner := seedUser(t, db, "a@example.com")

	var events []feed.Event
	unsub, err := bus.Subscribe(context.Background(), func(ev feed.Event) {
		events = append(events, ev)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	nb := &model.Notebook{OwnerID: owner.ID, Week: 3, Title: "Week 3", Status: model.NotebookPending}
	if err := repo.Create(context.Background(), nb); err != nil {
		t.Fatalf("create: %v", err)
	}
	if nb.ID == "" {
		t.Fatal("expected generated uuid")
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(events))
	}
	ev := events[0]
	if ev.Entity != feed.EntityNotebook || ev.Action != feed.ActionInsert {
		t.Fatalf("unexpected event %s/%s", ev.Entity, ev.Action)
	}
	if ev.OwnerID != strconv.FormatUint(uint64(owner.ID), 10) {
		t.Fatalf("owner id = %q", ev.OwnerID)
	}
	if ev.RowID != nb.ID {
		t.Fatalf("row id = %q, want %q", ev.RowID, nb.ID)
	}
}

func TestNotebookListByOwnerOrdersByWeek(t *testing.T) {
	db := testDB(t)
	repo := NewNotebookRepository(db, feed.NewMemoryBus())
	owner := seedUser(t, db, "a@example.com")
	other := seedUser(t, db, "b@example.com")

	for _, week := range []int{5, 1, 3} {
		seedNotebook(t, db, owner.ID, week)
	}
	seedNotebook(t, db, other.ID, 2)

	got, err := repo.ListByOwner(context.Background(), owner.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 notebooks, got %d", len(got))
	}
	for i, want := range []int{1, 3, 5} {
		if got[i].Week != want {
			t.Fatalf("position %d: week = %d, want %d", i, got[i].Week, want)
		}
	}
}

func TestNotebookDeleteRemovesChildrenAndPublishes(t *testing.T) {
	db := testDB(t)
	bus := feed.NewMemoryBus()
	repo := NewNotebookRepository(db, bus)
	owner := seedUser(t, db, "a@example.com")
	nb := seedNotebook(t, db, owner.ID, 1)

	srcRepo := NewSourceRepository(db, bus)
	src := &model.Source{NotebookID: nb.ID, Type: model.SourceText, Title: "Reading", Status: model.SourceCompleted}
	if err := srcRepo.Create(context.Background(), src); err != nil {
		t.Fatalf("create source: %v", err)
	}
	noteRepo := NewNoteRepository(db, bus)
	note := &model.Note{NotebookID: nb.ID, OwnerID: owner.ID, Title: "N", Content: "c"}
	if err := noteRepo.Create(context.Background(), note); err != nil {
		t.Fatalf("create note: %v", err)
	}

	var deletes []feed.Event
	unsub, err := bus.Subscribe(context.Background(), func(ev feed.Event) {
		if ev.Action == feed.ActionDelete {
			deletes = append(deletes, ev)
		}
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer unsub()

	if err := repo.Delete(context.Background(), nb.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.FindByID(context.Background(), nb.ID); err == nil {
		t.Fatal("expected notebook gone")
	}
	left, err := srcRepo.ListByNotebook(context.Background(), nb.ID)
	if err != nil {
		t.Fatalf("list sources: %v", err)
	}
	if len(left) != 0 {
		t.Fatalf("expected sources removed, got %d", len(left))
	}
	if len(deletes) != 1 || deletes[0].Entity != feed.EntityNotebook {
		t.Fatalf("expected one notebook DELETE event, got %v", deletes)
	}
}

func TestSourceUpdateStatusSetsSummary(t *testing.T) {
	db := testDB(t)
	repo := NewSourceRepository(db, feed.NewMemoryBus())
	owner := seedUser(t, db, "a@example.com")
	nb := seedNotebook(t, db, owner.ID, 1)

	src := &model.Source{NotebookID: nb.ID, Type: model.SourcePDF, Title: "Slides", Status: model.SourceProcessing}
	if err := repo.Create(context.Background(), src); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.UpdateStatus(context.Background(), src.ID, model.SourceCompleted, "ten pages of grammar drills"); err != nil {
		t.Fatalf("update status: %v", err)
	}
	got, err := repo.FindByID(context.Background(), src.ID)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != model.SourceCompleted || got.Summary != "ten pages of grammar drills" {
		t.Fatalf("got status=%s summary=%q", got.Status, got.Summary)
	}
}
