package service

import (
	"encoding/json"
	"fmt"
	"testing"

	"lingua_lms_backend/internal/feed"
)

func rawRow(t *testing.T, v interface{}) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal row: %v", err)
	}
	return data
}

func TestCacheInsertIsIdempotent(t *testing.T) {
	cache := NewQueryCache()
	cache.Put(feed.EntityNotebook, "7", nil)

	row := rawRow(t, map[string]interface{}{"id": "nb-1", "week": 2})
	ev := feed.Event{Entity: feed.EntityNotebook, Action: feed.ActionInsert, OwnerID: "7", RowID: "nb-1", Row: row}

	cache.ApplyEvent(ev)
	cache.ApplyEvent(ev)

	rows, ok := cache.Get(feed.EntityNotebook, "7")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row after duplicate insert, got %d", len(rows))
	}
}

func TestCacheUpdateMissingRowIsNoop(t *testing.T) {
	cache := NewQueryCache()
	cache.Put(feed.EntityNote, "nb-1", nil)

	cache.ApplyEvent(feed.Event{
		Entity: feed.EntityNote, Action: feed.ActionUpdate, OwnerID: "nb-1", RowID: "missing",
		Row: rawRow(t, map[string]interface{}{"id": "missing", "title": "ghost"}),
	})

	rows, ok := cache.Get(feed.EntityNote, "nb-1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if len(rows) != 0 {
		t.Fatalf("expected empty collection, got %d rows", len(rows))
	}
}

func TestCacheDeleteRemovesRow(t *testing.T) {
	cache := NewQueryCache()
	cache.Put(feed.EntityNote, "nb-1", []json.RawMessage{
		rawRow(t, map[string]interface{}{"id": "n-1", "title": "keep"}),
		rawRow(t, map[string]interface{}{"id": "n-2", "title": "drop"}),
	})

	cache.ApplyEvent(feed.Event{Entity: feed.EntityNote, Action: feed.ActionDelete, OwnerID: "nb-1", RowID: "n-2"})

	rows, _ := cache.Get(feed.EntityNote, "nb-1")
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	var got struct {
		ID string `json:"id"`
	}
	json.Unmarshal(rows[0], &got)
	if got.ID != "n-1" {
		t.Fatalf("wrong row survived: %s", got.ID)
	}
}

func TestCacheUnloadedKeyIgnoresEvents(t *testing.T) {
	cache := NewQueryCache()
	cache.ApplyEvent(feed.Event{
		Entity: feed.EntityNotebook, Action: feed.ActionInsert, OwnerID: "9", RowID: "nb-1",
		Row: rawRow(t, map[string]interface{}{"id": "nb-1", "week": 1}),
	})
	if _, ok := cache.Get(feed.EntityNotebook, "9"); ok {
		t.Fatal("expected miss for never-loaded key")
	}
}

func TestCacheNotebookOrderByWeek(t *testing.T) {
	cache := NewQueryCache()
	cache.Put(feed.EntityNotebook, "7", []json.RawMessage{
		rawRow(t, map[string]interface{}{"id": "nb-5", "week": 5}),
		rawRow(t, map[string]interface{}{"id": "nb-1", "week": 1}),
	})

	cache.ApplyEvent(feed.Event{
		Entity: feed.EntityNotebook, Action: feed.ActionInsert, OwnerID: "7", RowID: "nb-3",
		Row: rawRow(t, map[string]interface{}{"id": "nb-3", "week": 3}),
	})

	rows, _ := cache.Get(feed.EntityNotebook, "7")
	var weeks []int
	for _, r := range rows {
		var f struct {
			Week int `json:"week"`
		}
		json.Unmarshal(r, &f)
		weeks = append(weeks, f.Week)
	}
	for i, want := range []int{1, 3, 5} {
		if weeks[i] != want {
			t.Fatalf("position %d: week %d, want %d", i, weeks[i], want)
		}
	}
}

func TestCacheChatOrderBySequence(t *testing.T) {
	cache := NewQueryCache()
	cache.PutChat("nb-1", nil, nil)

	for _, seq := range []int{3, 1, 2} {
		cache.ApplyEvent(feed.Event{
			Entity: feed.EntityChat, Action: feed.ActionInsert, OwnerID: "nb-1",
			RowID: fmt.Sprintf("%d", seq),
			Row:   rawRow(t, map[string]interface{}{"content": fmt.Sprintf("m%d", seq)}),
		})
	}

	rows, _ := cache.Get(feed.EntityChat, "nb-1")
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	var first struct {
		Content string `json:"content"`
	}
	json.Unmarshal(rows[0], &first)
	if first.Content != "m1" {
		t.Fatalf("first message = %q, want m1", first.Content)
	}
}

func TestCacheProvisionalMessageSortsLast(t *testing.T) {
	cache := NewQueryCache()
	cache.PutChat("nb-1", []string{"1", "2"}, []json.RawMessage{
		rawRow(t, map[string]interface{}{"content": "first"}),
		rawRow(t, map[string]interface{}{"content": "second"}),
	})

	cache.ApplyEvent(feed.Event{
		Entity: feed.EntityChat, Action: feed.ActionInsert, OwnerID: "nb-1", RowID: "temp-abc",
		Row: rawRow(t, map[string]interface{}{"clientMsgId": "temp-abc", "content": "just sent"}),
	})

	assertOrder := func(want []string) {
		t.Helper()
		rows, _ := cache.Get(feed.EntityChat, "nb-1")
		if len(rows) != len(want) {
			t.Fatalf("expected %d rows, got %d", len(want), len(rows))
		}
		for i, raw := range rows {
			var f struct {
				Content string `json:"content"`
			}
			json.Unmarshal(raw, &f)
			if f.Content != want[i] {
				t.Fatalf("position %d: %q, want %q", i, f.Content, want[i])
			}
		}
	}

	// A message without a database id yet belongs at the end of the
	// transcript, not the top.
	assertOrder([]string{"first", "second", "just sent"})

	// The authoritative row keeps that position once it arrives.
	cache.ApplyEvent(feed.Event{
		Entity: feed.EntityChat, Action: feed.ActionInsert, OwnerID: "nb-1", RowID: "3",
		Row: rawRow(t, map[string]interface{}{"clientMsgId": "temp-abc", "content": "just sent"}),
	})
	assertOrder([]string{"first", "second", "just sent"})
}

func TestCacheTempMessageReconciliation(t *testing.T) {
	cache := NewQueryCache()
	cache.PutChat("nb-1", nil, nil)

	// Provisional copy arrives first, before the row has a database id.
	cache.ApplyEvent(feed.Event{
		Entity: feed.EntityChat, Action: feed.ActionInsert, OwnerID: "nb-1", RowID: "temp-abc",
		Row: rawRow(t, map[string]interface{}{"clientMsgId": "temp-abc", "content": "hello"}),
	})
	rows, _ := cache.Get(feed.EntityChat, "nb-1")
	if len(rows) != 1 {
		t.Fatalf("provisional message not visible: %d rows", len(rows))
	}

	// Authoritative row carries the same client id and replaces it.
	cache.ApplyEvent(feed.Event{
		Entity: feed.EntityChat, Action: feed.ActionInsert, OwnerID: "nb-1", RowID: "42",
		Row: rawRow(t, map[string]interface{}{"clientMsgId": "temp-abc", "content": "hello"}),
	})
	rows, _ = cache.Get(feed.EntityChat, "nb-1")
	if len(rows) != 1 {
		t.Fatalf("expected exactly one visible message, got %d", len(rows))
	}

	// Replaying the authoritative insert changes nothing.
	cache.ApplyEvent(feed.Event{
		Entity: feed.EntityChat, Action: feed.ActionInsert, OwnerID: "nb-1", RowID: "42",
		Row: rawRow(t, map[string]interface{}{"clientMsgId": "temp-abc", "content": "hello"}),
	})
	rows, _ = cache.Get(feed.EntityChat, "nb-1")
	if len(rows) != 1 {
		t.Fatalf("replay broke idempotence: %d rows", len(rows))
	}
}

func TestCacheFailedSendRetraction(t *testing.T) {
	cache := NewQueryCache()
	cache.PutChat("nb-1", nil, nil)

	cache.ApplyEvent(feed.Event{
		Entity: feed.EntityChat, Action: feed.ActionInsert, OwnerID: "nb-1", RowID: "temp-x",
		Row: rawRow(t, map[string]interface{}{"clientMsgId": "temp-x", "content": "doomed"}),
	})
	cache.ApplyEvent(feed.Event{Entity: feed.EntityChat, Action: feed.ActionDelete, OwnerID: "nb-1", RowID: "temp-x"})

	rows, _ := cache.Get(feed.EntityChat, "nb-1")
	if len(rows) != 0 {
		t.Fatalf("retracted message still visible: %d rows", len(rows))
	}
}

func TestCacheMarkStaleForcesRefetch(t *testing.T) {
	cache := NewQueryCache()
	cache.Put(feed.EntitySource, "nb-1", []json.RawMessage{
		rawRow(t, map[string]interface{}{"id": "s-1"}),
	})

	cache.MarkStale(feed.EntitySource, "nb-1")
	if _, ok := cache.Get(feed.EntitySource, "nb-1"); ok {
		t.Fatal("expected miss after MarkStale")
	}
}
