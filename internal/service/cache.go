package service

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"lingua_lms_backend/internal/feed"
)

// cacheKey identifies one cached collection: an entity plus the owner that
// scopes it (user id for notebooks, notebook id for nested rows).
type cacheKey struct {
	Entity  feed.Entity
	OwnerID string
}

type cachedRow struct {
	ID          string
	ClientMsgID string
	Week        int
	CreatedAt   time.Time
	Seq         uint64
	Row         json.RawMessage
}

type cacheEntry struct {
	rows   []cachedRow
	loaded bool
	stale  bool
}

// QueryCache holds per-owner collections patched in place by change-feed
// events. Applying an event twice, or an update for a row that was never
// cached, leaves the cache unchanged.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[cacheKey]*cacheEntry
}

func NewQueryCache() *QueryCache {
	return &QueryCache{entries: make(map[cacheKey]*cacheEntry)}
}

// rowFields is the slice of a row payload the cache needs for identity and
// ordering. Everything else stays opaque.
// The id field is a uuid string for most entities but a number for chat
// rows, so it stays loosely typed here.
type rowFields struct {
	ID          interface{} `json:"id"`
	ClientMsgID string      `json:"clientMsgId"`
	Week        int         `json:"week"`
	CreatedAt   string      `json:"createdAt"`
}

func decodeRow(entity feed.Entity, rowID string, raw json.RawMessage) cachedRow {
	row := cachedRow{ID: rowID, Row: raw}
	var f rowFields
	if err := json.Unmarshal(raw, &f); err == nil {
		row.ClientMsgID = f.ClientMsgID
		row.Week = f.Week
		if t, err := time.Parse(time.RFC3339Nano, f.CreatedAt); err == nil {
			row.CreatedAt = t
		}
	}
	if entity == feed.EntityChat {
		seq, err := strconv.ParseUint(rowID, 10, 64)
		if err != nil {
			// Provisional rows carry a temp- id. They sort after every
			// persisted message until the authoritative row replaces them.
			seq = math.MaxUint64
		}
		row.Seq = seq
	}
	return row
}

// sortRows applies the collection's natural order: notebooks by week
// ascending, sources and notes newest first, chat by sequence ascending.
func sortRows(entity feed.Entity, rows []cachedRow) {
	switch entity {
	case feed.EntityNotebook:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Week < rows[j].Week })
	case feed.EntitySource, feed.EntityNote:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	case feed.EntityChat:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Seq < rows[j].Seq })
	}
}

// Put replaces the cached collection for a key with freshly fetched rows.
func (c *QueryCache) Put(entity feed.Entity, ownerID string, rawRows []json.RawMessage) {
	rows := make([]cachedRow, 0, len(rawRows))
	for _, raw := range rawRows {
		var f rowFields
		id := ""
		if err := json.Unmarshal(raw, &f); err == nil {
			id, _ = f.ID.(string)
		}
		rows = append(rows, decodeRow(entity, id, raw))
	}
	sortRows(entity, rows)

	c.mu.Lock()
	c.entries[cacheKey{entity, ownerID}] = &cacheEntry{rows: rows, loaded: true}
	c.mu.Unlock()
}

// PutChat caches a chat transcript whose identity travels as the numeric
// row id, which is absent from the JSON payload's string fields.
func (c *QueryCache) PutChat(ownerID string, ids []string, rawRows []json.RawMessage) {
	rows := make([]cachedRow, 0, len(rawRows))
	for i, raw := range rawRows {
		rows = append(rows, decodeRow(feed.EntityChat, ids[i], raw))
	}
	sortRows(feed.EntityChat, rows)

	c.mu.Lock()
	c.entries[cacheKey{feed.EntityChat, ownerID}] = &cacheEntry{rows: rows, loaded: true}
	c.mu.Unlock()
}

// Get returns the cached rows in natural order. ok is false when the key
// was never loaded or has been marked stale.
func (c *QueryCache) Get(entity feed.Entity, ownerID string) ([]json.RawMessage, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[cacheKey{entity, ownerID}]
	if !ok || !entry.loaded || entry.stale {
		return nil, false
	}
	out := make([]json.RawMessage, len(entry.rows))
	for i, r := range entry.rows {
		out[i] = r.Row
	}
	return out, true
}

// MarkStale forces the next Get to miss so the caller refetches.
func (c *QueryCache) MarkStale(entity feed.Entity, ownerID string) {
	c.mu.Lock()
	if entry, ok := c.entries[cacheKey{entity, ownerID}]; ok {
		entry.stale = true
	}
	c.mu.Unlock()
}

// ApplyEvent patches the cached collection for the event's key. Keys that
// were never loaded are ignored; a later fetch will see the row anyway.
//
// INSERT appends only when the row id is new; a row carrying the client
// message id of an existing provisional row replaces it, so an optimistic
// chat message and its authoritative copy never both stay visible.
// UPDATE replaces by id and is a no-op for ids not present.
// DELETE removes by id, matching the provisional client id as a fallback.
func (c *QueryCache) ApplyEvent(ev feed.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[cacheKey{ev.Entity, ev.OwnerID}]
	if !ok || !entry.loaded {
		return
	}

	switch ev.Action {
	case feed.ActionInsert:
		incoming := decodeRow(ev.Entity, ev.RowID, ev.Row)
		for i, r := range entry.rows {
			if r.ID == ev.RowID {
				return
			}
			if incoming.ClientMsgID != "" && r.ClientMsgID == incoming.ClientMsgID {
				entry.rows[i] = incoming
				sortRows(ev.Entity, entry.rows)
				return
			}
		}
		entry.rows = append(entry.rows, incoming)
		sortRows(ev.Entity, entry.rows)

	case feed.ActionUpdate:
		for i, r := range entry.rows {
			if r.ID == ev.RowID {
				entry.rows[i] = decodeRow(ev.Entity, ev.RowID, ev.Row)
				sortRows(ev.Entity, entry.rows)
				return
			}
		}

	case feed.ActionDelete:
		for i, r := range entry.rows {
			if r.ID == ev.RowID || (ev.RowID != "" && r.ClientMsgID == ev.RowID) {
				entry.rows = append(entry.rows[:i], entry.rows[i+1:]...)
				return
			}
		}
	}
}

// Invalidate drops every cached collection. Used when the feed connection
// is lost and events may have been missed.
func (c *QueryCache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[cacheKey]*cacheEntry)
	c.mu.Unlock()
}
