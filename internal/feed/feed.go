// Package feed carries row-level insert/update/delete events from the
// repositories to every in-process consumer (query caches, the websocket
// hub). It is the single path by which cached collections are mutated.
package feed

import (
	"context"
	"encoding/json"
)

type Action string

const (
	ActionInsert Action = "INSERT"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

type Entity string

const (
	EntityNotebook Entity = "notebooks"
	EntitySource   Entity = "sources"
	EntityNote     Entity = "notes"
	EntityChat     Entity = "chat_messages"
)

// Event is one row-level change. OwnerID scopes subscriptions: the owning
// user id for notebooks, the notebook id for everything nested under one.
type Event struct {
	Entity  Entity          `json:"entity"`
	Action  Action          `json:"action"`
	OwnerID string          `json:"ownerId"`
	RowID   string          `json:"rowId"`
	Row     json.RawMessage `json:"row,omitempty"`
}

// Marshal encodes row into an event payload. Row may be nil for deletes.
func NewEvent(entity Entity, action Action, ownerID, rowID string, row interface{}) Event {
	ev := Event{Entity: entity, Action: action, OwnerID: ownerID, RowID: rowID}
	if row != nil {
		data, err := json.Marshal(row)
		if err == nil {
			ev.Row = data
		}
	}
	return ev
}

// Bus fans events out to subscribers. Unsubscribe handles returned by
// Subscribe must be called on teardown to release the connection.
type Bus interface {
	Publish(ctx context.Context, ev Event) error
	Subscribe(ctx context.Context, fn func(Event)) (unsubscribe func(), err error)
}
