// Package coursestore holds the instructor-authored course catalog as a
// single JSON document behind a pluggable key/value backend. All operations
// follow a read-modify-write discipline over the whole document; the store is
// the only writer within one process.
package coursestore

import (
	"time"
)

// Storage keys. One key holds the whole course document, one the generated
// local instructor identity, one the exam documents.
const (
	CoursesKey    = "lingua.courses"
	InstructorKey = "lingua.instructor_id"
	ExamsKey      = "lingua.exams"
)

type ItemType string

const (
	ItemLecture    ItemType = "lecture"
	ItemReading    ItemType = "reading"
	ItemAssignment ItemType = "assignment"
	ItemQuiz       ItemType = "quiz"
	ItemResource   ItemType = "resource"
	ItemZoom       ItemType = "zoom"
	ItemURL        ItemType = "url"
	ItemYoutube    ItemType = "youtube"
	ItemFile       ItemType = "file"
	ItemFolder     ItemType = "folder"
	ItemPage       ItemType = "page"
	ItemBook       ItemType = "book"
	ItemText       ItemType = "text"
)

// MeetingInfo is the type-specific payload of zoom items.
type MeetingInfo struct {
	MeetingID string    `json:"meetingId"`
	Passcode  string    `json:"passcode,omitempty"`
	JoinURL   string    `json:"joinUrl,omitempty"`
	StartTime time.Time `json:"startTime,omitempty"`
}

// ContentItem belongs to exactly one week, either directly or through a day.
// Hidden only affects presentation and never deletes data.
type ContentItem struct {
	ID          string       `json:"id"`
	Type        ItemType     `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	URL         string       `json:"url,omitempty"`
	Duration    int          `json:"duration,omitempty"` // minutes
	Hidden      bool         `json:"hidden"`
	Meeting     *MeetingInfo `json:"meeting,omitempty"`
}

// Day is a legacy nesting level kept for older course documents.
type Day struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	Items []ContentItem `json:"items"`
}

// Week numbers are contiguous 1..N within a course and are recomputed after
// a removal.
type Week struct {
	ID        string        `json:"id"`
	Number    int           `json:"number"`
	Title     string        `json:"title"`
	StartDate *time.Time    `json:"startDate,omitempty"`
	Items     []ContentItem `json:"items"`
	Days      []Day         `json:"days,omitempty"`
}

type Course struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Level         string   `json:"level"`
	Description   string   `json:"description,omitempty"`
	Published     bool     `json:"published"`
	InstructorIDs []string `json:"instructorIds"`
	Weeks         []Week   `json:"weeks"`
}

// ItemLocation addresses the list an item lives in: the week's direct list
// when DayID is empty, a day's list otherwise.
type ItemLocation struct {
	WeekID string
	DayID  string
}

func WeekLevel(weekID string) ItemLocation {
	return ItemLocation{WeekID: weekID}
}

func DayLevel(weekID, dayID string) ItemLocation {
	return ItemLocation{WeekID: weekID, DayID: dayID}
}

func (l ItemLocation) dayScoped() bool { return l.DayID != "" }

// Document is the persisted envelope. Version is bumped on every successful
// mutation; imports carrying an older base version are rejected.
type Document struct {
	Version int64    `json:"version"`
	Courses []Course `json:"courses"`
}
