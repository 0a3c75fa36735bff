package coursestore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrNotFound is returned when an id path (course/week/day/item) does
	// not resolve. Failed calls never touch the persisted document.
	ErrNotFound = errors.New("coursestore: not found")

	// ErrStaleDocument rejects imports whose base version is older than the
	// persisted document.
	ErrStaleDocument = errors.New("coursestore: stale document version")
)

// PersistError reports a mutation that was applied to the in-memory document
// but could not be written to the backend. The returned value is still valid;
// the caller decides whether to retry or surface the durability gap.
type PersistError struct {
	Err error
}

func (e *PersistError) Error() string {
	return "coursestore: applied in memory, persist failed: " + e.Err.Error()
}

func (e *PersistError) Unwrap() error { return e.Err }

type Store struct {
	mu      sync.Mutex
	backend Backend
	log     *zap.Logger
	doc     Document
	loaded  bool
}

func NewStore(backend Backend, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{backend: backend, log: log}
}

// load populates the in-memory document on first use. Malformed persisted
// data is treated as no data. Course documents written before the version
// envelope was introduced are a bare JSON array and load as version 0.
func (s *Store) load() error {
	if s.loaded {
		return nil
	}
	data, ok, err := s.backend.Load(CoursesKey)
	if err != nil {
		return fmt.Errorf("coursestore: load: %w", err)
	}
	s.loaded = true
	if !ok {
		s.doc = Document{}
		return nil
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err == nil {
		s.doc = doc
		return nil
	}
	var legacy []Course
	if err := json.Unmarshal(data, &legacy); err == nil {
		s.doc = Document{Courses: legacy}
		return nil
	}
	s.log.Warn("course document malformed, resetting to empty")
	s.doc = Document{}
	return nil
}

// Reload drops the in-memory copy and re-reads the backend, simulating a
// fresh page load.
func (s *Store) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = false
	return s.load()
}

func (d Document) clone() Document {
	data, _ := json.Marshal(d)
	var cp Document
	_ = json.Unmarshal(data, &cp)
	return cp
}

// mutate applies fn to a clone of the document so a failed call leaves both
// memory and backend untouched. On success the version is bumped and the
// whole document persisted; a write failure keeps the applied state in
// memory and is reported as *PersistError.
func (s *Store) mutate(fn func(doc *Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return err
	}
	next := s.doc.clone()
	if err := fn(&next); err != nil {
		return err
	}
	next.Version++
	s.doc = next
	data, err := json.Marshal(next)
	if err != nil {
		return &PersistError{Err: err}
	}
	if err := s.backend.Store(CoursesKey, data); err != nil {
		s.log.Error("course document write failed", zap.Error(err))
		return &PersistError{Err: err}
	}
	return nil
}

func (s *Store) Version() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return 0
	}
	return s.doc.Version
}

// ListCourses returns a copy of every course. It never seeds; seeding is an
// explicit bootstrap step (InitializeWithSeed).
func (s *Store) ListCourses() ([]Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	return s.doc.clone().Courses, nil
}

func (s *Store) GetCourse(id string) (*Course, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.load(); err != nil {
		return nil, err
	}
	for _, c := range s.doc.clone().Courses {
		if c.ID == id {
			course := c
			return &course, nil
		}
	}
	return nil, fmt.Errorf("%w: course %s", ErrNotFound, id)
}

type CourseInput struct {
	Title       string
	Level       string
	Description string
}

func (s *Store) CreateCourse(in CourseInput) (*Course, error) {
	course := Course{
		ID:            uuid.New().String(),
		Title:         in.Title,
		Level:         in.Level,
		Description:   in.Description,
		InstructorIDs: []string{},
		Weeks:         []Week{},
	}
	err := s.mutate(func(doc *Document) error {
		doc.Courses = append(doc.Courses, course)
		return nil
	})
	if err != nil && !isPersistErr(err) {
		return nil, err
	}
	return &course, err
}

type CoursePatch struct {
	Title         *string
	Level         *string
	Description   *string
	Published     *bool
	InstructorIDs *[]string
}

func (s *Store) UpdateCourse(id string, patch CoursePatch) (*Course, error) {
	var updated Course
	err := s.mutate(func(doc *Document) error {
		c := findCourse(doc, id)
		if c == nil {
			return fmt.Errorf("%w: course %s", ErrNotFound, id)
		}
		if patch.Title != nil {
			c.Title = *patch.Title
		}
		if patch.Level != nil {
			c.Level = *patch.Level
		}
		if patch.Description != nil {
			c.Description = *patch.Description
		}
		if patch.Published != nil {
			c.Published = *patch.Published
		}
		if patch.InstructorIDs != nil {
			c.InstructorIDs = append([]string(nil), (*patch.InstructorIDs)...)
		}
		updated = *c
		return nil
	})
	if err != nil && !isPersistErr(err) {
		return nil, err
	}
	return &updated, err
}

// AddWeek appends a week numbered count+1.
func (s *Store) AddWeek(courseID, title string) (*Week, error) {
	var created Week
	err := s.mutate(func(doc *Document) error {
		c := findCourse(doc, courseID)
		if c == nil {
			return fmt.Errorf("%w: course %s", ErrNotFound, courseID)
		}
		created = Week{
			ID:     uuid.New().String(),
			Number: len(c.Weeks) + 1,
			Title:  title,
			Items:  []ContentItem{},
		}
		c.Weeks = append(c.Weeks, created)
		return nil
	})
	if err != nil && !isPersistErr(err) {
		return nil, err
	}
	return &created, err
}

type WeekPatch struct {
	Title          *string
	StartDate      *time.Time
	ClearStartDate bool
}

func (s *Store) UpdateWeek(courseID, weekID string, patch WeekPatch) (*Week, error) {
	var updated Week
	err := s.mutate(func(doc *Document) error {
		w := findWeek(doc, courseID, weekID)
		if w == nil {
			return fmt.Errorf("%w: week %s", ErrNotFound, weekID)
		}
		if patch.Title != nil {
			w.Title = *patch.Title
		}
		if patch.ClearStartDate {
			w.StartDate = nil
		} else if patch.StartDate != nil {
			t := *patch.StartDate
			w.StartDate = &t
		}
		updated = *w
		return nil
	})
	if err != nil && !isPersistErr(err) {
		return nil, err
	}
	return &updated, err
}

func (s *Store) RenameWeek(courseID, weekID, title string) (*Week, error) {
	return s.UpdateWeek(courseID, weekID, WeekPatch{Title: &title})
}

// RemoveWeek deletes the week and renumbers the remaining weeks 1..N in
// their existing order.
func (s *Store) RemoveWeek(courseID, weekID string) error {
	return s.mutate(func(doc *Document) error {
		c := findCourse(doc, courseID)
		if c == nil {
			return fmt.Errorf("%w: course %s", ErrNotFound, courseID)
		}
		idx := -1
		for i := range c.Weeks {
			if c.Weeks[i].ID == weekID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("%w: week %s", ErrNotFound, weekID)
		}
		c.Weeks = append(c.Weeks[:idx], c.Weeks[idx+1:]...)
		for i := range c.Weeks {
			c.Weeks[i].Number = i + 1
		}
		return nil
	})
}

func (s *Store) AddDay(courseID, weekID, title string) (*Day, error) {
	var created Day
	err := s.mutate(func(doc *Document) error {
		w := findWeek(doc, courseID, weekID)
		if w == nil {
			return fmt.Errorf("%w: week %s", ErrNotFound, weekID)
		}
		created = Day{ID: uuid.New().String(), Title: title, Items: []ContentItem{}}
		w.Days = append(w.Days, created)
		return nil
	})
	if err != nil && !isPersistErr(err) {
		return nil, err
	}
	return &created, err
}

func (s *Store) RenameDay(courseID, weekID, dayID, title string) (*Day, error) {
	var updated Day
	err := s.mutate(func(doc *Document) error {
		d := findDay(doc, courseID, weekID, dayID)
		if d == nil {
			return fmt.Errorf("%w: day %s", ErrNotFound, dayID)
		}
		d.Title = title
		updated = *d
		return nil
	})
	if err != nil && !isPersistErr(err) {
		return nil, err
	}
	return &updated, err
}

func (s *Store) RemoveDay(courseID, weekID, dayID string) error {
	return s.mutate(func(doc *Document) error {
		w := findWeek(doc, courseID, weekID)
		if w == nil {
			return fmt.Errorf("%w: week %s", ErrNotFound, weekID)
		}
		for i := range w.Days {
			if w.Days[i].ID == dayID {
				w.Days = append(w.Days[:i], w.Days[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: day %s", ErrNotFound, dayID)
	})
}

// AddItem appends an item to the list addressed by loc. The id is generated
// and Hidden defaults to false.
func (s *Store) AddItem(courseID string, loc ItemLocation, item ContentItem) (*ContentItem, error) {
	var created ContentItem
	err := s.mutate(func(doc *Document) error {
		list := resolveItems(doc, courseID, loc)
		if list == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, loc.describe(courseID))
		}
		item.ID = uuid.New().String()
		item.Hidden = false
		*list = append(*list, item)
		created = item
		return nil
	})
	if err != nil && !isPersistErr(err) {
		return nil, err
	}
	return &created, err
}

type ItemPatch struct {
	Type        *ItemType
	Title       *string
	Description *string
	URL         *string
	Duration    *int
	Hidden      *bool
	Meeting     *MeetingInfo
}

func (s *Store) UpdateItem(courseID string, loc ItemLocation, itemID string, patch ItemPatch) (*ContentItem, error) {
	var updated ContentItem
	err := s.mutate(func(doc *Document) error {
		list := resolveItems(doc, courseID, loc)
		if list == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, loc.describe(courseID))
		}
		for i := range *list {
			if (*list)[i].ID != itemID {
				continue
			}
			it := &(*list)[i]
			if patch.Type != nil {
				it.Type = *patch.Type
			}
			if patch.Title != nil {
				it.Title = *patch.Title
			}
			if patch.Description != nil {
				it.Description = *patch.Description
			}
			if patch.URL != nil {
				it.URL = *patch.URL
			}
			if patch.Duration != nil {
				it.Duration = *patch.Duration
			}
			if patch.Hidden != nil {
				it.Hidden = *patch.Hidden
			}
			if patch.Meeting != nil {
				m := *patch.Meeting
				it.Meeting = &m
			}
			updated = *it
			return nil
		}
		return fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	})
	if err != nil && !isPersistErr(err) {
		return nil, err
	}
	return &updated, err
}

func (s *Store) RemoveItem(courseID string, loc ItemLocation, itemID string) error {
	return s.mutate(func(doc *Document) error {
		list := resolveItems(doc, courseID, loc)
		if list == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, loc.describe(courseID))
		}
		for i := range *list {
			if (*list)[i].ID == itemID {
				*list = append((*list)[:i], (*list)[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("%w: item %s", ErrNotFound, itemID)
	})
}

// ImportCourses replaces the whole course list. baseVersion must match the
// persisted version; an import based on an older read is rejected instead of
// silently overwriting concurrent edits.
func (s *Store) ImportCourses(courses []Course, baseVersion int64) error {
	return s.mutate(func(doc *Document) error {
		if doc.Version != baseVersion {
			return fmt.Errorf("%w: have %d, import based on %d", ErrStaleDocument, doc.Version, baseVersion)
		}
		doc.Courses = append([]Course(nil), courses...)
		return nil
	})
}

func isPersistErr(err error) bool {
	var pe *PersistError
	return errors.As(err, &pe)
}

func findCourse(doc *Document, id string) *Course {
	for i := range doc.Courses {
		if doc.Courses[i].ID == id {
			return &doc.Courses[i]
		}
	}
	return nil
}

func findWeek(doc *Document, courseID, weekID string) *Week {
	c := findCourse(doc, courseID)
	if c == nil {
		return nil
	}
	for i := range c.Weeks {
		if c.Weeks[i].ID == weekID {
			return &c.Weeks[i]
		}
	}
	return nil
}

func findDay(doc *Document, courseID, weekID, dayID string) *Day {
	w := findWeek(doc, courseID, weekID)
	if w == nil {
		return nil
	}
	for i := range w.Days {
		if w.Days[i].ID == dayID {
			return &w.Days[i]
		}
	}
	return nil
}

// resolveItems returns the item list addressed by loc, or nil when any part
// of the path is missing. Day-scoped locations never fall back to the week
// list; a missing day is a hard not-found.
func resolveItems(doc *Document, courseID string, loc ItemLocation) *[]ContentItem {
	if loc.dayScoped() {
		d := findDay(doc, courseID, loc.WeekID, loc.DayID)
		if d == nil {
			return nil
		}
		return &d.Items
	}
	w := findWeek(doc, courseID, loc.WeekID)
	if w == nil {
		return nil
	}
	return &w.Items
}

func (l ItemLocation) describe(courseID string) string {
	if l.dayScoped() {
		return fmt.Sprintf("course %s week %s day %s", courseID, l.WeekID, l.DayID)
	}
	return fmt.Sprintf("course %s week %s", courseID, l.WeekID)
}
