package coursestore

import (
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) (*Store, *MemoryBackend) {
	t.Helper()
	backend := NewMemoryBackend()
	return NewStore(backend, nil), backend
}

func mustCreateCourse(t *testing.T, s *Store, title, level string) *Course {
	t.Helper()
	c, err := s.CreateCourse(CourseInput{Title: title, Level: level})
	if err != nil {
		t.Fatalf("CreateCourse: %v", err)
	}
	return c
}

func mustAddWeek(t *testing.T, s *Store, courseID, title string) *Week {
	t.Helper()
	w, err := s.AddWeek(courseID, title)
	if err != nil {
		t.Fatalf("AddWeek: %v", err)
	}
	return w
}

func TestAddWeekNumbering(t *testing.T) {
	s, _ := newTestStore(t)
	c := mustCreateCourse(t, s, "Arabic A1", "Level 1")

	for i := 1; i <= 4; i++ {
		w := mustAddWeek(t, s, c.ID, "Week")
		if w.Number != i {
			t.Fatalf("week %d: number=%d", i, w.Number)
		}
	}
}

func TestRemoveWeekRenumbers(t *testing.T) {
	s, _ := newTestStore(t)
	c := mustCreateCourse(t, s, "Arabic A1", "Level 1")

	w1 := mustAddWeek(t, s, c.ID, "one")
	mustAddWeek(t, s, c.ID, "two")
	w3 := mustAddWeek(t, s, c.ID, "three")

	if err := s.RemoveWeek(c.ID, w1.ID); err != nil {
		t.Fatalf("RemoveWeek: %v", err)
	}

	got, err := s.GetCourse(c.ID)
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if len(got.Weeks) != 2 {
		t.Fatalf("weeks=%d, want 2", len(got.Weeks))
	}
	if got.Weeks[0].Title != "two" || got.Weeks[0].Number != 1 {
		t.Fatalf("first week: %q number=%d", got.Weeks[0].Title, got.Weeks[0].Number)
	}
	if got.Weeks[1].ID != w3.ID || got.Weeks[1].Number != 2 {
		t.Fatalf("second week: id=%s number=%d", got.Weeks[1].ID, got.Weeks[1].Number)
	}
}

func TestAddItemWeekLevel(t *testing.T) {
	s, _ := newTestStore(t)
	c := mustCreateCourse(t, s, "Arabic A1", "Level 1")
	w := mustAddWeek(t, s, c.ID, "Intro")
	if _, err := s.AddDay(c.ID, w.ID, "Monday"); err != nil {
		t.Fatalf("AddDay: %v", err)
	}

	item, err := s.AddItem(c.ID, WeekLevel(w.ID), ContentItem{Type: ItemLecture, Title: "Welcome", Hidden: true})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if item.ID == "" {
		t.Fatal("item id not generated")
	}
	if item.Hidden {
		t.Fatal("hidden should default to false on create")
	}

	got, err := s.GetCourse(c.ID)
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	week := got.Weeks[0]
	if len(week.Items) != 1 || week.Items[0].ID != item.ID {
		t.Fatalf("item not in week direct list: %+v", week.Items)
	}
	if len(week.Days[0].Items) != 0 {
		t.Fatalf("item leaked into day list: %+v", week.Days[0].Items)
	}
}

func TestAddItemDayLevel(t *testing.T) {
	s, _ := newTestStore(t)
	c := mustCreateCourse(t, s, "Arabic A1", "Level 1")
	w := mustAddWeek(t, s, c.ID, "Intro")
	d, err := s.AddDay(c.ID, w.ID, "Monday")
	if err != nil {
		t.Fatalf("AddDay: %v", err)
	}

	item, err := s.AddItem(c.ID, DayLevel(w.ID, d.ID), ContentItem{Type: ItemReading, Title: "Alphabet"})
	if err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	got, _ := s.GetCourse(c.ID)
	if len(got.Weeks[0].Items) != 0 {
		t.Fatalf("item leaked into week list: %+v", got.Weeks[0].Items)
	}
	if len(got.Weeks[0].Days[0].Items) != 1 || got.Weeks[0].Days[0].Items[0].ID != item.ID {
		t.Fatalf("item not in day list: %+v", got.Weeks[0].Days[0].Items)
	}
}

func TestAddItemMissingDayDoesNotMutate(t *testing.T) {
	s, backend := newTestStore(t)
	c := mustCreateCourse(t, s, "Arabic A1", "Level 1")
	w := mustAddWeek(t, s, c.ID, "Intro")

	before, _, err := backend.Load(CoursesKey)
	if err != nil {
		t.Fatalf("backend load: %v", err)
	}
	versionBefore := s.Version()

	_, err = s.AddItem(c.ID, DayLevel(w.ID, "no-such-day"), ContentItem{Type: ItemText, Title: "x"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}

	after, _, err := backend.Load(CoursesKey)
	if err != nil {
		t.Fatalf("backend load: %v", err)
	}
	if string(before) != string(after) {
		t.Fatal("failed call mutated the persisted document")
	}
	if s.Version() != versionBefore {
		t.Fatalf("failed call bumped version: %d -> %d", versionBefore, s.Version())
	}
}

func TestUpdateCourseShallowMerge(t *testing.T) {
	s, _ := newTestStore(t)
	c := mustCreateCourse(t, s, "Arabic A1", "Level 1")

	published := true
	updated, err := s.UpdateCourse(c.ID, CoursePatch{Published: &published})
	if err != nil {
		t.Fatalf("UpdateCourse: %v", err)
	}
	if !updated.Published || updated.Title != "Arabic A1" {
		t.Fatalf("merge wrong: %+v", updated)
	}

	if _, err := s.UpdateCourse("missing", CoursePatch{Published: &published}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
}

func TestRoundTripReload(t *testing.T) {
	s, backend := newTestStore(t)
	c := mustCreateCourse(t, s, "Arabic A1", "Level 1")
	w := mustAddWeek(t, s, c.ID, "Intro")
	d, _ := s.AddDay(c.ID, w.ID, "Monday")
	start := time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC)
	if _, err := s.UpdateWeek(c.ID, w.ID, WeekPatch{StartDate: &start}); err != nil {
		t.Fatalf("UpdateWeek: %v", err)
	}
	if _, err := s.AddItem(c.ID, WeekLevel(w.ID), ContentItem{Type: ItemLecture, Title: "Welcome", Duration: 20}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	if _, err := s.AddItem(c.ID, DayLevel(w.ID, d.ID), ContentItem{Type: ItemZoom, Title: "Live", Meeting: &MeetingInfo{MeetingID: "123"}}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	before, err := s.ListCourses()
	if err != nil {
		t.Fatalf("ListCourses: %v", err)
	}

	// A second store over the same backend simulates a page refresh.
	reloaded := NewStore(backend, nil)
	after, err := reloaded.ListCourses()
	if err != nil {
		t.Fatalf("ListCourses after reload: %v", err)
	}

	if len(before) != len(after) {
		t.Fatalf("course count changed: %d -> %d", len(before), len(after))
	}
	b, a := before[0], after[0]
	if b.ID != a.ID || b.Title != a.Title || len(b.Weeks) != len(a.Weeks) {
		t.Fatalf("course changed: %+v vs %+v", b, a)
	}
	bw, aw := b.Weeks[0], a.Weeks[0]
	if bw.StartDate == nil || aw.StartDate == nil || !bw.StartDate.Equal(*aw.StartDate) {
		t.Fatalf("start date changed: %v vs %v", bw.StartDate, aw.StartDate)
	}
	if len(bw.Items) != len(aw.Items) || bw.Items[0].Duration != aw.Items[0].Duration {
		t.Fatalf("week items changed: %+v vs %+v", bw.Items, aw.Items)
	}
	if len(bw.Days[0].Items) != len(aw.Days[0].Items) || aw.Days[0].Items[0].Meeting == nil {
		t.Fatalf("day items changed: %+v vs %+v", bw.Days[0].Items, aw.Days[0].Items)
	}
	if s.Version() != reloaded.Version() {
		t.Fatalf("version changed across reload: %d vs %d", s.Version(), reloaded.Version())
	}
}

func TestMalformedDocumentLoadsEmpty(t *testing.T) {
	backend := NewMemoryBackend()
	if err := backend.Store(CoursesKey, []byte("{not json")); err != nil {
		t.Fatalf("seed backend: %v", err)
	}
	s := NewStore(backend, nil)
	courses, err := s.ListCourses()
	if err != nil {
		t.Fatalf("ListCourses: %v", err)
	}
	if len(courses) != 0 {
		t.Fatalf("courses=%d, want 0", len(courses))
	}
}

func TestLegacyArrayDocument(t *testing.T) {
	backend := NewMemoryBackend()
	legacy := `[{"id":"c1","title":"Old","level":"Level 2","published":false,"instructorIds":[],"weeks":[]}]`
	if err := backend.Store(CoursesKey, []byte(legacy)); err != nil {
		t.Fatalf("seed backend: %v", err)
	}
	s := NewStore(backend, nil)
	courses, err := s.ListCourses()
	if err != nil {
		t.Fatalf("ListCourses: %v", err)
	}
	if len(courses) != 1 || courses[0].Title != "Old" {
		t.Fatalf("legacy load wrong: %+v", courses)
	}
	if s.Version() != 0 {
		t.Fatalf("legacy version=%d, want 0", s.Version())
	}
}

func TestPersistFailureSurfaced(t *testing.T) {
	s, backend := newTestStore(t)
	c := mustCreateCourse(t, s, "Arabic A1", "Level 1")

	backend.StoreErr = errors.New("quota exceeded")
	w, err := s.AddWeek(c.ID, "Intro")
	var pe *PersistError
	if !errors.As(err, &pe) {
		t.Fatalf("err=%v, want *PersistError", err)
	}
	if w == nil || w.Number != 1 {
		t.Fatalf("in-memory result missing: %+v", w)
	}

	// The applied-in-memory state is visible to subsequent reads.
	got, err := s.GetCourse(c.ID)
	if err != nil {
		t.Fatalf("GetCourse: %v", err)
	}
	if len(got.Weeks) != 1 {
		t.Fatalf("weeks=%d, want 1", len(got.Weeks))
	}
}

func TestImportCoursesStaleVersionRejected(t *testing.T) {
	s, _ := newTestStore(t)
	mustCreateCourse(t, s, "Arabic A1", "Level 1")
	base := s.Version()
	mustCreateCourse(t, s, "Arabic A2", "Level 2")

	err := s.ImportCourses([]Course{}, base)
	if !errors.Is(err, ErrStaleDocument) {
		t.Fatalf("err=%v, want ErrStaleDocument", err)
	}

	if err := s.ImportCourses([]Course{}, s.Version()); err != nil {
		t.Fatalf("fresh import: %v", err)
	}
}

func TestInitializeWithSeed(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.InitializeWithSeed(); err != nil {
		t.Fatalf("InitializeWithSeed: %v", err)
	}
	courses, _ := s.ListCourses()
	if len(courses) != 1 {
		t.Fatalf("courses=%d, want 1", len(courses))
	}

	// Idempotent: a second bootstrap never duplicates the example course.
	if err := s.InitializeWithSeed(); err != nil {
		t.Fatalf("second InitializeWithSeed: %v", err)
	}
	courses, _ = s.ListCourses()
	if len(courses) != 1 {
		t.Fatalf("courses after reseed=%d, want 1", len(courses))
	}
}

func TestInstructorIDStable(t *testing.T) {
	s, _ := newTestStore(t)
	first, err := s.InstructorID()
	if err != nil {
		t.Fatalf("InstructorID: %v", err)
	}
	if first == "" {
		t.Fatal("empty instructor id")
	}
	second, err := s.InstructorID()
	if err != nil {
		t.Fatalf("InstructorID again: %v", err)
	}
	if first != second {
		t.Fatalf("instructor id changed: %s vs %s", first, second)
	}
}

// End-to-end scenario from the instructor flow: create a course, add a week,
// add a timed lecture, read it all back.
func TestCourseAuthoringScenario(t *testing.T) {
	s, _ := newTestStore(t)

	c := mustCreateCourse(t, s, "Arabic A1", "Level 1")
	w := mustAddWeek(t, s, c.ID, "Intro")
	if _, err := s.AddItem(c.ID, WeekLevel(w.ID), ContentItem{Type: ItemLecture, Title: "Welcome", Duration: 20}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}

	courses, err := s.ListCourses()
	if err != nil {
		t.Fatalf("ListCourses: %v", err)
	}
	var course *Course
	for i := range courses {
		if courses[i].ID == c.ID {
			course = &courses[i]
		}
	}
	if course == nil {
		t.Fatal("course missing from list")
	}
	if len(course.Weeks) != 1 {
		t.Fatalf("weeks=%d, want 1", len(course.Weeks))
	}
	week := course.Weeks[0]
	if len(week.Items) != 1 {
		t.Fatalf("items=%d, want 1", len(week.Items))
	}
	if week.Items[0].Title != "Welcome" || week.Items[0].Duration != 20 {
		t.Fatalf("item wrong: %+v", week.Items[0])
	}
}
