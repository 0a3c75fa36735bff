package coursestore

import (
	"fmt"

	"github.com/google/uuid"
)

// InitializeWithSeed creates one example course when the document is empty.
// It is called once by the application bootstrap; reads never seed.
func (s *Store) InitializeWithSeed() error {
	return s.mutate(func(doc *Document) error {
		if len(doc.Courses) > 0 {
			return nil
		}
		week := Week{
			ID:     uuid.New().String(),
			Number: 1,
			Title:  "Intro",
			Items: []ContentItem{
				{
					ID:       uuid.New().String(),
					Type:     ItemLecture,
					Title:    "Welcome",
					Duration: 20,
				},
			},
		}
		doc.Courses = append(doc.Courses, Course{
			ID:            uuid.New().String(),
			Title:         "Arabic A1",
			Level:         "Level 1",
			Description:   "Example course created on first run.",
			InstructorIDs: []string{},
			Weeks:         []Week{week},
		})
		return nil
	})
}

// InstructorID returns the generated local instructor identity, creating it
// on first access. This is a placeholder for the single local user, not an
// authentication boundary; real identity comes from the JWT layer.
func (s *Store) InstructorID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok, err := s.backend.Load(InstructorKey)
	if err != nil {
		return "", fmt.Errorf("coursestore: load instructor id: %w", err)
	}
	if ok && len(data) > 0 {
		return string(data), nil
	}
	id := uuid.New().String()
	if err := s.backend.Store(InstructorKey, []byte(id)); err != nil {
		return "", fmt.Errorf("coursestore: store instructor id: %w", err)
	}
	return id, nil
}
