package coursestore

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Exams live under their own storage key, separate from the course document.
// Each question carries exactly four answer options with fixed shapes and
// colors; auto-graded questions must mark exactly one option correct.

var ErrInvalidExam = errors.New("coursestore: invalid exam")

var (
	AnswerShapes = [4]string{"triangle", "diamond", "circle", "square"}
	AnswerColors = [4]string{"red", "blue", "yellow", "green"}
)

type ExamAnswer struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Shape   string `json:"shape"`
	Color   string `json:"color"`
	Correct bool   `json:"correct"`
}

type ExamQuestion struct {
	ID               string        `json:"id"`
	Text             string        `json:"text"`
	TimeLimitSeconds int           `json:"timeLimitSeconds"`
	Points           int           `json:"points"`
	AutoGraded       bool          `json:"autoGraded"`
	Answers          [4]ExamAnswer `json:"answers"`
}

type Exam struct {
	ID        string         `json:"id"`
	CourseID  string         `json:"courseId,omitempty"`
	WeekID    string         `json:"weekId,omitempty"`
	Title     string         `json:"title"`
	Questions []ExamQuestion `json:"questions"`
}

func (s *Store) loadExams() ([]Exam, error) {
	data, ok, err := s.backend.Load(ExamsKey)
	if err != nil {
		return nil, fmt.Errorf("coursestore: load exams: %w", err)
	}
	if !ok {
		return []Exam{}, nil
	}
	var exams []Exam
	if err := json.Unmarshal(data, &exams); err != nil {
		s.log.Warn("exam document malformed, resetting to empty")
		return []Exam{}, nil
	}
	return exams, nil
}

func (s *Store) storeExams(exams []Exam) error {
	data, err := json.Marshal(exams)
	if err != nil {
		return &PersistError{Err: err}
	}
	if err := s.backend.Store(ExamsKey, data); err != nil {
		return &PersistError{Err: err}
	}
	return nil
}

func validateExam(exam *Exam) error {
	for qi := range exam.Questions {
		q := &exam.Questions[qi]
		if q.ID == "" {
			q.ID = uuid.New().String()
		}
		correct := 0
		for ai := range q.Answers {
			a := &q.Answers[ai]
			if a.ID == "" {
				a.ID = uuid.New().String()
			}
			a.Shape = AnswerShapes[ai]
			a.Color = AnswerColors[ai]
			if a.Correct {
				correct++
			}
		}
		if q.AutoGraded && correct != 1 {
			return fmt.Errorf("%w: question %d needs exactly one correct answer, has %d", ErrInvalidExam, qi+1, correct)
		}
	}
	return nil
}

func (s *Store) ListExams() ([]Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadExams()
}

func (s *Store) GetExam(id string) (*Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exams, err := s.loadExams()
	if err != nil {
		return nil, err
	}
	for _, e := range exams {
		if e.ID == id {
			exam := e
			return &exam, nil
		}
	}
	return nil, fmt.Errorf("%w: exam %s", ErrNotFound, id)
}

// SaveExam creates the exam when its id is empty, replaces it otherwise.
func (s *Store) SaveExam(exam Exam) (*Exam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := validateExam(&exam); err != nil {
		return nil, err
	}
	exams, err := s.loadExams()
	if err != nil {
		return nil, err
	}
	if exam.ID == "" {
		exam.ID = uuid.New().String()
		exams = append(exams, exam)
	} else {
		found := false
		for i := range exams {
			if exams[i].ID == exam.ID {
				exams[i] = exam
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: exam %s", ErrNotFound, exam.ID)
		}
	}
	if err := s.storeExams(exams); err != nil {
		return &exam, err
	}
	return &exam, nil
}

func (s *Store) DeleteExam(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	exams, err := s.loadExams()
	if err != nil {
		return err
	}
	for i := range exams {
		if exams[i].ID == id {
			exams = append(exams[:i], exams[i+1:]...)
			return s.storeExams(exams)
		}
	}
	return fmt.Errorf("%w: exam %s", ErrNotFound, id)
}
