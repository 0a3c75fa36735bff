package coursestore

import (
	"errors"
	"testing"
)

func autoGradedQuestion(correct int) ExamQuestion {
	q := ExamQuestion{
		Text:             "What does \"kitab\" mean?",
		TimeLimitSeconds: 30,
		Points:           100,
		AutoGraded:       true,
	}
	texts := [4]string{"book", "pen", "door", "house"}
	for i := range q.Answers {
		q.Answers[i] = ExamAnswer{Text: texts[i], Correct: i == correct}
	}
	return q
}

func TestSaveExamAssignsShapesAndColors(t *testing.T) {
	s, _ := newTestStore(t)
	exam, err := s.SaveExam(Exam{Title: "Vocab quiz", Questions: []ExamQuestion{autoGradedQuestion(0)}})
	if err != nil {
		t.Fatalf("SaveExam: %v", err)
	}
	if exam.ID == "" {
		t.Fatal("exam id not generated")
	}
	for i, a := range exam.Questions[0].Answers {
		if a.Shape != AnswerShapes[i] || a.Color != AnswerColors[i] {
			t.Fatalf("answer %d: shape=%s color=%s", i, a.Shape, a.Color)
		}
		if a.ID == "" {
			t.Fatalf("answer %d: id not generated", i)
		}
	}
}

func TestSaveExamAutoGradedNeedsOneCorrect(t *testing.T) {
	s, _ := newTestStore(t)

	q := autoGradedQuestion(0)
	q.Answers[1].Correct = true
	if _, err := s.SaveExam(Exam{Title: "bad", Questions: []ExamQuestion{q}}); !errors.Is(err, ErrInvalidExam) {
		t.Fatalf("two correct: err=%v, want ErrInvalidExam", err)
	}

	q = autoGradedQuestion(0)
	q.Answers[0].Correct = false
	if _, err := s.SaveExam(Exam{Title: "bad", Questions: []ExamQuestion{q}}); !errors.Is(err, ErrInvalidExam) {
		t.Fatalf("zero correct: err=%v, want ErrInvalidExam", err)
	}

	// Manually graded questions have no correct-count constraint.
	q = autoGradedQuestion(0)
	q.AutoGraded = false
	q.Answers[0].Correct = false
	if _, err := s.SaveExam(Exam{Title: "open", Questions: []ExamQuestion{q}}); err != nil {
		t.Fatalf("manual grading: %v", err)
	}
}

func TestExamLifecycle(t *testing.T) {
	s, _ := newTestStore(t)
	exam, err := s.SaveExam(Exam{Title: "Week 1 check", Questions: []ExamQuestion{autoGradedQuestion(2)}})
	if err != nil {
		t.Fatalf("SaveExam: %v", err)
	}

	exam.Title = "Week 1 check (revised)"
	if _, err := s.SaveExam(*exam); err != nil {
		t.Fatalf("update SaveExam: %v", err)
	}
	got, err := s.GetExam(exam.ID)
	if err != nil {
		t.Fatalf("GetExam: %v", err)
	}
	if got.Title != "Week 1 check (revised)" {
		t.Fatalf("title=%q", got.Title)
	}

	if err := s.DeleteExam(exam.ID); err != nil {
		t.Fatalf("DeleteExam: %v", err)
	}
	if _, err := s.GetExam(exam.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v, want ErrNotFound", err)
	}
	if err := s.DeleteExam(exam.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete err=%v, want ErrNotFound", err)
	}
}
