package coursestore

import "testing"

func TestParseInstructorHash(t *testing.T) {
	cases := []struct {
		name string
		hash string
		want Route
	}{
		{"empty", "", Route{View: "home"}},
		{"root", "#/dashboard/instructor", Route{View: "home"}},
		{"root trailing slash", "#/dashboard/instructor/", Route{View: "home"}},
		{"courses", "#/dashboard/instructor/courses", Route{View: "courses"}},
		{"course", "#/dashboard/instructor/course/abc123", Route{View: "course", CourseID: "abc123"}},
		{"quiz with params", "#/dashboard/instructor/quiz/q1?course=c1&week=w1", Route{View: "quiz", QuizID: "q1", CourseID: "c1", WeekID: "w1"}},
		{"quiz without params", "#/dashboard/instructor/quiz/q9", Route{View: "quiz", QuizID: "q9"}},
		{"notebooks", "#/dashboard/instructor/notebooks", Route{View: "notebooks"}},
		{"notebook", "#/dashboard/instructor/notebook/n42", Route{View: "notebook", NotebookID: "n42"}},
		{"messages", "#/dashboard/instructor/messages", Route{View: "messages"}},
		{"schedule", "#/dashboard/instructor/schedule", Route{View: "schedule"}},
		{"unknown fragment", "#/unknown", Route{View: "home"}},
		{"unknown subview", "#/dashboard/instructor/banana", Route{View: "home"}},
		{"course without id", "#/dashboard/instructor/course", Route{View: "home"}},
		{"extra segments", "#/dashboard/instructor/course/abc/extra", Route{View: "home"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseInstructorHash(tc.hash)
			if got != tc.want {
				t.Fatalf("ParseInstructorHash(%q) = %+v, want %+v", tc.hash, got, tc.want)
			}
		})
	}
}
