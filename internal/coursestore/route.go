package coursestore

import (
	"net/url"
	"strings"
)

// Route is the resolved view for an instructor dashboard fragment.
type Route struct {
	View       string `json:"view"`
	CourseID   string `json:"courseId,omitempty"`
	QuizID     string `json:"quizId,omitempty"`
	WeekID     string `json:"weekId,omitempty"`
	NotebookID string `json:"notebookId,omitempty"`
}

const instructorPrefix = "/dashboard/instructor"

// ParseInstructorHash maps a navigation fragment to a view plus parameters.
// Unrecognized fragments fall back to home. It is a plain token splitter,
// not a general router.
func ParseInstructorHash(hash string) Route {
	home := Route{View: "home"}

	path := strings.TrimPrefix(hash, "#")
	query := ""
	if i := strings.Index(path, "?"); i >= 0 {
		path, query = path[:i], path[i+1:]
	}
	if !strings.HasPrefix(path, instructorPrefix) {
		return home
	}
	rest := strings.Trim(strings.TrimPrefix(path, instructorPrefix), "/")
	if rest == "" {
		return home
	}

	parts := strings.Split(rest, "/")
	switch parts[0] {
	case "courses":
		return Route{View: "courses"}
	case "course":
		if len(parts) == 2 && parts[1] != "" {
			return Route{View: "course", CourseID: parts[1]}
		}
	case "quiz":
		if len(parts) == 2 && parts[1] != "" {
			r := Route{View: "quiz", QuizID: parts[1]}
			q, _ := url.ParseQuery(query)
			r.CourseID = q.Get("course")
			r.WeekID = q.Get("week")
			return r
		}
	case "notebooks":
		return Route{View: "notebooks"}
	case "notebook":
		if len(parts) == 2 && parts[1] != "" {
			return Route{View: "notebook", NotebookID: parts[1]}
		}
	case "messages":
		return Route{View: "messages"}
	case "schedule":
		return Route{View: "schedule"}
	}
	return home
}
