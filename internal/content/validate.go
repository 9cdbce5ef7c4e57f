package content

import (
	"fmt"
	"strings"
)

// Problem is one defect found by Validate.
type Problem struct {
	Index     int    `json:"index"`
	ChapterID string `json:"chapter_id,omitempty"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message"`
}

func (p Problem) String() string {
	id := p.ChapterID
	if id == "" {
		id = fmt.Sprintf("#%d", p.Index)
	}
	if p.Field != "" {
		return fmt.Sprintf("[%s] %s: %s", id, p.Field, p.Message)
	}
	return fmt.Sprintf("[%s] %s", id, p.Message)
}

// RequiredFields are the fields every chapter must carry.
var RequiredFields = []string{"id", "title", "lore", "lesson", "initialCode", "validationCode", "hints", "solutionCode"}

// Validate reports every problem in chapters. It never stops at the first
// one. An empty result means the curriculum is well formed.
func Validate(chapters []Chapter) []Problem {
	var problems []Problem
	if len(chapters) == 0 {
		return []Problem{{Index: -1, Message: "no chapters found"}}
	}

	seen := make(map[string]int, len(chapters))
	for i, ch := range chapters {
		var missing []string
		for _, field := range RequiredFields {
			if isBlank(ch, field) {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			problems = append(problems, Problem{
				Index:     i,
				ChapterID: ch.ID,
				Message:   "missing fields: " + strings.Join(missing, ", "),
			})
		}

		if ch.ID != "" {
			if prev, dup := seen[ch.ID]; dup {
				problems = append(problems, Problem{
					Index:     i,
					ChapterID: ch.ID,
					Field:     "id",
					Message:   fmt.Sprintf("duplicate of chapter #%d", prev),
				})
			} else {
				seen[ch.ID] = i
			}
		}

		if ch.Book < 1 {
			problems = append(problems, Problem{Index: i, ChapterID: ch.ID, Field: "book", Message: "must be >= 1"})
		} else if i > 0 && ch.Book < chapters[i-1].Book {
			problems = append(problems, Problem{
				Index:     i,
				ChapterID: ch.ID,
				Field:     "book",
				Message:   fmt.Sprintf("book %d follows book %d", ch.Book, chapters[i-1].Book),
			})
		}

		for tag := range ch.Locales {
			if MatchLocale(tag).String() != tag {
				problems = append(problems, Problem{
					Index:     i,
					ChapterID: ch.ID,
					Field:     "locales",
					Message:   fmt.Sprintf("unsupported locale %q", tag),
				})
			}
		}
	}
	return problems
}

func isBlank(ch Chapter, field string) bool {
	switch field {
	case "id":
		return strings.TrimSpace(ch.ID) == ""
	case "title":
		return strings.TrimSpace(ch.Title) == ""
	case "lore":
		return strings.TrimSpace(ch.Lore) == ""
	case "lesson":
		return strings.TrimSpace(ch.Lesson) == ""
	case "initialCode":
		return strings.TrimSpace(ch.InitialCode) == ""
	case "validationCode":
		return strings.TrimSpace(ch.ValidationCode) == ""
	case "solutionCode":
		return strings.TrimSpace(ch.SolutionCode) == ""
	case "hints":
		return len(ch.Hints) == 0
	}
	return false
}
