package content

import "golang.org/x/text/language"

// Localized carries per-locale overrides. A blank field falls back to the
// chapter's root value.
type Localized struct {
	Title          string   `json:"title,omitempty" yaml:"title,omitempty"`
	Lore           string   `json:"lore,omitempty" yaml:"lore,omitempty"`
	Lesson         string   `json:"lesson,omitempty" yaml:"lesson,omitempty"`
	Hints          []string `json:"hints,omitempty" yaml:"hints,omitempty"`
	InitialCode    string   `json:"initialCode,omitempty" yaml:"initialCode,omitempty"`
	SolutionCode   string   `json:"solutionCode,omitempty" yaml:"solutionCode,omitempty"`
	ValidationCode string   `json:"validationCode,omitempty" yaml:"validationCode,omitempty"`
}

// Chapter is one lesson record as authored.
type Chapter struct {
	// ID is the unit of completion. Unique within a curriculum.
	ID string `json:"id" yaml:"id"`

	// Book groups contiguous chapters. Non-decreasing along the sequence.
	Book int `json:"book" yaml:"book"`

	Title          string   `json:"title" yaml:"title"`
	Lore           string   `json:"lore" yaml:"lore"`
	Lesson         string   `json:"lesson" yaml:"lesson"`
	InitialCode    string   `json:"initialCode" yaml:"initialCode"`
	ValidationCode string   `json:"validationCode" yaml:"validationCode"`
	SolutionCode   string   `json:"solutionCode" yaml:"solutionCode"`
	Hints          []string `json:"hints" yaml:"hints"`

	// Locales maps a locale tag ("en", "es") to its overrides.
	Locales map[string]Localized `json:"locales,omitempty" yaml:"locales,omitempty"`
}

// Resolved is a chapter with every presentational and source field
// resolved for one locale. This is the only shape the engine consumes.
type Resolved struct {
	ID             string
	Book           int
	Locale         language.Tag
	Title          string
	Lore           string
	Lesson         string
	InitialCode    string
	ValidationCode string
	SolutionCode   string
	Hints          []string
}

// Resolve applies the overrides for tag, falling back to root fields.
func (c Chapter) Resolve(tag language.Tag) Resolved {
	loc := c.Locales[tag.String()]
	hints := c.Hints
	if len(loc.Hints) > 0 {
		hints = loc.Hints
	}
	return Resolved{
		ID:             c.ID,
		Book:           c.Book,
		Locale:         tag,
		Title:          pick(loc.Title, c.Title),
		Lore:           pick(loc.Lore, c.Lore),
		Lesson:         pick(loc.Lesson, c.Lesson),
		InitialCode:    pick(loc.InitialCode, c.InitialCode),
		ValidationCode: pick(loc.ValidationCode, c.ValidationCode),
		SolutionCode:   pick(loc.SolutionCode, c.SolutionCode),
		Hints:          append([]string(nil), hints...),
	}
}

func pick(override, root string) string {
	if override != "" {
		return override
	}
	return root
}
