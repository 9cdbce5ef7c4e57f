package content

import (
	"errors"
	"fmt"
)

// Curriculum is the ordered, immutable chapter sequence.
type Curriculum struct {
	chapters []Chapter
	index    map[string]int
}

// NewCurriculum builds a curriculum from chapters in sequence order.
// It rejects structural problems the state machine cannot tolerate: an
// empty sequence, blank or duplicate ids and decreasing book numbers.
// Content completeness is checked separately by Validate.
func NewCurriculum(chapters []Chapter) (*Curriculum, error) {
	if len(chapters) == 0 {
		return nil, errors.New("curriculum has no chapters")
	}
	c := &Curriculum{
		chapters: make([]Chapter, len(chapters)),
		index:    make(map[string]int, len(chapters)),
	}
	copy(c.chapters, chapters)
	for i, ch := range c.chapters {
		if ch.ID == "" {
			return nil, fmt.Errorf("chapter %d: id is required", i)
		}
		if prev, dup := c.index[ch.ID]; dup {
			return nil, fmt.Errorf("chapter %d: duplicate id %q (first at %d)", i, ch.ID, prev)
		}
		if i > 0 && ch.Book < c.chapters[i-1].Book {
			return nil, fmt.Errorf("chapter %d (%s): book %d follows book %d", i, ch.ID, ch.Book, c.chapters[i-1].Book)
		}
		c.index[ch.ID] = i
	}
	return c, nil
}

// Len returns the number of chapters.
func (c *Curriculum) Len() int {
	return len(c.chapters)
}

// Chapter returns the chapter at index i. Panics if out of range.
func (c *Curriculum) Chapter(i int) Chapter {
	return c.chapters[i]
}

// Chapters returns a copy of the chapter sequence.
func (c *Curriculum) Chapters() []Chapter {
	out := make([]Chapter, len(c.chapters))
	copy(out, c.chapters)
	return out
}

// IDAt returns the id of the chapter at index i.
func (c *Curriculum) IDAt(i int) string {
	return c.chapters[i].ID
}

// IndexOf returns the index of the chapter with the given id.
func (c *Curriculum) IndexOf(id string) (int, bool) {
	i, ok := c.index[id]
	return i, ok
}

// GroupOf returns the book number of the chapter at index i.
func (c *Curriculum) GroupOf(i int) int {
	return c.chapters[i].Book
}

// Books returns the distinct book numbers in sequence order.
func (c *Curriculum) Books() []int {
	var books []int
	for i, ch := range c.chapters {
		if i == 0 || ch.Book != c.chapters[i-1].Book {
			books = append(books, ch.Book)
		}
	}
	return books
}
