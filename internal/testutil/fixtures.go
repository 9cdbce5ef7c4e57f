package testutil

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/golem/internal/content"
)

// PassValidator always passes.
const PassValidator = `def validate(g):
    return (True, "ok")
`

// AnswerValidator passes when x == 42.
const AnswerValidator = `def validate(g):
    if g.get("x") == 42:
        return (True, "ok")
    return (False, "x should be 42")
`

// Chapter builds a chapter in book whose starter sets x = 41 and whose
// solution sets x = 42, graded by AnswerValidator.
func Chapter(id string, book int) content.Chapter {
	return content.Chapter{
		ID:             id,
		Book:           book,
		Title:          id,
		InitialCode:    "x = 41\n",
		ValidationCode: AnswerValidator,
		SolutionCode:   "x = 42\n",
		Hints:          []string{"think of " + id},
	}
}

// Books builds a curriculum with one book per entry of sizes. Chapter ids
// are "b<book>-c<i>".
func Books(t testing.TB, sizes ...int) *content.Curriculum {
	t.Helper()
	var chapters []content.Chapter
	for b, n := range sizes {
		for i := 0; i < n; i++ {
			chapters = append(chapters, Chapter(fmt.Sprintf("b%d-c%d", b+1, i), b+1))
		}
	}
	cur, err := content.NewCurriculum(chapters)
	require.NoError(t, err)
	return cur
}
