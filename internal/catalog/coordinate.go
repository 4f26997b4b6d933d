package catalog

import (
	"fmt"
	"strings"
)

// Coordinate addresses one passage within the corpus.
type Coordinate struct {
	Book    string
	Chapter int
	Verse   int
}

// IsZero reports whether the coordinate is unset.
func (c Coordinate) IsZero() bool {
	return c.Book == "" && c.Chapter == 0 && c.Verse == 0
}

// Reference renders the human-readable "Book Chapter:Verse" form.
func (c Coordinate) Reference() string {
	return fmt.Sprintf("%s %d:%d", c.Book, c.Chapter, c.Verse)
}

// WorkUnitID renders the stable identifier persisted with job records.
func (c Coordinate) WorkUnitID() string {
	book := strings.ReplaceAll(c.Book, " ", "-")
	return fmt.Sprintf("%s_%d_%d", book, c.Chapter, c.Verse)
}
