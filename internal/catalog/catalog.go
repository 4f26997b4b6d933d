package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Book is one corpus source: a named, ordered collection of chapters, each an
// ordered slice of verse texts.
type Book struct {
	Name     string     `json:"book"`
	Chapters [][]string `json:"chapters"`
}

// Passage is one immutable work unit.
type Passage struct {
	Coordinate
	Text      string
	WordCount int
}

// ID returns the passage's stable work-unit identifier.
func (p Passage) ID() string {
	return p.WorkUnitID()
}

// Catalog holds the loaded corpus. It is immutable after construction and
// safe for concurrent use.
type Catalog struct {
	books []Book
	index map[string]int
}

var titleCaser = cases.Title(language.English)

// CanonicalBookName normalizes a configured book name to the corpus spelling
// convention ("song of solomon" becomes "Song Of Solomon").
func CanonicalBookName(name string) string {
	return titleCaser.String(strings.TrimSpace(name))
}

// Load reads a corpus JSON file from disk.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read corpus: %w", err)
	}
	var books []Book
	if err := json.Unmarshal(data, &books); err != nil {
		return nil, fmt.Errorf("parse corpus: %w", err)
	}
	return New(books)
}

// New builds a catalog from in-memory books, preserving corpus order.
func New(books []Book) (*Catalog, error) {
	if len(books) == 0 {
		return nil, fmt.Errorf("corpus contains no books")
	}
	index := make(map[string]int, len(books))
	for i, book := range books {
		name := CanonicalBookName(book.Name)
		if name == "" {
			return nil, fmt.Errorf("corpus book %d has no name", i)
		}
		if _, dup := index[name]; dup {
			return nil, fmt.Errorf("corpus book %q appears twice", name)
		}
		books[i].Name = name
		index[name] = i
	}
	return &Catalog{books: books, index: index}, nil
}

// Books returns the corpus-ordered book names.
func (c *Catalog) Books() []string {
	names := make([]string, len(c.books))
	for i, book := range c.books {
		names[i] = book.Name
	}
	return names
}

// allowedOrder returns the corpus-ordered subset of books matching the allowed
// set. An empty allowed set means every book.
func (c *Catalog) allowedOrder(allowed []string) []int {
	if len(allowed) == 0 {
		order := make([]int, len(c.books))
		for i := range c.books {
			order[i] = i
		}
		return order
	}
	want := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		want[CanonicalBookName(name)] = struct{}{}
	}
	var order []int
	for i, book := range c.books {
		if _, ok := want[book.Name]; ok {
			order = append(order, i)
		}
	}
	return order
}

// Lookup returns the passage at a coordinate, if it exists.
func (c *Catalog) Lookup(coord Coordinate) (Passage, bool) {
	idx, ok := c.index[CanonicalBookName(coord.Book)]
	if !ok {
		return Passage{}, false
	}
	book := c.books[idx]
	if coord.Chapter < 1 || coord.Chapter > len(book.Chapters) {
		return Passage{}, false
	}
	chapter := book.Chapters[coord.Chapter-1]
	if coord.Verse < 1 || coord.Verse > len(chapter) {
		return Passage{}, false
	}
	return makePassage(book.Name, coord.Chapter, coord.Verse, chapter[coord.Verse-1]), true
}

// Filter returns the corpus-ordered passages from the allowed books whose
// word counts fall within [minWords, maxWords].
func (c *Catalog) Filter(minWords, maxWords int, allowed []string) []Passage {
	var out []Passage
	for _, idx := range c.allowedOrder(allowed) {
		book := c.books[idx]
		for chapterIdx, chapter := range book.Chapters {
			for verseIdx, text := range chapter {
				passage := makePassage(book.Name, chapterIdx+1, verseIdx+1, text)
				if passage.WordCount < minWords || passage.WordCount > maxWords {
					continue
				}
				out = append(out, passage)
			}
		}
	}
	return out
}

// LookupNextAfter returns the first passage strictly after coord in corpus
// order, restricted to the allowed books. When the coordinate's book is
// exhausted the walk continues at the start of the next allowed book. The
// second return value is false once the allowed set is exhausted.
//
// A zero coordinate starts from the beginning of the first allowed book. A
// coordinate naming a book outside the allowed set also restarts from the
// first allowed book, matching the behavior when the allowed set shrinks
// between runs.
func (c *Catalog) LookupNextAfter(coord Coordinate, allowed []string) (Passage, bool) {
	order := c.allowedOrder(allowed)
	if len(order) == 0 {
		return Passage{}, false
	}

	startPos := 0
	chapter, verse := 0, 0
	if !coord.IsZero() {
		if idx, ok := c.index[CanonicalBookName(coord.Book)]; ok {
			pos := -1
			for i, candidate := range order {
				if candidate == idx {
					pos = i
					break
				}
			}
			if pos >= 0 {
				startPos = pos
				chapter, verse = coord.Chapter, coord.Verse
			}
		}
	}

	for pos := startPos; pos < len(order); pos++ {
		book := c.books[order[pos]]
		if passage, ok := nextInBook(book, chapter, verse); ok {
			return passage, true
		}
		// Book exhausted: continue at the top of the next allowed book.
		chapter, verse = 0, 0
	}
	return Passage{}, false
}

func nextInBook(book Book, afterChapter, afterVerse int) (Passage, bool) {
	for chapterIdx, chapter := range book.Chapters {
		chapterNum := chapterIdx + 1
		if chapterNum < afterChapter {
			continue
		}
		for verseIdx, text := range chapter {
			verseNum := verseIdx + 1
			if chapterNum == afterChapter && verseNum <= afterVerse {
				continue
			}
			return makePassage(book.Name, chapterNum, verseNum, text), true
		}
	}
	return Passage{}, false
}

func makePassage(book string, chapter, verse int, text string) Passage {
	trimmed := strings.TrimSpace(text)
	return Passage{
		Coordinate: Coordinate{Book: book, Chapter: chapter, Verse: verse},
		Text:       trimmed,
		WordCount:  len(strings.Fields(trimmed)),
	}
}
