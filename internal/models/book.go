package models

import "fmt"

// ChapterState is the generation state of one book chapter.
type ChapterState string

const (
	ChapterPending    ChapterState = "pending"
	ChapterGenerating ChapterState = "generating"
	ChapterIncomplete ChapterState = "incomplete"
	ChapterComplete   ChapterState = "complete"
)

var chapterTransitions = map[ChapterState][]ChapterState{
	ChapterPending:    {ChapterGenerating},
	ChapterGenerating: {ChapterIncomplete, ChapterComplete},
	ChapterIncomplete: {ChapterGenerating},
	ChapterComplete:   {}, // Terminal state
}

// ValidateChapterTransition reports whether a chapter may move from one state to another.
func ValidateChapterTransition(from, to ChapterState) error {
	allowed, ok := chapterTransitions[from]
	if !ok {
		return fmt.Errorf("invalid chapter state: %s", from)
	}
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	return fmt.Errorf("invalid chapter transition from %s to %s", from, to)
}

// Chapter is one chapter of the implementation book.
type Chapter struct {
	Title    string   `json:"title" validate:"required"`
	Sections []string `json:"sections,omitempty"`
	Content  string   `json:"content"`
	// IsComplete is only set once the completion sentinel has been observed.
	IsComplete    bool         `json:"isComplete"`
	State         ChapterState `json:"state"`
	Continuations int          `json:"continuations"`
}

// Advance moves the chapter to a new state, enforcing the transition table.
func (c *Chapter) Advance(to ChapterState) error {
	from := c.State
	if from == "" {
		from = ChapterPending
	}
	if err := ValidateChapterTransition(from, to); err != nil {
		return err
	}
	c.State = to
	c.IsComplete = to == ChapterComplete
	return nil
}

// Book is the long-form implementation book.
type Book struct {
	Title        string    `json:"title" validate:"required"`
	Introduction string    `json:"introduction"`
	Chapters     []Chapter `json:"chapters" validate:"required,min=1,dive"`
	IsComplete   bool      `json:"isComplete"`
}

// RefreshCompletion recomputes the book-level completion flag.
func (b *Book) RefreshCompletion() bool {
	complete := len(b.Chapters) > 0
	for _, ch := range b.Chapters {
		if !ch.IsComplete {
			complete = false
			break
		}
	}
	b.IsComplete = complete
	return complete
}

// BookProgress is reported after each chapter finishes. CompletedChapters
// counts only chapters that signalled completion; Progress tracks chapters
// attempted.
type BookProgress struct {
	TotalChapters     int     `json:"totalChapters"`
	CompletedChapters int     `json:"completedChapters"`
	CurrentChapter    int     `json:"currentChapter"`
	Progress          float64 `json:"progress"`
}
