package search

// Key is a navigation key understood by the result list.
type Key string

const (
	KeyDown   Key = "ArrowDown"
	KeyUp     Key = "ArrowUp"
	KeyEnter  Key = "Enter"
	KeyEscape Key = "Escape"
)

// Session is the state of the search box: the typed text, the current
// results and the highlighted row.
type Session struct {
	index *Index

	Query   string
	Results []Result
	// Active is the highlighted row, -1 when none.
	Active int
	// Open reports whether the result list is visible.
	Open bool
}

// NewSession starts an empty search over ix.
func NewSession(ix *Index) *Session {
	return &Session{index: ix, Active: -1}
}

// Input recomputes the results for new text and resets the highlight.
func (s *Session) Input(text string) {
	s.Query = text
	s.Results = s.index.Match(text)
	s.Active = -1
	s.Open = len(s.Results) > 0
}

// Key applies a navigation key. It returns the result to activate when the
// key was Enter and something is selectable.
func (s *Session) Key(k Key) (Result, bool) {
	if k == KeyEscape {
		s.Clear()
		return Result{}, false
	}
	n := len(s.Results)
	if n == 0 {
		return Result{}, false
	}

	switch k {
	case KeyDown:
		s.Active = min(s.Active+1, n-1)
	case KeyUp:
		s.Active = max(s.Active-1, 0)
	case KeyEnter:
		if s.Active >= 0 {
			return s.Results[s.Active], true
		}
		if n == 1 {
			return s.Results[0], true
		}
	}
	return Result{}, false
}

// Pick returns the result at i, as when a row is clicked.
func (s *Session) Pick(i int) (Result, bool) {
	if i < 0 || i >= len(s.Results) {
		return Result{}, false
	}
	return s.Results[i], true
}

// Clear empties the query and closes the list.
func (s *Session) Clear() {
	s.Query = ""
	s.Results = nil
	s.Active = -1
	s.Open = false
}

// Close hides the list but keeps the query and results.
func (s *Session) Close() {
	s.Open = false
}
