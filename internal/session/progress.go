package session

// Progress counts errors found and wrong attempts for one session.
type Progress struct {
	total    int
	maxWrong int

	found map[int]struct{}
	wrong int
}

// NewProgress returns a tracker for total errors and maxWrong wrong attempts.
func NewProgress(total, maxWrong int) *Progress {
	return &Progress{
		total:    total,
		maxWrong: maxWrong,
		found:    map[int]struct{}{},
	}
}

// Reset clears all counters.
func (p *Progress) Reset() {
	p.found = map[int]struct{}{}
	p.wrong = 0
}

// FoundError records error index as found. It returns false when the index is
// out of range or was already found, leaving the count unchanged.
func (p *Progress) FoundError(index int) bool {
	if index < 0 || index >= p.total {
		return false
	}
	if _, ok := p.found[index]; ok {
		return false
	}
	p.found[index] = struct{}{}
	return true
}

// WrongAttempt records a wrong click.
func (p *Progress) WrongAttempt() {
	if p.wrong < p.maxWrong {
		p.wrong++
	}
}

// IsFound reports whether index was already found.
func (p *Progress) IsFound(index int) bool {
	_, ok := p.found[index]
	return ok
}

// ErrorsFound returns the number of distinct errors found.
func (p *Progress) ErrorsFound() int {
	return len(p.found)
}

// WrongAttempts returns the number of wrong attempts.
func (p *Progress) WrongAttempts() int {
	return p.wrong
}

// AllFound reports whether every error has been found.
func (p *Progress) AllFound() bool {
	return len(p.found) >= p.total
}

// MaxWrongReached reports whether the wrong attempt budget is spent.
func (p *Progress) MaxWrongReached() bool {
	return p.wrong >= p.maxWrong
}
