package ingest

import (
	"context"
	"strconv"

	"github.com/bookabooks/booka/pkg/books"
	"github.com/gosimple/slug"
	"github.com/pkg/errors"
)

// Candidates produces the alias candidate sequence for a book:
// the slugified title, then title-author if an author is known, then the
// last candidate suffixed with -0, -1, -2 and so on. The sequence is
// deterministic for a given title/author pair and never runs out.
type Candidates struct {
	title  string
	author string
	n      int
	last   string
}

func NewCandidates(title, author string) *Candidates {
	if title == "" {
		title = books.NoTitle
	}
	return &Candidates{title: title, author: author, n: -2}
}

// Next returns the next candidate. It always returns a non-empty alias.
func (c *Candidates) Next() string {
	switch {
	case c.n == -2:
		c.n++
		c.last = slug.Make(c.title)
		if c.last == "" {
			c.last = books.NoTitle
		}
		return c.last
	case c.n == -1:
		c.n++
		if c.author != "" {
			c.last = slug.Make(c.last + "-" + c.author)
			return c.last
		}
		fallthrough
	default:
		candidate := c.last + "-" + strconv.Itoa(c.n)
		c.n++
		return candidate
	}
}

// Allocator picks the first free alias from the candidate sequence. The
// check-then-act window between Exists and the insert is closed by the
// unique index on books.alias; on an insert conflict the caller restarts
// allocation.
type Allocator struct {
	Exists func(ctx context.Context, alias string) (bool, error)
}

// Allocate returns the first candidate alias not currently taken.
func (a *Allocator) Allocate(ctx context.Context, title, author string) (string, error) {
	candidates := NewCandidates(title, author)
	for {
		candidate := candidates.Next()
		taken, err := a.Exists(ctx, candidate)
		if err != nil {
			return "", errors.WithStack(err)
		}
		if !taken {
			return candidate, nil
		}
	}
}
