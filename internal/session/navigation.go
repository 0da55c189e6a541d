package session

import (
	"fmt"

	"quizhub-service/internal/domain"
)

// Navigator tracks the current question index.
// Once frozen every move is silently ignored.
type Navigator struct {
	count   int
	current int
	frozen  bool
}

func NewNavigator(count int) *Navigator {
	return &Navigator{count: count}
}

// Next advances by one, stopping at the last question.
func (n *Navigator) Next() int {
	if !n.frozen && n.current < n.count-1 {
		n.current++
	}
	return n.current
}

// Previous steps back by one, stopping at the first question.
func (n *Navigator) Previous() int {
	if !n.frozen && n.current > 0 {
		n.current--
	}
	return n.current
}

// JumpTo moves directly to index.
func (n *Navigator) JumpTo(index int) (int, error) {
	if n.frozen {
		return n.current, nil
	}
	if index < 0 || index >= n.count {
		return n.current, fmt.Errorf("%w: %d not in [0,%d)", domain.ErrOutOfRange, index, n.count)
	}
	n.current = index
	return n.current, nil
}

func (n *Navigator) Current() int { return n.current }

func (n *Navigator) Freeze() { n.frozen = true }

func (n *Navigator) Frozen() bool { return n.frozen }
