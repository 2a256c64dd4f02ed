package loop

import (
	"errors"
	"sync"
)

var ErrEmptyStack = errors.New("error: empty stack")

// Stack is a stack of loops, outermost at the bottom.
type Stack struct {
	sync.Mutex
	s []*Info
}

// NewStack creates a new Stack.
func NewStack() *Stack {
	return &Stack{s: []*Info{}}
}

// Push adds a new Info to the top of stack.
func (s *Stack) Push(i *Info) {
	s.Lock()
	defer s.Unlock()
	s.s = append(s.s, i)
}

// Pop removes a Loop from top of stack.
func (s *Stack) Pop() (*Info, error) {
	s.Lock()
	defer s.Unlock()

	size := len(s.s)
	if size == 0 {
		return nil, ErrEmptyStack
	}
	l := s.s[size-1]
	s.s = s.s[:size-1]
	return l, nil
}

// Peek returns the loop at the top of stack.
func (s *Stack) Peek() (*Info, error) {
	s.Lock()
	defer s.Unlock()

	if len(s.s) == 0 {
		return nil, ErrEmptyStack
	}
	return s.s[len(s.s)-1], nil
}

// Len returns the number of loops in the stack.
func (s *Stack) Len() int {
	s.Lock()
	defer s.Unlock()
	return len(s.s)
}

// Slice returns a copy of the stack, bottom first.
func (s *Stack) Slice() []*Info {
	s.Lock()
	defer s.Unlock()
	out := make([]*Info, len(s.s))
	copy(out, s.s)
	return out
}

// IsEmpty returns true if stack is empty.
func (s *Stack) IsEmpty() bool {
	return s.Len() == 0
}
