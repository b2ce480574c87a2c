// Package envstate implements the ordered save/load/validate traversal used to
// snapshot and restore a running match. Every participant walks its fields in a
// fixed order and hands each one to Process; the State decides whether that
// means writing, reading or comparing.
package envstate

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Mode selects what Process does with each field.
type Mode int

const (
	// Save encodes the current values.
	Save Mode = iota
	// Load overwrites the current values with stored ones.
	Load
	// Validate compares the current values against stored ones.
	Validate
)

func (m Mode) String() string {
	switch m {
	case Save:
		return "save"
	case Load:
		return "load"
	case Validate:
		return "validate"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

var (
	// ErrMismatch is returned by Err when a validated field differs from the stored value.
	ErrMismatch = errors.New("state mismatch")
	// ErrCorrupt is returned by Err when the stored data cannot describe a valid state,
	// such as a length longer than the remaining input.
	ErrCorrupt = errors.New("corrupt state")
)

// State carries one traversal. It stops at the first error; later Process calls are no-ops.
type State struct {
	mode     Mode
	validate bool
	field    int
	buf      *bytes.Buffer
	enc      *msgpack.Encoder
	in       *bytes.Reader
	dec      *msgpack.Decoder
	err      error
}

// NewSaver returns a State that records every processed field.
func NewSaver() *State {
	buf := &bytes.Buffer{}
	return &State{mode: Save, validate: true, buf: buf, enc: msgpack.NewEncoder(buf)}
}

// NewLoader returns a State that restores fields from data.
func NewLoader(data []byte) *State {
	return newReader(Load, data)
}

// NewValidator returns a State that checks fields against data.
func NewValidator(data []byte) *State {
	return newReader(Validate, data)
}

// newReader decodes straight from a bytes.Reader, which msgpack does not wrap in
// a bufio.Reader, so in.Len() is the input not yet consumed.
func newReader(mode Mode, data []byte) *State {
	in := bytes.NewReader(data)
	return &State{mode: mode, validate: true, in: in, dec: msgpack.NewDecoder(in)}
}

// Mode returns the traversal mode.
func (s *State) Mode() Mode { return s.mode }

// Load reports whether fields are being overwritten.
func (s *State) Load() bool { return s.mode == Load }

// SetValidate toggles comparison in Validate mode. Fields processed while off are
// read and discarded, which is how render-only data is excluded.
func (s *State) SetValidate(on bool) { s.validate = on }

// Err returns the first failure of the traversal.
func (s *State) Err() error { return s.err }

// Fail stops the traversal with err unless it already failed. Participants use
// it for stored values that decode but cannot be applied.
func (s *State) Fail(err error) {
	if s.err == nil {
		s.err = err
	}
}

// Bytes returns the encoded state of a Save traversal.
func (s *State) Bytes() []byte {
	if s.buf == nil {
		return nil
	}
	return s.buf.Bytes()
}

// Fields returns how many fields were processed so far.
func (s *State) Fields() int { return s.field }

// Process saves, loads or validates a single field.
func Process[T comparable](s *State, v *T) {
	if s.err != nil {
		return
	}
	s.field++

	switch s.mode {
	case Save:
		if err := s.enc.Encode(*v); err != nil {
			s.err = fmt.Errorf("encode field %d: %w", s.field, err)
		}
	case Load:
		if err := s.dec.Decode(v); err != nil {
			s.err = fmt.Errorf("decode field %d: %w", s.field, err)
		}
	case Validate:
		var stored T
		if err := s.dec.Decode(&stored); err != nil {
			s.err = fmt.Errorf("decode field %d: %w", s.field, err)
			return
		}
		if s.validate && stored != *v {
			s.err = fmt.Errorf("%w: field %d is %v, stored %v", ErrMismatch, s.field, *v, stored)
		}
	}
}

// ProcessCount handles a collection length. It returns the stored count on
// Load and Validate and n itself on Save. A stored count larger than the
// remaining input fails with ErrCorrupt, since every entry takes at least one byte.
func ProcessCount(s *State, n int) int {
	return ProcessCountMax(s, n, -1)
}

// ProcessCountMax is ProcessCount for collections that hold at most max entries.
// A negative max means no fixed bound.
func ProcessCountMax(s *State, n, max int) int {
	if s.err != nil {
		return n
	}
	if s.mode == Save {
		Process(s, &n)
		return n
	}
	current := n
	s.field++
	if err := s.dec.Decode(&n); err != nil {
		s.err = fmt.Errorf("decode field %d: %w", s.field, err)
		return current
	}
	switch {
	case n < 0:
		s.err = fmt.Errorf("%w: field %d has negative length %d", ErrCorrupt, s.field, n)
		return current
	case n > s.in.Len():
		s.err = fmt.Errorf("%w: field %d has length %d with %d bytes left", ErrCorrupt, s.field, n, s.in.Len())
		return current
	case max >= 0 && n > max:
		s.err = fmt.Errorf("%w: field %d has length %d, capacity %d", ErrCorrupt, s.field, n, max)
		return current
	}
	if s.mode == Validate && s.validate && n != current {
		s.err = fmt.Errorf("%w: field %d has %d entries, stored %d", ErrMismatch, s.field, current, n)
	}
	return n
}

// ProcessSlice handles a length-prefixed slice, resizing it on Load.
func ProcessSlice[T comparable](s *State, v *[]T) {
	n := ProcessCount(s, len(*v))
	if s.err != nil {
		return
	}
	switch s.mode {
	case Load:
		*v = make([]T, n)
		for i := range *v {
			Process(s, &(*v)[i])
		}
	case Validate:
		for i := 0; i < n; i++ {
			if i < len(*v) {
				Process(s, &(*v)[i])
				continue
			}
			var extra T
			Process(s, &extra)
		}
	default:
		for i := range *v {
			Process(s, &(*v)[i])
		}
	}
}

// Bounded is a fixed-capacity collection addressed newest first, such as a
// ring.Ring.
type Bounded[T any] interface {
	Len() int
	Cap() int
	Resize(n int)
	Ptr(i int) *T
}

// ProcessBounded walks a bounded collection oldest first. On Load it is resized
// to the stored count. Stored entries without a current counterpart, which only
// happens while validation is off, are read and dropped.
func ProcessBounded[T comparable](s *State, b Bounded[T]) {
	n := ProcessCountMax(s, b.Len(), b.Cap())
	if s.err != nil {
		return
	}
	if s.mode == Save {
		n = b.Len()
	}
	if s.mode == Load {
		b.Resize(n)
	}
	for i := n - 1; i >= 0 && s.err == nil; i-- {
		if i < b.Len() {
			Process(s, b.Ptr(i))
			continue
		}
		var extra T
		Process(s, &extra)
	}
}

// Finish verifies that a Load or Validate traversal consumed the whole input.
func (s *State) Finish() error {
	if s.err != nil {
		return s.err
	}
	if s.dec == nil {
		return nil
	}
	if _, err := s.dec.PeekCode(); err == nil {
		return fmt.Errorf("trailing data after %d fields", s.field)
	}
	return nil
}
