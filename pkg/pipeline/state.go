package pipeline

import (
	"sort"

	"github.com/pkg/errors"
)

// State is the write-once key/value context threaded through the steps of a run.
// It is owned by a single run and is not safe for concurrent use.
type State struct {
	values map[string]any
	order  []string
}

// NewState creates an empty state.
func NewState() *State {
	return &State{
		values: make(map[string]any),
	}
}

// Get returns the value stored under key.
func (s *State) Get(key string) (any, error) {
	v, ok := s.values[key]
	if !ok {
		return nil, errors.Wrapf(ErrKeyNotFound, "key %q", key)
	}

	return v, nil
}

// Set stores value under key. A key can only be written once.
func (s *State) Set(key string, value any) error {
	if _, ok := s.values[key]; ok {
		return errors.Wrapf(ErrDuplicateKeyWrite, "key %q", key)
	}

	s.values[key] = value
	s.order = append(s.order, key)

	return nil
}

// Has reports whether key was written.
func (s *State) Has(key string) bool {
	_, ok := s.values[key]

	return ok
}

// Keys returns the keys in write order.
func (s *State) Keys() []string {
	keys := make([]string, len(s.order))
	copy(keys, s.order)

	return keys
}

// Len returns the number of keys.
func (s *State) Len() int {
	return len(s.order)
}

// Snapshot returns a copy of the mapping.
func (s *State) Snapshot() map[string]any {
	snap := make(map[string]any, len(s.values))
	for k, v := range s.values {
		snap[k] = v
	}

	return snap
}

// View returns a read-only view limited to keys.
// All absent keys are reported at once in a *MissingInputError.
func (s *State) View(step string, keys ...string) (*View, error) {
	view := &View{
		values: make(map[string]any, len(keys)),
		keys:   make([]string, 0, len(keys)),
	}

	var missing []string

	for _, key := range keys {
		v, ok := s.values[key]
		if !ok {
			missing = append(missing, key)

			continue
		}

		view.values[key] = v
		view.keys = append(view.keys, key)
	}

	if len(missing) > 0 {
		return nil, &MissingInputError{Step: step, Keys: missing}
	}

	return view, nil
}

// View exposes only the declared inputs of a step.
type View struct {
	values map[string]any
	keys   []string
}

// Get returns the value of a declared input.
func (v *View) Get(key string) (any, error) {
	val, ok := v.values[key]
	if !ok {
		return nil, errors.Wrapf(ErrUndeclaredInput, "key %q", key)
	}

	return val, nil
}

// String returns a declared input holding a string.
func (v *View) String(key string) (string, error) {
	val, err := v.Get(key)
	if err != nil {
		return "", err
	}

	str, ok := val.(string)
	if !ok {
		return "", errors.Wrapf(ErrUnexpectedType, "key %q: got %T, want string", key, val)
	}

	return str, nil
}

// Bytes returns a declared input holding a []byte.
func (v *View) Bytes(key string) ([]byte, error) {
	val, err := v.Get(key)
	if err != nil {
		return nil, err
	}

	b, ok := val.([]byte)
	if !ok {
		return nil, errors.Wrapf(ErrUnexpectedType, "key %q: got %T, want []byte", key, val)
	}

	return b, nil
}

// Int returns a declared input holding any Go integer type.
func (v *View) Int(key string) (int, error) {
	val, err := v.Get(key)
	if err != nil {
		return 0, err
	}

	switch n := val.(type) {
	case int:
		return n, nil
	case int32:
		return int(n), nil
	case int64:
		return int(n), nil
	case uint:
		return int(n), nil
	case uint32:
		return int(n), nil
	default:
		return 0, errors.Wrapf(ErrUnexpectedType, "key %q: got %T, want int", key, val)
	}
}

// Keys returns the declared inputs, in declaration order.
func (v *View) Keys() []string {
	keys := make([]string, len(v.keys))
	copy(keys, v.keys)

	return keys
}

// Map returns a copy of the declared inputs.
func (v *View) Map() map[string]any {
	m := make(map[string]any, len(v.values))
	for k, val := range v.values {
		m[k] = val
	}

	return m
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}
