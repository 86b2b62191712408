package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ChangeSet holds the latest value captured for each form field.
// It is not safe for concurrent use; callers guard it.
type ChangeSet struct {
	fields map[string]string
	dirty  bool
}

func NewChangeSet() *ChangeSet {
	return &ChangeSet{fields: map[string]string{}}
}

func (c *ChangeSet) Set(name, value string) {
	c.fields[name] = value
	c.dirty = true
}

// Merge copies values into the set. Supplied values win on collision.
func (c *ChangeSet) Merge(values map[string]string) {
	if len(values) == 0 {
		return
	}
	for name, value := range values {
		c.fields[name] = value
	}
	c.dirty = true
}

func (c *ChangeSet) Len() int {
	return len(c.fields)
}

func (c *ChangeSet) IsEmpty() bool {
	return len(c.fields) == 0
}

func (c *ChangeSet) Dirty() bool {
	return c.dirty
}

func (c *ChangeSet) Get(name string) (string, bool) {
	value, ok := c.fields[name]
	return value, ok
}

func (c *ChangeSet) Snapshot() map[string]string {
	out := make(map[string]string, len(c.fields))
	for name, value := range c.fields {
		out[name] = value
	}
	return out
}

// MarkSaved clears the dirty flag if the set still equals snapshot.
func (c *ChangeSet) MarkSaved(snapshot map[string]string) {
	if equalFields(c.fields, snapshot) {
		c.dirty = false
	}
}

// Forget drops every field whose current value still matches snapshot.
// Fields edited after the snapshot was taken are kept.
func (c *ChangeSet) Forget(snapshot map[string]string) {
	for name, value := range snapshot {
		if current, ok := c.fields[name]; ok && current == value {
			delete(c.fields, name)
		}
	}
	c.dirty = len(c.fields) > 0
}

func EncodeFields(fields map[string]string) (string, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode draft fields: %w", err)
	}
	return string(data), nil
}

func DecodeFields(raw string) (map[string]string, error) {
	fields := map[string]string{}
	if strings.TrimSpace(raw) == "" {
		return fields, nil
	}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("decode draft fields: %w", err)
	}
	return fields, nil
}

func equalFields(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for name, value := range a {
		other, ok := b[name]
		if !ok || other != value {
			return false
		}
	}
	return true
}
