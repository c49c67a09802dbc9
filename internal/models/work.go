package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

type Work struct {
	Category         Category `json:"categoria"`
	Synopsis         string   `json:"sinopsis"`
	Link             string   `json:"link"`
	Acknowledgements string   `json:"agradecimientos"`
	Alias            *string  `json:"alias"`
}

// Works is the per-guild work registry: keyed by name, kept in insertion
// order, with a secondary alias index. Alias changes must go through SetAlias
// or ClearAlias so the index stays in step.
type Works struct {
	names   []string
	byName  map[string]*Work
	byAlias map[string]string
}

func NewWorks() Works {
	return Works{
		byName:  make(map[string]*Work),
		byAlias: make(map[string]string),
	}
}

func (w *Works) init() {
	if w.byName == nil {
		w.byName = make(map[string]*Work)
	}
	if w.byAlias == nil {
		w.byAlias = make(map[string]string)
	}
}

func (w *Works) Len() int {
	return len(w.names)
}

func (w *Works) Has(name string) bool {
	_, ok := w.byName[name]
	return ok
}

func (w *Works) Get(name string) (*Work, bool) {
	work, ok := w.byName[name]
	return work, ok
}

// Names returns the registered names in insertion order.
func (w *Works) Names() []string {
	out := make([]string, len(w.names))
	copy(out, w.names)
	return out
}

// Put inserts or replaces the work stored under name. A replaced work keeps
// its original position.
func (w *Works) Put(name string, work Work) {
	w.init()

	if old, ok := w.byName[name]; ok {
		if old.Alias != nil && w.byAlias[*old.Alias] == name {
			delete(w.byAlias, *old.Alias)
		}
	} else {
		w.names = append(w.names, name)
	}

	stored := work
	if work.Alias != nil {
		alias := *work.Alias
		stored.Alias = &alias
		if _, taken := w.byAlias[alias]; !taken {
			w.byAlias[alias] = name
		}
	}
	w.byName[name] = &stored
}

// AliasOwner returns the name of the work carrying alias.
func (w *Works) AliasOwner(alias string) (string, bool) {
	name, ok := w.byAlias[alias]
	return name, ok
}

func (w *Works) ByAlias(alias string) (string, *Work, bool) {
	name, ok := w.byAlias[alias]
	if !ok {
		return "", nil, false
	}
	return name, w.byName[name], true
}

// SetAlias replaces the alias of the named work. It does not check whether
// another work already uses alias.
func (w *Works) SetAlias(name, alias string) bool {
	work, ok := w.byName[name]
	if !ok {
		return false
	}
	w.init()
	if work.Alias != nil && w.byAlias[*work.Alias] == name {
		delete(w.byAlias, *work.Alias)
	}
	work.Alias = &alias
	w.byAlias[alias] = name
	return true
}

func (w *Works) ClearAlias(name string) bool {
	work, ok := w.byName[name]
	if !ok {
		return false
	}
	if work.Alias != nil && w.byAlias[*work.Alias] == name {
		delete(w.byAlias, *work.Alias)
	}
	work.Alias = nil
	return true
}

func (w *Works) Clone() Works {
	c := NewWorks()
	for _, name := range w.names {
		c.Put(name, *w.byName[name])
	}
	return c
}

func (w Works) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range w.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := Encode(name)
		if err != nil {
			return nil, err
		}
		value, err := Encode(w.byName[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (w *Works) UnmarshalJSON(data []byte) error {
	*w = NewWorks()

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("works: expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("works: expected key, got %v", tok)
		}

		var work Work
		if err := dec.Decode(&work); err != nil {
			return err
		}
		w.Put(name, work)
	}

	_, err = dec.Token()
	return err
}
