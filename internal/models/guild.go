package models

import (
	"bytes"
	"encoding/json"
	"slices"
)

type Guild struct {
	ID       string   `json:"-"`
	Roles    []ID     `json:"roles"`
	Channels Channels `json:"channels"`
	Donation *string  `json:"donacion"`
	Works    Works    `json:"works"`
}

// Channels maps each category to its announcement channel. The four keys are
// always present in the encoded form, null when unset.
type Channels struct {
	BL     *ID `json:"BL"`
	GL     *ID `json:"GL"`
	Plus15 *ID `json:"+15"`
	Plus18 *ID `json:"+18"`
}

func NewGuild(id string) *Guild {
	return &Guild{
		ID:    id,
		Roles: []ID{},
		Works: NewWorks(),
	}
}

func (g *Guild) UnmarshalJSON(data []byte) error {
	type plain Guild
	p := plain(*NewGuild(g.ID))
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if p.Roles == nil {
		p.Roles = []ID{}
	}
	*g = Guild(p)
	return nil
}

func (g Guild) Map() (map[string]any, error) {
	document, err := Encode(g)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"id":       g.ID,
		"document": string(document),
	}, nil
}

func (g Guild) Table() Table {
	return TableGuilds
}

func (g *Guild) HasRole(id ID) bool {
	return slices.Contains(g.Roles, id)
}

// AddRole reports false when the role was already authorized.
func (g *Guild) AddRole(id ID) bool {
	if g.HasRole(id) {
		return false
	}
	g.Roles = append(g.Roles, id)
	return true
}

// RemoveRole reports false when the role was not authorized.
func (g *Guild) RemoveRole(id ID) bool {
	i := slices.Index(g.Roles, id)
	if i < 0 {
		return false
	}
	g.Roles = slices.Delete(g.Roles, i, i+1)
	return true
}

func (g *Guild) SetDonation(message string) {
	g.Donation = &message
}

func (g *Guild) Clone() *Guild {
	c := &Guild{
		ID:       g.ID,
		Roles:    slices.Clone(g.Roles),
		Channels: g.Channels.clone(),
		Works:    g.Works.Clone(),
	}
	if c.Roles == nil {
		c.Roles = []ID{}
	}
	if g.Donation != nil {
		c.SetDonation(*g.Donation)
	}
	return c
}

func (c *Channels) slot(cat Category) **ID {
	switch cat {
	case CategoryBL:
		return &c.BL
	case CategoryGL:
		return &c.GL
	case CategoryPlus15:
		return &c.Plus15
	case CategoryPlus18:
		return &c.Plus18
	}
	return nil
}

// Get returns the channel configured for cat, if any.
func (c Channels) Get(cat Category) (ID, bool) {
	p := c.slot(cat)
	if p == nil || *p == nil || **p == "" {
		return "", false
	}
	return **p, true
}

func (c *Channels) Set(cat Category, id ID) bool {
	p := c.slot(cat)
	if p == nil {
		return false
	}
	*p = &id
	return true
}

func (c Channels) clone() Channels {
	var out Channels
	for _, cat := range Categories {
		if id, ok := c.Get(cat); ok {
			out.Set(cat, id)
		}
	}
	return out
}

// Encode marshals v without HTML escaping so links and free text are stored
// as written.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
