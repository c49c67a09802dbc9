package registry

import (
	"errors"

	"github.com/glotchimo/obras/internal/models"
)

var (
	ErrInvalidCategory = errors.New("invalid category")
	ErrWorkExists      = errors.New("work already exists")
	ErrWorkNotFound    = errors.New("work not found")
	ErrAliasInUse      = errors.New("alias already in use")
	ErrAliasNotFound   = errors.New("alias not found")
)

type Entry struct {
	Name string
	Work models.Work
}

type AliasEntry struct {
	Name  string
	Alias string
}

// Find resolves key as an exact work name first, then as an alias.
func Find(g *models.Guild, key string) (string, *models.Work, error) {
	if work, ok := g.Works.Get(key); ok {
		return key, work, nil
	}
	if name, work, ok := g.Works.ByAlias(key); ok {
		return name, work, nil
	}
	return "", nil, ErrWorkNotFound
}

// CheckNew validates the arguments of a registration before any prompt is
// sent.
func CheckNew(g *models.Guild, category, name string) (models.Category, error) {
	cat, ok := models.ParseCategory(category)
	if !ok {
		return "", ErrInvalidCategory
	}
	if g.Works.Has(name) {
		return "", ErrWorkExists
	}
	return cat, nil
}

// Commit turns a completed registration into a work with no alias. The name
// is checked again since other commands may have run while the flow waited.
func Commit(g *models.Guild, p models.PendingRegistration) error {
	if g.Works.Has(p.Name) {
		return ErrWorkExists
	}
	g.Works.Put(p.Name, p.Work())
	if p.Donation != nil {
		g.SetDonation(*p.Donation)
	}
	return nil
}

// SetAlias assigns alias to the work registered under the exact name. The
// alias must not be carried by any work, including this one.
func SetAlias(g *models.Guild, name, alias string) error {
	if !g.Works.Has(name) {
		return ErrWorkNotFound
	}
	if _, taken := g.Works.AliasOwner(alias); taken {
		return ErrAliasInUse
	}
	g.Works.SetAlias(name, alias)
	return nil
}

// RenameAlias moves the work carrying oldAlias to newAlias and returns that
// work's name.
func RenameAlias(g *models.Guild, oldAlias, newAlias string) (string, error) {
	name, ok := g.Works.AliasOwner(oldAlias)
	if !ok {
		return "", ErrAliasNotFound
	}
	if _, taken := g.Works.AliasOwner(newAlias); taken {
		return "", ErrAliasInUse
	}
	g.Works.SetAlias(name, newAlias)
	return name, nil
}

func EditLink(g *models.Guild, key, link string) (string, error) {
	name, work, err := Find(g, key)
	if err != nil {
		return "", err
	}
	work.Link = link
	return name, nil
}

// List returns every work in insertion order.
func List(g *models.Guild) []Entry {
	entries := make([]Entry, 0, g.Works.Len())
	for _, name := range g.Works.Names() {
		work, _ := g.Works.Get(name)
		entries = append(entries, Entry{Name: name, Work: *work})
	}
	return entries
}

// ListAliases returns the works that carry an alias, in insertion order.
func ListAliases(g *models.Guild) []AliasEntry {
	var entries []AliasEntry
	for _, name := range g.Works.Names() {
		work, _ := g.Works.Get(name)
		if work.Alias != nil && *work.Alias != "" {
			entries = append(entries, AliasEntry{Name: name, Alias: *work.Alias})
		}
	}
	return entries
}
