package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glotchimo/obras/internal/handlers"
	md "github.com/glotchimo/obras/internal/models"
	"github.com/glotchimo/obras/internal/registry"
	"github.com/glotchimo/obras/internal/utils"
	"github.com/graxinc/errutil"
)

var errWorkExists = utils.Conflict("⚠️ Esa obra ya existe.")

type AddWork struct{}

func (c *AddWork) Metadata() handlers.Command {
	return handlers.Command{
		Name:   "agregarobra",
		Usage:  "agregarobra CAT Nombre",
		Access: handlers.AccessStaff,
	}
}

// Handle registers a work by asking for its fields one at a time. The work
// is only stored once every answer is in.
func (c *AddWork) Handle(ctx context.Context, dep handlers.Dependencies) error {
	inv := dep.Invocation
	if len(inv.Args) < 2 {
		return dep.Usage(c.Metadata())
	}

	name := inv.Rest(1)
	cat, err := registry.CheckNew(dep.Guild, inv.Arg(0), name)
	switch {
	case errors.Is(err, registry.ErrInvalidCategory):
		return errInvalidCategory
	case errors.Is(err, registry.ErrWorkExists):
		return errWorkExists
	}

	s, err := beginFlow(dep)
	if err != nil {
		return err
	}
	defer s.Close()

	pending := md.PendingRegistration{
		GuildID:  inv.GuildID,
		Category: cat,
		Name:     name,
	}

	reply, err := s.Ask(ctx, fmt.Sprintf("📚 Registrando **%s**.\n📝 Escribe la **sinopsis**.", name))
	if err != nil {
		return endFlow(ctx, dep, s, err)
	}
	pending.Synopsis = reply.Content

	reply, err = s.Ask(ctx, "🔗 Escribe el link base de la obra.")
	if err != nil {
		return endFlow(ctx, dep, s, err)
	}
	pending.Link = reply.Content

	reply, err = s.Ask(ctx, "🙌 Escribe los agradecimientos (o `default`).")
	if err != nil {
		return endFlow(ctx, dep, s, err)
	}
	pending.Acknowledgements = reply.Content
	if isKeyword(reply.Content, keywordDefault) {
		pending.Acknowledgements = DefaultAcknowledgements
	}

	if dep.Guild.Donation == nil {
		reply, err = s.Ask(ctx, "💖 No hay donaciones aún. Escríbelo (o `ninguno`).")
		if err != nil {
			return endFlow(ctx, dep, s, err)
		}
		if !isKeyword(reply.Content, keywordNone) {
			donation := reply.Content
			pending.Donation = &donation
		}
	}

	_, err = dep.Store.Update(ctx, inv.GuildID, func(g *md.Guild) error {
		return registry.Commit(g, pending)
	})
	if errors.Is(err, registry.ErrWorkExists) {
		return errWorkExists
	}
	if err != nil {
		return errutil.With(err)
	}

	dep.Logger.Info("work registered", "session", s.ID, "guild", inv.GuildID, "work", name, "category", cat)
	return dep.Reply(ctx, fmt.Sprintf("✅ Obra **%s** registrada.", name))
}

type ListWorks struct{}

func (c *ListWorks) Metadata() handlers.Command {
	return handlers.Command{
		Name:   "verobras",
		Usage:  "verobras",
		Access: handlers.AccessPublic,
	}
}

func (c *ListWorks) Handle(ctx context.Context, dep handlers.Dependencies) error {
	entries := registry.List(dep.Guild)
	if len(entries) == 0 {
		return dep.Reply(ctx, "ℹ️ No hay obras registradas.")
	}

	var b strings.Builder
	b.WriteString("📚 Obras registradas:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "- %s (%s)", e.Name, e.Work.Category)
		if e.Work.Alias != nil && *e.Work.Alias != "" {
			fmt.Fprintf(&b, " | alias: `%s`", *e.Work.Alias)
		}
		b.WriteString("\n")
	}

	return dep.Reply(ctx, b.String())
}

type ShowWork struct{}

func (c *ShowWork) Metadata() handlers.Command {
	return handlers.Command{
		Name:   "verobra",
		Usage:  "verobra Nombre/Alias",
		Access: handlers.AccessPublic,
	}
}

func (c *ShowWork) Handle(ctx context.Context, dep handlers.Dependencies) error {
	key := dep.Invocation.Rest(0)
	if key == "" {
		return dep.Usage(c.Metadata())
	}

	name, work, err := registry.Find(dep.Guild, key)
	if err != nil {
		return notFound(key)
	}

	alias := "(sin alias)"
	if work.Alias != nil {
		alias = fmt.Sprintf("`%s`", *work.Alias)
	}

	return dep.Reply(ctx, fmt.Sprintf(
		"📚 **%s**\n📂 Categoría: %s\n📝 Sinopsis: %s\n🔗 Link: %s\n🙌 Agradecimientos: %s\n🏷️ Alias: %s",
		name, work.Category, work.Synopsis, work.Link, work.Acknowledgements, alias,
	))
}

type EditLink struct{}

func (c *EditLink) Metadata() handlers.Command {
	return handlers.Command{
		Name:   "editarlink",
		Usage:  "editarlink Nombre/Alias NuevoLink",
		Access: handlers.AccessStaff,
	}
}

func (c *EditLink) Handle(ctx context.Context, dep handlers.Dependencies) error {
	inv := dep.Invocation
	if len(inv.Args) < 2 {
		return dep.Usage(c.Metadata())
	}

	key, link := inv.Arg(0), inv.Rest(1)

	var name string
	_, err := dep.Store.Update(ctx, inv.GuildID, func(g *md.Guild) error {
		var err error
		name, err = registry.EditLink(g, key, link)
		return err
	})
	if errors.Is(err, registry.ErrWorkNotFound) {
		return notFound(key)
	}
	if err != nil {
		return errutil.With(err)
	}

	return dep.Reply(ctx, fmt.Sprintf("✅ Link actualizado para **%s**.", name))
}
