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

func aliasInUse(alias string) utils.Failure {
	return utils.Conflict(fmt.Sprintf("❌ El alias `%s` ya está en uso.", alias))
}

type SetAlias struct{}

func (c *SetAlias) Metadata() handlers.Command {
	return handlers.Command{
		Name:   "setalias",
		Usage:  "setalias Obra Alias",
		Access: handlers.AccessStaff,
	}
}

// Handle takes the exact work name; quote it when it has spaces.
func (c *SetAlias) Handle(ctx context.Context, dep handlers.Dependencies) error {
	inv := dep.Invocation
	if len(inv.Args) < 2 {
		return dep.Usage(c.Metadata())
	}

	name, alias := inv.Arg(0), inv.Arg(1)

	_, err := dep.Store.Update(ctx, inv.GuildID, func(g *md.Guild) error {
		return registry.SetAlias(g, name, alias)
	})
	switch {
	case errors.Is(err, registry.ErrWorkNotFound):
		return utils.NotFound(fmt.Sprintf("❌ No se encontró la obra `%s`.", name))
	case errors.Is(err, registry.ErrAliasInUse):
		return aliasInUse(alias)
	case err != nil:
		return errutil.With(err)
	}

	return dep.Reply(ctx, fmt.Sprintf("✅ Alias asignado: `%s` → `%s`.", name, alias))
}

type EditAlias struct{}

func (c *EditAlias) Metadata() handlers.Command {
	return handlers.Command{
		Name:   "editalias",
		Usage:  "editalias AliasViejo AliasNuevo",
		Access: handlers.AccessStaff,
	}
}

func (c *EditAlias) Handle(ctx context.Context, dep handlers.Dependencies) error {
	inv := dep.Invocation
	if len(inv.Args) < 2 {
		return dep.Usage(c.Metadata())
	}

	oldAlias, newAlias := inv.Arg(0), inv.Arg(1)

	_, err := dep.Store.Update(ctx, inv.GuildID, func(g *md.Guild) error {
		_, err := registry.RenameAlias(g, oldAlias, newAlias)
		return err
	})
	switch {
	case errors.Is(err, registry.ErrAliasNotFound):
		return utils.NotFound(fmt.Sprintf("❌ El alias `%s` no existe.", oldAlias))
	case errors.Is(err, registry.ErrAliasInUse):
		return aliasInUse(newAlias)
	case err != nil:
		return errutil.With(err)
	}

	return dep.Reply(ctx, fmt.Sprintf("✅ Alias actualizado: `%s` → `%s`.", oldAlias, newAlias))
}

type ListAliases struct{}

func (c *ListAliases) Metadata() handlers.Command {
	return handlers.Command{
		Name:   "listalias",
		Usage:  "listalias",
		Access: handlers.AccessPublic,
	}
}

func (c *ListAliases) Handle(ctx context.Context, dep handlers.Dependencies) error {
	var b strings.Builder
	b.WriteString("🏷️ Alias registrados:\n")

	entries := registry.ListAliases(dep.Guild)
	for _, e := range entries {
		fmt.Fprintf(&b, "- **%s** → `%s`\n", e.Name, e.Alias)
	}
	if len(entries) == 0 {
		b.WriteString("(no hay alias registrados)\n")
	}

	return dep.Reply(ctx, b.String())
}
