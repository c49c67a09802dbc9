package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	dg "github.com/bwmarrin/discordgo"
	"github.com/glotchimo/obras/internal/handlers"
	md "github.com/glotchimo/obras/internal/models"
	"github.com/glotchimo/obras/internal/utils"
	"github.com/graxinc/errutil"
)

type AddRole struct{}

func (c *AddRole) Metadata() handlers.Command {
	return handlers.Command{
		Name:   "addrol",
		Usage:  "addrol @Rol",
		Access: handlers.AccessAdmin,
	}
}

func (c *AddRole) Handle(ctx context.Context, dep handlers.Dependencies) error {
	id := roleArg(dep.Invocation)
	if id == "" {
		return dep.Usage(c.Metadata())
	}

	role, ok := findRole(dep, id)
	if !ok {
		return utils.NotFound("❌ No se encontró el rol.")
	}

	_, err := dep.Store.Update(ctx, dep.Invocation.GuildID, func(g *md.Guild) error {
		if !g.AddRole(md.ID(role.ID)) {
			return errNoChange
		}
		return nil
	})
	if errors.Is(err, errNoChange) {
		return dep.Reply(ctx, "⚠️ Ese rol ya estaba autorizado.")
	}
	if err != nil {
		return errutil.With(err)
	}

	return dep.Reply(ctx, fmt.Sprintf("✅ Rol `%s` agregado como autorizado.", role.Name))
}

type DeleteRole struct{}

func (c *DeleteRole) Metadata() handlers.Command {
	return handlers.Command{
		Name:   "delrol",
		Usage:  "delrol @Rol",
		Access: handlers.AccessAdmin,
	}
}

// Handle also accepts the raw id of a role that no longer exists so stale
// entries can be cleaned up.
func (c *DeleteRole) Handle(ctx context.Context, dep handlers.Dependencies) error {
	id := roleArg(dep.Invocation)
	if id == "" {
		return dep.Usage(c.Metadata())
	}

	name := id
	if role, ok := findRole(dep, id); ok {
		id, name = role.ID, role.Name
	}

	_, err := dep.Store.Update(ctx, dep.Invocation.GuildID, func(g *md.Guild) error {
		if !g.RemoveRole(md.ID(id)) {
			return errNoChange
		}
		return nil
	})
	if errors.Is(err, errNoChange) {
		return dep.Reply(ctx, "⚠️ Ese rol no estaba autorizado.")
	}
	if err != nil {
		return errutil.With(err)
	}

	return dep.Reply(ctx, fmt.Sprintf("✅ Rol `%s` eliminado.", name))
}

type ListRoles struct{}

func (c *ListRoles) Metadata() handlers.Command {
	return handlers.Command{
		Name:   "verroles",
		Usage:  "verroles",
		Access: handlers.AccessAdmin,
	}
}

func (c *ListRoles) Handle(ctx context.Context, dep handlers.Dependencies) error {
	if len(dep.Guild.Roles) == 0 {
		return dep.Reply(ctx, "ℹ️ No hay roles autorizados configurados.")
	}

	var names []string
	for _, id := range dep.Guild.Roles {
		if role, ok := dep.Transport.Role(dep.Invocation.GuildID, id.String()); ok {
			names = append(names, "- "+role.Name)
		}
	}

	if len(names) == 0 {
		return dep.Reply(ctx, "ℹ️ Ningún rol válido encontrado.")
	}

	return dep.Reply(ctx, "🔐 Roles autorizados:\n"+strings.Join(names, "\n"))
}

// roleArg prefers a real role mention over the text of the first argument.
func roleArg(inv handlers.Invocation) string {
	if len(inv.RoleMentions) > 0 {
		return inv.RoleMentions[0]
	}
	return utils.ParseMention(inv.Arg(0))
}

// findRole resolves id as a role id, falling back to an exact role name
// taken from the whole argument text.
func findRole(dep handlers.Dependencies, id string) (*dg.Role, bool) {
	inv := dep.Invocation
	if role, ok := dep.Transport.Role(inv.GuildID, id); ok {
		return role, true
	}
	if len(inv.RoleMentions) > 0 {
		return nil, false
	}
	return dep.Transport.RoleNamed(inv.GuildID, inv.Rest(0))
}

