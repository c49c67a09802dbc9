package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/glotchimo/obras/internal/handlers"
	md "github.com/glotchimo/obras/internal/models"
	"github.com/glotchimo/obras/internal/utils"
	"github.com/graxinc/errutil"
)

type SetChannel struct{}

func (c *SetChannel) Metadata() handlers.Command {
	return handlers.Command{
		Name:   "setcanal",
		Usage:  "setcanal CAT",
		Access: handlers.AccessStaff,
	}
}

// Handle makes the invoking channel the announcement channel of a category.
func (c *SetChannel) Handle(ctx context.Context, dep handlers.Dependencies) error {
	if len(dep.Invocation.Args) < 1 {
		return dep.Usage(c.Metadata())
	}

	cat, ok := md.ParseCategory(dep.Invocation.Arg(0))
	if !ok {
		return errInvalidCategory
	}

	if _, err := dep.Store.Update(ctx, dep.Invocation.GuildID, func(g *md.Guild) error {
		g.Channels.Set(cat, md.ID(dep.Invocation.ChannelID))
		return nil
	}); err != nil {
		return errutil.With(err)
	}

	return dep.Reply(ctx, fmt.Sprintf("✅ Canal configurado para `%s`.", cat))
}

type ListChannels struct{}

func (c *ListChannels) Metadata() handlers.Command {
	return handlers.Command{
		Name:   "vercanales",
		Usage:  "vercanales",
		Access: handlers.AccessPublic,
	}
}

func (c *ListChannels) Handle(ctx context.Context, dep handlers.Dependencies) error {
	var b strings.Builder
	b.WriteString("📺 Canales configurados:\n")

	for _, cat := range md.Categories {
		id, ok := dep.Guild.Channels.Get(cat)
		if !ok {
			fmt.Fprintf(&b, "- %s: (sin canal asignado)\n", cat)
			continue
		}

		if ch, ok := dep.Transport.Channel(dep.Invocation.GuildID, id.String()); ok {
			fmt.Fprintf(&b, "- %s: %s\n", cat, utils.FormatChannelMention(ch.ID))
		} else {
			fmt.Fprintf(&b, "- %s: (canal no existe)\n", cat)
		}
	}

	return dep.Reply(ctx, b.String())
}
