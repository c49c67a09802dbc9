package commands

import (
	"context"
	"fmt"

	dg "github.com/bwmarrin/discordgo"
	"github.com/glotchimo/obras/internal/handlers"
	rp "github.com/glotchimo/obras/internal/response"
)

// Help renders one page of the help catalog. The page name doubles as the
// command name.
type Help struct {
	Page   string
	Access handlers.Access
}

func (c *Help) Metadata() handlers.Command {
	return handlers.Command{
		Name:   c.Page,
		Usage:  c.Page,
		Access: c.Access,
	}
}

func (c *Help) Handle(ctx context.Context, dep handlers.Dependencies) error {
	page, ok := dep.Help.Page(c.Page)
	if !ok {
		return fmt.Errorf("help page %q is missing", c.Page)
	}

	return dep.Transport.Send(ctx, dep.Invocation.ChannelID, rp.MessageOptions{
		Embeds: []*dg.MessageEmbed{page.Embed(dep.Prefix)},
	})
}
