package commands

import (
	"context"

	"github.com/glotchimo/obras/internal/handlers"
	md "github.com/glotchimo/obras/internal/models"
	"github.com/graxinc/errutil"
)

type SetDonation struct{}

func (c *SetDonation) Metadata() handlers.Command {
	return handlers.Command{
		Name:   "setdonacion",
		Usage:  "setdonacion",
		Access: handlers.AccessStaff,
	}
}

func (c *SetDonation) Handle(ctx context.Context, dep handlers.Dependencies) error {
	s, err := beginFlow(dep)
	if err != nil {
		return err
	}
	defer s.Close()

	reply, err := s.Ask(ctx, "💖 Escribe ahora el mensaje de donaciones.")
	if err != nil {
		return endFlow(ctx, dep, s, err)
	}

	if _, err := dep.Store.Update(ctx, dep.Invocation.GuildID, func(g *md.Guild) error {
		g.SetDonation(reply.Content)
		return nil
	}); err != nil {
		return errutil.With(err)
	}

	return dep.Reply(ctx, "✅ Mensaje de donaciones actualizado.")
}
