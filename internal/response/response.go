package response

import (
	"context"
	"fmt"
	"log/slog"

	dg "github.com/bwmarrin/discordgo"
	"github.com/glotchimo/obras/internal/utils"
	"github.com/graxinc/errutil"
)

type MessageOptions struct {
	Content         string
	Embeds          []*dg.MessageEmbed
	AllowedMentions *dg.MessageAllowedMentions
	Reference       *dg.MessageReference
}

// Responder sends replies and announcements as channel messages and resolves
// channels and roles from the session state.
type Responder struct {
	s *dg.Session
	l *slog.Logger
}

func NewSessionResponder(s *dg.Session, l *slog.Logger) *Responder {
	return &Responder{
		s: s,
		l: l,
	}
}

// Send delivers opts to the channel, splitting content that is over the
// message limit. Embeds ride on the last chunk.
func (r *Responder) Send(ctx context.Context, channelID string, opts MessageOptions) error {
	mentions := opts.AllowedMentions
	if mentions == nil {
		mentions = &dg.MessageAllowedMentions{Parse: []dg.AllowedMentionType{dg.AllowedMentionTypeUsers}}
	}

	chunks := []string{opts.Content}
	if opts.Content != "" {
		chunks = utils.SplitMessage(opts.Content, utils.MaxMessageLength)
	}

	for i, chunk := range chunks {
		msg := &dg.MessageSend{
			Content:         chunk,
			AllowedMentions: mentions,
		}
		if i == 0 {
			msg.Reference = opts.Reference
		}
		if i == len(chunks)-1 {
			msg.Embeds = opts.Embeds
		}

		if _, err := r.s.ChannelMessageSendComplex(channelID, msg, dg.WithContext(ctx)); err != nil {
			return errutil.With(err)
		}
	}

	return nil
}

func (r *Responder) Fail(ctx context.Context, channelID string, f utils.Failure) error {
	r.l.Warn("handler failure", "type", f.Type, "message", f.Message, "data", f.Data)

	return r.Send(ctx, channelID, MessageOptions{Embeds: []*dg.MessageEmbed{FailureEmbed(f)}})
}

// Channel returns the channel if it still exists in the guild.
func (r *Responder) Channel(guildID, channelID string) (*dg.Channel, bool) {
	ch, err := r.s.State.Channel(channelID)
	if err != nil || ch.GuildID != guildID {
		return nil, false
	}
	return ch, true
}

// Role returns the role if it still exists in the guild.
func (r *Responder) Role(guildID, roleID string) (*dg.Role, bool) {
	role, err := r.s.State.Role(guildID, roleID)
	if err != nil {
		return nil, false
	}
	return role, true
}

// RoleNamed returns the guild role whose name is exactly name.
func (r *Responder) RoleNamed(guildID, name string) (*dg.Role, bool) {
	g, err := r.s.State.Guild(guildID)
	if err != nil {
		return nil, false
	}

	r.s.State.RLock()
	defer r.s.State.RUnlock()

	for _, role := range g.Roles {
		if role.Name == name {
			return role, true
		}
	}
	return nil, false
}

func FailureEmbed(f utils.Failure) *dg.MessageEmbed {
	var title, description string
	var color int
	switch f.Type {
	case utils.ErrInternal:
		detail, ok := f.Data["error"]
		if !ok {
			detail = "Ocurrió un error inesperado."
		}

		str, ok := detail.(string)
		if !ok {
			str = fmt.Sprintf("%v", detail)
		}

		title = "Error interno"
		description = fmt.Sprintf("%s\n\nDetalles del error:\n```%s```", f.Message, str)
		color = 0xFF0000

	case utils.ErrBadInput:
		title = "Entrada inválida"
		description = f.Message
		color = 0xFFA500

	case utils.ErrNotAllowed:
		title = "Permiso denegado"
		description = f.Message
		color = 0xFF0000

	case utils.ErrNotFound:
		title = "No encontrado"
		description = f.Message
		color = 0xFFA500

	case utils.ErrConflict:
		title = "Conflicto"
		description = f.Message
		color = 0xFFA500
	}

	return &dg.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
	}
}
