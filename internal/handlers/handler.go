package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	dg "github.com/bwmarrin/discordgo"
	"github.com/glotchimo/obras/internal/auth"
	"github.com/glotchimo/obras/internal/flow"
	"github.com/glotchimo/obras/internal/help"
	md "github.com/glotchimo/obras/internal/models"
	rp "github.com/glotchimo/obras/internal/response"
	st "github.com/glotchimo/obras/internal/store"
	"github.com/glotchimo/obras/internal/utils"
)

type Access int

const (
	AccessPublic Access = iota
	AccessStaff
	AccessAdmin
)

type Command struct {
	Name   string
	Usage  string
	Access Access
}

// Transport is the slice of the chat platform the handlers need.
type Transport interface {
	Send(ctx context.Context, channelID string, opts rp.MessageOptions) error
	Fail(ctx context.Context, channelID string, f utils.Failure) error
	Channel(guildID, channelID string) (*dg.Channel, bool)
	Role(guildID, roleID string) (*dg.Role, bool)
	RoleNamed(guildID, name string) (*dg.Role, bool)
}

// Invocation is one parsed command message.
type Invocation struct {
	GuildID      string
	ChannelID    string
	MessageID    string
	Actor        auth.Actor
	RoleMentions []string

	// Content is everything after the command name.
	Content string
	Args    []utils.Token
}

func NewInvocation(content string) Invocation {
	return Invocation{Content: content, Args: utils.Tokenize(content)}
}

// Arg returns the n-th argument or an empty string.
func (i Invocation) Arg(n int) string {
	if n < 0 || n >= len(i.Args) {
		return ""
	}
	return i.Args[n].Value
}

// Rest returns the text from the n-th argument to the end of the line. A
// single trailing argument comes back unquoted, anything longer raw.
func (i Invocation) Rest(n int) string {
	if n < 0 || n >= len(i.Args) {
		return ""
	}
	if n == len(i.Args)-1 {
		return i.Args[n].Value
	}

	start := 0
	if n > 0 {
		start = i.Args[n-1].End
	}
	return strings.TrimSpace(i.Content[start:])
}

type Dependencies struct {
	Store      *st.Store
	Flows      *flow.Engine
	Transport  Transport
	Logger     *slog.Logger
	Help       *help.Catalog
	Prefix     string
	Guild      *md.Guild
	Invocation Invocation
}

// Reply answers in the invoking channel as a reply to the command message.
// The reference is dropped by the platform if that message was deleted.
func (d Dependencies) Reply(ctx context.Context, content string) error {
	opts := rp.MessageOptions{Content: content}
	if inv := d.Invocation; inv.MessageID != "" {
		failIfMissing := false
		opts.Reference = &dg.MessageReference{
			MessageID:       inv.MessageID,
			ChannelID:       inv.ChannelID,
			GuildID:         inv.GuildID,
			FailIfNotExists: &failIfMissing,
		}
	}
	return d.Transport.Send(ctx, d.Invocation.ChannelID, opts)
}

// Usage builds the failure returned when a command is called with missing
// arguments.
func (d Dependencies) Usage(cmd Command) utils.Failure {
	return utils.BadInput(fmt.Sprintf("❌ Uso: `%s%s`", d.Prefix, cmd.Usage))
}

// Flow opens an interactive session with the invoking user in the invoking
// channel.
func (d Dependencies) Flow() (*flow.Session, error) {
	key := flow.Key{
		GuildID:   d.Invocation.GuildID,
		ChannelID: d.Invocation.ChannelID,
		UserID:    d.Invocation.Actor.ID,
	}

	return d.Flows.Begin(key, func(ctx context.Context, content string) error {
		return d.Reply(ctx, content)
	})
}

// Permitted reports whether actor may run cmd in guild g.
func Permitted(cmd Command, g *md.Guild, actor auth.Actor) bool {
	switch cmd.Access {
	case AccessAdmin:
		return auth.AdminOnly(actor)
	case AccessStaff:
		return auth.Authorized(g, actor)
	}
	return true
}

type Handler interface {
	Metadata() Command
	Handle(context.Context, Dependencies) error
}
