package commands

import (
	"context"
	"fmt"
	"strings"

	dg "github.com/bwmarrin/discordgo"
	"github.com/glotchimo/obras/internal/flow"
	"github.com/glotchimo/obras/internal/handlers"
	md "github.com/glotchimo/obras/internal/models"
	"github.com/glotchimo/obras/internal/registry"
	rp "github.com/glotchimo/obras/internal/response"
	"github.com/glotchimo/obras/internal/utils"
	"github.com/graxinc/errutil"
)

const announcementColor = 0x3498db

type Announce struct{}

func (c *Announce) Metadata() handlers.Command {
	return handlers.Command{
		Name:   "actualizacion",
		Usage:  "actualizacion CAT Nombre/Alias",
		Access: handlers.AccessStaff,
	}
}

// Handle posts a new chapter of a work to its category's channel. Every
// check that needs no input from the user runs before the first prompt.
func (c *Announce) Handle(ctx context.Context, dep handlers.Dependencies) error {
	inv := dep.Invocation
	if len(inv.Args) < 2 {
		return dep.Usage(c.Metadata())
	}

	cat, ok := md.ParseCategory(inv.Arg(0))
	if !ok {
		return errInvalidCategory
	}

	channelID, ok := dep.Guild.Channels.Get(cat)
	if !ok {
		return utils.NotFound("❌ No hay canal configurado.")
	}

	channel, ok := dep.Transport.Channel(inv.GuildID, channelID.String())
	if !ok {
		return utils.NotFound("❌ El canal configurado ya no existe.")
	}

	key := inv.Rest(1)
	name, work, err := registry.Find(dep.Guild, key)
	if err != nil {
		return notFound(key)
	}

	s, err := beginFlow(dep)
	if err != nil {
		return err
	}
	defer s.Close()

	reply, err := s.Ask(ctx, "📍 Escribe **solo el número del capítulo** y adjunta **la imagen**.")
	if err != nil {
		return endFlow(ctx, dep, s, err)
	}

	image, err := chapterImage(reply)
	if err != nil {
		return err
	}

	chapter := strings.TrimSpace(reply.Content)
	if chapter == "" {
		return utils.BadInput("❌ Debes escribir el número del capítulo.")
	}

	acknowledgements := work.Acknowledgements

	reply, err = s.Ask(ctx, "🙌 ¿Cambiar agradecimientos? (`sí`/`no`)")
	if err != nil {
		return endFlow(ctx, dep, s, err)
	}

	if isYes(reply.Content) {
		reply, err = s.Ask(ctx, "✏️ Escribe el nuevo texto.")
		if err != nil {
			return endFlow(ctx, dep, s, err)
		}
		acknowledgements = reply.Content
	}

	embed := Announcement(name, *work, chapter, acknowledgements, dep.Guild.Donation, image)
	if result := utils.ValidateEmbed(embed); result.WasModified || !result.IsValid {
		dep.Logger.Warn("announcement embed adjusted", "guild", inv.GuildID, "work", name, "errors", result.Errors)
	}

	if err := dep.Transport.Send(ctx, channel.ID, rp.MessageOptions{
		Content: "||@everyone||",
		Embeds:  []*dg.MessageEmbed{embed},
		AllowedMentions: &dg.MessageAllowedMentions{
			Parse: []dg.AllowedMentionType{dg.AllowedMentionTypeEveryone},
		},
	}); err != nil {
		return errutil.With(err)
	}

	dep.Logger.Info("announcement sent", "session", s.ID, "guild", inv.GuildID, "work", name, "chapter", chapter, "channel", channel.ID)
	return dep.Reply(ctx, fmt.Sprintf("✅ Actualización enviada en %s.", utils.FormatChannelMention(channel.ID)))
}

// chapterImage returns the URL of the reply's first attachment, which must
// be an image when the platform reports its type.
func chapterImage(reply flow.Reply) (string, error) {
	errNoImage := utils.BadInput("❌ Debes adjuntar una imagen.")

	if len(reply.Attachments) == 0 {
		return "", errNoImage
	}

	a := reply.Attachments[0]
	if a.ContentType != "" && !strings.HasPrefix(a.ContentType, "image/") {
		return "", errNoImage
	}

	return a.URL, nil
}

func Announcement(name string, work md.Work, chapter, acknowledgements string, donation *string, image string) *dg.MessageEmbed {
	var b strings.Builder
	fmt.Fprintf(&b, "📝 **Sinopsis:**\n%s\n\n", work.Synopsis)
	fmt.Fprintf(&b, "📍 **Capítulo:** %s\n\n", chapter)
	fmt.Fprintf(&b, "🙌 **Agradecimientos:** %s\n", acknowledgements)
	fmt.Fprintf(&b, "\n📎 [Lee el capítulo aquí](%s)\n", work.Link)

	embed := &dg.MessageEmbed{
		Title:       "Nuevo capítulo: " + name,
		Description: b.String(),
		Color:       announcementColor,
		Image:       &dg.MessageEmbedImage{URL: image},
	}

	if donation != nil && *donation != "" {
		embed.Fields = append(embed.Fields, &dg.MessageEmbedField{
			Name:   "💖 Donaciones",
			Value:  *donation,
			Inline: false,
		})
	}

	return embed
}

