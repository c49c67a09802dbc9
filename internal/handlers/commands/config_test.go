package commands

import (
	"context"
	"testing"

	dg "github.com/bwmarrin/discordgo"
	"github.com/glotchimo/obras/internal/handlers"
	md "github.com/glotchimo/obras/internal/models"
	"github.com/glotchimo/obras/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoles(t *testing.T) {
	h := newHarness(t)
	h.tr.roles["10"] = &dg.Role{ID: "10", Name: "Staff"}

	mention := func(content string, roles ...string) error {
		dep := h.deps(content)
		dep.Invocation.RoleMentions = roles
		return (&AddRole{}).Handle(context.Background(), dep)
	}

	require.NoError(t, mention("<@&10>", "10"))
	assert.Equal(t, "✅ Rol `Staff` agregado como autorizado.", h.tr.last().Opts.Content)
	require.NoError(t, mention("10"))
	assert.Equal(t, "⚠️ Ese rol ya estaba autorizado.", h.tr.last().Opts.Content)
	assert.Equal(t, []md.ID{"10"}, h.guild().Roles)

	assert.Equal(t, utils.NotFound("❌ No se encontró el rol."), mention("<@&99>", "99"))
	assert.Equal(t, utils.BadInput("❌ Uso: `!addrol @Rol`"), mention(""))

	require.NoError(t, h.run(&ListRoles{}, ""))
	assert.Equal(t, "🔐 Roles autorizados:\n- Staff", h.tr.last().Opts.Content)

	require.NoError(t, h.run(&DeleteRole{}, "<@&10>"))
	assert.Equal(t, "✅ Rol `Staff` eliminado.", h.tr.last().Opts.Content)
	require.NoError(t, h.run(&DeleteRole{}, "<@&10>"))
	assert.Equal(t, "⚠️ Ese rol no estaba autorizado.", h.tr.last().Opts.Content)

	require.NoError(t, h.run(&ListRoles{}, ""))
	assert.Equal(t, "ℹ️ No hay roles autorizados configurados.", h.tr.last().Opts.Content)
}

func TestRolesThatNoLongerExist(t *testing.T) {
	h := newHarness(t)
	h.update(func(g *md.Guild) { g.AddRole("77") })

	require.NoError(t, h.run(&ListRoles{}, ""))
	assert.Equal(t, "ℹ️ Ningún rol válido encontrado.", h.tr.last().Opts.Content)

	require.NoError(t, h.run(&DeleteRole{}, "77"))
	assert.Equal(t, "✅ Rol `77` eliminado.", h.tr.last().Opts.Content)
	assert.Empty(t, h.guild().Roles)
}

func TestRolesByName(t *testing.T) {
	h := newHarness(t)
	h.tr.roles["10"] = &dg.Role{ID: "10", Name: "Staff"}
	h.tr.roles["11"] = &dg.Role{ID: "11", Name: "Equipo de Traducción"}

	require.NoError(t, h.run(&AddRole{}, "Equipo de Traducción"))
	assert.Equal(t, "✅ Rol `Equipo de Traducción` agregado como autorizado.", h.tr.last().Opts.Content)
	require.NoError(t, h.run(&AddRole{}, `"Staff"`))
	assert.Equal(t, []md.ID{"11", "10"}, h.guild().Roles)

	assert.Equal(t, utils.NotFound("❌ No se encontró el rol."), h.run(&AddRole{}, "staff"))

	require.NoError(t, h.run(&DeleteRole{}, "Equipo de Traducción"))
	assert.Equal(t, "✅ Rol `Equipo de Traducción` eliminado.", h.tr.last().Opts.Content)
	assert.Equal(t, []md.ID{"10"}, h.guild().Roles)
}

func TestChannels(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(&SetChannel{}, "+15"))
	assert.Equal(t, "✅ Canal configurado para `+15`.", h.tr.last().Opts.Content)
	h.update(func(g *md.Guild) { g.Channels.Set(md.CategoryBL, "gone") })

	assert.Equal(t, errInvalidCategory, h.run(&SetChannel{}, "XX"))
	assert.Equal(t, utils.BadInput("❌ Uso: `!setcanal CAT`"), h.run(&SetChannel{}, ""))

	require.NoError(t, h.run(&ListChannels{}, ""))
	assert.Equal(t, "📺 Canales configurados:\n"+
		"- BL: (canal no existe)\n"+
		"- GL: (sin canal asignado)\n"+
		"- +15: <#chan-1>\n"+
		"- +18: (sin canal asignado)\n", h.tr.last().Opts.Content)
}

func TestSetDonation(t *testing.T) {
	h := newHarness(t)

	done := h.start(&SetDonation{}, "")
	assert.Equal(t, "💖 Escribe ahora el mensaje de donaciones.", h.answer("  Apóyanos en Ko-fi  "))
	require.NoError(t, h.wait(done))

	assert.Equal(t, "✅ Mensaje de donaciones actualizado.", h.next().Opts.Content)
	require.NotNil(t, h.guild().Donation)
	assert.Equal(t, "  Apóyanos en Ko-fi  ", *h.guild().Donation)
}

func TestHelpPages(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(&Help{Page: "comandos"}, ""))
	embeds := h.tr.last().Opts.Embeds
	require.Len(t, embeds, 1)
	assert.Equal(t, "📖 Lista completa", embeds[0].Title)
	assert.Equal(t, 0x2ecc71, embeds[0].Color)

	staffHelp := &Help{Page: "comandos_staff", Access: handlers.AccessStaff}
	assert.Equal(t, handlers.AccessStaff, staffHelp.Metadata().Access)
	require.NoError(t, h.run(staffHelp, ""))
	assert.Equal(t, 0x9b59b6, h.tr.last().Opts.Embeds[0].Color)

	assert.Error(t, h.run(&Help{Page: "missing"}, ""))
}
