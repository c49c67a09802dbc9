package help

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	public, ok := c.Page("comandos")
	require.True(t, ok)
	assert.Equal(t, "📖 Lista completa", public.Title)
	assert.Equal(t, 0x2ecc71, public.Color)
	assert.Len(t, public.Sections, 5)

	staff, ok := c.Page("comandos_staff")
	require.True(t, ok)
	assert.Equal(t, "📌 Comandos del staff", staff.Title)
	assert.Equal(t, 0x9b59b6, staff.Color)

	_, ok = c.Page("missing")
	assert.False(t, ok)
}

func TestEmbedUsesPrefix(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	page, _ := c.Page("comandos")
	embed := page.Embed("?")

	require.Len(t, embed.Fields, 5)
	assert.Equal(t, "📚 Obras", embed.Fields[0].Name)
	assert.Equal(t, "`?agregarobra +CAT Nombre`\n`?verobras`\n`?verobra Nombre/Alias`", embed.Fields[0].Value)
	assert.Equal(t, 0x2ecc71, embed.Color)
}

func TestEmbedNote(t *testing.T) {
	c, err := Load()
	require.NoError(t, err)

	page, _ := c.Page("comandos_staff")
	embed := page.Embed("!")
	last := embed.Fields[len(embed.Fields)-1]
	assert.Equal(t, "🚫 Cancelar", last.Name)
	assert.Contains(t, last.Value, "`cancelar`")
}

func TestParseRejectsUntitledPage(t *testing.T) {
	_, err := Parse([]byte("pages:\n  broken:\n    color: 1\n"))
	assert.Error(t, err)

	_, err = Parse([]byte("pages: ["))
	assert.Error(t, err)
}
