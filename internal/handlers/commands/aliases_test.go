package commands

import (
	"testing"

	md "github.com/glotchimo/obras/internal/models"
	"github.com/glotchimo/obras/internal/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAlias(t *testing.T) {
	h := newHarness(t)
	h.update(func(g *md.Guild) {
		g.Works.Put("Dragon Saga", dragonSaga())
		g.Works.Put("Luna Roja", md.Work{Category: md.CategoryGL})
	})

	require.NoError(t, h.run(&SetAlias{}, `"Dragon Saga" ds`))
	assert.Equal(t, "✅ Alias asignado: `Dragon Saga` → `ds`.", h.tr.last().Opts.Content)

	assert.Equal(t, aliasInUse("ds"), h.run(&SetAlias{}, `"Luna Roja" ds`))
	assert.Equal(t, aliasInUse("ds"), h.run(&SetAlias{}, `"Dragon Saga" ds`))
	assert.Equal(t, utils.NotFound("❌ No se encontró la obra `ds`."), h.run(&SetAlias{}, "ds otra"))

	owner, ok := h.guild().Works.AliasOwner("ds")
	require.True(t, ok)
	assert.Equal(t, "Dragon Saga", owner)
}

func TestSetAliasEmoji(t *testing.T) {
	h := newHarness(t)
	h.update(func(g *md.Guild) { g.Works.Put("Dragon Saga", dragonSaga()) })

	require.NoError(t, h.run(&SetAlias{}, `"Dragon Saga" 😅`))
	assert.Equal(t, "✅ Alias asignado: `Dragon Saga` → `😅`.", h.tr.last().Opts.Content)

	owner, ok := h.guild().Works.AliasOwner("😅")
	require.True(t, ok)
	assert.Equal(t, "Dragon Saga", owner)

	doc, err := md.Encode(h.guild())
	require.NoError(t, err)
	assert.Contains(t, string(doc), `"alias":"😅"`)
	assert.NotContains(t, string(doc), `\ufffd`)
}

func TestEditAliasNotFound(t *testing.T) {
	h := newHarness(t)
	h.update(func(g *md.Guild) { g.Works.Put("Dragon Saga", dragonSaga()) })

	before, err := md.Encode(h.guild())
	require.NoError(t, err)

	assert.Equal(t, utils.NotFound("❌ El alias `old` no existe."), h.run(&EditAlias{}, "old new"))

	after, err := md.Encode(h.guild())
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestEditAlias(t *testing.T) {
	h := newHarness(t)
	h.update(func(g *md.Guild) {
		g.Works.Put("Dragon Saga", dragonSaga())
		g.Works.Put("Luna Roja", md.Work{Category: md.CategoryGL})
		g.Works.SetAlias("Dragon Saga", "ds")
		g.Works.SetAlias("Luna Roja", "lr")
	})

	assert.Equal(t, aliasInUse("lr"), h.run(&EditAlias{}, "ds lr"))

	require.NoError(t, h.run(&EditAlias{}, "ds dragon"))
	assert.Equal(t, "✅ Alias actualizado: `ds` → `dragon`.", h.tr.last().Opts.Content)

	g := h.guild()
	_, ok := g.Works.AliasOwner("ds")
	assert.False(t, ok)
	owner, ok := g.Works.AliasOwner("dragon")
	require.True(t, ok)
	assert.Equal(t, "Dragon Saga", owner)
}

func TestListAliases(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.run(&ListAliases{}, ""))
	assert.Equal(t, "🏷️ Alias registrados:\n(no hay alias registrados)\n", h.tr.last().Opts.Content)

	h.update(func(g *md.Guild) {
		g.Works.Put("Dragon Saga", dragonSaga())
		g.Works.Put("Sin Alias", md.Work{Category: md.CategoryGL})
		g.Works.Put("Luna Roja", md.Work{Category: md.CategoryGL})
		g.Works.SetAlias("Luna Roja", "lr")
		g.Works.SetAlias("Dragon Saga", "ds")
	})

	require.NoError(t, h.run(&ListAliases{}, ""))
	assert.Equal(t, "🏷️ Alias registrados:\n- **Dragon Saga** → `ds`\n- **Luna Roja** → `lr`\n", h.tr.last().Opts.Content)
}
