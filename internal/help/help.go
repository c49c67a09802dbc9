package help

import (
	_ "embed"
	"fmt"
	"strings"

	dg "github.com/bwmarrin/discordgo"
	"github.com/graxinc/errutil"
	"gopkg.in/yaml.v3"
)

//go:embed help.yaml
var source []byte

type Section struct {
	Name     string   `yaml:"name"`
	Commands []string `yaml:"commands"`
	Note     string   `yaml:"note"`
}

type Page struct {
	Title    string    `yaml:"title"`
	Color    int       `yaml:"color"`
	Sections []Section `yaml:"sections"`
}

type Catalog struct {
	Pages map[string]Page `yaml:"pages"`
}

func Load() (*Catalog, error) {
	return Parse(source)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, errutil.With(err)
	}

	for name, page := range c.Pages {
		if page.Title == "" {
			return nil, fmt.Errorf("help page %q has no title", name)
		}
	}

	return &c, nil
}

func (c *Catalog) Page(name string) (Page, bool) {
	p, ok := c.Pages[name]
	return p, ok
}

// Embed renders the page with each command shown as prefix+usage.
func (p Page) Embed(prefix string) *dg.MessageEmbed {
	embed := &dg.MessageEmbed{
		Title: p.Title,
		Color: p.Color,
	}

	for _, s := range p.Sections {
		lines := make([]string, 0, len(s.Commands)+1)
		for _, cmd := range s.Commands {
			lines = append(lines, fmt.Sprintf("`%s%s`", prefix, cmd))
		}
		if s.Note != "" {
			lines = append(lines, s.Note)
		}

		embed.Fields = append(embed.Fields, &dg.MessageEmbedField{
			Name:   s.Name,
			Value:  strings.Join(lines, "\n"),
			Inline: false,
		})
	}

	return embed
}
