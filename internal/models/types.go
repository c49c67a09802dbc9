package models

type Table string

const (
	TableGuilds Table = "guilds"
)

// Mappable is a row the SQL backend can upsert into its table.
type Mappable interface {
	Table() Table
	Map() (map[string]any, error)
}
