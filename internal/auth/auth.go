package auth

import (
	"slices"

	"github.com/glotchimo/obras/internal/models"
)

// Actor is the member issuing a command, as seen by the platform.
type Actor struct {
	ID            string
	Username      string
	RoleIDs       []string
	Administrator bool
}

// Authorized reports whether the actor may run staff commands in g. The
// policy is an allow-list OR platform administrator; with an empty allow-list
// only administrators pass.
func Authorized(g *models.Guild, a Actor) bool {
	return a.Administrator || holdsAny(a.RoleIDs, g.Roles)
}

// AdminOnly gates the commands that manage the allow-list itself.
func AdminOnly(a Actor) bool {
	return a.Administrator
}

func holdsAny(held []string, allowed []models.ID) bool {
	for _, id := range held {
		if slices.Contains(allowed, models.ID(id)) {
			return true
		}
	}
	return false
}
