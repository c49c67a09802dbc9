package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/glotchimo/obras/internal/flow"
	"github.com/glotchimo/obras/internal/handlers"
	"github.com/glotchimo/obras/internal/utils"
)

const DefaultAcknowledgements = "Gracias al staff por el excelente trabajo realizado."

const (
	keywordDefault = "default"
	keywordNone    = "ninguno"
)

var yes = []string{"sí", "si", "yes"}

// errNoChange aborts a store update that would write nothing new.
var errNoChange = errors.New("no change")

var errInvalidCategory = utils.BadInput("❌ Categoría inválida.")

func isKeyword(content, keyword string) bool {
	return strings.ToLower(strings.TrimSpace(content)) == keyword
}

func isYes(content string) bool {
	answer := strings.ToLower(strings.TrimSpace(content))
	for _, y := range yes {
		if answer == y {
			return true
		}
	}
	return false
}

func notFound(key string) utils.Failure {
	return utils.NotFound(fmt.Sprintf("❌ No se encontró `%s`.", key))
}

func beginFlow(dep handlers.Dependencies) (*flow.Session, error) {
	s, err := dep.Flow()
	if errors.Is(err, flow.ErrBusy) {
		return nil, utils.Conflict("⚠️ Ya tienes un proceso en curso en este canal. Responde `cancelar` para terminarlo.")
	}
	return s, err
}

// endFlow turns the error of an interrupted session into what the user sees.
// Nothing collected so far is kept.
func endFlow(ctx context.Context, dep handlers.Dependencies, s *flow.Session, err error) error {
	switch {
	case errors.Is(err, flow.ErrCancelled):
		return dep.Reply(ctx, "🚫 Proceso cancelado.")
	case errors.Is(err, flow.ErrTimeout):
		return dep.Reply(ctx, fmt.Sprintf("⌛ No hubo respuesta en %s. Proceso cancelado.", utils.FormatDuration(dep.Flows.Timeout())))
	case errors.Is(err, flow.ErrClosed), errors.Is(err, context.Canceled):
		dep.Logger.Info("flow aborted", "session", s.ID, "guild", dep.Invocation.GuildID, "error", err)
		return nil
	}
	return err
}
