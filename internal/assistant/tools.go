package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/agnivade/levenshtein"
	"github.com/amaumene/watchduo/internal/models"
	"github.com/amaumene/watchduo/internal/services/gemini"
	"github.com/amaumene/watchduo/internal/utils"
	"github.com/sirupsen/logrus"
)

const (
	markAsWatchedName = "markAsWatched"
	maxSuggestionDist = 2
)

// everyoneAliases select every configured user
var everyoneAliases = []string{"ambos", "both", "todos", "all"}

func markAsWatchedTool(users []string) gemini.Tool {
	who := append(append([]string(nil), users...), everyoneAliases[0])
	return gemini.Tool{FunctionDeclarations: []gemini.FunctionDeclaration{{
		Name:        markAsWatchedName,
		Description: "Marca una película o serie como vista para uno o todos los usuarios. Si no está en la biblioteca, la busca y la añade.",
		Parameters: &gemini.Schema{
			Type: "object",
			Properties: map[string]*gemini.Schema{
				"title": {Type: "string", Description: "Título de la película o serie"},
				"who":   {Type: "string", Description: "Quién la ha visto", Enum: who},
			},
			Required: []string{"title", "who"},
		},
	}}}
}

// MarkAsWatched marks a title as watched for the users named by who. An existing
// item is matched by title ignoring case (then ignoring accents); otherwise the
// top search candidate is added already watched. The returned text is shown to
// the user as is.
func (a *Assistant) MarkAsWatched(ctx context.Context, title, who string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return "Necesito el título para marcarlo como visto."
	}
	users, ok := a.resolveWho(who)
	if !ok {
		return fmt.Sprintf("No sé quién es «%s». Usuarios: %s.", who, strings.Join(a.library.Users(), ", "))
	}

	log := a.logger.WithFields(logrus.Fields{"title": title, "users": users})

	if item := a.findItem(title); item != nil {
		if _, err := a.library.MarkWatched(item.ID, users); err != nil {
			log.WithError(err).Error("Failed to mark item as watched")
			return fmt.Sprintf("No he podido marcar «%s» como visto.", item.Title)
		}
		log.WithField("id", item.ID).Info("Assistant marked item as watched")
		return fmt.Sprintf("Hecho: «%s» marcado como visto para %s.", item.Title, joinUsers(users))
	}

	var results []models.SearchResult
	if a.searcher != nil {
		var err error
		results, err = a.searcher.Search(ctx, title)
		if err != nil {
			log.WithError(err).Warn("Assistant search failed")
		}
	}
	if len(results) == 0 {
		message := fmt.Sprintf("No he encontrado «%s».", title)
		if suggestion := a.suggest(title); suggestion != "" {
			message += fmt.Sprintf(" ¿Te refieres a «%s»?", suggestion)
		}
		return message
	}

	item, created, err := a.library.AddItemWatched(ctx, results[0], users)
	if err != nil {
		log.WithError(err).Error("Failed to add item from assistant")
		return fmt.Sprintf("No he podido añadir «%s».", results[0].Title)
	}
	if !created {
		// Same title and year was already there under another spelling of the query
		if _, err := a.library.MarkWatched(item.ID, users); err != nil {
			log.WithError(err).Error("Failed to mark item as watched")
			return fmt.Sprintf("No he podido marcar «%s» como visto.", item.Title)
		}
		return fmt.Sprintf("Hecho: «%s» marcado como visto para %s.", item.Title, joinUsers(users))
	}

	log.WithField("id", item.ID).Info("Assistant added item as watched")
	label := item.Title
	if item.Year != "" {
		label = fmt.Sprintf("%s (%s)", item.Title, item.Year)
	}
	return fmt.Sprintf("He añadido «%s» y lo he marcado como visto para %s.", label, joinUsers(users))
}

func (a *Assistant) resolveWho(who string) ([]string, bool) {
	who = strings.ToLower(strings.TrimSpace(who))
	for _, alias := range everyoneAliases {
		if who == alias {
			return a.library.Users(), true
		}
	}
	for _, user := range a.library.Users() {
		if who == user {
			return []string{user}, true
		}
	}
	return nil, false
}

// findItem matches exactly ignoring case first, then ignoring accents too
func (a *Assistant) findItem(title string) *models.MediaItem {
	items := a.library.Items()

	wanted := utils.NormalizeTitle(title)
	for _, item := range items {
		if utils.NormalizeTitle(item.Title) == wanted {
			return item
		}
	}

	folded := utils.FoldTitle(title)
	for _, item := range items {
		if utils.FoldTitle(item.Title) == folded {
			return item
		}
	}
	return nil
}

// suggest returns the library title closest to title within a small edit distance
func (a *Assistant) suggest(title string) string {
	folded := utils.FoldTitle(title)
	best, bestDist := "", maxSuggestionDist+1
	for _, item := range a.library.Items() {
		dist := levenshtein.ComputeDistance(folded, utils.FoldTitle(item.Title))
		if dist < bestDist {
			best, bestDist = item.Title, dist
		}
	}
	return best
}

func joinUsers(users []string) string {
	switch len(users) {
	case 0:
		return ""
	case 1:
		return users[0]
	default:
		return strings.Join(users[:len(users)-1], ", ") + " y " + users[len(users)-1]
	}
}
