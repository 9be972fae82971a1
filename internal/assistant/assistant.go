// Package assistant holds the conversational assistant. Its only side effect is
// the markAsWatched tool; everything else it says is read-only.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/amaumene/watchduo/internal/collection"
	"github.com/amaumene/watchduo/internal/models"
	"github.com/amaumene/watchduo/internal/services/gemini"
	"github.com/sirupsen/logrus"
)

const (
	maxToolRounds   = 3
	maxHistory      = 40
	maxContextItems = 200

	apologyMessage = "Lo siento, ha habido un problema al procesar tu mensaje. ¿Puedes intentarlo de nuevo?"
)

// Completer is the AI completion service
type Completer interface {
	GenerateContent(ctx context.Context, request gemini.Request) (*gemini.Response, error)
}

// Searcher finds candidates for titles missing from the library
type Searcher interface {
	Search(ctx context.Context, query string) ([]models.SearchResult, error)
}

// Library is the slice of the library controller the assistant reads and writes
type Library interface {
	Users() []string
	Items() []*models.MediaItem
	Classify(item *models.MediaItem) collection.Tab
	MarkWatched(id string, users []string) (*models.MediaItem, error)
	AddItemWatched(ctx context.Context, result models.SearchResult, users []string) (*models.MediaItem, bool, error)
}

// Assistant keeps one shared conversation with the completion service
type Assistant struct {
	completer Completer
	searcher  Searcher
	library   Library
	logger    *logrus.Logger
	now       func() time.Time

	mu      sync.Mutex
	history []gemini.Content
}

// New creates an assistant
func New(completer Completer, searcher Searcher, library Library, logger *logrus.Logger) *Assistant {
	return &Assistant{
		completer: completer,
		searcher:  searcher,
		library:   library,
		logger:    logger,
		now:       time.Now,
	}
}

// Chat sends one user message and returns the reply. On failure the reply is a
// short apology, the error is returned for logging and the history is left as it
// was after the last successful turn.
func (a *Assistant) Chat(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", errors.New("message must not be empty")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	turn := append(append([]gemini.Content(nil), a.history...), gemini.UserText(message))
	for round := 0; round < maxToolRounds; round++ {
		response, err := a.completer.GenerateContent(ctx, gemini.Request{
			SystemInstruction: a.systemInstruction(),
			Contents:          turn,
			Tools:             []gemini.Tool{markAsWatchedTool(a.library.Users())},
		})
		if err != nil {
			a.logger.WithError(err).Warn("Assistant completion failed")
			return apologyMessage, fmt.Errorf("assistant completion failed: %w", err)
		}

		calls := response.FunctionCalls()
		if len(calls) == 0 {
			reply := strings.TrimSpace(response.Text())
			if reply == "" {
				return apologyMessage, errors.New("assistant returned an empty reply")
			}
			a.commit(append(turn, gemini.ModelText(reply)))
			return reply, nil
		}

		modelTurn, _ := response.Message()
		modelTurn.Role = "model"
		turn = append(turn, modelTurn)

		results := gemini.Content{Role: "user"}
		for _, call := range calls {
			result := a.handleCall(ctx, call)
			results.Parts = append(results.Parts, gemini.Part{FunctionResponse: &gemini.FunctionResponse{
				Name:     call.Name,
				Response: map[string]interface{}{"result": result},
			}})
		}
		turn = append(turn, results)
	}

	return apologyMessage, fmt.Errorf("assistant exceeded %d tool rounds", maxToolRounds)
}

// Reset forgets the conversation
func (a *Assistant) Reset() {
	a.mu.Lock()
	a.history = nil
	a.mu.Unlock()
}

// History returns a copy of the committed conversation
func (a *Assistant) History() []gemini.Content {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]gemini.Content(nil), a.history...)
}

func (a *Assistant) commit(turn []gemini.Content) {
	if len(turn) > maxHistory {
		turn = turn[len(turn)-maxHistory:]
		// never start on a dangling tool exchange
		for len(turn) > 0 && (turn[0].Role != "user" || hasFunctionResponse(turn[0])) {
			turn = turn[1:]
		}
	}
	a.history = turn
}

func hasFunctionResponse(content gemini.Content) bool {
	for _, part := range content.Parts {
		if part.FunctionResponse != nil {
			return true
		}
	}
	return false
}

func (a *Assistant) handleCall(ctx context.Context, call gemini.FunctionCall) string {
	if call.Name != markAsWatchedName {
		a.logger.WithField("function", call.Name).Warn("Assistant requested unknown function")
		return fmt.Sprintf("Función desconocida: %s", call.Name)
	}
	title, _ := call.Args["title"].(string)
	who, _ := call.Args["who"].(string)
	return a.MarkAsWatched(ctx, title, who)
}

func (a *Assistant) systemInstruction() *gemini.Content {
	users := a.library.Users()

	var builder strings.Builder
	fmt.Fprintf(&builder, "Eres el asistente de una biblioteca compartida de películas y series de %s. ", strings.Join(users, " y "))
	fmt.Fprintf(&builder, "Hoy es %s. Responde en español, de forma breve. ", a.now().Format("2006-01-02"))
	builder.WriteString("Cuando te digan que alguien ha visto algo, usa la función markAsWatched. ")
	builder.WriteString("No inventes datos sobre la biblioteca.\n\nBiblioteca actual:\n")

	items := a.library.Items()
	for i, item := range items {
		if i == maxContextItems {
			fmt.Fprintf(&builder, "... y %d más\n", len(items)-maxContextItems)
			break
		}
		fmt.Fprintf(&builder, "- %s (%s, %s): %s\n", item.Title, item.Year, item.Type, a.library.Classify(item))
	}

	content := gemini.Content{Parts: []gemini.Part{{Text: builder.String()}}}
	return &content
}
