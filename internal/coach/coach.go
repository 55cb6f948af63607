package coach

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"brainstorm-coach/internal/ai"
	"brainstorm-coach/internal/model"
	"brainstorm-coach/internal/repository"
	"brainstorm-coach/internal/vectorstore"
)

var (
	ErrBrainstormNotFound = errors.New("brainstorm not found")
	ErrNoMessages         = errors.New("brainstorm has no messages")
	ErrNoSummary          = errors.New("brainstorm has no summary yet")
)

// ContextSource selects where the coach pulls retrieved context from.
type ContextSource string

const (
	SourceNone       ContextSource = "none"
	SourceMessage    ContextSource = "brainstormMessage"
	SourceBrainstorm ContextSource = "brainstorm"
)

func ValidContextSource(s ContextSource) bool {
	switch s {
	case SourceNone, SourceMessage, SourceBrainstorm:
		return true
	}
	return false
}

// Completer is the language-model contract: ordered turns in, one completion out.
type Completer interface {
	Complete(ctx context.Context, messages []ai.ChatMessage) (string, error)
}

// VectorSearcher is the retrieval half of the vector store. Synthesis of the
// retrieved set into prose is a separate LLM call so retrieval stays
// observable on its own.
type VectorSearcher interface {
	FindByProperty(ctx context.Context, class, key string, value any) (*vectorstore.ObjectData, error)
	Search(ctx context.Context, q vectorstore.Query) ([]vectorstore.Hit, error)
}

// SummaryMirror pushes a generated summary into the vector mirror.
type SummaryMirror interface {
	UpdateSummary(ctx context.Context, brainstormID uint, summary string) error
}

// Options tune context retrieval. RequireContext decides whether a failed
// retrieval aborts the coach-message operation or degrades to the plain prompt.
type Options struct {
	RequireContext bool
	ContextTopK    int
	MaxDistance    float64
}

// Coach orchestrates retrieval-augmented generation over brainstorms:
// it decides which vector queries to run and shapes the prompts the language
// model consumes.
type Coach struct {
	brainstormRepo *repository.BrainstormRepository
	messageRepo    *repository.MessageRepository
	vectors        VectorSearcher
	llm            Completer
	mirror         SummaryMirror
	opts           Options
}

func New(
	brainstormRepo *repository.BrainstormRepository,
	messageRepo *repository.MessageRepository,
	vectors VectorSearcher,
	llm Completer,
	mirror SummaryMirror,
	opts Options,
) *Coach {
	if opts.ContextTopK <= 0 {
		opts.ContextTopK = 5
	}
	if opts.MaxDistance <= 0 {
		opts.MaxDistance = 0.2
	}
	return &Coach{
		brainstormRepo: brainstormRepo,
		messageRepo:    messageRepo,
		vectors:        vectors,
		llm:            llm,
		mirror:         mirror,
		opts:           opts,
	}
}

type SummaryResult struct {
	Summary string `json:"summary"`
	Prompt  string `json:"prompt"`
}

// CoachResult carries the generated message plus the pieces of the request
// for auditability: the full request the model saw is Prompt as the system
// turn, the conversation oldest to newest, then Context (when non-empty) as a
// trailing assistant turn.
type CoachResult struct {
	Message string        `json:"message"`
	Prompt  string        `json:"prompt"`
	Context string        `json:"context,omitempty"`
	Source  ContextSource `json:"source"`
}

type Connection struct {
	// The neighbor's stable id is not part of this result; callers can only
	// re-identify a brainstorm by its title/summary text.
	Title       string   `json:"title"`
	Summary     string   `json:"summary"`
	Connections []string `json:"connections"`
}

type SimilarBrainstorm struct {
	Title    string  `json:"title"`
	Distance float64 `json:"distance"`
}

// GenerateSummary sends the full conversation to the language model and
// persists the result on the brainstorm and its vector mirror.
func (c *Coach) GenerateSummary(ctx context.Context, brainstormID uint) (*SummaryResult, error) {
	brainstorm, err := c.brainstormRepo.GetByID(brainstormID)
	if err != nil {
		return nil, err
	}
	if brainstorm == nil {
		return nil, ErrBrainstormNotFound
	}

	messages, err := c.messageRepo.ListByBrainstormID(brainstormID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, ErrNoMessages
	}

	request := buildRequest(summarySystemPrompt, messages, "")
	summary, err := c.llm.Complete(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("generate summary failed: %w", err)
	}
	summary = strings.TrimSpace(summary)

	if _, err := c.brainstormRepo.UpdateSummary(brainstormID, summary); err != nil {
		return nil, err
	}
	if err := c.mirror.UpdateSummary(ctx, brainstormID, summary); err != nil {
		return nil, err
	}

	return &SummaryResult{Summary: summary, Prompt: summarySystemPrompt}, nil
}

// NextCoachMessage produces the coach's next question, optionally enriched by
// context retrieved from other brainstorms.
func (c *Coach) NextCoachMessage(ctx context.Context, brainstormID uint, source ContextSource) (*CoachResult, error) {
	brainstorm, err := c.brainstormRepo.GetByID(brainstormID)
	if err != nil {
		return nil, err
	}
	if brainstorm == nil {
		return nil, ErrBrainstormNotFound
	}

	messages, err := c.messageRepo.ListByBrainstormID(brainstormID)
	if err != nil {
		return nil, err
	}

	contextParagraph := ""
	if source != SourceNone {
		contextParagraph, err = c.retrieveContext(ctx, brainstorm, source)
		if err != nil {
			if c.opts.RequireContext {
				return nil, fmt.Errorf("retrieve context failed: %w", err)
			}
			log.Printf("context retrieval degraded to no-context prompt: %v", err)
			contextParagraph = ""
		}
	}

	request := buildRequest(coachSystemPrompt, messages, contextParagraph)
	message, err := c.llm.Complete(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("generate coach message failed: %w", err)
	}

	return &CoachResult{
		Message: strings.TrimSpace(message),
		Prompt:  coachSystemPrompt,
		Context: contextParagraph,
		Source:  source,
	}, nil
}

// retrieveContext runs the shared retrieval primitive: nearest neighbors
// anchored on this brainstorm's latest message or its centroid, excluding the
// brainstorm itself, synthesized into one paragraph by the language model.
func (c *Coach) retrieveContext(ctx context.Context, brainstorm *model.Brainstorm, source ContextSource) (string, error) {
	var texts []string

	switch source {
	case SourceMessage:
		last, err := c.messageRepo.LastByBrainstormID(brainstorm.ID)
		if err != nil {
			return "", err
		}
		if last == nil {
			return "", nil
		}
		anchor, err := c.vectors.FindByProperty(ctx, vectorstore.ClassBrainstormMessage, "brainstormMessageId", last.ID)
		if err != nil {
			return "", err
		}
		if anchor == nil {
			return "", fmt.Errorf("message %d has no vector mirror", last.ID)
		}
		hits, err := c.vectors.Search(ctx, vectorstore.Query{
			Class:        vectorstore.ClassBrainstormMessage,
			NearObjectID: anchor.ID,
			Where: []vectorstore.Predicate{
				{Key: "brainstormId", Op: vectorstore.OpNotEqual, Value: brainstorm.ID},
				{Key: "role", Op: vectorstore.OpEqual, Value: model.RoleUser},
			},
			Limit:       c.opts.ContextTopK,
			MaxDistance: c.opts.MaxDistance,
		})
		if err != nil {
			return "", err
		}
		texts = propertyStrings(hits, "content")

	case SourceBrainstorm:
		obj, err := c.vectors.FindByProperty(ctx, vectorstore.ClassBrainstorm, "brainstormId", brainstorm.ID)
		if err != nil {
			return "", err
		}
		if obj == nil || len(obj.Vector) == 0 {
			return "", fmt.Errorf("brainstorm %d has no centroid vector", brainstorm.ID)
		}
		hits, err := c.vectors.Search(ctx, vectorstore.Query{
			Class:      vectorstore.ClassBrainstorm,
			NearVector: obj.Vector,
			Where: []vectorstore.Predicate{
				{Key: "brainstormId", Op: vectorstore.OpNotEqual, Value: brainstorm.ID},
				{Key: "summary", Op: vectorstore.OpNotNull},
			},
			Limit: c.opts.ContextTopK,
		})
		if err != nil {
			return "", err
		}
		texts = propertyStrings(hits, "summary")

	default:
		return "", fmt.Errorf("unknown context source %q", source)
	}

	if len(texts) == 0 {
		return "", nil
	}
	return c.synthesize(ctx, texts)
}

// synthesize collapses retrieved items into one context paragraph. This is
// the generation half of the store's "grouped" generative query.
func (c *Coach) synthesize(ctx context.Context, texts []string) (string, error) {
	request := []ai.ChatMessage{
		{Role: model.RoleSystem, Content: contextSynthesisPrompt},
		{Role: model.RoleUser, Content: strings.Join(texts, "\n---\n")},
	}
	paragraph, err := c.llm.Complete(ctx, request)
	if err != nil {
		return "", fmt.Errorf("synthesize context failed: %w", err)
	}
	return strings.TrimSpace(paragraph), nil
}

// FindConnections compares this brainstorm's summary against its nearest
// summarized neighbors and asks the model for the connections between each
// pair. Requires a summary; checked before any vector-store call.
func (c *Coach) FindConnections(ctx context.Context, brainstormID uint) ([]Connection, error) {
	brainstorm, err := c.brainstormRepo.GetByID(brainstormID)
	if err != nil {
		return nil, err
	}
	if brainstorm == nil {
		return nil, ErrBrainstormNotFound
	}
	if brainstorm.Summary == nil || strings.TrimSpace(*brainstorm.Summary) == "" {
		return nil, ErrNoSummary
	}

	obj, err := c.vectors.FindByProperty(ctx, vectorstore.ClassBrainstorm, "brainstormId", brainstormID)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}

	hits, err := c.vectors.Search(ctx, vectorstore.Query{
		Class:        vectorstore.ClassBrainstorm,
		NearObjectID: obj.ID,
		Where: []vectorstore.Predicate{
			{Key: "brainstormId", Op: vectorstore.OpNotEqual, Value: brainstormID},
			{Key: "summary", Op: vectorstore.OpNotNull},
		},
		Limit: 5,
	})
	if err != nil {
		return nil, err
	}

	var connections []Connection
	for _, hit := range hits {
		title, _ := hit.Object.Properties["title"].(string)
		neighborSummary, _ := hit.Object.Properties["summary"].(string)

		request := []ai.ChatMessage{
			{Role: model.RoleSystem, Content: connectionsSystemPrompt},
			{Role: model.RoleUser, Content: fmt.Sprintf(
				"First brainstorm:\n%s\n\nSecond brainstorm:\n%s", *brainstorm.Summary, neighborSummary)},
		}
		answer, err := c.llm.Complete(ctx, request)
		if err != nil {
			return nil, fmt.Errorf("generate connections failed: %w", err)
		}

		connections = append(connections, Connection{
			Title:       title,
			Summary:     neighborSummary,
			Connections: parseBullets(answer, 5),
		})
	}
	return connections, nil
}

// SimilarBrainstorms returns the nearest other brainstorms by centroid
// distance; the source brainstorm is never part of the result.
func (c *Coach) SimilarBrainstorms(ctx context.Context, brainstormID uint) ([]SimilarBrainstorm, error) {
	brainstorm, err := c.brainstormRepo.GetByID(brainstormID)
	if err != nil {
		return nil, err
	}
	if brainstorm == nil {
		return nil, ErrBrainstormNotFound
	}

	obj, err := c.vectors.FindByProperty(ctx, vectorstore.ClassBrainstorm, "brainstormId", brainstormID)
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, nil
	}

	hits, err := c.vectors.Search(ctx, vectorstore.Query{
		Class:        vectorstore.ClassBrainstorm,
		NearObjectID: obj.ID,
		Where: []vectorstore.Predicate{
			{Key: "brainstormId", Op: vectorstore.OpNotEqual, Value: brainstormID},
		},
		Limit: 5,
	})
	if err != nil {
		return nil, err
	}

	similar := make([]SimilarBrainstorm, 0, len(hits))
	for _, hit := range hits {
		title, _ := hit.Object.Properties["title"].(string)
		similar = append(similar, SimilarBrainstorm{Title: title, Distance: hit.Distance})
	}
	return similar, nil
}

// buildRequest assembles the LLM request: system instruction, the
// conversation oldest to newest, then the optional context paragraph as a
// trailing assistant turn.
func buildRequest(systemPrompt string, messages []model.BrainstormMessage, contextParagraph string) []ai.ChatMessage {
	request := make([]ai.ChatMessage, 0, len(messages)+2)
	request = append(request, ai.ChatMessage{Role: model.RoleSystem, Content: systemPrompt})
	for _, m := range messages {
		request = append(request, ai.ChatMessage{Role: m.Role, Content: m.Content})
	}
	if contextParagraph != "" {
		request = append(request, ai.ChatMessage{Role: model.RoleAssistant, Content: contextParagraph})
	}
	return request
}

func propertyStrings(hits []vectorstore.Hit, key string) []string {
	var values []string
	for _, hit := range hits {
		if v, ok := hit.Object.Properties[key].(string); ok && v != "" {
			values = append(values, v)
		}
	}
	return values
}

// parseBullets extracts up to max bullet lines from a model answer.
func parseBullets(answer string, max int) []string {
	var bullets []string
	for _, line := range strings.Split(answer, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimLeft(line, "-*• \t")
		if len(line) > 2 && line[1] == '.' && line[0] >= '0' && line[0] <= '9' {
			line = strings.TrimSpace(line[2:])
		}
		if line == "" {
			continue
		}
		bullets = append(bullets, line)
		if len(bullets) == max {
			break
		}
	}
	return bullets
}
