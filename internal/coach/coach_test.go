package coach

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"brainstorm-coach/internal/ai"
	"brainstorm-coach/internal/model"
	"brainstorm-coach/internal/repository"
	"brainstorm-coach/internal/vectorstore"
)

// spySearcher records vector-store calls and replays canned results.
type spySearcher struct {
	findCalls   int
	searchCalls int
	lastQuery   vectorstore.Query
	findResult  *vectorstore.ObjectData
	hits        []vectorstore.Hit
	err         error
}

func (s *spySearcher) FindByProperty(ctx context.Context, class, key string, value any) (*vectorstore.ObjectData, error) {
	s.findCalls++
	return s.findResult, s.err
}

func (s *spySearcher) Search(ctx context.Context, q vectorstore.Query) ([]vectorstore.Hit, error) {
	s.searchCalls++
	s.lastQuery = q
	return s.hits, s.err
}

// scriptedCompleter returns canned answers in order and records the requests.
type scriptedCompleter struct {
	answers  []string
	requests [][]ai.ChatMessage
	err      error
}

func (c *scriptedCompleter) Complete(ctx context.Context, messages []ai.ChatMessage) (string, error) {
	c.requests = append(c.requests, messages)
	if c.err != nil {
		return "", c.err
	}
	idx := len(c.requests) - 1
	if idx >= len(c.answers) {
		return "", errors.New("no scripted answer left")
	}
	return c.answers[idx], nil
}

type recordingMirror struct {
	summaries map[uint]string
}

func (m *recordingMirror) UpdateSummary(ctx context.Context, brainstormID uint, summary string) error {
	if m.summaries == nil {
		m.summaries = map[uint]string{}
	}
	m.summaries[brainstormID] = summary
	return nil
}

type coachFixture struct {
	brainstormRepo *repository.BrainstormRepository
	messageRepo    *repository.MessageRepository
	searcher       *spySearcher
	completer      *scriptedCompleter
	mirror         *recordingMirror
}

func newCoachFixture(t *testing.T) *coachFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	// One connection so the in-memory database survives pool churn.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&model.Brainstorm{}, &model.BrainstormMessage{}))
	return &coachFixture{
		brainstormRepo: repository.NewBrainstormRepository(db),
		messageRepo:    repository.NewMessageRepository(db),
		searcher:       &spySearcher{},
		completer:      &scriptedCompleter{},
		mirror:         &recordingMirror{},
	}
}

func (f *coachFixture) coach(opts Options) *Coach {
	return New(f.brainstormRepo, f.messageRepo, f.searcher, f.completer, f.mirror, opts)
}

func (f *coachFixture) seedBrainstorm(t *testing.T, contents ...string) *model.Brainstorm {
	t.Helper()
	brainstorm := &model.Brainstorm{UserID: 1, Title: "Garden"}
	require.NoError(t, f.brainstormRepo.Create(brainstorm))
	for i, content := range contents {
		role := model.RoleUser
		if i%2 == 0 {
			role = model.RoleAssistant
		}
		require.NoError(t, f.messageRepo.Create(&model.BrainstormMessage{
			BrainstormID: brainstorm.ID,
			Role:         role,
			Content:      content,
		}))
	}
	return brainstorm
}

func TestGenerateSummaryPersistsBothStores(t *testing.T) {
	f := newCoachFixture(t)
	brainstorm := f.seedBrainstorm(t, "What do you want to brainstorm?", "A rooftop garden")
	f.completer.answers = []string{"  # Rooftop garden plan\nGrow things.  "}

	result, err := f.coach(Options{}).GenerateSummary(context.Background(), brainstorm.ID)
	require.NoError(t, err)
	assert.Equal(t, "# Rooftop garden plan\nGrow things.", result.Summary)
	assert.Equal(t, summarySystemPrompt, result.Prompt)

	stored, err := f.brainstormRepo.GetByID(brainstorm.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Summary)
	assert.Equal(t, result.Summary, *stored.Summary)
	assert.Equal(t, result.Summary, f.mirror.summaries[brainstorm.ID])

	// Request shape: system prompt first, then the conversation in order.
	require.Len(t, f.completer.requests, 1)
	request := f.completer.requests[0]
	require.Len(t, request, 3)
	assert.Equal(t, model.RoleSystem, request[0].Role)
	assert.Equal(t, "A rooftop garden", request[2].Content)
}

func TestGenerateSummaryRequiresMessages(t *testing.T) {
	f := newCoachFixture(t)
	brainstorm := f.seedBrainstorm(t)

	_, err := f.coach(Options{}).GenerateSummary(context.Background(), brainstorm.ID)
	assert.ErrorIs(t, err, ErrNoMessages)

	_, err = f.coach(Options{}).GenerateSummary(context.Background(), 999)
	assert.ErrorIs(t, err, ErrBrainstormNotFound)
}

func TestNextCoachMessageWithoutContextSkipsVectorStore(t *testing.T) {
	f := newCoachFixture(t)
	brainstorm := f.seedBrainstorm(t, "What do you want to brainstorm?", "Compost bins")
	f.completer.answers = []string{"What would you compost?"}

	result, err := f.coach(Options{}).NextCoachMessage(context.Background(), brainstorm.ID, SourceNone)
	require.NoError(t, err)
	assert.Equal(t, "What would you compost?", result.Message)
	assert.Equal(t, SourceNone, result.Source)
	assert.Empty(t, result.Context)
	assert.Zero(t, f.searcher.findCalls)
	assert.Zero(t, f.searcher.searchCalls)

	// Exactly one LLM request: system prompt then both turns in order, with
	// no trailing context paragraph.
	require.Len(t, f.completer.requests, 1)
	request := f.completer.requests[0]
	require.Len(t, request, 3)
	assert.Equal(t, model.RoleSystem, request[0].Role)
	assert.Equal(t, coachSystemPrompt, request[0].Content)
	assert.Equal(t, "What do you want to brainstorm?", request[1].Content)
	assert.Equal(t, "Compost bins", request[2].Content)
}

func TestNextCoachMessageWithMessageContext(t *testing.T) {
	f := newCoachFixture(t)
	brainstorm := f.seedBrainstorm(t, "What do you want to brainstorm?", "Compost bins")
	f.searcher.findResult = &vectorstore.ObjectData{ID: "anchor-id", Class: vectorstore.ClassBrainstormMessage}
	f.searcher.hits = []vectorstore.Hit{
		{Object: vectorstore.ObjectData{Properties: map[string]any{"content": "Worm farming ideas"}}, Distance: 0.1},
	}
	// First call synthesizes context, second produces the coach question.
	f.completer.answers = []string{"You explored worm farming before.", "Could worms help here?"}

	result, err := f.coach(Options{ContextTopK: 3, MaxDistance: 0.25}).
		NextCoachMessage(context.Background(), brainstorm.ID, SourceMessage)
	require.NoError(t, err)
	assert.Equal(t, "Could worms help here?", result.Message)
	assert.Equal(t, "You explored worm farming before.", result.Context)
	assert.Equal(t, SourceMessage, result.Source)

	// The neighbor query excludes this brainstorm and only takes user turns.
	q := f.searcher.lastQuery
	assert.Equal(t, vectorstore.ClassBrainstormMessage, q.Class)
	assert.Equal(t, "anchor-id", q.NearObjectID)
	assert.Equal(t, 3, q.Limit)
	assert.Equal(t, 0.25, q.MaxDistance)
	require.Len(t, q.Where, 2)
	assert.Equal(t, vectorstore.OpNotEqual, q.Where[0].Op)
	assert.Equal(t, model.RoleUser, q.Where[1].Value)

	// The context rides the coach request as a trailing assistant turn.
	coachRequest := f.completer.requests[1]
	last := coachRequest[len(coachRequest)-1]
	assert.Equal(t, model.RoleAssistant, last.Role)
	assert.Equal(t, "You explored worm farming before.", last.Content)
}

func TestNextCoachMessageRequireContextFailure(t *testing.T) {
	f := newCoachFixture(t)
	brainstorm := f.seedBrainstorm(t, "What do you want to brainstorm?", "Compost bins")
	f.searcher.findResult = nil // message never mirrored

	_, err := f.coach(Options{RequireContext: true}).
		NextCoachMessage(context.Background(), brainstorm.ID, SourceMessage)
	require.Error(t, err)
}

func TestNextCoachMessageDegradesWhenContextOptional(t *testing.T) {
	f := newCoachFixture(t)
	brainstorm := f.seedBrainstorm(t, "What do you want to brainstorm?", "Compost bins")
	f.searcher.findResult = nil
	f.completer.answers = []string{"What first step comes to mind?"}

	result, err := f.coach(Options{RequireContext: false}).
		NextCoachMessage(context.Background(), brainstorm.ID, SourceMessage)
	require.NoError(t, err)
	assert.Equal(t, "What first step comes to mind?", result.Message)
	assert.Empty(t, result.Context)
}

func TestNextCoachMessageEmptyRetrievalIsNotAnError(t *testing.T) {
	f := newCoachFixture(t)
	brainstorm := f.seedBrainstorm(t, "What do you want to brainstorm?", "Compost bins")
	f.searcher.findResult = &vectorstore.ObjectData{ID: "anchor-id"}
	f.searcher.hits = nil // no neighbors within the distance threshold
	f.completer.answers = []string{"What first step comes to mind?"}

	result, err := f.coach(Options{RequireContext: true}).
		NextCoachMessage(context.Background(), brainstorm.ID, SourceMessage)
	require.NoError(t, err)
	assert.Empty(t, result.Context)
	// No synthesis call happens when nothing was retrieved.
	assert.Len(t, f.completer.requests, 1)
}

func TestFindConnectionsRequiresSummaryBeforeVectorCalls(t *testing.T) {
	f := newCoachFixture(t)
	brainstorm := f.seedBrainstorm(t, "What do you want to brainstorm?")

	_, err := f.coach(Options{}).FindConnections(context.Background(), brainstorm.ID)
	assert.ErrorIs(t, err, ErrNoSummary)
	assert.Zero(t, f.searcher.findCalls)
	assert.Zero(t, f.searcher.searchCalls)
}

func TestFindConnectionsComparesSummaries(t *testing.T) {
	f := newCoachFixture(t)
	brainstorm := f.seedBrainstorm(t, "What do you want to brainstorm?")
	_, err := f.brainstormRepo.UpdateSummary(brainstorm.ID, "Rooftop garden plan")
	require.NoError(t, err)

	f.searcher.findResult = &vectorstore.ObjectData{ID: "self-id"}
	f.searcher.hits = []vectorstore.Hit{
		{Object: vectorstore.ObjectData{Properties: map[string]any{
			"title":   "Balcony herbs",
			"summary": "Grow herbs in pots",
		}}, Distance: 0.05},
	}
	f.completer.answers = []string{"- Both grow food in small spaces\n- Both need sun planning"}

	connections, err := f.coach(Options{}).FindConnections(context.Background(), brainstorm.ID)
	require.NoError(t, err)
	require.Len(t, connections, 1)
	assert.Equal(t, "Balcony herbs", connections[0].Title)
	assert.Equal(t, "Grow herbs in pots", connections[0].Summary)
	assert.Equal(t, []string{
		"Both grow food in small spaces",
		"Both need sun planning",
	}, connections[0].Connections)

	// Neighbor query keeps the source out and requires summarized brainstorms.
	q := f.searcher.lastQuery
	assert.Equal(t, vectorstore.ClassBrainstorm, q.Class)
	require.Len(t, q.Where, 2)
	assert.Equal(t, vectorstore.OpNotEqual, q.Where[0].Op)
	assert.Equal(t, vectorstore.OpNotNull, q.Where[1].Op)
}

func TestSimilarBrainstormsNeverContainsSource(t *testing.T) {
	f := newCoachFixture(t)
	brainstorm := f.seedBrainstorm(t, "What do you want to brainstorm?")
	f.searcher.findResult = &vectorstore.ObjectData{ID: "self-id"}
	f.searcher.hits = []vectorstore.Hit{
		{Object: vectorstore.ObjectData{Properties: map[string]any{"title": "Balcony herbs"}}, Distance: 0.05},
		{Object: vectorstore.ObjectData{Properties: map[string]any{"title": "City bees"}}, Distance: 0.2},
	}

	similar, err := f.coach(Options{}).SimilarBrainstorms(context.Background(), brainstorm.ID)
	require.NoError(t, err)
	require.Len(t, similar, 2)
	assert.Equal(t, "Balcony herbs", similar[0].Title)
	assert.Equal(t, 0.05, similar[0].Distance)

	q := f.searcher.lastQuery
	require.Len(t, q.Where, 1)
	assert.Equal(t, vectorstore.OpNotEqual, q.Where[0].Op)
	assert.EqualValues(t, brainstorm.ID, q.Where[0].Value)
}

func TestSimilarBrainstormsWithoutMirrorIsEmpty(t *testing.T) {
	f := newCoachFixture(t)
	brainstorm := f.seedBrainstorm(t, "What do you want to brainstorm?")
	f.searcher.findResult = nil

	similar, err := f.coach(Options{}).SimilarBrainstorms(context.Background(), brainstorm.ID)
	require.NoError(t, err)
	assert.Empty(t, similar)
	assert.Zero(t, f.searcher.searchCalls)
}

func TestParseBullets(t *testing.T) {
	bullets := parseBullets("- one\n* two\n3. three\n\n  four  ", 3)
	assert.Equal(t, []string{"one", "two", "three"}, bullets)

	assert.Nil(t, parseBullets("", 5))
}
