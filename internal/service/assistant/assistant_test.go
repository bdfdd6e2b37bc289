package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sandevgo/recall/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	results   []core.SearchResult
	err       error
	lastQuery core.Query
	calls     int
}

func (f *fakeSearcher) Search(ctx context.Context, query core.Query) ([]core.SearchResult, error) {
	f.calls++
	f.lastQuery = query
	return f.results, f.err
}

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

func (f *fakeEmbedder) Dims() int { return core.EmbeddingDims }

func newAssistant(searcher *fakeSearcher, embedder *fakeEmbedder, provider *fakeProvider) *Assistant {
	return NewAssistant(searcher, embedder, NewContextBuilder(), NewGenerator(provider, 1000, 0.3), nil, DefaultConfig())
}

func vectorResult(id string, sim float32, age time.Duration) core.SearchResult {
	return core.SearchResult{
		Note:       core.Note{ID: id, Title: id, TenantID: "t1", CreatedAt: time.Now().Add(-age)},
		Similarity: sim,
		Mode:       core.ModeVector,
	}
}

func TestProcessMessage_EmptyMessageRejected(t *testing.T) {
	searcher := &fakeSearcher{}
	a := newAssistant(searcher, &fakeEmbedder{}, &fakeProvider{answer: "ok"})

	_, err := a.ProcessMessage(context.Background(), "   ", "t1", nil, nil)
	assert.ErrorIs(t, err, core.ErrEmptyMessage)
	assert.Equal(t, 0, searcher.calls)
}

func TestProcessMessage_TenantRequired(t *testing.T) {
	a := newAssistant(&fakeSearcher{}, &fakeEmbedder{}, &fakeProvider{answer: "ok"})

	_, err := a.ProcessMessage(context.Background(), "hello", "", nil, nil)
	assert.Error(t, err)
}

func TestProcessMessage_NoMatchesIsNormal(t *testing.T) {
	a := newAssistant(&fakeSearcher{}, &fakeEmbedder{err: errors.New("down")}, &fakeProvider{answer: "I found no relevant memories for that."})

	result, err := a.ProcessMessage(context.Background(), "anything about dragons?", "t1", nil, nil)
	require.NoError(t, err)
	assert.True(t, result.SearchPerformed)
	assert.Equal(t, 0, result.MemoryCount)
	assert.Empty(t, result.Sources)
	assert.NotEmpty(t, result.Answer)
}

func TestProcessMessage_TopFiveSources(t *testing.T) {
	var results []core.SearchResult
	for i := 0; i < 8; i++ {
		results = append(results, vectorResult(string(rune('a'+i)), 0.9-float32(i)*0.05, time.Hour))
	}
	searcher := &fakeSearcher{results: results}
	a := newAssistant(searcher, &fakeEmbedder{vec: make([]float32, core.EmbeddingDims)}, &fakeProvider{answer: "ok"})

	result, err := a.ProcessMessage(context.Background(), "what do I know?", "t1", nil, nil)
	require.NoError(t, err)

	// All considered notes count, only the top five are cited, in engine order.
	assert.Equal(t, 8, result.MemoryCount)
	require.Len(t, result.Sources, 5)
	assert.Equal(t, "a", result.Sources[0].Note.ID)
	assert.Equal(t, "e", result.Sources[4].Note.ID)
	assert.Equal(t, 15, searcher.lastQuery.Limit)
}

func TestProcessMessage_ReviewFiltersSources(t *testing.T) {
	results := []core.SearchResult{
		vectorResult("fresh1", 0.9, 24*time.Hour),
		vectorResult("fresh2", 0.8, 48*time.Hour),
		vectorResult("fresh3", 0.7, 72*time.Hour),
		vectorResult("old1", 0.95, 10*24*time.Hour),
		vectorResult("old2", 0.85, 20*24*time.Hour),
	}
	a := newAssistant(&fakeSearcher{results: results}, &fakeEmbedder{vec: make([]float32, core.EmbeddingDims)}, &fakeProvider{answer: "ok"})

	result, err := a.ProcessMessage(context.Background(), "give me my weekly review", "t1", nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, result.MemoryCount)
	require.Len(t, result.Sources, 3)
	for _, s := range result.Sources {
		assert.Contains(t, []string{"fresh1", "fresh2", "fresh3"}, s.Note.ID)
	}
}

func TestProcessMessage_CallerEmbeddingPassedThrough(t *testing.T) {
	searcher := &fakeSearcher{}
	embedder := &fakeEmbedder{err: errors.New("should not be called")}
	a := newAssistant(searcher, embedder, &fakeProvider{answer: "ok"})

	vec := make([]float32, core.EmbeddingDims)
	vec[7] = 1

	_, err := a.ProcessMessage(context.Background(), "hello", "t1", vec, nil)
	require.NoError(t, err)
	assert.Equal(t, vec, searcher.lastQuery.Embedding)
}

func TestProcessMessage_SearchErrorDegrades(t *testing.T) {
	searcher := &fakeSearcher{err: errors.New("db gone")}
	a := newAssistant(searcher, &fakeEmbedder{vec: make([]float32, core.EmbeddingDims)}, &fakeProvider{answer: "still answering"})

	result, err := a.ProcessMessage(context.Background(), "hello", "t1", nil, nil)
	require.NoError(t, err)
	assert.True(t, result.SearchPerformed)
	assert.Equal(t, 0, result.MemoryCount)
	assert.Equal(t, "still answering", result.Answer)
}

func TestProcessMessage_GeneratorFailureDoesNotPropagate(t *testing.T) {
	searcher := &fakeSearcher{results: []core.SearchResult{vectorResult("a", 0.9, time.Hour)}}
	provider := &fakeProvider{err: errors.New("socket closed")}
	a := newAssistant(searcher, &fakeEmbedder{vec: make([]float32, core.EmbeddingDims)}, provider)

	result, err := a.ProcessMessage(context.Background(), "hello", "t1", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, apologyGeneric, result.Answer)
	assert.Equal(t, 1, result.MemoryCount)
}

func TestProcessMessage_HistoryReachesPrompt(t *testing.T) {
	provider := &fakeProvider{answer: "ok"}
	a := newAssistant(&fakeSearcher{}, &fakeEmbedder{vec: make([]float32, core.EmbeddingDims)}, provider)

	history := []core.ConversationTurn{
		{Role: core.RoleUser, Content: "earlier question"},
		{Role: core.RoleAssistant, Content: "earlier answer"},
	}

	_, err := a.ProcessMessage(context.Background(), "follow-up", "t1", nil, history)
	require.NoError(t, err)
	assert.Contains(t, provider.lastReq.User, "user: earlier question")
	assert.Contains(t, provider.lastReq.User, "assistant: earlier answer")
}
