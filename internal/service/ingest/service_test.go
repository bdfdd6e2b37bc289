package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/sandevgo/recall/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	created []core.Note
	err     error
}

func (f *fakeRepo) CreateNote(ctx context.Context, note core.Note) error {
	f.created = append(f.created, note)
	return f.err
}

func (f *fakeRepo) ListNotes(ctx context.Context, tenantID string, limit int) ([]core.Note, error) {
	return nil, nil
}

func (f *fakeRepo) SearchByVector(ctx context.Context, tenantID string, vec []float32, threshold float32, limit int, excluded []string) ([]core.VectorMatch, error) {
	return nil, nil
}

func (f *fakeRepo) SearchLexical(ctx context.Context, tenantID, text string, limit int, excluded []string) ([]core.Note, error) {
	return nil, nil
}

type fakeEmbedder struct {
	vec      []float32
	err      error
	lastText string
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.lastText = text
	return f.vec, f.err
}

func (f *fakeEmbedder) Dims() int { return core.EmbeddingDims }

func embeddedVec() []float32 {
	vec := make([]float32, core.EmbeddingDims)
	vec[0] = 1
	return vec
}

func TestCreateNote_SanitizesAndEmbeds(t *testing.T) {
	repo := &fakeRepo{}
	embedder := &fakeEmbedder{vec: embeddedVec()}
	svc := NewService(repo, embedder)

	note, err := svc.CreateNote(context.Background(), CreateNoteRequest{
		TenantID: "alice",
		Title:    "<b>Groceries</b>",
		Body:     "<script>alert(1)</script>buy milk",
		Tags:     []string{"errands"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Groceries", note.Title)
	assert.Equal(t, "buy milk", note.Body)
	assert.NotEmpty(t, note.ID)
	require.Len(t, repo.created, 1)
	assert.Len(t, repo.created[0].Embedding, core.EmbeddingDims)

	// Embedding text is the deterministic (title, body, tags) rendering.
	assert.Equal(t, "Groceries\nbuy milk\nerrands", embedder.lastText)
}

func TestCreateNote_EmbedFailureStoresWithoutVector(t *testing.T) {
	repo := &fakeRepo{}
	svc := NewService(repo, &fakeEmbedder{err: errors.New("provider down")})

	note, err := svc.CreateNote(context.Background(), CreateNoteRequest{
		TenantID: "alice",
		Title:    "something",
		Body:     "body",
	})
	require.NoError(t, err)
	assert.Nil(t, note.Embedding)
	require.Len(t, repo.created, 1)
	assert.Nil(t, repo.created[0].Embedding)
}

func TestCreateNote_SuppliedEmbeddingWins(t *testing.T) {
	repo := &fakeRepo{}
	embedder := &fakeEmbedder{err: errors.New("should not be called")}
	svc := NewService(repo, embedder)

	vec := embeddedVec()
	note, err := svc.CreateNote(context.Background(), CreateNoteRequest{
		TenantID:  "alice",
		Title:     "pre-embedded",
		Body:      "body",
		Embedding: vec,
	})
	require.NoError(t, err)
	assert.Equal(t, vec, note.Embedding)
	assert.Empty(t, embedder.lastText)
}

func TestCreateNote_Validation(t *testing.T) {
	svc := NewService(&fakeRepo{}, &fakeEmbedder{vec: embeddedVec()})

	_, err := svc.CreateNote(context.Background(), CreateNoteRequest{Title: "x"})
	assert.Error(t, err)

	_, err = svc.CreateNote(context.Background(), CreateNoteRequest{TenantID: "alice"})
	assert.Error(t, err)
}
