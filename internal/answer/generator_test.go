package answer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docqa/internal/domain"
	"docqa/internal/llm/ollama"
)

type fakeModel struct {
	reply string
	err   error
	got   []ollama.Message
}

func (f *fakeModel) Chat(_ context.Context, messages []ollama.Message) (string, error) {
	f.got = messages
	return f.reply, f.err
}

func TestPrompt(t *testing.T) {
	p := Prompt("What is Go?", []domain.Chunk{{Text: "Go is a language."}, {Text: "It has goroutines."}})

	assert.Contains(t, p, "question : What is Go?")
	assert.Contains(t, p, "related documents : Go is a language.\n\nIt has goroutines.")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(p), "You is a assistant for provide simple and relvent answers"))
}

func TestPrompt_Verbatim(t *testing.T) {
	q := "  {documents} & <b>?  "
	p := Prompt(q, []domain.Chunk{{Text: "{question}"}})
	assert.Contains(t, p, "question : "+q+"\n")
	assert.Contains(t, p, "related documents : {question}\n")
}

func TestGenerate(t *testing.T) {
	m := &fakeModel{reply: "Go is a programming language."}
	got, err := NewGenerator(m).Generate(context.Background(), "What is Go?", []domain.Chunk{{Text: "Go is a language."}})
	require.NoError(t, err)
	assert.Equal(t, "Go is a programming language.", got)

	require.Len(t, m.got, 1)
	assert.Equal(t, "user", m.got[0].Role)
	assert.Contains(t, m.got[0].Content, "Go is a language.")
}

func TestGenerate_NoChunks(t *testing.T) {
	m := &fakeModel{reply: "I don't know."}
	_, err := NewGenerator(m).Generate(context.Background(), "q", nil)
	require.NoError(t, err)
	assert.Contains(t, m.got[0].Content, "related documents : \n")
}

func TestGenerate_Errors(t *testing.T) {
	_, err := NewGenerator(&fakeModel{err: errors.New("connection refused")}).Generate(context.Background(), "q", nil)
	assert.ErrorIs(t, err, domain.ErrGeneration)

	_, err = NewGenerator(&fakeModel{reply: "  "}).Generate(context.Background(), "q", nil)
	assert.ErrorIs(t, err, domain.ErrGeneration)
}
