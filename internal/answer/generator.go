// Package answer turns a question and its retrieved chunks into a model reply.
package answer

import (
	"context"
	"errors"
	"strings"

	"docqa/internal/domain"
	"docqa/internal/llm/ollama"
)

const promptTemplate = `
You is a assistant for provide simple and relvent answers for the question using the provided contents. You need to use simple english and relevent answers to easy understanding.

question : {question}
related documents : {documents}
`

// ChatModel is the LLM the generator sends its prompt to.
type ChatModel interface {
	Chat(ctx context.Context, messages []ollama.Message) (string, error)
}

// Generator builds the grounded prompt and asks the model.
type Generator struct {
	model ChatModel
}

func NewGenerator(model ChatModel) *Generator {
	return &Generator{model: model}
}

// Prompt renders the template with the question and the verbatim chunk texts.
func Prompt(question string, chunks []domain.Chunk) string {
	docs := make([]string, len(chunks))
	for i, c := range chunks {
		docs[i] = c.Text
	}
	r := strings.NewReplacer("{question}", question, "{documents}", strings.Join(docs, "\n\n"))
	return r.Replace(promptTemplate)
}

// Generate asks the model to answer question from chunks.
func (g *Generator) Generate(ctx context.Context, question string, chunks []domain.Chunk) (string, error) {
	reply, err := g.model.Chat(ctx, []ollama.Message{{Role: "user", Content: Prompt(question, chunks)}})
	if err != nil {
		return "", domain.E(domain.KindGeneration, "generate", err)
	}
	if strings.TrimSpace(reply) == "" {
		return "", domain.E(domain.KindGeneration, "generate", errors.New("empty answer"))
	}
	return reply, nil
}
