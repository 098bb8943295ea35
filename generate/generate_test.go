package generate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/chatflow-dev/chatflow/config"
	"github.com/chatflow-dev/chatflow/constants"
	"github.com/chatflow-dev/chatflow/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSystemPrompt(t *testing.T) {
	tmpl, err := NewPromptTemplate("")
	require.NoError(t, err)

	plain, err := tmpl.SystemPrompt(Prompt{Question: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "You are a helpful AI assistant engaged in a conversation.\n"+
		"Your primary focus is to provide clear, relevant, and contextual responses to the current conversation.", plain)

	withRelated, err := tmpl.SystemPrompt(Prompt{Question: "hi", Related: []Related{{BlockID: "b"}}})
	require.NoError(t, err)
	assert.Contains(t, withRelated, plain+"\n\nYou have access to related conversations")
	assert.Contains(t, withRelated, "- Be concise and clear in your responses")
}

func TestCustomTemplate(t *testing.T) {
	tmpl, err := NewPromptTemplate("Answer {{ question }}{% if related %} with context{% endif %}")
	require.NoError(t, err)
	out, err := tmpl.SystemPrompt(Prompt{Question: "why", Related: []Related{{BlockID: "x"}}})
	require.NoError(t, err)
	assert.Equal(t, "Answer why with context", out)

	_, err = NewPromptTemplate("{% if %}")
	assert.Error(t, err)
}

func TestFormatRelated(t *testing.T) {
	tmpl, err := NewPromptTemplate("")
	require.NoError(t, err)
	out, err := tmpl.FormatRelated(Related{BlockID: "block-7", Messages: []model.ChatMessage{
		{Text: "what's a <node>?", IsUser: true},
		{Text: "ok"},
		{Text: "  A node is a box.  "},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Related discussion from conversation block-7:\nUser: what's a <node>?\nAssistant: A node is a box.", out)
}

func TestMessages(t *testing.T) {
	tmpl, err := NewPromptTemplate("")
	require.NoError(t, err)

	msgs, err := tmpl.Messages(Prompt{
		Question: "next?",
		History:  []model.ChatMessage{{Text: "first question", IsUser: true}, {Text: "first answer"}},
		Related:  []Related{{BlockID: "b2", Messages: []model.ChatMessage{{Text: "related text", IsUser: true}}}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 7)
	assert.Equal(t, RoleSystem, msgs[0].Role)
	assert.Equal(t, Message{Role: RoleUser, Content: "first question"}, msgs[1])
	assert.Equal(t, Message{Role: RoleAssistant, Content: "first answer"}, msgs[2])
	assert.Equal(t, referenceHeader, msgs[3].Content)
	assert.Contains(t, msgs[4].Content, "conversation b2")
	assert.Equal(t, focusPrompt, msgs[5].Content)
	assert.Equal(t, Message{Role: RoleUser, Content: "next?"}, msgs[6])

	msgs, err = tmpl.Messages(Prompt{Question: "alone"})
	require.NoError(t, err)
	assert.Len(t, msgs, 3)
}

func TestMessages_Documents(t *testing.T) {
	tmpl, err := NewPromptTemplate("")
	require.NoError(t, err)

	msgs, err := tmpl.Messages(Prompt{
		Question:  "what is the budget?",
		Documents: []Document{{Name: "plan.txt", Text: "Budget is <10k>."}, {Name: "empty.md"}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	assert.Equal(t, RoleSystem, msgs[1].Role)
	assert.Equal(t, "Answer the question based on the following context from the workspace documents:\n\n"+
		"[plan.txt]\nBudget is <10k>.", msgs[1].Content)
	assert.Equal(t, Message{Role: RoleUser, Content: "what is the budget?"}, msgs[3])

	custom, err := NewPromptTemplate("{% if documents %}grounded{% else %}free{% endif %}")
	require.NoError(t, err)
	out, err := custom.SystemPrompt(Prompt{Question: "q", Documents: []Document{{Name: "a.txt", Text: "a"}}})
	require.NoError(t, err)
	assert.Equal(t, "grounded", out)
}

func TestContextDocuments(t *testing.T) {
	assert.True(t, IsContextDocument("notes.txt"))
	assert.True(t, IsContextDocument("dir/README.MD"))
	assert.False(t, IsContextDocument("diagram.png"))
	assert.False(t, IsContextDocument("txt"))

	d := NewDocument("a.txt", []byte("  short  "))
	assert.Equal(t, "short", d.Text)

	long := []byte(strings.Repeat("a", MaxDocumentBytes-1) + "é" + "tail")
	d = NewDocument("long.txt", long)
	assert.Len(t, d.Text, MaxDocumentBytes-1)
	assert.True(t, utf8.ValidString(d.Text))
}

func TestEchoGenerator(t *testing.T) {
	g := NewEchoGenerator()
	out, err := g.Generate(context.Background(), Prompt{Question: "ping"})
	require.NoError(t, err)
	assert.Equal(t, "Echo: ping", out)

	_, err = g.Generate(context.Background(), Prompt{Question: "  "})
	assert.ErrorIs(t, err, ErrEmptyQuestion)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Generate(ctx, Prompt{Question: "ping"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOpenAIGenerator(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"the answer"}}]}`))
	}))
	defer srv.Close()

	g, err := NewOpenAIGenerator(OpenAIOptions{APIKey: "test-key", Endpoint: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	out, err := g.Generate(context.Background(), Prompt{Question: "q"})
	require.NoError(t, err)
	assert.Equal(t, "the answer", out)
	assert.Equal(t, constants.DefaultOpenAIModel, got.Model)
	require.NotEmpty(t, got.Messages)
	assert.Equal(t, "q", got.Messages[len(got.Messages)-1].Content)
}

func TestOpenAIGenerator_Errors(t *testing.T) {
	_, err := NewOpenAIGenerator(OpenAIOptions{})
	assert.Error(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()
	g, err := NewOpenAIGenerator(OpenAIOptions{APIKey: "k", Endpoint: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)
	_, err = g.Generate(context.Background(), Prompt{Question: "q"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")

	_, err = g.Generate(context.Background(), Prompt{})
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestNewGeneratorFromConfig(t *testing.T) {
	g, err := NewGeneratorFromConfig(config.GenerationConfig{})
	require.NoError(t, err)
	assert.IsType(t, &EchoGenerator{}, g)

	t.Setenv(constants.EnvOpenAIKey, "k")
	g, err = NewGeneratorFromConfig(config.GenerationConfig{Driver: constants.GeneratorOpenAI, Model: "m"})
	require.NoError(t, err)
	assert.Equal(t, "m", g.(*OpenAIGenerator).model)

	_, err = NewGeneratorFromConfig(config.GenerationConfig{Driver: "llama"})
	assert.Error(t, err)

	_, err = NewGeneratorFromConfig(config.GenerationConfig{PromptTemplate: "{% for %}"})
	assert.Error(t, err)
}
