package generate

import (
	"path"
	"strings"
	"unicode/utf8"

	"github.com/chatflow-dev/chatflow/model"
	pongo2 "github.com/flosch/pongo2/v6"
)

// DefaultSystemTemplate is the system prompt used when the config names none. The
// related-conversation paragraph only appears when the prompt carries related
// conversations.
const DefaultSystemTemplate = `You are a helpful AI assistant engaged in a conversation.
Your primary focus is to provide clear, relevant, and contextual responses to the current conversation.
{%- if related %}

You have access to related conversations from other discussion threads. When relevant:
1. Draw insights from these related conversations to provide more informed answers
2. Make connections between current topics and related discussions
3. Use this additional context to provide more comprehensive responses

However, remember to:
- Stay focused on the current user's question
- Only reference related information when it directly adds value
- Maintain a natural conversation flow
- Be concise and clear in your responses
{%- endif %}`

const relatedTemplate = `Related discussion from conversation {{ block_id|safe }}:
{%- for m in messages %}
{{ m.role }}: {{ m.text|safe }}
{%- endfor %}`

const documentsTemplate = `Answer the question based on the following context from the workspace documents:
{%- for d in documents %}

[{{ d.name|safe }}]
{{ d.text|safe }}
{%- endfor %}`

const (
	referenceHeader = "Reference information from related discussions:\n" +
		"The following are relevant conversations that may provide additional context for your response."
	focusPrompt = "Now, focus on answering the user's current question.\n" +
		"Use the above context only if it helps provide a better response."
)

// Messages shorter than this are left out of related summaries.
const minRelatedMessageLen = 6

// MaxDocumentBytes caps how much of one document is offered as context.
const MaxDocumentBytes = 32 << 10

var contextExtensions = []string{".txt", ".md"}

// IsContextDocument reports whether a document of this name is read as context.
func IsContextDocument(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, e := range contextExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Document is workspace text offered to the model as context.
type Document struct {
	Name string
	Text string
}

// NewDocument trims data to MaxDocumentBytes without splitting a UTF-8 sequence.
func NewDocument(name string, data []byte) Document {
	if len(data) > MaxDocumentBytes {
		data = data[:MaxDocumentBytes]
		// Drop at most one partial rune left by the cut.
		for i := 0; i < utf8.UTFMax-1 && len(data) > 0; i++ {
			if r, size := utf8.DecodeLastRune(data); r != utf8.RuneError || size > 1 {
				break
			}
			data = data[:len(data)-1]
		}
	}
	return Document{Name: name, Text: strings.TrimSpace(string(data))}
}

// Related is a conversation from another block offered as context.
type Related struct {
	BlockID  string
	Messages []model.ChatMessage
}

// Prompt is everything a generator needs to answer one question.
type Prompt struct {
	Question string
	// History is the conversation of the block being answered, oldest first.
	History   []model.ChatMessage
	Related   []Related
	Documents []Document
}

// Role names used in chat completion messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one chat completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// PromptTemplate renders the messages sent to a model.
type PromptTemplate struct {
	system    *pongo2.Template
	related   *pongo2.Template
	documents *pongo2.Template
}

// NewPromptTemplate compiles a system prompt template. An empty source selects
// DefaultSystemTemplate.
func NewPromptTemplate(system string) (*PromptTemplate, error) {
	if system == "" {
		system = DefaultSystemTemplate
	}
	sys, err := pongo2.FromString(system)
	if err != nil {
		return nil, err
	}
	rel, err := pongo2.FromString(relatedTemplate)
	if err != nil {
		return nil, err
	}
	docs, err := pongo2.FromString(documentsTemplate)
	if err != nil {
		return nil, err
	}
	return &PromptTemplate{system: sys, related: rel, documents: docs}, nil
}

// SystemPrompt renders the system prompt for p.
func (t *PromptTemplate) SystemPrompt(p Prompt) (string, error) {
	return t.system.Execute(pongo2.Context{
		"related":   len(p.Related) > 0,
		"documents": len(p.Documents) > 0,
		"question":  p.Question,
	})
}

// FormatRelated summarises a related conversation, skipping near-empty messages.
func (t *PromptTemplate) FormatRelated(r Related) (string, error) {
	var msgs []map[string]string
	for _, m := range r.Messages {
		text := strings.TrimSpace(m.Text)
		if len(text) < minRelatedMessageLen {
			continue
		}
		role := "Assistant"
		if m.IsUser {
			role = "User"
		}
		msgs = append(msgs, map[string]string{"role": role, "text": text})
	}
	return t.related.Execute(pongo2.Context{"block_id": r.BlockID, "messages": msgs})
}

// FormatDocuments renders the document context section. Empty documents are left out.
func (t *PromptTemplate) FormatDocuments(docs []Document) (string, error) {
	var items []map[string]string
	for _, d := range docs {
		if d.Text == "" {
			continue
		}
		items = append(items, map[string]string{"name": d.Name, "text": d.Text})
	}
	return t.documents.Execute(pongo2.Context{"documents": items})
}

// Messages builds the full chat: system prompt, workspace documents, the block's
// history, related conversations, a focusing instruction and finally the question.
func (t *PromptTemplate) Messages(p Prompt) ([]Message, error) {
	sys, err := t.SystemPrompt(p)
	if err != nil {
		return nil, err
	}
	out := []Message{{Role: RoleSystem, Content: sys}}
	if len(p.Documents) > 0 {
		docs, err := t.FormatDocuments(p.Documents)
		if err != nil {
			return nil, err
		}
		out = append(out, Message{Role: RoleSystem, Content: docs})
	}
	for _, m := range p.History {
		role := RoleAssistant
		if m.IsUser {
			role = RoleUser
		}
		out = append(out, Message{Role: role, Content: m.Text})
	}
	if len(p.Related) > 0 {
		out = append(out, Message{Role: RoleSystem, Content: referenceHeader})
		for _, r := range p.Related {
			summary, err := t.FormatRelated(r)
			if err != nil {
				return nil, err
			}
			out = append(out, Message{Role: RoleSystem, Content: summary})
		}
	}
	out = append(out,
		Message{Role: RoleSystem, Content: focusPrompt},
		Message{Role: RoleUser, Content: p.Question},
	)
	return out, nil
}
