package model

import "maps"

// Document is a file loaded into the workspace. StorageKey addresses its bytes in the
// blob store.
type Document struct {
	Name       string `json:"name" yaml:"name"`
	StorageKey string `json:"storageKey" yaml:"storageKey"`
}

// FlowchartData is the graph blob owned by the flowchart renderer. Nothing in this
// module looks inside it.
type FlowchartData = map[string]any

type Project struct {
	ID            string        `json:"id" yaml:"id"`
	Name          string        `json:"name,omitempty" yaml:"name,omitempty"`
	FlowchartData FlowchartData `json:"flowchartData,omitempty" yaml:"flowchartData,omitempty"`
}

type ChatMessage struct {
	ID        int    `json:"id" yaml:"id"`
	Text      string `json:"text" yaml:"text"`
	IsUser    bool   `json:"isUser" yaml:"isUser"`
	Timestamp string `json:"timestamp,omitempty" yaml:"timestamp,omitempty"`
}

// BlockChat is the conversation attached to one flowchart block.
type BlockChat struct {
	BlockID  string        `json:"blockId" yaml:"blockId"`
	Messages []ChatMessage `json:"messages" yaml:"messages"`
}

// DocumentNames returns the names of docs in order.
func DocumentNames(docs []Document) []string {
	names := make([]string, len(docs))
	for i, d := range docs {
		names[i] = d.Name
	}
	return names
}

// CloneFlowchart deep-copies maps and slices inside a flowchart blob. Scalars are
// shared, which is safe since they are immutable.
func CloneFlowchart(data FlowchartData) FlowchartData {
	if data == nil {
		return nil
	}
	out := make(FlowchartData, len(data))
	for k, v := range data {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return CloneFlowchart(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case map[string]string:
		return maps.Clone(x)
	case []string:
		return append([]string(nil), x...)
	default:
		return v
	}
}

// Clone returns a copy of p that shares no mutable state with it.
func (p Project) Clone() Project {
	p.FlowchartData = CloneFlowchart(p.FlowchartData)
	return p
}

// CloneProject copies a nullable project reference.
func CloneProject(p *Project) *Project {
	if p == nil {
		return nil
	}
	c := p.Clone()
	return &c
}

// CloneProjects copies a project list element by element.
func CloneProjects(list []Project) []Project {
	if list == nil {
		return nil
	}
	out := make([]Project, len(list))
	for i, p := range list {
		out[i] = p.Clone()
	}
	return out
}

// Clone returns a copy of c with its own message slice.
func (c BlockChat) Clone() BlockChat {
	c.Messages = append([]ChatMessage(nil), c.Messages...)
	return c
}

// CloneBlockChats copies a chat registry.
func CloneBlockChats(chats []BlockChat) []BlockChat {
	if chats == nil {
		return nil
	}
	out := make([]BlockChat, len(chats))
	for i, c := range chats {
		out[i] = c.Clone()
	}
	return out
}
