package model

// Request and response bodies of the four backend operations.

// LoaderRequest asks for one kind of workspace data. Type is "chat", "workspace" or
// "documents"; the backend defaults it to "chat" and WorkspaceID to "1".
type LoaderRequest struct {
	WorkspaceID string `json:"workspace_id,omitempty"`
	Type        string `json:"type,omitempty"`
}

// WorkspaceData is the loader's "workspace" response.
type WorkspaceData struct {
	Projects []Project `json:"projects"`
}

type SaveWorkspaceRequest struct {
	WorkspaceID   string        `json:"workspace_id"`
	ProjectID     string        `json:"project_id,omitempty"`
	ProjectName   string        `json:"project_name,omitempty"`
	FlowchartData FlowchartData `json:"flowchart_data"`
}

type SaveWorkspaceResponse struct {
	Message   string `json:"message"`
	ProjectID string `json:"project_id"`
}

// TextGenerationRequest carries a question. When WorkspaceID and BlockID are set the
// exchange is stored as part of that block's conversation, and RelatedBlocks names
// other blocks whose conversations are offered to the model as context.
type TextGenerationRequest struct {
	Query         string   `json:"query"`
	WorkspaceID   string   `json:"workspace_id,omitempty"`
	BlockID       string   `json:"block_id,omitempty"`
	RelatedBlocks []string `json:"related_blocks,omitempty"`
}

type BlockActionRequest struct {
	ActionType  string `json:"action_type"`
	WorkspaceID string `json:"workspace_id"`
	BlockID     string `json:"block_id"`
	BlockType   string `json:"block_type"`
}

type BlockActionResponse struct {
	Message      string `json:"message"`
	DeletedCount int    `json:"deleted_count"`
}
