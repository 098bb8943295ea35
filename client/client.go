// Package client talks to the four backend operations and writes what they return
// into a store.Store. Every call resolves its address through an endpoint.Registry.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chatflow-dev/chatflow/constants"
	"github.com/chatflow-dev/chatflow/endpoint"
	"github.com/chatflow-dev/chatflow/model"
	"github.com/chatflow-dev/chatflow/store"
	"github.com/chatflow-dev/chatflow/telemetry"
	"github.com/chatflow-dev/chatflow/utils"
	"github.com/google/uuid"
)

// ErrEmptyFlowchart is returned by SaveProject for a project without flowchart data,
// which the backend rejects.
var ErrEmptyFlowchart = errors.New("flowchart data is empty")

// ErrStatus is matched by every StatusError.
var ErrStatus = errors.New("unexpected status")

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Operation endpoint.Operation
	Code      int
	Body      string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Operation, e.Code, e.Body)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

type Client struct {
	registry *endpoint.Registry
	store    *store.Store
	http     *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default traced client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func New(reg *endpoint.Registry, st *store.Store, opts ...Option) *Client {
	c := &Client{
		registry: reg,
		store:    st,
		http:     &http.Client{Timeout: 60 * time.Second, Transport: telemetry.WrapTransport(nil)},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Store returns the store the client writes into.
func (c *Client) Store() *store.Store {
	return c.store
}

// lambdaResponse is the envelope returned by backends that pass the function result
// through unchanged.
type lambdaResponse struct {
	StatusCode *int             `json:"statusCode"`
	Body       *json.RawMessage `json:"body"`
}

// unwrap returns the effective status and body, opening a lambda envelope when the
// response is one. The envelope body is itself a JSON-encoded string.
func unwrap(code int, body []byte) (int, []byte) {
	var env lambdaResponse
	if err := json.Unmarshal(body, &env); err != nil || env.StatusCode == nil || env.Body == nil {
		return code, body
	}
	var inner string
	if err := json.Unmarshal(*env.Body, &inner); err != nil {
		return *env.StatusCode, *env.Body
	}
	return *env.StatusCode, []byte(inner)
}

// call posts payload to op and decodes the response into out (if non-nil).
func (c *Client) call(ctx context.Context, op endpoint.Operation, payload, out any) error {
	url, err := c.registry.Resolve(string(op))
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	reqID, ok := utils.RequestIDFromContext(ctx)
	if !ok {
		reqID = uuid.NewString()
		ctx = utils.WithRequestID(ctx, reqID)
	}
	ctx = utils.WithWorkspace(ctx, c.workspaceID())
	req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	req.Header.Set(constants.HeaderAccept, constants.ContentTypeJSON)
	req.Header.Set(constants.HeaderRequestID, reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		telemetry.ObserveClientCall(string(op), 0, time.Since(start))
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", op, err)
	}
	code, body := unwrap(resp.StatusCode, body)
	telemetry.ObserveClientCall(string(op), code, time.Since(start))
	utils.DebugCtx(ctx, "backend call", "operation", string(op), "status", code)

	if code < 200 || code > 299 {
		return &StatusError{Operation: op, Code: code, Body: string(bytes.TrimSpace(body))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode %s response: %w", op, err)
	}
	return nil
}

func (c *Client) workspaceID() string {
	return c.store.WorkspaceID.Get()
}

// LoadChats fetches every block chat of the current workspace and replaces the chat
// registry with them.
func (c *Client) LoadChats(ctx context.Context) ([]model.BlockChat, error) {
	var chats []model.BlockChat
	req := model.LoaderRequest{WorkspaceID: c.workspaceID(), Type: constants.LoaderTypeChat}
	if err := c.call(ctx, endpoint.Loader, req, &chats); err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []model.BlockChat{}
	}
	if err := c.store.SetBlockChats(chats); err != nil {
		return nil, err
	}
	return chats, nil
}

// LoadWorkspace fetches the project list of the current workspace. The current
// project is left alone.
func (c *Client) LoadWorkspace(ctx context.Context) ([]model.Project, error) {
	var data model.WorkspaceData
	req := model.LoaderRequest{WorkspaceID: c.workspaceID(), Type: constants.LoaderTypeWorkspace}
	if err := c.call(ctx, endpoint.Loader, req, &data); err != nil {
		return nil, err
	}
	if data.Projects == nil {
		data.Projects = []model.Project{}
	}
	if err := c.store.SetProjectList(data.Projects); err != nil {
		return nil, err
	}
	return data.Projects, nil
}

// LoadDocuments fetches the documents of the current workspace.
func (c *Client) LoadDocuments(ctx context.Context) ([]model.Document, error) {
	var docs []model.Document
	req := model.LoaderRequest{WorkspaceID: c.workspaceID(), Type: constants.LoaderTypeDocuments}
	if err := c.call(ctx, endpoint.Loader, req, &docs); err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []model.Document{}
	}
	if err := c.store.SetDocuments(docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// SaveProject stores p in the current workspace and returns it with the id the
// backend assigned. A project without an id is appended to the project list; one with
// an id replaces its entry. If p was the current project, the saved copy becomes
// current.
func (c *Client) SaveProject(ctx context.Context, p model.Project) (model.Project, error) {
	if len(p.FlowchartData) == 0 {
		return model.Project{}, ErrEmptyFlowchart
	}
	req := model.SaveWorkspaceRequest{
		WorkspaceID:   c.workspaceID(),
		ProjectID:     p.ID,
		ProjectName:   p.Name,
		FlowchartData: p.FlowchartData,
	}
	var resp model.SaveWorkspaceResponse
	if err := c.call(ctx, endpoint.SaveWorkspace, req, &resp); err != nil {
		return model.Project{}, err
	}
	saved := p.Clone()
	saved.ID = resp.ProjectID

	var err error
	if p.ID == "" {
		err = c.store.AddProject(saved)
	} else {
		_, err = c.store.ReplaceProject(saved)
	}
	if err != nil {
		return model.Project{}, err
	}
	if cur := c.store.CurrentProject.Get(); cur != nil && cur.ID == p.ID {
		if err := c.store.SetCurrentProject(&saved); err != nil {
			return model.Project{}, err
		}
	}
	return saved, nil
}

// Generate asks a question in the chat of blockID. The question is appended before
// the call and the answer after it; on failure the question stays in the chat. Each
// message takes the next id after the highest one in the block's chat. Related names other blocks whose conversations
// the backend may use as context.
func (c *Client) Generate(ctx context.Context, blockID, query string, related ...string) (string, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	if _, err := c.store.AppendNextMessage(blockID, model.ChatMessage{Text: query, IsUser: true, Timestamp: now}); err != nil {
		return "", err
	}
	req := model.TextGenerationRequest{
		Query:         query,
		WorkspaceID:   c.workspaceID(),
		BlockID:       blockID,
		RelatedBlocks: related,
	}
	var answer string
	if err := c.call(ctx, endpoint.TextGeneration, req, &answer); err != nil {
		return "", err
	}
	reply := model.ChatMessage{Text: answer, Timestamp: time.Now().UTC().Format(time.RFC3339)}
	if _, err := c.store.AppendNextMessage(blockID, reply); err != nil {
		return "", err
	}
	return answer, nil
}

// DeleteBlockChat deletes every conversation of blockID on the backend and drops the
// local chat. It returns the number of conversations the backend removed.
func (c *Client) DeleteBlockChat(ctx context.Context, blockID string) (int, error) {
	req := model.BlockActionRequest{
		ActionType:  constants.BlockActionDelete,
		WorkspaceID: c.workspaceID(),
		BlockID:     blockID,
		BlockType:   constants.BlockTypeConversation,
	}
	var resp model.BlockActionResponse
	if err := c.call(ctx, endpoint.BlockAction, req, &resp); err != nil {
		return 0, err
	}
	c.store.RemoveBlockChat(blockID)
	return resp.DeletedCount, nil
}
