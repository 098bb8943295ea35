package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/chatflow-dev/chatflow/blob"
	"github.com/chatflow-dev/chatflow/constants"
	"github.com/chatflow-dev/chatflow/endpoint"
	"github.com/chatflow-dev/chatflow/generate"
	"github.com/chatflow-dev/chatflow/model"
	"github.com/chatflow-dev/chatflow/storage"
	"github.com/chatflow-dev/chatflow/telemetry"
	"github.com/chatflow-dev/chatflow/utils"
	"github.com/google/uuid"
)

// Routes maps each backend operation to the path it is served at.
var Routes = map[endpoint.Operation]string{
	endpoint.TextGeneration: constants.RouteTextGeneration,
	endpoint.Loader:         constants.RouteLoader,
	endpoint.SaveWorkspace:  constants.RouteSaveWorkspace,
	endpoint.BlockAction:    constants.RouteBlockAction,
}

// LocalAddresses returns the endpoint addresses of a server reachable at baseURL.
func LocalAddresses(baseURL string) map[endpoint.Operation]string {
	base := strings.TrimSuffix(baseURL, "/")
	out := make(map[endpoint.Operation]string, len(Routes))
	for op, route := range Routes {
		out[op] = base + route
	}
	return out
}

// Deps are the backends a Server answers from. Nil fields fall back to in-memory
// storage, the echo generator and no documents.
type Deps struct {
	Storage   storage.Storage
	Blobs     blob.BlobStore
	Generator generate.Generator
}

// Server implements the four backend operations over HTTP.
type Server struct {
	storage   storage.Storage
	blobs     blob.BlobStore
	generator generate.Generator
}

func NewServer(deps Deps) *Server {
	s := &Server{storage: deps.Storage, blobs: deps.Blobs, generator: deps.Generator}
	if s.storage == nil {
		s.storage = storage.NewMemoryStorage()
	}
	if s.generator == nil {
		s.generator = generate.NewEchoGenerator()
	}
	return s
}

// Handler serves every operation plus health and metrics.
func (s *Server) Handler() http.Handler {
	return s.Mux(endpoint.Operations())
}

// Mux serves only the given operations plus health and metrics.
func (s *Server) Mux(ops []endpoint.Operation) *http.ServeMux {
	mux := http.NewServeMux()
	handlers := map[endpoint.Operation]http.HandlerFunc{
		endpoint.TextGeneration: s.textGenerationHandler,
		endpoint.Loader:         s.loaderHandler,
		endpoint.SaveWorkspace:  s.saveWorkspaceHandler,
		endpoint.BlockAction:    s.blockActionHandler,
	}
	for _, op := range ops {
		h, ok := handlers[op]
		if !ok {
			continue
		}
		route := Routes[op]
		mux.Handle(route, withCORS(withRequestID(telemetry.WrapHandler(string(op), postOnly(h)))))
	}
	mux.HandleFunc(constants.RouteHealth, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
		w.Write([]byte(`{"status":"healthy"}`))
	})
	mux.Handle(constants.RouteMetrics, telemetry.MetricsHandler())
	return mux
}

// StartServer serves h on addr until ctx is cancelled.
func StartServer(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		utils.Info("chatflow backend listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// withCORS sets the headers the hosted functions return and answers preflight
// requests.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(constants.HeaderAllowOrigin, "*")
		w.Header().Set(constants.HeaderAllowCredentials, "true")
		w.Header().Set(constants.HeaderAllowMethods, "POST, OPTIONS")
		w.Header().Set(constants.HeaderAllowHeaders, "Content-Type, Authorization, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(constants.HeaderRequestID)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(constants.HeaderRequestID, reqID)
		next.ServeHTTP(w, r.WithContext(utils.WithRequestID(r.Context(), reqID)))
	})
}

func postOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			utils.WriteHTTPError(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		next(w, r)
	}
}

// decodeBody reads a JSON request. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	utils.ErrorCtx(r.Context(), msg, "error", err)
	utils.WriteHTTPError(w, fmt.Sprintf("%s: %v", msg, err), http.StatusInternalServerError)
}

// POST /loader { workspace_id, type }
func (s *Server) loaderHandler(w http.ResponseWriter, r *http.Request) {
	var req model.LoaderRequest
	if err := decodeBody(r, &req); err != nil {
		utils.WriteHTTPError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.WorkspaceID == "" {
		req.WorkspaceID = constants.DefaultWorkspaceID
	}
	if req.Type == "" {
		req.Type = constants.LoaderTypeChat
	}
	r = r.WithContext(utils.WithWorkspace(r.Context(), req.WorkspaceID))
	ctx := r.Context()
	utils.DebugCtx(ctx, "loader request", "type", req.Type)

	switch req.Type {
	case constants.LoaderTypeChat:
		chats, err := s.storage.ListConversations(ctx, req.WorkspaceID)
		if err != nil {
			internalError(w, r, "Error loading data", err)
			return
		}
		utils.WriteHTTPJSON(w, chats)
	case constants.LoaderTypeWorkspace:
		projects, err := s.storage.ListProjects(ctx, req.WorkspaceID)
		if err != nil {
			internalError(w, r, "Error loading data", err)
			return
		}
		utils.WriteHTTPJSON(w, model.WorkspaceData{Projects: projects})
	case constants.LoaderTypeDocuments:
		docs := []model.Document{}
		if s.blobs != nil {
			var err error
			docs, err = s.blobs.List(ctx, blob.WorkspacePrefix(req.WorkspaceID))
			if err != nil {
				internalError(w, r, "Error loading data", err)
				return
			}
		}
		utils.WriteHTTPJSON(w, docs)
	default:
		utils.WriteHTTPError(w, fmt.Sprintf("Unsupported request type: %s", req.Type), http.StatusBadRequest)
	}
}

// POST /save-workspace { workspace_id, project_id?, project_name?, flowchart_data }
func (s *Server) saveWorkspaceHandler(w http.ResponseWriter, r *http.Request) {
	var req model.SaveWorkspaceRequest
	if err := decodeBody(r, &req); err != nil {
		utils.WriteHTTPError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.WorkspaceID == "" || len(req.FlowchartData) == 0 {
		utils.WriteHTTPError(w, "workspace_id and flowchart_data are required", http.StatusBadRequest)
		return
	}
	r = r.WithContext(utils.WithWorkspace(r.Context(), req.WorkspaceID))
	ctx := r.Context()
	if req.ProjectID == "" {
		id, err := s.storage.NextProjectID(ctx, req.WorkspaceID)
		if err != nil {
			internalError(w, r, "Error saving project", err)
			return
		}
		req.ProjectID = id
	}
	project := model.Project{ID: req.ProjectID, Name: req.ProjectName, FlowchartData: req.FlowchartData}
	if err := s.storage.SaveProject(ctx, req.WorkspaceID, project); err != nil {
		internalError(w, r, "Error saving project", err)
		return
	}
	utils.InfoCtx(ctx, "project saved", "project_id", req.ProjectID)
	utils.WriteHTTPJSON(w, model.SaveWorkspaceResponse{Message: constants.MsgProjectSaved, ProjectID: req.ProjectID})
}

// POST /text-generation { query, workspace_id?, block_id?, related_blocks? }
func (s *Server) textGenerationHandler(w http.ResponseWriter, r *http.Request) {
	var req model.TextGenerationRequest
	if err := decodeBody(r, &req); err != nil {
		utils.WriteHTTPError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		utils.WriteHTTPError(w, "Query is required", http.StatusBadRequest)
		return
	}
	if req.WorkspaceID != "" {
		r = r.WithContext(utils.WithWorkspace(r.Context(), req.WorkspaceID))
	}
	ctx := r.Context()
	persist := req.WorkspaceID != "" && req.BlockID != ""

	prompt := generate.Prompt{Question: req.Query}
	nextConversation := 1
	if persist {
		chats, err := s.storage.ListConversations(ctx, req.WorkspaceID)
		if err != nil {
			internalError(w, r, "Error loading conversation", err)
			return
		}
		for _, c := range chats {
			if c.BlockID == req.BlockID {
				prompt.History = c.Messages
				for _, m := range c.Messages {
					nextConversation = max(nextConversation, m.ID+1)
				}
				continue
			}
			for _, related := range req.RelatedBlocks {
				if related == c.BlockID {
					prompt.Related = append(prompt.Related, generate.Related{BlockID: c.BlockID, Messages: c.Messages})
				}
			}
		}
	}
	if req.WorkspaceID != "" {
		docs, err := s.documentContext(ctx, req.WorkspaceID)
		if err != nil {
			internalError(w, r, "Error loading documents", err)
			return
		}
		prompt.Documents = docs
	}

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		internalError(w, r, "Error generating answer", err)
		return
	}

	if persist {
		now := time.Now().UTC().Format(time.RFC3339)
		exchange := []model.ChatMessage{
			{Text: req.Query, IsUser: true, Timestamp: now},
			{Text: answer, IsUser: false, Timestamp: now},
		}
		if err := s.storage.SaveConversation(ctx, req.WorkspaceID, req.BlockID, nextConversation, exchange); err != nil {
			internalError(w, r, "Error saving conversation", err)
			return
		}
	}
	utils.WriteHTTPJSON(w, answer)
}

// documentContext reads the workspace's text documents for the prompt.
func (s *Server) documentContext(ctx context.Context, workspaceID string) ([]generate.Document, error) {
	if s.blobs == nil {
		return nil, nil
	}
	listed, err := s.blobs.List(ctx, blob.WorkspacePrefix(workspaceID))
	if err != nil {
		return nil, err
	}
	var docs []generate.Document
	for _, d := range listed {
		if !generate.IsContextDocument(d.Name) {
			continue
		}
		data, err := s.blobs.Get(ctx, d.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", d.Name, err)
		}
		docs = append(docs, generate.NewDocument(d.Name, data))
	}
	return docs, nil
}

// POST /block-action { action_type, workspace_id, block_id, block_type }
func (s *Server) blockActionHandler(w http.ResponseWriter, r *http.Request) {
	var req model.BlockActionRequest
	if err := decodeBody(r, &req); err != nil {
		utils.WriteHTTPError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ActionType == "" || req.WorkspaceID == "" || req.BlockID == "" || req.BlockType == "" {
		utils.WriteHTTPError(w, "action_type, workspace_id, block_id and block_type are required", http.StatusBadRequest)
		return
	}
	if req.BlockType != constants.BlockTypeConversation {
		utils.WriteHTTPError(w, fmt.Sprintf("Unsupported block type: %s", req.BlockType), http.StatusBadRequest)
		return
	}
	if req.ActionType != constants.BlockActionDelete {
		utils.WriteHTTPError(w, fmt.Sprintf("Unknown action type: %s", req.ActionType), http.StatusBadRequest)
		return
	}
	r = r.WithContext(utils.WithWorkspace(r.Context(), req.WorkspaceID))
	n, err := s.storage.DeleteConversations(r.Context(), req.WorkspaceID, req.BlockID)
	if err != nil {
		internalError(w, r, "Error deleting conversations", err)
		return
	}
	utils.InfoCtx(r.Context(), "conversations deleted", "block_id", req.BlockID, "count", n)
	utils.WriteHTTPJSON(w, model.BlockActionResponse{
		Message:      fmt.Sprintf(constants.MsgConversationDeleted, req.BlockID),
		DeletedCount: n,
	})
}
