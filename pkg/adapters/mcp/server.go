package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/clubdesk/formflow"
	"github.com/clubdesk/formflow/internal/logging"
	"github.com/clubdesk/formflow/pkg/adapters/memory"
	"github.com/clubdesk/formflow/pkg/domain"
	"github.com/clubdesk/formflow/pkg/registry"
	"github.com/clubdesk/formflow/pkg/runner"
	"github.com/clubdesk/formflow/pkg/session"
	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const definitionsURI = "formflow://definitions"

// Response is the result of every session tool.
type Response struct {
	State    *domain.State   `json:"state" jsonschema_description:"The session state; sensitive values are blank"`
	View     domain.StepView `json:"view" jsonschema_description:"The current step with its visible fields"`
	Failures domain.Failures `json:"failures,omitempty" jsonschema_description:"Failures of the latest gate; the step did not change"`
	Terminal bool            `json:"terminal" jsonschema_description:"True once the wizard was submitted"`
}

type startArgs struct {
	WizardID  string `json:"wizard_id"`
	SessionID string `json:"session_id"`
	Values    string `json:"values"`
}

type setFieldArgs struct {
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Value     string `json:"value"`
}

type sessionArgs struct {
	SessionID string `json:"session_id"`
}

// Server exposes wizard sessions as MCP tools.
type Server struct {
	registry  *registry.Registry
	sessions  *session.Manager
	sanitizer runner.Sanitizer
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMaxInputSize limits the size of each submitted text value.
func WithMaxInputSize(size int) Option {
	return func(s *Server) {
		s.sanitizer = runner.Sanitizer{MaxSize: size}
	}
}

// NewServer creates an MCP server for the wizards of reg. A nil session
// manager keeps sessions in memory.
func NewServer(reg *registry.Registry, sessions *session.Manager, opts ...Option) *Server {
	s := &Server{
		registry: reg,
		sessions: sessions,
		mcpServer: server.NewMCPServer("formflow-mcp", strings.TrimSpace(formflow.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	if s.sessions == nil {
		s.sessions = session.NewManager(memory.NewStore(), session.WithLogger(s.logger))
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves MCP over SSE on port until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	sessionID := mcp.WithString("session_id", mcp.Required(), mcp.Description("Session returned by start_wizard"))

	s.mcpServer.AddTool(mcp.NewTool("list_wizards",
		mcp.WithDescription("List the wizard IDs that can be started."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ids, err := s.registry.List(ctx)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(strings.Join(ids, "\n")), nil
	})

	s.mcpServer.AddTool(mcp.NewTool("start_wizard",
		mcp.WithDescription("Start a session of a wizard at its first step."),
		mcp.WithString("wizard_id", mcp.Required(), mcp.Description("Wizard to start")),
		mcp.WithString("session_id", mcp.Description("Session ID to use (generated when omitted)")),
		mcp.WithString("values", mcp.Description("JSON object of initial field values")),
		mcp.WithOutputSchema[Response](),
	), mcp.NewStructuredToolHandler(s.handleStart))

	s.mcpServer.AddTool(mcp.NewTool("set_field",
		mcp.WithDescription("Set one field. The value is parsed as JSON when possible, else taken as text."),
		sessionID,
		mcp.WithString("name", mcp.Required(), mcp.Description("Field name")),
		mcp.WithString("value", mcp.Required(), mcp.Description(`Value, e.g. "Yoga, Pilates", true or {"from":"18:00","to":"20:00"}`)),
		mcp.WithOutputSchema[Response](),
	), mcp.NewStructuredToolHandler(s.handleSetField))

	s.mcpServer.AddTool(mcp.NewTool("next_step",
		mcp.WithDescription("Validate the current step and advance when it passes."),
		sessionID,
		mcp.WithOutputSchema[Response](),
	), mcp.NewStructuredToolHandler(s.handleNext))

	s.mcpServer.AddTool(mcp.NewTool("previous_step",
		mcp.WithDescription("Go back one step. Values are kept."),
		sessionID,
		mcp.WithOutputSchema[Response](),
	), mcp.NewStructuredToolHandler(s.handleBack))

	s.mcpServer.AddTool(mcp.NewTool("submit",
		mcp.WithDescription("Validate the final step and submit the wizard."),
		sessionID,
		mcp.WithOutputSchema[Response](),
	), mcp.NewStructuredToolHandler(s.handleSubmit))

	s.mcpServer.AddTool(mcp.NewTool("get_state",
		mcp.WithDescription("Show the current state of a session."),
		sessionID,
		mcp.WithOutputSchema[Response](),
	), mcp.NewStructuredToolHandler(s.handleGetState))
}

func (s *Server) handleStart(ctx context.Context, request mcp.CallToolRequest, args startArgs) (Response, error) {
	eng, err := s.registry.Get(ctx, args.WizardID)
	if err != nil {
		return Response{}, err
	}

	var values map[string]any
	if args.Values != "" {
		if err := json.Unmarshal([]byte(args.Values), &values); err != nil {
			return Response{}, fmt.Errorf("values must be a JSON object: %w", err)
		}
		if values, err = s.sanitize(values); err != nil {
			return Response{}, err
		}
	}

	id := args.SessionID
	if id == "" {
		id = uuid.NewString()
	}
	created := false
	state, err := s.sessions.LoadOrStart(ctx, id, func(ctx context.Context) (*domain.State, error) {
		created = true
		return eng.Start(ctx, id, values)
	})
	if err != nil {
		return Response{}, err
	}
	if !created {
		return Response{}, fmt.Errorf("session %s already exists", id)
	}
	s.logger.Info("MCP session started", "session_id", id, "wizard_id", args.WizardID)
	return s.respond(eng, state, nil), nil
}

func (s *Server) handleSetField(ctx context.Context, request mcp.CallToolRequest, args setFieldArgs) (Response, error) {
	value, err := s.sanitizeValue(parseValue(args.Value))
	if err != nil {
		return Response{}, err
	}
	return s.update(ctx, args.SessionID, func(ctx context.Context, eng *formflow.Engine, state *domain.State) (*domain.State, domain.Failures, error) {
		next, err := eng.SetField(ctx, state, args.Name, value)
		return next, nil, err
	})
}

func (s *Server) handleNext(ctx context.Context, request mcp.CallToolRequest, args sessionArgs) (Response, error) {
	return s.update(ctx, args.SessionID, func(ctx context.Context, eng *formflow.Engine, state *domain.State) (*domain.State, domain.Failures, error) {
		return eng.Next(ctx, state)
	})
}

func (s *Server) handleBack(ctx context.Context, request mcp.CallToolRequest, args sessionArgs) (Response, error) {
	return s.update(ctx, args.SessionID, func(ctx context.Context, eng *formflow.Engine, state *domain.State) (*domain.State, domain.Failures, error) {
		next, err := eng.Back(ctx, state)
		return next, nil, err
	})
}

func (s *Server) handleGetState(ctx context.Context, request mcp.CallToolRequest, args sessionArgs) (Response, error) {
	return s.update(ctx, args.SessionID, func(ctx context.Context, eng *formflow.Engine, state *domain.State) (*domain.State, domain.Failures, error) {
		next, err := eng.Resume(ctx, state)
		if err != nil || next == state {
			return nil, nil, err
		}
		return next, nil, nil
	})
}

// handleSubmit stores the pending state before delivering so an interrupted
// delivery is visible on the next call. Submitted sessions are removed.
func (s *Server) handleSubmit(ctx context.Context, request mcp.CallToolRequest, args sessionArgs) (Response, error) {
	var (
		eng       *formflow.Engine
		payload   domain.Payload
		failures  domain.Failures
		delivered = func() {}
	)
	pending, err := s.sessions.Update(ctx, args.SessionID, func(ctx context.Context, current *domain.State) (*domain.State, error) {
		e, err := s.registry.Get(ctx, current.WizardID)
		if err != nil {
			return nil, err
		}
		eng = e
		if current, err = s.settle(ctx, eng, current); err != nil {
			return nil, err
		}
		next, p, f, err := eng.BeginSubmit(ctx, current)
		payload, failures = p, f
		if err == nil && len(f) == 0 {
			delivered = s.sessions.MarkDelivering(args.SessionID)
		}
		return next, err
	})
	defer delivered()
	if err != nil {
		return Response{}, err
	}
	if len(failures) > 0 {
		return s.respond(eng, pending, failures), nil
	}

	ctx = context.WithoutCancel(ctx)
	cause := eng.Deliver(ctx, pending, payload)
	done, err := s.sessions.Update(ctx, args.SessionID, func(ctx context.Context, current *domain.State) (*domain.State, error) {
		return eng.CompleteSubmit(ctx, current, cause)
	})
	if err != nil {
		return Response{}, err
	}
	if cause != nil {
		return Response{}, &domain.SubmissionError{SessionID: args.SessionID, Cause: cause}
	}
	if err := s.sessions.Delete(ctx, args.SessionID); err != nil {
		s.logger.Warn("failed to remove submitted session", "session_id", args.SessionID, "err", err)
	}
	return s.respond(eng, done, nil), nil
}

func (s *Server) update(ctx context.Context, sessionID string, op func(context.Context, *formflow.Engine, *domain.State) (*domain.State, domain.Failures, error)) (Response, error) {
	var (
		eng      *formflow.Engine
		failures domain.Failures
	)
	state, err := s.sessions.Update(ctx, sessionID, func(ctx context.Context, current *domain.State) (*domain.State, error) {
		e, err := s.registry.Get(ctx, current.WizardID)
		if err != nil {
			return nil, err
		}
		eng = e
		settled, err := s.settle(ctx, eng, current)
		if err != nil {
			return nil, err
		}
		next, f, err := op(ctx, eng, settled)
		failures = f
		if next == nil && settled != current {
			next = settled
		}
		return next, err
	})
	if err != nil {
		return Response{}, err
	}
	return s.respond(eng, state, failures), nil
}

// settle recovers a pending state left behind by an interrupted delivery.
func (s *Server) settle(ctx context.Context, eng *formflow.Engine, state *domain.State) (*domain.State, error) {
	if !s.sessions.StalePending(state) {
		return state, nil
	}
	return eng.RecoverPending(ctx, state)
}

func (s *Server) respond(eng *formflow.Engine, state *domain.State, failures domain.Failures) Response {
	rich := runner.Respond(eng, eng.Definition().Redact(state), failures)
	return Response{State: rich.State, View: rich.View, Failures: rich.Failures, Terminal: rich.Terminal}
}

func (s *Server) sanitize(values map[string]any) (map[string]any, error) {
	clean, err := s.sanitizer.SanitizeValue(values)
	if err != nil {
		return nil, err
	}
	return clean.(map[string]any), nil
}

func (s *Server) sanitizeValue(v any) (any, error) {
	return s.sanitizer.SanitizeValue(v)
}

// parseValue reads JSON scalars, lists and objects; anything else is text.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	if _, ok := v.(float64); ok {
		// Numeric fields hold text until submission.
		return strings.TrimSpace(raw)
	}
	return v
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(definitionsURI, "Wizard definitions",
		mcp.WithResourceDescription("IDs of the wizards that can be started"),
		mcp.WithMIMEType("application/json"),
	), s.readDefinitions)

	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(definitionsURI+"/{id}", "Wizard definition",
		mcp.WithTemplateDescription("Steps, fields and rules of one wizard"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readDefinition)
}

func (s *Server) readDefinitions(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	ids, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: definitionsURI, MIMEType: "application/json", Text: string(data)},
	}, nil
}

func (s *Server) readDefinition(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id := strings.TrimPrefix(request.Params.URI, definitionsURI+"/")
	def, err := s.registry.Loader().Get(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(def, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{URI: request.Params.URI, MIMEType: "application/json", Text: string(data)},
	}, nil
}
