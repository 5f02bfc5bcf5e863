// Package lsp serves a collected annotation tree to editors over the
// language server protocol. The tree is read-only: documents are never
// re-indexed, so the server answers position queries and publishes the
// diagnostics of every known file once the client is initialized.
package lsp

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"github.com/walteh/annotree/pkg/annotation"
	"github.com/walteh/annotree/pkg/completion"
	"github.com/walteh/annotree/pkg/diagnostic"
	"github.com/walteh/annotree/pkg/hover"
	"github.com/walteh/annotree/pkg/location"
	"github.com/walteh/annotree/pkg/navigate"
	"github.com/walteh/annotree/pkg/position"
	"github.com/walteh/annotree/pkg/semtok"
)

// Name is reported in the initialize result.
const Name = "annotree"

var ErrNotInitialized = jsonrpc2.NewError(jsonrpc2.ServerNotInitialized, "server not initialized")

// Server represents an LSP server instance
type Server struct {
	tree  *annotation.Tree
	files *location.FileTable

	id      string
	version string

	mu          sync.Mutex
	root        string
	initialized bool
	shutdown    bool
	exited      bool
	conn        jsonrpc2.Conn
}

// NewServer serves tree. Relative paths in files resolve against root; an
// empty root is taken from the client's initialize request.
func NewServer(tree *annotation.Tree, files *location.FileTable, root, version string) *Server {
	return &Server{
		tree:    tree,
		files:   files,
		root:    root,
		version: version,
		id:      uuid.NewString(),
	}
}

func (me *Server) mapper() position.Mapper {
	me.mu.Lock()
	defer me.mu.Unlock()
	return position.Mapper{Files: me.files, Root: me.root}
}

// Serve answers requests read from rwc until the client exits, the stream
// closes or ctx is cancelled.
func (me *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))

	me.mu.Lock()
	me.conn = conn
	me.mu.Unlock()

	zerolog.Ctx(ctx).Info().Str("server_id", me.id).Int("files", me.files.Len()).Int("facts", me.tree.Len()).Msg("serving")

	conn.Go(ctx, protocol.Handlers(me.handle))

	select {
	case <-ctx.Done():
		conn.Close()
		<-conn.Done()
		return ctx.Err()
	case <-conn.Done():
	}

	me.mu.Lock()
	exited := me.exited
	me.mu.Unlock()
	if exited {
		return nil
	}

	if err := conn.Err(); err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrClosedPipe) {
		return errors.Errorf("connection closed: %w", err)
	}
	return nil
}

func (me *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	zerolog.Ctx(ctx).Debug().Str("rpc_method", req.Method()).RawJSON("rpc_params", params(req)).Msg("client request")

	switch req.Method() {
	case protocol.MethodInitialize:
		return me.initialize(ctx, reply, req)
	case protocol.MethodExit:
		me.mu.Lock()
		me.exited = true
		conn := me.conn
		me.mu.Unlock()
		err := reply(ctx, nil, nil)
		if conn != nil {
			conn.Close()
		}
		return err
	}

	me.mu.Lock()
	ready, stopped := me.initialized, me.shutdown
	me.mu.Unlock()
	if !ready {
		return reply(ctx, nil, ErrNotInitialized)
	}
	if stopped && req.Method() != protocol.MethodShutdown {
		return reply(ctx, nil, jsonrpc2.NewError(jsonrpc2.InvalidRequest, "server is shutting down"))
	}

	switch req.Method() {
	case protocol.MethodInitialized:
		me.publishDiagnostics(ctx)
		return reply(ctx, nil, nil)
	case protocol.MethodShutdown:
		me.mu.Lock()
		me.shutdown = true
		me.mu.Unlock()
		return reply(ctx, nil, nil)
	case protocol.MethodTextDocumentHover:
		return handlePosition(ctx, reply, req, me, func(loc location.Location, _ protocol.HoverParams) any {
			return hover.BuildHover(ctx, me.tree, me.files, loc).ToProtocol()
		})
	case protocol.MethodTextDocumentDefinition:
		return handlePosition(ctx, reply, req, me, func(loc location.Location, _ protocol.DefinitionParams) any {
			return navigate.Definition(me.tree, me.mapper(), loc)
		})
	case protocol.MethodTextDocumentReferences:
		return handlePosition(ctx, reply, req, me, func(loc location.Location, p protocol.ReferenceParams) any {
			return navigate.References(me.tree, me.mapper(), loc, p.Context.IncludeDeclaration)
		})
	case protocol.MethodTextDocumentCompletion:
		return handlePosition(ctx, reply, req, me, func(loc location.Location, _ protocol.CompletionParams) any {
			items := completion.Items(completion.ContextAt(ctx, me.tree, loc))
			if items == nil {
				items = []protocol.CompletionItem{}
			}
			return &protocol.CompletionList{Items: items}
		})
	case protocol.MethodTextDocumentDocumentLink:
		return handleDocument(ctx, reply, req, me, func(file location.FileID, _ protocol.DocumentLinkParams) any {
			return navigate.DocumentLinks(me.tree, me.mapper(), file)
		})
	case protocol.MethodSemanticTokensFull:
		return handleDocument(ctx, reply, req, me, func(file location.FileID, _ protocol.SemanticTokensParams) any {
			return semtok.Full(me.tree, file)
		})
	}

	return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
}

// semanticTokensOptions carries the legend, which protocol.SemanticTokensOptions lacks.
type semanticTokensOptions struct {
	Legend protocol.SemanticTokensLegend `json:"legend"`
	Full   bool                          `json:"full"`
}

func (me *Server) initialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var p protocol.InitializeParams
	if err := json.Unmarshal(req.Params(), &p); err != nil {
		return reply(ctx, nil, errors.Errorf("%w: %s", jsonrpc2.ErrInvalidParams, err))
	}

	me.mu.Lock()
	if me.root == "" && p.RootURI != "" {
		me.root = p.RootURI.Filename()
	}
	me.initialized = true
	root := me.root
	me.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Str("root", root).Msg("initializing server")

	return reply(ctx, &protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncKindNone,
			HoverProvider:    true,
			CompletionProvider: &protocol.CompletionOptions{
				TriggerCharacters: []string{".", "/", ":"},
			},
			DefinitionProvider:   true,
			ReferencesProvider:   true,
			DocumentLinkProvider: &protocol.DocumentLinkOptions{},
			SemanticTokensProvider: semanticTokensOptions{
				Legend: semtok.Legend(),
				Full:   true,
			},
		},
		ServerInfo: &protocol.ServerInfo{Name: Name, Version: me.version},
	}, nil)
}

func (me *Server) publishDiagnostics(ctx context.Context) {
	me.mu.Lock()
	conn := me.conn
	me.mu.Unlock()
	if conn == nil {
		return
	}

	for _, p := range diagnostic.Generate(ctx, me.tree).Publish(me.mapper()) {
		if err := conn.Notify(ctx, protocol.MethodTextDocumentPublishDiagnostics, p); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("uri", string(p.URI)).Msg("publishing diagnostics")
			return
		}
	}
}

type positionParams interface {
	protocol.HoverParams | protocol.DefinitionParams | protocol.ReferenceParams | protocol.CompletionParams
}

// handlePosition decodes a text document position request and answers it at
// the matching location. Documents outside the tree get a null result.
func handlePosition[P positionParams](ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request, me *Server, answer func(location.Location, P) any) error {
	var p P
	if err := json.Unmarshal(req.Params(), &p); err != nil {
		return reply(ctx, nil, errors.Errorf("%w: %s", jsonrpc2.ErrInvalidParams, err))
	}

	var pos protocol.TextDocumentPositionParams
	switch p := any(p).(type) {
	case protocol.HoverParams:
		pos = p.TextDocumentPositionParams
	case protocol.DefinitionParams:
		pos = p.TextDocumentPositionParams
	case protocol.ReferenceParams:
		pos = p.TextDocumentPositionParams
	case protocol.CompletionParams:
		pos = p.TextDocumentPositionParams
	}

	file, ok := me.mapper().File(pos.TextDocument.URI)
	if !ok {
		return reply(ctx, nil, nil)
	}
	loc, err := position.FromProtocol(file, pos.Position)
	if err != nil {
		return reply(ctx, nil, errors.Errorf("%w: %s", jsonrpc2.ErrInvalidParams, err))
	}
	return reply(ctx, answer(loc, p), nil)
}

type documentParams interface {
	protocol.DocumentLinkParams | protocol.SemanticTokensParams
}

func handleDocument[P documentParams](ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request, me *Server, answer func(location.FileID, P) any) error {
	var p P
	if err := json.Unmarshal(req.Params(), &p); err != nil {
		return reply(ctx, nil, errors.Errorf("%w: %s", jsonrpc2.ErrInvalidParams, err))
	}

	var doc protocol.TextDocumentIdentifier
	switch p := any(p).(type) {
	case protocol.DocumentLinkParams:
		doc = p.TextDocument
	case protocol.SemanticTokensParams:
		doc = p.TextDocument
	}

	file, ok := me.mapper().File(doc.URI)
	if !ok {
		return reply(ctx, nil, nil)
	}
	return reply(ctx, answer(file, p), nil)
}

func params(req jsonrpc2.Request) json.RawMessage {
	if p := req.Params(); len(p) > 0 {
		return p
	}
	return json.RawMessage("null")
}
