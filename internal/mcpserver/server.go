// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes quire note and render tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/quire/internal/apperr"
	"github.com/starford/quire/internal/engine"
	"github.com/starford/quire/internal/noteservice"
	"github.com/starford/quire/internal/storage"
	"github.com/starford/quire/internal/vault"
)

const contractURI = "quire://engine-contract"

// Server wraps the MCP server with quire tools.
type Server struct {
	mcp    *server.MCPServer
	svc    *noteservice.Service
	vaults *vault.Manager
	root   string
}

// New creates a new MCP server for the vault at root with all tools registered.
func New(svc *noteservice.Service, vaults *vault.Manager, root string) *Server {
	s := &Server{svc: svc, vaults: vaults, root: root}

	s.mcp = server.NewMCPServer(
		"quire",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List every LaTeX and Typst note in the vault, most recently modified first."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read the full source of a note."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative note path (e.g. notes/midterm-notes.tex)")),
	), s.readNote)

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Create a note from the engine boilerplate. The filename is derived "+
			"from the title; read the contract first via get_engine_contract or the "+
			contractURI+" resource."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Human-readable note title")),
		mcp.WithString("engine", mcp.Required(), mcp.Enum("latex", "typst"), mcp.Description("Markup engine")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("save_note",
		mcp.WithDescription("Replace the full source of an existing note. Never creates notes."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative note path")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Complete new note source")),
	), s.saveNote)

	s.mcp.AddTool(mcp.NewTool("resolve_pdf_preview",
		mcp.WithDescription("Return the path of the PDF previously rendered for a note, without rendering."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative note path")),
	), s.resolvePdfPreview)

	s.mcp.AddTool(mcp.NewTool("render_note",
		mcp.WithDescription("Compile a note to PDF with typst, latexmk or pdflatex. "+
			"Compiler errors are returned verbatim."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Vault-relative note path")),
	), s.renderNote)

	s.mcp.AddTool(mcp.NewTool("get_engine_contract",
		mcp.WithDescription("Returns the quire vault and engine contract. "+
			"Call this before creating or editing notes."),
	), s.getEngineContract)

	s.mcp.AddResource(
		mcp.NewResource(contractURI, "Engine Contract",
			mcp.WithResourceDescription("Vault layout, supported engines and render behaviour."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readContractResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

// toolError reports err to the client with its kind as a prefix.
func toolError(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf("[%s] %s", apperr.KindOf(err), err))
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

// notePath resolves the required "path" argument under the vault root.
func (s *Server) notePath(req mcp.CallToolRequest) (string, error) {
	rel, err := req.RequireString("path")
	if err != nil {
		return "", apperr.InvalidInput("%s", err.Error())
	}
	return storage.Resolve(s.root, rel)
}

type noteItem struct {
	Path          string        `json:"path"`
	Title         string        `json:"title"`
	Engine        engine.Engine `json:"engine"`
	UpdatedAtUnix *int64        `json:"updated_at_unix"`
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	notes, err := s.vaults.ListNotes(s.root)
	if err != nil {
		return toolError(err), nil
	}
	items := make([]noteItem, len(notes))
	for i, n := range notes {
		items[i] = noteItem{
			Path:          storage.Rel(s.root, n.Path),
			Title:         n.Title,
			Engine:        n.Engine,
			UpdatedAtUnix: n.UpdatedAtUnix,
		}
	}
	return jsonResult(items), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := s.notePath(req)
	if err != nil {
		return toolError(err), nil
	}
	doc, err := s.svc.ReadNote(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(doc.Content), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("engine")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	eng, err := engine.Parse(name)
	if err != nil {
		return toolError(err), nil
	}

	summary, err := s.svc.CreateNote(ctx, s.root, title, eng)
	if err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", storage.Rel(s.root, summary.Path))), nil
}

func (s *Server) saveNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := s.notePath(req)
	if err != nil {
		return toolError(err), nil
	}
	// Empty content is a valid save, so the argument is only required to be present.
	args := req.GetArguments()
	content, ok := args["content"].(string)
	if !ok {
		return mcp.NewToolResultError("required argument \"content\" not found"), nil
	}
	if err := s.svc.SaveNote(ctx, path, content); err != nil {
		return toolError(err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("saved: %s", storage.Rel(s.root, path))), nil
}

func (s *Server) resolvePdfPreview(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := s.notePath(req)
	if err != nil {
		return toolError(err), nil
	}
	pdf, ok := s.svc.ResolvePdfPreview(path)
	if !ok {
		return mcp.NewToolResultText("no pdf rendered yet"), nil
	}
	return mcp.NewToolResultText(storage.Rel(s.root, pdf)), nil
}

type renderItem struct {
	RunID      string        `json:"run_id"`
	Path       string        `json:"path"`
	PDFPath    string        `json:"pdf_path"`
	Engine     engine.Engine `json:"engine"`
	Tools      []string      `json:"tools"`
	Pages      int           `json:"pages"`
	DurationMS int64         `json:"duration_ms"`
}

func (s *Server) renderNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := s.notePath(req)
	if err != nil {
		return toolError(err), nil
	}
	res, err := s.svc.RenderToPdf(ctx, path)
	if err != nil {
		return toolError(err), nil
	}
	return jsonResult(renderItem{
		RunID:      res.RunID,
		Path:       storage.Rel(s.root, res.NotePath),
		PDFPath:    storage.Rel(s.root, res.PDFPath),
		Engine:     res.Engine,
		Tools:      res.Tools,
		Pages:      res.Pages,
		DurationMS: res.Duration.Milliseconds(),
	}), nil
}

func (s *Server) getEngineContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(EngineContract), nil
}

func (s *Server) readContractResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      contractURI,
			MIMEType: "text/markdown",
			Text:     EngineContract,
		},
	}, nil
}
