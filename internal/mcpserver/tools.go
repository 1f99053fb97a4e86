package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/luoqiao6/pdf-to-typst-mcp/internal/interpreter"
	"github.com/luoqiao6/pdf-to-typst-mcp/internal/session"
)

func (s *Server) registerTools() {
	s.registerStartConversion()
	s.registerAnalyzeStructure()
	s.registerGetPageSnapshot()
	s.registerSubmitPageMarkup()
	s.registerPreview()
	s.registerFinalize()
	s.registerListSessions()
}

// pageCounts is the per-page summary returned by start_pdf_conversion.
type pageCounts struct {
	Page   int  `json:"page"`
	Runs   int  `json:"runs"`
	Tables int  `json:"tables"`
	Images int  `json:"images"`
	Failed bool `json:"failed,omitempty"`
}

type startResponse struct {
	SessionID  string       `json:"session_id"`
	TotalPages int          `json:"total_pages"`
	Status     string       `json:"status"`
	Pages      []pageCounts `json:"pages"`
}

func (s *Server) registerStartConversion() {
	tool := &mcp.Tool{
		Name: "start_pdf_conversion",
		Description: "Start a conversion session: validate the PDF, extract and " +
			"reconcile all pages, and return the session summary.",
		InputSchema: inputSchema(map[string]any{
			"pdf_path": map[string]any{"type": "string", "description": "Path to the source PDF"},
		}, []string{"pdf_path"}),
	}

	s.addTool(tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var req struct {
			PDFPath string `json:"pdf_path"`
		}
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		if req.PDFPath == "" {
			return nil, fmt.Errorf("pdf_path is required")
		}

		sess, err := s.pipeline.Start(ctx, req.PDFPath)
		if err != nil {
			return nil, err
		}

		resp := startResponse{
			SessionID:  sess.ID,
			TotalPages: sess.Meta.Pages,
			Status:     string(sess.Status()),
		}
		for _, rec := range sess.Records() {
			resp.Pages = append(resp.Pages, pageCounts{
				Page:   rec.Page,
				Runs:   len(rec.Runs),
				Tables: len(rec.Tables),
				Images: len(rec.Images),
				Failed: rec.Failed,
			})
		}
		return resp, nil
	})
}

func (s *Server) registerAnalyzeStructure() {
	tool := &mcp.Tool{
		Name:        "analyze_pdf_structure",
		Description: "Analyze a PDF's structure without converting: metadata, page count, per-page span/table/image counts, modal font size.",
		InputSchema: inputSchema(map[string]any{
			"pdf_path": map[string]any{"type": "string", "description": "Path to the source PDF"},
		}, []string{"pdf_path"}),
	}

	s.addTool(tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var req struct {
			PDFPath string `json:"pdf_path"`
		}
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		if req.PDFPath == "" {
			return nil, fmt.Errorf("pdf_path is required")
		}
		return s.pipeline.Info(ctx, req.PDFPath)
	})
}

func (s *Server) registerGetPageSnapshot() {
	tool := &mcp.Tool{
		Name:        "get_page_snapshot",
		Description: "Get the read-only extracted content of one page: positioned runs, tables, and image placements.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string", "description": "Conversion session id"},
			"page":       map[string]any{"type": "integer", "description": "1-indexed page number"},
		}, []string{"session_id", "page"}),
	}

	s.addTool(tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var req struct {
			SessionID string `json:"session_id"`
			Page      int    `json:"page"`
		}
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		return s.pageSnapshot(req.SessionID, req.Page)
	})
}

// pageSnapshot builds the snapshot for one session page.
func (s *Server) pageSnapshot(sessionID string, page int) (interpreter.Snapshot, error) {
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return interpreter.Snapshot{}, err
	}
	rec := sess.Record(page)
	if rec == nil {
		return interpreter.Snapshot{}, fmt.Errorf("session %s has no page %d", sessionID, page)
	}
	image, _ := sess.PageImage(page)
	return interpreter.SnapshotFromRecord(sess.ID, rec, sess.Meta.Pages, image), nil
}

func (s *Server) registerSubmitPageMarkup() {
	tool := &mcp.Tool{
		Name:        "submit_page_markup",
		Description: "Store externally produced Typst markup for one page of a session. Submitted fragments win over the core rendering at finalize.",
		InputSchema: inputSchema(map[string]any{
			"session_id": map[string]any{"type": "string", "description": "Conversion session id"},
			"page":       map[string]any{"type": "integer", "description": "1-indexed page number"},
			"markup":     map[string]any{"type": "string", "description": "Typst markup for the page"},
		}, []string{"session_id", "page", "markup"}),
	}

	s.addTool(tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var req struct {
			SessionID string `json:"session_id"`
			Page      int    `json:"page"`
			Markup    string `json:"markup"`
		}
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		sess, err := s.sessions.Get(req.SessionID)
		if err != nil {
			return nil, err
		}
		if req.Page < 1 || req.Page > sess.Meta.Pages {
			return nil, fmt.Errorf("page %d out of range 1..%d", req.Page, sess.Meta.Pages)
		}
		if req.Markup == "" {
			return nil, fmt.Errorf("markup is required")
		}

		sess.SetFragment(req.Page, req.Markup)
		if err := s.sessions.PersistPage(sess, req.Page); err != nil {
			s.logger.Warn("persist fragment", "session", sess.ID, "page", req.Page, "error", err)
		}
		return map[string]any{
			"session_id": sess.ID,
			"page":       req.Page,
			"fragments":  sess.Snapshot().Fragments,
		}, nil
	})
}

func (s *Server) registerPreview() {
	tool := &mcp.Tool{
		Name:        "preview_typst_output",
		Description: "Convert the first pages of a PDF and return the core-rendered Typst markup.",
		InputSchema: inputSchema(map[string]any{
			"pdf_path":  map[string]any{"type": "string", "description": "Path to the source PDF"},
			"max_pages": map[string]any{"type": "integer", "description": "Pages to preview (default 3)"},
		}, []string{"pdf_path"}),
	}

	s.addTool(tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var req struct {
			PDFPath  string `json:"pdf_path"`
			MaxPages int    `json:"max_pages"`
		}
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}
		if req.PDFPath == "" {
			return nil, fmt.Errorf("pdf_path is required")
		}
		if req.MaxPages < 1 {
			req.MaxPages = 3
		}

		res, err := s.pipeline.Preview(ctx, req.PDFPath, req.MaxPages)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"markup":       res.Markup,
			"pages":        res.PageCount,
			"failed_pages": res.FailedPages,
		}, nil
	})
}

func (s *Server) registerFinalize() {
	tool := &mcp.Tool{
		Name: "finalize_conversion",
		Description: "Assemble the session into the final Typst document and write it. " +
			"Submitted fragments win page by page; typst_content replaces assembly entirely.",
		InputSchema: inputSchema(map[string]any{
			"session_id":    map[string]any{"type": "string", "description": "Conversion session id"},
			"typst_content": map[string]any{"type": "string", "description": "Full document content overriding assembly"},
			"output_path":   map[string]any{"type": "string", "description": "Output .typ path (default: next to the PDF)"},
		}, []string{"session_id"}),
	}

	s.addTool(tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		var req struct {
			SessionID    string `json:"session_id"`
			TypstContent string `json:"typst_content"`
			OutputPath   string `json:"output_path"`
		}
		if err := decodeArgs(args, &req); err != nil {
			return nil, err
		}

		sess, err := s.sessions.Get(req.SessionID)
		if err != nil {
			return nil, err
		}
		res, err := s.pipeline.Finalize(ctx, sess, req.TypstContent, req.OutputPath)
		if err != nil {
			return nil, err
		}
		return map[string]any{
			"session_id":  res.SessionID,
			"output_path": res.OutputPath,
			"assets":      res.AssetCount,
			"fragments":   res.Fragments,
			"status":      string(sess.Status()),
		}, nil
	})
}

func (s *Server) registerListSessions() {
	tool := &mcp.Tool{
		Name:        "list_active_sessions",
		Description: "List all conversion sessions with their statuses.",
		InputSchema: inputSchema(map[string]any{}, nil),
	}

	s.addTool(tool, func(ctx context.Context, args json.RawMessage) (any, error) {
		list := s.sessions.List()
		if list == nil {
			list = []session.Snapshot{}
		}
		return map[string]any{"sessions": list, "count": len(list)}, nil
	})
}
