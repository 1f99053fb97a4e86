package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func (s *Server) registerResources() {
	s.srv.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "pdf-page://{session_id}/page-{n}/image",
		Name:        "page-image",
		Description: "Rendered PNG snapshot of one page",
		MIMEType:    "image/png",
	}, s.readPageImage)

	s.srv.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "pdf-page://{session_id}/page-{n}/text",
		Name:        "page-text",
		Description: "Extracted page content as snapshot JSON",
		MIMEType:    "application/json",
	}, s.readPageText)

	s.srv.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: "pdf-doc://{session_id}/metadata",
		Name:        "document-metadata",
		Description: "Document metadata and session status",
		MIMEType:    "application/json",
	}, s.readDocMetadata)
}

// parsePageURI splits pdf-page://{session}/page-{n}/{leaf}.
func parsePageURI(uri string) (sessionID string, page int, leaf string, err error) {
	rest, ok := strings.CutPrefix(uri, "pdf-page://")
	if !ok {
		return "", 0, "", fmt.Errorf("unsupported resource uri %q", uri)
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || !strings.HasPrefix(parts[1], "page-") {
		return "", 0, "", fmt.Errorf("malformed page resource uri %q", uri)
	}
	page, err = strconv.Atoi(strings.TrimPrefix(parts[1], "page-"))
	if err != nil || page < 1 {
		return "", 0, "", fmt.Errorf("bad page number in %q", uri)
	}
	return parts[0], page, parts[2], nil
}

func (s *Server) readPageImage(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	sessionID, page, _, err := parsePageURI(req.Params.URI)
	if err != nil {
		return nil, err
	}
	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	data, ok := sess.PageImage(page)
	if !ok {
		return nil, fmt.Errorf("session %s has no snapshot image for page %d", sessionID, page)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: req.Params.URI, MIMEType: "image/png", Blob: data},
		},
	}, nil
}

func (s *Server) readPageText(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	sessionID, page, _, err := parsePageURI(req.Params.URI)
	if err != nil {
		return nil, err
	}
	snap, err := s.pageSnapshot(sessionID, page)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("marshal snapshot: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}

func (s *Server) readDocMetadata(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	rest, ok := strings.CutPrefix(req.Params.URI, "pdf-doc://")
	if !ok || !strings.HasSuffix(rest, "/metadata") {
		return nil, fmt.Errorf("unsupported resource uri %q", req.Params.URI)
	}
	sessionID := strings.TrimSuffix(rest, "/metadata")

	sess, err := s.sessions.Get(sessionID)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(sess.Snapshot())
	if err != nil {
		return nil, fmt.Errorf("marshal session: %w", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: req.Params.URI, MIMEType: "application/json", Text: string(data)},
		},
	}, nil
}
