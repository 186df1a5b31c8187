package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/felixgeelhaar/mcp-go"
)

// SchemaVersion is the current MCP tool schema version (semver).
const SchemaVersion = "1.0.0"

type schemaResponse struct {
	SchemaVersion string `json:"schema_version"`
	ServerVersion string `json:"server_version"`
}

func (s *Server) registerSchemaResource() {
	s.mcpServer.Resource("shiplift://schema").
		Name("shiplift://schema").
		Description("MCP tool schema version").
		MimeType("application/json").
		Handler(func(_ context.Context, _ string, _ map[string]string) (*mcplib.ResourceContent, error) {
			resp := schemaResponse{
				SchemaVersion: SchemaVersion,
				ServerVersion: Version,
			}
			data, err := json.Marshal(resp)
			if err != nil {
				return nil, err
			}
			return &mcplib.ResourceContent{
				URI:      "shiplift://schema",
				MimeType: "application/json",
				Text:     string(data),
			}, nil
		})
}
