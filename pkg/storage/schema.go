package storage

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// reportSchemaJSON is the shape every report must satisfy before decoding.
// It covers the structure the rest of the system relies on; unknown extra
// fields are tolerated.
const reportSchemaJSON = `{
  "type": "object",
  "required": ["organization_url", "generated_at", "projects", "summary"],
  "properties": {
    "organization_url": { "type": "string", "minLength": 1 },
    "generated_at": { "type": "string" },
    "projects": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["name"],
        "properties": {
          "name": { "type": "string", "minLength": 1 },
          "repositories": {
            "type": "object",
            "properties": {
              "count": { "type": "integer", "minimum": 0 },
              "tfvc_used": { "type": "boolean" },
              "items": { "type": "array" }
            }
          },
          "pipelines": {
            "type": "object",
            "properties": {
              "declarative_count": { "type": "integer", "minimum": 0 },
              "legacy_release_count": { "type": "integer", "minimum": 0 }
            }
          },
          "work_items": {
            "type": "object",
            "properties": {
              "total": { "type": "integer", "minimum": 0 },
              "by_type": { "type": "object" }
            }
          }
        }
      }
    },
    "summary": {
      "type": "object",
      "required": ["total_projects", "complexity"],
      "properties": {
        "total_projects": { "type": "integer", "minimum": 0 },
        "complexity": {
          "type": "object",
          "required": ["overall"],
          "properties": {
            "overall": {
              "type": "object",
              "required": ["score", "rating"],
              "properties": {
                "score": { "type": "integer", "minimum": 0, "maximum": 100 },
                "rating": { "type": "string", "enum": ["Low", "Medium", "High"] }
              }
            }
          }
        },
        "blockers": { "type": "array", "items": { "type": "string" } }
      }
    }
  }
}`

var reportSchemaLoader = gojsonschema.NewStringLoader(reportSchemaJSON)

// ValidateReport checks raw report bytes against the report schema.
func ValidateReport(data []byte) error {
	documentLoader := gojsonschema.NewBytesLoader(data)
	result, err := gojsonschema.Validate(reportSchemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("report is not valid JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	issues := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		issues = append(issues, desc.String())
	}
	return fmt.Errorf("report does not match the expected shape: %s", strings.Join(issues, "; "))
}
