// Package testutil provides test utilities and fixtures for unit tests.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"go.yaml.in/yaml/v4"
)

// HubSpec is a compact Farcaster-style document exercising every section the
// decomposer handles: schemas across several categories (one falling back to
// the catch-all), cross-schema references, extracted parameters, responses
// and security schemes, index and nested-action paths, and one path outside
// the /farcaster prefix.
const HubSpec = `openapi: 3.0.3
info:
  title: Farcaster Hub API
  version: 2.0.0
servers:
  - url: https://api.example.com/v2
security:
  - ApiKeyAuth: []
paths:
  /farcaster/user:
    get:
      operationId: lookup-user
      parameters:
        - $ref: '#/components/parameters/Fid'
      responses:
        "200":
          description: Success
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/UserResponse'
        "404":
          $ref: '#/components/responses/NotFound'
  /farcaster/cast:
    get:
      operationId: lookup-cast
      responses:
        "200":
          description: Success
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Cast'
  /farcaster/channel/invite/accept:
    post:
      operationId: accept-channel-invite
      responses:
        "200":
          description: Success
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Channel'
  /healthz:
    get:
      operationId: health
      responses:
        "200":
          description: OK
components:
  securitySchemes:
    ApiKeyAuth:
      type: apiKey
      in: header
      name: x-api-key
  parameters:
    Fid:
      name: fid
      in: query
      required: true
      schema:
        $ref: '#/components/schemas/Fid'
  responses:
    NotFound:
      description: Not found
      content:
        application/json:
          schema:
            $ref: '#/components/schemas/ErrorRes'
  schemas:
    Fid:
      type: integer
      minimum: 0
    User:
      type: object
      properties:
        fid:
          $ref: '#/components/schemas/Fid'
        username:
          type: string
    UserResponse:
      type: object
      properties:
        user:
          $ref: '#/components/schemas/User'
    Cast:
      type: object
      properties:
        hash:
          type: string
        author:
          $ref: '#/components/schemas/User'
    Channel:
      type: object
      properties:
        id:
          type: string
    ErrorRes:
      type: object
      properties:
        message:
          type: string
    WidgetConfig:
      type: object
`

// HubSpecTagged is HubSpec with an explicit tags section.
const HubSpecTagged = `openapi: 3.0.3
info:
  title: Tagged API
  version: 1.0.0
tags:
  - name: Users
paths:
  /farcaster/user:
    get:
      tags: [Users]
      responses:
        "200":
          description: OK
components:
  schemas:
    User:
      type: object
`

// WriteFile writes content below dir, creating parent directories, and
// returns the full path. rel is slash-separated.
func WriteFile(t *testing.T, dir, rel, content string) string {
	t.Helper()

	path := filepath.Join(dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", rel, err)
	}
	return path
}

// WriteTree writes every file of tree (slash-separated path -> content)
// below dir.
func WriteTree(t *testing.T, dir string, tree map[string]string) {
	t.Helper()
	for rel, content := range tree {
		WriteFile(t, dir, rel, content)
	}
}

// WriteTempYAML writes content to openapi.yaml in a fresh temporary
// directory and returns its path.
func WriteTempYAML(t *testing.T, content string) string {
	t.Helper()
	return WriteFile(t, t.TempDir(), "openapi.yaml", content)
}

// WriteTempJSON marshals a document to JSON and writes it to a temporary file.
// Returns the path to the temporary file.
func WriteTempJSON(t *testing.T, doc any) string {
	t.Helper()

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		t.Fatalf("Failed to marshal document to JSON: %v", err)
	}
	return WriteFile(t, t.TempDir(), "openapi.json", string(data))
}

// ReadFile returns the content of a file, failing the test on error.
func ReadFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

// DecodeYAML decodes YAML or JSON into plain Go values, for structural
// comparison of documents.
func DecodeYAML(t *testing.T, data []byte) any {
	t.Helper()

	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		t.Fatalf("Failed to decode document: %v", err)
	}
	return v
}

// ListFiles returns every regular file below dir as sorted slash-separated
// relative paths.
func ListFiles(t *testing.T, dir string) []string {
	t.Helper()

	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		t.Fatalf("Failed to walk %s: %v", dir, err)
	}
	sort.Strings(files)
	return files
}
