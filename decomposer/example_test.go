package decomposer_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/erraggy/oasplit/decomposer"
)

const exampleSpec = `openapi: 3.0.3
info:
  title: Example
  version: 1.0.0
paths:
  /farcaster/channel/invite/accept:
    post:
      responses:
        "200":
          description: OK
          content:
            application/json:
              schema:
                $ref: '#/components/schemas/Channel'
components:
  schemas:
    Channel:
      type: object
`

func ExampleDecomposeWithOptions() {
	dir, _ := os.MkdirTemp("", "oasplit-example")
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "spec.yaml")
	_ = os.WriteFile(src, []byte(exampleSpec), 0o600)

	result, err := decomposer.DecomposeWithOptions(context.Background(),
		decomposer.WithFilePath(src),
		decomposer.WithOutputDir(filepath.Join(dir, "v2")),
	)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	for _, file := range result.Files {
		fmt.Println(file)
	}
	// Output:
	// components/schemas/channel.yaml
	// openapi.yaml
	// paths/channel/invite_accept.yaml
}
