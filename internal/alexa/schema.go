package alexa

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed directive.schema.json
var directiveSchema []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func envelopeSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		var doc any
		if err := json.Unmarshal(directiveSchema, &doc); err != nil {
			schemaErr = fmt.Errorf("unmarshaling directive schema: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource("directive.schema.json", doc); err != nil {
			schemaErr = fmt.Errorf("adding directive schema: %w", err)
			return
		}
		compiledSchema, schemaErr = c.Compile("directive.schema.json")
	})
	return compiledSchema, schemaErr
}
