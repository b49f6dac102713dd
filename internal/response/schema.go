package response

import (
	"embed"
	"fmt"
	"sync"

	"github.com/kaptinlin/jsonschema"

	"github.com/fiberpath/bridge/internal/command"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// Schema validates one operation's JSON output.
type Schema struct {
	name   string
	schema *jsonschema.Schema
}

// CompileSchema compiles a JSON Schema document.
func CompileSchema(name string, data []byte) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	s, err := compiler.Compile(data)
	if err != nil {
		return nil, fmt.Errorf("compile %s schema: %w", name, err)
	}
	return &Schema{name: name, schema: s}, nil
}

// Validate checks raw JSON against the schema. A nil Schema accepts anything.
func (s *Schema) Validate(data []byte) error {
	if s == nil {
		return nil
	}
	result := s.schema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("%s output violates schema: %v", s.name, result.Errors)
}

var (
	builtinOnce    sync.Once
	builtinSchemas map[command.Operation]*Schema
	builtinErr     error
)

// SchemaFor returns the embedded output schema for op, or nil when the
// operation has none.
func SchemaFor(op command.Operation) (*Schema, error) {
	builtinOnce.Do(loadBuiltin)
	if builtinErr != nil {
		return nil, builtinErr
	}
	return builtinSchemas[op], nil
}

func loadBuiltin() {
	builtinSchemas = make(map[command.Operation]*Schema)
	for _, op := range []command.Operation{command.OpPlan, command.OpSimulate, command.OpStream} {
		data, err := schemaFS.ReadFile("schemas/" + string(op) + ".schema.json")
		if err != nil {
			builtinErr = fmt.Errorf("read %s schema: %w", op, err)
			return
		}
		s, err := CompileSchema(string(op), data)
		if err != nil {
			builtinErr = err
			return
		}
		builtinSchemas[op] = s
	}
}
