package agent

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed dashboard.schema.json
var dashboardSchema []byte

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal(dashboardSchema, &doc); err != nil {
		return nil, fmt.Errorf("agent: parsing dashboard schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource("dashboard.schema.json", doc); err != nil {
		return nil, fmt.Errorf("agent: adding dashboard schema: %w", err)
	}
	return c.Compile("dashboard.schema.json")
})

// ValidateDashboard checks raw against the dashboard skeleton schema.
func ValidateDashboard(raw json.RawMessage) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedDashboard, err)
	}
	if err := schema.Validate(inst); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedDashboard, err)
	}
	return nil
}
