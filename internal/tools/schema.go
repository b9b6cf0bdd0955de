package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

var schemaCache sync.Map // tool name -> *jsonschema.Schema

func compiledSchema(toolName string, schema json.RawMessage) (*jsonschema.Schema, error) {
	if v, ok := schemaCache.Load(toolName); ok {
		return v.(*jsonschema.Schema), nil
	}
	s, err := jsonschema.CompileString(toolName+".json", string(schema))
	if err != nil {
		return nil, err
	}
	schemaCache.Store(toolName, s)
	return s, nil
}

func firstLeaf(err *jsonschema.ValidationError) *jsonschema.ValidationError {
	if err == nil || len(err.Causes) == 0 {
		return err
	}
	for _, c := range err.Causes {
		if leaf := firstLeaf(c); leaf != nil {
			return leaf
		}
	}
	return err
}

// validateArgs checks call arguments against the tool's input schema before
// any network traffic, so malformed calls fail fast with a pointed message.
func validateArgs(toolName string, schema, args json.RawMessage) error {
	if len(schema) == 0 {
		return nil
	}
	s, err := compiledSchema(toolName, schema)
	if err != nil {
		return fmt.Errorf("invalid input schema for %s: %w", toolName, err)
	}

	var decoded any
	if len(args) == 0 {
		decoded = map[string]any{}
	} else if err := json.Unmarshal(args, &decoded); err != nil {
		return fmt.Errorf("arguments are not valid JSON: %v", err)
	}

	if err := s.Validate(decoded); err != nil {
		if ve, ok := err.(*jsonschema.ValidationError); ok {
			leaf := firstLeaf(ve)
			loc := leaf.InstanceLocation
			if loc == "" {
				loc = "/"
			}
			msg := leaf.Message
			if msg == "" {
				msg = leaf.Error()
			}
			return fmt.Errorf("invalid arguments for %s at %s: %s", toolName, loc, msg)
		}
		return fmt.Errorf("invalid arguments for %s: %v", toolName, err)
	}
	return nil
}
