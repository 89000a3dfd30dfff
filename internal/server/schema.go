package server

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/certverify/internal/common"
)

const analyzeCertificateSchema = `{
	"type": "object",
	"properties": {
		"owner_id": {"type": "string", "minLength": 1},
		"certificate_id": {"type": "string", "minLength": 1},
		"file_url": {"type": "string", "minLength": 1},
		"fileUrl": {"type": "string", "minLength": 1}
	},
	"required": ["owner_id", "certificate_id"],
	"anyOf": [
		{"required": ["file_url"]},
		{"required": ["fileUrl"]}
	]
}`

const ownerRequestSchema = `{
	"type": "object",
	"properties": {
		"owner_id": {"type": "string", "minLength": 1}
	},
	"required": ["owner_id"]
}`

// requestSchemas holds the compiled request schema of each method.
type requestSchemas struct {
	byMethod map[string]*jsonschema.Schema
}

func compileRequestSchemas() (*requestSchemas, error) {
	sources := map[string]string{
		MethodAnalyzeCertificate:  analyzeCertificateSchema,
		MethodAnalyzeCertificates: ownerRequestSchema,
		MethodExportCertificates:  ownerRequestSchema,
	}
	out := &requestSchemas{byMethod: make(map[string]*jsonschema.Schema, len(sources))}
	for method, src := range sources {
		name := strings.TrimPrefix(method, "/") + ".json"
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
		schema, err := compiler.Compile(name)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		out.byMethod[method] = schema
	}
	return out, nil
}

// validate checks a decoded request document against the method's schema.
func (r *requestSchemas) validate(method string, doc map[string]any) error {
	schema, ok := r.byMethod[method]
	if !ok {
		return nil
	}
	if err := schema.Validate(doc); err != nil {
		return common.NewAppError(common.CodeInvalidInput, "request does not match schema", err)
	}
	return nil
}
