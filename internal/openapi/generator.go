package openapi

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3gen"

	"github.com/PDPyeh/AeroCatalog-103-C/internal/model"
)

// Options configures the generated document.
type Options struct {
	Title     string
	Version   string
	ServerURL string // usually "/api"
	KeyHeader string // API key header name, e.g. "x-api-key"
}

// componentValues maps component schema names to the Go values they are
// reflected from, so the document always matches the JSON the server emits.
var componentValues = map[string]interface{}{
	"Admin":                model.Admin{},
	"Developer":            model.Developer{},
	"DeveloperProfile":     model.DeveloperProfile{},
	"APIKey":               model.APIKey{},
	"IssuedAPIKey":         model.IssuedAPIKey{},
	"ChatSession":          model.ChatSession{},
	"ChatMessage":          model.ChatMessage{},
	"Manufacturer":         model.Manufacturer{},
	"Category":             model.Category{},
	"Aircraft":             model.Aircraft{},
	"LoginRequest":         model.LoginRequest{},
	"RegisterRequest":      model.RegisterRequest{},
	"CreateKeyRequest":     model.CreateKeyRequest{},
	"CreateSessionRequest": model.CreateSessionRequest{},
	"ChatRequest":          model.ChatRequest{},
	"ErrorResponse":        model.ErrorResponse{},
}

// Generate builds the OpenAPI 3 document for every route in Routes.
func Generate(opts Options) (*openapi3.T, error) {
	if opts.Title == "" {
		opts.Title = "AeroCatalog API"
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.KeyHeader == "" {
		opts.KeyHeader = "x-api-key"
	}

	doc := &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       opts.Title,
			Description: "Aircraft catalog with developer API keys and an aviation-only assistant.",
			Version:     opts.Version,
		},
	}
	if opts.ServerURL != "" {
		doc.Servers = openapi3.Servers{{URL: opts.ServerURL}}
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{
		"apiKey": &openapi3.SecuritySchemeRef{
			Value: openapi3.NewSecurityScheme().WithType("apiKey").WithIn("header").WithName(opts.KeyHeader),
		},
		"bearerAuth": &openapi3.SecuritySchemeRef{
			Value: openapi3.NewJWTSecurityScheme(),
		},
	}
	doc.Components = &components

	names := make([]string, 0, len(componentValues))
	for name := range componentValues {
		names = append(names, name)
	}
	sort.Strings(names)
	scratch := openapi3.Schemas{}
	for _, name := range names {
		ref, err := openapi3gen.NewSchemaRefForValue(componentValues[name], scratch)
		if err != nil {
			return nil, fmt.Errorf("schema %s: %w", name, err)
		}
		doc.Components.Schemas[name] = ref
	}

	doc.Paths = openapi3.NewPaths()
	seenTags := map[string]bool{}
	for _, rt := range Routes {
		item := doc.Paths.Value(rt.Path)
		if item == nil {
			item = &openapi3.PathItem{}
			doc.Paths.Set(rt.Path, item)
		}
		item.SetOperation(rt.Method, buildOperation(doc, rt))

		if !seenTags[rt.Tag] {
			seenTags[rt.Tag] = true
			doc.Tags = append(doc.Tags, &openapi3.Tag{Name: rt.Tag})
		}
	}
	return doc, nil
}

func buildOperation(doc *openapi3.T, rt Route) *openapi3.Operation {
	op := &openapi3.Operation{
		Tags:        []string{rt.Tag},
		Summary:     rt.Summary,
		OperationID: rt.ID,
		Security:    securityFor(rt.Access),
		Responses:   newResponses(doc, rt),
	}

	for _, name := range pathParams(rt.Path) {
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: openapi3.NewPathParameter(name).WithSchema(openapi3.NewInt64Schema()),
		})
	}
	for _, name := range rt.Query {
		schema := openapi3.NewStringSchema()
		if strings.HasSuffix(name, "Id") {
			schema = openapi3.NewInt64Schema()
		}
		op.Parameters = append(op.Parameters, &openapi3.ParameterRef{
			Value: openapi3.NewQueryParameter(name).WithSchema(schema),
		})
	}

	if rt.Request != "" {
		op.RequestBody = &openapi3.RequestBodyRef{
			Value: openapi3.NewRequestBody().
				WithRequired(true).
				WithContent(openapi3.NewContentWithJSONSchemaRef(componentRef(doc, rt.Request))),
		}
	}
	return op
}

// securityFor returns the per-operation requirement. Public routes get an
// explicit empty list.
func securityFor(a Access) *openapi3.SecurityRequirements {
	var reqs openapi3.SecurityRequirements
	switch a {
	case KeyOnly:
		reqs = openapi3.SecurityRequirements{{"apiKey": {}}}
	case AdminOrKey:
		reqs = openapi3.SecurityRequirements{{"bearerAuth": {}}, {"apiKey": {}}}
	case TokenOnly:
		reqs = openapi3.SecurityRequirements{{"bearerAuth": {}}}
	default:
		reqs = openapi3.SecurityRequirements{}
	}
	return &reqs
}

func newResponses(doc *openapi3.T, rt Route) *openapi3.Responses {
	responses := openapi3.NewResponses()

	ok := http.StatusText(rt.Status)
	responses.Set(fmt.Sprint(rt.Status), &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &ok,
			Content:     openapi3.NewContentWithJSONSchemaRef(envelopeSchema(doc, rt.Response)),
		},
	})

	errorRef := componentRef(doc, "ErrorResponse")
	codes := []int{http.StatusBadRequest, http.StatusInternalServerError}
	if rt.Access != Public {
		codes = append(codes, http.StatusUnauthorized)
	}
	if len(pathParams(rt.Path)) > 0 {
		codes = append(codes, http.StatusNotFound)
	}
	for _, code := range codes {
		desc := http.StatusText(code)
		responses.Set(fmt.Sprint(code), &openapi3.ResponseRef{
			Value: &openapi3.Response{
				Description: &desc,
				Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
			},
		})
	}
	return responses
}

// envelopeSchema wraps the payload in {"success": true, ...}.
func envelopeSchema(doc *openapi3.T, b Body) *openapi3.SchemaRef {
	payload := componentRef(doc, b.Schema)
	if b.Array {
		payload = &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"array"}, Items: payload}}
	}

	props := openapi3.Schemas{
		"success": &openapi3.SchemaRef{Value: openapi3.NewBoolSchema()},
		b.Field:   payload,
	}
	for _, c := range b.Counters {
		props[c] = &openapi3.SchemaRef{Value: openapi3.NewIntegerSchema()}
	}
	if b.Token {
		props["token"] = &openapi3.SchemaRef{Value: openapi3.NewStringSchema()}
	}
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}, Properties: props}}
}

// componentRef references a component schema, or inlines a plain string.
func componentRef(doc *openapi3.T, name string) *openapi3.SchemaRef {
	if name == "string" {
		return &openapi3.SchemaRef{Value: openapi3.NewStringSchema()}
	}
	var value *openapi3.Schema
	if s, ok := doc.Components.Schemas[name]; ok {
		value = s.Value
	}
	return openapi3.NewSchemaRef("#/components/schemas/"+name, value)
}

// pathParams extracts {name} placeholders in order.
func pathParams(path string) []string {
	var out []string
	for _, seg := range strings.Split(path, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			out = append(out, seg[1:len(seg)-1])
		}
	}
	return out
}
