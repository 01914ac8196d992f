// Package catalog declares the flower-ordering tools offered to the
// reasoning engine and binds them to their domain services.
package catalog

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/tailored-agentic-units/flora/core/protocol"
	"github.com/tailored-agentic-units/flora/tools"
)

// Name identifies a tool of the catalogue. The set is closed.
type Name string

const (
	FindBestFlorist          Name = "find_best_florist"
	CreateFlowerOrder        Name = "create_flower_order"
	GetFlowerRecommendations Name = "get_flower_recommendations"
	RedactPIIAndGetAddress   Name = "redact_pii_and_get_address"
)

// ErrMissingHandler is returned by New when a dependency is not provided.
var ErrMissingHandler = errors.New("catalog tool has no handler")

// Names returns every tool name in registration order.
func Names() []Name {
	return []Name{FindBestFlorist, CreateFlowerOrder, GetFlowerRecommendations, RedactPIIAndGetAddress}
}

// Valid reports whether n belongs to the catalogue.
func (n Name) Valid() bool {
	for _, known := range Names() {
		if n == known {
			return true
		}
	}
	return false
}

// The reasoning engine selects tools by matching against these strings.
var descriptions = map[Name]string{
	FindBestFlorist: "Finds a suitable florist based on address, flower type, and quantity.\n" +
		"Returns a JSON string with the florist's details.",
	CreateFlowerOrder: "Creates a final flower order using a valid florist_id.\n" +
		"The address MUST be a full, specific street address\n" +
		"Returns a JSON string with the order confirmation details.",
	GetFlowerRecommendations: "Use this tool to answer general questions about flower recommendations,\n" +
		"such as what flowers are good for an anniversary, birthday, or expressing sympathy.\n" +
		"It can also answer questions about flower care.",
	RedactPIIAndGetAddress: "Extracts and redacts PII like names and addresses from text.\n" +
		"Returns a clean version of the address for other tools to use.\n" +
		"This should be the FIRST tool called when a user mentions an address.",
}

// Description returns the description the engine sees for n.
func Description(n Name) string {
	return descriptions[n]
}

// FindFloristArgs are the arguments of find_best_florist.
type FindFloristArgs struct {
	Address    string `json:"address" jsonschema:"description=The delivery address or neighborhood"`
	FlowerType string `json:"flower_type" jsonschema:"description=The kind of flowers requested"`
	Quantity   int    `json:"quantity" jsonschema:"minimum=1"`
}

// CreateOrderArgs are the arguments of create_flower_order.
type CreateOrderArgs struct {
	FloristID  string `json:"florist_id" jsonschema:"description=Identifier returned by find_best_florist"`
	Address    string `json:"address" jsonschema:"description=The full street address supplied by the user"`
	FlowerType string `json:"flower_type"`
	Quantity   int    `json:"quantity" jsonschema:"minimum=1"`
	Note       string `json:"note,omitempty" jsonschema:"description=Card message for the recipient"`
}

// RecommendArgs are the arguments of get_flower_recommendations.
type RecommendArgs struct {
	UserQuery string `json:"user_query"`
}

// RedactArgs are the arguments of redact_pii_and_get_address.
type RedactArgs struct {
	TextWithAddress string `json:"text_with_address"`
}

var argTypes = map[Name]any{
	FindBestFlorist:          &FindFloristArgs{},
	CreateFlowerOrder:        &CreateOrderArgs{},
	GetFlowerRecommendations: &RecommendArgs{},
	RedactPIIAndGetAddress:   &RedactArgs{},
}

// Tool returns the protocol definition of n with a schema reflected from
// its argument struct.
func Tool(n Name) (protocol.Tool, error) {
	args, ok := argTypes[n]
	if !ok {
		return protocol.Tool{}, fmt.Errorf("%w: %s", tools.ErrNotFound, n)
	}
	params, err := schemaOf(args)
	if err != nil {
		return protocol.Tool{}, fmt.Errorf("%s schema: %w", n, err)
	}
	return protocol.Tool{Name: string(n), Description: descriptions[n], Parameters: params}, nil
}

func schemaOf(v any) (map[string]any, error) {
	r := &jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: true,
	}
	data, err := json.Marshal(r.Reflect(v))
	if err != nil {
		return nil, err
	}

	var params map[string]any
	if err := json.Unmarshal(data, &params); err != nil {
		return nil, err
	}
	delete(params, "$schema")
	delete(params, "$id")
	return params, nil
}

// New builds the tool registry from deps. Every catalogue tool must be
// backed; a missing dependency fails construction.
func New(deps Deps) (*tools.Registry, error) {
	handlers := deps.handlers()

	entries := make([]tools.Entry, 0, len(handlers))
	for _, n := range Names() {
		h, ok := handlers[n]
		if !ok || h == nil {
			return nil, fmt.Errorf("%w: %s", ErrMissingHandler, n)
		}
		tool, err := Tool(n)
		if err != nil {
			return nil, err
		}
		entries = append(entries, tools.Entry{Tool: tool, Handler: h})
	}
	return tools.NewRegistry(entries...)
}

func decode[T any](args json.RawMessage) (T, error) {
	var v T
	if len(args) == 0 {
		return v, nil
	}
	if err := json.Unmarshal(args, &v); err != nil {
		return v, fmt.Errorf("%w: %v", tools.ErrSchemaViolation, err)
	}
	return v, nil
}

func jsonResult(v any, isError bool) (tools.Result, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return tools.Result{}, err
	}
	return tools.Result{Content: string(data), IsError: isError}, nil
}
