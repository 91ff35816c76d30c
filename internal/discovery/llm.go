package discovery

import "context"

// Role tags a message sent to the model.
type Role string

const (
	RoleSystem Role = "system"
	RoleUser   Role = "user"
)

// Message is one role-tagged prompt segment.
type Message struct {
	Role    Role
	Content string
}

// SchemaType names a JSON schema node type.
type SchemaType string

const (
	TypeObject SchemaType = "object"
	TypeArray  SchemaType = "array"
	TypeString SchemaType = "string"
)

// Schema is the subset of JSON schema used to constrain model output.
type Schema struct {
	Type       SchemaType
	Properties map[string]*Schema
	Items      *Schema
	Required   []string
	Nullable   bool
}

// CompletionRequest is a structured-output model call.
type CompletionRequest struct {
	Messages   []Message
	SchemaName string
	Schema     *Schema
}

// LLMClient issues a single model invocation and returns the raw text payload.
type LLMClient interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}
