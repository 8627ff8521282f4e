// Package ai defines the boundary between the evaluation engine and the
// text-generation backends.
package ai

import "context"

// TextGenerator produces a free-form completion for a prompt. Implementations
// are expected to handle transient backend failures internally and return only
// errors that are final for this call.
type TextGenerator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
	Model() string
}
