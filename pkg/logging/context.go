package logging

import "context"

type modelIDKeyType struct{}
type tokenInfoKeyType struct{}
type runIDKeyType struct{}

var (
	modelIDKey   = modelIDKeyType{}
	tokenInfoKey = tokenInfoKeyType{}
	runIDKey     = runIDKeyType{}
)

// WithModelID attaches the active model identifier to the context so log
// entries emitted downstream carry it.
func WithModelID(ctx context.Context, modelID string) context.Context {
	return context.WithValue(ctx, modelIDKey, modelID)
}

// GetModelID retrieves the model identifier from the context.
func GetModelID(ctx context.Context) (string, bool) {
	modelID, ok := ctx.Value(modelIDKey).(string)
	return modelID, ok
}

// WithTokenInfo attaches token usage to the context.
func WithTokenInfo(ctx context.Context, info *TokenInfo) context.Context {
	return context.WithValue(ctx, tokenInfoKey, info)
}

// GetTokenInfo retrieves token usage from the context.
func GetTokenInfo(ctx context.Context) (*TokenInfo, bool) {
	info, ok := ctx.Value(tokenInfoKey).(*TokenInfo)
	return info, ok
}

// WithRunID tags the context with the orchestrator run identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// GetRunID retrieves the run identifier from the context.
func GetRunID(ctx context.Context) (string, bool) {
	runID, ok := ctx.Value(runIDKey).(string)
	return runID, ok
}
