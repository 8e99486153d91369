package registry

import "context"

// OwnerResolver maps an owner identifier to a display name. An empty name
// means the owner is unknown and its files are not registered.
type OwnerResolver interface {
	Resolve(ctx context.Context, ownerID string) string
}

// ResolverFunc adapts a function to OwnerResolver
type ResolverFunc func(ctx context.Context, ownerID string) string

// Resolve calls f
func (f ResolverFunc) Resolve(ctx context.Context, ownerID string) string {
	return f(ctx, ownerID)
}

// StaticResolver resolves owners from a fixed map
type StaticResolver map[string]string

// Resolve returns the configured name for ownerID
func (s StaticResolver) Resolve(_ context.Context, ownerID string) string {
	return s[ownerID]
}

// ChainResolver asks each resolver in turn; the first non-empty name wins
type ChainResolver []OwnerResolver

// Resolve returns the first non-empty answer
func (c ChainResolver) Resolve(ctx context.Context, ownerID string) string {
	for _, r := range c {
		if r == nil {
			continue
		}
		if name := r.Resolve(ctx, ownerID); name != "" {
			return name
		}
	}
	return ""
}
