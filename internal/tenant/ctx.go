package tenant

import "context"

type contextKey string

const storeContextKey contextKey = "store.slug"

// WithStore stores the resolved store slug on the context.
func WithStore(ctx context.Context, slug string) context.Context {
	return context.WithValue(ctx, storeContextKey, slug)
}

// From extracts the store slug from the context if present.
func From(ctx context.Context) (string, bool) {
	v := ctx.Value(storeContextKey)
	if v == nil {
		return "", false
	}
	slug, ok := v.(string)
	return slug, ok && slug != ""
}
