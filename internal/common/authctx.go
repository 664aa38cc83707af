package common

import "context"

type ctxKey string

const supplierIDKey ctxKey = "auth/supplier-id"

// WithSupplier stores the authenticated supplier identifier on the provided context.
// The supplier id is the tenant-scoping key for every query in the back office.
func WithSupplier(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, supplierIDKey, id)
}

// SupplierID extracts the authenticated supplier identifier from the context if present.
func SupplierID(ctx context.Context) (string, bool) {
	v := ctx.Value(supplierIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}
