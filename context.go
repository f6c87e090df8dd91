package forwardedheaders

import (
	"context"
	"net/http"
)

// resultKey is the context key for storing the resolution Result.
type resultKey struct{}

// ResultFromContext returns the Result stored by Middleware.
//
// It returns false if the context does not carry one (the request did not pass
// through Middleware).
func ResultFromContext(ctx context.Context) (Result, bool) {
	if ctx == nil {
		return Result{}, false
	}
	result, ok := ctx.Value(resultKey{}).(Result)
	return result, ok
}

// ResultFromRequest returns the Result stored in r's context.
func ResultFromRequest(r *http.Request) (Result, bool) {
	if r == nil {
		return Result{}, false
	}
	return ResultFromContext(r.Context())
}

// WithResult returns a derived context carrying result.
func WithResult(ctx context.Context, result Result) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, resultKey{}, result)
}
