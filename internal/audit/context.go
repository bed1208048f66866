package audit

import "context"

// ClientMetadata is best effort and never needed for correctness.
type ClientMetadata struct {
	UserAgent  string
	RemoteAddr string
	TraceID    string
}

func (c ClientMetadata) empty() bool {
	return c == ClientMetadata{}
}

type ctxKey struct{}

func WithClientMetadata(ctx context.Context, md ClientMetadata) context.Context {
	return context.WithValue(ctx, ctxKey{}, md)
}

func ClientMetadataFromContext(ctx context.Context) ClientMetadata {
	if ctx == nil {
		return ClientMetadata{}
	}
	md, _ := ctx.Value(ctxKey{}).(ClientMetadata)
	return md
}
