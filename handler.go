package modelapi

import "context"

// Void is used as a type parameter when a request has no inputs or a
// response has no body (results in 204 No Content).
type Void struct{}

// Handler is the typed handler signature. Req stands for the handler's
// inputs and Resp for its result; both drive model inference.
type Handler[Req, Resp any] func(ctx context.Context, req *Req) (Resp, error)
