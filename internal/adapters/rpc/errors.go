package rpc

import "quickaid/go-backend/internal/dispatch"

// mapEngineError turns an engine error into a JSON-RPC error whose Data
// field carries the stable wire code clients switch on.
func mapEngineError(err error) *rpcError {
	return &rpcError{
		Code:    -32000,
		Message: err.Error(),
		Data:    dispatch.Code(err),
	}
}
