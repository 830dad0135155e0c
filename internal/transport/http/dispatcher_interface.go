package http

import (
	"context"

	apierrors "ligaproxy/internal/errors"
	"ligaproxy/internal/operations"
)

// Dispatcher is the capability the proxy handlers need from the operation
// pipeline. Defined here so handlers can be tested with doubles.
type Dispatcher interface {
	Execute(ctx context.Context, operationType string, payload map[string]interface{}) (interface{}, *apierrors.Error)
	Names() []string
	Info() map[string]operations.OperationInfo
}
