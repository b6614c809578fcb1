package service

import (
	"errors"
	"fmt"
)

// Error taxonomy surfaced to the API layer. Handlers translate these into
// HTTP status codes; everything else becomes a generic internal failure.
var (
	ErrUnauthenticated   = errors.New("unauthenticated")
	ErrForbidden         = errors.New("forbidden")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient quantity")
)

// InsufficientStockError names the product whose stock cannot cover the
// requested quantity. It matches ErrInsufficientStock under errors.Is.
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient quantity for product %s", e.ProductName)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}
