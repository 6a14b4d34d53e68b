package inventory

import (
	"errors"
	"fmt"
)

type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

type NotFoundError struct {
	Kind string
	ID   int
}

func (e *NotFoundError) Error() string {
	switch e.Kind {
	case KindProduct:
		return "Producto no encontrado"
	case KindSale:
		return "Venta no encontrada"
	default:
		return "No hay ventas registradas"
	}
}

type DuplicateError struct {
	Name string
}

func (e *DuplicateError) Error() string {
	return "Producto ya registrado"
}

type ConflictError struct {
	ProductID int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("No se puede eliminar el producto con ID %d porque tiene ventas registradas.", e.ProductID)
}

type InsufficientStockError struct {
	ProductName string
	Available   int
	Requested   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Stock insuficiente para %s (disponible: %d, solicitado: %d)",
		e.ProductName, e.Available, e.Requested)
}

const (
	KindProduct = "product"
	KindSale    = "sale"
	KindLedger  = "ledger"
)

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

func productNotFound(id int) error { return &NotFoundError{Kind: KindProduct, ID: id} }
func saleNotFound(id int) error    { return &NotFoundError{Kind: KindSale, ID: id} }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
