package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound      = errors.New("recurso no encontrado")
	ErrInvalidInput  = errors.New("entrada inválida")
	ErrDuplicate     = errors.New("recurso duplicado")
	ErrUnauthorized  = errors.New("no autorizado")
	ErrForbidden     = errors.New("acceso denegado")
	ErrConflict      = errors.New("conflicto con el estado actual")
	ErrStaleState    = errors.New("el estado SRI de la factura cambió durante la operación")
	ErrNotAuthorized = errors.New("la factura no está autorizada por el SRI")
	ErrNoCertificate = errors.New("la empresa no tiene certificado de firma configurado")
)
