// Package xsd valida comprobantes firmados contra el esquema oficial del SRI
// (factura_V1.1.0.xsd, que importa xmldsig-core-schema.xsd).
package xsd

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/lestrrat-go/libxml2"
	libxsd "github.com/lestrrat-go/libxml2/xsd"

	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
)

// Validator esquema compilado una sola vez y reutilizado en cada validación.
type Validator struct {
	mu     sync.Mutex
	schema *libxsd.Schema
	path   string
}

// NewValidator compila el XSD de path. Las importaciones relativas se resuelven desde su carpeta.
func NewValidator(path string) (*Validator, error) {
	schema, err := libxsd.ParseFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("xsd: compilar %s: %w", path, err)
	}
	return &Validator{schema: schema, path: path}, nil
}

// Validate devuelve *sri.ValidationError con el texto del validador si el documento
// no cumple el esquema. Un documento mal formado también es un error de validación.
func (v *Validator) Validate(doc []byte) error {
	parsed, err := libxml2.Parse(doc)
	if err != nil {
		return &sri.ValidationError{Message: err.Error()}
	}
	defer parsed.Free()

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.schema == nil {
		return fmt.Errorf("xsd: validador cerrado")
	}

	if err := v.schema.Validate(parsed); err != nil {
		var sve libxsd.SchemaValidationError
		if errors.As(err, &sve) {
			msgs := make([]string, 0, len(sve.Errors()))
			for _, e := range sve.Errors() {
				msgs = append(msgs, strings.TrimSpace(e.Error()))
			}
			return &sri.ValidationError{Message: strings.Join(msgs, "; ")}
		}
		return &sri.ValidationError{Message: err.Error()}
	}
	return nil
}

// Path ruta del esquema cargado.
func (v *Validator) Path() string { return v.path }

// Close libera el esquema compilado.
func (v *Validator) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.schema != nil {
		v.schema.Free()
		v.schema = nil
	}
}
