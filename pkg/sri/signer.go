// Package sri: interfaz para firma digital de comprobantes (XAdES-BES, SRI).

package sri

import "crypto/tls"

// Signer firma el XML de un comprobante y devuelve el XML con ds:Signature
// agregado como último hijo de la raíz (firma enveloped).
type Signer interface {
	Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error)
}
