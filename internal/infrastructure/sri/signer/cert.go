// Carga del keystore PKCS#12 del emisor y validación del par llave/certificado.

package signer

import (
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"os"

	"golang.org/x/crypto/pkcs12"

	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
)

// LoadFromP12 carga certificado y llave privada desde un archivo .p12/.pfx.
// Cualquier fallo es un *sri.SigningError (terminal): no tiene sentido reintentar.
func LoadFromP12(path, password string) (tls.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return tls.Certificate{}, &sri.SigningError{Reason: "no se pudo abrir el keystore", Cause: err}
	}
	priv, cert, err := pkcs12.Decode(data, password)
	if err != nil {
		if errors.Is(err, pkcs12.ErrIncorrectPassword) {
			return tls.Certificate{}, &sri.SigningError{Reason: "contraseña del keystore incorrecta", Cause: err}
		}
		return tls.Certificate{}, &sri.SigningError{Reason: "keystore ilegible", Cause: err}
	}
	tc := tls.Certificate{
		Certificate: [][]byte{cert.Raw},
		PrivateKey:  priv,
		Leaf:        cert,
	}
	if _, _, err := keyPair(tc); err != nil {
		return tls.Certificate{}, err
	}
	return tc, nil
}

// keyPair extrae llave RSA y certificado hoja, y verifica que correspondan entre sí.
func keyPair(cert tls.Certificate) (*rsa.PrivateKey, *x509.Certificate, error) {
	if cert.PrivateKey == nil {
		return nil, nil, &sri.SigningError{Reason: "el keystore no contiene llave privada"}
	}
	priv, ok := cert.PrivateKey.(*rsa.PrivateKey)
	if !ok {
		return nil, nil, &sri.SigningError{Reason: fmt.Sprintf("llave privada %T no soportada, se requiere RSA", cert.PrivateKey)}
	}
	leaf := cert.Leaf
	if leaf == nil {
		if len(cert.Certificate) == 0 {
			return nil, nil, &sri.SigningError{Reason: "el keystore no contiene certificado"}
		}
		parsed, err := x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, nil, &sri.SigningError{Reason: "certificado ilegible", Cause: err}
		}
		leaf = parsed
	}
	pub, ok := leaf.PublicKey.(*rsa.PublicKey)
	if !ok || !pub.Equal(&priv.PublicKey) {
		return nil, nil, &sri.SigningError{Reason: "la llave privada no corresponde al certificado"}
	}
	return priv, leaf, nil
}

// CertDigestAndIssuerSerial devuelve el digest SHA-1 del certificado (Base64), el emisor
// en formato RFC 4514 y el serial en decimal, como los espera etsi:SigningCertificate.
func CertDigestAndIssuerSerial(cert *x509.Certificate) (digestB64 string, issuerName string, serial string) {
	h := sha1.Sum(cert.Raw)
	return base64.StdEncoding.EncodeToString(h[:]), cert.Issuer.String(), cert.SerialNumber.String()
}
