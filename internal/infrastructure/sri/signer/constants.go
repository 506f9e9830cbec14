// Constantes para firma XAdES-BES de comprobantes electrónicos SRI.

package signer

// Namespaces y algoritmos XMLDSig / XAdES. El SRI exige RSA-SHA1 con C14N inclusivo.
const (
	NamespaceDS        = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceETSI      = "http://uri.etsi.org/01903/v1.3.2#"
	AlgC14N            = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA1         = "http://www.w3.org/2000/09/xmldsig#rsa-sha1"
	AlgSHA1            = "http://www.w3.org/2000/09/xmldsig#sha1"
	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	TypeSignedProps    = "http://uri.etsi.org/01903#SignedProperties"
)

// Ids de los nodos referenciados desde SignedInfo.
const (
	SignatureID        = "SignatureID"
	SignedPropertiesID = "SignedPropertiesID"
	CertificateID      = "CertificateID"
	DocumentElementID  = "comprobante" // id del <factura>
)

// SigningTimeLayout formato UTC de etsi:SigningTime.
const SigningTimeLayout = "2006-01-02T15:04:05Z"
