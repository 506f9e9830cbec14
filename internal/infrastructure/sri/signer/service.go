// Servicio de firma digital XAdES-BES para comprobantes electrónicos SRI.
// Agrega <ds:Signature> como último hijo del elemento raíz (firma enveloped).

package signer

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
	pkgsri "github.com/jhoicas/sri-facturacion/pkg/sri"
)

// nsDecls declaraciones en alcance de los nodos de la firma. Se repiten al canonicalizar
// cada nodo por separado para que el resultado coincida con el del nodo ya insertado.
const nsDecls = ` xmlns:ds="` + NamespaceDS + `" xmlns:etsi="` + NamespaceETSI + `"`

// DigitalSignatureService implementa la firma XAdES-BES e inyecta el nodo en el XML.
type DigitalSignatureService struct {
	now func() time.Time
}

// NewDigitalSignatureService crea el servicio.
func NewDigitalSignatureService() *DigitalSignatureService {
	return &DigitalSignatureService{now: time.Now}
}

// Sign implementa pkg/sri.Signer con la hora actual como SigningTime.
func (s *DigitalSignatureService) Sign(xmlBytes []byte, cert tls.Certificate) ([]byte, error) {
	return s.SignAt(xmlBytes, cert, s.now())
}

// SignAt firma con un SigningTime explícito. Dos llamadas con la misma entrada producen
// la misma salida (PKCS#1 v1.5 es determinista).
func (s *DigitalSignatureService) SignAt(xmlBytes []byte, cert tls.Certificate, at time.Time) ([]byte, error) {
	if len(xmlBytes) == 0 {
		return nil, &sri.SigningError{Reason: "XML vacío"}
	}
	priv, leaf, err := keyPair(cert)
	if err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(xmlBytes); err != nil {
		return nil, fmt.Errorf("sri: parsear XML: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("sri: documento sin raíz")
	}
	if id := root.SelectAttrValue("id", ""); id != DocumentElementID {
		return nil, fmt.Errorf("sri: el elemento raíz debe tener id=%q, tiene %q", DocumentElementID, id)
	}
	if root.FindElement("./ds:Signature") != nil {
		return nil, fmt.Errorf("sri: el comprobante ya está firmado")
	}

	// ── 1. SignedProperties (SigningTime + SigningCertificate) ──
	certDigestB64, issuerName, serial := CertDigestAndIssuerSerial(leaf)
	signedProps := buildSignedProperties(at.UTC().Format(SigningTimeLayout), certDigestB64, issuerName, serial)
	propsDigest, err := digestInContext(signedProps)
	if err != nil {
		return nil, fmt.Errorf("sri: canonicalizar SignedProperties: %w", err)
	}

	// ── 2. KeyInfo (X509Certificate) ──
	keyInfo := buildKeyInfo(base64.StdEncoding.EncodeToString(leaf.Raw))
	keyInfoDigest, err := digestInContext(keyInfo)
	if err != nil {
		return nil, fmt.Errorf("sri: canonicalizar KeyInfo: %w", err)
	}

	// ── 3. Documento sin firma (#comprobante, transform enveloped) ──
	canonicalDoc, err := canonicalizeXML(xmlBytes)
	if err != nil {
		return nil, fmt.Errorf("sri: canonicalizar comprobante: %w", err)
	}
	docDigest := sha1.Sum(canonicalDoc)

	// ── 4. SignedInfo y SignatureValue ──
	signedInfo := buildSignedInfo(propsDigest, keyInfoDigest, base64.StdEncoding.EncodeToString(docDigest[:]))
	canonicalSignedInfo, err := canonicalizeXML([]byte(withNamespaces(signedInfo)))
	if err != nil {
		return nil, fmt.Errorf("sri: canonicalizar SignedInfo: %w", err)
	}
	signHash := sha1.Sum(canonicalSignedInfo)
	signatureValue, err := rsa.SignPKCS1v15(rand.Reader, priv, crypto.SHA1, signHash[:])
	if err != nil {
		return nil, &sri.SigningError{Reason: "firmar SignedInfo", Cause: err}
	}

	// ── 5. ds:Signature: SignedInfo, SignatureValue, KeyInfo, Object ──
	var sb strings.Builder
	sb.WriteString(`<ds:Signature` + nsDecls + ` Id="` + SignatureID + `">`)
	sb.WriteString(signedInfo)
	sb.WriteString(`<ds:SignatureValue>` + base64.StdEncoding.EncodeToString(signatureValue) + `</ds:SignatureValue>`)
	sb.WriteString(keyInfo)
	sb.WriteString(`<ds:Object><etsi:QualifyingProperties Target="#` + SignatureID + `">`)
	sb.WriteString(signedProps)
	sb.WriteString(`</etsi:QualifyingProperties></ds:Object>`)
	sb.WriteString(`</ds:Signature>`)

	return injectSignature(doc, sb.String())
}

func buildSignedProperties(signingTime, certDigestB64, issuerName, serial string) string {
	var sb strings.Builder
	sb.WriteString(`<etsi:SignedProperties Id="` + SignedPropertiesID + `">`)
	sb.WriteString(`<etsi:SignedSignatureProperties>`)
	sb.WriteString(`<etsi:SigningTime>` + signingTime + `</etsi:SigningTime>`)
	sb.WriteString(`<etsi:SigningCertificate><etsi:Cert><etsi:CertDigest>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + certDigestB64 + `</ds:DigestValue></etsi:CertDigest>`)
	sb.WriteString(`<etsi:IssuerSerial><ds:X509IssuerName>` + escapeXML(issuerName) + `</ds:X509IssuerName>`)
	sb.WriteString(`<ds:X509SerialNumber>` + serial + `</ds:X509SerialNumber></etsi:IssuerSerial>`)
	sb.WriteString(`</etsi:Cert></etsi:SigningCertificate>`)
	sb.WriteString(`</etsi:SignedSignatureProperties></etsi:SignedProperties>`)
	return sb.String()
}

func buildKeyInfo(certB64 string) string {
	return `<ds:KeyInfo Id="` + CertificateID + `"><ds:X509Data><ds:X509Certificate>` +
		certB64 + `</ds:X509Certificate></ds:X509Data></ds:KeyInfo>`
}

func buildSignedInfo(propsDigest, keyInfoDigest, docDigest string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo>`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgC14N + `"/>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA1 + `"/>`)

	sb.WriteString(`<ds:Reference URI="#` + SignedPropertiesID + `" Type="` + TypeSignedProps + `">`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + propsDigest + `</ds:DigestValue></ds:Reference>`)

	sb.WriteString(`<ds:Reference URI="#` + CertificateID + `">`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + keyInfoDigest + `</ds:DigestValue></ds:Reference>`)

	sb.WriteString(`<ds:Reference URI="#` + DocumentElementID + `">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"/></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA1 + `"/>`)
	sb.WriteString(`<ds:DigestValue>` + docDigest + `</ds:DigestValue></ds:Reference>`)

	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

// withNamespaces agrega ds y etsi al primer elemento de un fragmento.
func withNamespaces(fragment string) string {
	i := strings.IndexAny(fragment, " >")
	if i < 0 {
		return fragment
	}
	return fragment[:i] + nsDecls + fragment[i:]
}

// digestInContext SHA-1 (Base64) del fragmento canonicalizado con ds y etsi en alcance.
func digestInContext(fragment string) (string, error) {
	canonical, err := canonicalizeXML([]byte(withNamespaces(fragment)))
	if err != nil {
		return "", err
	}
	h := sha1.Sum(canonical)
	return base64.StdEncoding.EncodeToString(h[:]), nil
}

func canonicalizeXML(data []byte) ([]byte, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	return c14n.Canonicalize(dec)
}

func escapeXML(s string) string {
	s = strings.ReplaceAll(s, "&", "&amp;")
	s = strings.ReplaceAll(s, "<", "&lt;")
	s = strings.ReplaceAll(s, ">", "&gt;")
	return s
}

func injectSignature(doc *etree.Document, signatureXML string) ([]byte, error) {
	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(signatureXML); err != nil {
		return nil, fmt.Errorf("sri: parsear Signature: %w", err)
	}
	sigRoot := sigDoc.Root()
	if sigRoot == nil {
		return nil, fmt.Errorf("sri: Signature vacía")
	}
	doc.Root().AddChild(sigRoot)

	var out bytes.Buffer
	if _, err := doc.WriteTo(&out); err != nil {
		return nil, fmt.Errorf("sri: serializar XML firmado: %w", err)
	}
	return out.Bytes(), nil
}

var _ pkgsri.Signer = (*DigitalSignatureService)(nil)
