package signer_test

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha1"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/xml"
	"math/big"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/sri-facturacion/internal/domain/sri"
	"github.com/jhoicas/sri-facturacion/internal/infrastructure/sri/signer"
)

const unsignedXML = `<?xml version="1.0" encoding="UTF-8"?><factura id="comprobante" version="1.1.0">` +
	`<infoTributaria><ambiente>1</ambiente><razonSocial>Compañía &amp; Hijos</razonSocial></infoTributaria>` +
	`<detalles><detalle><descripcion>Café "especial"</descripcion></detalle></detalles></factura>`

// ─── Helpers ───────────────────────────────────────────────────────────────────

func selfSigned(t *testing.T, priv crypto.Signer) tls.Certificate {
	t.Helper()
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(987654321),
		Subject:      pkix.Name{CommonName: "EMISOR PRUEBAS", Organization: []string{"Compañía Ejemplo"}},
		Issuer:       pkix.Name{CommonName: "AC PRUEBAS"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, priv.Public(), priv)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: priv, Leaf: leaf}
}

func rsaCert(t *testing.T) tls.Certificate {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return selfSigned(t, key)
}

// canonical canonicaliza el elemento como lo hace un verificador: los nodos de la firma
// llevan ds y etsi en alcance; el comprobante no tiene namespaces.
func canonical(t *testing.T, el *etree.Element) []byte {
	t.Helper()
	c := el.Copy()
	if c.Space != "" {
		if c.SelectAttr("xmlns:ds") == nil {
			c.CreateAttr("xmlns:ds", signer.NamespaceDS)
		}
		if c.SelectAttr("xmlns:etsi") == nil {
			c.CreateAttr("xmlns:etsi", signer.NamespaceETSI)
		}
	}
	doc := etree.NewDocument()
	doc.SetRoot(c)
	raw, err := doc.WriteToBytes()
	require.NoError(t, err)
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.Entity = map[string]string{}
	out, err := c14n.Canonicalize(dec)
	require.NoError(t, err)
	return out
}

func sha1B64(b []byte) string {
	h := sha1.Sum(b)
	return base64.StdEncoding.EncodeToString(h[:])
}

func childTags(el *etree.Element) []string {
	var out []string
	for _, c := range el.ChildElements() {
		out = append(out, c.FullTag())
	}
	return out
}

// ─── Firma ─────────────────────────────────────────────────────────────────────

func TestSign_EstructuraXAdES(t *testing.T) {
	cert := rsaCert(t)
	at := time.Date(2025, 3, 15, 15, 4, 5, 0, time.UTC)

	out, err := signer.NewDigitalSignatureService().SignAt([]byte(unsignedXML), cert, at)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	root := doc.Root()
	last := root.ChildElements()[len(root.ChildElements())-1]
	assert.Equal(t, "ds:Signature", last.FullTag(), "la firma es el último hijo del raíz")
	assert.Equal(t, "SignatureID", last.SelectAttrValue("Id", ""))
	assert.Equal(t, []string{"ds:SignedInfo", "ds:SignatureValue", "ds:KeyInfo", "ds:Object"}, childTags(last))

	refs := last.FindElements("./ds:SignedInfo/ds:Reference")
	require.Len(t, refs, 3)
	assert.Equal(t, "#SignedPropertiesID", refs[0].SelectAttrValue("URI", ""))
	assert.Equal(t, signer.TypeSignedProps, refs[0].SelectAttrValue("Type", ""))
	assert.Equal(t, "#CertificateID", refs[1].SelectAttrValue("URI", ""))
	assert.Equal(t, "#comprobante", refs[2].SelectAttrValue("URI", ""))
	assert.Equal(t, signer.TransformEnveloped, refs[2].FindElement("./ds:Transforms/ds:Transform").SelectAttrValue("Algorithm", ""))

	assert.Equal(t, signer.AlgRSASHA1, last.FindElement("./ds:SignedInfo/ds:SignatureMethod").SelectAttrValue("Algorithm", ""))
	assert.Equal(t, "2025-03-15T15:04:05Z", last.FindElement(".//etsi:SigningTime").Text())
	assert.Equal(t, "#SignatureID", last.FindElement("./ds:Object/etsi:QualifyingProperties").SelectAttrValue("Target", ""))
	assert.Equal(t, "987654321", last.FindElement(".//ds:X509SerialNumber").Text())
	assert.Equal(t, cert.Leaf.Issuer.String(), last.FindElement(".//ds:X509IssuerName").Text())
	assert.Equal(t, sha1B64(cert.Leaf.Raw), last.FindElement(".//etsi:CertDigest/ds:DigestValue").Text())
}

func TestSign_DigestsYFirmaVerificables(t *testing.T) {
	cert := rsaCert(t)
	out, err := signer.NewDigitalSignatureService().Sign([]byte(unsignedXML), cert)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	sig := doc.Root().FindElement("./ds:Signature")
	require.NotNil(t, sig)
	refs := sig.FindElements("./ds:SignedInfo/ds:Reference")
	require.Len(t, refs, 3)

	// SignedProperties y KeyInfo en contexto
	props := sig.FindElement(".//etsi:SignedProperties")
	assert.Equal(t, sha1B64(canonical(t, props)), refs[0].FindElement("./ds:DigestValue").Text())
	keyInfo := sig.FindElement("./ds:KeyInfo")
	assert.Equal(t, sha1B64(canonical(t, keyInfo)), refs[1].FindElement("./ds:DigestValue").Text())

	// Documento: transform enveloped (quitar la firma) + C14N
	unsigned := doc.Root().Copy()
	unsigned.RemoveChild(unsigned.FindElement("./ds:Signature"))
	assert.Equal(t, sha1B64(canonical(t, unsigned)), refs[2].FindElement("./ds:DigestValue").Text())

	// SignatureValue sobre SignedInfo canonicalizado
	si := canonical(t, sig.FindElement("./ds:SignedInfo"))
	sigValue, err := base64.StdEncoding.DecodeString(sig.FindElement("./ds:SignatureValue").Text())
	require.NoError(t, err)
	h := sha1.Sum(si)
	assert.NoError(t, rsa.VerifyPKCS1v15(cert.Leaf.PublicKey.(*rsa.PublicKey), crypto.SHA1, h[:], sigValue))
}

func TestSignAt_Deterministico(t *testing.T) {
	cert := rsaCert(t)
	at := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	s := signer.NewDigitalSignatureService()

	a, err := s.SignAt([]byte(unsignedXML), cert, at)
	require.NoError(t, err)
	b, err := s.SignAt([]byte(unsignedXML), cert, at)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSign_ConservaContenido(t *testing.T) {
	out, err := signer.NewDigitalSignatureService().Sign([]byte(unsignedXML), rsaCert(t))
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(out))
	assert.Equal(t, "Compañía & Hijos", doc.FindElement("//razonSocial").Text())
	assert.Equal(t, `Café "especial"`, doc.FindElement("//descripcion").Text())
}

// ─── Errores de firma ──────────────────────────────────────────────────────────

func TestSign_LlaveNoRSA(t *testing.T) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	_, err = signer.NewDigitalSignatureService().Sign([]byte(unsignedXML), selfSigned(t, key))
	require.Error(t, err)
	assert.Equal(t, sri.KindSigning, sri.KindOf(err))
}

func TestSign_ParNoCorresponde(t *testing.T) {
	cert := rsaCert(t)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	cert.PrivateKey = other

	_, err = signer.NewDigitalSignatureService().Sign([]byte(unsignedXML), cert)
	require.Error(t, err)
	assert.Equal(t, sri.KindSigning, sri.KindOf(err))
}

func TestSign_SinLlave(t *testing.T) {
	cert := rsaCert(t)
	cert.PrivateKey = nil

	_, err := signer.NewDigitalSignatureService().Sign([]byte(unsignedXML), cert)
	var se *sri.SigningError
	require.ErrorAs(t, err, &se)
}

func TestSign_RaizSinId(t *testing.T) {
	_, err := signer.NewDigitalSignatureService().Sign([]byte(`<factura version="1.1.0"/>`), rsaCert(t))
	assert.Error(t, err)
}

func TestSign_YaFirmado(t *testing.T) {
	s := signer.NewDigitalSignatureService()
	cert := rsaCert(t)
	out, err := s.Sign([]byte(unsignedXML), cert)
	require.NoError(t, err)

	_, err = s.Sign(out, cert)
	assert.Error(t, err)
}
