package sri_test

import (
	"bytes"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"encoding/xml"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ucarion/c14n"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/sri"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/vault"
)

const rucEmisor = "1790012345001"

// makePEMBundle genera un certificado autofirmado con su llave RSA y lo
// devuelve como bundle PEM (certificado + llave PKCS#8).
func makePEMBundle(t *testing.T, subjectSerial string, notBefore, notAfter time.Time) ([]byte, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(98765),
		Subject: pkix.Name{
			CommonName:   "FIRMA DE PRUEBA",
			SerialNumber: subjectSerial,
		},
		NotBefore: notBefore,
		NotAfter:  notAfter,
		KeyUsage:  x509.KeyUsageDigitalSignature,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, pem.Encode(&buf, &pem.Block{Type: "CERTIFICATE", Bytes: der}))
	require.NoError(t, pem.Encode(&buf, &pem.Block{Type: "PRIVATE KEY", Bytes: keyDER}))
	return buf.Bytes(), key
}

func newSigningFixture(t *testing.T, subjectSerial string, notBefore, notAfter time.Time) (*sri.SignatureService, *entity.CertificateConfig, *rsa.PrivateKey) {
	t.Helper()
	v, err := vault.New("llave-maestra-de-prueba")
	require.NoError(t, err)
	bundle, key := makePEMBundle(t, subjectSerial, notBefore, notAfter)
	certData, err := v.EncryptToString(bundle)
	require.NoError(t, err)
	cfg := &entity.CertificateConfig{
		CompanyID: "co-1",
		CertData:  certData,
		Ambiente:  "1",
		IsActive:  true,
		ExpiresAt: notAfter,
	}
	return sri.NewSignatureService(v), cfg, key
}

func facturaDePrueba() []byte {
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<factura id="comprobante" version="1.1.0">
  <infoTributaria>
    <ambiente>1</ambiente>
    <ruc>1790012345001</ruc>
    <claveAcceso>2911202301179001234500110010010000001231234567817</claveAcceso>
  </infoTributaria>
</factura>`)
}

func findElement(el *etree.Element, tag string) *etree.Element {
	if el == nil {
		return nil
	}
	if el.Tag == tag {
		return el
	}
	for _, child := range el.ChildElements() {
		if found := findElement(child, tag); found != nil {
			return found
		}
	}
	return nil
}

func canonicalize(t *testing.T, data []byte) []byte {
	t.Helper()
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Entity = map[string]string{}
	out, err := c14n.Canonicalize(dec)
	require.NoError(t, err)
	return out
}

func TestSignInvoice_FirmaVerificable(t *testing.T) {
	svc, cfg, key := newSigningFixture(t, rucEmisor,
		time.Now().Add(-time.Hour), time.Now().Add(365*24*time.Hour))

	signed, err := svc.SignInvoice(facturaDePrueba(), cfg, rucEmisor)
	require.NoError(t, err)

	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(signed))
	root := doc.Root()
	require.Equal(t, "factura", root.Tag, "la firma es enveloped: la raíz sigue siendo factura")

	// ds:Signature como último hijo de factura
	children := root.ChildElements()
	require.NotEmpty(t, children)
	sig := children[len(children)-1]
	assert.Equal(t, "Signature", sig.Tag)

	signedInfo := findElement(sig, "SignedInfo")
	require.NotNil(t, signedInfo)
	sigValue := findElement(sig, "SignatureValue")
	require.NotNil(t, sigValue)

	// La Reference del documento apunta al id del comprobante
	refs := signedInfo.ChildElements()
	var uris []string
	for _, ref := range refs {
		if ref.Tag == "Reference" {
			uris = append(uris, ref.SelectAttrValue("URI", ""))
		}
	}
	assert.Contains(t, uris, "#comprobante")

	// Verificación criptográfica: C14N(SignedInfo) firmado con RSA-SHA256
	siDoc := etree.NewDocument()
	siDoc.SetRoot(signedInfo.Copy())
	siStr, err := siDoc.WriteToString()
	require.NoError(t, err)
	digest := sha256.Sum256(canonicalize(t, []byte(siStr)))

	rawSig, err := base64.StdEncoding.DecodeString(strings.TrimSpace(sigValue.Text()))
	require.NoError(t, err)
	assert.NoError(t, rsa.VerifyPKCS1v15(&key.PublicKey, crypto.SHA256, digest[:], rawSig),
		"SignatureValue debe verificar contra la llave pública del certificado")

	// Propiedades XAdES presentes
	assert.NotNil(t, findElement(sig, "SignedProperties"))
	assert.NotNil(t, findElement(sig, "SigningTime"))
	assert.NotNil(t, findElement(sig, "SigningCertificate"))
	assert.NotNil(t, findElement(sig, "X509Certificate"))
}

func TestSignInvoice_CertificadoExpirado(t *testing.T) {
	svc, cfg, _ := newSigningFixture(t, rucEmisor,
		time.Now().Add(-48*time.Hour), time.Now().Add(-24*time.Hour))

	_, err := svc.SignInvoice(facturaDePrueba(), cfg, rucEmisor)
	assert.ErrorIs(t, err, domain.ErrCertificateExpired)
}

func TestSignInvoice_CertificadoDeOtroContribuyente(t *testing.T) {
	svc, cfg, _ := newSigningFixture(t, "0990123456001",
		time.Now().Add(-time.Hour), time.Now().Add(24*time.Hour))

	_, err := svc.SignInvoice(facturaDePrueba(), cfg, rucEmisor)
	assert.ErrorIs(t, err, domain.ErrCertificateSubjectMismatch)
}

func TestSignInvoice_BlobCorrupto(t *testing.T) {
	svc, cfg, _ := newSigningFixture(t, rucEmisor,
		time.Now().Add(-time.Hour), time.Now().Add(24*time.Hour))
	cfg.CertData = "AAAA" + cfg.CertData[4:]

	_, err := svc.SignInvoice(facturaDePrueba(), cfg, rucEmisor)
	assert.ErrorIs(t, err, domain.ErrCorruptedOrWrongKey)
}

func TestSignInvoice_SinConfiguracion(t *testing.T) {
	v, err := vault.New("llave-maestra-de-prueba")
	require.NoError(t, err)
	svc := sri.NewSignatureService(v)

	_, err = svc.SignInvoice(facturaDePrueba(), nil, rucEmisor)
	assert.ErrorIs(t, err, domain.ErrConfigurationMissing)
}

func TestSignInvoice_XMLVacio(t *testing.T) {
	svc, cfg, _ := newSigningFixture(t, rucEmisor,
		time.Now().Add(-time.Hour), time.Now().Add(24*time.Hour))

	_, err := svc.SignInvoice(nil, cfg, rucEmisor)
	assert.ErrorIs(t, err, domain.ErrIncompleteInvoice)
}
