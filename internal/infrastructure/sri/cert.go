// Carga de certificado de firma desde bundle .p12 (PKCS#12) o PEM.

package sri

import (
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"

	"golang.org/x/crypto/pkcs12"
)

// ParseBundle decodifica un bundle de certificado en memoria. Intenta primero
// PKCS#12 (.p12/.pfx, lo que entregan las entidades certificadoras en
// Ecuador) y si no, un bundle PEM con CERTIFICATE y PRIVATE KEY concatenados.
func ParseBundle(data []byte, password string) (tls.Certificate, error) {
	if priv, cert, err := pkcs12.Decode(data, password); err == nil {
		return tls.Certificate{
			Certificate: [][]byte{cert.Raw},
			PrivateKey:  priv,
			Leaf:        cert,
		}, nil
	}
	cert, err := parsePEMBundle(data)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("decodificar bundle (ni p12 ni PEM): %w", err)
	}
	return cert, nil
}

func parsePEMBundle(data []byte) (tls.Certificate, error) {
	var cert tls.Certificate
	rest := data
	for {
		var block *pem.Block
		block, rest = pem.Decode(rest)
		if block == nil {
			break
		}
		switch {
		case block.Type == "CERTIFICATE":
			cert.Certificate = append(cert.Certificate, block.Bytes)
		case strings.Contains(block.Type, "PRIVATE KEY"):
			key, err := parsePrivateKey(block.Bytes)
			if err != nil {
				return tls.Certificate{}, err
			}
			cert.PrivateKey = key
		}
	}
	if len(cert.Certificate) == 0 || cert.PrivateKey == nil {
		return tls.Certificate{}, fmt.Errorf("el PEM no contiene certificado y llave privada")
	}
	leaf, err := x509.ParseCertificate(cert.Certificate[0])
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("parsear certificado: %w", err)
	}
	cert.Leaf = leaf
	return cert, nil
}

func parsePrivateKey(der []byte) (any, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, fmt.Errorf("llave privada en formato desconocido")
}

// CertDigestAndIssuerSerial devuelve el digest SHA-256 del certificado (Base64),
// el nombre del emisor y el serial decimal para el bloque SigningCertificate.
func CertDigestAndIssuerSerial(cert *x509.Certificate) (digestB64 string, issuerName string, serial string) {
	h := sha256.Sum256(cert.Raw)
	digestB64 = base64.StdEncoding.EncodeToString(h[:])
	issuerName = cert.Issuer.String()
	serial = cert.SerialNumber.String()
	return digestB64, issuerName, serial
}

// SubjectMatchesRUC verifica que el RUC del emisor aparezca en el subject del
// certificado (serialNumber, CN o cualquier atributo). Los certificados de
// firma ecuatorianos llevan el RUC o la cédula del titular en el subject.
func SubjectMatchesRUC(cert *x509.Certificate, ruc string) bool {
	if len(ruc) != 13 {
		return false
	}
	if strings.Contains(cert.Subject.String(), ruc) {
		return true
	}
	// Cédula del titular: los 10 primeros dígitos del RUC de persona natural.
	return strings.Contains(cert.Subject.String(), ruc[:10])
}
