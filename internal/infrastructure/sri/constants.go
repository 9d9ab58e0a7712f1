// Constantes para firma XAdES-BES (esquema offline SRI).

package sri

// Namespaces y algoritmos XMLDSig / XAdES.
const (
	NamespaceDS    = "http://www.w3.org/2000/09/xmldsig#"
	NamespaceXAdES = "http://uri.etsi.org/01903/v1.3.2#"
	AlgC14N        = "http://www.w3.org/TR/2001/REC-xml-c14n-20010315"
	AlgRSASHA256   = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgSHA256      = "http://www.w3.org/2000/09/xmldsig#sha256"

	TransformEnveloped = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	TypeSignedProps    = "http://uri.etsi.org/01903#SignedProperties"
)

// IDs de los nodos de la firma (la Reference de SignedProperties los necesita).
const (
	signatureID       = "Signature-comprobante"
	signedPropsID     = "Signature-comprobante-SignedProperties"
	signedInfoID      = "Signature-comprobante-SignedInfo"
	signatureValueID  = "Signature-comprobante-SignatureValue"
	keyInfoID         = "Signature-comprobante-KeyInfo"
	qualifyingPropsID = "Signature-comprobante-QualifyingProperties"
)
