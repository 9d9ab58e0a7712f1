package sri

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beevik/etree"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	pkgsri "github.com/jhoicas/Facturacion-api/pkg/sri"
)

// ── Endpoints oficiales del esquema offline ───────────────────────────────────

const (
	receptionURLTest = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline"
	receptionURLProd = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/RecepcionComprobantesOffline"

	authorizationURLTest = "https://celcer.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"
	authorizationURLProd = "https://cel.sri.gob.ec/comprobantes-electronicos-ws/AutorizacionComprobantesOffline"

	soapNS            = "http://schemas.xmlsoap.org/soap/envelope/"
	recepcionNS       = "http://ec.gob.sri.ws.recepcion"
	autorizacionNS    = "http://ec.gob.sri.ws.autorizacion"
	defaultTimeout    = 10 * time.Second
	maxResponseLength = 1 << 20 // max 1 MB
)

// ── Implementación SOAP ───────────────────────────────────────────────────────

// SOAPClient implementa AuthorityClient contra el WS SOAP del SRI.
// Usa net/http de la stdlib; no requiere librerías de terceros.
type SOAPClient struct {
	httpClient *http.Client
	// Overrides de endpoint (vacío = URL oficial según ambiente). Para tests
	// y para apuntar a un simulador del SRI.
	receptionURL     string
	authorizationURL string
}

// NewSOAPClient construye el cliente SOAP con el timeout de la configuración
// (10 s por defecto; el WS del SRI responde rápido o no responde).
func NewSOAPClient(cfg config.SRIConfig) *SOAPClient {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &SOAPClient{
		httpClient:       &http.Client{Timeout: timeout},
		receptionURL:     cfg.ReceptionURL,
		authorizationURL: cfg.AuthorizationURL,
	}
}

var _ AuthorityClient = (*SOAPClient)(nil)

// ── Estructuras SOAP de request ───────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name   `xml:"soapenv:Envelope"`
	XmlnsS  string     `xml:"xmlns:soapenv,attr"`
	XmlnsEc string     `xml:"xmlns:ec,attr"`
	Header  soapHeader `xml:"soapenv:Header"`
	Body    soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct{}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

// validarComprobanteBody cuerpo de la operación de recepción.
type validarComprobanteBody struct {
	XMLName xml.Name `xml:"ec:validarComprobante"`
	XML     string   `xml:"xml"` // comprobante firmado en Base64
}

// autorizacionComprobanteBody cuerpo de la operación de autorización.
type autorizacionComprobanteBody struct {
	XMLName     xml.Name `xml:"ec:autorizacionComprobante"`
	ClaveAcceso string   `xml:"claveAccesoComprobante"`
}

// ── Submit (recepción) ────────────────────────────────────────────────────────

// Submit envía el comprobante firmado a la fase de recepción
// (validarComprobante) y devuelve estado y mensajes.
func (c *SOAPClient) Submit(ctx context.Context, signedXML []byte, ambiente string) (*ReceptionResult, error) {
	if len(signedXML) == 0 {
		return nil, fmt.Errorf("%w: comprobante vacío", domain.ErrIncompleteInvoice)
	}
	url := c.receptionURL
	if url == "" {
		if ambiente == pkgsri.AmbienteProduccion {
			url = receptionURLProd
		} else {
			url = receptionURLTest
		}
	}
	body := &validarComprobanteBody{XML: base64.StdEncoding.EncodeToString(signedXML)}
	raw, err := c.call(ctx, url, recepcionNS, body)
	if err != nil {
		return nil, err
	}
	return parseReceptionResponse(raw)
}

// CheckAuthorization consulta la fase de autorización
// (autorizacionComprobante) por clave de acceso.
func (c *SOAPClient) CheckAuthorization(ctx context.Context, accessKey, ambiente string) (*AuthorizationResult, error) {
	if accessKey == "" {
		return nil, fmt.Errorf("%w: clave de acceso vacía", domain.ErrIncompleteInvoice)
	}
	url := c.authorizationURL
	if url == "" {
		if ambiente == pkgsri.AmbienteProduccion {
			url = authorizationURLProd
		} else {
			url = authorizationURLTest
		}
	}
	body := &autorizacionComprobanteBody{ClaveAcceso: accessKey}
	raw, err := c.call(ctx, url, autorizacionNS, body)
	if err != nil {
		return nil, err
	}
	return parseAuthorizationResponse(raw)
}

// call serializa el envelope, hace el POST y devuelve el cuerpo crudo. Los
// fallos de red, timeout y status no-2xx se clasifican como ErrConnection.
func (c *SOAPClient) call(ctx context.Context, url, ns string, content interface{}) ([]byte, error) {
	envelope := soapEnvelope{
		XmlnsS:  soapNS,
		XmlnsEc: ns,
		Body:    soapBody{Content: content},
	}
	xmlPayload, err := xml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(xmlPayload))
	if err != nil {
		return nil, fmt.Errorf("soap: crear request: %w", err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: timeout o cancelación: %v", domain.ErrConnection, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrConnection, err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseLength))
	if err != nil {
		return nil, fmt.Errorf("%w: leer respuesta: %v", domain.ErrConnection, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: HTTP %d del WS SRI", domain.ErrConnection, resp.StatusCode)
	}
	return rawBody, nil
}

// ── Parseo de respuestas ──────────────────────────────────────────────────────

// parseReceptionResponse extrae estado y mensajes de la respuesta de
// recepción. El parseo tolera prefijos de namespace distintos: se busca por
// sufijo del nombre local del elemento.
func parseReceptionResponse(raw []byte) (*ReceptionResult, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("%w: respuesta de recepción ilegible: %v", domain.ErrParsing, err)
	}
	estado := findFirstText(doc, "estado")
	if estado == "" {
		return nil, fmt.Errorf("%w: respuesta de recepción sin estado: %s", domain.ErrParsing, truncate(raw))
	}
	return &ReceptionResult{
		Estado:   estado,
		Mensajes: collectMensajes(doc),
		Raw:      string(raw),
	}, nil
}

// parseAuthorizationResponse extrae estado, número y fecha de autorización.
func parseAuthorizationResponse(raw []byte) (*AuthorizationResult, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("%w: respuesta de autorización ilegible: %v", domain.ErrParsing, err)
	}
	estado := findFirstText(doc, "estado")
	if estado == "" {
		return nil, fmt.Errorf("%w: respuesta de autorización sin estado: %s", domain.ErrParsing, truncate(raw))
	}
	result := &AuthorizationResult{
		Estado:              estado,
		AuthorizationNumber: findFirstText(doc, "numeroAutorizacion"),
		Mensajes:            collectMensajes(doc),
		Raw:                 string(raw),
	}
	if fecha := findFirstText(doc, "fechaAutorizacion"); fecha != "" {
		if t, err := parseFechaAutorizacion(fecha); err == nil {
			result.AuthorizedAt = &t
		}
	}
	return result, nil
}

// parseFechaAutorizacion acepta los formatos de fecha que el WS devuelve según
// la versión del servicio.
func parseFechaAutorizacion(value string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000-07:00",
		"02/01/2006 15:04:05",
	}
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, value)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// findFirstText devuelve el texto del primer elemento (en orden de documento)
// cuyo nombre local coincide con local, sin importar el prefijo de namespace.
func findFirstText(doc *etree.Document, local string) string {
	var found string
	walk(doc.Root(), func(el *etree.Element) bool {
		if el.Tag == local {
			found = strings.TrimSpace(el.Text())
			return false
		}
		return true
	})
	return found
}

// collectMensajes concatena identificador, mensaje y información adicional de
// cada bloque <mensaje> de la respuesta.
func collectMensajes(doc *etree.Document) []string {
	var out []string
	walk(doc.Root(), func(el *etree.Element) bool {
		if el.Tag != "mensaje" || len(el.ChildElements()) == 0 {
			return true
		}
		var parts []string
		for _, sub := range []string{"identificador", "mensaje", "informacionAdicional", "tipo"} {
			if child := el.SelectElement(sub); child != nil && strings.TrimSpace(child.Text()) != "" {
				parts = append(parts, strings.TrimSpace(child.Text()))
			}
		}
		if len(parts) > 0 {
			out = append(out, strings.Join(parts, ": "))
		}
		return true
	})
	return out
}

// walk recorre el árbol en orden de documento; visit devuelve false para cortar.
func walk(el *etree.Element, visit func(*etree.Element) bool) bool {
	if el == nil {
		return true
	}
	if !visit(el) {
		return false
	}
	for _, child := range el.ChildElements() {
		if !walk(child, visit) {
			return false
		}
	}
	return true
}

func truncate(raw []byte) string {
	const max = 512
	if len(raw) <= max {
		return string(raw)
	}
	return string(raw[:max]) + "..."
}
