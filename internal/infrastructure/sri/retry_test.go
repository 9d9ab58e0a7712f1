package sri_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Facturacion-api/internal/domain"
	"github.com/jhoicas/Facturacion-api/internal/infrastructure/sri"
)

// flakyClient falla con ErrConnection las primeras failures llamadas.
type flakyClient struct {
	failures int
	calls    int
}

func (c *flakyClient) Submit(ctx context.Context, signedXML []byte, ambiente string) (*sri.ReceptionResult, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, fmt.Errorf("%w: connection refused", domain.ErrConnection)
	}
	return &sri.ReceptionResult{Estado: sri.EstadoRecibida}, nil
}

func (c *flakyClient) CheckAuthorization(ctx context.Context, accessKey, ambiente string) (*sri.AuthorizationResult, error) {
	c.calls++
	if c.calls <= c.failures {
		return nil, fmt.Errorf("%w: connection refused", domain.ErrConnection)
	}
	return &sri.AuthorizationResult{Estado: sri.EstadoAutorizado}, nil
}

// rejectingClient responde siempre DEVUELTA (respuesta de protocolo, no de red).
type rejectingClient struct{ calls int }

func (c *rejectingClient) Submit(ctx context.Context, signedXML []byte, ambiente string) (*sri.ReceptionResult, error) {
	c.calls++
	return &sri.ReceptionResult{Estado: sri.EstadoDevuelta}, nil
}

func (c *rejectingClient) CheckAuthorization(ctx context.Context, accessKey, ambiente string) (*sri.AuthorizationResult, error) {
	c.calls++
	return &sri.AuthorizationResult{Estado: sri.EstadoNoAutorizado}, nil
}

func TestRetryingClient_ReintentaSoloConexion(t *testing.T) {
	inner := &flakyClient{failures: 2}
	client := sri.NewRetryingClient(inner, 2, time.Millisecond)

	result, err := client.Submit(context.Background(), []byte("<factura/>"), "1")
	require.NoError(t, err)
	assert.Equal(t, sri.EstadoRecibida, result.Estado)
	assert.Equal(t, 3, inner.calls, "dos fallos de conexión y un éxito")
}

func TestRetryingClient_AgotaReintentos(t *testing.T) {
	inner := &flakyClient{failures: 10}
	client := sri.NewRetryingClient(inner, 2, time.Millisecond)

	_, err := client.Submit(context.Background(), []byte("<factura/>"), "1")
	assert.ErrorIs(t, err, domain.ErrConnection)
	assert.Equal(t, 3, inner.calls, "intento inicial + 2 reintentos")
}

func TestRetryingClient_NoReintentaRespuestasDelSRI(t *testing.T) {
	inner := &rejectingClient{}
	client := sri.NewRetryingClient(inner, 5, time.Millisecond)

	result, err := client.Submit(context.Background(), []byte("<factura/>"), "1")
	require.NoError(t, err)
	assert.Equal(t, sri.EstadoDevuelta, result.Estado)
	assert.Equal(t, 1, inner.calls, "DEVUELTA no es error de transporte: sin reintentos")
}

func TestRetryingClient_SinReintentosPorDefecto(t *testing.T) {
	inner := &flakyClient{failures: 1}
	client := sri.NewRetryingClient(inner, 0, time.Millisecond)

	_, err := client.CheckAuthorization(context.Background(), "clave", "1")
	assert.ErrorIs(t, err, domain.ErrConnection)
	assert.Equal(t, 1, inner.calls)
}
