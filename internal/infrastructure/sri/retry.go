package sri

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/Facturacion-api/internal/domain"
)

// RetryingClient decora un AuthorityClient con reintentos ante ErrConnection.
// Solo reintenta fallos de transporte: una respuesta del SRI (DEVUELTA,
// NO AUTORIZADO) nunca se reintenta aquí. Con maxRetries en 0 se comporta
// igual que el cliente decorado.
type RetryingClient struct {
	inner      AuthorityClient
	maxRetries int
	backoff    time.Duration
}

// NewRetryingClient construye el decorador. backoff crece lineal por intento.
func NewRetryingClient(inner AuthorityClient, maxRetries int, backoff time.Duration) *RetryingClient {
	if backoff <= 0 {
		backoff = time.Second
	}
	return &RetryingClient{inner: inner, maxRetries: maxRetries, backoff: backoff}
}

var _ AuthorityClient = (*RetryingClient)(nil)

func (c *RetryingClient) Submit(ctx context.Context, signedXML []byte, ambiente string) (*ReceptionResult, error) {
	var result *ReceptionResult
	err := c.withRetries(ctx, func() error {
		var err error
		result, err = c.inner.Submit(ctx, signedXML, ambiente)
		return err
	})
	return result, err
}

func (c *RetryingClient) CheckAuthorization(ctx context.Context, accessKey, ambiente string) (*AuthorizationResult, error) {
	var result *AuthorizationResult
	err := c.withRetries(ctx, func() error {
		var err error
		result, err = c.inner.CheckAuthorization(ctx, accessKey, ambiente)
		return err
	})
	return result, err
}

func (c *RetryingClient) withRetries(ctx context.Context, call func() error) error {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return lastErr
			case <-time.After(c.backoff * time.Duration(attempt)):
			}
		}
		lastErr = call()
		if lastErr == nil || !errors.Is(lastErr, domain.ErrConnection) {
			return lastErr
		}
	}
	return lastErr
}
