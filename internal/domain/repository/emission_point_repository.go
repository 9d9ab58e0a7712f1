package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// EmissionPointRepository gestiona puntos de emisión y su contador de
// secuenciales.
type EmissionPointRepository interface {
	GetByID(ctx context.Context, id string) (*entity.EmissionPoint, error)
	// AllocateSequence entrega el siguiente secuencial del punto de emisión de
	// forma atómica: para N llamadas concurrentes sobre el mismo punto los
	// valores devueltos son distintos dos a dos y contiguos. El incremento
	// ocurre en la capa de almacenamiento (UPDATE ... RETURNING), nunca como
	// leer-luego-escribir en la aplicación. Retorna ErrNotFound si el punto
	// de emisión no existe.
	AllocateSequence(ctx context.Context, emissionPointID string) (int64, error)
}
