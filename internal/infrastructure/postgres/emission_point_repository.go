package postgres

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
	"github.com/jhoicas/Facturacion-api/internal/domain/repository"
)

var _ repository.EmissionPointRepository = (*EmissionPointRepo)(nil)

// EmissionPointRepo implementación de EmissionPointRepository (usable con pool o tx).
type EmissionPointRepo struct {
	q Querier
}

// NewEmissionPointRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEmissionPointRepository(q Querier) *EmissionPointRepo {
	return &EmissionPointRepo{q: q}
}

func (r *EmissionPointRepo) GetByID(ctx context.Context, id string) (*entity.EmissionPoint, error) {
	const query = `
		SELECT id, company_id, establishment, code, sequence_counter,
		       COALESCE(address, ''), is_active, created_at, updated_at
		FROM emission_points WHERE id = $1`
	var p entity.EmissionPoint
	err := r.q.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.CompanyID, &p.Establishment, &p.Code, &p.SequenceCounter,
		&p.Address, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, translateError("get emission point", err)
	}
	return &p, nil
}

// AllocateSequence entrega el siguiente secuencial del punto de emisión de
// forma atómica. El incremento y la lectura ocurren en una sola sentencia
// (UPDATE ... RETURNING): N llamadas concurrentes reciben N valores distintos
// y contiguos sin ninguna ventana de carrera en la aplicación.
func (r *EmissionPointRepo) AllocateSequence(ctx context.Context, emissionPointID string) (int64, error) {
	const query = `
		UPDATE emission_points
		SET sequence_counter = sequence_counter + 1, updated_at = now()
		WHERE id = $1
		RETURNING sequence_counter - 1`
	var seq int64
	if err := r.q.QueryRow(ctx, query, emissionPointID).Scan(&seq); err != nil {
		return 0, translateError("allocate sequence", err)
	}
	return seq, nil
}
