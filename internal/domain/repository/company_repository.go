package repository

import (
	"context"

	"github.com/jhoicas/Facturacion-api/internal/domain/entity"
)

// CompanyRepository acceso de solo lectura a emisores (el CRUD vive fuera).
type CompanyRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Company, error)
}

// CustomerRepository acceso de solo lectura a compradores.
type CustomerRepository interface {
	GetByID(ctx context.Context, id string) (*entity.Customer, error)
}
