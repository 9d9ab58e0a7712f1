// Comando seed_sri: importa emisores y puntos de emisión desde un archivo CSV
// separado por punto y coma, el formato en el que los sistemas contables
// locales exportan sus padrones (codificados en ISO-8859-1, no UTF-8).
//
// Formato esperado, una fila por punto de emisión:
//
//	RUC;RAZON_SOCIAL;NOMBRE_COMERCIAL;DIRECCION;ESTAB;PTO_EMI;DIR_ESTABLECIMIENTO
//
// Uso:
//
//	seed_sri -file padron.csv [-skip-header]
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/Facturacion-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Facturacion-api/pkg/config"
	"github.com/jhoicas/Facturacion-api/pkg/logger"
	pkgsri "github.com/jhoicas/Facturacion-api/pkg/sri"
)

func main() {
	var (
		file       = flag.String("file", "", "archivo CSV del padrón (ISO-8859-1, separado por ';')")
		skipHeader = flag.Bool("skip-header", false, "ignorar la primera fila")
	)
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "uso: seed_sri -file padron.csv [-skip-header]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: "info"})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	f, err := os.Open(*file)
	if err != nil {
		log.Fatal().Err(err).Str("file", *file).Msg("abrir archivo del padrón")
	}
	defer f.Close()

	// Los padrones llegan en ISO-8859-1 (tildes y eñes fuera de ASCII);
	// se transcodifican a UTF-8 antes de parsear.
	reader := csv.NewReader(transform.NewReader(f, charmap.ISO8859_1.NewDecoder()))
	reader.Comma = ';'
	reader.FieldsPerRecord = 7

	companies := map[string]string{} // RUC -> company_id
	imported := 0
	line := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.Fatal().Err(err).Int("line", line).Msg("leer fila del padrón")
		}
		if *skipHeader && line == 1 {
			continue
		}

		ruc, razonSocial, nombreComercial := record[0], record[1], record[2]
		direccion, estab, ptoEmi, dirEstab := record[3], record[4], record[5], record[6]

		if err := pkgsri.ValidateRUC(ruc); err != nil {
			log.Warn().Int("line", line).Str("ruc", ruc).Err(err).Msg("fila ignorada: RUC inválido")
			continue
		}
		if len(estab) != 3 || len(ptoEmi) != 3 {
			log.Warn().Int("line", line).Str("estab", estab).Str("pto_emi", ptoEmi).
				Msg("fila ignorada: establecimiento y punto de emisión deben tener 3 dígitos")
			continue
		}

		companyID, ok := companies[ruc]
		if !ok {
			companyID = uuid.NewString()
			_, err = pool.Exec(ctx, `
				INSERT INTO companies (id, name, trade_name, ruc, address, status)
				VALUES ($1, $2, $3, $4, $5, 'active')
				ON CONFLICT (ruc) DO UPDATE SET name = EXCLUDED.name, trade_name = EXCLUDED.trade_name, address = EXCLUDED.address`,
				companyID, razonSocial, nombreComercial, ruc, direccion)
			if err != nil {
				log.Fatal().Err(err).Int("line", line).Str("ruc", ruc).Msg("insertar emisor")
			}
			// Con ON CONFLICT el id real puede ser el preexistente.
			if err := pool.QueryRow(ctx, `SELECT id FROM companies WHERE ruc = $1`, ruc).Scan(&companyID); err != nil {
				log.Fatal().Err(err).Str("ruc", ruc).Msg("resolver id del emisor")
			}
			companies[ruc] = companyID
		}

		_, err = pool.Exec(ctx, `
			INSERT INTO emission_points (id, company_id, establishment, code, address, is_active)
			VALUES ($1, $2, $3, $4, $5, true)
			ON CONFLICT (company_id, establishment, code) DO UPDATE SET address = EXCLUDED.address, is_active = true`,
			uuid.NewString(), companyID, estab, ptoEmi, dirEstab)
		if err != nil {
			log.Fatal().Err(err).Int("line", line).Msg("insertar punto de emisión")
		}
		imported++
	}

	log.Info().Int("emisores", len(companies)).Int("puntos_emision", imported).
		Msg("padrón importado")
}
