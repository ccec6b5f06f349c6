// posctl is the operator CLI: schema migrations, integrity checks, demo
// seed data and dead-letter queue maintenance.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"restopos/internal/config"
	"restopos/internal/dto"
	"restopos/internal/infra"
	"restopos/internal/model"
	"restopos/internal/repository"
	"restopos/internal/service"
	"restopos/internal/worker"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	app := &cli.App{
		Name:  "posctl",
		Usage: "restopos operations",
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "apply pending schema migrations",
				Action: migrateCmd,
			},
			{
				Name:  "integridad",
				Usage: "consistency checks over mesas, ventas and prefacturas",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "restaurante-id", Usage: "limit the checks to one restaurante (default: all)"},
				},
				Subcommands: []*cli.Command{
					{Name: "verificar", Usage: "report inconsistencies (read-only)", Action: verificarCmd},
					{Name: "reconciliar", Usage: "recompute derived totals and restore missing open prefacturas", Action: reconciliarCmd},
				},
			},
			{
				Name:  "seed",
				Usage: "create a restaurante, a sucursal, an admin vendedor and default payment methods",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "restaurante", Value: "Restaurante Demo"},
					&cli.StringFlag{Name: "sucursal", Value: "Principal"},
					&cli.StringFlag{Name: "username", Value: "admin"},
					&cli.StringFlag{Name: "password", Value: "admin1234", EnvVars: []string{"SEED_ADMIN_PASSWORD"}},
				},
				Action: seedCmd,
			},
			{
				Name:      "hash-password",
				Usage:     "print the bcrypt hash of a password",
				ArgsUsage: "<password>",
				Action:    hashPasswordCmd,
			},
			{
				Name:  "dlq",
				Usage: "inspect the dead letter queue of mailed bills",
				Subcommands: []*cli.Command{
					{
						Name:   "list",
						Flags:  []cli.Flag{&cli.Int64Flag{Name: "limit", Value: 20}},
						Action: dlqListCmd,
					},
					{Name: "requeue", Action: dlqRequeueCmd},
				},
			},
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("posctl failed")
	}
}

// ── Connections ───────────────────────────────────────────────────────────────

func openDatabase() (*config.Config, *infra.Database, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := infra.NewDatabase(cfg.DSN(), infra.DatabaseOptions{
		MaxOpenConns:   4,
		MaxIdleConns:   1,
		ConnectTimeout: cfg.ConnectTimeout(),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	return cfg, db, nil
}

func openRedis() (*redis.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return infra.NewRedis(cfg.RedisURL, cfg.ConnectTimeout())
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── Commands ──────────────────────────────────────────────────────────────────

func migrateCmd(c *cli.Context) error {
	_, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := infra.Migrate(c.Context, db.DB)
	if err != nil {
		return err
	}
	log.Info().Strs("applied", applied).Msg("migrations up to date")
	return nil
}

func integridadService(db *gorm.DB) service.IntegridadService {
	return service.NewIntegridadService(repository.NewIntegridadRepository(db), repository.NewMesaRepository(db))
}

// alcance reads the optional --restaurante-id of the integridad command.
func alcance(c *cli.Context) (*uuid.UUID, error) {
	raw := c.String("restaurante-id")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("restaurante-id inválido: %s", raw), 1)
	}
	return &id, nil
}

func verificarCmd(c *cli.Context) error {
	restauranteID, err := alcance(c)
	if err != nil {
		return err
	}
	_, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := integridadService(db.DB).Verificar(c.Context, restauranteID)
	if err != nil {
		return err
	}
	if err := printJSON(res); err != nil {
		return err
	}
	if !res.Consistente {
		return cli.Exit(fmt.Sprintf("%d inconsistencias", res.Total), 2)
	}
	return nil
}

func reconciliarCmd(c *cli.Context) error {
	restauranteID, err := alcance(c)
	if err != nil {
		return err
	}
	_, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := integridadService(db.DB).Reconciliar(c.Context, restauranteID)
	if err != nil {
		return err
	}
	return printJSON(res)
}

func seedCmd(c *cli.Context) error {
	cfg, db, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := c.Context

	tenants := repository.NewTenantRepository(db.DB)

	rest, err := tenants.FindRestauranteByNombre(ctx, c.String("restaurante"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		rest = &model.Restaurante{Nombre: c.String("restaurante"), Activo: true}
		err = tenants.CreateRestaurante(ctx, rest)
	}
	if err != nil {
		return fmt.Errorf("restaurante: %w", err)
	}

	suc, err := tenants.FindSucursalByNombre(ctx, rest, c.String("sucursal"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		suc = &model.Sucursal{RestauranteID: rest.ID, Nombre: c.String("sucursal"), Activo: true}
		err = tenants.CreateSucursal(ctx, suc)
	}
	if err != nil {
		return fmt.Errorf("sucursal: %w", err)
	}

	auth := service.NewAuthService(repository.NewVendedorRepository(db.DB), cfg)
	admin := &model.Vendedor{
		RestauranteID: rest.ID,
		Username:      c.String("username"),
		Nombre:        "Administrador",
		Rol:           model.RolAdmin,
		Activo:        true,
	}
	switch err := auth.CrearVendedor(ctx, admin, c.String("password")); {
	case errors.Is(err, service.ErrConflicto):
		log.Info().Str("username", admin.Username).Msg("vendedor already exists, skipped")
	case err != nil:
		return fmt.Errorf("vendedor: %w", err)
	}

	metodos := service.NewMetodoPagoService(repository.NewMetodoPagoRepository(db.DB))
	for _, desc := range []string{"Efectivo", "Tarjeta de débito", "Tarjeta de crédito", "Transferencia"} {
		if _, err := metodos.Crear(ctx, dto.MetodoPagoRequest{Descripcion: desc}); err != nil && !errors.Is(err, service.ErrConflicto) {
			return fmt.Errorf("metodo de pago %q: %w", desc, err)
		}
	}

	log.Info().
		Str("restaurante_id", rest.ID.String()).
		Str("sucursal_id", suc.ID.String()).
		Str("username", admin.Username).
		Msg("seed complete")
	return nil
}

func hashPasswordCmd(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("usage: posctl hash-password <password>", 1)
	}
	h, err := bcrypt.GenerateFromPassword([]byte(c.Args().First()), service.BcryptCost)
	if err != nil {
		return err
	}
	fmt.Println(string(h))
	return nil
}

func dlqListCmd(c *cli.Context) error {
	rdb, err := openRedis()
	if err != nil {
		return err
	}
	defer rdb.Close()

	n, err := worker.DLQLength(c.Context, rdb, worker.QueueCuenta)
	if err != nil {
		return err
	}
	entries, err := worker.ListDLQ(c.Context, rdb, worker.QueueCuenta, c.Int64("limit"))
	if err != nil {
		return err
	}
	log.Info().Int64("total", n).Int("shown", len(entries)).Msg("dead letter queue")
	return printJSON(entries)
}

func dlqRequeueCmd(c *cli.Context) error {
	rdb, err := openRedis()
	if err != nil {
		return err
	}
	defer rdb.Close()

	moved, err := worker.RequeueDLQ(c.Context, rdb, worker.QueueCuenta)
	if err != nil {
		return err
	}
	log.Info().Int("moved", moved).Msg("dead letter queue requeued")
	return nil
}
