package service

import (
	"context"
	"sort"
	"time"

	"restopos/internal/dto"
	"restopos/internal/metrics"
	"restopos/internal/model"
	"restopos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GrupoMesaService joins mesas of one sucursal into a party billed together.
// Every member keeps its own session and ventas; the grupo only adds a joint
// bill and a joint close. Locks are taken grupo first, then mesas by id.
type GrupoMesaService interface {
	Crear(ctx context.Context, a Actor, req dto.CrearGrupoMesaRequest) (*dto.GrupoMesaResponse, error)
	AgregarMesa(ctx context.Context, a Actor, id uuid.UUID, req dto.AgregarMesaGrupoRequest) (*dto.GrupoMesaResponse, error)
	RemoverMesa(ctx context.Context, a Actor, id, mesaID uuid.UUID) (*dto.GrupoMesaResponse, error)
	Obtener(ctx context.Context, a Actor, id uuid.UUID) (*dto.GrupoMesaResponse, error)
	Listar(ctx context.Context, a Actor, filter dto.GrupoMesaFilter) ([]dto.GrupoMesaResponse, error)
	GenerarPrefactura(ctx context.Context, a Actor, id uuid.UUID) (*dto.PrefacturaGrupoResponse, error)
	Cerrar(ctx context.Context, a Actor, id uuid.UUID, req dto.CerrarGrupoRequest) (*dto.CerrarGrupoResponse, error)
	Disolver(ctx context.Context, a Actor, id uuid.UUID) (*dto.GrupoMesaResponse, error)
}

type grupoMesaService struct {
	mesas   repository.MesaRepository
	metodos repository.MetodoPagoRepository
	now     func() time.Time
}

func NewGrupoMesaService(mesas repository.MesaRepository, metodos repository.MetodoPagoRepository) GrupoMesaService {
	return &grupoMesaService{mesas: mesas, metodos: metodos, now: time.Now}
}

func (s *grupoMesaService) clock() time.Time {
	return s.now().Truncate(time.Microsecond)
}

func (s *grupoMesaService) Crear(ctx context.Context, a Actor, req dto.CrearGrupoMesaRequest) (*dto.GrupoMesaResponse, error) {
	sucursalID, err := uuid.Parse(req.SucursalID)
	if err != nil {
		return nil, invalido("sucursal_id inválido")
	}
	ids, err := mesaIDsUnicos(req.MesaIDs)
	if err != nil {
		return nil, err
	}
	if len(ids) < 2 {
		return nil, invalido("un grupo necesita al menos 2 mesas")
	}
	ok, err := s.mesas.SucursalDeRestaurante(ctx, a.RestauranteID, sucursalID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, noEncontrado("sucursal no encontrada")
	}

	mesero := a.VendedorID
	g := &model.GrupoMesa{
		RestauranteID: a.RestauranteID,
		SucursalID:    sucursalID,
		MeseroID:      &mesero,
		Estado:        model.GrupoAbierto,
	}
	var miembros []model.Mesa
	err = runTx(ctx, s.mesas.DB(), func(tx *gorm.DB) error {
		repo := s.mesas.WithTx(tx)
		if err := repo.CreateGrupo(ctx, g); err != nil {
			return err
		}
		now := s.clock()
		for _, id := range ids {
			m, err := repo.LockByID(ctx, a.RestauranteID, id)
			if err != nil {
				return notFoundOr(err, "mesa no encontrada")
			}
			if err := unirMesa(ctx, repo, g, m, mesero, now); err != nil {
				return err
			}
			miembros = append(miembros, *m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(miembros, func(i, j int) bool { return miembros[i].Numero < miembros[j].Numero })

	metrics.MesaTransiciones.WithLabelValues("agrupar").Inc()
	log.Info().
		Str("grupo_id", g.ID.String()).
		Int("mesas", len(miembros)).
		Msg("grupo de mesas creado")
	return grupoToResponse(g, miembros), nil
}

func (s *grupoMesaService) AgregarMesa(ctx context.Context, a Actor, id uuid.UUID, req dto.AgregarMesaGrupoRequest) (*dto.GrupoMesaResponse, error) {
	mesaID, err := uuid.Parse(req.MesaID)
	if err != nil {
		return nil, invalido("mesa_id inválido")
	}
	var (
		g        *model.GrupoMesa
		miembros []model.Mesa
	)
	err = runTx(ctx, s.mesas.DB(), func(tx *gorm.DB) error {
		repo := s.mesas.WithTx(tx)
		var err error
		if g, err = lockGrupoAbierto(ctx, repo, a, id); err != nil {
			return err
		}
		m, err := repo.LockByID(ctx, a.RestauranteID, mesaID)
		if err != nil {
			return notFoundOr(err, "mesa no encontrada")
		}
		if m.GrupoMesaID != nil && *m.GrupoMesaID == g.ID {
			return conflicto("la mesa %d ya está en el grupo", m.Numero)
		}
		if err := unirMesa(ctx, repo, g, m, a.VendedorID, s.clock()); err != nil {
			return err
		}
		miembros, err = repo.ListByGrupo(ctx, g.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("grupo_id", g.ID.String()).Str("mesa_id", mesaID.String()).Msg("mesa agregada al grupo")
	return grupoToResponse(g, miembros), nil
}

// RemoverMesa takes a mesa out of the grupo. Its session goes on as an
// individual one. The last two members cannot be split; use Disolver.
func (s *grupoMesaService) RemoverMesa(ctx context.Context, a Actor, id, mesaID uuid.UUID) (*dto.GrupoMesaResponse, error) {
	var (
		g        *model.GrupoMesa
		miembros []model.Mesa
	)
	err := runTx(ctx, s.mesas.DB(), func(tx *gorm.DB) error {
		repo := s.mesas.WithTx(tx)
		var err error
		if g, err = lockGrupoAbierto(ctx, repo, a, id); err != nil {
			return err
		}
		m, err := repo.LockByID(ctx, a.RestauranteID, mesaID)
		if err != nil {
			return notFoundOr(err, "mesa no encontrada")
		}
		if m.GrupoMesaID == nil || *m.GrupoMesaID != g.ID {
			return invalido("la mesa %d no pertenece al grupo", m.Numero)
		}
		actuales, err := repo.ListByGrupo(ctx, g.ID)
		if err != nil {
			return err
		}
		if len(actuales) <= 2 {
			return estadoInvalido("un grupo necesita al menos 2 mesas; disuelva el grupo")
		}
		m.GrupoMesaID = nil
		if err := repo.Save(ctx, m); err != nil {
			return err
		}
		miembros, err = repo.ListByGrupo(ctx, g.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	log.Info().Str("grupo_id", g.ID.String()).Str("mesa_id", mesaID.String()).Msg("mesa removida del grupo")
	return grupoToResponse(g, miembros), nil
}

func (s *grupoMesaService) Obtener(ctx context.Context, a Actor, id uuid.UUID) (*dto.GrupoMesaResponse, error) {
	g, err := s.mesas.FindGrupo(ctx, a.RestauranteID, id)
	if err != nil {
		return nil, notFoundOr(err, "grupo no encontrado")
	}
	miembros, err := s.mesas.ListByGrupo(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	return grupoToResponse(g, miembros), nil
}

func (s *grupoMesaService) Listar(ctx context.Context, a Actor, filter dto.GrupoMesaFilter) ([]dto.GrupoMesaResponse, error) {
	grupos, err := s.mesas.ListGrupos(ctx, a.RestauranteID, filter)
	if err != nil {
		return nil, err
	}
	out := make([]dto.GrupoMesaResponse, 0, len(grupos))
	for i := range grupos {
		miembros, err := s.mesas.ListByGrupo(ctx, grupos[i].ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *grupoToResponse(&grupos[i], miembros))
	}
	return out, nil
}

func (s *grupoMesaService) GenerarPrefactura(ctx context.Context, a Actor, id uuid.UUID) (*dto.PrefacturaGrupoResponse, error) {
	g, err := s.mesas.FindGrupo(ctx, a.RestauranteID, id)
	if err != nil {
		return nil, notFoundOr(err, "grupo no encontrado")
	}
	miembros, err := s.mesas.ListByGrupo(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	bills := make([]*dto.PrefacturaResponse, 0, len(miembros))
	for i := range miembros {
		pf, err := prefacturaDeMesa(ctx, s.mesas, &miembros[i], now)
		if err != nil {
			return nil, err
		}
		bills = append(bills, pf)
	}
	return MergePrefacturas(g, bills, now), nil
}

// Cerrar closes every member session in one transaction with the same
// payment method and final estado, then marks the grupo cerrado. The joint
// bill returned is the one in force just before closing.
func (s *grupoMesaService) Cerrar(ctx context.Context, a Actor, id uuid.UUID, req dto.CerrarGrupoRequest) (*dto.CerrarGrupoResponse, error) {
	metodoID, err := metodoPagoActivo(ctx, s.metodos, req.MetodoPagoID)
	if err != nil {
		return nil, err
	}
	estado := model.PrefacturaCerrada
	if req.Facturar {
		estado = model.PrefacturaFacturada
	}

	var (
		g        *model.GrupoMesa
		miembros []model.Mesa
		bills    []*dto.PrefacturaResponse
		ids      []string
		total    = decimal.Zero
	)
	now := s.clock()
	err = runTx(ctx, s.mesas.DB(), func(tx *gorm.DB) error {
		repo := s.mesas.WithTx(tx)
		var err error
		if g, err = lockGrupoAbierto(ctx, repo, a, id); err != nil {
			return err
		}
		if miembros, err = lockMiembros(ctx, repo, a, g); err != nil {
			return err
		}
		for i := range miembros {
			m := &miembros[i]
			cerrada, snapshot, err := cobrarSesion(ctx, repo, m, metodoID, estado, now)
			if err != nil {
				return err
			}
			bills = append(bills, snapshot)
			ids = append(ids, cerrada.ID.String())
			total = total.Add(cerrada.TotalAcumulado)
		}
		g.Estado = model.GrupoCerrado
		g.FechaCierre = &now
		return repo.SaveGrupo(ctx, g)
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(bills, func(i, j int) bool { return bills[i].MesaNumero < bills[j].MesaNumero })
	metrics.MesaTransiciones.WithLabelValues("cerrar_grupo").Inc()
	log.Info().
		Str("grupo_id", g.ID.String()).
		Int("mesas", len(miembros)).
		Str("total", total.StringFixed(2)).
		Msg("grupo de mesas cerrado")
	return &dto.CerrarGrupoResponse{
		Grupo:         *grupoToResponse(g, miembros),
		Estado:        estado,
		Total:         total,
		PrefacturaIDs: ids,
		Prefactura:    MergePrefacturas(g, bills, now),
	}, nil
}

// Disolver ends the grupo without closing anything: every member goes on
// with its own session.
func (s *grupoMesaService) Disolver(ctx context.Context, a Actor, id uuid.UUID) (*dto.GrupoMesaResponse, error) {
	var (
		g        *model.GrupoMesa
		miembros []model.Mesa
	)
	err := runTx(ctx, s.mesas.DB(), func(tx *gorm.DB) error {
		repo := s.mesas.WithTx(tx)
		var err error
		if g, err = lockGrupoAbierto(ctx, repo, a, id); err != nil {
			return err
		}
		if miembros, err = lockMiembros(ctx, repo, a, g); err != nil {
			return err
		}
		for i := range miembros {
			miembros[i].GrupoMesaID = nil
			if err := repo.Save(ctx, &miembros[i]); err != nil {
				return err
			}
		}
		now := s.clock()
		g.Estado = model.GrupoDisuelto
		g.FechaCierre = &now
		return repo.SaveGrupo(ctx, g)
	})
	if err != nil {
		return nil, err
	}
	metrics.MesaTransiciones.WithLabelValues("disolver_grupo").Inc()
	log.Info().Str("grupo_id", g.ID.String()).Int("mesas", len(miembros)).Msg("grupo de mesas disuelto")
	return grupoToResponse(g, miembros), nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// unirMesa adds m to g. A libre mesa gets its session opened for mesero;
// a seated one keeps the session it has.
func unirMesa(ctx context.Context, repo repository.MesaRepository, g *model.GrupoMesa, m *model.Mesa, mesero uuid.UUID, now time.Time) error {
	if m.SucursalID != g.SucursalID {
		return invalido("la mesa %d es de otra sucursal", m.Numero)
	}
	if m.GrupoMesaID != nil {
		return conflicto("la mesa %d ya pertenece a otro grupo", m.Numero)
	}
	id := g.ID
	switch m.Estado {
	case model.MesaLibre:
		m.GrupoMesaID = &id
		return abrirSesion(ctx, repo, m, mesero, now)
	case model.MesaEnUso, model.MesaPendienteCobro:
		m.GrupoMesaID = &id
		return repo.Save(ctx, m)
	default:
		return estadoInvalido("la mesa %d no se puede agrupar (estado: %s)", m.Numero, m.Estado)
	}
}

func lockGrupoAbierto(ctx context.Context, repo repository.MesaRepository, a Actor, id uuid.UUID) (*model.GrupoMesa, error) {
	g, err := repo.LockGrupo(ctx, a.RestauranteID, id)
	if err != nil {
		return nil, notFoundOr(err, "grupo no encontrado")
	}
	if g.Estado != model.GrupoAbierto {
		return nil, estadoInvalido("el grupo está %s", g.Estado)
	}
	return g, nil
}

// lockMiembros locks g's mesas in id order and returns them by numero.
func lockMiembros(ctx context.Context, repo repository.MesaRepository, a Actor, g *model.GrupoMesa) ([]model.Mesa, error) {
	actuales, err := repo.ListByGrupo(ctx, g.ID)
	if err != nil {
		return nil, err
	}
	sort.Slice(actuales, func(i, j int) bool { return actuales[i].ID.String() < actuales[j].ID.String() })
	out := make([]model.Mesa, 0, len(actuales))
	for _, m := range actuales {
		locked, err := repo.LockByID(ctx, a.RestauranteID, m.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, *locked)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Numero < out[j].Numero })
	return out, nil
}

// mesaIDsUnicos parses ids sorted for lock order, rejecting repeats.
func mesaIDsUnicos(raw []string) ([]uuid.UUID, error) {
	seen := make(map[uuid.UUID]bool, len(raw))
	ids := make([]uuid.UUID, 0, len(raw))
	for _, r := range raw {
		id, err := uuid.Parse(r)
		if err != nil {
			return nil, invalido("mesa_id inválido: %s", r)
		}
		if seen[id] {
			return nil, invalido("la mesa %s está repetida", r)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func grupoToResponse(g *model.GrupoMesa, miembros []model.Mesa) *dto.GrupoMesaResponse {
	resp := &dto.GrupoMesaResponse{
		ID:          g.ID.String(),
		SucursalID:  g.SucursalID.String(),
		Estado:      g.Estado,
		MeseroID:    uuidString(g.MeseroID),
		Mesas:       make([]dto.MesaResponse, 0, len(miembros)),
		Total:       decimal.Zero,
		CreatedAt:   g.CreatedAt.Format(time.RFC3339),
		FechaCierre: formatTime(g.FechaCierre),
	}
	for i := range miembros {
		resp.Mesas = append(resp.Mesas, *mesaToResponse(&miembros[i]))
		resp.Total = resp.Total.Add(miembros[i].TotalAcumulado)
	}
	return resp
}
