package model

// Mesa estados.
const (
	MesaLibre          = "libre"
	MesaEnUso          = "en_uso"
	MesaPendienteCobro = "pendiente_cobro"
	MesaReservada      = "reservada"
	MesaMantenimiento  = "mantenimiento"
)

// Venta estados. The enum mixes the kitchen workflow (recibido →
// listo_para_servir → entregado) with the billing workflow.
const (
	VentaRecibido        = "recibido"
	VentaEnPreparacion   = "en_preparacion"
	VentaListoParaServir = "listo_para_servir"
	VentaEntregado       = "entregado"
	VentaAbierta         = "abierta"
	VentaEnUso           = "en_uso"
	VentaPendienteCobro  = "pendiente_cobro"
	VentaCompletada      = "completada"
	VentaPendiente       = "pendiente"
	VentaPagado          = "pagado"
	VentaCancelado       = "cancelado"
	VentaCerrada         = "cerrada"
)

// Prefactura estados.
const (
	PrefacturaAbierta   = "abierta"
	PrefacturaCerrada   = "cerrada"
	PrefacturaFacturada = "facturada"
)

// GrupoMesa estados.
const (
	GrupoAbierto  = "abierto"
	GrupoCerrado  = "cerrado"
	GrupoDisuelto = "disuelto"
)

// Reserva estados.
const (
	ReservaPendiente  = "pendiente"
	ReservaConfirmada = "confirmada"
	ReservaCancelada  = "cancelada"
	ReservaCompletada = "completada"
	ReservaNoShow     = "no_show"
)

// Vendedor roles.
const (
	RolAdmin  = "admin"
	RolCajero = "cajero"
	RolMesero = "mesero"
)

var estadosMesa = map[string]bool{
	MesaLibre: true, MesaEnUso: true, MesaPendienteCobro: true,
	MesaReservada: true, MesaMantenimiento: true,
}

var estadosVenta = map[string]bool{
	VentaRecibido: true, VentaEnPreparacion: true, VentaListoParaServir: true,
	VentaEntregado: true, VentaAbierta: true, VentaEnUso: true,
	VentaPendienteCobro: true, VentaCompletada: true, VentaPendiente: true,
	VentaPagado: true, VentaCancelado: true, VentaCerrada: true,
}

// EstadosVentaActivos are the venta estados that count toward a mesa's
// running balance. Everything else (cancelado, cerrada) is excluded.
var EstadosVentaActivos = []string{
	VentaRecibido,
	VentaEnPreparacion,
	VentaListoParaServir,
	VentaEntregado,
	VentaAbierta,
	VentaEnUso,
	VentaPendienteCobro,
	VentaCompletada,
	VentaPendiente,
	VentaPagado,
}

var estadosVentaActivos = func() map[string]bool {
	m := make(map[string]bool, len(EstadosVentaActivos))
	for _, e := range EstadosVentaActivos {
		m[e] = true
	}
	return m
}()

// EstadoMesaValido reports whether e is a known mesa estado.
func EstadoMesaValido(e string) bool { return estadosMesa[e] }

// EstadoVentaValido reports whether e is a known venta estado.
func EstadoVentaValido(e string) bool { return estadosVenta[e] }

// EstadoVentaActivo reports whether a venta in estado e counts toward the
// mesa's balance.
func EstadoVentaActivo(e string) bool { return estadosVentaActivos[e] }

// EstadosVenta returns every valid venta estado (order is not significant).
func EstadosVenta() []string {
	out := make([]string, 0, len(estadosVenta))
	for e := range estadosVenta {
		out = append(out, e)
	}
	return out
}

// transicionesMesa lists the allowed mesa lifecycle edges.
var transicionesMesa = map[string][]string{
	MesaLibre:          {MesaEnUso, MesaReservada, MesaMantenimiento},
	MesaReservada:      {MesaEnUso, MesaLibre},
	MesaMantenimiento:  {MesaLibre},
	MesaEnUso:          {MesaPendienteCobro, MesaLibre},
	MesaPendienteCobro: {MesaEnUso, MesaLibre},
}

// PuedeTransicionar reports whether a mesa may move from one estado to another.
// Staying in the same estado is always allowed.
func PuedeTransicionar(desde, hacia string) bool {
	if desde == hacia {
		return EstadoMesaValido(desde)
	}
	for _, e := range transicionesMesa[desde] {
		if e == hacia {
			return true
		}
	}
	return false
}
