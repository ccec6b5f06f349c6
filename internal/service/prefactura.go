package service

import (
	"sort"
	"strings"
	"time"

	"restopos/internal/dto"
	"restopos/internal/model"

	"github.com/shopspring/decimal"
)

// BuildPrefactura assembles the itemized bill of a mesa from the ventas
// recorded since desde. It is a pure function of its inputs: the same
// arguments always produce the same bill.
//
// Ventas outside the active estado set are dropped even when they carry
// lines. A venta without lines is listed with its total and contributes no
// items. Lines are grouped by producto name in order of first appearance, so
// a replaced producto that kept its name shares a row with its predecessor;
// the row carries the first producto_id seen.
func BuildPrefactura(m *model.Mesa, pf *model.Prefactura, desde time.Time, ventas []model.Venta, ahora time.Time) *dto.PrefacturaResponse {
	activas := make([]model.Venta, 0, len(ventas))
	for _, v := range ventas {
		if v.Fecha.Before(desde) || !model.EstadoVentaActivo(v.Estado) {
			continue
		}
		activas = append(activas, v)
	}
	sort.SliceStable(activas, func(i, j int) bool {
		if !activas[i].Fecha.Equal(activas[j].Fecha) {
			return activas[i].Fecha.Before(activas[j].Fecha)
		}
		return activas[i].ID.String() < activas[j].ID.String()
	})

	resp := &dto.PrefacturaResponse{
		MesaID:      m.ID.String(),
		MesaNumero:  m.Numero,
		SucursalID:  m.SucursalID.String(),
		EstadoMesa:  m.Estado,
		Desde:       desde,
		Ventas:      make([]dto.PrefacturaVenta, 0, len(activas)),
		Items:       []dto.PrefacturaItem{},
		Total:       decimal.Zero,
		TotalVentas: decimal.Zero,
		TotalMesa:   m.TotalAcumulado,
		GeneradaEn:  ahora,
	}
	if pf != nil {
		id := pf.ID.String()
		resp.PrefacturaID = &id
	}

	var items agrupador
	for _, v := range activas {
		pv := dto.PrefacturaVenta{
			ID:             v.ID.String(),
			MesaNumero:     m.Numero,
			Fecha:          v.Fecha,
			Estado:         v.Estado,
			Total:          v.Total,
			VendedorID:     v.VendedorID.String(),
			CantidadLineas: len(v.Detalles),
		}
		if v.Vendedor != nil {
			pv.Vendedor = v.Vendedor.Nombre
		}
		resp.Ventas = append(resp.Ventas, pv)
		resp.TotalVentas = resp.TotalVentas.Add(v.Total)

		for _, d := range v.Detalles {
			nombre := ""
			if d.Producto != nil {
				nombre = d.Producto.Nombre
			}
			nota := ""
			if d.Observaciones != nil {
				nota = *d.Observaciones
			}
			sub := d.CalcularSubtotal()
			items.sumar(d.ProductoID.String(), nombre, d.Cantidad, d.PrecioUnitario, sub, nota)
			resp.Total = resp.Total.Add(sub)
		}
	}
	resp.Items = items.lista()

	resp.Consistente = resp.Total.Equal(resp.TotalVentas) && resp.Total.Equal(resp.TotalMesa)
	return resp
}

// MergePrefacturas joins the bills of a grupo's members. Ventas keep the
// (fecha, id) order across mesas and items are regrouped by producto name.
// The joint bill is consistent when every member bill is and the three
// totals agree.
func MergePrefacturas(g *model.GrupoMesa, mesas []*dto.PrefacturaResponse, ahora time.Time) *dto.PrefacturaGrupoResponse {
	resp := &dto.PrefacturaGrupoResponse{
		GrupoID:     g.ID.String(),
		SucursalID:  g.SucursalID.String(),
		EstadoGrupo: g.Estado,
		Mesas:       make([]int, 0, len(mesas)),
		Ventas:      []dto.PrefacturaVenta{},
		Items:       []dto.PrefacturaItem{},
		Total:       decimal.Zero,
		TotalVentas: decimal.Zero,
		TotalMesas:  decimal.Zero,
		Consistente: true,
		GeneradaEn:  ahora,
		PorMesa:     make([]dto.PrefacturaResponse, 0, len(mesas)),
	}

	var items agrupador
	for _, pf := range mesas {
		resp.Mesas = append(resp.Mesas, pf.MesaNumero)
		resp.Ventas = append(resp.Ventas, pf.Ventas...)
		for _, it := range pf.Items {
			items.sumar(it.ProductoID, it.Producto, it.Cantidad, it.PrecioUnitario, it.Subtotal, it.Observaciones)
		}
		resp.Total = resp.Total.Add(pf.Total)
		resp.TotalVentas = resp.TotalVentas.Add(pf.TotalVentas)
		resp.TotalMesas = resp.TotalMesas.Add(pf.TotalMesa)
		resp.Consistente = resp.Consistente && pf.Consistente
		resp.PorMesa = append(resp.PorMesa, *pf)
	}
	sort.SliceStable(resp.Ventas, func(i, j int) bool {
		if !resp.Ventas[i].Fecha.Equal(resp.Ventas[j].Fecha) {
			return resp.Ventas[i].Fecha.Before(resp.Ventas[j].Fecha)
		}
		return resp.Ventas[i].ID < resp.Ventas[j].ID
	})
	resp.Items = items.lista()
	resp.Consistente = resp.Consistente &&
		resp.Total.Equal(resp.TotalVentas) && resp.Total.Equal(resp.TotalMesas)
	return resp
}

// agrupador accumulates bill lines keyed by producto name, falling back to
// the producto_id when the name is unknown. Rows keep first-appearance order.
type agrupador struct {
	grupos map[string]*lineaAgrupada
	orden  []string
}

type lineaAgrupada struct {
	item    dto.PrefacturaItem
	precios map[string]bool
	notas   []string
}

func (a *agrupador) sumar(productoID, nombre string, cantidad int, precio, subtotal decimal.Decimal, nota string) {
	if a.grupos == nil {
		a.grupos = map[string]*lineaAgrupada{}
	}
	key := nombre
	if key == "" {
		key = productoID
	}
	g, ok := a.grupos[key]
	if !ok {
		g = &lineaAgrupada{
			item: dto.PrefacturaItem{
				ProductoID:     productoID,
				Producto:       nombre,
				PrecioUnitario: precio,
				Subtotal:       decimal.Zero,
			},
			precios: map[string]bool{},
		}
		a.grupos[key] = g
		a.orden = append(a.orden, key)
	}
	g.item.Cantidad += cantidad
	g.item.Subtotal = g.item.Subtotal.Add(subtotal)
	g.precios[precio.StringFixed(2)] = true
	if nota = strings.TrimSpace(nota); nota != "" {
		g.notas = append(g.notas, nota)
	}
}

func (a *agrupador) lista() []dto.PrefacturaItem {
	items := make([]dto.PrefacturaItem, 0, len(a.orden))
	for _, key := range a.orden {
		g := a.grupos[key]
		// Mixed prices inside one group: report the effective unit price.
		if len(g.precios) > 1 && g.item.Cantidad > 0 {
			g.item.PrecioUnitario = g.item.Subtotal.Div(decimal.NewFromInt(int64(g.item.Cantidad))).Round(2)
		}
		g.item.Observaciones = strings.Join(g.notas, " | ")
		items = append(items, g.item)
	}
	return items
}
