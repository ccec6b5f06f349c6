package infra

// pdf.go renders the prefactura (running bill of a mesa) as a receipt-style
// PDF using go-pdf/fpdf: header with the business name, mesa and session
// start, the grouped item table, the total and the per-venta breakdown.

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"restopos/internal/dto"

	"github.com/go-pdf/fpdf"
)

const (
	ticketWidth  = 74.0 // mm, close to thermal receipt paper
	ticketMargin = 4.0
)

// WritePrefacturaPDF renders p to w.
func WritePrefacturaPDF(w io.Writer, p *dto.PrefacturaResponse, negocio string) error {
	pdf := buildPrefacturaPDF(p, negocio)
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("pdf: render: %w", err)
	}
	return nil
}

// GeneratePrefacturaPDF writes the prefactura to storagePath (created if
// needed) and returns the path of the generated file.
func GeneratePrefacturaPDF(p *dto.PrefacturaResponse, storagePath, negocio string) (string, error) {
	if err := os.MkdirAll(storagePath, 0755); err != nil {
		return "", fmt.Errorf("pdf: create storage dir: %w", err)
	}
	nombre := fmt.Sprintf("prefactura_mesa%d_%s.pdf", p.MesaNumero, p.GeneradaEn.Format("20060102T150405"))
	if p.PrefacturaID != nil {
		nombre = fmt.Sprintf("prefactura_%s.pdf", *p.PrefacturaID)
	}
	filePath := filepath.Join(storagePath, nombre)

	pdf := buildPrefacturaPDF(p, negocio)
	if err := pdf.OutputFileAndClose(filePath); err != nil {
		return "", fmt.Errorf("pdf: write file: %w", err)
	}
	return filePath, nil
}

func buildPrefacturaPDF(p *dto.PrefacturaResponse, negocio string) *fpdf.Fpdf {
	// Height grows with the number of rows so the receipt stays on one page.
	alto := 70.0 + 5.0*float64(len(p.Items)) + 4.0*float64(len(p.Ventas))
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: ticketWidth, Ht: alto},
	})
	pdf.SetMargins(ticketMargin, ticketMargin, ticketMargin)
	pdf.SetAutoPageBreak(true, ticketMargin)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 2*ticketMargin

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, tr(negocio), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(contentW, 5, "Prefactura - no valido como factura", "", 1, "C", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, fmt.Sprintf("Mesa %d", p.MesaNumero), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	if !p.Desde.IsZero() {
		pdf.CellFormat(contentW, 4, "Desde: "+p.Desde.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(contentW, 4, "Emitida: "+p.GeneradaEn.Format("02/01/2006  15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	separator(pdf, pageW)

	// ── Items ────────────────────────────────────────────────────────────────
	col1 := contentW * 0.52
	col2 := contentW * 0.16
	col3 := contentW * 0.32

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Producto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 5, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col3, 5, "Subtotal", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, item := range p.Items {
		nombre := []rune(item.Producto)
		if len(nombre) > 22 {
			nombre = append(nombre[:21], '.')
		}
		pdf.CellFormat(col1, 5, tr(string(nombre)), "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, fmt.Sprintf("x%d", item.Cantidad), "", 0, "C", false, 0, "")
		pdf.CellFormat(col3, 5, "$"+item.Subtotal.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	separator(pdf, pageW)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "$"+p.Total.StringFixed(2), "", 1, "R", false, 0, "")

	// ── Ventas ───────────────────────────────────────────────────────────────
	if len(p.Ventas) > 0 {
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "", 6)
		for _, v := range p.Ventas {
			label := v.Fecha.Format("15:04")
			if v.Vendedor != "" {
				label += " " + v.Vendedor
			}
			pdf.CellFormat(col1+col2, 4, tr(label), "", 0, "L", false, 0, "")
			pdf.CellFormat(col3, 4, "$"+v.Total.StringFixed(2), "", 1, "R", false, 0, "")
		}
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, tr("¡Gracias por su visita!"), "", 1, "C", false, 0, "")
	return pdf
}

func separator(pdf *fpdf.Fpdf, pageW float64) {
	pdf.Line(ticketMargin, pdf.GetY(), pageW-ticketMargin, pdf.GetY())
	pdf.Ln(2)
}
