package infra

// pdf.go — printable lot labels using go-pdf/fpdf. A7-size labels with the
// lot number, product, quantity, lineage and expiry, rendered to a buffer so
// the handler can stream them without touching disk.

import (
	"bytes"
	"fmt"

	"github.com/erurang/wooyangcrm-sub005/internal/model"

	"github.com/go-pdf/fpdf"
)

// GenerateLotLabelPDF renders a printable label for one lot.
func GenerateLotLabelPDF(lot *model.Lot) ([]byte, error) {
	// A7 ≈ 74mm × 105mm — close to thermal label stock
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 74, Ht: 105},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(contentW, 7, lot.LotNumber, "", 1, "C", false, 0, "")

	if lot.Product != nil {
		pdf.SetFont("Helvetica", "", 9)
		name := lot.Product.InternalName
		if len(name) > 30 {
			name = name[:29] + "…"
		}
		pdf.CellFormat(contentW, 5, name, "", 1, "C", false, 0, "")
		pdf.SetFont("Helvetica", "", 7)
		pdf.CellFormat(contentW, 4, lot.Product.InternalCode, "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)

	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	labelW := contentW * 0.42
	valueW := contentW * 0.58

	row := func(label, value string) {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(labelW, 5, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 8)
		pdf.CellFormat(valueW, 5, value, "", 1, "R", false, 0, "")
	}

	row("Quantity:", fmt.Sprintf("%s %s", lot.CurrentQuantity.String(), lot.Unit))
	row("Status:", lot.Status)
	row("Received:", lot.ReceivedAt.Format("2006-01-02"))
	if lot.ExpiryDate != nil {
		row("Expiry:", lot.ExpiryDate.Format("2006-01-02"))
	}
	if lot.Location != nil && *lot.Location != "" {
		row("Location:", *lot.Location)
	}
	if lot.SourceLot != nil {
		row("Split from:", lot.SourceLot.LotNumber)
	}
	if lot.Supplier != nil {
		row("Supplier:", lot.Supplier.Name)
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "Scan or quote the lot number on all paperwork", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render label: %w", err)
	}
	return buf.Bytes(), nil
}
