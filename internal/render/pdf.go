package render

import (
	"bytes"
	"fmt"
	"strconv"

	"codeberg.org/go-pdf/fpdf"

	"github.com/Lixing-Zhang/menu-extractor/internal/models"
)

const (
	pdfMargin     = 15.0
	pdfLineHeight = 7.0
)

type rgb struct {
	r, g, b int
}

// parseHex reads #rrggbb; anything else yields def
func parseHex(s string, def rgb) rgb {
	if len(s) != 7 || s[0] != '#' {
		return def
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return def
	}
	return rgb{int(v >> 16 & 0xff), int(v >> 8 & 0xff), int(v & 0xff)}
}

// PDF renders the static view of doc as an A4 document.
// Text is translated to cp1252, so characters outside it are replaced.
func PDF(doc *models.MenuDocument, theme models.ColorTheme) ([]byte, error) {
	view := newPage(doc, theme, false)
	primary := parseHex(view.Colors.Primary, rgb{59, 130, 246})
	secondary := parseHex(view.Colors.Secondary, rgb{29, 78, 216})
	itemName := parseHex(view.Colors.ItemName, rgb{31, 41, 55})
	description := parseHex(view.Colors.Description, rgb{75, 85, 99})

	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	title := view.RestaurantName
	if title == "" {
		title = "Restaurant Menu"
	}
	pdf.SetTitle(title, true)
	pdf.SetCreator("menu-extractor", true)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin+10)

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMargin - 5)
		pdf.SetFont("Helvetica", "", 8)
		pdf.SetTextColor(description.r, description.g, description.b)
		pdf.CellFormat(0, 5, tr("Menu generated by AI."), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pageWidth, _ := pdf.GetPageSize()
	contentWidth := pageWidth - 2*pdfMargin

	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(primary.r, primary.g, primary.b)
	pdf.MultiCell(0, 12, tr(title), "", "C", false)
	pdf.SetDrawColor(primary.r, primary.g, primary.b)
	pdf.SetLineWidth(0.6)
	y := pdf.GetY() + 2
	pdf.Line(pdfMargin, y, pageWidth-pdfMargin, y)
	pdf.SetY(y + 8)

	for _, cat := range view.Categories {
		if cat.Name == "" || len(cat.Items) == 0 {
			continue
		}

		pdf.SetFont("Helvetica", "B", 16)
		pdf.SetTextColor(secondary.r, secondary.g, secondary.b)
		pdf.SetFillColor(secondary.r, secondary.g, secondary.b)
		pdf.Rect(pdfMargin, pdf.GetY()+1, 1.2, 8, "F")
		pdf.SetX(pdfMargin + 3)
		pdf.MultiCell(contentWidth-3, 10, tr(cat.Name), "", "L", false)
		pdf.Ln(2)

		for _, item := range cat.Items {
			name := item.Name
			if name == "" {
				name = "Unnamed dish"
			}

			pdf.SetFont("Helvetica", "B", 12)
			price := tr(item.Price)
			priceWidth := pdf.GetStringWidth(price) + 2

			pdf.SetTextColor(itemName.r, itemName.g, itemName.b)
			pdf.CellFormat(contentWidth-priceWidth, pdfLineHeight, tr(name), "", 0, "L", false, 0, "")
			pdf.SetTextColor(primary.r, primary.g, primary.b)
			pdf.CellFormat(priceWidth, pdfLineHeight, price, "", 1, "R", false, 0, "")

			if item.Description != "" {
				pdf.SetFont("Helvetica", "", 10)
				pdf.SetTextColor(description.r, description.g, description.b)
				pdf.MultiCell(contentWidth-priceWidth, 5, tr(item.Description), "", "L", false)
			}
			pdf.Ln(3)
		}
		pdf.Ln(4)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return buf.Bytes(), nil
}
