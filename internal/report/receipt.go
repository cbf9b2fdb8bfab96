package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"

	"retailhub/backend/internal/domain"
)

type ReceiptLine struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

type Receipt struct {
	StoreName     string          `json:"store_name"`
	StorePhone    string          `json:"store_phone"`
	StoreAddress  string          `json:"store_address"`
	TaxID         string          `json:"tax_id,omitempty"`
	SaleID        string          `json:"sale_id"`
	Number        string          `json:"number"`
	Customer      string          `json:"customer"`
	PaymentMethod string          `json:"payment_method"`
	IssuedAt      time.Time       `json:"issued_at"`
	Currency      string          `json:"currency"`
	Lines         []ReceiptLine   `json:"lines"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
}

// BuildReceipt formats a sale for printing. A sale without lines yields an
// empty item table.
func BuildReceipt(settings domain.StoreSettings, sale domain.Sale) Receipt {
	r := Receipt{
		StoreName:     settings.Name,
		StorePhone:    settings.Phone,
		StoreAddress:  settings.Address,
		TaxID:         settings.TaxID,
		SaleID:        sale.ID,
		Number:        ShortID(sale.ID),
		Customer:      sale.CustomerName,
		PaymentMethod: sale.PaymentMethod,
		IssuedAt:      sale.CreatedAt,
		Currency:      settings.CurrencySymbol(),
		Lines:         make([]ReceiptLine, 0, len(sale.Lines)),
		Discount:      sale.Discount,
		Total:         sale.Total,
	}
	if r.Customer == "" {
		r.Customer = domain.GuestCustomerLabel
	}
	for _, line := range sale.Lines {
		total := line.Total
		if total.IsZero() {
			total = line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		}
		r.Lines = append(r.Lines, ReceiptLine{
			Name:      line.ProductName,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Total:     total,
		})
		r.Subtotal = r.Subtotal.Add(total)
	}
	return r
}

// ShortID is the first dash-separated group of id, upper-cased.
func ShortID(id string) string {
	short, _, _ := strings.Cut(id, "-")
	return strings.ToUpper(short)
}

// ReceiptFileName is STORE-NAME-SHORTID.pdf.
func ReceiptFileName(storeName string, saleID string) string {
	name := strings.ToUpper(strings.Join(strings.Fields(storeName), "-"))
	if name == "" {
		name = "RECEIPT"
	}
	return name + "-" + ShortID(saleID) + ".pdf"
}

const (
	receiptWidth  = 80.0
	receiptMargin = 4.0
	lineHeight    = 5.0
)

// RenderReceiptPDF writes an 80 mm wide receipt whose height follows the
// number of lines.
func RenderReceiptPDF(w io.Writer, r Receipt) error {
	height := 75 + float64(len(r.Lines))*lineHeight
	if !r.Discount.IsZero() {
		height += lineHeight
	}
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: receiptWidth, Ht: height},
	})
	pdf.SetMargins(receiptMargin, receiptMargin, receiptMargin)
	pdf.SetAutoPageBreak(false, receiptMargin)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	contentW := receiptWidth - 2*receiptMargin
	money := func(v decimal.Decimal) string { return tr(r.Currency + v.StringFixed(2)) }

	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(contentW, 7, tr(r.StoreName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	for _, info := range []string{r.StoreAddress, r.StorePhone} {
		if info != "" {
			pdf.CellFormat(contentW, 4, tr(info), "", 1, "C", false, 0, "")
		}
	}
	if r.TaxID != "" {
		pdf.CellFormat(contentW, 4, tr("Tax ID: "+r.TaxID), "", 1, "C", false, 0, "")
	}
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, "Receipt #"+r.Number, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, r.IssuedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 4, tr("Customer: "+r.Customer), "", 1, "L", false, 0, "")
	pdf.Ln(1)
	pdf.Line(receiptMargin, pdf.GetY(), receiptWidth-receiptMargin, pdf.GetY())
	pdf.Ln(1)

	colName := contentW * 0.46
	colQty := contentW * 0.12
	colPrice := contentW * 0.20
	colTotal := contentW * 0.22

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(colName, lineHeight, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(colQty, lineHeight, "Qty", "B", 0, "C", false, 0, "")
	pdf.CellFormat(colPrice, lineHeight, "Price", "B", 0, "R", false, 0, "")
	pdf.CellFormat(colTotal, lineHeight, "Total", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, line := range r.Lines {
		name := line.Name
		if len(name) > 24 {
			name = name[:23] + "."
		}
		pdf.CellFormat(colName, lineHeight, tr(name), "", 0, "L", false, 0, "")
		pdf.CellFormat(colQty, lineHeight, fmt.Sprintf("%d", line.Quantity), "", 0, "C", false, 0, "")
		pdf.CellFormat(colPrice, lineHeight, money(line.UnitPrice), "", 0, "R", false, 0, "")
		pdf.CellFormat(colTotal, lineHeight, money(line.Total), "", 1, "R", false, 0, "")
	}

	pdf.Ln(1)
	pdf.Line(receiptMargin, pdf.GetY(), receiptWidth-receiptMargin, pdf.GetY())
	pdf.Ln(1)

	labelW := contentW - colTotal
	pdf.CellFormat(labelW, lineHeight, "Subtotal", "", 0, "L", false, 0, "")
	pdf.CellFormat(colTotal, lineHeight, money(r.Subtotal), "", 1, "R", false, 0, "")
	if !r.Discount.IsZero() {
		pdf.CellFormat(labelW, lineHeight, "Discount", "", 0, "L", false, 0, "")
		pdf.CellFormat(colTotal, lineHeight, "-"+money(r.Discount), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(labelW, 6, "TOTAL", "", 0, "L", false, 0, "")
	pdf.CellFormat(colTotal, 6, money(r.Total), "", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, tr("Paid by "+r.PaymentMethod), "", 1, "L", false, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	pdf.CellFormat(contentW, 4, "Thank you for your purchase!", "", 1, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render receipt %s: %w", r.Number, err)
	}
	return nil
}
