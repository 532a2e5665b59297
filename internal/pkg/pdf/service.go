// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/your-org/restaurant-backend/internal/config"
	"github.com/your-org/restaurant-backend/internal/domain/order"
)

// Service handles PDF generation
type Service struct {
	config *config.Config
}

// NewService creates a new PDF service
func NewService(cfg *config.Config) *Service {
	return &Service{
		config: cfg,
	}
}

// GenerateReceipt generates a PDF receipt for an order
func (s *Service) GenerateReceipt(o *order.Order) (*bytes.Buffer, error) {
	data := s.buildReceiptData(o)

	htmlContent, err := s.generateHTML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}

	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.Grayscale.Set(false)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.FooterRight.Set("[page]")
	page.FooterFontSize.Set(9)
	page.Zoom.Set(0.95)

	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

// generateHTML generates HTML content from template
func (s *Service) generateHTML(data ReceiptData) (string, error) {
	tmpl := template.Must(template.New("receipt").Parse(receiptTemplate))

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	return buf.String(), nil
}

// buildReceiptData pre-formats all monetary values so the template stays
// free of arithmetic
func (s *Service) buildReceiptData(o *order.Order) ReceiptData {
	data := ReceiptData{
		ReceiptNumber:  fmt.Sprintf("RCP-%s", o.OrderNumber),
		ReceiptDate:    time.Now().Format("January 2, 2006 15:04"),
		OrderNumber:    o.OrderNumber,
		OrderDate:      o.CreatedAt.Format("January 2, 2006 15:04"),
		Status:         string(o.Status),
		CustomerName:   o.CustomerName,
		DeliveryOption: string(o.DeliveryOption),
		Currency:       o.Currency,
		Subtotal:       o.Subtotal.Add(o.ModifierTotal).StringFixed(2),
		HasDiscount:    o.DiscountAmount.Add(o.CouponDiscount).Add(o.LoyaltyDiscount).IsPositive(),
		Discount:       o.DiscountAmount.Add(o.CouponDiscount).Add(o.LoyaltyDiscount).StringFixed(2),
		HasDeliveryFee: o.DeliveryFee.IsPositive(),
		DeliveryFee:    o.DeliveryFee.StringFixed(2),
		HasServiceFee:  o.ServiceFee.IsPositive(),
		ServiceFee:     o.ServiceFee.StringFixed(2),
		Tax:            o.TaxAmount.StringFixed(2),
		HasTip:         o.TipAmount.IsPositive(),
		Tip:            o.TipAmount.StringFixed(2),
		Total:          o.TotalAmount.StringFixed(2),
		Company: CompanyInfo{
			Name:    s.config.App.CompanyName,
			Address: s.config.App.CompanyAddress,
			Phone:   s.config.App.CompanyPhone,
			Email:   s.config.App.CompanyEmail,
			Website: s.config.App.CompanyWebsite,
		},
	}

	if o.TableID != nil {
		data.TableLabel = fmt.Sprintf("Table %d", *o.TableID)
	}

	for i := range o.Items {
		item := &o.Items[i]
		line := ReceiptLine{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice.StringFixed(2),
			LineTotal: item.LineTotal.StringFixed(2),
		}
		for _, mod := range item.Modifiers {
			line.Modifiers = append(line.Modifiers, fmt.Sprintf("%s x%d (%s)", mod.Name, mod.Quantity, mod.Price.StringFixed(2)))
		}
		data.Items = append(data.Items, line)
	}

	return data
}

// ReceiptData represents the data passed to the receipt template
type ReceiptData struct {
	ReceiptNumber  string
	ReceiptDate    string
	OrderNumber    string
	OrderDate      string
	Status         string
	CustomerName   string
	DeliveryOption string
	TableLabel     string
	Currency       string
	Items          []ReceiptLine
	Subtotal       string
	HasDiscount    bool
	Discount       string
	HasDeliveryFee bool
	DeliveryFee    string
	HasServiceFee  bool
	ServiceFee     string
	Tax            string
	HasTip         bool
	Tip            string
	Total          string
	Company        CompanyInfo
}

// ReceiptLine is one order item on the receipt
type ReceiptLine struct {
	Name      string
	Quantity  int
	UnitPrice string
	LineTotal string
	Modifiers []string
}

// CompanyInfo represents restaurant information
type CompanyInfo struct {
	Name    string
	Address string
	Phone   string
	Email   string
	Website string
}

// Receipt HTML template
const receiptTemplate = `
<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Receipt {{.ReceiptNumber}}</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            margin: 0;
            padding: 20px;
            color: #333;
        }
        .header {
            display: flex;
            justify-content: space-between;
            margin-bottom: 30px;
            border-bottom: 2px solid #eee;
            padding-bottom: 20px;
        }
        .company-info {
            flex: 1;
        }
        .receipt-info {
            text-align: right;
            flex: 1;
        }
        .receipt-title {
            font-size: 28px;
            font-weight: bold;
            color: #2563eb;
            margin-bottom: 10px;
        }
        .order-details {
            margin-bottom: 30px;
        }
        .order-details table {
            width: 100%;
        }
        .order-details td {
            padding: 5px 0;
            vertical-align: top;
        }
        .order-details .label {
            font-weight: bold;
            width: 150px;
        }
        .items-table {
            width: 100%;
            border-collapse: collapse;
            margin-bottom: 30px;
        }
        .items-table th,
        .items-table td {
            border: 1px solid #ddd;
            padding: 12px 8px;
            text-align: left;
        }
        .items-table th {
            background-color: #f8f9fa;
            font-weight: bold;
        }
        .items-table .qty-col,
        .items-table .price-col,
        .items-table .total-col {
            text-align: right;
            width: 80px;
        }
        .modifier {
            color: #666;
            font-size: 12px;
        }
        .totals {
            float: right;
            width: 300px;
        }
        .totals table {
            width: 100%;
            border-collapse: collapse;
        }
        .totals td {
            padding: 8px;
            border-bottom: 1px solid #eee;
        }
        .totals .label {
            text-align: right;
            font-weight: bold;
        }
        .totals .amount {
            text-align: right;
            width: 100px;
        }
        .total-row {
            font-size: 18px;
            font-weight: bold;
            border-top: 2px solid #333 !important;
        }
        .footer {
            margin-top: 50px;
            padding-top: 20px;
            border-top: 1px solid #eee;
            text-align: center;
            color: #666;
            font-size: 12px;
        }
    </style>
</head>
<body>
    <div class="header">
        <div class="company-info">
            <h1>{{.Company.Name}}</h1>
            <p>{{.Company.Address}}</p>
            <p>Phone: {{.Company.Phone}}</p>
            <p>Email: {{.Company.Email}}</p>
            <p>{{.Company.Website}}</p>
        </div>
        <div class="receipt-info">
            <div class="receipt-title">RECEIPT</div>
            <p><strong>Receipt #:</strong> {{.ReceiptNumber}}</p>
            <p><strong>Date:</strong> {{.ReceiptDate}}</p>
            <p><strong>Order #:</strong> {{.OrderNumber}}</p>
        </div>
    </div>

    <div class="order-details">
        <table>
            <tr>
                <td class="label">Order Date:</td>
                <td>{{.OrderDate}}</td>
                <td class="label" style="text-align: right;">Status:</td>
                <td style="text-align: right;">{{.Status}}</td>
            </tr>
            <tr>
                <td class="label">Customer:</td>
                <td>{{.CustomerName}}</td>
                <td class="label" style="text-align: right;">Service:</td>
                <td style="text-align: right;">{{.DeliveryOption}}{{if .TableLabel}} ({{.TableLabel}}){{end}}</td>
            </tr>
        </table>
    </div>

    <table class="items-table">
        <thead>
            <tr>
                <th>Item</th>
                <th class="qty-col">Qty</th>
                <th class="price-col">Price</th>
                <th class="total-col">Total</th>
            </tr>
        </thead>
        <tbody>
            {{range .Items}}
            <tr>
                <td>
                    <strong>{{.Name}}</strong>
                    {{range .Modifiers}}<br><small class="modifier">+ {{.}}</small>{{end}}
                </td>
                <td class="qty-col">{{.Quantity}}</td>
                <td class="price-col">{{.UnitPrice}}</td>
                <td class="total-col">{{.LineTotal}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="totals">
        <table>
            <tr>
                <td class="label">Subtotal:</td>
                <td class="amount">{{.Subtotal}}</td>
            </tr>
            {{if .HasDiscount}}
            <tr>
                <td class="label">Discount:</td>
                <td class="amount">-{{.Discount}}</td>
            </tr>
            {{end}}
            {{if .HasDeliveryFee}}
            <tr>
                <td class="label">Delivery Fee:</td>
                <td class="amount">{{.DeliveryFee}}</td>
            </tr>
            {{end}}
            {{if .HasServiceFee}}
            <tr>
                <td class="label">Service Fee:</td>
                <td class="amount">{{.ServiceFee}}</td>
            </tr>
            {{end}}
            <tr>
                <td class="label">Tax:</td>
                <td class="amount">{{.Tax}}</td>
            </tr>
            {{if .HasTip}}
            <tr>
                <td class="label">Tip:</td>
                <td class="amount">{{.Tip}}</td>
            </tr>
            {{end}}
            <tr class="total-row">
                <td class="label">Total ({{.Currency}}):</td>
                <td class="amount">{{.Total}}</td>
            </tr>
        </table>
    </div>

    <div style="clear: both;"></div>

    <div class="footer">
        <p>Thank you for dining with us!</p>
        <p>Questions about this receipt? Contact us at {{.Company.Email}} or {{.Company.Phone}}</p>
    </div>
</body>
</html>
`
