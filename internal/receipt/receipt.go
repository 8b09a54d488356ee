// Package receipt renders the printable comprobante of a closed sale.
package receipt

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"papelpos/backend/internal/domain"
	"papelpos/backend/internal/money"
)

type Business struct {
	Name    string
	NIT     string
	Address string
	Phone   string
}

var methodLabels = map[string]string{
	domain.MethodCash:               "Efectivo",
	domain.MethodElectronicTransfer: "Transferencia",
	domain.MethodOnAccount:          "Debe",
}

func MethodLabel(method string) string {
	if label, ok := methodLabels[method]; ok {
		return label
	}
	return method
}

// Render returns the receipt as plain text with aligned item columns.
func Render(sale domain.Sale, business Business, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}

	var b strings.Builder
	b.WriteString("Factura / Comprobante\n")
	b.WriteString(business.Name + "\n")
	if details := joinNonEmpty(" • ", business.NIT, business.Address, business.Phone); details != "" {
		b.WriteString(details + "\n")
	}
	b.WriteString(strings.Repeat("-", 40) + "\n")
	fmt.Fprintf(&b, "Venta: %s\n", sale.ID)
	fmt.Fprintf(&b, "Fecha: %s\n", money.FormatDateTime(sale.ClosedAt, loc))
	fmt.Fprintf(&b, "Método de pago: %s\n", MethodLabel(sale.Payment.Method))
	if sale.Payment.Method == domain.MethodCash {
		fmt.Fprintf(&b, "Recibido: %s • Cambio: %s\n",
			money.FormatCOP(sale.Payment.CashReceived), money.FormatCOP(sale.Payment.Change))
	}
	if sale.Payment.Client != "" {
		fmt.Fprintf(&b, "Cliente: %s\n", sale.Payment.Client)
	}
	b.WriteString("\n")

	tw := tabwriter.NewWriter(&b, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Código\tProducto\tCant.\tPrecio\tSubtotal\t")
	for _, item := range sale.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\t\n",
			item.Code, item.Name, item.Qty, money.FormatCOP(item.Price), money.FormatCOP(item.Subtotal))
	}
	_ = tw.Flush()

	b.WriteString("\n")
	fmt.Fprintf(&b, "Total: %s\n", money.FormatCOP(sale.Total))
	return b.String()
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
