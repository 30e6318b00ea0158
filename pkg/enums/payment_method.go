package enums

import "strings"

// PaymentMethod is the normalized form of Kirvano's payment method strings.
type PaymentMethod string

const (
	PaymentMethodPix        PaymentMethod = "pix"
	PaymentMethodCreditCard PaymentMethod = "credit_card"
	PaymentMethodDebitCard  PaymentMethod = "debit_card"
)

// String implements fmt.Stringer.
func (m PaymentMethod) String() string {
	return string(m)
}

// NormalizePaymentMethod maps the provider's method strings onto the canonical
// values. Unrecognized methods are stored verbatim so no payment data is lost.
func NormalizePaymentMethod(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "pix":
		return string(PaymentMethodPix)
	case "credit_card", "cartão de crédito", "cartao de credito":
		return string(PaymentMethodCreditCard)
	case "debit_card", "cartão de débito", "cartao de debito":
		return string(PaymentMethodDebitCard)
	default:
		return strings.TrimSpace(raw)
	}
}
