package domain

import (
	"fmt"
	"sort"
	"strings"
)

type PaymentKind int

const (
	PaymentKindCash PaymentKind = iota + 1
	PaymentKindElectronic
	PaymentKindDeferred
)

func (k PaymentKind) String() string {
	switch k {
	case PaymentKindCash:
		return "cash"
	case PaymentKindElectronic:
		return "electronic"
	case PaymentKindDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

const (
	MethodCash               = "cash"
	MethodElectronicTransfer = "electronic-transfer"
	MethodOnAccount          = "deferred/on-account"
)

// PaymentMethods is the registry of accepted payment methods. Legacy labels
// written by earlier versions of the register resolve to the canonical names.
type PaymentMethods struct {
	kinds   map[string]PaymentKind
	aliases map[string]string
}

func NewPaymentMethods(extraElectronic ...string) *PaymentMethods {
	m := &PaymentMethods{
		kinds: map[string]PaymentKind{
			MethodCash:               PaymentKindCash,
			MethodElectronicTransfer: PaymentKindElectronic,
			MethodOnAccount:          PaymentKindDeferred,
		},
		aliases: map[string]string{
			"efectivo": MethodCash,
			"nequi":    MethodElectronicTransfer,
			"debe":     MethodOnAccount,
			"transfer": MethodElectronicTransfer,
			"deferred": MethodOnAccount,
		},
	}
	for _, method := range extraElectronic {
		m.Register(method, PaymentKindElectronic)
	}
	return m
}

// Register adds a method. Names are case-insensitive; blank names are ignored.
func (m *PaymentMethods) Register(method string, kind PaymentKind) {
	method = strings.ToLower(strings.TrimSpace(method))
	if method == "" {
		return
	}
	delete(m.aliases, method)
	m.kinds[method] = kind
}

// Resolve maps raw operator input to a canonical method. Empty input means
// cash, the register's default.
func (m *PaymentMethods) Resolve(raw string) (string, PaymentKind, error) {
	method := strings.ToLower(strings.TrimSpace(raw))
	if method == "" {
		method = MethodCash
	}
	if canonical, ok := m.aliases[method]; ok {
		method = canonical
	}
	kind, ok := m.kinds[method]
	if !ok {
		return "", 0, fmt.Errorf("%w: %q", ErrUnknownPaymentMethod, raw)
	}
	return method, kind, nil
}

func (m *PaymentMethods) List() []string {
	methods := make([]string, 0, len(m.kinds))
	for method := range m.kinds {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}
