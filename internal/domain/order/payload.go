package order

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/xenking/storefront/internal/domain/cart"
	"github.com/xenking/storefront/internal/domain/pricing"
)

// ErrValidation matches every *ValidationError.
var ErrValidation = errors.New("order validation failed")

// Validation failure codes, in the order the builder checks them.
const (
	CodeEmptyCart       = "empty_cart"
	CodeInvalidItem     = "invalid_item"
	CodeRequired        = "required"
	CodePhoneFormat     = "phone_format"
	CodePaymentMethod   = "payment_method"
	CodeTransactionRef  = "transaction_reference_required"
	CodeUnknownDistrict = "unknown_district"
	CodeAdvanceRequired = "advance_required"
)

// ValidationError is a rejected payload field. The payload is never sent.
type ValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is makes errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// bdPhone is a Bangladeshi mobile number with an optional country code.
var bdPhone = regexp.MustCompile(`^(?:\+?88)?01[3-9]\d{8}$`)

// ValidPhone reports whether s is a Bangladeshi mobile number.
func ValidPhone(s string) bool {
	return bdPhone.MatchString(strings.TrimSpace(s))
}

// CustomerDetails are the delivery details entered at checkout.
type CustomerDetails struct {
	Name                string `json:"customerName" validate:"required"`
	Phone               string `json:"phone" validate:"required,bdphone"`
	District            string `json:"district" validate:"required"`
	Thana               string `json:"thana" validate:"required"`
	Address             string `json:"address" validate:"required"`
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

func (d CustomerDetails) trimmed() CustomerDetails {
	d.Name = strings.TrimSpace(d.Name)
	d.Phone = strings.TrimSpace(d.Phone)
	d.District = strings.TrimSpace(d.District)
	d.Thana = strings.TrimSpace(d.Thana)
	d.Address = strings.TrimSpace(d.Address)
	d.SpecialInstructions = strings.TrimSpace(d.SpecialInstructions)
	return d
}

// PaymentChoice is the selected payment method and, for wallets, the
// transaction reference the customer claims to have paid with.
type PaymentChoice struct {
	Method         PaymentMethod `json:"method"`
	TransactionRef string        `json:"transactionReference,omitempty"`
}

// Payload is the order-creation request sent to the order store. It is built
// once and never mutated.
type Payload struct {
	CustomerName        string          `json:"customerName"`
	Phone               string          `json:"phone"`
	District            string          `json:"district"`
	Thana               string          `json:"thana"`
	Address             string          `json:"address"`
	Items               []Item          `json:"items"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	DeliveryFee         decimal.Decimal `json:"deliveryFee"`
	AdvancePayment      decimal.Decimal `json:"advancePaymentAmount"`
	PaymentInfo         PaymentInfo     `json:"paymentInfo"`
	SpecialInstructions string          `json:"specialInstructions,omitempty"`
}

// Total returns subtotal plus delivery fee.
func (p *Payload) Total() decimal.Decimal {
	return p.Subtotal.Add(p.DeliveryFee)
}

// Remaining returns the amount collected on delivery.
func (p *Payload) Remaining() decimal.Decimal {
	return pricing.AdvanceSplit(p.Total(), p.AdvancePayment).Remaining
}

// Details returns the customer part of the payload.
func (p *Payload) Details() CustomerDetails {
	return CustomerDetails{
		Name:                p.CustomerName,
		Phone:               p.Phone,
		District:            p.District,
		Thana:               p.Thana,
		Address:             p.Address,
		SpecialInstructions: p.SpecialInstructions,
	}
}

// Payment returns the payment part of the payload.
func (p *Payload) Payment() PaymentChoice {
	return PaymentChoice{Method: p.PaymentInfo.Method, TransactionRef: p.PaymentInfo.TransactionRef}
}

// Builder turns a cart snapshot and checkout details into a Payload. The
// order store runs the same checks on every payload it receives.
type Builder struct {
	policy   pricing.Policy
	validate *validator.Validate
}

// NewBuilder creates a Builder pricing orders with policy.
func NewBuilder(policy pricing.Policy) *Builder {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("bdphone", func(fl validator.FieldLevel) bool {
		return ValidPhone(fl.Field().String())
	})
	return &Builder{policy: policy, validate: v}
}

// Policy returns the pricing policy used by the builder.
func (b *Builder) Policy() pricing.Policy {
	return b.policy
}

// Build validates the checkout and returns the payload with totals
// recomputed from c. It never mutates c; pass a Store.Snapshot.
func (b *Builder) Build(c cart.Cart, details CustomerDetails, payment PaymentChoice) (*Payload, error) {
	items := make([]Item, 0, len(c.Lines))
	for _, l := range c.Lines {
		custom := l.Customization
		if custom.IsEmpty() {
			custom = nil
		}
		items = append(items, Item{
			ProductID:     l.ProductID,
			Name:          l.Name,
			UnitPrice:     pricing.Floor(l.UnitPrice),
			Quantity:      l.Quantity,
			ImageURL:      l.ImageURL,
			Customization: custom,
		})
	}

	details = details.trimmed()
	payment = normalizePayment(payment)
	district, err := b.check(items, details, payment)
	if err != nil {
		return nil, err
	}

	quote, err := b.Quote(items, district, payment.Method)
	if err != nil {
		return nil, err
	}
	return &Payload{
		CustomerName:        details.Name,
		Phone:               details.Phone,
		District:            district,
		Thana:               details.Thana,
		Address:             details.Address,
		Items:               items,
		Subtotal:            quote.Subtotal,
		DeliveryFee:         quote.DeliveryFee,
		AdvancePayment:      quote.Advance,
		PaymentInfo:         PaymentInfo(payment),
		SpecialInstructions: details.SpecialInstructions,
	}, nil
}

// Validate runs the build checks against a received payload and returns the
// canonical district name.
func (b *Builder) Validate(p *Payload) (string, error) {
	return b.check(p.Items, p.Details().trimmed(), normalizePayment(p.Payment()))
}

// Quote prices items for delivery to district.
func (b *Builder) Quote(items []Item, district string, method PaymentMethod) (pricing.Breakdown, error) {
	lines := make([]pricing.Line, len(items))
	customized := false
	for i, it := range items {
		lines[i] = pricing.Line{UnitPrice: it.UnitPrice, Quantity: it.Quantity}
		if !it.Customization.IsEmpty() {
			customized = true
		}
	}
	return b.policy.Quote(lines, district, customized, string(method))
}

// check applies the validation rules in order; the first failure wins.
func (b *Builder) check(items []Item, d CustomerDetails, payment PaymentChoice) (string, error) {
	if len(items) == 0 {
		return "", &ValidationError{Code: CodeEmptyCart, Message: "cart is empty"}
	}
	for _, it := range items {
		if it.ProductID == "" || it.Quantity < 1 || it.UnitPrice.IsNegative() {
			return "", &ValidationError{
				Field:   "items",
				Code:    CodeInvalidItem,
				Message: fmt.Sprintf("invalid item %q", it.ProductID),
			}
		}
		if err := it.Customization.Validate(); err != nil {
			return "", &ValidationError{Field: "items", Code: CodeInvalidItem, Message: err.Error()}
		}
	}

	if err := b.fields(d); err != nil {
		return "", err
	}

	if !payment.Method.Valid() {
		return "", &ValidationError{
			Field:   "paymentInfo.method",
			Code:    CodePaymentMethod,
			Message: fmt.Sprintf("unsupported payment method %q", payment.Method),
		}
	}
	if payment.Method != PaymentCOD && payment.TransactionRef == "" {
		return "", &ValidationError{
			Field:   "paymentInfo.transactionReference",
			Code:    CodeTransactionRef,
			Message: "transaction reference is required for " + string(payment.Method),
		}
	}

	district, ok := b.policy.District(d.District)
	if !ok {
		return "", &ValidationError{
			Field:   "district",
			Code:    CodeUnknownDistrict,
			Message: fmt.Sprintf("unknown district %q", d.District),
		}
	}

	if payment.Method == PaymentCOD && hasCustomized(items) {
		return "", &ValidationError{
			Field:   "paymentInfo.method",
			Code:    CodeAdvanceRequired,
			Message: "customized items need an advance payment by mobile wallet",
		}
	}
	return district, nil
}

// fields reports missing required fields before malformed ones so the
// first failure follows the checkout ordering.
func (b *Builder) fields(d CustomerDetails) error {
	err := b.validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errors.Wrap(err, "validate customer details")
	}

	var malformed *ValidationError
	for _, fe := range verrs {
		field := jsonName(fe.StructField())
		if fe.Tag() == "required" {
			return &ValidationError{Field: field, Code: CodeRequired, Message: "is required"}
		}
		if malformed == nil && fe.Tag() == "bdphone" {
			malformed = &ValidationError{
				Field:   field,
				Code:    CodePhoneFormat,
				Message: "must be a Bangladeshi mobile number like 01712345678",
			}
		}
	}
	if malformed != nil {
		return malformed
	}
	return &ValidationError{Field: jsonName(verrs[0].StructField()), Code: verrs[0].Tag(), Message: verrs[0].Error()}
}

func jsonName(structField string) string {
	if structField == "Name" {
		return "customerName"
	}
	return strings.ToLower(structField[:1]) + structField[1:]
}

func normalizePayment(p PaymentChoice) PaymentChoice {
	p.Method = PaymentMethod(strings.ToLower(strings.TrimSpace(string(p.Method))))
	if p.Method == "" {
		p.Method = PaymentCOD
	}
	p.TransactionRef = strings.TrimSpace(p.TransactionRef)
	return p
}

func hasCustomized(items []Item) bool {
	for _, it := range items {
		if !it.Customization.IsEmpty() {
			return true
		}
	}
	return false
}
