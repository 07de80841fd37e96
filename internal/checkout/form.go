package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/sobia-kanwal/closet-on-wheels/internal/domain"
)

// Form is what the checkout page submits. Card and wallet fields only matter for the matching
// payment method and are never stored on the order.
type Form struct {
	FirstName     string               `json:"first_name" validate:"required"`
	LastName      string               `json:"last_name" validate:"required"`
	Email         string               `json:"email" validate:"required,contact_email"`
	Phone         string               `json:"phone" validate:"required"`
	Address       string               `json:"address" validate:"required"`
	City          string               `json:"city" validate:"required"`
	PaymentMethod domain.PaymentMethod `json:"payment_method" validate:"required,payment_method"`
	CardNumber    string               `json:"card_number,omitempty"`
	CardExpiry    string               `json:"card_expiry,omitempty"`
	CardCVC       string               `json:"card_cvc,omitempty"`
	WalletNumber  string               `json:"wallet_number,omitempty"`
}

func (f Form) Customer() domain.Customer {
	return domain.Customer{
		FirstName: f.FirstName,
		LastName:  f.LastName,
		Email:     f.Email,
		Phone:     f.Phone,
		Address:   f.Address,
		City:      f.City,
	}
}

func (f Form) trimmed() Form {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = strings.TrimSpace(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Address = strings.TrimSpace(f.Address)
	f.City = strings.TrimSpace(f.City)
	f.PaymentMethod = domain.PaymentMethod(strings.TrimSpace(string(f.PaymentMethod)))
	f.CardExpiry = strings.TrimSpace(f.CardExpiry)
	f.CardCVC = strings.TrimSpace(f.CardCVC)
	f.WalletNumber = strings.TrimSpace(f.WalletNumber)
	return f
}

// fieldOrder is the order fields appear on the page; the first failing one gets focus.
var fieldOrder = []string{
	"first_name",
	"last_name",
	"email",
	"phone",
	"address",
	"city",
	"payment_method",
	"card_number",
	"card_expiry",
	"card_cvc",
	"wallet_number",
}

// ValidationError maps form fields to messages. First is the earliest invalid field in page order.
type ValidationError struct {
	Fields map[string]string `json:"errors"`
	First  string            `json:"first_invalid_field"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("checkout form invalid: %s: %s", e.First, e.Fields[e.First])
}

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cvcPattern    = regexp.MustCompile(`^\d{3,4}$`)
	cardPattern   = regexp.MustCompile(`^\d{16}$`)
)

var messages = map[string]string{
	"required":       "This field is required",
	"contact_email":  "Enter a valid email address",
	"payment_method": "Select a payment method",
	"card_number":    "Card number must be 16 digits",
	"card_expiry":    "Expiry date must be in MM/YY format",
	"card_cvc":       "CVC must be 3 or 4 digits",
}

type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	mustRegister(v, "contact_email", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "payment_method", func(fl validator.FieldLevel) bool {
		return domain.PaymentMethod(fl.Field().String()).Valid()
	})
	mustRegister(v, "card_number", func(fl validator.FieldLevel) bool {
		return cardPattern.MatchString(NormalizeCardNumber(fl.Field().String()))
	})
	mustRegister(v, "card_expiry", func(fl validator.FieldLevel) bool {
		return expiryPattern.MatchString(fl.Field().String())
	})
	mustRegister(v, "card_cvc", func(fl validator.FieldLevel) bool {
		return cvcPattern.MatchString(fl.Field().String())
	})

	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register %s validation: %v", tag, err))
	}
}

// Validate returns nil when f can be submitted.
func (v *Validator) Validate(f Form) *ValidationError {
	f = f.trimmed()
	fields := make(map[string]string)

	if err := v.v.Struct(f); err != nil {
		var errs validator.ValidationErrors
		if !errors.As(err, &errs) {
			return &ValidationError{Fields: map[string]string{"form": err.Error()}, First: "form"}
		}
		for _, fe := range errs {
			addField(fields, fe.Field(), fe.Tag())
		}
	}

	switch {
	case f.PaymentMethod == domain.PaymentCreditCard:
		v.checkVar(fields, "card_number", f.CardNumber, "required,card_number")
		v.checkVar(fields, "card_expiry", f.CardExpiry, "required,card_expiry")
		v.checkVar(fields, "card_cvc", f.CardCVC, "required,card_cvc")
	case f.PaymentMethod.IsWallet():
		v.checkVar(fields, "wallet_number", f.WalletNumber, "required")
	}

	if len(fields) == 0 {
		return nil
	}

	verr := &ValidationError{Fields: fields}
	for _, name := range fieldOrder {
		if _, ok := fields[name]; ok {
			verr.First = name
			break
		}
	}
	return verr
}

func (v *Validator) checkVar(fields map[string]string, field, value, tag string) {
	err := v.v.Var(value, tag)
	if err == nil {
		return
	}
	var errs validator.ValidationErrors
	if errors.As(err, &errs) && len(errs) > 0 {
		addField(fields, field, errs[0].Tag())
		return
	}
	fields[field] = err.Error()
}

func addField(fields map[string]string, field, tag string) {
	if _, seen := fields[field]; seen {
		return
	}
	msg, ok := messages[tag]
	if !ok {
		msg = "Invalid value"
	}
	fields[field] = msg
}

// NormalizeCardNumber drops all whitespace from a card number.
func NormalizeCardNumber(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
