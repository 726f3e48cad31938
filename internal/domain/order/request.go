// Package order maps encounter-transaction drug orders onto encounter
// orders and saves them in request order.
package order

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Order actions accepted on a drug order request.
const (
	ActionNew         = "NEW"
	ActionRevise      = "REVISE"
	ActionDiscontinue = "DISCONTINUE"
	ActionRenew       = "RENEW"
)

// DrugOrderRequest is a drug order as submitted in an encounter transaction.
type DrugOrderRequest struct {
	DrugUUID       string     `json:"drug_uuid" validate:"required,uuid"`
	ConceptUUID    string     `json:"concept_uuid,omitempty" validate:"omitempty,uuid"`
	Dose           *float64   `json:"dose,omitempty" validate:"omitempty,gt=0"`
	DoseUnits      string     `json:"dose_units,omitempty" validate:"required_with=Dose,max=50"`
	Frequency      string     `json:"frequency,omitempty" validate:"max=100"`
	Route          string     `json:"route,omitempty" validate:"max=100"`
	Quantity       *float64   `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	ScheduledDate  *time.Time `json:"scheduled_date,omitempty"`
	AutoExpireDate *time.Time `json:"auto_expire_date,omitempty"`
	Instructions   string     `json:"instructions,omitempty"`
	Action         string     `json:"action,omitempty" validate:"omitempty,oneof=NEW REVISE DISCONTINUE RENEW"`
}

var ErrExpiresBeforeStart = errors.New("auto_expire_date must not precede scheduled_date")

var validate *validator.Validate

func init() {
	validate = validator.New()
	validate.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Validate checks field constraints and date ordering.
func (r *DrugOrderRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if r.ScheduledDate != nil && r.AutoExpireDate != nil && r.AutoExpireDate.Before(*r.ScheduledDate) {
		return ErrExpiresBeforeStart
	}
	return nil
}

// FormatValidationError renders validator errors as "field tag" pairs.
func FormatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msg := fe.Field() + " " + fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		msgs = append(msgs, msg)
	}
	return "invalid drug order: " + strings.Join(msgs, ", ")
}
