package request

import (
	"time"

	"github.com/google/uuid"
	"github.com/nandi-systems/ledgerflow-api/internal/application/service"
	"github.com/nandi-systems/ledgerflow-api/internal/domain/entity"
	"github.com/nandi-systems/ledgerflow-api/pkg/apperror"
	"github.com/shopspring/decimal"
)

// PaymentRequest is the payload for recording a payment. Amount travels as a
// decimal string so money never passes through a float.
type PaymentRequest struct {
	CustomerID  int64  `json:"customer_id" binding:"required"`
	Amount      string `json:"amount" binding:"required"`
	Mode        string `json:"mode" binding:"required"`
	Reference   string `json:"reference"`
	PaymentDate string `json:"payment_date" binding:"required"`
	InvoiceID   *int64 `json:"invoice_id"`

	// IdempotencyKey is set only on a duplicate-confirmation resubmit,
	// carrying the key the suspended attempt returned.
	IdempotencyKey   string `json:"idempotency_key"`
	ConfirmDuplicate bool   `json:"confirm_duplicate"`
}

// ToInput converts the request into a submitter input.
func (r *PaymentRequest) ToInput() (service.SubmitInput, error) {
	var fields []apperror.FieldError

	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		fields = append(fields, apperror.FieldError{Field: "amount", Message: "amount must be a decimal number"})
	}
	date, err := time.Parse("2006-01-02", r.PaymentDate)
	if err != nil {
		fields = append(fields, apperror.FieldError{Field: "payment_date", Message: "payment date must be YYYY-MM-DD"})
	}
	key := uuid.Nil
	if r.IdempotencyKey != "" {
		key, err = uuid.Parse(r.IdempotencyKey)
		if err != nil {
			fields = append(fields, apperror.FieldError{Field: "idempotency_key", Message: "idempotency key must be a UUID"})
		}
	}
	if len(fields) > 0 {
		return service.SubmitInput{}, apperror.NewValidationError(fields)
	}

	return service.SubmitInput{
		Draft: entity.PaymentDraft{
			CustomerID:  r.CustomerID,
			Amount:      amount,
			Mode:        r.Mode,
			Reference:   r.Reference,
			PaymentDate: date,
			InvoiceID:   r.InvoiceID,
		},
		IdempotencyKey:   key,
		ConfirmDuplicate: r.ConfirmDuplicate,
	}, nil
}
