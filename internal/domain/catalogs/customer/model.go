// Package customer provides the Customer catalog.
// Customers are the parties sales orders and invoices are issued to.
package customer

import (
	"context"
	"regexp"

	"inventra/internal/core/apperror"
	"inventra/internal/core/entity"
)

var emailRE = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// Customer represents a buying party.
type Customer struct {
	entity.Catalog

	// CompanyName is the official registered name, when different from Name
	CompanyName *string `db:"company_name" json:"companyName,omitempty"`

	// TaxID is the customer's tax identification number
	TaxID *string `db:"tax_id" json:"taxId,omitempty"`

	// Address is the billing address
	Address *string `db:"address" json:"address,omitempty"`

	// Phone is the primary contact phone
	Phone *string `db:"phone" json:"phone,omitempty"`

	// Email is the primary contact email. The debtors report uses it.
	Email *string `db:"email" json:"email,omitempty"`

	// ContactPerson is the primary contact name
	ContactPerson *string `db:"contact_person" json:"contactPerson,omitempty"`

	// Comment is a free-form note
	Comment *string `db:"comment" json:"comment,omitempty"`
}

// NewCustomer creates a new Customer with required fields.
func NewCustomer(code, name string) *Customer {
	return &Customer{
		Catalog: entity.NewCatalog(code, name),
	}
}

// Validate implements entity.Validatable interface.
func (c *Customer) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}

	if c.Email != nil && *c.Email != "" && !emailRE.MatchString(*c.Email) {
		return apperror.NewValidation("invalid email").
			WithDetail("field", "email").
			WithDetail("value", *c.Email)
	}

	return nil
}
