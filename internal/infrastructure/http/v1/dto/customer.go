package dto

import (
	"inventra/internal/core/entity"
	"inventra/internal/domain/catalogs/customer"
)

// --- Request DTOs ---

// CreateCustomerRequest is the request body for creating a customer.
type CreateCustomerRequest struct {
	Code          string            `json:"code"`
	Name          string            `json:"name" binding:"required"`
	CompanyName   *string           `json:"companyName"`
	TaxID         *string           `json:"taxId"`
	Address       *string           `json:"address"`
	Phone         *string           `json:"phone"`
	Email         *string           `json:"email"`
	ContactPerson *string           `json:"contactPerson"`
	Comment       *string           `json:"comment"`
	ParentID      *string           `json:"parentId"`
	IsFolder      bool              `json:"isFolder"`
	Attributes    entity.Attributes `json:"attributes"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateCustomerRequest) ToEntity() *customer.Customer {
	c := customer.NewCustomer(r.Code, r.Name)
	c.CompanyName = r.CompanyName
	c.TaxID = r.TaxID
	c.Address = r.Address
	c.Phone = r.Phone
	c.Email = r.Email
	c.ContactPerson = r.ContactPerson
	c.Comment = r.Comment
	c.ParentID = r.ParentID
	c.IsFolder = r.IsFolder
	c.Attributes = r.Attributes
	return c
}

// UpdateCustomerRequest is the request body for updating a customer.
type UpdateCustomerRequest struct {
	Code          string            `json:"code"`
	Name          string            `json:"name" binding:"required"`
	CompanyName   *string           `json:"companyName,omitempty"`
	TaxID         *string           `json:"taxId,omitempty"`
	Address       *string           `json:"address,omitempty"`
	Phone         *string           `json:"phone,omitempty"`
	Email         *string           `json:"email,omitempty"`
	ContactPerson *string           `json:"contactPerson,omitempty"`
	Comment       *string           `json:"comment,omitempty"`
	ParentID      *string           `json:"parentId,omitempty"`
	IsFolder      bool              `json:"isFolder"`
	Attributes    entity.Attributes `json:"attributes"`
	Version       int               `json:"version" binding:"required"`
}

// ApplyTo applies update DTO to existing entity.
func (r *UpdateCustomerRequest) ApplyTo(c *customer.Customer) {
	c.Code = r.Code
	c.Name = r.Name
	c.CompanyName = r.CompanyName
	c.TaxID = r.TaxID
	c.Address = r.Address
	c.Phone = r.Phone
	c.Email = r.Email
	c.ContactPerson = r.ContactPerson
	c.Comment = r.Comment
	c.ParentID = r.ParentID
	c.IsFolder = r.IsFolder
	c.Attributes = r.Attributes
	c.Version = r.Version
}

// --- Response DTOs ---

// CustomerResponse is the response body for a customer.
type CustomerResponse struct {
	ID            string            `json:"id"`
	Code          string            `json:"code"`
	Name          string            `json:"name"`
	CompanyName   *string           `json:"companyName,omitempty"`
	TaxID         *string           `json:"taxId,omitempty"`
	Address       *string           `json:"address,omitempty"`
	Phone         *string           `json:"phone,omitempty"`
	Email         *string           `json:"email,omitempty"`
	ContactPerson *string           `json:"contactPerson,omitempty"`
	Comment       *string           `json:"comment,omitempty"`
	ParentID      *string           `json:"parentId,omitempty"`
	IsFolder      bool              `json:"isFolder"`
	DeletionMark  bool              `json:"deletionMark"`
	Version       int               `json:"version"`
	Attributes    entity.Attributes `json:"attributes,omitempty"`
}

// FromCustomer creates response DTO from domain entity.
func FromCustomer(c *customer.Customer) *CustomerResponse {
	return &CustomerResponse{
		ID:            c.ID.String(),
		Code:          c.Code,
		Name:          c.Name,
		CompanyName:   c.CompanyName,
		TaxID:         c.TaxID,
		Address:       c.Address,
		Phone:         c.Phone,
		Email:         c.Email,
		ContactPerson: c.ContactPerson,
		Comment:       c.Comment,
		ParentID:      c.ParentID,
		IsFolder:      c.IsFolder,
		DeletionMark:  c.DeletionMark,
		Version:       c.Version,
		Attributes:    c.Attributes,
	}
}
