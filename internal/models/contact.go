package models

import "github.com/google/uuid"

// ContactType distinguishes organizations from people.
type ContactType string

const (
	ContactOrganization ContactType = "ORGANIZATION"
	ContactPerson       ContactType = "PERSON"
)

// ContactTag is a free-form label attached to contacts.
type ContactTag struct {
	Base
	Name string `gorm:"size:80;uniqueIndex" json:"name"`
}

// Contact is an organization or person the warehouse deals with.
// Deduplicated case-insensitively by (name, type) during imports.
type Contact struct {
	Base
	Name        string      `gorm:"size:200;index" json:"name"`
	ContactType ContactType `gorm:"size:20;index" json:"contactType"`

	Title     string `gorm:"size:40" json:"title"`
	FirstName string `gorm:"size:120" json:"firstName"`
	LastName  string `gorm:"size:120" json:"lastName"`
	Role      string `gorm:"size:120" json:"role"`

	Email  string `gorm:"size:200" json:"email"`
	Email2 string `gorm:"size:200" json:"email2"`
	Phone  string `gorm:"size:40" json:"phone"`
	Phone2 string `gorm:"size:40" json:"phone2"`

	SIRET                   string `gorm:"size:20" json:"siret"`
	VATNumber               string `gorm:"size:32" json:"vatNumber"`
	LegalRegistrationNumber string `gorm:"size:40" json:"legalRegistrationNumber"`
	ExternalRef             string `gorm:"size:40" json:"externalRef"`

	Notes    string `json:"notes"`
	IsActive bool   `gorm:"default:true" json:"isActive"`

	UseOrganizationAddress bool       `json:"useOrganizationAddress"`
	OrganizationID         *uuid.UUID `gorm:"type:uuid" json:"organizationId"`
	Organization           *Contact   `gorm:"foreignKey:OrganizationID" json:"-"`

	// DestinationID mirrors the single destination when exactly one is set.
	DestinationID *uuid.UUID    `gorm:"type:uuid" json:"destinationId"`
	Destinations  []Destination `gorm:"many2many:contact_destinations" json:"destinations,omitempty"`

	Tags           []ContactTag `gorm:"many2many:contact_tag_assignments" json:"tags,omitempty"`
	LinkedShippers []Contact    `gorm:"many2many:contact_linked_shippers;joinForeignKey:ContactID;joinReferences:ShipperID" json:"-"`

	Addresses []ContactAddress `gorm:"foreignKey:ContactID" json:"addresses,omitempty"`
}

// ContactAddress is a postal address, deduplicated by
// (contact, line1, line2, postal code, city, country).
type ContactAddress struct {
	Base
	ContactID  uuid.UUID `gorm:"type:uuid;index" json:"contactId"`
	Label      string    `gorm:"size:80" json:"label"`
	Line1      string    `gorm:"size:200" json:"line1"`
	Line2      string    `gorm:"size:200" json:"line2"`
	PostalCode string    `gorm:"size:20" json:"postalCode"`
	City       string    `gorm:"size:120" json:"city"`
	Region     string    `gorm:"size:120" json:"region"`
	Country    string    `gorm:"size:120" json:"country"`
	Phone      string    `gorm:"size:40" json:"phone"`
	Email      string    `gorm:"size:200" json:"email"`
}

// Destination is a shipping destination resolved from free-text labels like
// "Antananarivo (TNR) - Madagascar".
type Destination struct {
	Base
	City     string `gorm:"size:120" json:"city"`
	IATACode string `gorm:"size:10;uniqueIndex" json:"iataCode"`
	Country  string `gorm:"size:120" json:"country"`

	CorrespondentContactID *uuid.UUID `gorm:"type:uuid" json:"correspondentContactId"`
	CorrespondentContact   *Contact   `gorm:"foreignKey:CorrespondentContactID" json:"-"`
}

// Label renders the destination the way import files write it:
// "City (IATA) - Country".
func (d *Destination) Label() string {
	label := d.City
	if d.IATACode != "" {
		if label != "" {
			label += " "
		}
		label += "(" + d.IATACode + ")"
	}
	if d.Country != "" {
		label += " - " + d.Country
	}
	return label
}

// User is an operator account. Imports dedup by username.
type User struct {
	Base
	Username     string `gorm:"size:150;uniqueIndex" json:"username"`
	Email        string `gorm:"size:200" json:"email"`
	FirstName    string `gorm:"size:120" json:"firstName"`
	LastName     string `gorm:"size:120" json:"lastName"`
	IsStaff      bool   `json:"isStaff"`
	IsSuperuser  bool   `json:"isSuperuser"`
	IsActive     bool   `gorm:"default:true" json:"isActive"`
	PasswordHash string `gorm:"size:200" json:"-"`
}
