// Package entity defines the PII entity model shared by the detector,
// the entity store, and the anonymizer.
//
// An Entity is one detected PII occurrence: its literal text, category
// tag, and half-open character offsets [Start, End) into a specific
// source document. Entities are meaningless without that document.
package entity

import "strings"

// Type is a PII category tag, uppercase with underscores (e.g. "EMAIL").
// The tag is encoded verbatim into token placeholders.
type Type string

// Category tags detectable by the built-in regex recognizers.
const (
	TypePhoneNumber      Type = "PHONE_NUMBER"
	TypeEmail            Type = "EMAIL"
	TypeDate             Type = "DATE"
	TypePassportNumber   Type = "PASSPORT_NUMBER"
	TypeNationalIDNumber Type = "NATIONAL_ID_NUMBER"
	TypeInsuranceNumber  Type = "INSURANCE_NUMBER"
	TypeCreditCardNumber Type = "CREDIT_CARD_NUMBER"
	TypeIPAddress        Type = "IP_ADDRESS"
	TypeURL              Type = "URL"
)

// Category tags reachable only through the external entity source.
const (
	TypePerson       Type = "PERSON"
	TypeAddress      Type = "ADDRESS"
	TypeOrganization Type = "ORGANIZATION"
)

// DisplayCategory groups tags for presentation only; it carries no
// detection or tokenization semantics.
type DisplayCategory string

const (
	CategoryPerson    DisplayCategory = "person"
	CategoryContact   DisplayCategory = "contact"
	CategoryLocation  DisplayCategory = "location"
	CategoryID        DisplayCategory = "id"
	CategoryFinancial DisplayCategory = "financial"
	CategoryOrg       DisplayCategory = "org"
)

var displayCategories = map[Type]DisplayCategory{
	TypePhoneNumber:      CategoryContact,
	TypeEmail:            CategoryContact,
	TypeDate:             CategoryID,
	TypePassportNumber:   CategoryID,
	TypeNationalIDNumber: CategoryID,
	TypeInsuranceNumber:  CategoryID,
	TypeCreditCardNumber: CategoryFinancial,
	TypeIPAddress:        CategoryContact,
	TypeURL:              CategoryContact,
	TypePerson:           CategoryPerson,
	TypeAddress:          CategoryLocation,
	TypeOrganization:     CategoryOrg,
}

// Display returns the presentation category for a tag. Unknown tags
// (external labels outside the fixed set) fall back to "person".
func (t Type) Display() DisplayCategory {
	if c, ok := displayCategories[t]; ok {
		return c
	}
	return CategoryPerson
}

// Normalize converts a free-form label ("credit card number") to tag
// form ("CREDIT_CARD_NUMBER").
func Normalize(label string) Type {
	return Type(strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(label), " ", "_")))
}

// Entity is a detected PII occurrence.
type Entity struct {
	Text  string `json:"text"`
	Type  Type   `json:"type"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Overlaps reports whether the half-open ranges of e and other
// intersect. Shared start, shared end, and containment all count.
func (e Entity) Overlaps(other Entity) bool {
	return e.Start < other.End && other.Start < e.End
}
