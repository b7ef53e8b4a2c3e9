package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, Type("PERSON"), Normalize("person"))
	assert.Equal(t, Type("CREDIT_CARD_NUMBER"), Normalize("credit card number"))
	assert.Equal(t, Type("PHONE_NUMBER"), Normalize(" Phone Number "))
}

func TestDisplay(t *testing.T) {
	assert.Equal(t, CategoryContact, TypeEmail.Display())
	assert.Equal(t, CategoryFinancial, TypeCreditCardNumber.Display())
	assert.Equal(t, CategoryOrg, TypeOrganization.Display())

	// Unknown external labels fall back to person.
	assert.Equal(t, CategoryPerson, Type("PET_NAME").Display())
}
