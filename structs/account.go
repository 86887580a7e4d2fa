package structs

import (
	"time"

	"github.com/google/uuid"
)

// Account is a user signed in through a social provider. (Provider,
// ProviderID) is unique.
type Account struct {
	ID          uuid.UUID `json:"id"`
	Provider    string    `json:"provider"`
	ProviderID  string    `json:"providerId"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"displayName"`
	GivenName   string    `json:"givenName,omitempty"`
	FamilyName  string    `json:"familyName,omitempty"`
	PhotoURL    string    `json:"photoUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
