package partners

import "time"

// PartnerType distinguishes how a partner buys.
type PartnerType string

const (
	TypeRestaurant    PartnerType = "RESTAURANT"
	TypeShop          PartnerType = "SHOP"
	TypeDepotAutomate PartnerType = "DEPOT_AUTOMATE"
)

// Partner is a B2B account: a restaurant, shop or self-service depot.
// FixedDeliveryDays holds allowed weekdays (0=Sunday..6=Saturday); empty
// means any day. OrderDeadlineTime/Days, when set, override the global
// standard order cutoff for this partner.
type Partner struct {
	ID                string      `json:"id"`
	Type              PartnerType `json:"type"`
	Name              string      `json:"name"`
	Address           string      `json:"address"`
	City              string      `json:"city"`
	Phone             string      `json:"phone"`
	Email             string      `json:"email"`
	FixedDeliveryDays []int       `json:"fixedDeliveryDays"`
	OrderDeadlineTime *string     `json:"orderDeadlineTime,omitempty"`
	OrderDeadlineDays *int        `json:"orderDeadlineDays,omitempty"`
	PaymentMethod     string      `json:"paymentMethod"`
	IsActive          bool        `json:"isActive"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// PublicPartner is the reduced shape served to the marketing site.
type PublicPartner struct {
	ID      string      `json:"id"`
	Type    PartnerType `json:"type"`
	Name    string      `json:"name"`
	Address string      `json:"address"`
	City    string      `json:"city"`
	Phone   string      `json:"phone"`
}

// CreatePartnerRequest carries admin input for a new partner.
type CreatePartnerRequest struct {
	Type              PartnerType `json:"type" validate:"required,oneof=RESTAURANT SHOP DEPOT_AUTOMATE"`
	Name              string      `json:"name" validate:"required"`
	Address           string      `json:"address"`
	City              string      `json:"city"`
	Phone             string      `json:"phone"`
	Email             string      `json:"email" validate:"omitempty,email"`
	FixedDeliveryDays []int       `json:"fixedDeliveryDays" validate:"omitempty,dive,gte=0,lte=6"`
	PaymentMethod     string      `json:"paymentMethod"`
}

// UpdatePartnerRequest carries partial admin updates.
type UpdatePartnerRequest struct {
	Name              *string `json:"name,omitempty"`
	Address           *string `json:"address,omitempty"`
	City              *string `json:"city,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	Email             *string `json:"email,omitempty" validate:"omitempty,email"`
	FixedDeliveryDays *[]int  `json:"fixedDeliveryDays,omitempty" validate:"omitempty,dive,gte=0,lte=6"`
	OrderDeadlineTime *string `json:"orderDeadlineTime,omitempty"`
	OrderDeadlineDays *int    `json:"orderDeadlineDays,omitempty" validate:"omitempty,gte=0"`
	PaymentMethod     *string `json:"paymentMethod,omitempty"`
	IsActive          *bool   `json:"isActive,omitempty"`
}
