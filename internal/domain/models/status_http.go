package models

// Requests for the status HTTP endpoints.

type HistoryRequest struct {
	Stream string `param:"stream" json:"stream" validate:"required,oneof=availability anomalies flags"`
	Key    string `query:"key" json:"key" validate:"required,max=200"`
	Since  string `query:"since" json:"since" validate:"omitempty,max=40"`
}

type TierRequest struct {
	Price string `query:"price" json:"price" validate:"required,numeric"`
}

type ItinerariesRequest struct {
	Limit int `query:"limit" json:"limit" default:"50" validate:"gte=1,lte=1000"`
}

type TierResponse struct {
	Price    string    `json:"price"`
	Tier     PriceTier `json:"tier"`
	Notifies bool      `json:"notifies"`
	Silent   bool      `json:"silent"`
}
