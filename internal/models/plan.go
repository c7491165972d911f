package models

// PlanText is a headline with a supporting line, used for prices and features.
type PlanText struct {
	PrimaryText   string `json:"primaryText"`
	SecondaryText string `json:"secondaryText,omitempty"`
}

// Plan describes one entry of the pricing catalog.
type Plan struct {
	ID            string     `json:"id" example:"free"`
	Name          string     `json:"name" example:"Free"`
	Description   string     `json:"description"`
	Price         PlanText   `json:"price"`
	Items         []PlanText `json:"items"`
	RecommendText string     `json:"recommendText,omitempty" example:"Most Popular"`
}

// Recommended reports whether the plan is highlighted in the comparison view.
func (p Plan) Recommended() bool {
	return p.RecommendText != ""
}
