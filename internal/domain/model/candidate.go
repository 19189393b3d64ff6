package model

// Contribution is the score a single matched tag added to a candidate.
type Contribution struct {
	Tag   Tag     `json:"trait"`
	Value float64 `json:"value"`
}

// ScoredCandidate is the scoring output for one candidate asset.
type ScoredCandidate struct {
	AssetID       string         `json:"object_id"`
	Name          string         `json:"name"`
	Collection    string         `json:"collection"`
	Score         float64        `json:"score"`
	Contributions []Contribution `json:"matched_traits"`
	Price         *float64       `json:"price,omitempty"`
}
