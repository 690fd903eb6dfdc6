package domain

// ThinHistoryScore is the fixed confidence assigned to pairs with fewer
// than 2 orders, where most factors are undefined.
const ThinHistoryScore = 20.0

// FactorBreakdown holds the seven normalized [0,1] factors behind a
// confidence score, exposed so a consumer can explain the composite.
type FactorBreakdown struct {
	TrendStability      float64 // inverse of gap CV
	RelationshipAge     float64 // saturating tenure
	QuantityConsistency float64 // inverse of quantity CV
	SeasonalConsistency float64 // calendar-month recurrence across years
	PriceStability      float64 // inverse of price CV
	OverduePenalty      float64 // low when substantially past the mean gap
	VolumeRecency       float64 // order count and recency, both saturating
}

// ConfidenceScore is the 0-100 composite reliability estimate for one
// pair's refill prediction. Pure function of the series: identical input
// always yields an identical score.
type ConfidenceScore struct {
	CustomerID string
	ProductID  string

	Value   float64 // in [0,100]
	Factors FactorBreakdown

	// ThinHistory marks the fixed low-confidence default for pairs with
	// fewer than 2 orders; Factors is zero-valued in that case.
	ThinHistory bool
}
