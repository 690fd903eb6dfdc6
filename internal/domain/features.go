package domain

// Thin-history defaults used when a statistic is undefined.
// They are deliberate priors, not silent zeros: a zero CV would read as
// perfect regularity downstream.
const (
	// DefaultGapDays is the neutral monthly prior used as mean gap when a
	// pair has fewer than 2 orders.
	DefaultGapDays = 30.0

	// DefaultCV is the maximum-uncertainty coefficient of variation used
	// when a spread statistic is undefined.
	DefaultCV = 1.0
)

// FeatureVector is the fixed-length numeric representation of one pair's
// interval series. It is the single shared basis for confidence scoring,
// forecasting, clustering input and anomaly detection; every component is
// always defined (thin-history defaults above), never NaN or Inf.
type FeatureVector struct {
	CustomerID string
	ProductID  string

	GapMeanDays  float64 // mean days between orders, DefaultGapDays if <2 orders
	GapStdDev    float64 // sample stddev of gaps, 0 if <3 orders
	GapCV        float64 // GapStdDev/GapMeanDays, DefaultCV if undefined
	QuantityMean float64
	QuantityCV   float64 // DefaultCV if undefined
	PriceMean    float64
	PriceCV      float64 // DefaultCV if undefined
	RecencyDays  float64 // days since last order at the reference time
	TenureDays   float64 // days since first order at the reference time
	OrderCount   float64
	MonthSpread  float64 // population variance of order month (1..12), seasonality signal
}

// FeatureNames lists vector components in Vector() order.
var FeatureNames = []string{
	"gap_mean_days",
	"gap_stddev",
	"gap_cv",
	"quantity_mean",
	"quantity_cv",
	"price_mean",
	"price_cv",
	"recency_days",
	"tenure_days",
	"order_count",
	"month_spread",
}

// Vector returns the components in FeatureNames order for model input.
func (f *FeatureVector) Vector() []float64 {
	return []float64{
		f.GapMeanDays,
		f.GapStdDev,
		f.GapCV,
		f.QuantityMean,
		f.QuantityCV,
		f.PriceMean,
		f.PriceCV,
		f.RecencyDays,
		f.TenureDays,
		f.OrderCount,
		f.MonthSpread,
	}
}

// CustomerFeatures aggregates a customer's pair features for clustering.
// One row per customer, pooled across all of that customer's products.
type CustomerFeatures struct {
	CustomerID string

	ProductCount   float64 // distinct products purchased
	TotalOrders    float64 // orders summed over pairs
	TenureDays     float64 // days since the customer's first order
	RecencyDays    float64 // days since the customer's most recent order
	GapMeanDays    float64 // mean gap pooled across pairs with intervals
	GapCV          float64 // pooled gap CV, DefaultCV if no pair has intervals
	OrderValueMean float64 // mean spend per order
}

// CustomerFeatureNames lists components in Vector() order.
var CustomerFeatureNames = []string{
	"product_count",
	"total_orders",
	"tenure_days",
	"recency_days",
	"gap_mean_days",
	"gap_cv",
	"order_value_mean",
}

// Vector returns the components in CustomerFeatureNames order.
func (c *CustomerFeatures) Vector() []float64 {
	return []float64{
		c.ProductCount,
		c.TotalOrders,
		c.TenureDays,
		c.RecencyDays,
		c.GapMeanDays,
		c.GapCV,
		c.OrderValueMean,
	}
}
