package domain

// Rating bands use exclusive lower bounds: 900 is "Very Good", 901 "Excellent".
const (
	RatingExcellent = "Excellent"
	RatingVeryGood  = "Very Good"
	RatingGood      = "Good"
	RatingFair      = "Fair"
	RatingPoor      = "Poor"
	RatingVeryPoor  = "Very Poor"
)

func RatingBand(score int) string {
	switch {
	case score > 900:
		return RatingExcellent
	case score > 800:
		return RatingVeryGood
	case score > 700:
		return RatingGood
	case score > 600:
		return RatingFair
	case score > 500:
		return RatingPoor
	default:
		return RatingVeryPoor
	}
}
