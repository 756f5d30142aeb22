package types

// Rating is the moderation verdict for one candidate.
type Rating string

const (
	RatingSafe     Rating = "safe"
	RatingMild     Rating = "mild"
	RatingModerate Rating = "moderate"
	RatingFlagged  Rating = "flagged"
	RatingBlocked  Rating = "blocked"
)

var ratingRank = map[Rating]int{
	RatingSafe:     0,
	RatingMild:     1,
	RatingModerate: 2,
	RatingFlagged:  3,
	RatingBlocked:  4,
}

// Valid reports whether r is one of the known levels.
func (r Rating) Valid() bool {
	_, ok := ratingRank[r]
	return ok
}

// Max returns the more severe of r and other.
func (r Rating) Max(other Rating) Rating {
	if ratingRank[other] > ratingRank[r] {
		return other
	}
	return r
}
