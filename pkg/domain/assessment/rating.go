package assessment

import (
	"encoding/json"
	"fmt"
)

// Rating is the coarse complexity classification of a category score.
type Rating string

const (
	RatingLow    Rating = "Low"
	RatingMedium Rating = "Medium"
	RatingHigh   Rating = "High"
)

// Rating cut points on the 0-100 score scale.
const (
	ratingMediumFloor = 34
	ratingHighFloor   = 67
)

// RatingForScore maps a numeric score onto its rating band.
func RatingForScore(score int) Rating {
	switch {
	case score < ratingMediumFloor:
		return RatingLow
	case score < ratingHighFloor:
		return RatingMedium
	default:
		return RatingHigh
	}
}

// AllRatings returns the ratings in ascending severity order.
func AllRatings() []Rating {
	return []Rating{RatingLow, RatingMedium, RatingHigh}
}

// IsValid returns true if the rating is one of the known bands.
func (r Rating) IsValid() bool {
	switch r {
	case RatingLow, RatingMedium, RatingHigh:
		return true
	default:
		return false
	}
}

// String returns the string representation of the rating.
func (r Rating) String() string {
	return string(r)
}

// Severity returns the rating's position in ascending order (Low=0, High=2).
func (r Rating) Severity() int {
	switch r {
	case RatingLow:
		return 0
	case RatingMedium:
		return 1
	case RatingHigh:
		return 2
	default:
		return -1
	}
}

// ParseRating parses a string into a Rating.
func ParseRating(s string) (Rating, error) {
	rating := Rating(s)
	if !rating.IsValid() {
		return "", fmt.Errorf("invalid rating: %s", s)
	}
	return rating, nil
}

// MarshalJSON implements json.Marshaler.
func (r Rating) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(r))
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Rating) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	rating := Rating(str)
	if !rating.IsValid() {
		return fmt.Errorf("invalid rating: %s", str)
	}

	*r = rating
	return nil
}

// Category identifies which asset class a complexity result describes.
type Category string

const (
	CategoryRepositories Category = "repositories"
	CategoryPipelines    Category = "pipelines"
	CategoryWorkItems    Category = "work_items"
	CategoryOverall      Category = "overall"
)

// IsValid returns true if the category is a known asset class.
func (c Category) IsValid() bool {
	switch c {
	case CategoryRepositories, CategoryPipelines, CategoryWorkItems, CategoryOverall:
		return true
	default:
		return false
	}
}

// String returns the string representation of the category.
func (c Category) String() string {
	return string(c)
}
