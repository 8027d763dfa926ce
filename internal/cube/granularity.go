package cube

// Granularity is a time bucket size.
type Granularity string

const (
	Second  Granularity = "second"
	Minute  Granularity = "minute"
	Hour    Granularity = "hour"
	Day     Granularity = "day"
	Week    Granularity = "week"
	Month   Granularity = "month"
	Quarter Granularity = "quarter"
	Year    Granularity = "year"
)

// Granularities lists every granularity from finest to coarsest.
var Granularities = []Granularity{Second, Minute, Hour, Day, Week, Month, Quarter, Year}

// Valid reports whether g is a known granularity.
func (g Granularity) Valid() bool {
	for _, known := range Granularities {
		if g == known {
			return true
		}
	}
	return false
}
