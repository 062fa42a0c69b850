// Package timezone resolves the timezone identifiers reported alongside
// query results.
package timezone

import "time"

// Resolver reports the timezone the results were computed in and, when the
// client asked for one, the timezone it requested.
type Resolver interface {
	ResultsTimezoneID() string
	RequestedTimezoneID() string
}

// Static is a Resolver with fixed answers.
type Static struct {
	Results   string
	Requested string
}

func (s Static) ResultsTimezoneID() string   { return s.Results }
func (s Static) RequestedTimezoneID() string { return s.Requested }

// System resolves the results timezone from the local system clock and
// reports no requested timezone.
type System struct{}

func (System) ResultsTimezoneID() string {
	zone, _ := time.Now().Zone()
	return zone
}

func (System) RequestedTimezoneID() string { return "" }
