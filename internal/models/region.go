package models

// Coordinate is a WGS84 point.
type Coordinate struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

// Region partitions sites and inspections between groups of volunteers.
// ShortName is assigned once and never reused.
type Region struct {
	ShortName   string     `json:"shortName" validate:"required,max=32"`
	DisplayName string     `json:"displayName" validate:"max=128"`
	Corner1     Coordinate `json:"corner1"`
	Corner2     Coordinate `json:"corner2"`
	Center      Coordinate `json:"center"`
}

// RegionNames extracts the short names in order.
func RegionNames(regions []Region) []string {
	out := make([]string, 0, len(regions))
	for _, r := range regions {
		out = append(out, r.ShortName)
	}
	return out
}
