package gpa

// Standing bands a CGPA for display.
type Standing struct {
	Band  string `json:"band"`
	Label string `json:"label"`
}

// StandingFor returns the band cgpa falls in.
func StandingFor(cgpa float64) Standing {
	switch {
	case cgpa >= 3.5:
		return Standing{Band: "excellent", Label: "Excellent"}
	case cgpa >= 3.0:
		return Standing{Band: "very_good", Label: "Very Good"}
	case cgpa >= 2.5:
		return Standing{Band: "good", Label: "Good"}
	default:
		return Standing{Band: "fair", Label: "Fair"}
	}
}
