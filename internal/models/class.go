package models

import "strings"

// CollegeClass is one of the fixed year-level and program-track combinations.
type CollegeClass string

const (
	Class1BScNursing CollegeClass = "1yr BSc Nursing"
	Class2BScNursing CollegeClass = "2yr BSc Nursing"
	Class3BScNursing CollegeClass = "3yr BSc Nursing"
	Class4BScNursing CollegeClass = "4yr BSc Nursing"
	Class1GNM        CollegeClass = "1yr GNM"
	Class2GNM        CollegeClass = "2yr GNM"
	Class3GNM        CollegeClass = "3yr GNM"
	Class4GNM        CollegeClass = "4yr GNM"
)

// Program tracks offered by the college.
const (
	TrackBScNursing = "BSc Nursing"
	TrackGNM        = "GNM"
)

// Classes lists every class in display order.
var Classes = []CollegeClass{
	Class1BScNursing, Class2BScNursing, Class3BScNursing, Class4BScNursing,
	Class1GNM, Class2GNM, Class3GNM, Class4GNM,
}

// Valid reports whether c is a member of the closed class set.
func (c CollegeClass) Valid() bool {
	for _, known := range Classes {
		if c == known {
			return true
		}
	}
	return false
}

// Track returns the program track of the class.
func (c CollegeClass) Track() string {
	if strings.HasSuffix(string(c), TrackGNM) {
		return TrackGNM
	}
	return TrackBScNursing
}

// ParseCollegeClass matches raw input against the class set ignoring case and outer spaces.
func ParseCollegeClass(raw string) (CollegeClass, bool) {
	trimmed := strings.TrimSpace(raw)
	for _, known := range Classes {
		if strings.EqualFold(trimmed, string(known)) {
			return known, true
		}
	}
	return "", false
}
