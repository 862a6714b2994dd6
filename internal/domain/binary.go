package domain

// BinaryState is the normalised value of a two-state entity (switch, door,
// motion sensor, connectivity sensor).
type BinaryState int

const (
	BinaryUnknown BinaryState = iota
	BinaryFalse
	BinaryTrue
)

var trueStrings = map[string]struct{}{
	"True": {}, "true": {},
	"Online": {}, "online": {},
	"ON": {}, "On": {}, "on": {},
	"Open": {}, "open": {},
	"Motion Detected": {}, "motion_detected": {},
}

var falseStrings = map[string]struct{}{
	"False": {}, "false": {},
	"Offline": {}, "offline": {},
	"OFF": {}, "Off": {}, "off": {},
	"Closed": {}, "closed": {},
	"No Motion": {}, "no_motion": {},
}

// ParseBinary maps the sentinel strings Home Assistant integrations use for
// two-state entities. Anything else, "unavailable" included, is unknown.
func ParseBinary(s string) BinaryState {
	if _, ok := trueStrings[s]; ok {
		return BinaryTrue
	}
	if _, ok := falseStrings[s]; ok {
		return BinaryFalse
	}
	return BinaryUnknown
}

func (b BinaryState) String() string {
	switch b {
	case BinaryTrue:
		return "true"
	case BinaryFalse:
		return "false"
	default:
		return "unknown"
	}
}
