package weather

// Condition labels form a fixed vocabulary shared with the good/bad
// configuration sets and with persisted records.
const (
	ConditionClear        = "clear"
	ConditionClouds       = "clouds"
	ConditionFog          = "fog"
	ConditionDrizzle      = "drizzle"
	ConditionRain         = "rain"
	ConditionSnow         = "snow"
	ConditionThunderstorm = "thunderstorm"
	ConditionUnknown      = "unknown"
)

// conditionFromWMOCode maps WMO weather interpretation codes (as served by
// Open-Meteo) onto the condition vocabulary.
func conditionFromWMOCode(code int) (condition, description string) {
	switch {
	case code == 0:
		return ConditionClear, "clear sky"
	case code >= 1 && code <= 3:
		return ConditionClouds, "partly cloudy"
	case code == 45 || code == 48:
		return ConditionFog, "fog"
	case code >= 51 && code <= 57:
		return ConditionDrizzle, "drizzle"
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return ConditionRain, "rain"
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return ConditionSnow, "snow"
	case code >= 95 && code <= 99:
		return ConditionThunderstorm, "thunderstorm"
	default:
		return ConditionUnknown, "unknown conditions"
	}
}

// ClassifyVerdict decides lunch suitability. Good requires the temperature to
// strictly exceed the minimum and the condition to be in the good set; the bad
// set always overrides, even when a condition appears in both.
func ClassifyVerdict(temperature int, condition string, minTemperature int, good, bad []string) bool {
	for _, b := range bad {
		if condition == b {
			return false
		}
	}
	if temperature <= minTemperature {
		return false
	}
	for _, g := range good {
		if condition == g {
			return true
		}
	}
	return false
}
