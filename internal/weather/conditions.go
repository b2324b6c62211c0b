package weather

import "github.com/i474232898/weather-gateway/internal/common"

// ConditionFromCode maps a WMO weather interpretation code (as used by
// Open-Meteo) to a normalized Condition.
func ConditionFromCode(code int) Condition {
	switch {
	case code == 0:
		return ConditionClear
	case code >= 1 && code <= 3:
		return ConditionCloudy
	case code == 45 || code == 48:
		return ConditionFog
	case (code >= 51 && code <= 67) || (code >= 80 && code <= 82):
		return ConditionRain
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return ConditionSnow
	case code >= 95 && code <= 99:
		return ConditionStorm
	default:
		return ConditionUnknown
	}
}

// ConditionFromText maps a free-text description such as NWS
// "textDescription" to a normalized Condition.
func ConditionFromText(text string) Condition {
	switch {
	case text == "":
		return ConditionUnknown
	case common.HasAny(text, "thunder", "storm"):
		return ConditionStorm
	case common.HasAny(text, "snow", "sleet", "blizzard", "ice pellets", "flurries"):
		return ConditionSnow
	case common.HasAny(text, "rain", "shower", "drizzle"):
		return ConditionRain
	case common.HasAny(text, "fog", "mist", "haze", "smoke"):
		return ConditionFog
	case common.HasAny(text, "cloud", "overcast"):
		return ConditionCloudy
	case common.HasAny(text, "sunny", "clear", "fair"):
		return ConditionClear
	default:
		return ConditionUnknown
	}
}

// IsThunderstormCode reports whether code denotes a thunderstorm.
func IsThunderstormCode(code int) bool {
	return code >= 95 && code <= 99
}
