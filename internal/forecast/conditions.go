package forecast

// FallbackCondition is the code used for anything missing from the table.
const FallbackCondition = "clear"

var conditions = map[string]ConditionEntry{
	"clear":     {Code: "clear", Name: "CLEAR", Icon: "☀️", DayIcon: "☀️", NightIcon: "🌙"},
	"cloudy":    {Code: "cloudy", Name: "CLOUDY", Icon: "☁️", DayIcon: "☁️", NightIcon: "☁️"},
	"pcloudy":   {Code: "pcloudy", Name: "PARTLY CLOUDY", Icon: "🌤️", DayIcon: "🌤️", NightIcon: "🌙"},
	"mcloudy":   {Code: "mcloudy", Name: "MOSTLY CLOUDY", Icon: "⛅", DayIcon: "⛅", NightIcon: "☁️"},
	"lightrain": {Code: "lightrain", Name: "LIGHT RAIN", Icon: "🌦️", DayIcon: "🌦️", NightIcon: "🌧️"},
	"rain":      {Code: "rain", Name: "RAIN", Icon: "🌧️", DayIcon: "🌧️", NightIcon: "🌧️"},
	"lightsnow": {Code: "lightsnow", Name: "LIGHT SNOW", Icon: "🌨️", DayIcon: "🌨️", NightIcon: "🌨️"},
	"snow":      {Code: "snow", Name: "SNOW", Icon: "❄️", DayIcon: "❄️", NightIcon: "❄️"},
	"humid":     {Code: "humid", Name: "HUMID", Icon: "💧", DayIcon: "💧", NightIcon: "💧"},
	"oshower":   {Code: "oshower", Name: "SHOWERS", Icon: "🌦️", DayIcon: "🌦️", NightIcon: "🌧️"},
	"ishower":   {Code: "ishower", Name: "HEAVY RAIN", Icon: "🌧️", DayIcon: "🌧️", NightIcon: "🌧️"},
	"ts":        {Code: "ts", Name: "THUNDERSTORM", Icon: "⛈️", DayIcon: "⛈️", NightIcon: "⛈️"},
	"tsrain":    {Code: "tsrain", Name: "STORM", Icon: "⛈️", DayIcon: "⛈️", NightIcon: "⛈️"},
	"fog":       {Code: "fog", Name: "FOG", Icon: "🌫️", DayIcon: "🌫️", NightIcon: "🌫️"},
	"windy":     {Code: "windy", Name: "WINDY", Icon: "💨", DayIcon: "💨", NightIcon: "💨"},
}

// Resolve returns the display entry for a weather code. Codes not in the
// table resolve to the "clear" entry.
func Resolve(code string) ConditionEntry {
	if entry, ok := conditions[code]; ok {
		return entry
	}
	return conditions[FallbackCondition]
}

// codes lists every known weather code.
func codes() []string {
	codes := make([]string, 0, len(conditions))
	for code := range conditions {
		codes = append(codes, code)
	}
	return codes
}

// SelectIcons picks the primary and secondary icons for an entry. Hours from
// 18 through 6 inclusive count as night. The secondary slot always shows the
// night icon.
func SelectIcons(timepoint int, entry ConditionEntry) (primary, night string) {
	isNight := timepoint >= 18 || timepoint <= 6
	if isNight {
		return entry.NightIcon, entry.NightIcon
	}
	return entry.DayIcon, entry.NightIcon
}
