package forecast

import "time"

// MaxCards is the number of days shown.
const MaxCards = 7

// DateLayout formats card dates, e.g. "Tue Jun 3".
const DateLayout = "Mon Jan 2"

// Render maps the first MaxCards entries of series to display cards in input
// order. The first card is featured.
//
// The provider's series carries no dates, so entry i is labelled with
// now + i days in now's location. That assumes the provider returns one entry
// per consecutive day starting today, which its API does not promise.
func Render(series []ForecastDay, unit Unit, now time.Time) []DisplayCard {
	n := len(series)
	if n > MaxCards {
		n = MaxCards
	}

	cards := make([]DisplayCard, 0, n)
	for i, day := range series[:n] {
		cards = append(cards, renderDay(day, i, unit, now))
	}
	return cards
}

func renderDay(day ForecastDay, index int, unit Unit, now time.Time) DisplayCard {
	entry := Resolve(day.Weather)
	primary, night := SelectIcons(day.Hour(), entry)
	high, low := ExtractHighLow(day)

	return DisplayCard{
		Date:      DateLabel(now, index),
		Featured:  index == 0,
		DayIcon:   primary,
		NightIcon: night,
		Condition: entry.Name,
		High:      Convert(high, unit),
		Low:       Convert(low, unit),
		Symbol:    unit.Symbol(),
	}
}

// DateLabel returns the label for the day offset days after now.
func DateLabel(now time.Time, offset int) string {
	return now.AddDate(0, 0, offset).Format(DateLayout)
}
