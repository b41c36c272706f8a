package view

import (
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/forecast-widget/forecast-widget/internal/forecast"
)

// Card builds the node for one day card.
func Card(c forecast.DisplayCard) *html.Node {
	classes := []string{"weather-card"}
	if c.Featured {
		classes = append(classes, "highlight")
	}

	return appendAll(el(atom.Div, class(classes...)),
		withText(el(atom.Div, class("date")), c.Date),
		appendAll(el(atom.Div, class("weather-icons")),
			withText(el(atom.Span, class("weather-icon"), attr("aria-label", "Day weather")), c.DayIcon),
			withText(el(atom.Span, class("weather-icon"), attr("aria-label", "Night weather")), c.NightIcon),
		),
		withText(el(atom.Div, class("condition")), c.Condition),
		appendAll(el(atom.Div, class("temperatures")),
			withText(el(atom.Div, class("temp-high")), c.HighLabel()),
			withText(el(atom.Div, class("temp-low")), c.LowLabel()),
		),
	)
}

// Container builds the forecast container holding one node per card. The
// container is hidden while a fetch is loading.
func Container(cards []forecast.DisplayCard, loading bool) *html.Node {
	n := el(atom.Div, attr("id", "forecastContainer"), visibility(loading, "forecast-container"))
	for _, c := range cards {
		n.AppendChild(Card(c))
	}
	return n
}

// RenderFragment writes the card container on its own.
func RenderFragment(w io.Writer, cards []forecast.DisplayCard, loading bool) error {
	return html.Render(w, Container(cards, loading))
}
