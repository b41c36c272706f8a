package view

import (
	"io"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/forecast-widget/forecast-widget/internal/forecast"
)

// Page is everything the full widget page shows.
type Page struct {
	Title     string
	Locations []forecast.Location
	Selected  string // location ID
	Unit      forecast.Unit
	Cards     []forecast.DisplayCard
	Loading   bool
	Error     string
}

const stylesheet = `
body { font-family: system-ui, sans-serif; margin: 2rem; background: #f4f6fb; color: #1d2433; }
.controls { display: flex; gap: 1rem; align-items: center; flex-wrap: wrap; margin-bottom: 1.5rem; }
.forecast-container { display: grid; grid-template-columns: repeat(auto-fill, minmax(9rem, 1fr)); gap: 1rem; }
.weather-card { background: #fff; border-radius: .75rem; padding: 1rem; text-align: center; box-shadow: 0 1px 3px rgba(0,0,0,.12); }
.weather-card.highlight { outline: 2px solid #3b82f6; }
.weather-icon { font-size: 2rem; margin: 0 .25rem; }
.condition { font-weight: 600; margin: .5rem 0; }
.temp-high { color: #c2410c; }
.temp-low { color: #1d4ed8; }
.error { color: #b91c1c; }
.hidden { display: none; }
`

// Document builds the full page node tree.
func Document(p Page) *html.Node {
	doc := &html.Node{Type: html.DocumentNode}
	doc.AppendChild(&html.Node{Type: html.DoctypeNode, Data: "html"})

	head := appendAll(el(atom.Head),
		el(atom.Meta, attr("charset", "utf-8")),
		el(atom.Meta, attr("name", "viewport"), attr("content", "width=device-width, initial-scale=1")),
		withText(el(atom.Title), p.Title),
		withText(el(atom.Style), stylesheet),
	)

	body := appendAll(el(atom.Body),
		withText(el(atom.H1), p.Title),
		controls(p),
		withText(el(atom.Div, attr("id", "loading"), visibility(!p.Loading, "loading")), "Loading forecast..."),
		withText(el(atom.P, attr("id", "errorMessage"), attr("role", "alert"), visibility(p.Error == "", "error")), p.Error),
		Container(p.Cards, p.Loading),
	)

	doc.AppendChild(appendAll(el(atom.Html, attr("lang", "en")), head, body))
	return doc
}

func controls(p Page) *html.Node {
	sel := el(atom.Select, attr("id", "citySelect"), attr("name", "location"), attr("onchange", "this.form.submit()"))
	for _, loc := range p.Locations {
		opt := el(atom.Option, attr("value", loc.ID()))
		if loc.ID() == p.Selected {
			opt.Attr = append(opt.Attr, attr("selected", "selected"))
		}
		sel.AppendChild(withText(opt, loc.Name))
	}

	selectForm := appendAll(el(atom.Form, attr("method", "post"), attr("action", "/select")),
		withText(el(atom.Label, attr("for", "citySelect")), "City "),
		sel,
		withText(el(atom.Button, attr("type", "submit")), "Show"),
	)

	unitForm := appendAll(el(atom.Form, attr("method", "post"), attr("action", "/toggle")),
		withText(el(atom.Span, attr("id", "temperatureUnit")), p.Unit.Label()),
		text(" "),
		withText(el(atom.Button, attr("id", "tempToggleBtn"), attr("type", "submit")), p.Unit.ToggleLabel()),
	)

	return appendAll(el(atom.Div, class("controls")), selectForm, unitForm)
}

// RenderPage writes the full page.
func RenderPage(w io.Writer, p Page) error {
	return html.Render(w, Document(p))
}
