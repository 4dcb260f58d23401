package weather

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const (
	selectorAirportItem = "li.ca-item"
	selectorAirportName = ".main_air_name"
	selectorAirportCode = ".main_air_name span"
	selectorWeather     = ".main_air_wthr"
	selectorHiddenText  = ".blind, .sr-only"
	selectorAirText     = ".main_air_text"
	selectorTemp        = ".main_air_text b"
	selectorInfoItems   = ".main_air_info ul li"
	selectorInfoTime    = ".info_time"
)

var windChillSuffix = regexp.MustCompile(`체감.*`)

// ExtractObservations turns the airport directory page into one snapshot per airport.
// Forecast12h is left empty. A page without airport items yields ErrSelectorTimeout.
func ExtractObservations(doc *goquery.Document, tables Tables) ([]AirportSnapshot, error) {
	items := doc.Find(selectorAirportItem)
	if items.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSelectorTimeout, selectorAirportItem)
	}

	seen := make(map[string]bool, items.Length())
	out := make([]AirportSnapshot, 0, items.Length())

	items.Each(func(_ int, item *goquery.Selection) {
		nameEl := item.Find(selectorAirportName).First()
		if nameEl.Length() == 0 {
			return
		}
		code := textOf(item.Find(selectorAirportCode).First())
		if code == "" || seen[code] {
			return
		}
		seen[code] = true

		weatherEl := item.Find(selectorWeather).First()
		snap := AirportSnapshot{
			Name:      textOf(nameEl.Contents().First()),
			Code:      code,
			IconClass: weatherEl.Find("span").First().AttrOr("class", ""),
			Temp:      textOf(item.Find(selectorTemp).First()),
			Time:      textOf(item.Find(selectorInfoTime).First()),
		}
		snap.Condition = deriveCondition(weatherEl, snap.IconClass, tables.Icons)
		if snap.Condition == autoObservation || snap.Condition == NoCondition {
			snap.Condition = conditionFromLines(item.Find(selectorAirText).First())
		}
		snap.Condition = finalizeCondition(snap.Condition)
		fillInfo(&snap, item.Find(selectorInfoItems))

		out = append(out, snap)
	})

	return out, nil
}

// deriveCondition resolves the weather phrase from hidden text, visible text or the icon token.
func deriveCondition(weatherEl *goquery.Selection, iconClass string, icons map[string]string) string {
	if hidden := textOf(weatherEl.Find(selectorHiddenText).First()); hidden != "" {
		return hidden
	}

	raw := textOf(weatherEl)
	if raw != "" && !strings.Contains(raw, windChill) {
		return raw
	}

	if phrase, ok := conditionFromIcon(iconClass, icons); ok {
		return phrase
	}
	cond := strings.TrimSpace(windChillSuffix.ReplaceAllString(raw, ""))
	if cond == "" {
		return conditionClear
	}
	return cond
}

func conditionFromIcon(iconClass string, icons map[string]string) (string, bool) {
	for _, token := range strings.Fields(iconClass) {
		if phrase, ok := icons[token]; ok {
			return phrase, true
		}
	}
	return "", false
}

// conditionFromLines scans the line-broken observation text for the first usable phrase.
func conditionFromLines(airText *goquery.Selection) string {
	nodes := airText.Contents()
	for i, n := range nodes.Nodes {
		if n.Type != html.ElementNode || n.Data != "br" || i+1 >= len(nodes.Nodes) {
			continue
		}
		line := textOf(nodes.Eq(i + 1))
		if line != "" && line != autoObservation {
			return line
		}
	}
	return NoCondition
}

func finalizeCondition(cond string) string {
	if strings.Contains(cond, windChill) {
		cond = strings.TrimSpace(windChillSuffix.ReplaceAllString(cond, ""))
	}
	if cond == "" || cond == autoObservation {
		return NoCondition
	}
	return cond
}

var infoLabels = []struct {
	label string
	field func(*AirportSnapshot) *string
}{
	{"풍향", func(s *AirportSnapshot) *string { return &s.WindDir }},
	{"풍속", func(s *AirportSnapshot) *string { return &s.WindSpeed }},
	{"시정", func(s *AirportSnapshot) *string { return &s.Visibility }},
	{"운고", func(s *AirportSnapshot) *string { return &s.Cloud }},
	{"일강수", func(s *AirportSnapshot) *string { return &s.Rain }},
}

func fillInfo(snap *AirportSnapshot, items *goquery.Selection) {
	items.Each(func(_ int, li *goquery.Selection) {
		text := textOf(li)
		for _, l := range infoLabels {
			if strings.Contains(text, l.label) {
				*l.field(snap) = strings.TrimSpace(strings.Replace(text, l.label, "", 1))
			}
		}
	})
}

func textOf(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
