package weather

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/i474232898/airport-weather/internal/common"
)

const (
	selectorAdvisoryBox   = ".cmp-weather-cmt-txt-box"
	selectorAdvisoryLines = ".cmp-weather-cmt-txt-box .paragraph p.tit"

	advisoryBullet   = "o"
	advisoryIssued   = "발표"
	advisoryNegation = "제외"
	heavySnow        = "대설"
)

// AdvisoryLines returns the bulleted lines of the special-report overview page.
func AdvisoryLines(doc *goquery.Document) ([]string, error) {
	if doc.Find(selectorAdvisoryBox).Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSelectorTimeout, selectorAdvisoryBox)
	}

	var lines []string
	doc.Find(selectorAdvisoryLines).Each(func(_ int, p *goquery.Selection) {
		for _, line := range strings.Split(renderText(p), "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, advisoryBullet) {
				lines = append(lines, line)
			}
		}
	})
	return lines, nil
}

// renderText approximates rendered text: <br> and block elements become line breaks.
func renderText(s *goquery.Selection) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			b.WriteString(n.Data)
		case n.Type == html.ElementNode && n.Data == "br":
			b.WriteByte('\n')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode && (n.Data == "p" || n.Data == "div" || n.Data == "li") {
			b.WriteByte('\n')
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return b.String()
}

// ParseAdvisoryLine splits "o 강풍주의보 : 제주도(제주도북부)" into type and content.
// Date stamps, announcement lines and lines without a type are rejected.
func ParseAdvisoryLine(line string) (rawType, content string, ok bool) {
	body := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), advisoryBullet))
	rawType, content, found := strings.Cut(body, ":")
	if !found {
		return "", "", false
	}
	rawType = strings.TrimSpace(rawType)
	content = strings.TrimSpace(content)

	if rawType == "" || strings.Contains(rawType, advisoryIssued) {
		return "", "", false
	}
	if r, _ := utf8.DecodeRuneInString(rawType); unicode.IsDigit(r) {
		return "", "", false
	}
	return rawType, content, true
}

// NormalizeAdvisoryType maps an advisory type to its short display code.
func NormalizeAdvisoryType(rawType string) string {
	if !strings.Contains(rawType, heavySnow) {
		return common.FirstRunes(rawType, 2)
	}
	switch {
	case common.HasAny(rawType, "예비", "예보"):
		return "대설예"
	case strings.Contains(rawType, "주의보"):
		return "대설주"
	case strings.Contains(rawType, "경보"):
		return "대설경"
	default:
		return common.FirstRunes(rawType, 3)
	}
}

// Matcher attributes advisory lines to airports through their region aliases.
type Matcher struct {
	airports []RegionMapping
	patterns map[string]*regexp.Regexp
}

// NewMatcher compiles one pattern per distinct upper-region alias.
func NewMatcher(tables Tables) *Matcher {
	m := &Matcher{
		airports: tables.Airports,
		patterns: make(map[string]*regexp.Regexp),
	}
	for _, a := range tables.Airports {
		for _, alias := range a.Upper {
			if _, ok := m.patterns[alias]; !ok {
				m.patterns[alias] = regexp.MustCompile(regexp.QuoteMeta(alias) + `(?:\(([^)]+)\))?`)
			}
		}
	}
	return m
}

// Match returns one record per mapped airport in table order.
func (m *Matcher) Match(lines []string) []SpecialReportRecord {
	found := make([][]string, len(m.airports))

	for _, line := range lines {
		rawType, content, ok := ParseAdvisoryLine(line)
		if !ok {
			continue
		}
		code := NormalizeAdvisoryType(rawType)
		for i, a := range m.airports {
			if m.covers(content, a) && !slices.Contains(found[i], code) {
				found[i] = append(found[i], code)
			}
		}
	}

	records := make([]SpecialReportRecord, 0, len(m.airports))
	for i, a := range m.airports {
		report := NoAdvisory
		if len(found[i]) > 0 {
			report = strings.Join(found[i], ", ")
		}
		records = append(records, SpecialReportRecord{
			Airport:       a.Name,
			ICAO:          a.ICAO,
			SpecialReport: report,
		})
	}
	return records
}

// covers reports whether any alias occurrence in content includes the airport's sub-region.
// Occurrences nested in another parenthesis or glued to a longer Hangul name are ignored.
func (m *Matcher) covers(content string, a RegionMapping) bool {
	lower := common.StripSpaces(a.Lower)
	for _, alias := range a.Upper {
		if !strings.Contains(content, alias) {
			continue
		}
		for _, loc := range m.patterns[alias].FindAllStringSubmatchIndex(content, -1) {
			start, aliasEnd := loc[0], loc[0]+len(alias)
			if parenDepth(content[:start]) > 0 || continuesWord(content[aliasEnd:]) {
				continue
			}
			if loc[2] < 0 {
				return true
			}
			qualifier := common.StripSpaces(content[loc[2]:loc[3]])
			if strings.Contains(qualifier, advisoryNegation) {
				if !strings.Contains(qualifier, lower) {
					return true
				}
				continue
			}
			if strings.Contains(qualifier, lower) {
				return true
			}
		}
	}
	return false
}

func parenDepth(s string) int {
	depth := 0
	for _, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		}
	}
	return depth
}

func continuesWord(rest string) bool {
	r, size := utf8.DecodeRuneInString(rest)
	return size > 0 && unicode.Is(unicode.Hangul, r)
}
