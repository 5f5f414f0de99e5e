// Package charts draws the valuation charts attached to metrics answers as
// base64 encoded SVG documents.
package charts

import (
	"encoding/base64"
	"errors"
	"fmt"
	"html"
	"math"
	"strings"

	"research_assistant/pkg/core/metricstore"
)

const (
	MarketValuation = "market_valuation"
	PERatios        = "pe_ratios"
	PriceRatios     = "price_ratios"
)

var ErrNoData = errors.New("no rows to chart")

// Renderer turns metric rows into named chart images.
type Renderer interface {
	Render(rows []metricstore.ValuationRow) (map[string]string, error)
}

type series struct {
	name   string
	color  string
	values []float64
}

type chart struct {
	title, yLabel string
	labels        []string
	series        []series
	bars          bool
}

// SVGRenderer draws fixed-size SVG charts. It is stateless.
type SVGRenderer struct {
	Subject       string
	Width, Height int
}

func NewSVGRenderer(subject string) *SVGRenderer {
	return &SVGRenderer{Subject: subject, Width: 800, Height: 480}
}

func (r *SVGRenderer) Render(rows []metricstore.ValuationRow) (map[string]string, error) {
	if len(rows) == 0 {
		return nil, ErrNoData
	}
	labels := make([]string, len(rows))
	pick := func(f func(metricstore.ValuationRow) float64) []float64 {
		out := make([]float64, len(rows))
		for i, row := range rows {
			out[i] = f(row)
		}
		return out
	}
	for i, row := range rows {
		labels[i] = row.Period.String()
	}

	charts := map[string]chart{
		MarketValuation: {
			title: r.Subject + " Market Cap vs Enterprise Value", yLabel: "Value (Billions USD)", labels: labels, bars: true,
			series: []series{
				{"Market Cap", "#1f77b4", pick(func(v metricstore.ValuationRow) float64 { return v.MarketCap / 1e9 })},
				{"Enterprise Value", "#ff7f0e", pick(func(v metricstore.ValuationRow) float64 { return v.EnterpriseValue / 1e9 })},
			},
		},
		PERatios: {
			title: r.Subject + " P/E Ratios", yLabel: "P/E Ratio", labels: labels,
			series: []series{
				{"Trailing P/E", "#1f77b4", pick(func(v metricstore.ValuationRow) float64 { return v.TrailingPE })},
				{"Forward P/E", "#ff7f0e", pick(func(v metricstore.ValuationRow) float64 { return v.ForwardPE })},
			},
		},
		PriceRatios: {
			title: r.Subject + " Price Ratios", yLabel: "Ratio", labels: labels,
			series: []series{
				{"Price to Sales", "#2ca02c", pick(func(v metricstore.ValuationRow) float64 { return v.PriceToSales })},
				{"Price to Book", "#d62728", pick(func(v metricstore.ValuationRow) float64 { return v.PriceToBook })},
			},
		},
	}

	out := make(map[string]string, len(charts))
	for name, c := range charts {
		out[name] = base64.StdEncoding.EncodeToString([]byte(r.draw(c)))
	}
	return out, nil
}

func (r *SVGRenderer) draw(c chart) string {
	const left, right, top, bottom = 70.0, 20.0, 50.0, 70.0
	w, h := float64(r.Width), float64(r.Height)
	plotW, plotH := w-left-right, h-top-bottom

	lo, hi := 0.0, 0.0
	for _, s := range c.series {
		for _, v := range s.values {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if hi == lo {
		hi = lo + 1
	}
	y := func(v float64) float64 { return top + plotH - (v-lo)/(hi-lo)*plotH }
	step := plotW / float64(len(c.labels))
	x := func(i int) float64 { return left + step*(float64(i)+0.5) }

	var b strings.Builder
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d" font-family="sans-serif" font-size="12">`, r.Width, r.Height, r.Width, r.Height)
	b.WriteString(`<rect width="100%" height="100%" fill="#fff"/>`)
	fmt.Fprintf(&b, `<text x="%.1f" y="24" text-anchor="middle" font-size="16">%s</text>`, w/2, html.EscapeString(c.title))
	fmt.Fprintf(&b, `<text transform="translate(16 %.1f) rotate(-90)" text-anchor="middle">%s</text>`, top+plotH/2, html.EscapeString(c.yLabel))

	// axes and gridlines
	fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333"/>`, left, top, left, top+plotH)
	fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#333"/>`, left, y(0), left+plotW, y(0))
	for i := 0; i <= 4; i++ {
		v := lo + (hi-lo)*float64(i)/4
		fmt.Fprintf(&b, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="#ddd"/>`, left, y(v), left+plotW, y(v))
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f" text-anchor="end">%.1f</text>`, left-6, y(v)+4, v)
	}
	for i, label := range c.labels {
		fmt.Fprintf(&b, `<text transform="translate(%.1f %.1f) rotate(45)">%s</text>`, x(i), top+plotH+14, html.EscapeString(label))
	}

	if c.bars {
		barW := step * 0.8 / float64(len(c.series))
		for si, s := range c.series {
			for i, v := range s.values {
				bx := x(i) - step*0.4 + barW*float64(si)
				y0, y1 := math.Min(y(v), y(0)), math.Max(y(v), y(0))
				fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" fill="%s"/>`, bx, y0, barW, y1-y0, s.color)
			}
		}
	} else {
		for _, s := range c.series {
			points := make([]string, len(s.values))
			for i, v := range s.values {
				points[i] = fmt.Sprintf("%.1f,%.1f", x(i), y(v))
				fmt.Fprintf(&b, `<circle cx="%.1f" cy="%.1f" r="3" fill="%s"/>`, x(i), y(v), s.color)
			}
			fmt.Fprintf(&b, `<polyline points="%s" fill="none" stroke="%s" stroke-width="2"/>`, strings.Join(points, " "), s.color)
		}
	}

	// legend
	for si, s := range c.series {
		ly := top + 8 + float64(si)*18
		fmt.Fprintf(&b, `<rect x="%.1f" y="%.1f" width="12" height="12" fill="%s"/>`, left+plotW-150, ly-10, s.color)
		fmt.Fprintf(&b, `<text x="%.1f" y="%.1f">%s</text>`, left+plotW-132, ly, html.EscapeString(s.name))
	}
	b.WriteString(`</svg>`)
	return b.String()
}
