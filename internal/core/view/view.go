package view

import (
	"fmt"
	"strings"

	"github.com/Nzyazin/fxwidget/internal/core/models"
	"github.com/Nzyazin/fxwidget/internal/core/usecase"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ErrorVisibility decides whether pipeline failures reach the user.
type ErrorVisibility string

const (
	ErrorsSilent  ErrorVisibility = "silent"
	ErrorsSurface ErrorVisibility = "surface"
)

func ParseErrorVisibility(s string) (ErrorVisibility, error) {
	switch ErrorVisibility(strings.ToLower(strings.TrimSpace(s))) {
	case "", ErrorsSilent:
		return ErrorsSilent, nil
	case ErrorsSurface:
		return ErrorsSurface, nil
	default:
		return "", fmt.Errorf("invalid error visibility %q", s)
	}
}

const (
	loadingText      = "Calculating..."
	chartLoadingText = "Loading Graphics..."
	placeholderText  = "Insert a Currency Value"
	primaryFill      = "var(--primary-color)"
	secondaryFill    = "rgba(0, 123, 255, 0.6)"
)

type View struct {
	ID          string                `json:"id"`
	Amount      string                `json:"amount"`
	From        models.CurrencyOption `json:"from"`
	To          models.CurrencyOption `json:"to"`
	Loading     bool                  `json:"loading"`
	LoadingText string                `json:"loading_text,omitempty"`
	ShowResult  bool                  `json:"show_result"`
	Result      *ResultView           `json:"result,omitempty"`
	Chart       ChartView             `json:"chart"`
	Error       string                `json:"error,omitempty"`
}

type ResultView struct {
	Text          string `json:"text"`
	ConvertedText string `json:"converted_text"`
	RateText      string `json:"rate_text"`
	// count-up animation runs from AnimateFrom to AnimateTo
	AnimateFrom string `json:"animate_from"`
	AnimateTo   string `json:"animate_to"`
	Decimals    int    `json:"decimals"`
}

type ChartView struct {
	Title       string `json:"title"`
	Placeholder string `json:"placeholder,omitempty"`
	Loading     bool   `json:"loading"`
	LoadingText string `json:"loading_text,omitempty"`
	Bars        []Bar  `json:"bars"`
}

type Bar struct {
	Currency string `json:"name"`
	Value    string `json:"value"`
	Tooltip  string `json:"tooltip"`
	Fill     string `json:"fill"`
}

// Renderer builds views from widget snapshots. It only reads.
type Renderer struct {
	group      string
	decimal    string
	visibility ErrorVisibility
}

func NewRenderer(locale string, visibility ErrorVisibility) *Renderer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	group, dec := separators(message.NewPrinter(tag))
	return &Renderer{group: group, decimal: dec, visibility: visibility}
}

// separators reads the grouping and decimal marks of a locale off a
// formatted sample. Locales with other digit shapes fall back to English.
func separators(p *message.Printer) (group, dec string) {
	sample := []rune(p.Sprintf("%.1f", 1234567.5))
	// expected shape: 1 G 234 G 567 D 5
	if len(sample) != 11 || sample[0] != '1' || sample[len(sample)-1] != '5' {
		return ",", "."
	}
	return string(sample[1]), string(sample[len(sample)-2])
}

func (r *Renderer) Render(s usecase.WidgetSnapshot) View {
	v := View{
		ID:      s.ID.String(),
		Amount:  s.Amount,
		From:    models.NewCurrencyOption(s.From),
		To:      models.NewCurrencyOption(s.To),
		Loading: s.Conversion.Loading,
		Chart:   r.chart(s),
	}

	if v.Loading {
		v.LoadingText = loadingText
	}

	converted := s.Conversion.Result.ConvertedAmount
	if !s.Conversion.Loading && !s.InitialLoad && converted.IsPositive() {
		amount, _ := usecase.ParseAmount(s.Amount)
		v.ShowResult = true
		v.Result = &ResultView{
			Text:          fmt.Sprintf("%s %s = %s %s", r.Fixed(amount, 2), s.From, r.Fixed(converted, 2), s.To),
			ConvertedText: r.Fixed(converted, 2),
			RateText:      r.RateText(s.From, s.To, s.Conversion.Result.ExchangeRate),
			AnimateFrom:   s.Conversion.AnimateFrom.StringFixed(2),
			AnimateTo:     converted.StringFixed(2),
			Decimals:      2,
		}
	}

	if r.visibility == ErrorsSurface {
		v.Error = joinErrors(s.Conversion.Err, s.Chart.Err)
	}
	return v
}

func (r *Renderer) chart(s usecase.WidgetSnapshot) ChartView {
	c := ChartView{
		Title: fmt.Sprintf("%s - Based Exchange", s.From),
		Bars:  []Bar{},
	}

	switch {
	case s.InitialLoad:
		c.Placeholder = placeholderText
	case s.Chart.Loading:
		c.Loading = true
		c.LoadingText = chartLoadingText
	default:
		for i, p := range s.Chart.Points {
			fill := primaryFill
			if i%2 == 1 {
				fill = secondaryFill
			}
			c.Bars = append(c.Bars, Bar{
				Currency: p.Currency,
				Value:    p.Value.String(),
				Tooltip:  r.Fixed(p.Value, 4),
				Fill:     fill,
			})
		}
	}
	return c
}

// RateText reads "1 FROM = rate TO" with four decimals.
func (r *Renderer) RateText(from, to string, rate decimal.Decimal) string {
	return fmt.Sprintf("1 %s = %s %s", from, r.Fixed(rate, 4), to)
}

// Fixed formats d in the renderer locale with exactly places decimals,
// without going through float64.
func (r *Renderer) Fixed(d decimal.Decimal, places int32) string {
	s := d.StringFixed(places)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac, _ := strings.Cut(s, ".")

	var b strings.Builder
	b.WriteString(sign)
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(r.group)
		}
		b.WriteRune(c)
	}
	if frac != "" {
		b.WriteString(r.decimal)
		b.WriteString(frac)
	}
	return b.String()
}

func joinErrors(errs ...error) string {
	var msgs []string
	for _, err := range errs {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	return strings.Join(msgs, "; ")
}
