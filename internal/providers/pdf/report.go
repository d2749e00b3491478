package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

type ScoreReportData struct {
	PropertyID      string
	PropertyName    string
	Postcode        string
	CalculationDate string

	InsuranceScore  int
	InsuranceRating string
	BuyerScore      int
	BuyerRating     string
	Partial         bool

	Factors []FactorLine
	History []HistoryLine
}

type FactorLine struct {
	Name  string
	Score float64
}

type HistoryLine struct {
	Date           string
	InsuranceScore int
	BuyerScore     int
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateScoreReport(ctx context.Context, report ScoreReportData) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Property Confidence Score", props.Text{
			Size:  20,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)

	title := report.PropertyName
	if title == "" {
		title = report.PropertyID
	}
	m.AddRow(20,
		col.New(8).Add(
			text.New(title, props.Text{Style: fontstyle.Bold}),
			text.New("Postcode: "+report.Postcode, props.Text{Top: 5}),
			text.New("Calculated: "+report.CalculationDate, props.Text{Top: 10}),
		),
		col.New(4),
	)

	m.AddRow(10,
		text.NewCol(6, "Insurance score", props.Text{Style: fontstyle.Bold, Size: 11}),
		text.NewCol(6, "Buyer confidence score", props.Text{Style: fontstyle.Bold, Size: 11}),
	)
	m.AddRow(14,
		text.NewCol(6, fmt.Sprintf("%d / 1000 (%s)", report.InsuranceScore, report.InsuranceRating), props.Text{Size: 14}),
		text.NewCol(6, fmt.Sprintf("%d / 1000 (%s)", report.BuyerScore, report.BuyerRating), props.Text{Size: 14}),
	)
	if report.Partial {
		m.AddRow(8,
			text.NewCol(12, "Some external data was unavailable; default values were used.", props.Text{Size: 8, Style: fontstyle.Italic}),
		)
	}

	m.AddRow(10,
		text.NewCol(9, "Factor", props.Text{Style: fontstyle.Bold, Size: 9, Top: 3}),
		text.NewCol(3, "Score", props.Text{Style: fontstyle.Bold, Size: 9, Top: 3, Align: align.Right}),
	)
	for _, factor := range report.Factors {
		m.AddRow(7,
			text.NewCol(9, factor.Name, props.Text{Size: 9}),
			text.NewCol(3, fmt.Sprintf("%.1f", factor.Score), props.Text{Size: 9, Align: align.Right}),
		)
	}

	if len(report.History) > 0 {
		m.AddRow(12,
			text.NewCol(12, "History", props.Text{Style: fontstyle.Bold, Size: 11, Top: 4}),
		)
		m.AddRow(8,
			text.NewCol(4, "Date", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(4, "Insurance", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(4, "Buyer", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		)
		for _, h := range report.History {
			m.AddRow(7,
				text.NewCol(4, h.Date, props.Text{Size: 9}),
				text.NewCol(4, fmt.Sprintf("%d", h.InsuranceScore), props.Text{Size: 9, Align: align.Right}),
				text.NewCol(4, fmt.Sprintf("%d", h.BuyerScore), props.Text{Size: 9, Align: align.Right}),
			)
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
