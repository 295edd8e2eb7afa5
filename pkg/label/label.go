package label

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

const dateLayout = "02 Jan 2006"

// Data is the content printed on a shipping label.
type Data struct {
	Brand             string
	TrackingNumber    string
	Status            string
	SenderInfo        string
	ReceiverInfo      string
	Origin            string
	Destination       string
	Contents          string
	CreatedAt         time.Time
	EstimatedDelivery *time.Time
}

// Render produces an A6 PDF label with a Code128 barcode of the tracking number.
func Render(data Data) ([]byte, error) {
	if strings.TrimSpace(data.TrackingNumber) == "" {
		return nil, errors.New("tracking number is required")
	}

	brand := data.Brand
	if brand == "" {
		brand = "Atlas Logistics"
	}

	cfg := config.NewBuilder().
		WithPageSize(pagesize.A6).
		Build()
	m := maroto.New(cfg)

	heading := props.Text{Size: 14, Style: fontstyle.Bold, Align: align.Center}
	caption := props.Text{Size: 7, Style: fontstyle.Bold, Top: 1}
	body := props.Text{Size: 8, Top: 1}

	m.AddRow(10, text.NewCol(12, brand, heading))
	m.AddRow(8, text.NewCol(12, data.TrackingNumber, props.Text{Size: 12, Style: fontstyle.Bold, Align: align.Center}))
	m.AddRows(code.NewBarRow(18, data.TrackingNumber, props.Barcode{Percent: 90, Center: true}))

	m.AddRow(6,
		text.NewCol(6, "FROM", caption),
		text.NewCol(6, "TO", caption),
	)
	m.AddRow(22,
		col.New(6).Add(
			text.New(data.SenderInfo, body),
			text.New(data.Origin, props.Text{Size: 8, Top: 14, Style: fontstyle.Italic}),
		),
		col.New(6).Add(
			text.New(data.ReceiverInfo, body),
			text.New(data.Destination, props.Text{Size: 8, Top: 14, Style: fontstyle.Italic}),
		),
	)

	m.AddRow(6,
		text.NewCol(4, "SHIPPED", caption),
		text.NewCol(4, "ESTIMATED", caption),
		text.NewCol(4, "STATUS", caption),
	)
	m.AddRow(6,
		text.NewCol(4, formatDate(&data.CreatedAt), body),
		text.NewCol(4, formatDate(data.EstimatedDelivery), body),
		text.NewCol(4, strings.ReplaceAll(data.Status, "_", " "), body),
	)

	if contents := strings.TrimSpace(data.Contents); contents != "" {
		m.AddRow(6, text.NewCol(12, "CONTENTS", caption))
		m.AddRow(12, text.NewCol(12, contents, body))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate label: %w", err)
	}

	return doc.GetBytes(), nil
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.UTC().Format(dateLayout)
}
