// Package export turns stored records into the administrator report.
package export

import (
	"math"
	"strconv"
	"strings"

	"github.com/brametal/chapas-backend/internal/records"
	"github.com/shopspring/decimal"
)

const (
	// ScrapThreshold is the scrap mass (kg) above which a VIRTUAL row is emitted.
	ScrapThreshold = 0.001
	// VirtualLot marks rows that represent scrap rather than a physical lot.
	VirtualLot = "VIRTUAL"

	scrapPrefix = "SCRAP - "
)

// Columns is the report header, in order.
var Columns = []string{
	"Lot", "Reservation", "ProductCode", "Description", "Status", "Quantity",
	"TheoreticalMass", "RealWidth", "CutWidth", "RealLength", "CutLength",
}

// Row is one report line.
type Row struct {
	Lot             string  `json:"lot"`
	Reservation     string  `json:"reservation"`
	ProductCode     int64   `json:"productCode"`
	Description     string  `json:"description"`
	Status          string  `json:"status"`
	Quantity        int     `json:"quantity"`
	TheoreticalMass float64 `json:"theoreticalMass"`
	RealWidth       int     `json:"realWidth"`
	CutWidth        int     `json:"cutWidth"`
	RealLength      int     `json:"realLength"`
	CutLength       int     `json:"cutLength"`
	Virtual         bool    `json:"virtual"`
}

// Summary aggregates the record list the way the admin dashboard shows it.
type Summary struct {
	Items             int     `json:"items"`
	TotalMeasuredMass float64 `json:"totalMeasuredMass"`
	TotalScrap        float64 `json:"totalScrap"`
	Formatted         struct {
		TotalMeasuredMass string `json:"totalMeasuredMass"`
		TotalScrap        string `json:"totalScrap"`
	} `json:"formatted"`
}

// BuildReport emits a primary row per record and a VIRTUAL scrap row when the
// scrap exceeds ScrapThreshold. Record order is preserved.
func BuildReport(recs []records.Record) []Row {
	rows := make([]Row, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, Row{
			Lot:             r.LotID,
			Reservation:     r.ReservationID,
			ProductCode:     r.ProductCode,
			Description:     r.Description,
			Status:          r.Status.Label(),
			Quantity:        r.Quantity,
			TheoreticalMass: r.TheoreticalMass,
			RealWidth:       r.RealWidth,
			CutWidth:        r.CutWidth,
			RealLength:      r.RealLength,
			CutLength:       r.CutLength,
		})
		if r.Scrap > ScrapThreshold {
			rows = append(rows, Row{
				Lot:             VirtualLot,
				Reservation:     r.ReservationID,
				ProductCode:     r.ProductCode,
				Description:     scrapPrefix + r.Description,
				Status:          r.Status.Label(),
				Quantity:        1,
				TheoreticalMass: r.Scrap,
				Virtual:         true,
			})
		}
	}
	return rows
}

// Summarize totals measured mass and scrap across recs.
func Summarize(recs []records.Record) Summary {
	measured := decimal.Zero
	scrap := decimal.Zero
	for _, r := range recs {
		// rows written before masses were validated may hold Inf or NaN
		if !finite(r.MeasuredMass) || !finite(r.Scrap) {
			continue
		}
		measured = measured.Add(decimal.NewFromFloat(r.MeasuredMass))
		scrap = scrap.Add(decimal.NewFromFloat(r.Scrap))
	}

	s := Summary{Items: len(recs)}
	s.TotalMeasuredMass, _ = measured.Float64()
	s.TotalScrap, _ = scrap.Float64()
	s.Formatted.TotalMeasuredMass = FormatMass(s.TotalMeasuredMass)
	s.Formatted.TotalScrap = FormatMass(s.TotalScrap)
	return s
}

// FormatMass renders kilograms as #.##0,000: three decimals, comma decimal
// mark, dot thousands separator. Non-finite values render as "NaN", "+Inf" or "-Inf".
func FormatMass(kg float64) string {
	if !finite(kg) {
		return strconv.FormatFloat(kg, 'f', -1, 64)
	}
	fixed := decimal.NewFromFloat(kg).StringFixed(3)

	negative := strings.HasPrefix(fixed, "-")
	fixed = strings.TrimPrefix(fixed, "-")
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	if negative && strings.Trim(whole+frac, "0") != "" {
		b.WriteByte('-')
	}
	for i, ch := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(ch)
	}
	b.WriteByte(',')
	b.WriteString(frac)
	return b.String()
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
