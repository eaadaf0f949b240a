package export

import (
	"bytes"
	"math"
	"testing"

	"github.com/brametal/chapas-backend/internal/records"
	"github.com/brametal/chapas-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func referenceRecord() records.Record {
	return records.Record{
		ID:              1,
		LotID:           "BRASA00001",
		ReservationID:   "R-001",
		Status:          enums.RecordStatusPending,
		ProductCode:     12345,
		Description:     "Chapa X",
		Quantity:        2,
		MeasuredMass:    50,
		RealWidth:       950,
		CutWidth:        900,
		RealLength:      1220,
		CutLength:       1200,
		TheoreticalMass: 16.956,
		Scrap:           33.044,
	}
}

func TestBuildReportAddsVirtualScrapRow(t *testing.T) {
	rows := BuildReport([]records.Record{referenceRecord()})
	require.Len(t, rows, 2)

	primary := rows[0]
	assert.Equal(t, "BRASA00001", primary.Lot)
	assert.Equal(t, "Pendente", primary.Status)
	assert.Equal(t, 2, primary.Quantity)
	assert.InDelta(t, 16.956, primary.TheoreticalMass, 1e-9)
	assert.Equal(t, 950, primary.RealWidth)
	assert.False(t, primary.Virtual)

	virtual := rows[1]
	assert.Equal(t, VirtualLot, virtual.Lot)
	assert.Equal(t, "SCRAP - Chapa X", virtual.Description)
	assert.Equal(t, 1, virtual.Quantity)
	assert.InDelta(t, 33.044, virtual.TheoreticalMass, 1e-9)
	assert.Zero(t, virtual.RealWidth)
	assert.Zero(t, virtual.CutWidth)
	assert.Zero(t, virtual.RealLength)
	assert.Zero(t, virtual.CutLength)
	assert.True(t, virtual.Virtual)
}

func TestBuildReportSkipsSmallOrNegativeScrap(t *testing.T) {
	small := referenceRecord()
	small.Scrap = 0.001
	negative := referenceRecord()
	negative.Scrap = -4
	rows := BuildReport([]records.Record{small, negative})
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.False(t, r.Virtual)
	}
}

func TestFormatMass(t *testing.T) {
	cases := map[float64]string{
		0:           "0,000",
		16.956:      "16,956",
		33.044:      "33,044",
		1234.5:      "1.234,500",
		1234567.891: "1.234.567,891",
		999.9996:    "1.000,000",
		-1234.5:     "-1.234,500",
		-0.0001:     "0,000",
	}
	for in, want := range cases {
		assert.Equal(t, want, FormatMass(in), "FormatMass(%v)", in)
	}
}

func TestSummarize(t *testing.T) {
	a := referenceRecord()
	b := referenceRecord()
	b.MeasuredMass = 1200.25
	b.Scrap = -0.5

	s := Summarize([]records.Record{a, b})
	assert.Equal(t, 2, s.Items)
	assert.InDelta(t, 1250.25, s.TotalMeasuredMass, 1e-9)
	assert.InDelta(t, 32.544, s.TotalScrap, 1e-9)
	assert.Equal(t, "1.250,250", s.Formatted.TotalMeasuredMass)
	assert.Equal(t, "32,544", s.Formatted.TotalScrap)
}

func TestWriteWorkbook(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWorkbook(&buf, BuildReport([]records.Record{referenceRecord()})))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetName}, f.GetSheetList())
	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "BRASA00001", rows[1][0])
	assert.Equal(t, "16,956", rows[1][6])
	assert.Equal(t, VirtualLot, rows[2][0])
	assert.Equal(t, "33,044", rows[2][6])
	assert.Equal(t, "0", rows[2][7])
}

func TestNonFiniteMassesDoNotBreakTotals(t *testing.T) {
	assert.Equal(t, "+Inf", FormatMass(math.Inf(1)))
	assert.Equal(t, "-Inf", FormatMass(math.Inf(-1)))
	assert.Equal(t, "NaN", FormatMass(math.NaN()))

	broken := referenceRecord()
	broken.TheoreticalMass = math.Inf(1)
	broken.Scrap = math.Inf(-1)
	s := Summarize([]records.Record{referenceRecord(), broken})
	assert.Equal(t, 2, s.Items)
	assert.InDelta(t, 50, s.TotalMeasuredMass, 1e-9)
	assert.InDelta(t, 33.044, s.TotalScrap, 1e-9)
	assert.Equal(t, "33,044", s.Formatted.TotalScrap)
}
