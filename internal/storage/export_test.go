package storage

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/camera6912/orb-trader/internal/domain"
	"github.com/camera6912/orb-trader/pkg/quant"
	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReports() []domain.SessionReport {
	return []domain.SessionReport{
		{
			Date:   "2024-03-01",
			Status: domain.StatusTraded,
			Range:  &domain.OpeningRange{High: quant.ToPrice(4520), Low: quant.ToPrice(4510)},
			Outcome: &domain.TradeOutcome{
				Side: domain.SideLong, Entry: quant.ToPrice(4520), Exit: quant.ToPrice(4540),
				ExitReason: domain.CloseTarget, PnLPoints: quant.Points(20),
			},
		},
		{Date: "2024-03-04", Status: domain.StatusNoTrade, Reason: "gap_day"},
	}
}

func TestToRows(t *testing.T) {
	rows := ToRows(sampleReports())
	require.Len(t, rows, 2)

	assert.Equal(t, "traded", rows[0].Status)
	assert.Equal(t, "4520", rows[0].RangeHigh)
	assert.Equal(t, "long", rows[0].Side)
	assert.Equal(t, "20", rows[0].PnLPoints)

	assert.Equal(t, "gap_day", rows[1].Reason)
	assert.Empty(t, rows[1].Entry)
}

func TestNewReportSaver(t *testing.T) {
	assert.Equal(t, "csv", NewReportSaver(" CSV ").Extension())
	assert.Equal(t, "json", NewReportSaver("json").Extension())
	assert.Equal(t, "parquet", NewReportSaver("parquet").Extension())
	assert.Nil(t, NewReportSaver("xlsx"))
}

func TestSavers_WriteReadableFiles(t *testing.T) {
	dir := t.TempDir()
	rows := ToRows(sampleReports())

	t.Run("csv", func(t *testing.T) {
		path := filepath.Join(dir, "reports.csv")
		require.NoError(t, CSVSaver{}.Save(rows, path))

		f, err := os.Open(path)
		require.NoError(t, err)
		defer f.Close()
		records, err := csv.NewReader(f).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.Equal(t, "date", records[0][0])
		assert.Equal(t, "4540", records[1][7])
	})

	t.Run("json", func(t *testing.T) {
		path := filepath.Join(dir, "reports.json")
		require.NoError(t, JSONSaver{}.Save(rows, path))

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		var got []ReportRow
		require.NoError(t, json.Unmarshal(data, &got))
		assert.Equal(t, rows, got)
	})

	t.Run("parquet", func(t *testing.T) {
		path := filepath.Join(dir, "reports.parquet")
		require.NoError(t, ParquetSaver{}.Save(rows, path))

		got, err := parquet.ReadFile[ReportRow](path)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "2024-03-01", got[0].Date)
		assert.Equal(t, "target", got[0].ExitReason)
	})
}
