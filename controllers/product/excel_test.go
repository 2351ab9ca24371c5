package productcontroller

import (
	"testing"

	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx"
)

func TestProductSheetRoundTrip(t *testing.T) {
	products := []models.Product{
		{
			ID:       "p-1",
			Title:    "UI Kit",
			Price:    decimal.RequireFromString("49.00"),
			Category: "Design",
			Rating:   4.5,
			Reviews:  12,
			Features: models.StringList{"Figma", "Sketch"},
		},
		{ID: "p-2", Title: "Go Course", Price: decimal.RequireFromString("30.5"), Category: "Courses"},
	}

	file, err := buildProductSheet(products)
	require.NoError(t, err)

	rows, skipped := readProductSheet(file.Sheets[0])
	assert.Zero(t, skipped)
	require.Len(t, rows, 2)

	assert.Equal(t, "p-1", rows[0].ID)
	got := rows[0].Product
	assert.Equal(t, "UI Kit", got.Title)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("49")))
	assert.Equal(t, 4.5, got.Rating)
	assert.Equal(t, 12, got.Reviews)
	assert.Equal(t, models.StringList{"Figma", "Sketch"}, got.Features)

	assert.True(t, rows[1].Product.Price.Equal(decimal.RequireFromString("30.50")))
	assert.Empty(t, rows[1].Product.Features)
}

func TestReadProductSheetSkipsBadRows(t *testing.T) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	require.NoError(t, err)

	addRow := func(cells ...string) {
		row := sheet.AddRow()
		for _, c := range cells {
			row.AddCell().SetString(c)
		}
	}
	addRow("ID", "Title", "Description", "Price", "Category")
	addRow("", "Template", "", "15", "Docs")
	addRow("", "", "", "15", "Docs")              // no title
	addRow("", "Broken", "", "free", "Docs")      // bad price
	addRow("", "Negative", "", "-1", "Docs")      // fails validation
	addRow("", "Rated", "", "5", "Docs", "", "9") // rating out of range
	addRow("short")

	rows, skipped := readProductSheet(sheet)
	assert.Equal(t, 5, skipped)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].ID)
	assert.Equal(t, "Template", rows[0].Product.Title)
}
