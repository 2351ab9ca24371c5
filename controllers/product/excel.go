package productcontroller

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/MrPsycho237/digimarketstore/controllers"
	"github.com/MrPsycho237/digimarketstore/middleware"
	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/tealeg/xlsx"
)

// featureSeparator joins product features inside one spreadsheet cell.
const featureSeparator = "|"

// sheetRow is one parsed data row. ID is empty for new products.
type sheetRow struct {
	ID      string
	Product models.Product
}

// readProductSheet parses every data row after the header. Rows without a title or
// with unparsable numbers are skipped.
func readProductSheet(sheet *xlsx.Sheet) ([]sheetRow, int) {
	var rows []sheetRow
	skipped := 0

	for i := 1; i < len(sheet.Rows); i++ {
		row := sheet.Rows[i]
		if row == nil || len(row.Cells) < 4 {
			skipped++
			continue
		}

		get := func(index int) string {
			if index < len(row.Cells) {
				return strings.TrimSpace(row.Cells[index].String())
			}
			return ""
		}

		price, err := decimal.NewFromString(get(3))
		if err != nil || get(1) == "" {
			skipped++
			continue
		}
		rating, err := parseFloatOrZero(get(6))
		if err != nil {
			skipped++
			continue
		}
		reviews, err := parseIntOrZero(get(7))
		if err != nil {
			skipped++
			continue
		}

		features := models.StringList{}
		for _, f := range strings.Split(get(8), featureSeparator) {
			if f = strings.TrimSpace(f); f != "" {
				features = append(features, f)
			}
		}

		product := models.Product{
			Title:       get(1),
			Description: get(2),
			Price:       price,
			Category:    get(4),
			Image:       get(5),
			Rating:      rating,
			Reviews:     reviews,
			Features:    features,
		}
		if err := product.Validate(); err != nil {
			skipped++
			continue
		}
		rows = append(rows, sheetRow{ID: get(0), Product: product})
	}
	return rows, skipped
}

func parseFloatOrZero(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseIntOrZero(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}

// POST /admin/products/import-excel
// Rows whose ID matches an existing product update it; the rest are created.
func ImportProductsFromExcel() gin.HandlerFunc {
	return func(c *gin.Context) {
		excelFileHeader, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Excel file is required"})
			return
		}

		file, err := excelFileHeader.Open()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open Excel file"})
			return
		}
		defer file.Close()

		xlFile, err := xlsx.OpenReaderAt(file, excelFileHeader.Size)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse Excel file"})
			return
		}

		if len(xlFile.Sheets) == 0 || len(xlFile.Sheets[0].Rows) < 2 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Excel file is empty or missing header row"})
			return
		}

		rows, skippedCount := readProductSheet(xlFile.Sheets[0])
		st := middleware.Client(c).Store
		ctx := c.Request.Context()

		var creates []models.Product
		updatedCount := 0
		for _, row := range rows {
			if row.ID != "" {
				if _, err := st.Product(ctx, row.ID); err == nil {
					if err := st.UpdateProduct(ctx, row.ID, updateFromProduct(row.Product)); err != nil {
						controllers.RespondError(c, err, "Failed to update product")
						return
					}
					updatedCount++
					continue
				}
			}
			creates = append(creates, row.Product)
		}

		createdCount, err := st.ImportProducts(ctx, creates)
		if err != nil {
			controllers.RespondError(c, err, "Failed to import products")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":       "Import completed",
			"created_count": createdCount,
			"updated_count": updatedCount,
			"skipped_count": skippedCount,
		})
	}
}

func updateFromProduct(p models.Product) models.ProductUpdate {
	features := []string(p.Features)
	return models.ProductUpdate{
		Title:       &p.Title,
		Description: &p.Description,
		Price:       &p.Price,
		Category:    &p.Category,
		Image:       &p.Image,
		Rating:      &p.Rating,
		Reviews:     &p.Reviews,
		Features:    &features,
	}
}
