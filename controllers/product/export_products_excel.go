package productcontroller

import (
	"net/http"
	"strings"

	"github.com/MrPsycho237/digimarketstore/controllers"
	"github.com/MrPsycho237/digimarketstore/gateway"
	"github.com/MrPsycho237/digimarketstore/middleware"
	"github.com/MrPsycho237/digimarketstore/models"
	"github.com/gin-gonic/gin"
	"github.com/tealeg/xlsx"
)

var exportHeaders = []string{
	"ID", "Title", "Description", "Price", "Category",
	"Image", "Rating", "Reviews", "Features", "CreatedAt", "UpdatedAt",
}

// buildProductSheet lays products out in the same columns the importer reads.
func buildProductSheet(products []models.Product) (*xlsx.File, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Products")
	if err != nil {
		return nil, err
	}

	headerRow := sheet.AddRow()
	for _, h := range exportHeaders {
		headerRow.AddCell().SetValue(h)
	}

	for _, p := range products {
		row := sheet.AddRow()
		row.AddCell().SetString(p.ID)
		row.AddCell().SetString(p.Title)
		row.AddCell().SetString(p.Description)
		row.AddCell().SetString(p.Price.StringFixed(2))
		row.AddCell().SetString(p.Category)
		row.AddCell().SetString(p.Image)
		row.AddCell().SetValue(p.Rating)
		row.AddCell().SetValue(p.Reviews)
		row.AddCell().SetString(strings.Join(p.Features, featureSeparator))
		row.AddCell().SetString(p.CreatedAt.Format("2006-01-02 15:04:05"))
		row.AddCell().SetString(p.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return file, nil
}

// GET /admin/products/export-excel
func ExportProductsToExcel() gin.HandlerFunc {
	return func(c *gin.Context) {
		st := middleware.Client(c).Store
		if err := st.LoadProducts(c.Request.Context()); err != nil {
			controllers.RespondError(c, err, "Failed to fetch products")
			return
		}

		file, err := buildProductSheet(st.Products(gateway.ProductFilter{}))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create Excel sheet"})
			return
		}

		// Set response headers for download
		c.Header("Content-Disposition", "attachment; filename=products.xlsx")
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Header("Content-Transfer-Encoding", "binary")
		c.Header("Expires", "0")

		if err := file.Write(c.Writer); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to write Excel file"})
			return
		}
	}
}
