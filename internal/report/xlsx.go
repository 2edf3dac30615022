package report

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
)

const (
	SheetOrders = "الفواتير"
	SheetItems  = "الأصناف"

	dateLayout = "2006-01-02"
)

type column struct {
	header string
	width  float64
}

var orderColumns = []column{
	{"رقم الفاتورة", 15},
	{"تاريخ الفاتورة", 15},
	{"اسم العميل", 25},
	{"هاتف العميل", 15},
	{"عنوان العميل", 30},
	{"عدد الأصناف", 12},
	{"إجمالي الكمية", 12},
	{"إجمالي التكلفة", 18},
	{"إجمالي البيع", 18},
	{"الربح", 15},
	{"حالة الفاتورة", 15},
	{"اسم المندوب", 20},
}

var itemColumns = []column{
	{"رقم الفاتورة", 15},
	{"تاريخ الفاتورة", 15},
	{"اسم العميل", 25},
	{"هاتف العميل", 15},
	{"عنوان العميل", 30},
	{"كود المنتج", 15},
	{"اسم المنتج", 30},
	{"الكمية", 10},
	{"سعر التكلفة", 15},
	{"سعر البيع", 15},
	{"إجمالي الصنف", 20},
	{"حالة الفاتورة", 15},
	{"اسم المندوب", 20},
}

// WriteXLSX writes the report as a right-to-left workbook with an orders
// sheet and an items sheet.
func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetOrders); err != nil {
		return err
	}
	if _, err := f.NewSheet(SheetItems); err != nil {
		return err
	}

	orderRows := make([][]interface{}, 0, len(r.Orders))
	for _, o := range r.Orders {
		orderRows = append(orderRows, []interface{}{
			o.InvoiceNumber,
			o.InvoiceDate.Format(dateLayout),
			o.CustomerName,
			o.CustomerPhone,
			o.CustomerAddress,
			o.ItemCount,
			o.Quantity,
			o.TotalCost.InexactFloat64(),
			o.TotalSelling.InexactFloat64(),
			o.Profit.InexactFloat64(),
			o.Status.Label(),
			o.CreatedByName,
		})
	}
	if err := writeSheet(f, SheetOrders, orderColumns, orderRows); err != nil {
		return err
	}

	itemRows := make([][]interface{}, 0, len(r.Items))
	for _, it := range r.Items {
		itemRows = append(itemRows, []interface{}{
			it.InvoiceNumber,
			it.InvoiceDate.Format(dateLayout),
			it.CustomerName,
			it.CustomerPhone,
			it.CustomerAddress,
			it.SKU,
			it.ProductName,
			it.Quantity,
			it.CostPrice.InexactFloat64(),
			it.SellingPrice.InexactFloat64(),
			it.LineTotal.InexactFloat64(),
			it.Status.Label(),
			it.CreatedByName,
		})
	}
	if err := writeSheet(f, SheetItems, itemColumns, itemRows); err != nil {
		return err
	}

	f.SetActiveSheet(0)
	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, sheet string, cols []column, rows [][]interface{}) error {
	rtl := true
	if err := f.SetSheetView(sheet, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
		return err
	}

	header := make([]interface{}, len(cols))
	for i, c := range cols {
		header[i] = c.header
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, c.width); err != nil {
			return err
		}
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(cols), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
		return err
	}

	for i := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &rows[i]); err != nil {
			return fmt.Errorf("sheet %s row %d: %w", sheet, i+2, err)
		}
	}
	return nil
}
