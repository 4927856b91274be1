package requests

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

// exportHeader keeps the column order of the spreadsheet the desk already
// uses.
var exportHeader = []string{
	"id", "created_at", "received_date", "days_elapsed",
	"customer_name", "customer_email", "customer_phone",
	"order_number", "invoice_number",
	"product_code", "product_description", "unit_price", "quantity",
	"purchase_channel", "motive", "product_used", "has_original_tags",
	"permitted", "result_kind",
	"decision", "decided_by", "observations",
}

// utf8BOM makes spreadsheet tools detect the encoding of accented names.
const utf8BOM = "\xEF\xBB\xBF"

// WriteCSV writes records as CSV with a header row.
func WriteCSV(w io.Writer, records []Record) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for i := range records {
		if err := cw.Write(csvRow(&records[i])); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func csvRow(r *Record) []string {
	price := ""
	if r.Product.UnitPrice.Valid {
		price = r.Product.UnitPrice.Decimal.StringFixed(2)
	}
	return []string{
		r.ID,
		r.CreatedAt.UTC().Format(time.RFC3339),
		r.Facts.ReceivedDate.String(),
		strconv.Itoa(r.Verdict.DaysElapsed),
		r.Customer.Name,
		r.Customer.Email,
		r.Customer.Phone,
		r.OrderNumber,
		r.InvoiceNumber,
		r.Product.Code,
		r.Product.Description,
		price,
		strconv.Itoa(r.Product.Quantity),
		string(r.Facts.PurchaseChannel),
		string(r.Facts.Motive),
		yesNo(r.Facts.ProductUsed),
		yesNo(r.Facts.HasOriginalTags),
		yesNo(r.Verdict.Permitted),
		string(r.Verdict.ResultKind),
		string(r.Decision),
		r.DecidedBy,
		r.Facts.Observations,
	}
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
