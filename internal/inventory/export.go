package inventory

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"
)

const ExportFilename = "historial_ventas.csv"

var exportHeader = []string{"ID Venta", "ID Producto", "Nombre Cliente", "Cantidad", "Fecha Venta"}

// WriteSalesCSV writes one header row and one row per sale, with timestamps
// rendered in loc.
func WriteSalesCSV(w io.Writer, sales []RecordedSale, loc *time.Location) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for _, v := range sales {
		row := []string{
			strconv.Itoa(v.ID),
			strconv.Itoa(v.ProductID),
			v.Customer,
			strconv.Itoa(v.Quantity),
			v.SoldAt.In(loc).Format(ExportTimestamp),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
