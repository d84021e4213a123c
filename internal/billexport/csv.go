package billexport

import (
	"encoding/csv"
	"io"

	"freightx/internal/freight"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteCSV writes the BOM followed by the flattened bill.
func WriteCSV(w io.Writer, bill *freight.BillInfo) error {
	if _, err := w.Write(BOM); err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Rows(bill)); err != nil {
		return err
	}
	return cw.Error()
}
