// Package billexport flattens an extracted bill of lading into spreadsheet rows and writes
// them as CSV or XLSX.
package billexport

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"freightx/internal/freight"
)

// columns defines the header row (20 columns). General fields come first, then the
// container block, then the freight block.
var columns = []string{
	"Bill of Lading Number",
	"Total Cartons",
	"HTS Code",
	"Place of Delivery",
	"Port of Discharge",
	"Port of Loading",
	"Freight Payment Type",
	"Service Contract Number",
	"Shipped on Board Date",
	"Freight Charge Total",
	"Freight Charge Currency",
	"Total Measurement",
	"Total Shipment Weight",
	"Container Number",
	"Container Seal Number",
	"Container Size Type",
	"Container Carton Amount",
	"Freight Item Name",
	"Freight Amount",
	"Freight Currency",
}

const (
	containerCol = 13
	freightCol   = 17
)

// Columns returns a copy of the header row.
func Columns() []string {
	return append([]string(nil), columns...)
}

// Rows flattens bill into the header, one general row, one row per container and one row per
// freight item. Each detail row leaves the other blocks empty.
func Rows(bill *freight.BillInfo) [][]string {
	rows := [][]string{Columns()}

	general := make([]string, len(columns))
	general[0] = str(bill.BLNumber)
	general[1] = formatNumber(bill.TotalCartons)
	general[2] = str(bill.HTSCode)
	general[3] = str(bill.PlaceOfDelivery)
	general[4] = str(bill.PortOfDischarge)
	general[5] = str(bill.PortOfLoading)
	general[6] = str(bill.FreightPaymentType)
	general[7] = str(bill.ServiceContractNumber)
	general[8] = str(bill.ShippedOnBoardDate)
	general[9] = formatNumber(bill.FreightChargeTotal)
	general[10] = bill.FreightChargeCurrency
	general[11] = formatNumber(bill.TotalMeasurement)
	general[12] = formatNumber(bill.TotalShipmentWeight)
	rows = append(rows, general)

	for _, c := range bill.ContainerDetail {
		row := make([]string, len(columns))
		row[containerCol] = str(c.ContainerNumber)
		row[containerCol+1] = str(c.ContainerSealNumber)
		row[containerCol+2] = str(c.ContainerSizeType)
		row[containerCol+3] = formatNumber(c.CartonAmount)
		rows = append(rows, row)
	}

	for _, item := range bill.FreightRateItem {
		row := make([]string, len(columns))
		row[freightCol] = str(item.ItemName)
		row[freightCol+1] = formatAmount(item.Amount)
		row[freightCol+2] = str(item.Currency)
		rows = append(rows, row)
	}

	return rows
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatAmount(v any) string {
	switch a := v.(type) {
	case nil:
		return ""
	case string:
		return a
	case float64:
		return formatNumber(a)
	default:
		return fmt.Sprint(a)
	}
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use as an export file name. Replaces non-alphanumeric
// chars (except - _) with _, collapses consecutive underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns bill-info-{sanitized bl number}-{YYYY-MM-DD}.{ext}. A bill without a
// number gets bill-info-{date}.{ext}.
func BuildFilename(bill *freight.BillInfo, ext string, now time.Time) string {
	date := now.Format("2006-01-02")
	if name := SanitizeFilename(str(bill.BLNumber)); name != "" {
		return fmt.Sprintf("bill-info-%s-%s.%s", name, date, ext)
	}
	return fmt.Sprintf("bill-info-%s.%s", date, ext)
}
