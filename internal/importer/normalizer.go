package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fieldserve/payout-api/internal/models"
)

// JobHeaders is the canonical 21-column job-import header order.
var JobHeaders = []string{
	"zip_code_for_job",
	"city",
	"state",
	"date_recorded",
	"technician",
	"customer_name",
	"consumer_name_if_not_customer",
	"invoice_number",
	"merchandise_sold",
	"parts_sold",
	"service_call_amount",
	"other_labor",
	"sales_tax",
	"total_amount",
	"paycode",
	"dept",
	"parts_cost",
	"type_serviced",
	"make_serviced",
	"tp_money_rcvd",
	"is_oem_client",
	"dt_of_prior_py_cd2_entry",
}

// Normalize converts one raw imported row into a typed job record.
//
// The coercion rules are deliberately forgiving and must stay that way:
// malformed numerics silently become 0 and malformed dates become nil, because
// downstream totals were built on top of that behaviour. Normalize never
// returns an error.
func Normalize(row map[string]string) models.JobRecord {
	record := models.JobRecord{
		CustomerName:   stringOrEmpty(row["customer_name"]),
		TechnicianCode: stringOrEmpty(row["technician"]),
		TypeServiced:   stringOrEmpty(row["type_serviced"]),
		MakeServiced:   stringOrEmpty(row["make_serviced"]),
		Dept:           stringOrEmpty(row["dept"]),

		TotalAmount:       parseDecimal(row["total_amount"]),
		PartsCost:         parseDecimal(row["parts_cost"]),
		MerchandiseSold:   parseDecimal(row["merchandise_sold"]),
		PartsSold:         parseDecimal(row["parts_sold"]),
		ServiceCallAmount: parseDecimal(row["service_call_amount"]),
		OtherLabor:        parseDecimal(row["other_labor"]),
		SalesTax:          parseDecimal(row["sales_tax"]),
		TPMoneyReceived:   parseDecimal(row["tp_money_rcvd"]),

		Paycode:     parsePaycode(row["paycode"]),
		IsOEMClient: parseOEMFlag(row["is_oem_client"]),

		InvoiceNumber:     optionalString(row["invoice_number"]),
		ConsumerName:      optionalString(row["consumer_name_if_not_customer"]),
		City:              optionalString(row["city"]),
		State:             optionalString(row["state"]),
		ZipCodeForJob:     optionalString(row["zip_code_for_job"]),
		PriorPaycode2Date: optionalString(row["dt_of_prior_py_cd2_entry"]),

		DateRecorded: ParseDate(row["date_recorded"]),
	}
	return record
}

// ParseDate interprets M/D/YYYY (month first) or ISO-like date strings.
// Unparsable input yields nil.
func ParseDate(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" || isNullLiteral(raw) {
		return nil
	}

	if strings.Contains(raw, "/") {
		parts := strings.Split(raw, "/")
		if len(parts) == 3 {
			month, errM := strconv.Atoi(strings.TrimSpace(parts[0]))
			day, errD := strconv.Atoi(strings.TrimSpace(parts[1]))
			year, errY := strconv.Atoi(strings.TrimSpace(parts[2]))
			if errM == nil && errD == nil && errY == nil &&
				month >= 1 && month <= 12 && day >= 1 && day <= 31 {
				t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
				return &t
			}
		}
		return nil
	}

	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			normalized := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
			return &normalized
		}
	}
	return nil
}

// FormatDate renders a normalized date as YYYY-MM-DD, or "" for nil.
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func parseDecimal(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || isNullLiteral(raw) {
		return 0
	}
	raw = strings.ReplaceAll(strings.TrimPrefix(raw, "$"), ",", "")
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return value
}

func parsePaycode(raw string) *int {
	raw = strings.TrimSpace(raw)
	if raw == "" || isNullLiteral(raw) {
		return nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	code := int(math.Round(value))
	return &code
}

func parseOEMFlag(raw string) *bool {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	flag := normalized == "yes" || normalized == "true"
	return &flag
}

func optionalString(raw string) *string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || isNullLiteral(trimmed) {
		return nil
	}
	return &trimmed
}

func stringOrEmpty(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if isNullLiteral(trimmed) {
		return ""
	}
	return trimmed
}

func isNullLiteral(raw string) bool {
	return strings.EqualFold(raw, "NULL")
}

// ValidateHeaders reports headers present in the document but missing from the
// canonical list. Unknown headers are tolerated (the generic string rule
// applies); this is informational for import logs only.
func ValidateHeaders(headers []string) []string {
	known := make(map[string]struct{}, len(JobHeaders))
	for _, h := range JobHeaders {
		known[h] = struct{}{}
	}
	var unknown []string
	for _, h := range headers {
		if _, ok := known[h]; !ok {
			unknown = append(unknown, h)
		}
	}
	return unknown
}

// RowError annotates a rejected row during batch insertion.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}
