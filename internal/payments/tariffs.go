// Package payments holds the Stars tariff table and the runtime purchase
// settings that admins can edit without a restart.
package payments

// Tariff describes one purchasable plan: its Stars price, duration in
// days, and the label shown on the invoice.
type Tariff struct {
	Code  string
	Title string
	Stars int
	Days  int
}

// Tariffs is the fixed plan table.  Payloads in invoices carry the Code
// so the payment handler can look the plan back up when the Stars
// transaction settles.
var Tariffs = []Tariff{
	{Code: "plus31", Title: "Plus — 31 days", Stars: 100, Days: 31},
}

// TariffByCode returns the tariff for an invoice payload, or false when
// the payload does not name a known plan.
func TariffByCode(code string) (Tariff, bool) {
	for _, t := range Tariffs {
		if t.Code == code {
			return t, true
		}
	}
	return Tariff{}, false
}
