package corporate

import "time"

// DefaultConfig returns the corporate-action tables for the tracked
// portfolio. Ratios and dates come from the issuers' published terms.
func DefaultConfig() Config {
	return Config{
		Conversions: []Conversion{
			{
				FromTicker: "CS",
				ToTicker:   "UBS",
				FromTitle:  "Credit Suisse",
				ToTitle:    "UBS",
				Ratio:      2.05520721 / 46.2010582,
				Effective:  time.Date(2023, 6, 12, 0, 0, 1, 0, time.UTC),
			},
			{
				FromTicker: "CBX",
				ToTicker:   "CLAI",
				FromTitle:  "Cellular Goods",
				ToTitle:    "Cel AI",
				Ratio:      1,
				Effective:  time.Date(2024, 2, 13, 0, 0, 1, 0, time.UTC),
			},
		},
		Splits: map[string]float64{
			"AMZN": 4.874117783,
			"REVB": 0.005208333,
			"NVDA": 10,
			"NFLX": 10,
			"LITM": 0.076923077,
			"WBX":  0.05,
			"GSK":  0.788732394,
		},
		AutoExits: map[string]AutoExit{
			"YMAB": {Amount: 115.78, Reason: "Acquired - $8.6 per share"},
			"BLUE": {Amount: 32.07, Reason: "Acquired - $3 per share"},
			"CLAI": {Amount: 0, Reason: "Delisted"},
			"HEIT": {Amount: 428.73, Reason: "Acquired - £0.924 per share"},
			"LTG":  {Amount: 183, Reason: "Acquired - £1 per share"},
		},
	}
}
