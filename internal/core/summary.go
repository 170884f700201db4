package core

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"category"`
	Amount Money  `json:"total"`
}

// MonthTotal is one point of a monthly series.
type MonthTotal struct {
	Month YearMonth `json:"month"`
	Total Money     `json:"total"`
}

// BudgetComparison pairs the planned and actual spend of a month.
type BudgetComparison struct {
	Month  YearMonth `json:"month"`
	Budget Money     `json:"budget"`
	Actual Money     `json:"actual"`
}

// ExportRow is one line of the CSV export.
type ExportRow struct {
	Date        Date
	Category    string
	Description string
	Amount      Money
}
