package core

// Summary holds the headline totals of a transaction collection.
type Summary struct {
	TotalIncome      Money `json:"totalIncome"`
	TotalExpenses    Money `json:"totalExpenses"`
	Balance          Money `json:"balance"`
	TransactionCount int   `json:"transactionCount"`
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"category"`
	Amount Money  `json:"amount"`
	Count  int    `json:"count"`
}

// MonthBucket is one slot of a 12-month series.
type MonthBucket struct {
	Year     int    `json:"year"`
	Month    int    `json:"month"` // 1-12
	Label    string `json:"label"`
	Income   Money  `json:"earning"`
	Expenses Money  `json:"expense"`
}
