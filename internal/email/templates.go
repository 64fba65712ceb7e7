package email

import (
	"fmt"
	"html"
	"strings"

	"github.com/shopspring/decimal"
)

// BudgetAlertData carries the numbers rendered in a budget alert email.
type BudgetAlertData struct {
	UserName       string
	AccountName    string
	PercentageUsed float64
	BudgetAmount   decimal.Decimal
	TotalExpenses  decimal.Decimal
}

// NewBudgetAlert builds the alert message sent when a user crosses the
// monthly budget threshold.
func NewBudgetAlert(to string, data BudgetAlertData) Message {
	remaining := data.BudgetAmount.Sub(data.TotalExpenses)

	var b strings.Builder
	b.WriteString("<h2>Budget Alert</h2>")
	fmt.Fprintf(&b, "<p>Hello %s,</p>", html.EscapeString(data.UserName))
	fmt.Fprintf(&b, "<p>You have used <strong>%.1f%%</strong> of your monthly budget.</p>", data.PercentageUsed)
	b.WriteString("<ul>")
	fmt.Fprintf(&b, "<li>Budget amount: %s</li>", data.BudgetAmount.StringFixed(2))
	fmt.Fprintf(&b, "<li>Spent so far: %s</li>", data.TotalExpenses.StringFixed(2))
	fmt.Fprintf(&b, "<li>Remaining: %s</li>", remaining.StringFixed(2))
	b.WriteString("</ul>")

	return Message{
		To:      to,
		Subject: fmt.Sprintf("Budget Alert for %s", data.AccountName),
		HTML:    b.String(),
	}
}

// MonthlyReportData carries the aggregates and insights rendered in a
// monthly report email.
type MonthlyReportData struct {
	UserName         string
	Month            string
	TotalBuy         decimal.Decimal
	TotalSell        decimal.Decimal
	TransactionCount int
	ByAssetName      map[string]decimal.Decimal
	Insights         []string
}

// NewMonthlyReport builds the monthly financial report message.
func NewMonthlyReport(to string, data MonthlyReportData) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Your Monthly Financial Report - %s</h2>", html.EscapeString(data.Month))
	fmt.Fprintf(&b, "<p>Hello %s,</p>", html.EscapeString(data.UserName))
	b.WriteString("<ul>")
	fmt.Fprintf(&b, "<li>Total bought: %s</li>", data.TotalBuy.StringFixed(2))
	fmt.Fprintf(&b, "<li>Total sold: %s</li>", data.TotalSell.StringFixed(2))
	fmt.Fprintf(&b, "<li>Transactions: %d</li>", data.TransactionCount)
	b.WriteString("</ul>")

	if len(data.ByAssetName) > 0 {
		b.WriteString("<h3>Purchases by asset</h3><ul>")
		for name, amount := range data.ByAssetName {
			fmt.Fprintf(&b, "<li>%s: %s</li>", html.EscapeString(name), amount.StringFixed(2))
		}
		b.WriteString("</ul>")
	}

	if len(data.Insights) > 0 {
		b.WriteString("<h3>Insights</h3><ul>")
		for _, insight := range data.Insights {
			fmt.Fprintf(&b, "<li>%s</li>", html.EscapeString(insight))
		}
		b.WriteString("</ul>")
	}

	return Message{
		To:      to,
		Subject: fmt.Sprintf("Your Monthly Financial Report - %s", data.Month),
		HTML:    b.String(),
	}
}
