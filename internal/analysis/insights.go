package analysis

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

// Money formats v as "$1,234.56".
func Money(v float64) string {
	if v < 0 {
		return "-$" + humanize.FormatFloat("#,###.##", -v)
	}
	return "$" + humanize.FormatFloat("#,###.##", v)
}

// Insights renders plain-language observations from the summaries.
func Insights(a Aggregates) []string {
	out := []string{}
	if s := a.Sales; s != nil {
		out = append(out,
			fmt.Sprintf("Top performing product is %s", s.TopProduct),
			fmt.Sprintf("Top performing region is %s", s.TopRegion),
			fmt.Sprintf("Average transaction value is %s", Money(s.AvgTransaction)),
		)
	}
	if s := a.CRM; s != nil {
		out = append(out,
			fmt.Sprintf("Deal conversion rate is %.1f%%", s.ConversionRate),
			fmt.Sprintf("%s sector has highest deal values", s.TopIndustry),
		)
	}
	if s := a.Financial; s != nil && s.TotalRevenue != 0 {
		out = append(out, fmt.Sprintf("Overall profit margin is %.1f%%", s.TotalProfit/s.TotalRevenue*100))
	}
	if s := a.Transactions; s != nil && s.TotalTransactions > 0 {
		rate := float64(s.Completed) / float64(s.TotalTransactions) * 100
		out = append(out, fmt.Sprintf("Transaction completion rate is %.1f%%", rate))
	}
	if s := a.Opportunity; s != nil && s.TotalOpportunities > 0 {
		out = append(out, fmt.Sprintf("Weighted pipeline value is %s", Money(s.WeightedPipeline)))
	}
	if s := a.Inventory; s != nil && s.BelowReorder > 0 {
		out = append(out, fmt.Sprintf("%d inventory items are below their reorder level", s.BelowReorder))
	}
	return out
}
