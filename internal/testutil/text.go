package testutil

import (
	"fmt"
	"strings"
)

var holdingRows = []string{
	"Vanguard Total Stock Market Index Fund    $15,001 - $50,000    Dividends    $1,201.44",
	"Apple Computer Inc Common Stock    $50,001 - $100,000    Capital Gains    $2,350.00",
	"First National Bank Checking Account    $1,001 - $15,000    Interest    $12.87",
	"Blackstone Real Estate Income Trust    $100,001 - $250,000    Rent    $8,400.00",
	"Treasury Inflation Protected Securities    $15,001 - $50,000    Interest    $640.25",
	"Fidelity Municipal Income Fund    $1,001 - $15,000    Dividends    $98.10",
}

var transactionRows = []string{
	"Microsoft Corporation    Purchase    03/14/2023    $1,001 - $15,000",
	"Exxon Mobil Corporation    Sale    04/02/2023    $15,001 - $50,000",
	"Johnson & Johnson    Purchase    May 9, 2023    $1,001 - $15,000",
	"Berkshire Hathaway Class B    Exchange    2023-06-21    $50,001 - $100,000",
}

// DisclosurePageText returns deterministic page text that looks like a
// financial disclosure schedule. Every page is well over 500 characters and
// carries dates, currency amounts and capitalized names.
func DisclosurePageText(page int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "United States House of Representatives Financial Disclosure Statement\n")
	fmt.Fprintf(&b, "Filer Name: Jane Quincy Doe    Filing Date: 05/15/2023    Page %d\n", page)
	b.WriteString("Schedule A: Assets and Unearned Income\n")
	for i := 0; i < len(holdingRows); i++ {
		b.WriteString(holdingRows[(i+page)%len(holdingRows)])
		b.WriteString("\n")
	}
	b.WriteString("Schedule B: Transactions\n")
	for i := 0; i < len(transactionRows); i++ {
		b.WriteString(transactionRows[(i+page)%len(transactionRows)])
		b.WriteString("\n")
	}
	b.WriteString("Certification: I certify that the statements I have made are true, complete and correct.\n")
	return b.String()
}

// DisclosurePages returns n disclosure pages.
func DisclosurePages(n int) []string {
	pages := make([]string, n)
	for i := range pages {
		pages[i] = DisclosurePageText(i + 1)
	}
	return pages
}

// ScanLines returns a few short lines suited to drawing on a page image.
func ScanLines() []string {
	return []string{
		"PERIODIC TRANSACTION REPORT",
		"Filer: Jane Quincy Doe",
		"Microsoft Corporation  Purchase  03/14/2023",
		"Amount: $1,001 - $15,000",
	}
}
