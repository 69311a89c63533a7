package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/mgajardo/backdesk/internal/bulk"
	"github.com/mgajardo/backdesk/internal/domain/customer"
)

func printCustomerPage(dst io.Writer, page *customer.Page) {
	w := tabwriter.NewWriter(dst, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tPHONE\tTAX ID\tSTATUS")
	for _, c := range page.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.FullName(), c.Email, c.Phone, c.TaxID, c.Status)
	}
	w.Flush()
	fmt.Fprintf(dst, "page %d/%d, %d customers\n", page.Page, page.TotalPages, page.TotalCount)
}

func printCustomer(dst io.Writer, c *customer.Customer) {
	w := tabwriter.NewWriter(dst, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ID:\t%d\n", c.ID)
	fmt.Fprintf(w, "Name:\t%s\n", c.FullName())
	fmt.Fprintf(w, "Email:\t%s\n", c.Email)
	fmt.Fprintf(w, "Phone:\t%s\n", c.Phone)
	fmt.Fprintf(w, "Tax ID:\t%s\n", c.TaxID)
	fmt.Fprintf(w, "Status:\t%s\n", c.Status)
	w.Flush()
}

// printSummary renders the financial figures exactly as the service
// reported them. The amounts are opaque strings here, never parsed.
func printSummary(dst io.Writer, s *customer.FinancialSummary) {
	w := tabwriter.NewWriter(dst, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "Orders:\t%d (total %s, due %s)\n",
		s.Orders.Count, s.Orders.TotalAmount, s.Orders.BalanceDue)
	fmt.Fprintf(w, "Payments:\t%d (paid %s)\n",
		s.Payments.Count, s.Payments.TotalPaid)
	fmt.Fprintf(w, "Outstanding:\t%s\n", s.OutstandingBalance)
	w.Flush()
}

func printImportReport(dst io.Writer, r *bulk.Report) {
	fmt.Fprintf(dst, "%s: %d rows scanned, %d imported", r.Mode, r.RowsScanned, r.ImportedCount)
	if r.SkippedBlank > 0 {
		fmt.Fprintf(dst, ", %d blank rows skipped", r.SkippedBlank)
	}
	fmt.Fprintln(dst)
	for _, re := range r.RowErrors {
		if re.Field != "" {
			fmt.Fprintf(dst, "  row %d: %s: %s\n", re.Row, re.Field, re.Message)
		} else {
			fmt.Fprintf(dst, "  row %d: %s\n", re.Row, re.Message)
		}
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid customer id %q", arg)
	}
	return id, nil
}
