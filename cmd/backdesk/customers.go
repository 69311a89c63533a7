package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mgajardo/backdesk/internal/directory"
	"github.com/mgajardo/backdesk/internal/domain/customer"
)

// statusValue is a --status flag constrained to the filters the
// directory understands. Bad values fail at parse time.
type statusValue customer.StatusFilter

var _ pflag.Value = (*statusValue)(nil)

func newStatusValue() *statusValue {
	v := statusValue(customer.FilterAll)
	return &v
}

func (v *statusValue) String() string { return string(*v) }
func (v *statusValue) Type() string   { return "status" }

func (v *statusValue) Set(raw string) error {
	switch f := customer.StatusFilter(strings.ToLower(raw)); f {
	case customer.FilterActive, customer.FilterInactive, customer.FilterAll:
		*v = statusValue(f)
		return nil
	default:
		return fmt.Errorf("want active, inactive or all")
	}
}

func (v *statusValue) Filter() customer.StatusFilter { return customer.StatusFilter(*v) }

func newListCmd(a *app) *cobra.Command {
	var (
		search string
		page   int
		size   int
	)
	status := newStatusValue()
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List directory customers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.ensureSession(cmd.Context()); err != nil {
				return err
			}
			filter := customer.ListFilter{Search: search, Status: status.Filter()}
			result, err := a.query.List(cmd.Context(), filter, customer.PageRequest{Page: page, Size: size})
			if err != nil {
				return err
			}
			printCustomerPage(cmd.OutOrStdout(), result)
			return nil
		},
	}
	cmd.Flags().StringVar(&search, "search", "", "match against name, email, phone or tax id")
	cmd.Flags().Var(status, "status", "filter by status: active, inactive or all")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", directory.DefaultPageSize, "page size")
	return cmd
}

func newShowCmd(a *app) *cobra.Command {
	var (
		withSummary bool
		from, to    string
	)
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one customer record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.ensureSession(cmd.Context()); err != nil {
				return err
			}
			cust, err := a.query.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			printCustomer(cmd.OutOrStdout(), cust)
			if !withSummary {
				return nil
			}
			summary, err := a.query.GetSummary(cmd.Context(), id, customer.SummaryRange{From: from, To: to})
			if err != nil {
				return err
			}
			printSummary(cmd.OutOrStdout(), summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withSummary, "summary", false, "include the financial summary")
	cmd.Flags().StringVar(&from, "from", "", "summary start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "summary end date (YYYY-MM-DD)")
	return cmd
}

func newCreateCmd(a *app) *cobra.Command {
	var draft customer.CreateRequest
	var status string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a customer record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" {
				draft.Status = customer.Status(status)
			}
			if err := a.ensureSession(cmd.Context()); err != nil {
				return err
			}
			created, err := a.editor.Create(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created customer %d\n", created.ID)
			printCustomer(cmd.OutOrStdout(), created)
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&draft.LastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&draft.Email, "email", "", "email address")
	cmd.Flags().StringVar(&draft.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&draft.TaxID, "tax-id", "", "tax identifier")
	cmd.Flags().StringVar(&status, "status", "", "initial status (defaults to active)")
	return cmd
}

func newUpdateCmd(a *app) *cobra.Command {
	var firstName, lastName, email, phone, taxID, status string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of a customer record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			// Only flags the operator passed become part of the patch;
			// everything else is left untouched on the record.
			var patch customer.UpdateRequest
			flags := cmd.Flags()
			if flags.Changed("first-name") {
				patch.FirstName = &firstName
			}
			if flags.Changed("last-name") {
				patch.LastName = &lastName
			}
			if flags.Changed("email") {
				patch.Email = &email
			}
			if flags.Changed("phone") {
				patch.Phone = &phone
			}
			if flags.Changed("tax-id") {
				patch.TaxID = &taxID
			}
			if flags.Changed("status") {
				s := customer.Status(status)
				patch.Status = &s
			}
			if patch == (customer.UpdateRequest{}) {
				return fmt.Errorf("nothing to update: pass at least one field flag")
			}

			if err := a.ensureSession(cmd.Context()); err != nil {
				return err
			}
			updated, err := a.editor.Update(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			printCustomer(cmd.OutOrStdout(), updated)
			return nil
		},
	}
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&taxID, "tax-id", "", "tax identifier")
	cmd.Flags().StringVar(&status, "status", "", "status: active or inactive")
	return cmd
}

func newDeactivateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "deactivate <id>",
		Short: "Deactivate a customer record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.ensureSession(cmd.Context()); err != nil {
				return err
			}
			if err := a.editor.Deactivate(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "customer %d deactivated\n", id)
			return nil
		},
	}
}

