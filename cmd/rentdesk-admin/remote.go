package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"rentdesk/internal/client"
	"rentdesk/internal/core"
)

// Commands in this file go through the HTTP API.

type remote struct {
	server   string
	email    string
	password string
	token    string
}

func remoteFlags(cmd *cobra.Command) *remote {
	r := &remote{}
	cmd.Flags().StringVar(&r.server, "server", envOr("RENTDESK_URL", "http://localhost:8081"), "API base URL (RENTDESK_URL)")
	cmd.Flags().StringVar(&r.email, "email", os.Getenv("RENTDESK_EMAIL"), "login email (RENTDESK_EMAIL)")
	cmd.Flags().StringVar(&r.password, "password", os.Getenv("RENTDESK_PASSWORD"), "login password (RENTDESK_PASSWORD)")
	cmd.Flags().StringVar(&r.token, "token", os.Getenv("RENTDESK_TOKEN"), "session token instead of email and password (RENTDESK_TOKEN)")
	return r
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// connect returns a signed-in client.
func (r *remote) connect(cmd *cobra.Command) (*client.Client, error) {
	c, err := client.New(r.server, client.WithToken(r.token))
	if err != nil {
		return nil, err
	}
	if r.token != "" {
		return c, nil
	}
	if r.email == "" || r.password == "" {
		return nil, fmt.Errorf("set --token or both --email and --password")
	}
	if _, err := c.Login(cmd.Context(), r.email, r.password); err != nil {
		return nil, fmt.Errorf("login: %s", client.ErrorMessage(err))
	}
	return c, nil
}

func exportCmd() *cobra.Command {
	var name, out string
	cmd := &cobra.Command{
		Use:       "export <resource>",
		Short:     "Download a resource as an xlsx workbook",
		Args:      cobra.ExactArgs(1),
		ValidArgs: core.ExportableResources,
	}
	r := remoteFlags(cmd)
	cmd.Flags().StringVar(&name, "name", "", "workbook name (default <Resource>_List)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default the name the server suggests)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if !core.IsExportable(args[0]) {
			return fmt.Errorf("cannot export %q, use one of %v", args[0], core.ExportableResources)
		}
		c, err := r.connect(cmd)
		if err != nil {
			return err
		}
		data, suggested, err := c.Export(cmd.Context(), args[0], name)
		if err != nil {
			return fmt.Errorf("export: %s", client.ErrorMessage(err))
		}
		if out == "" {
			out = suggested
		}
		if out == "" {
			out = args[0] + ".xlsx"
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", out, len(data))
		return nil
	}
	return cmd
}

func contractsCmd() *cobra.Command {
	var q client.ContractQuery
	var status string
	cmd := &cobra.Command{
		Use:   "contracts",
		Short: "List contracts with filtering, sorting and paging",
		Args:  cobra.NoArgs,
	}
	r := remoteFlags(cmd)
	cmd.Flags().StringVar(&status, "status", "", "active, completed or terminated")
	cmd.Flags().StringVar(&q.Search, "search", "", "match driver name or vehicle registration")
	cmd.Flags().StringVar(&q.SortField, "sort", "", fmt.Sprintf("sort field, one of %v", client.ContractSortFields()))
	cmd.Flags().BoolVar(&q.Descending, "desc", false, "sort descending")
	cmd.Flags().IntVar(&q.Page, "page", 1, "page number")
	cmd.Flags().IntVar(&q.PageSize, "size", 20, "page size, 0 for all")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		c, err := r.connect(cmd)
		if err != nil {
			return err
		}
		contracts := client.NewList(func(k core.Contract) string { return k.ID })
		if err := contracts.Load(cmd.Context(), c.ListContracts); err != nil {
			return fmt.Errorf("list contracts: %s", client.ErrorMessage(err))
		}
		q.Status = core.ContractStatus(status)
		page, pages, err := client.QueryContracts(contracts.Items(), q)
		if err != nil {
			return err
		}
		writeContracts(cmd, page)
		fmt.Fprintf(cmd.OutOrStdout(), "page %d of %d, %d contracts in total\n", q.Page, pages, contracts.Len())
		return nil
	}
	return cmd
}

func writeContracts(cmd *cobra.Command, contracts []core.Contract) {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDRIVER\tVEHICLE\tSTART\tEND\tSTATUS\tAMOUNT\tEXPECTED\tPAID\tBALANCE")
	for _, k := range contracts {
		driver, vehicle := k.Driver.ID, k.Vehicle.ID
		if k.Driver.Doc != nil {
			driver = k.Driver.Doc.FullName()
		}
		if k.Vehicle.Doc != nil {
			vehicle = k.Vehicle.Doc.VehicleRegNum
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s %s\t%s\t%s\t%s\n",
			k.ID, driver, vehicle, k.StartDate, k.EndDate, k.Status,
			k.PaymentAmount, k.PaymentFrequency, k.ExpectedTotalPaymentAmount, k.TotalAmountPaid, k.BalanceLeft)
	}
	tw.Flush()
}
