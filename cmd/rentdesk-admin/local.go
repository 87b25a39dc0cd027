package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"rentdesk/internal/config"
	"rentdesk/internal/core"
	"rentdesk/internal/services"
	"rentdesk/internal/storage"
)

// Commands in this file work on the database directly.

func dbFlag(cmd *cobra.Command) *string {
	return cmd.Flags().String("db", config.Load().SQLiteDBPath, "SQLite database path (SQLITE_DB_PATH)")
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
	}
	dbPath := dbFlag(cmd)
	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		if err := os.MkdirAll(filepath.Dir(*dbPath), 0o755); err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}
		version, err := storage.RunMigrations(*dbPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s is at schema version %d\n", *dbPath, version)
		return nil
	}
	return cmd
}

func userCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage dashboard users",
	}
	cmd.AddCommand(userCreateCmd())
	return cmd
}

func userCreateCmd() *cobra.Command {
	var in core.UserInput
	var role string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user",
		Args:  cobra.NoArgs,
	}
	dbPath := dbFlag(cmd)
	cmd.Flags().StringVar(&in.Name, "name", "", "display name")
	cmd.Flags().StringVar(&in.Email, "email", "", "login email")
	cmd.Flags().StringVar(&in.Phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&in.Password, "password", "", "initial password")
	cmd.Flags().StringVar(&role, "role", string(core.RoleStaff), "Admin, Manager or Staff")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		repo, err := storage.NewSQLiteRepository(*dbPath)
		if err != nil {
			return err
		}
		svc := services.New(repo, nil)
		defer svc.Close()

		in.Role = core.Role(role)
		if in.Name == "" {
			in.Name = strings.Split(in.Email, "@")[0]
		}
		u, err := svc.CreateUser(cmd.Context(), in)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %s user %s (%s)\n", u.Role, u.Email, u.ID)
		return nil
	}
	return cmd
}

func periodsCmd() *cobra.Command {
	var start, end, frequency, terms, amount, expected, paid, asOf string
	cmd := &cobra.Command{
		Use:   "periods",
		Short: "Compute billing periods, expected total and standing for a contract draft",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c := core.Contract{
				PaymentFrequency: core.Frequency(frequency),
				PaymentTerms:     core.PaymentTerms(terms),
			}
			var err error
			if c.StartDate, err = core.ParseDate(start); err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			if c.EndDate, err = core.ParseDate(end); err != nil {
				return fmt.Errorf("--end: %w", err)
			}
			if !c.PaymentTerms.Valid() {
				return fmt.Errorf("--terms %q is not one of fixed, percentage", terms)
			}
			for _, f := range []struct {
				flag, value string
				dst         *core.Money
			}{
				{"amount", amount, &c.PaymentAmount},
				{"expected", expected, &c.ExpectedTotalPaymentAmount},
				{"paid", paid, &c.TotalAmountPaid},
			} {
				if f.value == "" {
					continue
				}
				cents, err := core.ParseAmount(f.value)
				if err != nil {
					return fmt.Errorf("--%s %q is not a valid amount", f.flag, f.value)
				}
				*f.dst = core.Money{Cents: cents}
			}
			when := time.Now()
			if asOf != "" {
				d, err := core.ParseDate(asOf)
				if err != nil {
					return fmt.Errorf("--as-of: %w", err)
				}
				when = d.Time
			}

			q := services.QuoteContract(c, when)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "periods:        %d\n", q.Periods)
			fmt.Fprintf(out, "expected total: %s\n", q.ExpectedTotalPaymentAmount)
			fmt.Fprintf(out, "balance left:   %s\n", q.BalanceLeft)
			fmt.Fprintf(out, "due to date:    %s (%d of %d periods started)\n", q.Standing.DueToDate, q.Standing.PeriodsElapsed, q.Standing.Periods)
			fmt.Fprintf(out, "arrears:        %s\n", q.Standing.Arrears)
			if !q.Standing.NextDue.IsZero() {
				fmt.Fprintf(out, "next due:       %s\n", q.Standing.NextDue)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&start, "start", "", "start date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "end date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&frequency, "frequency", string(core.FrequencyMonthly), "daily, weekly or monthly")
	cmd.Flags().StringVar(&terms, "terms", string(core.TermsFixed), "fixed or percentage")
	cmd.Flags().StringVar(&amount, "amount", "", "payment amount per period")
	cmd.Flags().StringVar(&expected, "expected", "", "expected total, kept under percentage terms")
	cmd.Flags().StringVar(&paid, "paid", "", "amount paid so far")
	cmd.Flags().StringVar(&asOf, "as-of", "", "day to compute the standing for (default today)")
	_ = cmd.MarkFlagRequired("start")
	_ = cmd.MarkFlagRequired("end")
	return cmd
}
