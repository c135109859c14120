package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"trade-ledger/internal/ledger"
	"trade-ledger/internal/models"
	"trade-ledger/pkg/utils"
)

func addAccountCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:     "account",
		Aliases: []string{"accounts", "acct"},
		Short:   "Manage accounts and withdrawals",
	}
	cmd.AddCommand(newAccountListCmd(app))
	cmd.AddCommand(newAccountCreateCmd(app))
	cmd.AddCommand(newAccountDeleteCmd(app))
	cmd.AddCommand(newAccountUseCmd(app))
	cmd.AddCommand(newAccountEditCmd(app))
	cmd.AddCommand(newWithdrawCmd(app))
	cmd.AddCommand(newWithdrawalsCmd(app))
	rootCmd.AddCommand(cmd)
}

// accountView is the JSON shape of an account listing entry.
type accountView struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	Size              float64 `json:"size"`
	StartingBalance   float64 `json:"starting_balance"`
	StartingEstimated bool    `json:"starting_estimated,omitempty"`
	Trades            int     `json:"trades"`
	Withdrawn         float64 `json:"withdrawn"`
	Active            bool    `json:"active"`
}

func newAccountListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}

			activeID := l.ActiveAccount().ID
			var views []accountView
			for _, a := range l.Accounts() {
				start, estimated := ledger.StartingBalance(a)
				views = append(views, accountView{
					ID:                a.ID,
					Name:              a.Name,
					Size:              a.Size,
					StartingBalance:   start,
					StartingEstimated: estimated,
					Trades:            len(a.Trades),
					Withdrawn:         a.TotalWithdrawn(),
					Active:            a.ID == activeID,
				})
			}
			if output.IsJSON() {
				return output.JSON(views)
			}

			table := NewTable(output, "", "ID", "NAME", "BALANCE", "START", "TRADES", "WITHDRAWN")
			for _, v := range views {
				marker := ""
				if v.Active {
					marker = output.Green("*")
				}
				start := utils.FormatCurrency(v.StartingBalance)
				if v.StartingEstimated {
					start += output.DimText(" (est)")
				}
				table.AddRow(marker, v.ID, v.Name, utils.FormatCurrency(v.Size), start,
					fmt.Sprint(v.Trades), utils.FormatCurrency(v.Withdrawn))
			}
			table.Render()
			return nil
		},
	}
}

func newAccountCreateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "create <name> <starting-size>",
		Short:   "Create an account",
		Example: `  tradelog account create "Prop Challenge" 50000`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			size, err := utils.ParseAmount(args[1])
			if err != nil {
				return fmt.Errorf("invalid starting size: %w", err)
			}
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			a, err := l.CreateAccount(cmd.Context(), args[0], size)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(a)
			}
			output.Success("Created account %s (%s) with %s", a.Name, a.ID, utils.FormatCurrency(a.Size))
			return nil
		},
	}
}

func newAccountDeleteCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <account-id>",
		Short: "Delete an account with all its trades and withdrawals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			if err := l.DeleteAccount(cmd.Context(), args[0]); err != nil {
				return err
			}
			output.Success("Deleted account %s", args[0])
			output.Dim("Active account: %s", l.ActiveAccount().Name)
			return nil
		},
	}
}

func newAccountUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use <account-id>",
		Short: "Switch the active account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			if err := l.SetActive(cmd.Context(), args[0]); err != nil {
				return err
			}
			active := l.ActiveAccount()
			if active.ID != args[0] {
				output.Warning("No account %s; active account unchanged (%s)", args[0], active.Name)
				return nil
			}
			output.Success("Active account: %s", active.Name)
			return nil
		},
	}
}

func newAccountEditCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <account-id>",
		Short: "Rename an account or correct its balance",
		Long: `Rename an account or override its current balance.

A balance override does not change any trade. It is recorded in the audit
trail as a balance correction.`,
		Example: `  tradelog account edit 01J9Z... --name "Swing"
  tradelog account edit 01J9Z... --size 10250.75`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			var patch models.AccountPatch
			if cmd.Flags().Changed("name") {
				name, _ := cmd.Flags().GetString("name")
				patch.Name = &name
			}
			if cmd.Flags().Changed("size") {
				raw, _ := cmd.Flags().GetString("size")
				size, err := utils.ParseAmount(raw)
				if err != nil {
					return fmt.Errorf("invalid size: %w", err)
				}
				patch.Size = &size
			}
			if patch.Name == nil && patch.Size == nil {
				return fmt.Errorf("nothing to change: pass --name and/or --size")
			}

			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			a, err := l.EditAccount(cmd.Context(), args[0], patch)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(a)
			}
			output.Success("Updated %s: balance %s", a.Name, utils.FormatCurrency(a.Size))
			return nil
		},
	}
	cmd.Flags().String("name", "", "New account name")
	cmd.Flags().String("size", "", "New current balance")
	return cmd
}

func newWithdrawCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "withdraw <amount>",
		Short:   "Record a cash withdrawal",
		Example: `  tradelog account withdraw 500 --date 2024-03-01 --comment "payout"`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			amount, err := utils.ParseAmount(args[0])
			if err != nil {
				return fmt.Errorf("invalid amount: %w", err)
			}
			date, _ := cmd.Flags().GetString("date")
			comment, _ := cmd.Flags().GetString("comment")

			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			accountID := accountFlag(cmd, l)
			w, err := l.Withdraw(cmd.Context(), accountID, amount, date, comment)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(w)
			}
			a, _ := l.Account(accountID)
			output.Success("Withdrew %s on %s; balance now %s", utils.FormatCurrency(w.Amount), w.Date, utils.FormatCurrency(a.Size))
			return nil
		},
	}
	cmd.Flags().String("account", "", "Account id (default: active account)")
	cmd.Flags().String("date", "", "Withdrawal date YYYY-MM-DD (default: today)")
	cmd.Flags().String("comment", "", "Note")
	return cmd
}

func newWithdrawalsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "withdrawals",
		Short: "List or delete withdrawals",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			l, err := app.Ledger(cmd.Context())
			if err != nil {
				return err
			}
			accountID := accountFlag(cmd, l)

			if del, _ := cmd.Flags().GetString("delete"); del != "" {
				if err := l.DeleteWithdrawal(cmd.Context(), accountID, del); err != nil {
					return err
				}
				output.Success("Withdrawal %s removed", del)
				return nil
			}

			a, err := l.Account(accountID)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(a.Withdrawals)
			}
			if len(a.Withdrawals) == 0 {
				output.Dim("No withdrawals")
				return nil
			}
			table := NewTable(output, "ID", "DATE", "AMOUNT", "COMMENT")
			for _, w := range a.Withdrawals {
				table.AddRow(w.ID, w.Date, utils.FormatCurrency(w.Amount), utils.TruncateString(w.Comment, 40))
			}
			table.Render()
			output.Printf("Total withdrawn: %s\n", utils.FormatCurrency(a.TotalWithdrawn()))
			return nil
		},
	}
	cmd.Flags().String("account", "", "Account id (default: active account)")
	cmd.Flags().String("delete", "", "Delete the withdrawal with this id")
	return cmd
}

// accountFlag returns --account or the active account id.
func accountFlag(cmd *cobra.Command, l *ledger.Ledger) string {
	if id, _ := cmd.Flags().GetString("account"); id != "" {
		return id
	}
	return l.ActiveAccount().ID
}
