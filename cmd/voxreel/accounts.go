package main

import (
	"github.com/spf13/cobra"

	"github.com/voxreel/voxreel/internal/output"
	"github.com/voxreel/voxreel/internal/pool"
)

// accountRow is one account in `voxreel accounts` output. Credentials are
// never printed.
type accountRow struct {
	Name    string `json:"name" yaml:"name"`
	Email   string `json:"email" yaml:"email"`
	Enabled bool   `json:"enabled" yaml:"enabled"`
}

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Show the generation account pool",
	Long: `Show the accounts loaded from the accounts CSV and an aggregate
summary of the pool as the next run would see it.

The CSV lives at <home>/accounts.csv with the header:
  name,email,password,profile_dir,cookies_file,enabled`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := loadConfig()
		if err != nil {
			return err
		}
		cfg := cm.Get()
		h, err := newHome(cfg)
		if err != nil {
			return err
		}

		accounts, err := pool.LoadAccounts(h.AccountsPath())
		if err != nil {
			return err
		}
		p, err := pool.New(accounts, cfg.FlowsLab.MaxScenesPerAccount, newLogger(cfg))
		if err != nil {
			return err
		}

		rows := make([]accountRow, 0, len(accounts))
		for _, a := range accounts {
			rows = append(rows, accountRow{
				Name:    a.ID,
				Email:   a.Email,
				Enabled: a.Enabled,
			})
		}

		return output.Render(struct {
			Summary  pool.Summary `json:"summary" yaml:"summary"`
			Accounts []accountRow `json:"accounts" yaml:"accounts"`
		}{
			Summary:  p.Summary(),
			Accounts: rows,
		})
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}
