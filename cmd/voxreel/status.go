package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voxreel/voxreel/internal/ledger"
	"github.com/voxreel/voxreel/internal/output"
)

// characterRow summarizes one character for status output.
type characterRow struct {
	ID       string `json:"id" yaml:"id"`
	Role     string `json:"role" yaml:"role"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	HasRef   bool   `json:"hasRefImage" yaml:"hasRefImage"`
	ImageGen string `json:"status" yaml:"status"`
}

// statusReport is the full `voxreel status` payload.
type statusReport struct {
	Code     string `json:"code" yaml:"code"`
	Path     string `json:"path" yaml:"path"`
	HasVoice bool   `json:"hasVoice" yaml:"hasVoice"`
	HasSrt   bool   `json:"hasSrt" yaml:"hasSrt"`

	Stats      *ledger.Stats  `json:"stats,omitempty" yaml:"stats,omitempty"`
	Characters []characterRow `json:"characters,omitempty" yaml:"characters,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status CODE",
	Short: "Show detailed progress for one project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		code := args[0]

		cm, err := loadConfig()
		if err != nil {
			return err
		}
		h, err := newHome(cm.Get())
		if err != nil {
			return err
		}
		p := h.Project(code)
		if !p.Exists() {
			return fmt.Errorf("project %s not found (run 'voxreel init' first)", code)
		}

		rep := statusReport{
			Code:     code,
			Path:     p.Path(),
			HasVoice: p.VoicePath() != "",
			HasSrt:   p.HasSrt(),
		}

		if p.HasWorkbook() {
			store, err := ledger.OpenXLSX(p.WorkbookPath())
			if err != nil {
				return fmt.Errorf("open workbook: %w", err)
			}
			l, err := ledger.Load(store, newLogger(cm.Get()))
			if err != nil {
				return err
			}
			stats := l.Stats()
			rep.Stats = &stats
			for _, c := range l.Characters() {
				_, refErr := os.Stat(p.RefImagePath(c.ID))
				rep.Characters = append(rep.Characters, characterRow{
					ID:       c.ID,
					Role:     c.Role,
					Name:     c.Name,
					HasRef:   refErr == nil,
					ImageGen: string(c.Status),
				})
			}
		}

		return output.Render(rep)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
