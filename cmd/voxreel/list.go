package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/voxreel/voxreel/internal/ledger"
	"github.com/voxreel/voxreel/internal/output"
)

// projectRow is one line of `voxreel list` output.
type projectRow struct {
	Code     string `json:"code" yaml:"code"`
	HasVoice bool   `json:"hasVoice" yaml:"hasVoice"`
	HasSrt   bool   `json:"hasSrt" yaml:"hasSrt"`

	Scenes  int    `json:"scenes" yaml:"scenes"`
	Prompts int    `json:"prompts" yaml:"prompts"`
	Images  string `json:"images" yaml:"images"` // done/total
	Videos  string `json:"videos" yaml:"videos"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all projects with per-stage progress",
	RunE: func(cmd *cobra.Command, args []string) error {
		cm, err := loadConfig()
		if err != nil {
			return err
		}
		h, err := newHome(cm.Get())
		if err != nil {
			return err
		}
		codes, err := h.List()
		if err != nil {
			return err
		}

		logger := newLogger(cm.Get())
		rows := make([]projectRow, 0, len(codes))
		for _, code := range codes {
			p := h.Project(code)
			row := projectRow{
				Code:     code,
				HasVoice: p.VoicePath() != "",
				HasSrt:   p.HasSrt(),
			}
			if p.HasWorkbook() {
				store, err := ledger.OpenXLSX(p.WorkbookPath())
				if err != nil {
					logger.Warn("cannot open workbook", "project", code, "err", err)
				} else if l, err := ledger.Load(store, logger); err == nil {
					st := l.Stats()
					row.Scenes = st.Scenes
					row.Prompts = st.ScenesWithPrompts
					row.Images = fmt.Sprintf("%d/%d", st.ImagesDone, st.Scenes)
					row.Videos = fmt.Sprintf("%d/%d", st.VideosDone, st.Scenes)
				}
			}
			rows = append(rows, row)
		}

		return output.Render(rows)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}
