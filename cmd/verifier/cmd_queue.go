package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dkmverify/internal/model"
	"dkmverify/internal/service/review"
)

var queueVerifier string

// queueCmd 打印审核人的待审行
var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "列出分配给审核人的待审行",
	RunE:  runQueue,
}

func init() {
	queueCmd.Flags().StringVar(&queueVerifier, "verifier", "", "审核人名称（与工作表中的审核人列完全一致）")
	_ = queueCmd.MarkFlagRequired("verifier")
}

func runQueue(cmd *cobra.Command, args []string) error {
	store, err := newSheetStore(cfg)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Portal.Timeout.Duration)
	defer cancel()

	q := review.NewQueue(store, queueOptions(cfg.Sheet), logger, nil)
	rows, err := q.Load(ctx, queueVerifier)
	if err != nil {
		return err
	}
	return printQueue(cmd, rows, cfg.Sheet.KeyColumn)
}

func printQueue(cmd *cobra.Command, rows []model.SheetRow, keyColumn string) error {
	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, "没有待审行")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "ROW\t%s\n", keyColumn)
	for _, row := range rows {
		key, _ := row.Column(keyColumn)
		fmt.Fprintf(w, "%d\t%s\n", row.RowIndex, key)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "共 %d 行\n", len(rows))
	return nil
}
