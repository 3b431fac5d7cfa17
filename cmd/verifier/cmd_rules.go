package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dkmverify/internal/service/evaluation"
)

var rulesFile string

// rulesCmd 校验并打印评估规则表
var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "校验并打印评估规则表",
	Long: `加载评估规则表（--file 或 config.toml 中的 rules.path，均为空时使用内置规则），
校验后按声明顺序打印字段。`,
	RunE: runRules,
}

func init() {
	rulesCmd.Flags().StringVar(&rulesFile, "file", "", "规则文件 (yaml)")
}

func runRules(cmd *cobra.Command, args []string) error {
	path := rulesFile
	if path == "" {
		path = cfg.Rules.Path
	}
	table, err := evaluation.LoadRules(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tLABEL\tDEFAULT\tOPTIONS")
	for _, f := range table.Fields {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Code, f.Label, f.Default, strings.Join(f.Options, " | "))
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(out, "%d 个字段，规则有效\n", len(table.Fields))
	return nil
}
