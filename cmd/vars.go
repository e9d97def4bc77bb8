package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/pagekit/internal/observability"
)

func newEvalCmd() *cobra.Command {
	var flags variableFlags

	cmd := &cobra.Command{
		Use:   "eval EXPRESSION",
		Short: "Expand {name} tokens, then evaluate the expression against scenario variables",
		Long: `Evaluate an expression the way scenario steps do. Variables are set with
--set and read from property files; strings, integers and booleans are supported.

  pagekit eval --set count=3 'count * 2 > 5 && "abc".startsWith("a")'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := flags.newStore(configFrom(cmd), observability.GetLogger())
			if err != nil {
				return err
			}
			expr, err := store.ReplaceVariables(args[0])
			if err != nil {
				return err
			}
			result, err := store.Evaluate(expr)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), result)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newRenderCmd() *cobra.Command {
	var flags variableFlags

	cmd := &cobra.Command{
		Use:   "render TEMPLATE",
		Short: "Substitute {name} tokens in a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := flags.newStore(configFrom(cmd), observability.GetLogger())
			if err != nil {
				return err
			}
			rendered, err := store.ReplaceVariables(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}
	flags.register(cmd)
	return cmd
}
