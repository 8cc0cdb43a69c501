package cmd

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/yeisme/chunkvault/pkg/internal/storage/kv"
	"github.com/yeisme/chunkvault/pkg/internal/storage/mq"
)

// names 把已注册的驱动类型转成排好序的字符串.
func names[T ~string](types []T) []string {
	out := make([]string, 0, len(types))
	for _, t := range types {
		out = append(out, string(t))
	}

	slices.Sort(out)

	return out
}

// newListCmd 打印某类后端编译进来的驱动.
func newListCmd(kind string, registered func() []string) *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Short:   "list compiled-in " + kind + " drivers",
		Aliases: []string{"ls"},
		Args:    cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Registered %s types:\n", kind)

			for _, name := range registered() {
				fmt.Fprintln(out, "   - "+name)
			}
		},
	}
}

func registerBackendCommands() {
	kvCmd := &cobra.Command{Use: "kv", Short: "Session cache backends", Aliases: []string{"keyvalue"}}
	kvCmd.AddCommand(newListCmd("kv", func() []string { return names(kv.GetRegisteredKVTypes()) }))

	mqCmd := &cobra.Command{Use: "mq", Short: "Event and notification queue backends", Aliases: []string{"messagequeue"}}
	mqCmd.AddCommand(newListCmd("mq", func() []string { return names(mq.GetRegisteredMQTypes()) }))

	rootCmd.AddCommand(kvCmd, mqCmd)
}
