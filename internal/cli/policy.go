package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/sorrel/pkg/policy"
)

// NewPolicyCommand creates the policy command group.
func NewPolicyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect field policies",
	}
	cmd.AddCommand(newPolicyValidateCommand())
	cmd.AddCommand(newPolicyShowCommand())
	return cmd
}

func newPolicyValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <policy-file>",
		Short: "Validate a YAML field policy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := policy.Load(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ policy valid: collection %s, identity %s, %d attributes\n",
				p.Collection, p.Identity.Name, len(p.Fields))
			return nil
		},
	}
}

func newPolicyShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show [policy-file]",
		Short: "Print a field policy, the built-in contacts policy by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p := policy.DefaultPolicy()
			if len(args) == 1 {
				loaded, err := policy.Load(args[0])
				if err != nil {
					return err
				}
				p = loaded
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "collection: %s\n", p.Collection)
			fmt.Fprintf(out, "identity:   %s (%s)\n", p.Identity.Name, strings.Join(p.Identity.Normalizers, ", "))
			for _, f := range p.Fields {
				fmt.Fprintf(out, "  %-16s %-9s %s\n", f.Name, f.Kind, f.Formatter())
			}
			return nil
		},
	}
}
