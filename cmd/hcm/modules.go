package main

import (
	"fmt"

	"github.com/spf13/cobra"

	hcmconfig "github.com/timzifer/hcm/config"
	"github.com/timzifer/hcm/hierarchy"
)

func modulesCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "modules [module-dir...]",
		Short: "List modules in merge order",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd, global)
			if err != nil {
				return err
			}
			defer env.close()

			dirs, err := env.moduleDirs(args)
			if err != nil {
				return err
			}
			groups, err := hcmconfig.LoadModules(dirs...)
			if err != nil {
				return err
			}
			merger := hierarchy.New()
			for _, group := range groups {
				if err := merger.Push(group); err != nil {
					return err
				}
			}
			h, err := merger.Build()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, module := range h.Modules() {
				fmt.Fprintf(out, "%s\t%d sources\n", module.FullName(), len(module.Sources))
			}
			return nil
		},
	}
}
