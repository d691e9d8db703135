package main

import (
	"fmt"

	"github.com/spf13/cobra"

	hcmconfig "github.com/timzifer/hcm/config"
	"github.com/timzifer/hcm/engine"
	"github.com/timzifer/hcm/internal/config"
	"github.com/timzifer/hcm/report"
	"github.com/timzifer/hcm/tree"
)

func checkCmd(global *globalFlags) *cobra.Command {
	var strict bool

	c := &cobra.Command{
		Use:   "check [root...]",
		Short: "Validate independent module sets",
		Long: "Validate independent module sets. Every argument is a directory whose\n" +
			"modules are merged on their own; the sets are checked concurrently.\n" +
			"Without arguments the modules of the settings file form one set.",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd, global)
			if err != nil {
				return err
			}
			defer env.close()
			defer env.writeMetrics()

			jobs, err := checkJobs(env, args)
			if err != nil {
				return err
			}
			recorders := make([]*report.Recorder, len(jobs))
			for i := range jobs {
				recorders[i] = &report.Recorder{}
				logger := env.logger.With().Str("job", jobs[i].Name).Logger()
				jobs[i].Reporter = report.Multi(report.NewLogReporter(logger), recorders[i])
			}
			results, err := env.engine.BuildAll(cmd.Context(), jobs)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			total := 0
			for i, res := range results {
				fmt.Fprintf(out, "%s: %d modules, %d nodes, digest %s\n",
					jobs[i].Name, len(res.Hierarchy.Modules()), countNodes(res), res.Digest)
				for _, w := range recorders[i].Warnings() {
					fmt.Fprintf(out, "%s: warning: %s\n", jobs[i].Name, w)
				}
				total += recorders[i].Len()
			}
			if strict && total > 0 {
				return fmt.Errorf("%d warnings reported", total)
			}
			return nil
		},
	}
	c.Flags().BoolVar(&strict, "strict", false, "Fail when any warning is reported")
	return c
}

func checkJobs(env *environment, args []string) ([]engine.Job, error) {
	sets := args
	if len(sets) == 0 {
		dirs, err := env.moduleDirs(nil)
		if err != nil {
			return nil, err
		}
		groups, err := hcmconfig.LoadModules(dirs...)
		if err != nil {
			return nil, err
		}
		return []engine.Job{{Name: "settings", Groups: groups}}, nil
	}
	jobs := make([]engine.Job, 0, len(sets))
	for _, root := range sets {
		dirs, err := config.ModuleDirs(&config.Config{Modules: []string{root}})
		if err != nil {
			return nil, err
		}
		if len(dirs) == 0 {
			return nil, fmt.Errorf("no modules found in %s", root)
		}
		groups, err := hcmconfig.LoadModules(dirs...)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, engine.Job{Name: root, Groups: groups})
	}
	return jobs, nil
}

func countNodes(res *engine.Result) int {
	count := 0
	res.Root.Walk(func(n *tree.Node) bool {
		if !n.IsRoot() {
			count++
		}
		return true
	})
	return count
}
