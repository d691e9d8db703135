package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	hcmconfig "github.com/timzifer/hcm/config"
	"github.com/timzifer/hcm/engine"
	"github.com/timzifer/hcm/internal/reload"
	"github.com/timzifer/hcm/query"
	"github.com/timzifer/hcm/tree"
)

type buildFlags struct {
	output string
	sel    string
	digest bool
	watch  bool
}

func buildCmd(global *globalFlags) *cobra.Command {
	var flags buildFlags

	c := &cobra.Command{
		Use:   "build [module-dir...]",
		Short: "Merge modules and write the resulting configuration tree",
		Long: "Merge modules and write the resulting configuration tree as YAML.\n" +
			"Arguments are module directories or directories searched for modules;\n" +
			"without arguments the modules of the settings file are used.",
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := newEnvironment(cmd, global)
			if err != nil {
				return err
			}
			defer env.close()

			if !cmd.Flags().Changed("output") && env.cfg.Output != "" {
				flags.output = env.cfg.Output
			}
			if !cmd.Flags().Changed("select") {
				flags.sel = env.cfg.Select
			}
			var q *query.Query
			if flags.sel != "" {
				if q, err = query.Compile(flags.sel); err != nil {
					return err
				}
			}

			dirs, err := env.moduleDirs(args)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			render := func(res *engine.Result) error {
				return writeResult(res, q, flags, cmd.OutOrStdout())
			}
			if flags.watch {
				return watchAndBuild(ctx, env, args, dirs, render)
			}
			res, err := buildOnce(ctx, env, dirs)
			if err != nil {
				return err
			}
			return render(res)
		},
	}

	c.Flags().StringVarP(&flags.output, "output", "o", "", "Output file (default stdout)")
	c.Flags().StringVar(&flags.sel, "select", "", "Only list nodes matching this expression")
	c.Flags().BoolVar(&flags.digest, "digest", false, "Print the content digest instead of the tree")
	c.Flags().BoolVarP(&flags.watch, "watch", "w", false, "Rebuild whenever a module source changes")
	return c
}

func buildOnce(ctx context.Context, env *environment, dirs []string) (*engine.Result, error) {
	defer env.writeMetrics()
	groups, err := hcmconfig.LoadModules(dirs...)
	if err != nil {
		return nil, err
	}
	return env.engine.Build(ctx, groups)
}

func writeResult(res *engine.Result, q *query.Query, flags buildFlags, stdout io.Writer) error {
	var data []byte
	switch {
	case flags.digest:
		data = []byte(res.Digest + "\n")
	case q != nil:
		nodes, err := q.Select(res.Root)
		if err != nil {
			return err
		}
		var buf bytes.Buffer
		for _, n := range nodes {
			fmt.Fprintln(&buf, n.Path())
		}
		data = buf.Bytes()
	default:
		out, err := tree.Marshal(res.Root)
		if err != nil {
			return err
		}
		data = out
	}
	return writeOutput(flags.output, stdout, data)
}

// watchAndBuild rebuilds on every change of a tracked source until ctx is
// done. Failed rebuilds are logged and keep the last output in place.
func watchAndBuild(ctx context.Context, env *environment, args, dirs []string, render func(*engine.Result) error) error {
	watcher, err := reload.NewWatcher(dirs...)
	if err != nil {
		return fmt.Errorf("create source watcher: %w", err)
	}
	rebuild := func() {
		res, err := buildOnce(ctx, env, dirs)
		if err != nil {
			env.logger.Error().Err(err).Msg("build failed")
			return
		}
		if err := render(res); err != nil {
			env.logger.Error().Err(err).Msg("failed to write output")
			return
		}
		env.logger.Info().Str("digest", res.Digest).Msg("configuration written")
	}
	rebuild()

	ticker := time.NewTicker(env.cfg.WatchInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			changes, err := watcher.Check()
			if err != nil {
				env.logger.Error().Err(err).Msg("failed to check source changes")
				continue
			}
			if len(changes) == 0 {
				continue
			}
			if found, err := env.moduleDirs(args); err != nil {
				env.logger.Error().Err(err).Msg("failed to resolve modules")
			} else {
				dirs = found
			}
			if err := watcher.Update(dirs...); err != nil {
				env.logger.Error().Err(err).Msg("failed to update watcher state")
			}
			for _, file := range changes {
				env.collector.IncHotReload(file)
			}
			env.logger.Info().Strs("files", changes).Msg("sources changed, rebuilding")
			rebuild()
		}
	}
}
