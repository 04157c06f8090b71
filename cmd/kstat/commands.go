package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli/v3"

	kstat "github.com/illumos/go-kstat"
	"github.com/illumos/go-kstat/internal/server"
)

func listCmd() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List the selected kstats without reading them",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "type",
				Usage: "Only kstats of this type (raw, named, intr, io, timer)",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			only := kstat.Type(-1)
			if s := cmd.String("type"); s != "" {
				if only, err = kstat.ParseType(s); err != nil {
					return err
				}
			}

			r, err := e.newReader(e.cfg.Filter, nil)
			if err != nil {
				return err
			}
			defer closeReader(e.log, r)

			ks, err := r.List()
			if err != nil {
				return err
			}
			if only >= 0 {
				out := ks[:0]
				for _, k := range ks {
					if k.Type == only {
						out = append(out, k)
					}
				}
				ks = out
			}
			return e.write(ks)
		},
	}
}

func readCmd() *cli.Command {
	return &cli.Command{
		Name:  "read",
		Usage: "Read and decode the selected kstats",
		Action: func(_ context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			r, err := e.newReader(e.cfg.Filter, nil)
			if err != nil {
				return err
			}
			defer closeReader(e.log, r)

			recs, err := r.Read()
			if err != nil {
				return err
			}
			return e.write(recs)
		},
	}
}

// parseKstat parses module:instance:name, where any part may be
// empty or "*" to match anything and trailing parts may be left off.
func parseKstat(s string) (module string, instance int, name string, err error) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return "", 0, "", fmt.Errorf("%q is not module:instance:name", s)
	}
	parts = append(parts, "", "", "")
	instance = kstat.AnyInstance
	if p := parts[1]; p != "" && p != "*" {
		if instance, err = strconv.Atoi(p); err != nil || instance < kstat.AnyInstance {
			return "", 0, "", fmt.Errorf("invalid instance %q in %q", p, s)
		}
	}
	return star(parts[0]), instance, star(parts[2]), nil
}

func star(s string) string {
	if s == "*" {
		return ""
	}
	return s
}

func getCmd() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Look up and read one kstat, whatever the filter",
		ArgsUsage: "module:instance:name",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "stat",
				Usage: "Only this statistic",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.NArg() != 1 {
				return errors.New("get needs exactly one module:instance:name")
			}
			module, instance, name, err := parseKstat(cmd.Args().First())
			if err != nil {
				return err
			}
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			r, err := e.newReader(e.cfg.Filter, nil)
			if err != nil {
				return err
			}
			defer closeReader(e.log, r)

			rec, err := r.Lookup(module, instance, name)
			if err != nil {
				return err
			}
			if rec.NotFound {
				return fmt.Errorf("%s:%d:%s: %s", module, instance, name, rec.Error)
			}
			if stat := cmd.String("stat"); stat != "" {
				v, ok := rec.Data[stat]
				if !ok {
					return fmt.Errorf("%s has no statistic %q", rec.KStat, stat)
				}
				rec.Data = kstat.Data{stat: v}
			}
			return e.write(rec)
		},
	}
}

func chainIDCmd() *cli.Command {
	return &cli.Command{
		Name:  "chainid",
		Usage: "Print the kstat chain ID",
		Action: func(_ context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			r, err := e.newReader(e.cfg.Filter, nil)
			if err != nil {
				return err
			}
			defer closeReader(e.log, r)

			if _, err := r.Update(); err != nil {
				return err
			}
			return e.write(r.ChainID())
		},
	}
}

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve kstats over HTTP for jkstat and other clients",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "listen",
				Aliases: []string{"l"},
				Usage:   "Address to listen on (default :3000)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			reg, metrics := newRegistry()
			r, err := e.newReader(e.cfg.Filter, metrics)
			if err != nil {
				return err
			}
			defer closeReader(e.log, r)

			srv := server.New(r,
				server.WithConfig(e.cfg.Server),
				server.WithRegistry(reg),
				server.WithLogger(e.log),
				server.WithOpener(func(f kstat.Filter) (*kstat.Reader, error) {
					return e.newReader(f, nil)
				}),
			)
			return srv.Run(ctx)
		},
	}
}
