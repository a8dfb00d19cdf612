package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"trainingops/internal/config"
	"trainingops/internal/services"
)

func newEndpointsCmd(a *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "endpoints",
		Short: "Maintain the api_endpoints catalog",
	}

	seed := &cobra.Command{
		Use:   "seed <catalog|file.yaml>...",
		Short: "Upsert endpoint catalogs, built-in by name or from YAML files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.backend(config.ServiceRole)
			if err != nil {
				return err
			}
			svc := services.NewEndpointService(client)
			for _, name := range args {
				catalog, err := services.LoadCatalog(name)
				if err != nil {
					return err
				}
				n, err := svc.Seed(cmd.Context(), catalog)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "✅ %s: %d endpoints seeded\n", catalog.Service, n)
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <service>",
		Short: "Delete every endpoint of a service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.backend(config.ServiceRole)
			if err != nil {
				return err
			}
			n, err := services.NewEndpointService(client).Remove(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "🗑️  %s: %d endpoints removed\n", args[0], n)
			return nil
		},
	}

	var service string
	list := &cobra.Command{
		Use:   "list",
		Short: "List catalog rows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.backend(config.AnonRole)
			if err != nil {
				return err
			}
			rows, err := services.NewEndpointService(client).List(cmd.Context(), service)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SERVICE\tRESOURCE\tACTION\tMETHOD\tPATH")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Service, r.Resource, r.Action, r.Method, r.Path)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&service, "service", "", "only this service")

	builtins := &cobra.Command{
		Use:   "builtins",
		Short: "List the catalogs compiled into trainctl",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range services.BuiltinCatalogs() {
				fmt.Fprintln(a.out, name)
			}
			return nil
		},
	}

	cmd.AddCommand(seed, remove, list, builtins)
	return cmd
}

func newScriptsCmd(a *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scripts",
		Short: "Store, list and run scripts held in the scripts table",
	}

	newService := func(role config.KeyRole) (*services.ScriptService, error) {
		client, err := a.backend(role)
		if err != nil {
			return nil, err
		}
		svc := services.NewScriptService(client, a.cfg.RequestTimeout)
		svc.SetLogger(a.logger(logrus.InfoLevel))
		return svc, nil
	}

	var listCategory string
	list := &cobra.Command{
		Use:   "list",
		Short: "List active scripts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(config.AnonRole)
			if err != nil {
				return err
			}
			scripts, err := svc.List(cmd.Context(), listCategory)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CATEGORY\tNAME\tLANGUAGE\tDESCRIPTION")
			for _, s := range scripts {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Category, s.Name, s.Language, s.Description)
			}
			return tw.Flush()
		},
	}
	list.Flags().StringVar(&listCategory, "category", "", "only this category")

	var (
		in     services.ScriptInput
		params string
	)
	store := &cobra.Command{
		Use:   "store <file>",
		Short: "Upload a script file, replacing any script of the same name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Path = args[0]
			if params != "" {
				raw, err := readParams(params)
				if err != nil {
					return err
				}
				in.Parameters = raw
			}
			svc, err := newService(config.ServiceRole)
			if err != nil {
				return err
			}
			stored, err := svc.Store(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ Stored %s/%s (%s)\n", stored.Category, stored.Name, stored.Language)
			return nil
		},
	}
	store.Flags().StringVar(&in.Name, "name", "", "script name (default: file name without extension)")
	store.Flags().StringVar(&in.Category, "category", "", "category (default: general)")
	store.Flags().StringVar(&in.Language, "language", "", "python, bash or node (default: from the extension)")
	store.Flags().StringVar(&in.Description, "description", "", "one-line description")
	store.Flags().StringVar(&params, "params", "", "parameter schema as JSON, or @file.json")

	var runCategory string
	run := &cobra.Command{
		Use:   "run <name> [-- args...]",
		Short: "Fetch a script and run it with the local interpreter",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(config.AnonRole)
			if err != nil {
				return err
			}
			return svc.Run(cmd.Context(), args[0], runCategory, args[1:], a.out, a.errOut)
		},
	}
	run.Flags().StringVar(&runCategory, "category", "", "category of the script, when the name is ambiguous")

	cmd.AddCommand(list, store, run)
	return cmd
}

// readParams accepts inline JSON or @path
func readParams(v string) ([]byte, error) {
	data := []byte(v)
	if strings.HasPrefix(v, "@") {
		var err error
		if data, err = os.ReadFile(v[1:]); err != nil {
			return nil, err
		}
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("--params is not valid JSON")
	}
	return data, nil
}

func newGuidelinesCmd(a *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "guidelines",
		Short: "Seed and list system_training guidelines",
	}

	var category, name string
	seed := &cobra.Command{
		Use:   "seed <context.json>",
		Short: "Upsert a guideline context file as one system_training row",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.backend(config.ServiceRole)
			if err != nil {
				return err
			}
			row, err := services.NewGuidelineService(client).SeedFromFile(cmd.Context(), args[0], category, name)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ Seeded guideline %s/%s\n", row.Category, row.Name)
			return nil
		},
	}
	seed.Flags().StringVar(&category, "category", "system", "guideline category")
	seed.Flags().StringVar(&name, "name", "default", "guideline name")

	var listCategory string
	list := &cobra.Command{
		Use:   "list",
		Short: "List guidelines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := a.backend(config.AnonRole)
			if err != nil {
				return err
			}
			rows, err := services.NewGuidelineService(client).List(cmd.Context(), listCategory)
			if err != nil {
				return err
			}
			for _, r := range rows {
				state := "active"
				if !r.IsActive {
					state = "inactive"
				}
				fmt.Fprintf(a.out, "%s/%s (%s, %d bytes)\n", r.Category, r.Name, state, len(r.Guidelines))
			}
			return nil
		},
	}
	list.Flags().StringVar(&listCategory, "category", "", "only this category")

	cmd.AddCommand(seed, list)
	return cmd
}

func newConfigCmd(a *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write system_config keys",
	}

	newService := func(role config.KeyRole) (*services.ConfigService, error) {
		client, err := a.backend(role)
		if err != nil {
			return nil, err
		}
		return services.NewConfigService(client, time.Minute, nil), nil
	}

	get := &cobra.Command{
		Use:   "get <key>",
		Short: "Print one value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(config.AnonRole)
			if err != nil {
				return err
			}
			value, ok, err := svc.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("config key %q not set", args[0])
			}
			fmt.Fprintln(a.out, value)
			return nil
		},
	}

	var description string
	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Create or replace a value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(config.ServiceRole)
			if err != nil {
				return err
			}
			if err := svc.Set(cmd.Context(), args[0], args[1], description); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "✅ %s = %s\n", args[0], args[1])
			return nil
		},
	}
	set.Flags().StringVar(&description, "description", "", "what the key controls")

	list := &cobra.Command{
		Use:   "list",
		Short: "Print every key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(config.AnonRole)
			if err != nil {
				return err
			}
			rows, err := svc.List(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Key, r.Value, r.Description)
			}
			return tw.Flush()
		},
	}

	del := &cobra.Command{
		Use:   "delete <key>",
		Short: "Remove a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := newService(config.ServiceRole)
			if err != nil {
				return err
			}
			ok, err := svc.Delete(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintf(a.out, "⚠️  %s was not set\n", args[0])
				return nil
			}
			fmt.Fprintf(a.out, "🗑️  %s deleted\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(get, set, list, del)
	return cmd
}
