package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"github.com/runoshun/git-cafe/internal/app"
	"github.com/runoshun/git-cafe/internal/domain"
	"github.com/runoshun/git-cafe/internal/usecase"
)

// newConfigCommand creates the config command.
func newConfigCommand(c *app.Container) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or initialize configuration",
		Long: `Display the effective configuration after merging all sources.

Configuration is read from the global file ($XDG_CONFIG_HOME/cafe/config.toml)
and then from the data directory ($CAFE_HOME/config.toml); later files
override earlier ones field by field.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.ShowConfigUseCase().Execute(cmd.Context(), usecase.ShowConfigInput{})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(w, "[Loaded from]")
			for _, info := range []domain.ConfigInfo{out.GlobalConfig, out.DataConfig} {
				if info.Exists {
					_, _ = fmt.Fprintf(w, "- %s\n", info.Path)
				} else {
					_, _ = fmt.Fprintf(w, "- %s (not found)\n", info.Path)
				}
			}
			_, _ = fmt.Fprintln(w)

			_, _ = fmt.Fprintln(w, "[Effective Config]")
			return formatEffectiveConfig(w, out.Effective)
		},
	}

	cmd.AddCommand(newConfigInitCommand(c))
	return cmd
}

// formatEffectiveConfig formats the effective config in TOML format.
func formatEffectiveConfig(w io.Writer, cfg *domain.Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// newConfigInitCommand creates the config init subcommand.
func newConfigInitCommand(c *app.Container) *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration template",
		Long: `Write a commented configuration template.

By default the template is written to the data directory; use --global to
write the global config instead. Existing files are never overwritten.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.InitConfigUseCase().Execute(cmd.Context(), usecase.InitConfigInput{
				Config: c.AppConfig,
				Global: global,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Created config file: %s\n", out.Path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&global, "global", "g", false, "Initialize the global config")
	return cmd
}

// newRecipesCommand creates the recipes command.
func newRecipesCommand(c *app.Container) *cobra.Command {
	return &cobra.Command{
		Use:   "recipes",
		Short: "List available recipes",
		Long: `List the recipes defined in <data>/recipes/*.yaml.

Orders placed without --recipe use the recipe with ID "default", or a
built-in single-stage recipe when none is defined.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := c.ListRecipesUseCase().Execute(cmd.Context(), usecase.ListRecipesInput{})
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
			defer func() { _ = tw.Flush() }()
			_, _ = fmt.Fprintln(tw, "ID\tNAME\tPROVIDER\tSTAGES")
			for _, r := range out.Recipes {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
					r.ID, r.DisplayName(), orDash(r.Provider), strings.Join(r.StageIDs(), " -> "))
			}
			return nil
		},
	}
}
