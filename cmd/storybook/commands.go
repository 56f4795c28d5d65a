package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/caseras1/ai-childbook/internal/bootstrap"
	"github.com/caseras1/ai-childbook/internal/infra"
	"github.com/caseras1/ai-childbook/internal/story"
)

type rootOptions struct {
	presets string
	output  string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "storybook",
		Short:         "Generate personalised children's storybook PDFs",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.presets, "presets", "", "preset file (default $PRESETS_PATH or configs/presets.yaml)")
	root.PersistentFlags().StringVar(&opts.output, "output", "", "output directory (default $OUTPUT_DIR or output)")

	root.AddCommand(
		newGenerateCmd(opts),
		newModelsCmd(opts),
		newCheckCmd(opts),
		newPresetsCmd(opts),
	)
	return root
}

// load reads .env and config, then wires the pipeline. Flags win over env.
func (o *rootOptions) load() (*bootstrap.Pipeline, error) {
	_ = godotenv.Load()
	cfg, err := infra.LoadConfig()
	if err != nil {
		return nil, err
	}
	if o.presets != "" {
		cfg.PresetsPath = o.presets
	}
	if o.output != "" {
		cfg.OutputDir = o.output
	}
	logger := infra.NewLogger(cfg.AppEnv)
	return bootstrap.NewPipeline(cfg, &logger)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newGenerateCmd(opts *rootOptions) *cobra.Command {
	var req story.Request
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate one story PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.load()
			if err != nil {
				return err
			}
			ctx, cancel := signalContext(cmd.Context())
			defer cancel()
			doc, err := p.Orchestrator.Generate(ctx, req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved PDF: %s\n", doc.Path)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.StoryKey, "story", "dino", "story key")
	cmd.Flags().StringVar(&req.ChildName, "child-name", "", "child's name shown in the story")
	cmd.Flags().StringVar(&req.StyleKey, "model-key", "", "style preset key (default from presets)")
	cmd.Flags().StringVar(&req.ModelID, "model-id", "", "override the preset model id")
	_ = cmd.MarkFlagRequired("child-name")
	return cmd
}

func newModelsCmd(opts *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the provider's platform models",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.load()
			if err != nil {
				return err
			}
			models, err := p.Client.ListPlatformModels(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, m := range models {
				fmt.Fprintf(out, "%s\t%s\n", m.ID, m.Name)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "maximum number of models")
	return cmd
}

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the provider credential",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.load()
			if err != nil {
				return err
			}
			if err := p.Client.CheckCredential(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Credential OK (%s)\n", p.Client.BaseURL())
			return nil
		},
	}
}

func newPresetsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List story templates and style presets",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := opts.load()
			if err != nil {
				return err
			}
			printPresets(cmd.OutOrStdout(), p.Catalog)
			return nil
		},
	}
}

func printPresets(w io.Writer, c *story.Catalog) {
	fmt.Fprintln(w, "Stories:")
	for _, s := range c.Stories() {
		fmt.Fprintf(w, "  %-12s %s (%d pages)\n", s.Key, s.Title, len(s.Pages))
	}
	fmt.Fprintln(w, "Styles:")
	for _, s := range c.Styles() {
		fmt.Fprintf(w, "  %-12s %s [%s]\n", s.Key, s.Title, s.ModelID)
	}
}
