package main

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/CTAG07/vomarkov/pkg/corpus"
)

func newCorpusCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "corpus",
		Short: "Manage stored training corpora",
	}
	cmd.AddCommand(
		newCorpusCreateCmd(a),
		newCorpusListCmd(a),
		newCorpusRemoveCmd(a),
		newCorpusTrainCmd(a),
		newCorpusExportCmd(a),
		newCorpusImportCmd(a),
		newCorpusStatsCmd(a),
		newCorpusPruneCmd(a),
	)
	return cmd
}

func newCorpusCreateCmd(a *app) *cobra.Command {
	var order int
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create an empty corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info := corpus.Info{Name: args[0], MaxOrder: order}
			if err := a.store.InsertCorpus(cmd.Context(), info); err != nil {
				return fmt.Errorf("failed to create corpus '%s': %w", info.Name, err)
			}
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "created corpus %s (max order %d)\n", info.Name, info.MaxOrder)
			return err
		},
	}
	cmd.Flags().IntVar(&order, "order", 2, "maximum order of chains built from the corpus")
	return cmd
}

func newCorpusListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored corpora",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.store.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "NAME\tMAX ORDER")
			for _, info := range stats.Corpora {
				_, _ = fmt.Fprintf(tw, "%s\t%d\n", info.Name, info.MaxOrder)
			}
			return tw.Flush()
		},
	}
}

func newCorpusRemoveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove a corpus and its tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.store.GetCorpusInfo(cmd.Context(), args[0])
			if err != nil {
				return corpusLookupError(args[0], err)
			}
			return a.store.RemoveCorpus(cmd.Context(), info)
		},
	}
}

func newCorpusTrainCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "train <name> [file|-]",
		Short: "Append text from a file or stdin to a corpus",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.store.GetCorpusInfo(cmd.Context(), args[0])
			if err != nil {
				return corpusLookupError(args[0], err)
			}
			path := "-"
			if len(args) == 2 {
				path = args[1]
			}
			r, closeFn, err := openInput(cmd, path)
			if err != nil {
				return err
			}
			defer closeFn()
			return a.store.Append(cmd.Context(), info, r)
		},
	}
}

func newCorpusExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <name> <file|->",
		Short: "Export a corpus as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.store.GetCorpusInfo(cmd.Context(), args[0])
			if err != nil {
				return corpusLookupError(args[0], err)
			}
			if args[1] == "-" {
				return a.store.ExportCorpus(cmd.Context(), info, cmd.OutOrStdout())
			}
			var buf bytes.Buffer
			if err = a.store.ExportCorpus(cmd.Context(), info, &buf); err != nil {
				return err
			}
			if err = atomic.WriteFile(args[1], &buf); err != nil {
				return fmt.Errorf("failed to write export file: %w", err)
			}
			return nil
		},
	}
}

func newCorpusImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file|->",
		Short: "Import a JSON corpus, appending to an existing corpus of the same name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r, closeFn, err := openInput(cmd, args[0])
			if err != nil {
				return err
			}
			defer closeFn()
			return a.store.ImportCorpus(cmd.Context(), r)
		},
	}
}

func newCorpusStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show token statistics for every corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.store.GetStats(cmd.Context())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(tw, "NAME\tMAX ORDER\tTOKENS\tDISTINCT\tSENTENCES")
			for _, info := range stats.Corpora {
				cs := stats.Stats[info.Id]
				_, _ = fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\n", info.Name, info.MaxOrder, cs.Tokens, cs.DistinctTokens, cs.Sentences)
			}
			if err = tw.Flush(); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "vocabulary size: %d\n", stats.VocabSize)
			return err
		},
	}
}

func newCorpusPruneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Remove vocabulary entries no corpus uses",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			removed, err := a.store.PruneVocabulary(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d vocabulary entries\n", removed)
			return err
		},
	}
}

// openInput opens path for reading, with "-" meaning the command's stdin.
func openInput(cmd *cobra.Command, path string) (io.Reader, func(), error) {
	if path == "-" {
		return cmd.InOrStdin(), func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}
