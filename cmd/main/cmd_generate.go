package main

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/CTAG07/vomarkov/pkg/markov"
	"github.com/CTAG07/vomarkov/pkg/text"
)

type generateFlags struct {
	seedText string
	length   int
	order    int
	randSeed uint64
	count    int
}

func newGenerateCmd(a *app) *cobra.Command {
	var f generateFlags
	cmd := &cobra.Command{
		Use:   "generate <corpus>",
		Short: "Generate text from a chain built on a corpus",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.generate(cmd, args[0], f)
		},
	}
	cmd.Flags().StringVar(&f.seedText, "seed-text", "", "text the output starts with")
	cmd.Flags().IntVar(&f.length, "length", 0, "maximum tokens per output, seed included (default from config)")
	cmd.Flags().IntVar(&f.order, "order", -1, "history window ceiling (default the corpus max order)")
	cmd.Flags().Uint64Var(&f.randSeed, "rand-seed", 0, "seed for reproducible output (default from config, 0 for random)")
	cmd.Flags().IntVar(&f.count, "count", 1, "number of outputs to generate")
	return cmd
}

func (a *app) generate(cmd *cobra.Command, name string, f generateFlags) error {
	ctx := cmd.Context()
	info, err := a.store.GetCorpusInfo(ctx, name)
	if err != nil {
		return corpusLookupError(name, err)
	}

	randSeed := a.config.RandSeed
	if cmd.Flags().Changed("rand-seed") {
		randSeed = f.randSeed
	}
	opts := []markov.Option{markov.WithLogger(a.logger)}
	if randSeed != 0 {
		opts = append(opts, markov.WithSource(markov.NewSeededSource(randSeed)))
	}

	chain, err := a.store.Build(ctx, info, opts...)
	if err != nil {
		return err
	}

	length := f.length
	if length <= 0 {
		length = a.config.DefaultMaxLength
	}
	genOpts := []text.GenerateOption{text.WithMaxLength(length)}
	if f.order >= 0 {
		genOpts = append(genOpts, text.WithOrder(f.order))
	}

	writer := text.NewWriter(chain, a.store.Tokenizer())
	writer.SetLogger(a.logger)
	for i := 0; i < f.count; i++ {
		output, err := writer.GenerateFromString(ctx, f.seedText, genOpts...)
		if err != nil {
			return err
		}
		if _, err = fmt.Fprintln(cmd.OutOrStdout(), output); err != nil {
			return err
		}
	}
	return nil
}

func corpusLookupError(name string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("corpus '%s' does not exist", name)
	}
	return fmt.Errorf("failed to load corpus '%s': %w", name, err)
}
