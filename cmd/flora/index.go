package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tailored-agentic-units/flora/knowledge"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the recommendation index",
}

var indexFlags = knowledge.DefaultConfig()

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Embed the corpus into a SQLite index file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if indexFlags.Path == "" {
			return fmt.Errorf("--out is required")
		}
		embedder, err := knowledge.NewEmbedder(&indexFlags)
		if err != nil {
			return err
		}
		corpus, err := indexFlags.Corpus()
		if err != nil {
			return err
		}

		idx, err := knowledge.Build(cmd.Context(), indexFlags.Path, corpus, indexFlags.Splitter(), embedder)
		if err != nil {
			return err
		}
		defer idx.Close()

		n, err := idx.Len(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d chunks with %s into %s\n", n, embedder.Name(), indexFlags.Path)
		return nil
	},
}

func init() {
	f := indexBuildCmd.Flags()
	f.StringVar(&indexFlags.Path, "out", "", "index file to write")
	f.StringVar(&indexFlags.CorpusPath, "corpus", "", "corpus text file; empty uses the built-in corpus")
	f.StringVar(&indexFlags.Embedder, "embedder", indexFlags.Embedder, "embedder backend (hash, openai)")
	f.StringVar(&indexFlags.Model, "model", "", "embedding model for the openai backend")
	f.IntVar(&indexFlags.ChunkSize, "chunk-size", indexFlags.ChunkSize, "chunk size in characters")
	f.IntVar(&indexFlags.Overlap, "overlap", indexFlags.Overlap, "chunk overlap in characters")

	indexCmd.AddCommand(indexBuildCmd)
}
