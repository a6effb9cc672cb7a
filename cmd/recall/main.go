// recall: persistent memory for AI-assisted development.
//
// Stores session summaries, per-area knowledge, and facts in a SQLite
// database under the repository root, and serves them back through an
// MCP server or directly from the command line.
//
// Usage:
//
//	recall serve       # Start MCP server (stdio transport)
//	recall init        # Create the store with all schema layers
//	recall search ...  # Query memory without an MCP client
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/recalldev/recall/internal/memory"
	"github.com/recalldev/recall/internal/project"
	"github.com/recalldev/recall/internal/repo"
	recallserver "github.com/recalldev/recall/internal/server"
	"github.com/recalldev/recall/internal/updater"
)

var (
	rootDir      string
	searchLimit  int
	vsearchLimit int
	recentLimit  int
	tokens       int
)

var rootCmd = &cobra.Command{
	Use:     "recall",
	Short:   "Persistent memory store for AI-assisted development",
	Version: recallserver.Version,
	Long: `recall keeps what your AI assistant learns about a repository:
session summaries, durable knowledge per code area, and atomic facts.
Everything lives in .recall/memory.db under the repository root.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, cleanup, err := recallserver.New()
		if err != nil {
			return fmt.Errorf("creating server: %w", err)
		}
		defer cleanup()

		// Version check goes to stderr so it never touches the
		// stdio transport on stdout.
		go func() {
			if res := updater.CheckVersion(recallserver.Version); res.UpdateAvailable {
				fmt.Fprintf(os.Stderr, "Update available: v%s -> v%s (run: recall update)\n",
					res.CurrentVersion, res.LatestVersion)
			}
		}()

		return server.ServeStdio(s)
	},
}

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Update recall to the latest released version",
	RunE: func(cmd *cobra.Command, args []string) error {
		res := updater.CheckVersion(recallserver.Version)
		if !res.UpdateAvailable {
			fmt.Printf("Already at the latest version (v%s).\n", res.CurrentVersion)
			return nil
		}
		fmt.Printf("Updating v%s -> v%s...\n", res.CurrentVersion, res.LatestVersion)
		if err := updater.SelfUpdate(recallserver.Version); err != nil {
			return fmt.Errorf("update failed: %w", err)
		}
		fmt.Printf("Updated to v%s. Restart recall to use it.\n", res.LatestVersion)
		return nil
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the memory store with all schema layers",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := recallserver.OpenStore(resolveRoot())
		if err != nil {
			return fmt.Errorf("opening store: %w", err)
		}
		defer store.Close()

		if err := store.InitMetadata(); err != nil {
			return fmt.Errorf("initializing entity schema: %w", err)
		}
		if err := store.InitVector(); err != nil {
			return fmt.Errorf("initializing vector schema: %w", err)
		}

		root := resolveRoot()
		dataDir := filepath.Dir(memory.StorePath(root))
		if err := project.Touch(dataDir, filepath.Base(root), recallserver.Version, 0); err != nil {
			return fmt.Errorf("writing project metadata: %w", err)
		}

		fmt.Printf("Memory store initialized at %s\n", memory.StorePath(root))
		return nil
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show record counts and embedding coverage",
	RunE: func(cmd *cobra.Command, args []string) error {
		root := resolveRoot()
		if !memory.Exists(root) {
			return nil
		}
		store, err := recallserver.OpenStore(root)
		if err != nil {
			return err
		}
		defer store.Close()

		st, err := store.Stats()
		if err != nil {
			return err
		}
		fmt.Printf("Sessions:  %d\n", st.Sessions)
		fmt.Printf("Knowledge: %d\n", st.Knowledge)
		fmt.Printf("Facts:     %d\n", st.Facts)
		fmt.Printf("Entities:  %d\n", st.Entities)
		if st.VectorEnabled {
			fmt.Printf("Embedded:  %d sessions, %d knowledge, %d facts (%d pending)\n",
				st.EmbeddedSessions, st.EmbeddedKnowledge, st.EmbeddedFacts, st.PendingEmbeddings)
		} else {
			fmt.Println("Vector search: disabled")
		}
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Keyword search across sessions, knowledge, and facts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := resolveRoot()
		if !memory.Exists(root) {
			fmt.Println("No memory store found. Run 'recall init' first.")
			return nil
		}
		store, err := recallserver.OpenStore(root)
		if err != nil {
			return err
		}
		defer store.Close()

		results, err := store.Search(args[0], searchLimit)
		if err != nil {
			return err
		}
		printResults(results)
		return nil
	},
}

var vsearchCmd = &cobra.Command{
	Use:   "vsearch <query>",
	Short: "Semantic search, falls back to keywords without embeddings",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := resolveRoot()
		if !memory.Exists(root) {
			fmt.Println("No memory store found. Run 'recall init' first.")
			return nil
		}
		store, err := recallserver.OpenStore(root)
		if err != nil {
			return err
		}
		defer store.Close()

		results, err := store.VSearch(context.Background(), args[0], vsearchLimit)
		if err != nil {
			return err
		}
		printResults(results)
		return nil
	},
}

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recent sessions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		root := resolveRoot()
		if !memory.Exists(root) {
			fmt.Println("No memory store found. Run 'recall init' first.")
			return nil
		}
		store, err := recallserver.OpenStore(root)
		if err != nil {
			return err
		}
		defer store.Close()

		sessions, err := store.Recent(recentLimit)
		if err != nil {
			return err
		}
		for _, s := range sessions {
			fmt.Printf("[%s] %s\n", s.CreatedAt, s.Summary)
		}
		return nil
	},
}

var contextCmd = &cobra.Command{
	Use:   "context <query>",
	Short: "Assemble a markdown context block for a new session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root := resolveRoot()
		if !memory.Exists(root) {
			return nil
		}
		store, err := recallserver.OpenStore(root)
		if err != nil {
			return err
		}
		defer store.Close()

		out, err := store.Context(args[0], tokens)
		if err != nil {
			return err
		}
		if out != "" {
			fmt.Println(out)
		}
		return nil
	},
}

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Merge overlapping sessions and drop duplicate facts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := recallserver.OpenStore(resolveRoot())
		if err != nil {
			return err
		}
		defer store.Close()

		res, err := store.Consolidate()
		if err != nil {
			return err
		}
		fmt.Printf("Merged %d sessions, removed %d duplicate facts.\n",
			res.SessionsMerged, res.FactsRemoved)
		return nil
	},
}

var embedCmd = &cobra.Command{
	Use:   "embed",
	Short: "Compute embeddings for queued records via Ollama",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := recallserver.OpenStore(resolveRoot())
		if err != nil {
			return err
		}
		defer store.Close()

		done, failed, err := store.Embed(context.Background())
		if err != nil {
			return err
		}
		fmt.Printf("Embedded %d records", done)
		if failed > 0 {
			fmt.Printf(", %d failed", failed)
		}
		fmt.Println(".")
		return nil
	},
}

// resolveRoot returns the explicit --root when given, otherwise the
// repository root containing the working directory.
func resolveRoot() string {
	if rootDir != "" {
		return rootDir
	}
	return repo.FindRootCwd()
}

func printResults(results []memory.SearchResult) {
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}
	for _, r := range results {
		fmt.Printf("(%s #%s) %s\n", r.SourceType, r.SourceID, r.Snippet)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", "", "repository root (default: auto-detected)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 10, "maximum results")
	vsearchCmd.Flags().IntVar(&vsearchLimit, "limit", 5, "maximum results")
	recentCmd.Flags().IntVar(&recentLimit, "limit", 5, "maximum sessions")
	contextCmd.Flags().IntVar(&tokens, "tokens", 1500, "approximate token budget")

	rootCmd.AddCommand(serveCmd, initCmd, statsCmd, searchCmd, vsearchCmd,
		recentCmd, contextCmd, consolidateCmd, embedCmd, updateCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
