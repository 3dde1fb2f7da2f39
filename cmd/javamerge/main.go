// Package main provides the javamerge CLI: structured three-way merging of
// Java source files, usable standalone, as a Git merge driver, over Git
// refs directly, or across a whole directory tree in one batch.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"javamerge/config"
	"javamerge/gitsrc"
	"javamerge/historylog"
	"javamerge/javasrc"
	"javamerge/merge"
)

// Version is the current javamerge CLI version.
var Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "javamerge",
	Short:   "Structured three-way merging of Java source files",
	Long:    `javamerge is a local CLI that performs AST-aware three-way merges of Java source files, using a tree-matching and PCS-based merge algorithm rather than line-based diff3.`,
	Version: Version,
}

// Command groups for organized help output.
const (
	groupCore     = "core"
	groupAdvanced = "advanced"
)

var (
	configPath string
	outputPath string
	inPlace    bool
)

var mergeCmd = &cobra.Command{
	Use:   "merge <base-file> <left-file> <right-file>",
	Short: "Perform a structured 3-way merge of three file revisions",
	Long: `Perform a structured three-way merge of a Java file's base, left (ours), and
right (theirs) revisions.

Positional arguments follow Git's merge-driver convention (%O %A %B), so
javamerge can be registered directly as a Git merge driver:

  javamerge merge --in-place %O %A %B

Examples:
  javamerge merge Base.java Left.java Right.java
  javamerge merge --output Merged.java Base.java Left.java Right.java`,
	Args: cobra.ExactArgs(3),
	RunE: runMerge,
}

var gitCmd = &cobra.Command{
	Use:   "git <path>",
	Short: "Merge one path across three Git revisions",
	Long: `Resolve base/left/right refs in a Git repository and merge one path across
all three, without needing the three revisions checked out as files.

Examples:
  javamerge git --base main --left feature-a --right feature-b src/App.java
  javamerge git --repo ../other-repo --base HEAD~5 --left HEAD src/App.java`,
	Args: cobra.ExactArgs(1),
	RunE: runGit,
}

var batchCmd = &cobra.Command{
	Use:   "batch <repo>",
	Short: "Merge every changed Java file across two branches in one pass",
	Long: `Merge every Java file that --left modified relative to BASE in a Git
repository, using the merge base of --left/--right as BASE unless --base
overrides it, and print each file's clean/CONFLICT status. Files changed
only on --right, and files added on --left, are not merged. No merged file
is written. Files matched by skiprules (the repository's
.gitignore/.javamergeignore, plus any config-supplied patterns) are skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Query the merge-run audit log",
}

var historyRecentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recent merge runs",
	RunE:  runHistoryRecent,
}

var historyShowCmd = &cobra.Command{
	Use:   "show <path>",
	Short: "List recorded runs for a single file path",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistoryShow,
}

var (
	gitRepo     string
	gitBaseRef  string
	gitLeftRef  string
	gitRightRef string

	batchBaseRef  string
	batchLeftRef  string
	batchRightRef string

	historyLimit int
)

func init() {
	mergeCmd.Flags().StringVar(&outputPath, "output", "", "Write the merged result here instead of stdout")
	mergeCmd.Flags().BoolVar(&inPlace, "in-place", false, "Write the merged result back into the left-file argument (Git merge-driver mode)")
	mergeCmd.Flags().StringVar(&configPath, "config", "javamerge.yaml", "Path to javamerge.yaml")

	gitCmd.Flags().StringVar(&gitRepo, "repo", ".", "Path to the Git repository")
	gitCmd.Flags().StringVar(&gitBaseRef, "base", "", "Base ref (defaults to the merge base of --left/--right)")
	gitCmd.Flags().StringVar(&gitLeftRef, "left", "HEAD", "Left (ours) ref")
	gitCmd.Flags().StringVar(&gitRightRef, "right", "", "Right (theirs) ref")
	gitCmd.Flags().StringVar(&outputPath, "output", "", "Write the merged result here instead of stdout")
	gitCmd.Flags().StringVar(&configPath, "config", "javamerge.yaml", "Path to javamerge.yaml")
	gitCmd.MarkFlagRequired("right")

	batchCmd.Flags().StringVar(&batchBaseRef, "base", "", "Base ref (defaults to the merge base of --left/--right)")
	batchCmd.Flags().StringVar(&batchLeftRef, "left", "HEAD", "Left (ours) ref")
	batchCmd.Flags().StringVar(&batchRightRef, "right", "", "Right (theirs) ref")
	batchCmd.Flags().StringVar(&configPath, "config", "javamerge.yaml", "Path to javamerge.yaml")
	batchCmd.MarkFlagRequired("right")

	historyRecentCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")
	historyShowCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "Number of runs to show")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupCore, Title: "Core:"},
		&cobra.Group{ID: groupAdvanced, Title: "Advanced:"},
	)

	mergeCmd.GroupID = groupCore
	gitCmd.GroupID = groupCore
	batchCmd.GroupID = groupAdvanced
	historyCmd.GroupID = groupAdvanced

	historyCmd.AddCommand(historyRecentCmd)
	historyCmd.AddCommand(historyShowCmd)

	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(gitCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(historyCmd)
}

func loadConfig() *config.Config {
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "javamerge: %v\n", err)
		return config.Default()
	}
	return cfg
}

func openHistory(cfg *config.Config) *historylog.Log {
	if !cfg.History.Enabled {
		return nil
	}
	log, err := historylog.Open(cfg.History.Path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "javamerge: opening history log: %v\n", err)
		return nil
	}
	return log
}

func runMerge(cmd *cobra.Command, args []string) error {
	baseFile, leftFile, rightFile := args[0], args[1], args[2]

	baseContent, err := os.ReadFile(baseFile)
	if err != nil {
		return fmt.Errorf("reading base file: %w", err)
	}
	leftContent, err := os.ReadFile(leftFile)
	if err != nil {
		return fmt.Errorf("reading left file: %w", err)
	}
	rightContent, err := os.ReadFile(rightFile)
	if err != nil {
		return fmt.Errorf("reading right file: %w", err)
	}

	cfg := loadConfig()
	result, err := mergeSources(cfg, baseContent, leftContent, rightContent)
	if err != nil {
		return err
	}

	if log := openHistory(cfg); log != nil {
		defer log.Close()
		recordRun(log, cfg, leftFile, "BASE", "LEFT", "RIGHT", result)
	}

	dest := outputPath
	if inPlace {
		dest = leftFile
	}
	if err := writeResult(dest, result.Printed); err != nil {
		return err
	}

	os.Exit(merge.ExitCode(result, nil))
	return nil
}

func runGit(cmd *cobra.Command, args []string) error {
	path := args[0]

	repo, err := gitsrc.Open(gitRepo)
	if err != nil {
		return err
	}

	baseRef, leftRef, rightRef, err := resolveBaseRef(repo, gitBaseRef, gitLeftRef, gitRightRef)
	if err != nil {
		return err
	}

	revs, err := repo.LoadRevisions(baseRef, leftRef, rightRef, path)
	if err != nil {
		return err
	}

	cfg := loadConfig()
	result, err := mergeSources(cfg, revs.Base, revs.Left, revs.Right)
	if err != nil {
		return err
	}

	if log := openHistory(cfg); log != nil {
		defer log.Close()
		recordRun(log, cfg, path, baseRef, leftRef, rightRef, result)
	}

	if err := writeResult(outputPath, result.Printed); err != nil {
		return err
	}

	os.Exit(merge.ExitCode(result, nil))
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	repoPath := args[0]

	repo, err := gitsrc.Open(repoPath)
	if err != nil {
		return err
	}

	baseRef, leftRef, rightRef, err := resolveBaseRef(repo, batchBaseRef, batchLeftRef, batchRightRef)
	if err != nil {
		return err
	}

	baseCommit, err := repo.ResolveRef(baseRef)
	if err != nil {
		return err
	}
	leftCommit, err := repo.ResolveRef(leftRef)
	if err != nil {
		return err
	}

	_, modified, _, err := repo.DiffFiles(baseCommit, leftCommit)
	if err != nil {
		return err
	}

	cfg := loadConfig()
	skip, err := cfg.SkipMatcher(repoPath)
	if err != nil {
		return err
	}

	log := openHistory(cfg)
	if log != nil {
		defer log.Close()
	}

	conflictCount := 0
	mergedCount := 0
	for _, path := range modified {
		if skip.MatchPath(path) {
			continue
		}

		revs, err := repo.LoadRevisions(baseRef, leftRef, rightRef, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "javamerge: %s: %v\n", path, err)
			continue
		}

		result, err := mergeSources(cfg, revs.Base, revs.Left, revs.Right)
		if err != nil {
			fmt.Fprintf(os.Stderr, "javamerge: %s: %v\n", path, err)
			continue
		}
		mergedCount++

		if log != nil {
			recordRun(log, cfg, path, baseRef, leftRef, rightRef, result)
		}

		status := "clean"
		if result.HasConflict {
			conflictCount++
			status = fmt.Sprintf("CONFLICT (%d content, %d structural)", result.ContentConflicts, result.StructuralConflicts)
		}
		fmt.Printf("%s: %s\n", path, status)
	}

	fmt.Printf("\n%d file(s) merged, %d with conflicts\n", mergedCount, conflictCount)
	if conflictCount > 0 {
		os.Exit(1)
	}
	return nil
}

func runHistoryRecent(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log, err := historylog.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer log.Close()

	runs, err := log.Recent(historyLimit)
	if err != nil {
		return err
	}
	printRuns(runs)
	return nil
}

func runHistoryShow(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	log, err := historylog.Open(cfg.History.Path)
	if err != nil {
		return err
	}
	defer log.Close()

	runs, err := log.ForPath(args[0], historyLimit)
	if err != nil {
		return err
	}
	printRuns(runs)
	return nil
}

func printRuns(runs []historylog.Run) {
	for _, r := range runs {
		status := "clean"
		if r.HasConflict {
			status = "conflict"
		}
		fmt.Printf("%s  %s  %s  %s vs %s -> %s  [%s]\n",
			r.StartedAt.Format(time.RFC3339), r.ID, r.Path, r.LeftRef, r.RightRef, r.BaseRef, status)
	}
}

// resolveBaseRef fills in baseRef from the left/right merge base when the
// caller didn't pin one explicitly.
func resolveBaseRef(repo *gitsrc.Repository, baseRef, leftRef, rightRef string) (base, left, right string, err error) {
	if baseRef != "" {
		return baseRef, leftRef, rightRef, nil
	}

	leftCommit, err := repo.ResolveRef(leftRef)
	if err != nil {
		return "", "", "", err
	}
	rightCommit, err := repo.ResolveRef(rightRef)
	if err != nil {
		return "", "", "", err
	}
	mergeBase, err := repo.MergeBase(leftCommit, rightCommit)
	if err != nil {
		return "", "", "", err
	}
	return mergeBase.Hash.String(), leftRef, rightRef, nil
}

func mergeSources(cfg *config.Config, base, left, right []byte) (*merge.Result, error) {
	parser := javasrc.NewParser()
	ctx := context.Background()

	baseTree, err := parser.Parse(ctx, base)
	if err != nil {
		return nil, fmt.Errorf("parsing base: %w", err)
	}
	leftTree, err := parser.Parse(ctx, left)
	if err != nil {
		return nil, fmt.Errorf("parsing left: %w", err)
	}
	rightTree, err := parser.Parse(ctx, right)
	if err != nil {
		return nil, fmt.Errorf("parsing right: %w", err)
	}

	cr := cfg.ContentResolver()
	handlers := cfg.StructuralHandlerFuncs()
	result, err := merge.MergeWithHandlers(baseTree, leftTree, rightTree, cr, handlers)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func recordRun(log *historylog.Log, cfg *config.Config, path, baseRef, leftRef, rightRef string, result *merge.Result) {
	_, err := log.Record(historylog.Run{
		Path:                path,
		StartedAt:           time.Now(),
		BaseRef:             baseRef,
		LeftRef:             leftRef,
		RightRef:            rightRef,
		HasConflict:         result.HasConflict,
		ContentConflicts:    result.ContentConflicts,
		StructuralConflicts: result.StructuralConflicts,
		ExitCode:            merge.ExitCode(result, nil),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "javamerge: recording history: %v\n", err)
	}
}

func writeResult(path, content string) error {
	if path == "" {
		colorizeConflictMarkers(os.Stdout, content)
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return os.WriteFile(path, []byte(content), 0644)
}

// colorizeConflictMarkers writes content to out, wrapping conflict markers
// in ANSI red when out is a terminal. Gated on isatty rather than applied
// unconditionally since merged output is often piped or redirected to a
// file.
func colorizeConflictMarkers(out *os.File, content string) {
	const (
		colorReset = "\033[0m"
		colorRed   = "\033[31m"
	)

	if !isatty.IsTerminal(out.Fd()) {
		fmt.Fprint(out, content)
		return
	}

	for _, line := range splitLinesKeepEnds(content) {
		if isConflictMarkerLine(line) {
			fmt.Fprint(out, colorRed, line, colorReset)
		} else {
			fmt.Fprint(out, line)
		}
	}
}

func isConflictMarkerLine(line string) bool {
	for _, marker := range []string{"<<<<<<<", "=======", ">>>>>>>"} {
		if len(line) >= len(marker) && line[:len(marker)] == marker {
			return true
		}
	}
	return false
}

func splitLinesKeepEnds(s string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			lines = append(lines, s[start:i+1])
			start = i + 1
		}
	}
	if start < len(s) {
		lines = append(lines, s[start:])
	}
	return lines
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}
