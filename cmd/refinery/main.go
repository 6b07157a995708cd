// Command refinery runs theory scripts against a small LCF-style kernel:
// declare constants, assert axioms, register extraction modes, and let
// concrete_definition / extract_equations synthesize named constants and
// code equations from refinement facts.
package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seanpm2001/mirror-afp-2016-1/cmd/refinery/repl"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/config"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/session"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/theorydb"
	"github.com/seanpm2001/mirror-afp-2016-1/internal/watch"
)

var (
	verbose bool
	cfgPath string

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "refinery",
	Short: "Pattern-driven definition extraction over a small proof kernel",
	Long: `refinery executes theory scripts: constant declarations, axioms,
extraction modes, concrete_definition and extract_equations commands.
Synthesized constants and code equations are registered as qualified
facts.

Run without arguments to start the interactive session.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
		}
		// Interactive mode owns the terminal; stderr logging would
		// corrupt it.
		if cmd.Name() == "repl" || cmd.Name() == "refinery" {
			logger = zap.NewNop()
			return nil
		}
		logger, err = cfg.Logger()
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRepl(cmd, args)
	},
}

var (
	saveDB string

	runCmd = &cobra.Command{
		Use:   "run FILE...",
		Short: "Execute theory scripts",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runScripts,
	}
)

var (
	replResume bool

	replCmd = &cobra.Command{
		Use:   "repl",
		Short: "Interactive theory session",
		Args:  cobra.NoArgs,
		RunE:  runRepl,
	}
)

var showCmd = &cobra.Command{
	Use:   "show [NAME]",
	Short: "Inspect the saved theory database",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runShow,
}

var modesCmd = &cobra.Command{
	Use:   "modes [FILE...]",
	Short: "Run scripts and list the registered extraction modes",
	RunE:  runModes,
}

var (
	traceQuery      string
	traceUnresolved bool

	traceCmd = &cobra.Command{
		Use:   "trace FILE...",
		Short: "Run scripts and query the audit trail",
		Long: `trace executes the given scripts, then prints the audit facts the run
produced. With --query a single datalog goal is evaluated instead, e.g.

  refinery trace impl.thy --query "defined(C, /impl, P)"

With --unresolved only constants whose code equations still carry open
side conditions are listed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: runTrace,
	}
)

func runScripts(cmd *cobra.Command, args []string) error {
	var db *theorydb.DB
	if saveDB != "" {
		var err error
		db, err = theorydb.Open(saveDB)
		if err != nil {
			return err
		}
		defer db.Close()
	}

	sess, err := newSession(db)
	if err != nil {
		return err
	}

	outs, runErr := sess.RunFiles(cmd.Context(), args...)
	printOutcomes(outs)
	if runErr != nil {
		return runErr
	}

	if db != nil {
		if err := sess.Save(cmd.Context()); err != nil {
			return err
		}
		fmt.Printf("saved theory to %s\n", db.Path())
	}
	return nil
}

func runRepl(cmd *cobra.Command, args []string) error {
	db, err := theorydb.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := session.Options{Logger: logger, DB: db}
	if replResume {
		thy, err := db.Restore(cmd.Context())
		if err != nil {
			return fmt.Errorf("resume from %s: %w", db.Path(), err)
		}
		opts.Theory = thy
	}
	opts.Patterns, err = startupPatterns()
	if err != nil {
		return err
	}

	sess, err := session.New(opts)
	if err != nil {
		return err
	}

	if cfg.Patterns.Watch && cfg.Patterns.File != "" {
		w, err := watch.New(cfg.Patterns.File, 0, logger, func(lines []string) {
			sess.ReplacePatterns(lines)
		})
		if err != nil {
			logger.Warn("pattern watcher disabled", zap.Error(err))
		} else {
			w.Start(cmd.Context())
			defer w.Stop()
		}
	}

	return repl.Run(sess, db.Path())
}

func runShow(cmd *cobra.Command, args []string) error {
	db, err := theorydb.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer db.Close()
	ctx := cmd.Context()

	if len(args) == 0 {
		consts, err := db.Constants(ctx)
		if err != nil {
			return err
		}
		qnames, err := db.QNames(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d constant(s), %d fact group(s)\n", db.Path(), len(consts), len(qnames))
		for _, c := range consts {
			fmt.Printf("  %s :: %s\n", c.Name, c.Type)
		}
		for _, q := range qnames {
			fmt.Printf("  %s\n", q)
		}
		return nil
	}

	name := args[0]
	facts, err := db.FactsByName(ctx, name)
	if err != nil {
		return err
	}
	if len(facts) > 0 {
		for _, f := range facts {
			fmt.Println(formatFact(f))
		}
		return nil
	}

	consts, err := db.Constants(ctx)
	if err != nil {
		return err
	}
	for _, c := range consts {
		if c.Name == name {
			fmt.Printf("%s :: %s\n", c.Name, c.Type)
			return nil
		}
	}
	return fmt.Errorf("nothing registered under %q in %s", name, db.Path())
}

func runModes(cmd *cobra.Command, args []string) error {
	sess, err := newSession(nil)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		if _, err := sess.RunFiles(cmd.Context(), args...); err != nil {
			return err
		}
	}

	modes := sess.Theory().Modes()
	names := modes.Names()
	if len(names) == 0 {
		fmt.Println("no extraction modes registered")
		return nil
	}
	for _, name := range names {
		rs, _ := modes.Lookup(name)
		fmt.Printf("%s: %d rule(s)\n", name, rs.Len())
		for _, line := range rs.Describe() {
			fmt.Printf("  %s\n", line)
		}
	}
	return nil
}

func runTrace(cmd *cobra.Command, args []string) error {
	sess, err := newSession(nil)
	if err != nil {
		return err
	}
	if _, err := sess.RunFiles(cmd.Context(), args...); err != nil {
		return err
	}

	rec := sess.Recorder()
	ctx := cmd.Context()

	switch {
	case traceQuery != "":
		rows, err := rec.Query(ctx, traceQuery)
		if err != nil {
			return err
		}
		for _, row := range rows {
			fmt.Println(formatRow(row))
		}
		fmt.Printf("%d row(s)\n", len(rows))
	case traceUnresolved:
		names, err := rec.Unresolved(ctx)
		if err != nil {
			return err
		}
		if len(names) == 0 {
			fmt.Println("all code equations resolved")
			return nil
		}
		for _, name := range names {
			fmt.Println(name)
		}
	default:
		for _, pred := range rec.Predicates() {
			facts, err := rec.Facts(pred)
			if err != nil {
				return err
			}
			for _, f := range facts {
				fmt.Println(f)
			}
		}
	}
	return nil
}

// newSession builds a batch session from the loaded config. The database is
// optional; run only opens one when --save asks for persistence.
func newSession(db *theorydb.DB) (*session.Session, error) {
	patterns, err := startupPatterns()
	if err != nil {
		return nil, err
	}
	return session.New(session.Options{
		Logger:   logger,
		DB:       db,
		Patterns: patterns,
	})
}

// startupPatterns merges the configured default conclusion patterns with the
// pattern file, when one is configured and exists.
func startupPatterns() ([]string, error) {
	patterns := append([]string(nil), cfg.Patterns.Defaults...)
	if cfg.Patterns.File == "" {
		return patterns, nil
	}
	lines, err := watch.ReadPatternFile(cfg.Patterns.File)
	if err != nil {
		if os.IsNotExist(err) {
			return patterns, nil
		}
		return nil, fmt.Errorf("pattern file: %w", err)
	}
	return append(patterns, lines...), nil
}

func printOutcomes(outs []*session.Outcome) {
	for _, out := range outs {
		for _, line := range out.Output {
			fmt.Println(line)
		}
		for _, w := range out.Warnings {
			fmt.Printf("warning [%s]: %s\n", w.Kind, w.Detail)
		}
	}
}

func formatFact(f theorydb.Fact) string {
	tags := ""
	if len(f.Tags) > 0 {
		tags = " (" + strings.Join(f.Tags, ", ") + ")"
	}
	return fmt.Sprintf("%s[%d]%s: |- %s", f.QName, f.Index, tags, f.Prop)
}

func formatRow(row map[string]any) string {
	keys := make([]string, 0, len(row))
	for k := range row {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, row[k]))
	}
	return strings.Join(parts, "  ")
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "refinery.yaml", "path to the config file")

	runCmd.Flags().StringVar(&saveDB, "save", "", "persist the resulting theory to this database")
	replCmd.Flags().BoolVar(&replResume, "resume", false, "restore the saved theory before starting")
	traceCmd.Flags().StringVar(&traceQuery, "query", "", "datalog goal to evaluate, e.g. \"code_eq(C, R)\"")
	traceCmd.Flags().BoolVar(&traceUnresolved, "unresolved", false, "list only constants with unresolved code equations")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(modesCmd)
	rootCmd.AddCommand(traceCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
