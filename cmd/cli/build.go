package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"ehonhub/internal/app"
	"ehonhub/internal/planner"
	"ehonhub/internal/ranking"
	"ehonhub/pkg/models"
)

var (
	buildFast  bool
	buildStore bool
	showLimit  int
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Run one ranking build",
	Long:  `Searches articles, validates references and prints the ranking. With --store the snapshot replaces the stored one.`,
	Args:  cobra.NoArgs,
	RunE:  runBuild,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the stored ranking",
	Args:  cobra.NoArgs,
	RunE:  runShow,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent builds (sqlite store only)",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	buildCmd.Flags().BoolVar(&buildFast, "fast", false, "use the quick, smaller search plan")
	buildCmd.Flags().BoolVar(&buildStore, "store", false, "write the snapshot to the configured store")
	buildCmd.Flags().IntVar(&showLimit, "limit", 20, "rows to print")
	showCmd.Flags().IntVar(&showLimit, "limit", 20, "rows to print")
	historyCmd.Flags().IntVar(&showLimit, "limit", 20, "rows to print")

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(historyCmd)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx, stop := signalContext()
	defer stop()

	mode := planner.ModeFull
	if buildFast {
		mode = planner.ModeFast
	}
	builder := app.NewBuilder(cfg, app.NewClients(cfg), logger)

	if !buildStore {
		res, err := builder.Build(ctx, mode)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "collected=%d in_context=%d referenced=%d accepted=%d books=%d\n",
			res.Stats.Collected, res.Stats.InContext, res.Stats.Referenced, res.Stats.Accepted, res.Stats.Books)
		return printRanking(cmd.OutOrStdout(), res.Snapshot, showLimit)
	}

	st, err := app.OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	svc := ranking.NewService(builder, st, nil, logger)
	snap, err := svc.Rebuild(ctx, mode)
	if err != nil {
		return err
	}
	return printRanking(cmd.OutOrStdout(), snap, showLimit)
}

func runShow(cmd *cobra.Command, args []string) error {
	st, err := app.OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	snap, err := st.Read(cmd.Context())
	if err != nil {
		return err
	}
	if snap.Empty() {
		fmt.Fprintln(cmd.OutOrStdout(), "no ranking stored yet; run `ehonhub build --store`")
		return nil
	}
	return printRanking(cmd.OutOrStdout(), snap, showLimit)
}

func runHistory(cmd *cobra.Command, args []string) error {
	st, err := app.OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	sqlStore, ok := st.Store.(*ranking.SQLStore)
	if !ok {
		return fmt.Errorf("history needs the sqlite store, have %q", cfg.Store.Backend)
	}
	builds, err := sqlStore.Builds(cmd.Context(), showLimit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "GENERATED\tMODE\tBOOKS\tBUILD")
	for _, b := range builds {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", b.GeneratedAt.Local().Format("2006-01-02 15:04"), b.Mode, b.Books, b.BuildID)
	}
	return tw.Flush()
}

func printRanking(w io.Writer, snap models.Snapshot, limit int) error {
	fmt.Fprintf(w, "build %s (%s) at %s, %d books\n",
		snap.BuildID, snap.Mode, snap.GeneratedAt.Local().Format("2006-01-02 15:04"), len(snap.Ranking))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSCORE\tMENTIONS\tTITLE\tID")
	for i, b := range snap.Ranking {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(tw, "%d\t%.0f\t%d\t%s\t%s\n", i+1, b.Score, b.Mentions, b.Title, b.ID)
	}
	return tw.Flush()
}
