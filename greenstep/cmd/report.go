package cmd

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/sarchlab/greenstep/datarecording"
	"github.com/sarchlab/greenstep/tracing"
	"github.com/spf13/cobra"
)

var reportCmd = &cobra.Command{
	Use:   "report <database>",
	Short: "Summarize a recorded run.",
	Long: "`report <database>` prints the cycle statistics, the state " +
		"changes, and the faults of a run recorded with `run --record`.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		maxFaults, _ := cmd.Flags().GetInt("faults")
		return report(cmd, args[0], maxFaults)
	},
}

func init() {
	reportCmd.Flags().Int("faults", 10, "maximum number of faults to list")
	rootCmd.AddCommand(reportCmd)
}

type runSummary struct {
	cycles        int
	firstCycle    uint64
	lastCycle     uint64
	totalDuration time.Duration
	maxDuration   time.Duration
	maxActors     int
	states        []*tracing.StateEntry
	faults        []*tracing.FaultEntry
	faultCount    int
}

func report(cmd *cobra.Command, path string, maxFaults int) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	reader, err := datarecording.NewReader(path)
	if err != nil {
		return err
	}
	defer reader.Close()

	summary, err := summarize(cmd, reader, maxFaults)
	if err != nil {
		return err
	}

	return summary.write(cmd.OutOrStdout())
}

func summarize(
	cmd *cobra.Command,
	reader datarecording.DataReader,
	maxFaults int,
) (*runSummary, error) {
	ctx := cmd.Context()

	reader.MapTable(tracing.CycleTable, tracing.CycleEntry{})
	reader.MapTable(tracing.FaultTable, tracing.FaultEntry{})
	reader.MapTable(tracing.StateTable, tracing.StateEntry{})

	s := &runSummary{}

	cycles, total, err := reader.Query(ctx, tracing.CycleTable,
		datarecording.QueryParams{OrderBy: "Cycle"})
	if err != nil {
		return nil, fmt.Errorf("read cycles: %w", err)
	}

	s.cycles = total
	for i, c := range cycles {
		entry := c.(*tracing.CycleEntry)
		if i == 0 {
			s.firstCycle = entry.Cycle
		}

		s.lastCycle = entry.Cycle

		d := time.Duration(entry.DurationUs * float64(time.Microsecond))
		s.totalDuration += d
		s.maxDuration = max(s.maxDuration, d)
		s.maxActors = max(s.maxActors, entry.ActorCount)
	}

	states, _, err := reader.Query(ctx, tracing.StateTable,
		datarecording.QueryParams{OrderBy: "TimeNanos"})
	if err != nil {
		return nil, fmt.Errorf("read states: %w", err)
	}

	for _, st := range states {
		s.states = append(s.states, st.(*tracing.StateEntry))
	}

	faults, faultCount, err := reader.Query(ctx, tracing.FaultTable,
		datarecording.QueryParams{OrderBy: "Cycle", Limit: maxFaults})
	if err != nil {
		return nil, fmt.Errorf("read faults: %w", err)
	}

	s.faultCount = faultCount
	for _, f := range faults {
		s.faults = append(s.faults, f.(*tracing.FaultEntry))
	}

	return s, nil
}

func (s *runSummary) write(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)

	fmt.Fprintf(w, "Cycles:\t%d\n", s.cycles)
	if s.cycles > 0 {
		avg := s.totalDuration / time.Duration(s.cycles)

		fmt.Fprintf(w, "Cycle range:\t%d - %d\n", s.firstCycle, s.lastCycle)
		fmt.Fprintf(w, "Average cycle time:\t%s\n", avg)
		fmt.Fprintf(w, "Max cycle time:\t%s\n", s.maxDuration)
		fmt.Fprintf(w, "Max actors:\t%d\n", s.maxActors)
	}

	fmt.Fprintf(w, "State changes:\t%d\n", len(s.states))
	for _, st := range s.states {
		fmt.Fprintf(w, "  %s\tafter cycle %d\t%s\n",
			st.State, st.LastCycle,
			time.Unix(0, st.TimeNanos).Format(time.RFC3339Nano))
	}

	fmt.Fprintf(w, "Faults:\t%d\n", s.faultCount)
	for _, f := range s.faults {
		fmt.Fprintf(w, "  cycle %d\t%s\t%s\n", f.Cycle, f.Actor, f.Message)
	}

	return w.Flush()
}
