package admin_tool

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.od2.network/tubeq/cmd/providers"
	"go.od2.network/tubeq/pkg/jobs"
	"go.od2.network/tubeq/pkg/queue"
)

var infoCmd = cobra.Command{
	Use:   "info",
	Short: "Print queue lengths",
	Args:  cobra.NoArgs,
	Run:   providers.NewCmd(runInfo),
}

func init() {
	Cmd.AddCommand(&infoCmd)
}

func runInfo(ctx context.Context, driver *queue.Driver) error {
	stats, err := driver.Info(ctx)
	if err != nil {
		return err
	}
	printStats(os.Stdout, driver.Config.Channel, stats)
	return nil
}

func printStats(w io.Writer, channel string, stats queue.Stats) {
	fmt.Fprintln(w, "channel: ", channel)
	fmt.Fprintln(w, "waiting: ", stats.Waiting)
	fmt.Fprintln(w, "delayed: ", stats.Delayed)
	fmt.Fprintln(w, "reserved:", stats.Reserved)
	fmt.Fprintln(w, "failed:  ", stats.Failed)
	fmt.Fprintln(w, "timeout: ", stats.Timeout)
}

var reloadCmd = cobra.Command{
	Use:   "reload [failed|timeout]",
	Short: "Move dead-lettered jobs back to the queue",
	Args:  cobra.MaximumNArgs(1),
	Run:   providers.NewCmd(runReload),
}

func init() {
	Cmd.AddCommand(&reloadCmd)
}

func runReload(ctx context.Context, args []string, driver *queue.Driver) error {
	n, err := driver.Reload(ctx, queueArg(args))
	fmt.Printf("Reloaded %d jobs\n", n)
	return err
}

var flushCmd = cobra.Command{
	Use:   "flush [failed|timeout]",
	Short: "Delete dead-lettered jobs",
	Args:  cobra.MaximumNArgs(1),
	Run:   providers.NewCmd(runFlush),
}

func init() {
	Cmd.AddCommand(&flushCmd)
}

func runFlush(ctx context.Context, args []string, driver *queue.Driver) error {
	ok, err := driver.Flush(ctx, queueArg(args))
	if err != nil {
		return err
	}
	if ok {
		fmt.Println("Flushed")
	} else {
		fmt.Println("Nothing to flush")
	}
	return nil
}

func queueArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

var pushCmd = cobra.Command{
	Use:   "push <command>",
	Short: "Submit a shell command job",
	Args:  cobra.ExactArgs(1),
	Run:   providers.NewCmd(runPush),
}

func init() {
	flags := pushCmd.Flags()
	flags.Duration("delay", 0, "Delay before the job becomes ready")
	flags.Int("retries", 0, "Number of retries on failure")
	Cmd.AddCommand(&pushCmd)
}

func runPush(ctx context.Context, cmd *cobra.Command, args []string, driver *queue.Driver) error {
	flags := cmd.Flags()
	delay, err := flags.GetDuration("delay")
	if err != nil {
		return err
	}
	retries, err := flags.GetInt("retries")
	if err != nil {
		return err
	}
	id, err := driver.Push(ctx, &jobs.Command{Command: args[0], MaxRetries: retries}, delay)
	if err != nil {
		return err
	}
	fmt.Println("Pushed job", id)
	return nil
}
