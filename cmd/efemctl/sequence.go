package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-efem/flow"
)

var sequenceCycle bool

var sequenceCmd = &cobra.Command{
	Use:   "sequence",
	Short: "Work with command scripts",
}

var sequenceRunCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run a command script against the controller",
	Long: `Run a script with one instruction per line: commands like
"Load,Loadport1", waits like "Wait,500" (milliseconds), and comment lines
starting with '#' or ';'.`,
	Args: cobra.ExactArgs(1),
	RunE: runSequenceRun,
}

var sequenceCheckCmd = &cobra.Command{
	Use:   "check <file>",
	Short: "Parse a command script and report errors without running it",
	Args:  cobra.ExactArgs(1),
	RunE:  runSequenceCheck,
}

func init() {
	sequenceRunCmd.Flags().BoolVar(&sequenceCycle, "cycle", false,
		"restart the script from the top until stopped")

	sequenceCmd.AddCommand(sequenceRunCmd)
	sequenceCmd.AddCommand(sequenceCheckCmd)
	rootCmd.AddCommand(sequenceCmd)
}

func loadScript(path string) ([]flow.SequenceStep, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	steps, err := flow.ParseScript(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return steps, nil
}

func runSequenceRun(cmd *cobra.Command, args []string) error {
	steps, err := loadScript(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := runContext()
	defer cancel()

	prompter := &consolePrompter{}

	conn, err := openLink(ctx, prompter)
	if err != nil {
		return err
	}
	defer conn.Close()

	runner := flow.NewSequenceRunner(conn,
		flow.WithRunnerNotifier(prompter),
		flow.WithRunnerSettleDelay(conn.Config().SettleDelay()),
	)

	status, err := runner.Run(ctx, steps, sequenceCycle)
	if err != nil {
		return err
	}
	if status != flow.StatusCompleted {
		return fmt.Errorf("sequence finished with status %d", status)
	}

	return nil
}

func runSequenceCheck(cmd *cobra.Command, args []string) error {
	steps, err := loadScript(args[0])
	if err != nil {
		return err
	}

	invokes, waits, comments := 0, 0, 0
	for _, step := range steps {
		switch step.Kind {
		case flow.StepInvoke:
			invokes++
		case flow.StepWait:
			waits++
		case flow.StepComment:
			comments++
		}
	}

	fmt.Printf("%s: %d commands, %d waits, %d comments\n", args[0], invokes, waits, comments)

	return nil
}
