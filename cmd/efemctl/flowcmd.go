package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-efem/flow"
)

var flowDevices struct {
	loadport string
	robot    string
	arm      string
	aligner  string
	ocr      string
	stage    string
}

var flowCmd = &cobra.Command{
	Use:   "flow",
	Short: "Run the automated wafer-transfer recipe",
}

var flowRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the normal transfer recipe",
	Long: `Run the fixed recipe: RFID read and confirmation, carrier load and
mapping, the per-slot transfer loop through aligner and OCR to the stage,
and the final unload. Confirmations are answered on stdin.`,
	RunE: runFlowRun,
}

var flowRecoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Run the anomaly-recovery procedure",
	Long: `Restore a safe state after an interrupted recipe: return any wafer
held by a robot arm or the aligner to an empty carrier slot, then re-check
occupancy and signal the result on the tower.`,
	RunE: runFlowRecover,
}

func init() {
	for _, c := range []*cobra.Command{flowRunCmd, flowRecoverCmd} {
		c.Flags().StringVar(&flowDevices.loadport, "loadport", "Loadport1", "load-port device name")
		c.Flags().StringVar(&flowDevices.robot, "robot", "Robot1", "robot device name")
		c.Flags().StringVar(&flowDevices.arm, "arm", "UpArm", "robot arm used for transfers")
		c.Flags().StringVar(&flowDevices.aligner, "aligner", "Aligner1", "aligner device name")
	}
	flowRunCmd.Flags().StringVar(&flowDevices.ocr, "ocr", "OCR1", "OCR device name")
	flowRunCmd.Flags().StringVar(&flowDevices.stage, "stage", "Stage1", "stage device name")

	flowCmd.AddCommand(flowRunCmd)
	flowCmd.AddCommand(flowRecoverCmd)
	rootCmd.AddCommand(flowCmd)
}

func deviceOptions() []flow.FlowOption {
	return []flow.FlowOption{
		flow.WithLoadport(flowDevices.loadport),
		flow.WithRobot(flowDevices.robot),
		flow.WithArm(flowDevices.arm),
		flow.WithAligner(flowDevices.aligner),
		flow.WithOCR(flowDevices.ocr),
		flow.WithStage(flowDevices.stage),
	}
}

func runFlowRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := runContext()
	defer cancel()

	prompter := &consolePrompter{}

	conn, err := openLink(ctx, prompter)
	if err != nil {
		return err
	}
	defer conn.Close()

	opts := append(deviceOptions(),
		flow.WithFlowNotifier(prompter),
		flow.WithConfirmTimeout(conn.Config().ConfirmationTimeout()),
	)
	controller := flow.NewFlowController(conn, opts...)
	prompter.bindSubmit(controller.SubmitConfirmation)

	status, err := controller.Run(ctx)
	if err != nil {
		return err
	}
	if status != flow.StatusCompleted {
		return fmt.Errorf("flow finished with status %d", status)
	}

	return nil
}

func runFlowRecover(cmd *cobra.Command, args []string) error {
	ctx, cancel := runContext()
	defer cancel()

	prompter := &consolePrompter{}

	conn, err := openLink(ctx, prompter)
	if err != nil {
		return err
	}
	defer conn.Close()

	opts := append(deviceOptions(),
		flow.WithFlowNotifier(prompter),
		flow.WithConfirmTimeout(conn.Config().ConfirmationTimeout()),
	)
	recovery := flow.NewRecoveryFlow(conn, opts...)

	status, err := recovery.Run(ctx)
	if err != nil {
		return err
	}
	if status != flow.StatusRecoveryCompleted {
		return fmt.Errorf("recovery finished with status %d", status)
	}

	return nil
}
