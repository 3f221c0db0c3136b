package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arloliu/go-efem/efem"
	"github.com/arloliu/go-efem/errcat"
)

var sendCmd = &cobra.Command{
	Use:   "send <command-line>",
	Short: "Send a single command and print its response",
	Long: `Send one logical command, e.g. "GetStatus,EFEM" or "Load,Loadport1".
A leading '@' selects the alternate (#@) addressing variant.`,
	Args: cobra.ExactArgs(1),
	RunE: runSend,
}

func init() {
	rootCmd.AddCommand(sendCmd)
}

func runSend(cmd *cobra.Command, args []string) error {
	command, err := efem.ParseCommandLine(args[0])
	if err != nil {
		return fmt.Errorf("invalid command %q: %w", args[0], err)
	}

	ctx, cancel := runContext()
	defer cancel()

	prompter := &consolePrompter{}

	conn, err := openLink(ctx, prompter)
	if err != nil {
		return err
	}
	defer conn.Close()

	resp, err := conn.SendAndAwait(ctx, command, 0)
	if err != nil {
		return err
	}

	switch resp.Kind {
	case efem.RespOK:
		fmt.Printf("OK %s\n", strings.Join(resp.Payload, ","))
	case efem.RespError:
		fmt.Printf("Error %s\n", errcat.Default().Describe(resp.Code))
	case efem.RespTimeout:
		fmt.Println("Timeout")
	}

	return nil
}
