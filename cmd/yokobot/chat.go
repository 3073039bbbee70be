package main

import (
	"context"
	"fmt"
	"os"

	yokopoke "github.com/YOKOPOKE/yokopoke-sub000"
	"github.com/YOKOPOKE/yokopoke-sub000/internal/cli"
	"github.com/YOKOPOKE/yokopoke-sub000/internal/logging"
	"github.com/YOKOPOKE/yokopoke-sub000/internal/presentation/tui"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot from the terminal",
	Long: `Simulates a WhatsApp conversation locally. Type messages as the customer;
numbers pick the buttons or list rows of the last reply. /salir exits.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		phone, _ := cmd.Flags().GetString("phone")
		debug, _ := cmd.Flags().GetBool("debug")
		plain, _ := cmd.Flags().GetBool("plain")

		// Chat output is the UI, so logs stay quiet unless asked for.
		logger := logging.NewNop()
		if debug {
			cfg.Log.Level = "debug"
			logger = cli.NewLogger(cfg.Log)
		}
		cfg.Conversation.Debounce = 0

		interactive := term.IsTerminal(int(os.Stdout.Fd()))
		render, err := tui.NewRenderer(interactive && !plain)
		if err != nil {
			return err
		}
		gw := cli.NewTerminalGateway(cmd.OutOrStdout(), render)

		sigCtx := cli.NewSignalContext(context.Background())
		defer sigCtx.Cancel()

		app, err := cli.Build(sigCtx, cfg, gw, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		if interactive {
			tui.PrintBanner(cmd.OutOrStdout(), yokopoke.Version)
			fmt.Fprintf(cmd.OutOrStdout(), ">>> Chateando como %s. Escribe /salir para terminar.\n\n", phone)
		}
		return cli.Chat(sigCtx, app.Bot, gw, phone, cmd.InOrStdin(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().String("phone", "5210000000000", "Customer phone number to simulate")
	chatCmd.Flags().Bool("debug", false, "Print bot logs to stderr")
	chatCmd.Flags().Bool("plain", false, "Disable markdown styling")
}
