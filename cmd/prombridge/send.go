package main

import (
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gonzalo-munillag/RPI-Chatbot/internal/logutil"
)

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <conversation-key> <message...>",
		Short: "Send a message into a conversation through the gateway",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := logutil.LoggerFromViper()
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			gw, err := gatewayFromViper(logger)
			if err != nil {
				return err
			}
			conversationKey := strings.TrimSpace(args[0])
			message := strings.Join(args[1:], " ")
			if err := gw.Reply(cmd.Context(), conversationKey, message); err != nil {
				return err
			}
			logger.Info("message_sent", "conversation_key", conversationKey)
			return nil
		},
	}
}
