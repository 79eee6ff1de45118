package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/gonzalo-munillag/RPI-Chatbot/providers/ollama"
)

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List models available on the model backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := ollama.New(
				viper.GetString("llm.endpoint"),
				viper.GetDuration("llm.request_timeout"),
			)
			models, err := client.Models(cmd.Context())
			if err != nil {
				return err
			}
			if len(models) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No models available.")
				return nil
			}
			for _, name := range models {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
