package main

import (
	"context"
	"errors"
	"strings"

	"github.com/codewandler/voicert-go"
	"github.com/codewandler/voicert-go/audio"
	"github.com/spf13/cobra"
)

func newSayCmd(a *app) *cobra.Command {
	var mute bool

	cmd := &cobra.Command{
		Use:   "say <text>",
		Short: "Send one message and play the answer",
		Long: `Send one text turn and play the spoken answer.

Examples:
  voicert say "What time is it?"
  voicert say --mute "Summarize the plot of Hamlet in one sentence."`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.say(cmd.Context(), strings.Join(args, " "), mute)
		},
	}
	cmd.Flags().BoolVar(&mute, "mute", false, "request a text-only answer")
	return cmd
}

func (a *app) say(ctx context.Context, text string, mute bool) error {
	if strings.TrimSpace(text) == "" {
		return errors.New("empty message")
	}

	var sink voicert.AudioSink
	if !mute {
		backend, err := a.backend()
		if err != nil {
			return err
		}
		defer backend.Close()

		player, err := audio.OpenPlayer(backend, audio.RealtimeFormat, 0)
		if err != nil {
			return err
		}
		defer player.Close()
		sink = player
	}

	client, err := a.client(sink)
	if err != nil {
		return err
	}
	if err := client.Open(ctx); err != nil {
		return err
	}
	defer client.Close()

	res, err := client.SendTurn(ctx, voicert.TextInput(text), !mute)
	if err != nil {
		return err
	}
	a.answer(res)
	return nil
}
