package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/codewandler/voicert-go"
	"github.com/codewandler/voicert-go/audio"
	"github.com/codewandler/voicert-go/audio/miniaudio"
	"github.com/spf13/cobra"
)

type chatOptions struct {
	text      bool
	sendAudio bool
	mute      bool
	calibrate bool
}

func newChatCmd(a *app) *cobra.Command {
	var opts chatOptions

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Talk to the assistant",
		Long: `Talk to the assistant turn by turn.

Press Enter to start recording. Recording stops after a stretch of silence.
The recording is transcribed and sent as a text turn, or sent as audio with
--send-audio. Type 'exit' to quit.

Examples:
  # Voice in, voice out
  voicert chat

  # Type instead of speaking
  voicert chat --text

  # Measure the noise floor first and use it as the silence threshold
  voicert chat --calibrate`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.chat(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.text, "text", false, "type messages instead of recording them")
	cmd.Flags().BoolVar(&opts.sendAudio, "send-audio", false, "send recordings as audio instead of transcribing them")
	cmd.Flags().BoolVar(&opts.mute, "mute", false, "request text-only answers")
	cmd.Flags().BoolVar(&opts.calibrate, "calibrate", false, "calibrate the silence threshold before the first turn")
	return cmd
}

func (a *app) chat(ctx context.Context, opts chatOptions) error {
	var backend *miniaudio.Backend
	if !opts.text || !opts.mute {
		b, err := a.backend()
		if err != nil {
			return err
		}
		defer b.Close()
		backend = b
	}

	var clientOpts []voicert.ClientOption
	if opts.sendAudio && a.cfg.TranscriptionModel != "" {
		clientOpts = append(clientOpts, voicert.WithTranscriptionModel(a.cfg.TranscriptionModel))
	}
	client, err := a.client(nil, clientOpts...)
	if err != nil {
		return err
	}
	if err := client.Open(ctx); err != nil {
		return err
	}
	defer client.Close()

	var listener *audio.Listener
	if !opts.text {
		listener = audio.NewListener(backend, a.captureConfig())
		if opts.calibrate {
			a.printf("Calibrating, stay quiet...\n")
			threshold, err := audio.NewCalibrator(backend, listener.Config()).Calibrate(ctx, a.cfg.CalibrationDuration())
			if err != nil {
				return err
			}
			a.printf("Silence threshold: %.1f\n", threshold)
			listener.SetThreshold(threshold)
		}
		a.printf("Press Enter to start recording (type 'exit' to quit).\n")
	} else {
		a.printf("Type a message (type 'exit' to quit).\n")
	}

	for {
		a.printf(">> ")
		line, err := a.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		line = strings.TrimSpace(line)
		if strings.EqualFold(line, "exit") || (line == "" && errors.Is(err, io.EOF)) {
			return nil
		}

		var in voicert.Input
		if opts.text {
			if line == "" {
				continue
			}
			in = voicert.TextInput(line)
		} else {
			in, err = a.record(ctx, listener, opts.sendAudio)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				a.logger.Error("record", slog.Any("err", err))
				continue
			}
		}

		res, err := a.turn(ctx, client, backend, in, !opts.mute)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, voicert.ErrConnectionClosed) {
				return err
			}
			a.logger.Error("turn", slog.Any("err", err))
			continue
		}
		a.answer(res)
		if res.Partial {
			return voicert.ErrConnectionClosed
		}
	}
}

// turn sends one input. The output device is opened only after the input has
// been captured and is released once the answer has played.
func (a *app) turn(ctx context.Context, client *voicert.Client, backend *miniaudio.Backend, in voicert.Input, wantAudio bool) (*voicert.TurnResult, error) {
	if !wantAudio {
		return client.SendTurn(ctx, in, false)
	}
	player, err := audio.OpenPlayer(backend, audio.RealtimeFormat, 0)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := player.Close(); err != nil {
			a.logger.Warn("close player", slog.Any("err", err))
		}
	}()
	return client.SendTurn(ctx, in, true, voicert.WithTurnSink(player))
}

// record captures one utterance and turns it into turn input. Recordings
// are kept on disk only while they are transcribed.
func (a *app) record(ctx context.Context, listener *audio.Listener, sendAudio bool) (voicert.Input, error) {
	a.printf("Recording...\n")
	pcm, err := listener.Listen(ctx)
	if err != nil {
		return voicert.Input{}, err
	}
	f := listener.Config().Format
	a.metrics.Recorded(f.Duration(len(pcm)))

	if sendAudio {
		return voicert.AudioInput(audio.ResamplePCM(pcm, f.SampleRate, audio.RealtimeFormat.SampleRate)), nil
	}

	path, err := audio.SaveWAV(a.cfg.RecordingDir, pcm, f)
	if err != nil {
		return voicert.Input{}, err
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			a.logger.Warn("remove recording", slog.String("path", path), slog.Any("err", err))
		}
	}()

	a.printf("Transcribing...\n")
	text, err := a.transcriber().File(ctx, path)
	if err != nil {
		return voicert.Input{}, err
	}
	a.printf("you> %s\n", text)
	if strings.TrimSpace(text) == "" {
		return voicert.Input{}, errors.New("nothing was said")
	}
	return voicert.TextInput(text), nil
}
