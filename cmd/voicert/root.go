package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/codewandler/voicert-go"
	"github.com/codewandler/voicert-go/audio"
	"github.com/codewandler/voicert-go/audio/miniaudio"
	"github.com/codewandler/voicert-go/internal/config"
	"github.com/codewandler/voicert-go/internal/metrics"
	"github.com/codewandler/voicert-go/tool"
	"github.com/codewandler/voicert-go/transcribe"
	"github.com/spf13/cobra"
)

// app carries what every command shares.
type app struct {
	configPath  string
	envFile     string
	debug       bool
	metricsAddr string
	device      string
	chosen      *audio.DeviceInfo

	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	in      *bufio.Reader
	out     io.Writer
}

func newRootCmd() *cobra.Command {
	a := &app{in: bufio.NewReader(os.Stdin), out: os.Stdout}

	root := &cobra.Command{
		Use:           "voicert",
		Short:         "Push-to-talk voice assistant on the OpenAI realtime API",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultPath, "config file")
	root.PersistentFlags().StringVar(&a.envFile, "env", config.DefaultEnvFile, "dotenv file")
	root.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logs")
	root.PersistentFlags().StringVar(&a.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	root.PersistentFlags().StringVarP(&a.device, "device", "d", "", "input device name (prompted when several exist)")

	root.AddCommand(
		newChatCmd(a),
		newSayCmd(a),
		newCalibrateCmd(a),
		newDevicesCmd(a),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	slog.SetLogLoggerLevel(slog.LevelError)
	if a.debug {
		slog.SetLogLoggerLevel(slog.LevelDebug)
	}
	a.logger = slog.Default()

	cfg, err := config.Load(a.configPath, a.envFile)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.metrics = metrics.New()

	if a.metricsAddr != "" {
		srv := &http.Server{Addr: a.metricsAddr, Handler: a.metrics.Handler(), ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("metrics server", slog.Any("err", err))
			}
		}()
		go func() {
			<-ctx.Done()
			_ = srv.Close()
		}()
	}
	return nil
}

func (a *app) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}

// selector prompts at most once per run and reuses the answer.
func (a *app) selector() audio.Selector {
	if a.device != "" {
		return audio.SelectByName(a.device)
	}
	prompt := promptSelector(a.in, a.out)
	return func(devices []audio.DeviceInfo) (audio.DeviceInfo, error) {
		if a.chosen != nil {
			for _, d := range devices {
				if d.ID == a.chosen.ID {
					return d, nil
				}
			}
		}
		d, err := prompt(devices)
		if err != nil {
			return d, err
		}
		a.chosen = &d
		return d, nil
	}
}

func (a *app) captureConfig() audio.CaptureConfig {
	return audio.CaptureConfig{
		Format:          audio.CaptureFormat,
		Selector:        a.selector(),
		Threshold:       a.cfg.SilenceThreshold,
		SilenceDuration: a.cfg.SilenceWindow(),
		MaxDuration:     a.cfg.MaxRecordDuration(),
		Logger:          a.logger,
	}
}

func (a *app) backend() (*miniaudio.Backend, error) {
	return miniaudio.New(a.logger)
}

func (a *app) transcriber() *transcribe.Transcriber {
	opts := []transcribe.Option{transcribe.WithLogger(a.logger)}
	if a.cfg.TranscriptionModel != "" {
		opts = append(opts, transcribe.WithModel(a.cfg.TranscriptionModel))
	}
	if a.cfg.OpenAIOrg != "" {
		opts = append(opts, transcribe.WithOrg(a.cfg.OpenAIOrg))
	}
	return transcribe.New(a.cfg.OpenAIKey, opts...)
}

// client builds a realtime client. A nil sink discards response audio.
func (a *app) client(sink voicert.AudioSink, opts ...voicert.ClientOption) (*voicert.Client, error) {
	if err := a.cfg.RequireKey(); err != nil {
		return nil, err
	}

	base := []voicert.ClientOption{
		voicert.WithKey(a.cfg.OpenAIKey),
		voicert.WithLogger(a.logger),
		voicert.WithObserver(a.metrics),
		voicert.WithInstruction(a.cfg.SystemPrompt),
		voicert.WithTurnTimeout(a.cfg.TurnTimeout()),
		voicert.WithTools(clockTool),
		voicert.WithToolHandler(handleTool),
	}
	if a.cfg.Model != "" {
		base = append(base, voicert.WithModel(a.cfg.Model))
	}
	if a.cfg.Voice != "" {
		base = append(base, voicert.WithVoice(a.cfg.Voice))
	}
	if sink != nil {
		base = append(base, voicert.WithAudioSink(sink))
	}
	return voicert.New(append(base, opts...)...), nil
}

var clockTool = tool.Function("get_time", "Get the current local date and time", nil)

func handleTool(name string, _ map[string]any) (any, error) {
	switch name {
	case "get_time":
		return time.Now().Format(time.RFC3339), nil
	}
	return nil, fmt.Errorf("unknown tool: %s", name)
}

// answer prints what a turn produced.
func (a *app) answer(res *voicert.TurnResult) {
	text := res.Text
	if text == "" {
		text = res.Transcript
	}
	if res.Partial {
		a.printf("assistant (interrupted)> %s\n", text)
		return
	}
	a.printf("assistant> %s\n", text)
}
