package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/google/uuid"

	"github.com/okian/clockread/internal/adapters/report"
	app "github.com/okian/clockread/internal/app"
	"github.com/okian/clockread/internal/audio"
	"github.com/okian/clockread/internal/cli"
	"github.com/okian/clockread/internal/config"
	"github.com/okian/clockread/pkg/logger"
)

// ScoreCmd scores one recording against its stimulus table.
type ScoreCmd struct {
	Stimuli     string `help:"Stimulus table CSV." type:"existingfile" required:""`
	Recording   string `help:"WAV recording of the session." type:"existingfile" required:""`
	Out         string `help:"Results CSV. Defaults to <recording>_RESULTS.csv." type:"path"`
	ClipsDir    string `help:"Folder for response clips. Defaults to <recording>_response_chunks." type:"path"`
	NoClips     bool   `help:"Do not export response clips."`
	ExcludeClip []int  `help:"Response clip index to leave out of matching. Repeatable." name:"exclude-clip"`
	SessionID   string `help:"Session id. Defaults to the recording name."`
	Profile     string `help:"Threshold profile: standard, practice or amend."`
	Config      string `short:"c" help:"YAML config file." type:"path"`
}

// Run implements the score command.
func (c *ScoreCmd) Run(env *Env) error {
	if err := logger.InitWithWriter(env.Stderr); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWithProfile(ctx, c.Config, c.Profile)
	if err != nil {
		return err
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	stimuli, err := report.LoadStimuli(c.Stimuli)
	if err != nil {
		return err
	}
	wave, err := audio.Load(c.Recording)
	if err != nil {
		return err
	}

	svc, err := app.FromConfig(cfg)
	if err != nil {
		return err
	}
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	trial := strings.TrimSuffix(c.Recording, filepath.Ext(c.Recording))
	in := app.RecordingInput{
		SessionID: c.SessionID,
		Stimuli:   stimuli,
		Waveform:  wave,
		Excluded:  c.ExcludeClip,
	}
	if in.SessionID == "" {
		in.SessionID = filepath.Base(trial) + "-" + uuid.NewString()[:8]
	}
	if !c.NoClips {
		in.ClipsDir = c.ClipsDir
		if in.ClipsDir == "" {
			in.ClipsDir = trial + "_response_chunks"
		}
	}

	sess, err := svc.ScoreRecording(ctx, in)
	if err != nil {
		return err
	}

	out := c.Out
	if out == "" {
		out = trial + "_RESULTS.csv"
	}
	if err := report.SaveResults(out, sess.Records, sess.Responses); err != nil {
		return fmt.Errorf("save results: %w", err)
	}

	cli.PrintSummary(env.Stdout, sess, out)
	return nil
}
