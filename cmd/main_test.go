package main

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/clockread/internal/adapters/report"
	app "github.com/okian/clockread/internal/app"
	"github.com/okian/clockread/internal/audio"
	"github.com/okian/clockread/internal/domain/model"
	"github.com/okian/clockread/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

const testRate = 8000

// writeSession writes a stimulus table and a WAV recording with a tone
// burst at each burst range into dir.
func writeSession(dir string, stimuli []model.StimulusEvent, durMs int, bursts ...[2]int) (string, string) {
	samples := make([]float64, durMs*testRate/1000)
	for _, b := range bursts {
		for i := b[0] * testRate / 1000; i < b[1]*testRate/1000; i++ {
			samples[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/testRate)
		}
	}
	wav, err := audio.EncodePCM16(samples, testRate)
	convey.So(err, convey.ShouldBeNil)
	recording := filepath.Join(dir, "trial.wav")
	convey.So(os.WriteFile(recording, wav, 0o600), convey.ShouldBeNil)

	var buf bytes.Buffer
	convey.So(report.WriteStimuli(&buf, stimuli), convey.ShouldBeNil)
	table := filepath.Join(dir, "stimuli.csv")
	convey.So(os.WriteFile(table, buf.Bytes(), 0o600), convey.ShouldBeNil)
	return table, recording
}

func TestScoreCommand(t *testing.T) {
	convey.Convey("Given a recorded session on disk", t, func() {
		dir := t.TempDir()
		stimuli := []model.StimulusEvent{
			{Index: 0, Hour: 3, Minute: 0, Expected: model.AnswerYes, OnsetSec: 0.5},
			{Index: 1, Hour: 7, Minute: 30, Expected: model.AnswerNo, OnsetSec: 3.0},
		}
		table, recording := writeSession(dir, stimuli, 6000, [2]int{1000, 1400}, [2]int{3500, 3900})

		var stdout, stderr bytes.Buffer
		env := &Env{Stdout: &stdout, Stderr: &stderr}

		convey.Convey("When it is scored with default outputs", func() {
			cmd := &ScoreCmd{Stimuli: table, Recording: recording, SessionID: "trial"}
			err := cmd.Run(env)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then a results table is written next to the recording", func() {
				data, err := os.ReadFile(filepath.Join(dir, "trial_RESULTS.csv"))
				convey.So(err, convey.ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(string(data)), "\n")
				convey.So(lines, convey.ShouldHaveLength, 3)
				convey.So(lines[0], convey.ShouldStartWith, "Hour,Minute,Correct answer")
			})

			convey.Convey("Then response clips are exported", func() {
				for _, name := range []string{"chunk0.wav", "chunk1.wav"} {
					_, err := os.Stat(filepath.Join(dir, "trial_response_chunks", name))
					convey.So(err, convey.ShouldBeNil)
				}
			})

			convey.Convey("Then the summary goes to stdout", func() {
				convey.So(stdout.String(), convey.ShouldContainSubstring, "Session trial")
				convey.So(stdout.String(), convey.ShouldContainSubstring, "2 / 2")
			})
		})

		convey.Convey("When clips are disabled and the output is named", func() {
			out := filepath.Join(dir, "custom.csv")
			cmd := &ScoreCmd{Stimuli: table, Recording: recording, Out: out, NoClips: true}
			convey.So(cmd.Run(env), convey.ShouldBeNil)

			convey.Convey("Then only the named results file is written", func() {
				_, err := os.Stat(out)
				convey.So(err, convey.ShouldBeNil)
				_, err = os.Stat(filepath.Join(dir, "trial_response_chunks"))
				convey.So(os.IsNotExist(err), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When an unknown profile is requested", func() {
			cmd := &ScoreCmd{Stimuli: table, Recording: recording, Profile: "turbo", NoClips: true}

			convey.Convey("Then the command fails", func() {
				convey.So(cmd.Run(env), convey.ShouldNotBeNil)
			})
		})
	})

	convey.Convey("Given a silent recording", t, func() {
		dir := t.TempDir()
		stimuli := []model.StimulusEvent{{Index: 0, Hour: 1, Minute: 0, Expected: model.AnswerYes, OnsetSec: 0.5}}
		table, recording := writeSession(dir, stimuli, 3000)

		convey.Convey("When it is scored", func() {
			var stdout, stderr bytes.Buffer
			cmd := &ScoreCmd{Stimuli: table, Recording: recording, NoClips: true}
			err := cmd.Run(&Env{Stdout: &stdout, Stderr: &stderr})

			convey.Convey("Then the run aborts without a results file", func() {
				convey.So(errors.Is(err, app.ErrNoResponses), convey.ShouldBeTrue)
				_, statErr := os.Stat(filepath.Join(dir, "trial_RESULTS.csv"))
				convey.So(os.IsNotExist(statErr), convey.ShouldBeTrue)
			})
		})
	})
}

func TestVersionCommand(t *testing.T) {
	convey.Convey("Given the version command", t, func() {
		var stdout bytes.Buffer
		convey.So(VersionCmd{}.Run(&Env{Stdout: &stdout}), convey.ShouldBeNil)

		convey.Convey("Then the version is printed", func() {
			convey.So(stdout.String(), convey.ShouldContainSubstring, version)
		})
	})
}

func TestServeMux(t *testing.T) {
	convey.Convey("Given the serve mux over a started service", t, func() {
		ctx := context.Background()
		svc := app.New(app.WithWorkerCount(1))
		convey.So(svc.Start(ctx), convey.ShouldBeNil)
		defer svc.Stop()
		mux := newMux(ctx, svc)

		convey.Convey("Then the API and its docs are routed", func() {
			for _, path := range []string{"/healthz", "/stats", "/metrics", "/openapi.yaml", "/api-docs", "/sessions"} {
				w := httptest.NewRecorder()
				mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, http.NoBody))
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
			}
		})

		convey.Convey("Then a posted session can be read back", func() {
			body := `{"session_id":"api-1","stimuli":[{"hour":3,"minute":0,"expected":"Yes","onset_sec":1}],` +
				`"responses":[{"onset_sec":1.4,"end_sec":1.9}],"transcripts":{"0":"yes"}}`
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/sessions", strings.NewReader(body)))
			convey.So(w.Code, convey.ShouldEqual, http.StatusCreated)
			convey.So(w.Body.String(), convey.ShouldContainSubstring, `"accuracy":"TRUE"`)

			w = httptest.NewRecorder()
			mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sessions/api-1", http.NoBody))
			convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
		})

		convey.Convey("Then service metrics can be refreshed", func() {
			convey.So(func() { updateServiceMetrics(svc) }, convey.ShouldNotPanic)
		})
	})
}
