package cli

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/clockread/internal/domain/model"
)

func sampleSession() model.Session {
	resp := model.ResponseEvent{Index: 0, OnsetSec: 1.6, EndSec: 2.0}
	return model.Session{
		ID:        "trial",
		Responses: []model.ResponseEvent{resp},
		Records: []model.Match{
			{
				Stimulus:    model.StimulusEvent{Index: 0, Hour: 3, Minute: 5, Expected: model.AnswerYes, OnsetSec: 1.0},
				Response:    &resp,
				ReactionSec: 0.6,
				Transcript:  "YES",
				Accuracy:    model.AccuracyTrue,
				OnTime:      true,
			},
			model.NewUnmatched(model.StimulusEvent{Index: 1, Hour: 11, Minute: 40, Expected: model.AnswerNo, OnsetSec: 9.0}, model.MissBeyondRecording),
		},
	}
}

func TestRecordsTable(t *testing.T) {
	convey.Convey("Given scored records", t, func() {
		out := RecordsTable(sampleSession().Records)

		convey.Convey("Then each stimulus is a row", func() {
			convey.So(out, convey.ShouldContainSubstring, "3:05")
			convey.So(out, convey.ShouldContainSubstring, "11:40")
			convey.So(out, convey.ShouldContainSubstring, "0.600")
			convey.So(out, convey.ShouldContainSubstring, "TRUE")
			convey.So(out, convey.ShouldContainSubstring, "N/A")
		})
	})
}

func TestPrintSummary(t *testing.T) {
	convey.Convey("Given a scored session", t, func() {
		var buf bytes.Buffer
		PrintSummary(&buf, sampleSession(), "trial_RESULTS.csv")
		out := buf.String()

		convey.Convey("Then totals and the results path are printed", func() {
			convey.So(out, convey.ShouldContainSubstring, "Session trial")
			convey.So(out, convey.ShouldContainSubstring, "1 / 2")
			convey.So(out, convey.ShouldContainSubstring, "0.600 s")
			convey.So(out, convey.ShouldContainSubstring, "trial_RESULTS.csv")
		})
	})

	convey.Convey("Given a session without reactions", t, func() {
		var buf bytes.Buffer
		sess := sampleSession()
		sess.Records = sess.Records[1:]
		PrintSummary(&buf, sess, "")

		convey.Convey("Then the mean reaction is n/a", func() {
			convey.So(math.IsNaN(model.Summarize(sess.Records).MeanReactionSec), convey.ShouldBeTrue)
			convey.So(buf.String(), convey.ShouldContainSubstring, "n/a")
		})
	})
}

func TestPrintError(t *testing.T) {
	convey.Convey("Given an error message", t, func() {
		var buf bytes.Buffer
		PrintError(&buf, "something broke")

		convey.Convey("Then it is labelled", func() {
			convey.So(buf.String(), convey.ShouldContainSubstring, "Error:")
			convey.So(buf.String(), convey.ShouldContainSubstring, "something broke")
		})
	})
}

type helpCLI struct {
	Score struct {
		Stimuli string `help:"Stimulus table." required:""`
		Out     string `help:"Results file." default:"out.csv"`
	} `cmd:"" help:"Score a recording."`
	Version struct{} `cmd:"" help:"Show version."`
}

func TestStyledHelpPrinter(t *testing.T) {
	convey.Convey("Given a kong parser with the styled help", t, func() {
		var buf bytes.Buffer
		parser, err := kong.New(&helpCLI{},
			kong.Name("clockread"),
			kong.Description("Clock reading test scorer"),
			kong.Writers(&buf, &buf),
			kong.Exit(func(int) {}),
			kong.Help(StyledHelpPrinter(kong.HelpOptions{Compact: true})),
		)
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When asking for root help", func() {
			_, _ = parser.Parse([]string{"--help"})

			convey.Convey("Then subcommands are listed", func() {
				out := buf.String()
				convey.So(out, convey.ShouldContainSubstring, "Commands:")
				convey.So(out, convey.ShouldContainSubstring, "score")
				convey.So(out, convey.ShouldContainSubstring, "Score a recording.")
			})
		})

		convey.Convey("When asking for command help", func() {
			_, _ = parser.Parse([]string{"score", "--help"})

			convey.Convey("Then its flags and defaults are listed", func() {
				out := buf.String()
				convey.So(out, convey.ShouldContainSubstring, "--stimuli")
				convey.So(strings.Contains(out, "out.csv"), convey.ShouldBeTrue)
			})
		})
	})
}
