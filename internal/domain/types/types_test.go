package types_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/okian/clockread/internal/domain/model"
	types "github.com/okian/clockread/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestScoreRequest(t *testing.T) {
	Convey("Given a well formed request", t, func() {
		req := types.ScoreRequest{
			Stimuli: []types.Stimulus{
				{Hour: 3, Minute: 15, Expected: "Yes", OnsetSec: 0},
				{Hour: 9, Minute: 40, Expected: "no", OnsetSec: 5},
			},
			Responses:   []types.Response{{OnsetSec: 1, EndSec: 1.4}},
			Transcripts: map[string]string{"0": "yes"},
		}

		Convey("When converted", func() {
			stimuli, responses, transcripts, err := req.ToDomain()

			Convey("Then indices follow positions", func() {
				So(err, ShouldBeNil)
				So(stimuli, ShouldHaveLength, 2)
				So(stimuli[1].Index, ShouldEqual, 1)
				So(stimuli[1].Expected, ShouldEqual, model.AnswerNo)
				So(responses[0].Index, ShouldEqual, 0)
				So(transcripts[0], ShouldEqual, "yes")
			})
		})

		Convey("When every field is broken", func() {
			req.Stimuli[0].Expected = "maybe"
			req.Stimuli[1].OnsetSec = -1
			req.Responses[0].EndSec = 0.5
			req.Transcripts = map[string]string{"x": "yes", "4": "no"}
			_, _, _, err := req.ToDomain()

			Convey("Then all problems are reported", func() {
				So(errors.Is(err, types.ErrInvalidRequest), ShouldBeTrue)
				So(errors.Is(err, model.ErrInvalidAnswer), ShouldBeTrue)
				So(err.Error(), ShouldContainSubstring, "stimulus 1")
				So(err.Error(), ShouldContainSubstring, "response 0")
				So(err.Error(), ShouldContainSubstring, `"x"`)
				So(err.Error(), ShouldContainSubstring, `"4"`)
			})
		})

		Convey("When there are no stimuli", func() {
			req.Stimuli = nil
			_, _, _, err := req.ToDomain()
			So(errors.Is(err, types.ErrInvalidRequest), ShouldBeTrue)
		})
	})
}

func TestFromSession(t *testing.T) {
	Convey("Given a session with one matched and one missed stimulus", t, func() {
		stim := model.StimulusEvent{Index: 0, Hour: 3, Minute: 15, Expected: model.AnswerYes, OnsetSec: 0}
		matched := model.Match{
			Stimulus:    stim,
			Response:    &model.ResponseEvent{Index: 2, OnsetSec: 1.25},
			ReactionSec: 1.25,
			Transcript:  "YES",
			Accuracy:    model.AccuracyTrue,
			OnTime:      true,
		}
		stim.Index = 1
		missed := model.NewUnmatched(stim, model.MissBeyondRecording)
		sess := model.Session{ID: "abc", CreatedAt: time.Unix(0, 0).UTC(), Records: []model.Match{matched, missed}}

		Convey("When rendered", func() {
			out := types.FromSession(sess, "scored")

			Convey("Then matched values are present", func() {
				So(out.SessionID, ShouldEqual, "abc")
				So(out.Status, ShouldEqual, "scored")
				So(*out.Records[0].ResponseIndex, ShouldEqual, 2)
				So(*out.Records[0].ReactionSec, ShouldEqual, 1.25)
				So(out.Records[0].Accuracy, ShouldEqual, "TRUE")
				So(out.Records[0].Miss, ShouldEqual, "")
				So(*out.Summary.MeanReactionSec, ShouldEqual, 1.25)
			})

			Convey("Then absent values are null rather than sentinels", func() {
				rec := out.Records[1]
				So(rec.ResponseIndex, ShouldBeNil)
				So(rec.ReactionSec, ShouldBeNil)
				So(rec.Transcript, ShouldEqual, "N/A")
				So(rec.Accuracy, ShouldEqual, "N/A")
				So(rec.Miss, ShouldEqual, "beyond_recording")

				raw, err := json.Marshal(rec)
				So(err, ShouldBeNil)
				So(string(raw), ShouldContainSubstring, `"reaction_sec":null`)
			})
		})

		Convey("When nothing has a reaction", func() {
			out := types.FromSession(model.Session{Records: []model.Match{missed}}, "scored")
			So(out.Summary.MeanReactionSec, ShouldBeNil)
			So(math.IsNaN(model.Summarize(nil).MeanReactionSec), ShouldBeTrue)
		})
	})
}
