package model_test

import (
	"errors"
	"math"
	"testing"

	model "github.com/okian/clockread/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestParseAnswer(t *testing.T) {
	convey.Convey("Given answer strings from a stimulus table", t, func() {
		convey.Convey("When parsing valid spellings", func() {
			yes, errYes := model.ParseAnswer(" yes ")
			no, errNo := model.ParseAnswer("No")

			convey.Convey("Then they map to the enum", func() {
				convey.So(errYes, convey.ShouldBeNil)
				convey.So(errNo, convey.ShouldBeNil)
				convey.So(yes, convey.ShouldEqual, model.AnswerYes)
				convey.So(no, convey.ShouldEqual, model.AnswerNo)
				convey.So(yes.String(), convey.ShouldEqual, "Yes")
				convey.So(no.Token(), convey.ShouldEqual, "NO")
			})
		})

		convey.Convey("When parsing garbage", func() {
			_, err := model.ParseAnswer("maybe")

			convey.Convey("Then it fails with ErrInvalidAnswer", func() {
				convey.So(errors.Is(err, model.ErrInvalidAnswer), convey.ShouldBeTrue)
			})
		})
	})
}

func TestMatch(t *testing.T) {
	convey.Convey("Given an unmatched record", t, func() {
		s := model.StimulusEvent{Index: 2, Hour: 3, Minute: 15, Expected: model.AnswerYes, OnsetSec: 5}
		m := model.NewUnmatched(s, model.MissBeyondRecording)

		convey.So(m.Matched(), convey.ShouldBeFalse)
		convey.So(m.HasReaction(), convey.ShouldBeFalse)
		convey.So(m.Accuracy, convey.ShouldEqual, model.AccuracyNA)
		convey.So(m.Accuracy.String(), convey.ShouldEqual, "N/A")
		convey.So(m.Miss.String(), convey.ShouldEqual, "beyond_recording")
		_, ok := m.ResponseIndex()
		convey.So(ok, convey.ShouldBeFalse)

		convey.Convey("When a response is attached and later dropped", func() {
			m.Response = &model.ResponseEvent{Index: 4, OnsetSec: 5.5, EndSec: 6}
			m.ReactionSec = 0.5
			m.Miss = model.MissNone
			m.EchoRejected = 1
			idx, ok := m.ResponseIndex()

			convey.So(ok, convey.ShouldBeTrue)
			convey.So(idx, convey.ShouldEqual, 4)

			dropped := m.Unmatch(model.MissLatencyExceeded)

			convey.Convey("Then derived fields reset but the echo count survives", func() {
				convey.So(dropped.Matched(), convey.ShouldBeFalse)
				convey.So(math.IsNaN(dropped.ReactionSec), convey.ShouldBeTrue)
				convey.So(dropped.Miss, convey.ShouldEqual, model.MissLatencyExceeded)
				convey.So(dropped.EchoRejected, convey.ShouldEqual, 1)
				convey.So(dropped.Stimulus, convey.ShouldResemble, s)
			})
		})
	})
}

func TestSummarize(t *testing.T) {
	convey.Convey("Given a mix of records", t, func() {
		stim := model.StimulusEvent{Expected: model.AnswerYes}
		resp := &model.ResponseEvent{Index: 0, OnsetSec: 1}
		records := []model.Match{
			{Stimulus: stim, Response: resp, ReactionSec: 1, Accuracy: model.AccuracyTrue, OnTime: true},
			{Stimulus: stim, Response: resp, ReactionSec: 3, Accuracy: model.AccuracyFalse, EchoRejected: 2},
			{Stimulus: stim, Response: resp, ReactionSec: 2},
			model.NewUnmatched(stim, model.MissNoResponse),
		}

		convey.Convey("When summarized", func() {
			s := model.Summarize(records)

			convey.Convey("Then each outcome is counted", func() {
				convey.So(s.Stimuli, convey.ShouldEqual, 4)
				convey.So(s.Matched, convey.ShouldEqual, 3)
				convey.So(s.Correct, convey.ShouldEqual, 1)
				convey.So(s.Incorrect, convey.ShouldEqual, 1)
				convey.So(s.Unintelligible, convey.ShouldEqual, 1)
				convey.So(s.OnTime, convey.ShouldEqual, 1)
				convey.So(s.EchoRejected, convey.ShouldEqual, 2)
				convey.So(s.MeanReactionSec, convey.ShouldAlmostEqual, 2.0, 1e-9)
			})
		})

		convey.Convey("When nothing was matched", func() {
			s := model.Summarize([]model.Match{model.NewUnmatched(stim, model.MissBeyondRecording)})

			convey.Convey("Then the mean reaction is NaN", func() {
				convey.So(math.IsNaN(s.MeanReactionSec), convey.ShouldBeTrue)
			})
		})
	})
}
