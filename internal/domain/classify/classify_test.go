package classify_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/okian/clockread/internal/domain/classify"
	"github.com/okian/clockread/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type stubTranscriber struct {
	text  string
	err   error
	clips []classify.Clip
}

func (s *stubTranscriber) Transcribe(_ context.Context, clip classify.Clip) (string, error) {
	s.clips = append(s.clips, clip)
	return s.text, s.err
}

type stubClips struct {
	err   error
	calls int
}

func (s *stubClips) Clip(_ context.Context, idx int) ([]byte, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []byte{byte(idx)}, nil
}

func matched(expected model.Answer) model.Match {
	return model.Match{
		Stimulus:    model.StimulusEvent{Index: 4, Hour: 9, Minute: 30, Expected: expected, OnsetSec: 10},
		Response:    &model.ResponseEvent{Index: 2, OnsetSec: 11.2, EndSec: 11.6},
		ReactionSec: 1.2,
	}
}

func TestFirstToken(t *testing.T) {
	Convey("FirstToken", t, func() {
		So(classify.FirstToken("yes it is"), ShouldEqual, "YES")
		So(classify.FirstToken("  No.  "), ShouldEqual, "NO")
		So(classify.FirstToken("\"Yes!\" she said"), ShouldEqual, "YES")
		So(classify.FirstToken("maybe"), ShouldEqual, "MAYBE")
		So(classify.FirstToken(""), ShouldEqual, "")
		So(classify.FirstToken(" \t "), ShouldEqual, "")
	})
}

func TestGrade(t *testing.T) {
	Convey("Grade", t, func() {
		So(classify.Grade("YES", model.AnswerYes), ShouldEqual, model.AccuracyTrue)
		So(classify.Grade("NO", model.AnswerNo), ShouldEqual, model.AccuracyTrue)
		So(classify.Grade("YES", model.AnswerNo), ShouldEqual, model.AccuracyFalse)
		So(classify.Grade("NO", model.AnswerYes), ShouldEqual, model.AccuracyFalse)
		So(classify.Grade("YEAH", model.AnswerYes), ShouldEqual, model.AccuracyFalse)
		So(classify.Grade("", model.AnswerYes), ShouldEqual, model.AccuracyNA)
		So(classify.Grade("UNKNOWN", model.Answer(0)), ShouldEqual, model.AccuracyFalse)
	})
}

func TestClassifier(t *testing.T) {
	ctx := context.Background()

	Convey("Given a classifier with a clip source", t, func() {
		tr := &stubTranscriber{text: "yes"}
		clips := &stubClips{}
		c, err := classify.New(tr, classify.WithClipSource(clips))
		So(err, ShouldBeNil)

		Convey("A correct answer is graded TRUE", func() {
			out := c.Classify(ctx, matched(model.AnswerYes))
			So(out.Transcript, ShouldEqual, "YES")
			So(out.Accuracy, ShouldEqual, model.AccuracyTrue)
			So(out.ReactionSec, ShouldEqual, 1.2)
			So(tr.clips, ShouldHaveLength, 1)
			So(tr.clips[0].ResponseIndex, ShouldEqual, 2)
			So(tr.clips[0].WAV, ShouldResemble, []byte{2})
		})

		Convey("A wrong answer is graded FALSE", func() {
			out := c.Classify(ctx, matched(model.AnswerNo))
			So(out.Accuracy, ShouldEqual, model.AccuracyFalse)
		})

		Convey("Unmatched records are left alone", func() {
			in := model.NewUnmatched(matched(model.AnswerYes).Stimulus, model.MissNoResponse)
			out := c.Classify(ctx, in)
			So(out.Accuracy, ShouldEqual, model.AccuracyNA)
			So(out.Transcript, ShouldEqual, "")
			So(math.IsNaN(out.ReactionSec), ShouldBeTrue)
			So(clips.calls, ShouldEqual, 0)
			So(tr.clips, ShouldBeEmpty)
		})

		Convey("An unintelligible clip keeps the reaction time", func() {
			tr.text, tr.err = "", classify.ErrUnintelligible
			out := c.Classify(ctx, matched(model.AnswerYes))
			So(out.Accuracy, ShouldEqual, model.AccuracyNA)
			So(out.Transcript, ShouldEqual, "")
			So(out.ReactionSec, ShouldEqual, 1.2)
			So(out.Matched(), ShouldBeTrue)
		})

		Convey("Empty text counts as unintelligible", func() {
			tr.text = "   "
			out := c.Classify(ctx, matched(model.AnswerYes))
			So(out.Accuracy, ShouldEqual, model.AccuracyNA)
		})

		Convey("A transcriber failure does not fail the record", func() {
			tr.err = errors.New("connection refused")
			out := c.Classify(ctx, matched(model.AnswerYes))
			So(out.Accuracy, ShouldEqual, model.AccuracyNA)
			So(out.ReactionSec, ShouldEqual, 1.2)
		})

		Convey("A clip failure skips transcription", func() {
			clips.err = errors.New("out of range")
			out := c.Classify(ctx, matched(model.AnswerYes))
			So(out.Accuracy, ShouldEqual, model.AccuracyNA)
			So(tr.clips, ShouldBeEmpty)
		})
	})

	Convey("New requires a transcriber", t, func() {
		_, err := classify.New(nil)
		So(errors.Is(err, classify.ErrNoTranscriber), ShouldBeTrue)
	})
}

func TestTableTranscriber(t *testing.T) {
	Convey("Given a table transcriber", t, func() {
		tt := classify.NewTableTranscriber(map[int]string{0: "No", 1: " "})
		ctx := context.Background()

		Convey("Known entries are returned", func() {
			text, err := tt.Transcribe(ctx, classify.Clip{ResponseIndex: 0})
			So(err, ShouldBeNil)
			So(text, ShouldEqual, "No")
		})

		Convey("Blank and missing entries are unintelligible", func() {
			_, err := tt.Transcribe(ctx, classify.Clip{ResponseIndex: 1})
			So(errors.Is(err, classify.ErrUnintelligible), ShouldBeTrue)
			_, err = tt.Transcribe(ctx, classify.Clip{ResponseIndex: 7})
			So(errors.Is(err, classify.ErrUnintelligible), ShouldBeTrue)
		})

		Convey("Set adds an entry", func() {
			tt.Set(7, "yes")
			text, err := tt.Transcribe(ctx, classify.Clip{ResponseIndex: 7})
			So(err, ShouldBeNil)
			So(text, ShouldEqual, "yes")
		})
	})
}
