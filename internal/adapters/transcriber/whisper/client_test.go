package whisper_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/clockread/internal/adapters/transcriber/whisper"
	"github.com/okian/clockread/internal/domain/classify"
	logging "github.com/okian/clockread/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logging.Init(); err != nil {
		panic(err)
	}
}

var clip = classify.Clip{ResponseIndex: 4, WAV: []byte("RIFF....WAVEfmt ")}

func newClient(url string, opts ...whisper.Option) *whisper.Client {
	opts = append([]whisper.Option{whisper.WithRetries(2, time.Millisecond)}, opts...)
	c, err := whisper.New(url, opts...)
	So(err, ShouldBeNil)
	return c
}

func TestTranscribe(t *testing.T) {
	ctx := context.Background()

	Convey("Given a transcription service", t, func() {
		var calls atomic.Int32
		var status atomic.Int32
		status.Store(http.StatusOK)
		var reply atomic.Value
		reply.Store(`{"text":" Yes. ","language":"en"}`)

		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			if r.URL.Path != "/asr" || r.Method != http.MethodPost {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			if r.URL.Query().Get("task") != "transcribe" || r.URL.Query().Get("output") != "json" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f, _, err := r.FormFile("audio_file")
			if err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			data, _ := io.ReadAll(f)
			if string(data) != string(clip.WAV) {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			code := int(status.Load())
			w.WriteHeader(code)
			if code == http.StatusOK {
				_, _ = w.Write([]byte(reply.Load().(string)))
			}
		}))
		defer srv.Close()

		Convey("A recognized word is returned", func() {
			text, err := newClient(srv.URL, whisper.WithHTTPClient(srv.Client())).Transcribe(ctx, clip)
			So(err, ShouldBeNil)
			So(classify.FirstToken(text), ShouldEqual, "YES")
			So(calls.Load(), ShouldEqual, 1)
		})

		Convey("Empty text is unintelligible", func() {
			reply.Store(`{"text":"   "}`)
			_, err := newClient(srv.URL).Transcribe(ctx, clip)
			So(errors.Is(err, classify.ErrUnintelligible), ShouldBeTrue)
		})

		Convey("Plain text replies are accepted", func() {
			reply.Store("no")
			text, err := newClient(srv.URL).Transcribe(ctx, clip)
			So(err, ShouldBeNil)
			So(text, ShouldEqual, "no")
		})

		Convey("Server errors are retried", func() {
			status.Store(http.StatusServiceUnavailable)
			_, err := newClient(srv.URL).Transcribe(ctx, clip)
			So(errors.Is(err, whisper.ErrStatus), ShouldBeTrue)
			So(calls.Load(), ShouldEqual, 3)
		})

		Convey("Backoff waits end with the caller's context", func() {
			status.Store(http.StatusServiceUnavailable)
			cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
			defer cancel()
			start := time.Now()
			_, err := newClient(srv.URL, whisper.WithRetries(5, time.Second)).Transcribe(cctx, clip)
			So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			So(calls.Load(), ShouldEqual, 1)
			So(time.Since(start), ShouldBeLessThan, time.Second)
		})

		Convey("Client errors are not retried", func() {
			status.Store(http.StatusUnprocessableEntity)
			_, err := newClient(srv.URL).Transcribe(ctx, clip)
			So(errors.Is(err, whisper.ErrStatus), ShouldBeTrue)
			So(calls.Load(), ShouldEqual, 1)
		})

		Convey("A clip without audio is refused", func() {
			_, err := newClient(srv.URL).Transcribe(ctx, classify.Clip{ResponseIndex: 1})
			So(errors.Is(err, whisper.ErrNoAudio), ShouldBeTrue)
			So(calls.Load(), ShouldEqual, 0)
		})
	})

	Convey("Given a service that never answers in time", t, func() {
		release := make(chan struct{})
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.Copy(io.Discard, r.Body)
			select {
			case <-r.Context().Done():
			case <-release:
			}
		}))
		defer srv.Close()
		defer close(release)

		Convey("Each attempt is bounded by the timeout", func() {
			c := newClient(srv.URL, whisper.WithTimeout(20*time.Millisecond), whisper.WithRetries(1, time.Millisecond))
			start := time.Now()
			_, err := c.Transcribe(ctx, clip)
			So(err, ShouldNotBeNil)
			So(time.Since(start), ShouldBeLessThan, 2*time.Second)
		})
	})

	Convey("Invalid base URLs are rejected", t, func() {
		_, err := whisper.New("not a url")
		So(errors.Is(err, whisper.ErrInvalidURL), ShouldBeTrue)
	})
}
