package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf)), ShouldBeNil)
		defer func() { _ = Sync() }()

		Convey("Then Get returns a usable logger", func() {
			l := Get()
			So(l, ShouldNotBeNil)
			l.Info(context.Background(), "hello", String("k", "v"))
			So(buf.String(), ShouldContainSubstring, "hello")
			So(buf.String(), ShouldContainSubstring, "k=v")
			So(buf.String(), ShouldContainSubstring, "source=")
		})

		Convey("And debug records are suppressed at info level", func() {
			Get().Debug(context.Background(), "hidden")
			So(buf.String(), ShouldNotContainSubstring, "hidden")
		})

		Convey("And raising the level to debug lets them through", func() {
			So(SetLevelString("DEBUG"), ShouldBeNil)
			Get().Debug(context.Background(), "visible")
			So(buf.String(), ShouldContainSubstring, "visible")
			So(SetLevelString("info"), ShouldBeNil)
		})

		Convey("And unknown levels are rejected", func() {
			So(SetLevelString("loud"), ShouldNotBeNil)
		})
	})
}

func TestLoggerJSON(t *testing.T) {
	Convey("Given a JSON logger without source", t, func() {
		var buf bytes.Buffer
		So(Init(WithOutput(&buf), WithFormat(FormatJSON), WithSource(false)), ShouldBeNil)

		Convey("When logging through a named logger with fields", func() {
			Named("ingest").With(String("location", "animals.csv")).Warn(context.Background(), "empty", Int("rows", 0))

			Convey("Then the record is valid JSON with the group", func() {
				var rec map[string]any
				So(json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &rec), ShouldBeNil)
				So(rec["msg"], ShouldEqual, "empty")
				group, ok := rec["ingest"].(map[string]any)
				So(ok, ShouldBeTrue)
				So(group["location"], ShouldEqual, "animals.csv")
				So(group["rows"], ShouldEqual, float64(0))
				So(rec, ShouldNotContainKey, "source")
			})
		})
	})
}

func TestNopLogger(t *testing.T) {
	Convey("Given a nop logger", t, func() {
		l := NewNop()
		Convey("Then logging does not panic", func() {
			So(func() {
				l.Error(context.Background(), "boom", Error(nil))
				l.Named("x").With(Bool("b", true)).Info(context.Background(), "ok")
			}, ShouldNotPanic)
		})
	})
}
