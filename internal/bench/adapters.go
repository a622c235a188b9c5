package bench

import (
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"time"

	"github.com/rs/zerolog"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/raaihank/loggov/internal/governance"
	"github.com/raaihank/loggov/internal/logger"
)

// Variant selects how a record is shaped.
type Variant string

const (
	// VariantPlain logs a template message with a structured time field.
	VariantPlain Variant = "plain"
	// VariantEncoded logs the formatted line base64-encoded as the message.
	VariantEncoded Variant = "encoded"
)

// LogFunc emits one record stamped with now.
type LogFunc func(now time.Time)

// Adapter builds a logger under test.
type Adapter struct {
	Name     string
	Library  string
	Variant  Variant
	Baseline bool
	New      func(w io.Writer) LogFunc
}

// Adapters lists every logger under comparison. slog/plain is the baseline.
func Adapters() []Adapter {
	return []Adapter{
		{Name: "slog/plain", Library: "slog", Variant: VariantPlain, Baseline: true, New: newSlog(VariantPlain)},
		{Name: "slog/encoded", Library: "slog", Variant: VariantEncoded, New: newSlog(VariantEncoded)},
		{Name: "zap/plain", Library: "zap", Variant: VariantPlain, New: newZap(VariantPlain, false)},
		{Name: "zap/encoded", Library: "zap", Variant: VariantEncoded, New: newZap(VariantEncoded, false)},
		{Name: "zerolog/plain", Library: "zerolog", Variant: VariantPlain, New: newZerolog(VariantPlain)},
		{Name: "zerolog/encoded", Library: "zerolog", Variant: VariantEncoded, New: newZerolog(VariantEncoded)},
		{Name: "logrus/plain", Library: "logrus", Variant: VariantPlain, New: newLogrus(VariantPlain)},
		{Name: "logrus/encoded", Library: "logrus", Variant: VariantEncoded, New: newLogrus(VariantEncoded)},
		{Name: "governed/plain", Library: "governed zap", Variant: VariantPlain, New: newZap(VariantPlain, true)},
		{Name: "governed/encoded", Library: "governed zap", Variant: VariantEncoded, New: newZap(VariantEncoded, true)},
	}
}

// Filter keeps the adapters whose name matches pattern. An empty pattern
// keeps all of them.
func Filter(adapters []Adapter, pattern string) ([]Adapter, error) {
	if pattern == "" {
		return adapters, nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}

	var out []Adapter
	for _, a := range adapters {
		if re.MatchString(a.Name) {
			out = append(out, a)
		}
	}
	return out, nil
}

func template(library string) string {
	return library + ": Logging at {time}"
}

func encoded(library string, now time.Time) string {
	line := fmt.Sprintf("%s: Logging at %s", library, now.UTC().Format(time.RFC3339Nano))
	return base64.StdEncoding.EncodeToString([]byte(line))
}

func newSlog(v Variant) func(io.Writer) LogFunc {
	return func(w io.Writer) LogFunc {
		l := slog.New(slog.NewJSONHandler(w, nil))
		if v == VariantEncoded {
			return func(now time.Time) { l.Info(encoded("slog", now)) }
		}
		msg := template("slog")
		return func(now time.Time) { l.Info(msg, slog.Time("time", now)) }
	}
}

func newZap(v Variant, governed bool) func(io.Writer) LogFunc {
	library := "zap"
	if governed {
		library = "governed zap"
	}
	return func(w io.Writer) LogFunc {
		var core zapcore.Core = zapcore.NewCore(
			zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
			zapcore.AddSync(w),
			zapcore.InfoLevel,
		)
		if governed {
			core = logger.NewGovernedCore(core, governance.NewStore(nil))
		}
		l := zap.New(core)
		if v == VariantEncoded {
			return func(now time.Time) { l.Info(encoded(library, now)) }
		}
		msg := template(library)
		return func(now time.Time) { l.Info(msg, zap.Time("time", now)) }
	}
}

func newZerolog(v Variant) func(io.Writer) LogFunc {
	return func(w io.Writer) LogFunc {
		l := zerolog.New(w)
		if v == VariantEncoded {
			l = l.With().Timestamp().Logger()
			return func(now time.Time) { l.Info().Msg(encoded("zerolog", now)) }
		}
		// the time field doubles as the record timestamp
		msg := template("zerolog")
		return func(now time.Time) { l.Info().Time("time", now).Msg(msg) }
	}
}

func newLogrus(v Variant) func(io.Writer) LogFunc {
	return func(w io.Writer) LogFunc {
		l := logrus.New()
		l.SetOutput(w)
		l.SetFormatter(&logrus.JSONFormatter{})
		if v == VariantEncoded {
			return func(now time.Time) { l.Info(encoded("logrus", now)) }
		}
		msg := template("logrus")
		return func(now time.Time) { l.WithField("time", now).Info(msg) }
	}
}
