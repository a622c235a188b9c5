package logger

import (
	"fmt"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/raaihank/loggov/internal/governance"
)

// governedCore applies the active governance config to every entry before
// handing it to the wrapped core. Context fields added through With are kept
// here rather than in the inner core so they are governed too.
type governedCore struct {
	inner     zapcore.Core
	store     *governance.Store
	observers governance.Observers
	context   []zapcore.Field
}

// NewGovernedCore wraps inner so that messages and text-valued fields are
// redacted, blocked or passed according to store. The inner core must not
// feed back into a governed logger.
func NewGovernedCore(inner zapcore.Core, store *governance.Store, observers ...governance.Observer) zapcore.Core {
	return &governedCore{
		inner:     inner,
		store:     store,
		observers: observers,
	}
}

func (c *governedCore) Enabled(level zapcore.Level) bool {
	return c.inner.Enabled(level)
}

func (c *governedCore) With(fields []zapcore.Field) zapcore.Core {
	ctx := make([]zapcore.Field, 0, len(c.context)+len(fields))
	ctx = append(ctx, c.context...)
	ctx = append(ctx, fields...)
	return &governedCore{
		inner:     c.inner,
		store:     c.store,
		observers: c.observers,
		context:   ctx,
	}
}

func (c *governedCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *governedCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	cfg := c.store.Config()

	all := make([]zapcore.Field, 0, len(c.context)+len(fields))
	all = append(all, c.context...)
	all = append(all, fields...)

	start := time.Now()
	msg, err := governance.Apply(governance.String(ent.Message), cfg)
	if err != nil {
		return fmt.Errorf("govern log message: %w", err)
	}
	c.observers.ObserveResult(msg, time.Since(start))
	if s, ok := msg.Payload.(governance.String); ok {
		ent.Message = string(s)
	}

	governed, err := c.governFields(cfg, all)
	if err != nil {
		return err
	}

	if required := cfg.RequiredFields(); len(required) > 0 {
		present := make(governance.Fields, len(all))
		for _, f := range all {
			present[f.Key] = governance.Null{}
		}
		if res := cfg.Validate(present); !res.Valid {
			c.observers.ObserveViolation(res)
		}
	}

	return c.inner.Write(ent, governed)
}

// governFields governs every text-valued field as one Fields payload. A key
// repeated within an entry is governed on its own so that each occurrence
// keeps its own value.
func (c *governedCore) governFields(cfg *governance.Config, all []zapcore.Field) ([]zapcore.Field, error) {
	payload := make(governance.Fields)
	var repeats []int
	for i, f := range all {
		text, ok := fieldText(f)
		if !ok {
			continue
		}
		if _, dup := payload[f.Key]; dup {
			repeats = append(repeats, i)
			continue
		}
		payload[f.Key] = governance.String(text)
	}
	if len(payload) == 0 {
		return all, nil
	}

	start := time.Now()
	res, err := governance.Apply(payload, cfg)
	if err != nil {
		return nil, fmt.Errorf("govern log fields: %w", err)
	}
	c.observers.ObserveResult(res, time.Since(start))

	out := make([]zapcore.Field, len(all))
	copy(out, all)

	governed, _ := res.Payload.(governance.Fields)
	firstSeen := make(map[string]bool, len(payload))
	for i, f := range out {
		if _, ok := payload[f.Key]; !ok || firstSeen[f.Key] {
			continue
		}
		if _, ok := fieldText(f); !ok {
			continue
		}
		firstSeen[f.Key] = true
		if s, ok := governed[f.Key].(governance.String); ok {
			out[i] = textField(f.Key, string(s))
		}
	}

	for _, i := range repeats {
		text, _ := fieldText(out[i])
		start := time.Now()
		single, err := governance.Apply(governance.String(text), cfg)
		if err != nil {
			return nil, fmt.Errorf("govern log field %q: %w", out[i].Key, err)
		}
		for j := range single.Findings {
			single.Findings[j].Field = out[i].Key
		}
		c.observers.ObserveResult(single, time.Since(start))
		if s, ok := single.Payload.(governance.String); ok {
			out[i] = textField(out[i].Key, string(s))
		}
	}

	return out, nil
}

func (c *governedCore) Sync() error {
	return c.inner.Sync()
}

// fieldText returns the text of fields whose encoded form is a string.
func fieldText(f zapcore.Field) (string, bool) {
	switch f.Type {
	case zapcore.StringType:
		return f.String, true
	case zapcore.ByteStringType:
		b, ok := f.Interface.([]byte)
		return string(b), ok
	case zapcore.ErrorType, zapcore.StringerType:
		// fmt recovers from panicking Error and String methods
		return fmt.Sprint(f.Interface), f.Interface != nil
	default:
		return "", false
	}
}

func textField(key, value string) zapcore.Field {
	return zapcore.Field{Key: key, Type: zapcore.StringType, String: value}
}
