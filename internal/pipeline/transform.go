package pipeline

import (
	"log/slog"
	"sync/atomic"

	"github.com/couchcryptid/ecowitt-ingest/internal/domain"
)

// WeatherTransformer implements Transformer using the domain normalizer with
// a wind chill mode that can be switched at runtime.
type WeatherTransformer struct {
	mode   atomic.Int32
	logger *slog.Logger
}

// NewTransformer creates a WeatherTransformer. An invalid name is logged and
// the default mode used instead.
func NewTransformer(windchill string, logger *slog.Logger) *WeatherTransformer {
	t := &WeatherTransformer{logger: logger}
	t.mode.Store(int32(domain.DefaultWindchillMode))
	if windchill != "" {
		_ = t.SetWindchillMode(windchill)
	}
	return t
}

func (t *WeatherTransformer) Transform(raw domain.RawRecord) domain.Result {
	return domain.Normalize(raw, t.WindchillMode())
}

// WindchillMode returns the mode applied to the next report.
func (t *WeatherTransformer) WindchillMode() domain.WindchillMode {
	return domain.WindchillMode(t.mode.Load())
}

// SetWindchillMode switches the wind chill formula. Unknown names return
// domain.ErrUnknownWindchill and leave the current mode in place.
func (t *WeatherTransformer) SetWindchillMode(name string) error {
	mode, err := domain.ParseWindchillMode(name)
	if err != nil {
		t.logger.Warn("ignoring windchill mode", "mode", name, "current", t.WindchillMode().String(), "error", err)
		return err
	}
	prev := domain.WindchillMode(t.mode.Swap(int32(mode)))
	if prev != mode {
		t.logger.Info("windchill mode changed", "from", prev.String(), "to", mode.String())
	}
	return nil
}
