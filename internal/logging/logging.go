// Package logging builds the zerolog logger of the hcm command.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/grafana/loki-client-go/loki"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"

	"github.com/timzifer/hcm/internal/config"
)

// Setup creates a zerolog logger according to the provided configuration.
// Entries go to out, or to stderr when out is nil. The returned cleanup
// flushes pending Loki batches.
func Setup(cfg config.LoggingConfig, out io.Writer) (zerolog.Logger, func(), error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}

	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "text") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	writers := []io.Writer{out}
	cleanup := func() {}

	if cfg.Loki.Enabled {
		client, err := newLokiClient(cfg.Loki)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		writers = append(writers, newLokiWriter(client, cfg.Loki.Labels))
		cleanup = client.Stop
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger().Level(level)
	return logger, cleanup, nil
}

func parseLevel(raw string) (zerolog.Level, error) {
	if strings.TrimSpace(raw) == "" {
		return zerolog.InfoLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("parse log level: %w", err)
	}
	return level, nil
}

func newLokiClient(cfg config.LokiConfig) (*loki.Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("loki url is required")
	}
	lokiCfg, err := loki.NewDefaultConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("prepare loki config: %w", err)
	}
	client, err := loki.New(lokiCfg)
	if err != nil {
		return nil, fmt.Errorf("create loki client: %w", err)
	}
	return client, nil
}

type entryHandler interface {
	Handle(labels model.LabelSet, t time.Time, entry string) error
}

// lokiWriter pushes every log line as a Loki entry. Lines are streamed per
// level so warnings can be queried without parsing the payload.
type lokiWriter struct {
	handler entryHandler
	labels  model.LabelSet
}

func newLokiWriter(handler entryHandler, labels map[string]string) *lokiWriter {
	set := model.LabelSet{}
	for k, v := range labels {
		set[model.LabelName(k)] = model.LabelValue(v)
	}
	if _, ok := set["app"]; !ok {
		set["app"] = "hcm"
	}
	return &lokiWriter{handler: handler, labels: set}
}

func (l *lokiWriter) Write(p []byte) (int, error) {
	return l.push(l.labels, p)
}

// WriteLevel implements zerolog.LevelWriter.
func (l *lokiWriter) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level == zerolog.NoLevel {
		return l.push(l.labels, p)
	}
	labels := l.labels.Clone()
	labels["level"] = model.LabelValue(level.String())
	return l.push(labels, p)
}

func (l *lokiWriter) push(labels model.LabelSet, p []byte) (int, error) {
	entry := strings.TrimSpace(string(p))
	if entry == "" {
		return len(p), nil
	}
	err := l.handler.Handle(labels, time.Now(), entry)
	return len(p), err
}
