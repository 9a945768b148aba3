// Package flagfeed reads the source's public experimentation endpoints into a flat snapshot.
package flagfeed

import (
	"context"
	"encoding/json"
	"time"

	"FarePull/internal/domain/models"
	drepo "FarePull/internal/domain/repository"
	xhttp "FarePull/pkg/http"
	applogger "FarePull/pkg/logger"
)

type Config struct {
	Endpoints []string
	Timeout   time.Duration
}

// Feed implements repository.FlagSource. Every endpoint contributes a
// status:<url> key; JSON object bodies also contribute endpoint:<key> per
// top-level field. A failing endpoint is recorded with a nil status.
type Feed struct {
	endpoints []string
	http      *xhttp.Client
	l         *applogger.Logger
}

var _ drepo.FlagSource = (*Feed)(nil)

func New(cfg Config, l *applogger.Logger) *Feed {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Feed{
		endpoints: cfg.Endpoints,
		http:      xhttp.NewClient(xhttp.WithTimeout(cfg.Timeout)),
		l:         l,
	}
}

func (f *Feed) Snapshot(ctx context.Context) (models.FlagSnapshot, error) {
	snap := make(models.FlagSnapshot)
	for _, url := range f.endpoints {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f.read(ctx, url, snap)
	}
	return snap, nil
}

func (f *Feed) read(ctx context.Context, url string, snap models.FlagSnapshot) {
	statusKey := "status:" + url

	var body []byte
	err := f.http.SendAndParse(ctx, &xhttp.RequestOptions{Method: xhttp.MethodGet, URL: url}, &body)
	if err != nil {
		if se, ok := xhttp.AsStatusError(err); ok {
			snap[statusKey] = se.Code
			f.l.Debug("flag endpoint answered non-2xx", applogger.String("url", url), applogger.Int("status", se.Code))
			return
		}
		snap[statusKey] = nil
		f.l.Warn("flag endpoint unreachable", applogger.String("url", url), applogger.Error(err))
		return
	}
	snap[statusKey] = 200

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		return
	}
	for k, v := range doc {
		snap["endpoint:"+k] = v
	}
}
