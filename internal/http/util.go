package httpx

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/target/adsync/internal/domain/model"
	apperrors "github.com/target/adsync/internal/errors"
)

const (
	defaultEventsLimit = 20
	maxEventsLimit     = 200
)

// queryInt reads an integer query param. Missing or malformed values yield def.
func queryInt(q url.Values, key string, def int) int {
	v := q.Get(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// clampInt bounds v to [lo, hi].
func clampInt(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

// parseEventQuery turns events query params into list options. Limit and offset are
// clamped; unknown source or severity values are validation errors.
func parseEventQuery(r *http.Request) (model.SchedulerEventListOptions, error) {
	q := r.URL.Query()
	opts := model.SchedulerEventListOptions{
		Limit:  clampInt(queryInt(q, "limit", defaultEventsLimit), 1, maxEventsLimit),
		Offset: max(queryInt(q, "offset", 0), 0),
	}

	if v := q.Get("source"); v != "" {
		src := model.EventSource(v)
		if !src.Valid() {
			return opts, apperrors.ValidationField("source", "source must be one of: worker, cron")
		}
		opts.Source = &src
	}
	if v := q.Get("minSeverity"); v != "" {
		sev := model.Severity(v)
		if !sev.Valid() {
			return opts, apperrors.ValidationField("minSeverity", "minSeverity must be one of: info, warning, critical")
		}
		opts.MinSeverity = &sev
	}
	return opts, nil
}
