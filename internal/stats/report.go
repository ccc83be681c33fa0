package stats

import (
	"context"

	"github.com/verte-zerg/roomtrack/internal/model"
	"github.com/verte-zerg/roomtrack/internal/session"
	"github.com/verte-zerg/roomtrack/internal/store"
)

// Report contains precomputed data for stats rendering.
type Report struct {
	Sessions []model.SessionSummary
	Session  *session.PracticeSession
}

// BuildReport loads the session listing and the session selected by cfg.
// Without an explicit SessionID the most recent listed session is loaded.
func BuildReport(ctx context.Context, st *store.Store, cfg model.StatsConfig) (Report, error) {
	sessions, err := st.ListSessions(ctx, cfg)
	if err != nil {
		return Report{}, err
	}
	if cfg.Last > 0 && len(sessions) > cfg.Last {
		sessions = sessions[len(sessions)-cfg.Last:]
	}

	id := cfg.SessionID
	if id == "" {
		if len(sessions) == 0 {
			return Report{Sessions: sessions}, nil
		}
		id = sessions[len(sessions)-1].ID
	}
	sess, err := st.LoadSession(ctx, id)
	if err != nil {
		return Report{Sessions: sessions}, err
	}
	return Report{Sessions: sessions, Session: sess}, nil
}
