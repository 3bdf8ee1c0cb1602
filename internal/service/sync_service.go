package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dafibh/contribboard/contribboard-backend/internal/domain"
	"github.com/dafibh/contribboard/contribboard-backend/internal/repository/fallback"
	"github.com/rs/zerolog/log"
)

// MsgNothingToSync is reported when the local store is empty
const MsgNothingToSync = "No local changes to sync."

// SyncFailure is one identifier that could not be pushed
type SyncFailure struct {
	USN   string `json:"usn"`
	Error string `json:"error"`
}

// SyncResult summarizes a sync run
type SyncResult struct {
	Synced  []string      `json:"synced"`
	Failed  []SyncFailure `json:"failed"`
	Message string        `json:"message"`
}

// SyncService pushes locally held profiles back to the remote store
type SyncService struct {
	remote domain.RemoteStore
	local  *fallback.Store
}

// NewSyncService creates a new SyncService
func NewSyncService(remote domain.RemoteStore, local *fallback.Store) *SyncService {
	return &SyncService{remote: remote, local: local}
}

// Sync writes every local profile to its canonical path and appends its local
// repos under fresh remote ids. Identifiers are handled independently; only
// the ones that fully succeeded are removed from the local store.
func (s *SyncService) Sync(ctx context.Context) (*SyncResult, error) {
	profiles, err := s.local.All(ctx)
	if err != nil {
		return nil, err
	}

	result := &SyncResult{Synced: []string{}, Failed: []SyncFailure{}}
	if len(profiles) == 0 {
		result.Message = MsgNothingToSync
		return result, nil
	}

	usns := make([]string, 0, len(profiles))
	for usn := range profiles {
		usns = append(usns, usn)
	}
	sort.Strings(usns)

	for _, usn := range usns {
		if err := s.push(ctx, usn, profiles[usn]); err != nil {
			log.Warn().Err(err).Str("usn", usn).Msg("Failed to sync local profile")
			result.Failed = append(result.Failed, SyncFailure{USN: usn, Error: err.Error()})
			continue
		}
		result.Synced = append(result.Synced, usn)
	}

	if err := s.local.Remove(ctx, result.Synced...); err != nil {
		return nil, fmt.Errorf("removing synced profiles: %w", err)
	}

	log.Info().
		Int("synced", len(result.Synced)).
		Int("failed", len(result.Failed)).
		Msg("Local sync finished")

	result.Message = syncMessage(result)
	return result, nil
}

func (s *SyncService) push(ctx context.Context, usn string, p domain.Profile) error {
	path := domain.ProfilePath(usn)
	if err := s.remote.Set(ctx, path, p.WithoutRepos()); err != nil {
		return err
	}

	ids := make([]string, 0, len(p.Repos))
	for id := range p.Repos {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		if _, err := s.remote.Push(ctx, domain.ReposPath(usn), p.Repos[id]); err != nil {
			return err
		}
	}
	return nil
}

func syncMessage(r *SyncResult) string {
	var parts []string
	if len(r.Synced) > 0 {
		parts = append(parts, "Synced: "+strings.Join(r.Synced, ", "))
	}
	if len(r.Failed) > 0 {
		failed := make([]string, len(r.Failed))
		for i, f := range r.Failed {
			failed[i] = fmt.Sprintf("%s(%s)", f.USN, f.Error)
		}
		parts = append(parts, "Failed: "+strings.Join(failed, "; "))
	}
	return strings.Join(parts, "\n")
}
