// Package service implements the application operations on top of the
// inspection engine and the document and blob stores.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/vbonduro/sitecheck/internal/docstore"
	"github.com/vbonduro/sitecheck/internal/domain"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid request")
	// ErrAnalysisUnavailable is returned when no vision backend is configured.
	ErrAnalysisUnavailable = errors.New("photo analysis is not configured")
)

// tradeRegistry is the subset of trade.Registry the services need.
type tradeRegistry interface {
	Get(name string) (domain.Trade, bool)
	Names() []string
}

const projectsCollection = "projects"

func projectPath(id string) (string, error) {
	p, err := docstore.Join(projectsCollection, id)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return p, nil
}

func recordPath(ref domain.RecordRef) (string, error) {
	p, err := docstore.Join(projectsCollection, ref.ProjectID, "buildings", ref.Building, "apartments", ref.Apartment, ref.Trade, "inspection")
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return p, nil
}

// statusPath addresses the per-building apartment status summary of one trade.
func statusPath(projectID, trade, building string) (string, error) {
	p, err := docstore.Join(projectsCollection, projectID, "apartmentStatuses", trade, "buildings", building)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return p, nil
}

// mediaDir is the blob directory holding evidence for one record.
func mediaDir(ref domain.RecordRef) string {
	return "projects/" + ref.ProjectID + "/buildings/" + ref.Building + "/apartments/" + ref.Apartment + "/" + ref.Trade
}

func loadProject(ctx context.Context, docs docstore.Store, id string) (domain.Project, error) {
	path, err := projectPath(id)
	if err != nil {
		return domain.Project{}, err
	}
	snap, err := docs.Get(ctx, path)
	if errors.Is(err, docstore.ErrNotFound) {
		return domain.Project{}, fmt.Errorf("%w: project %q", ErrNotFound, id)
	}
	if err != nil {
		return domain.Project{}, fmt.Errorf("failed to load project: %w", err)
	}
	return docstore.DecodeProject(snap)
}
