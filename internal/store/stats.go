package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"tg_join_gate_bot/internal/domain"
)

type countCollection interface {
	CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error)
}

// StatsProvider exposes helper methods to retrieve collection counts for basic
// diagnostics without leaking MongoDB internals to callers.
type StatsProvider struct {
	members     countCollection
	communities countCollection
}

// NewStatsProvider constructs a StatsProvider backed by the provided member
// and community collections.
func NewStatsProvider(members, communities countCollection) *StatsProvider {
	return &StatsProvider{
		members:     members,
		communities: communities,
	}
}

// CountMembers returns the number of documents in the members collection.
func (p *StatsProvider) CountMembers(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.members == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.members.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count members: %w", err)
	}

	return count, nil
}

// CountPending returns the number of members still awaiting admission.
func (p *StatsProvider) CountPending(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.members == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.members.CountDocuments(ctx, bson.D{{Key: "status", Value: domain.StatusPending}})
	if err != nil {
		return 0, fmt.Errorf("count pending members: %w", err)
	}

	return count, nil
}

// CountCommunities returns the number of documents in the communities
// collection.
func (p *StatsProvider) CountCommunities(ctx context.Context) (int64, error) {
	if ctx == nil {
		return 0, errors.New("context is required")
	}
	if p == nil || p.communities == nil {
		return 0, errors.New("stats provider is not initialized")
	}

	count, err := p.communities.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count communities: %w", err)
	}

	return count, nil
}
