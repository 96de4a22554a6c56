package main

import (
	"github.com/iudanet/meshsync/internal/crdt"
	"github.com/iudanet/meshsync/internal/models"
	"github.com/iudanet/meshsync/pkg/api"
)

func opToAPI(op *models.OfflineOperation) api.OfflineOperation {
	delta := make(map[string]api.Field, len(op.Delta))
	for name, f := range op.Delta {
		delta[name] = api.Field{
			Kind:    string(f.Kind),
			Scalar:  f.Scalar,
			Stamp:   f.Stamp,
			Origin:  f.Origin,
			Set:     f.Set,
			Counter: f.Counter,
		}
	}

	clock := make(map[string]int64, len(op.Clock))
	for origin, seq := range op.Clock {
		clock[origin] = seq
	}

	return api.OfflineOperation{
		ID:         op.ID,
		Origin:     op.Origin,
		EntityID:   op.EntityID,
		Kind:       string(op.Kind),
		Delta:      delta,
		Clock:      clock,
		Seq:        op.Seq,
		CapturedAt: op.CapturedAt,
	}
}

func opFromAPI(in api.OfflineOperation) *models.OfflineOperation {
	delta := make(map[string]crdt.Field, len(in.Delta))
	for name, f := range in.Delta {
		delta[name] = crdt.Field{
			Kind:    crdt.FieldKind(f.Kind),
			Scalar:  f.Scalar,
			Stamp:   f.Stamp,
			Origin:  f.Origin,
			Set:     f.Set,
			Counter: f.Counter,
		}
	}

	clock := crdt.NewVersionVector()
	for origin, seq := range in.Clock {
		clock[origin] = seq
	}

	return &models.OfflineOperation{
		ID:         in.ID,
		EntityID:   in.EntityID,
		Kind:       models.OpKind(in.Kind),
		Delta:      delta,
		Clock:      clock,
		CapturedAt: in.CapturedAt,
	}
}
